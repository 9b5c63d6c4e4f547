package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/benvon/civiz/internal/categories"
	"github.com/benvon/civiz/internal/middleware"
	"github.com/benvon/civiz/internal/models"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCategoriesCommands(t *testing.T) {
	t.Setenv("CATEGORIES_FILE", "")

	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr bool
	}{
		{name: "list", args: []string{"categories", "list"}, want: []string{"built-in", "housing-development", "$850.5M"}},
		{name: "show", args: []string{"categories", "show", "environment-parks"}, want: []string{"Environment & Parks", "Budget deficit: $8.2M"}},
		{name: "show unknown", args: []string{"categories", "show", "moon-base"}, wantErr: true},
		{name: "match", args: []string{"categories", "match", "more", "trees", "in", "the", "park"}, want: []string{"Matched: Environment & Parks", "environment-parks"}},
		{name: "no match", args: []string{"categories", "match", "zzz"}, want: []string{"No match", categories.DefaultCategoryID}},
		{name: "validate", args: []string{"categories", "validate"}, want: []string{"✓ built-in"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v (output %q)", err, tt.wantErr, out)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestCategoriesFileFlag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cats.yaml")
	data := "categories:\n" +
		"  - id: " + categories.DefaultCategoryID + "\n" +
		"    name: Everything\n" +
		"    total_budget: 1.5\n" +
		"    keywords: [civic]\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "categories", "validate", "--file", path)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "1 categories") {
		t.Errorf("output = %q, want 1 categories", out)
	}

	if _, err := run(t, "categories", "validate", "--file", filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("validate of a missing file succeeded, want error")
	}
}

func TestMatchScoresOrder(t *testing.T) {
	t.Parallel()

	scores := matchScores(categories.MustDefault(), "a school library with a garden and trees")
	if len(scores) == 0 {
		t.Fatal("no scores")
	}
	for i := 1; i < len(scores); i++ {
		if scores[i].score > scores[i-1].score {
			t.Fatalf("scores not sorted: %+v", scores)
		}
	}
}

func TestMoney(t *testing.T) {
	t.Parallel()

	tests := map[float64]string{850.5: "$850.5M", -15.8: "-$15.8M", 0: "$0.0M"}
	for in, want := range tests {
		if got := money(in); got != want {
			t.Errorf("money(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeOrigins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "https://civic.example, http://localhost:3000/", want: "https://civic.example,http://localhost:3000"},
		{raw: "*", want: "*"},
		{raw: "", wantErr: true},
		{raw: "civic.example", wantErr: true},
		{raw: "https://civic.example/app", wantErr: true},
	}
	for _, tt := range tests {
		got, err := normalizeOrigins(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("normalizeOrigins(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("normalizeOrigins(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestMergeRatelimit(t *testing.T) {
	t.Parallel()

	stored := &models.RatelimitConfig{Rate: "10-M", AnonymousLimit: 5}
	tests := []struct {
		name   string
		stored *models.RatelimitConfig
		rate   string
		anon   int
		want   models.RatelimitConfig
	}{
		{name: "nothing stored", rate: "", anon: 4, want: models.RatelimitConfig{Rate: middleware.DefaultAPIRate, AnonymousLimit: 4}},
		{name: "rate only", stored: stored, rate: "1-S", want: models.RatelimitConfig{Rate: "1-S", AnonymousLimit: 5}},
		{name: "anonymous only", stored: stored, anon: 10, want: models.RatelimitConfig{Rate: "10-M", AnonymousLimit: 10}},
	}
	for _, tt := range tests {
		got := mergeRatelimit(tt.stored, tt.rate, tt.anon)
		if got.Rate != tt.want.Rate || got.AnonymousLimit != tt.want.AnonymousLimit {
			t.Errorf("%s: mergeRatelimit = %+v, want %+v", tt.name, *got, tt.want)
		}
	}
}

func TestOIDCFlags(t *testing.T) {
	t.Parallel()

	if got := jwksURLFor("https://idp.example/", ""); got != "https://idp.example/.well-known/jwks.json" {
		t.Errorf("jwksURLFor derived = %q", got)
	}
	if got := jwksURLFor("https://idp.example", "https://keys.example/jwks"); got != "https://keys.example/jwks" {
		t.Errorf("jwksURLFor explicit = %q", got)
	}

	valid := oidcFlags{issuer: "https://idp.example", clientID: "abc", redirectURI: "https://civic.example/cb"}
	if err := valid.validate(); err != nil {
		t.Errorf("validate(valid) = %v", err)
	}
	missing := valid
	missing.clientID = ""
	if err := missing.validate(); err == nil {
		t.Error("validate without client id succeeded")
	}
	relative := valid
	relative.redirectURI = "/callback"
	if err := relative.validate(); err == nil {
		t.Error("validate with relative redirect succeeded")
	}
}

func TestRatelimitSetRejectsBadInput(t *testing.T) {
	tests := [][]string{
		{"ratelimit", "set"},
		{"ratelimit", "set", "--rate", "fast"},
		{"ratelimit", "set", "--anonymous-limit", "0"},
	}
	for _, args := range tests {
		if _, err := run(t, args...); err == nil {
			t.Errorf("%v succeeded, want validation error", args)
		}
	}
}
