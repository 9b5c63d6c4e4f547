package logger

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "empty", in: "", max: 10, want: ""},
		{name: "plain", in: "more parks", max: 0, want: "more parks"},
		{name: "control characters", in: "a\x00b\x1bc", max: 10, want: "abc"},
		{name: "keeps whitespace", in: "a\tb\nc", max: 10, want: "a\tb\nc"},
		{name: "truncates", in: "abcdefgh", max: 4, want: "abcd..."},
		{name: "invalid utf8", in: "ok\xffok", max: 10, want: "okok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeString(tt.in, tt.max); got != tt.want {
				t.Errorf("SanitizeString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestSanitizeStringKeepsRuneBoundaries(t *testing.T) {
	t.Parallel()

	got := SanitizeString("ééééé", 3)
	if !utf8.ValidString(got) {
		t.Errorf("SanitizeString() = %q, not valid UTF-8", got)
	}
	if got != "é..." {
		t.Errorf("SanitizeString() = %q, want %q", got, "é...")
	}
}

func TestPreview(t *testing.T) {
	t.Parallel()

	got := Preview("  more\n\nbike   lanes  ")
	if got != "more bike lanes" {
		t.Errorf("Preview() = %q", got)
	}
	long := Preview(strings.Repeat("x", 200))
	if len(long) != MaxPreviewLength+3 {
		t.Errorf("len(Preview(long)) = %d, want %d", len(long), MaxPreviewLength+3)
	}
}

func TestSanitizeHelpers(t *testing.T) {
	t.Parallel()

	if got := SanitizeError(nil); got != "" {
		t.Errorf("SanitizeError(nil) = %q", got)
	}
	if got := SanitizeError(errors.New("bad\x00thing")); got != "badthing" {
		t.Errorf("SanitizeError() = %q", got)
	}
	if got := SanitizePath("/api/v1/visions\x07"); got != "/api/v1/visions" {
		t.Errorf("SanitizePath() = %q", got)
	}
	if got := SanitizeUserID(strings.Repeat("u", 300)); len(got) != MaxUserIDLength+3 {
		t.Errorf("len(SanitizeUserID()) = %d", len(got))
	}
}
