package models

import (
	"slices"
	"testing"
)

func TestParseOrigins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty", raw: ""},
		{name: "blanks only", raw: " , ,"},
		{name: "single", raw: "https://civic.example", want: []string{"https://civic.example"}},
		{name: "trimmed in order", raw: " https://b.example ,https://a.example", want: []string{"https://b.example", "https://a.example"}},
		{name: "duplicates", raw: "https://a.example,https://a.example, https://b.example", want: []string{"https://a.example", "https://b.example"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := (&CorsConfig{AllowedOrigins: tt.raw}).Origins()
			if !slices.Equal(got, tt.want) {
				t.Errorf("Origins() = %q, want %q", got, tt.want)
			}
		})
	}
}
