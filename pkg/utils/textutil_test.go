package utils

import (
	"strings"
	"testing"
)

func TestNormalizeProfession(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Accountant", "accountant"},
		{"  Data   Scientist  ", "data scientist"},
		{"TEACHER", "teacher"},
		{"", ""},
		{"   ", ""},
	}
	for _, c := range cases {
		if got := NormalizeProfession(c.in); got != c.want {
			t.Fatalf("NormalizeProfession(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 100); got != "short" {
		t.Fatalf("Truncate below limit should be identity, got %q", got)
	}

	long := strings.Repeat("a", 50)
	got := Truncate(long, 10)
	if !strings.HasPrefix(got, strings.Repeat("a", 10)) {
		t.Fatalf("Truncate should keep the first 10 runes, got %q", got)
	}
	if !strings.HasSuffix(got, "... [content truncated]") {
		t.Fatalf("Truncate should append marker, got %q", got)
	}

	if got := Truncate("anything", 0); got != "" {
		t.Fatalf("Truncate with max 0 should be empty, got %q", got)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	in := "line one\n\n  line\ttwo   end"
	want := "line one line two end"
	if got := CollapseWhitespace(in); got != want {
		t.Fatalf("CollapseWhitespace = %q, want %q", got, want)
	}
}

func TestSnippet(t *testing.T) {
	if got := Snippet("a\nb", 10); got != "a b" {
		t.Fatalf("Snippet should collapse newlines, got %q", got)
	}
	got := Snippet(strings.Repeat("x", 20), 5)
	if got != "xxxxx..." {
		t.Fatalf("Snippet should cut with ellipsis, got %q", got)
	}
}
