package utils

import (
	"testing"
	"unicode/utf8"
)

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{
			name:   "returns empty when limit non-positive",
			input:  "hello world",
			limit:  0,
			expect: "",
		},
		{
			name:   "shorter than limit",
			input:  "hello",
			limit:  10,
			expect: "hello",
		},
		{
			name:   "truncates and adds ellipsis",
			input:  "hello world",
			limit:  5,
			expect: "hello...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestTruncateBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{
			name:   "returns empty when limit non-positive",
			input:  "hello",
			limit:  0,
			expect: "",
		},
		{
			name:   "shorter than limit",
			input:  "hello",
			limit:  10,
			expect: "hello",
		},
		{
			name:   "cuts ascii at the limit",
			input:  "hello world",
			limit:  5,
			expect: "hello",
		},
		{
			// "é" is two bytes; a cut at byte 5 would split it.
			name:   "backs up to the rune boundary",
			input:  "café au lait",
			limit:  4,
			expect: "caf",
		},
		{
			name:   "keeps a complete multi-byte rune at the limit",
			input:  "café au lait",
			limit:  5,
			expect: "café",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := TruncateBytes(tt.input, tt.limit)
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
			if !utf8.ValidString(got) {
				t.Fatalf("truncation produced invalid UTF-8: %q", got)
			}
		})
	}
}

func TestResolveURL(t *testing.T) {
	t.Parallel()

	base := "https://example.com/careers/"

	absolute := ResolveURL(base, "https://jobs.example.com/123")
	if absolute != "https://jobs.example.com/123" {
		t.Fatalf("absolute URL should pass through unchanged, got %q", absolute)
	}

	relative := ResolveURL(base, "/jobs/42")
	if relative != "https://example.com/jobs/42" {
		t.Fatalf("unexpected resolved URL: %q", relative)
	}

	// Resolving twice against the same base must be stable.
	again := ResolveURL(base, relative)
	if again != relative {
		t.Fatalf("resolution is not idempotent: %q != %q", again, relative)
	}
}

func TestIsNavigable(t *testing.T) {
	t.Parallel()

	for href, want := range map[string]bool{
		"/jobs/1":              true,
		"https://example.com":  true,
		"#":                    false,
		"":                     false,
		"javascript:void(0)":   false,
		"mailto:hr@example.io": false,
		"tel:+123456":          false,
	} {
		if got := IsNavigable(href); got != want {
			t.Fatalf("IsNavigable(%q) = %v, want %v", href, got, want)
		}
	}
}

func TestOrigin(t *testing.T) {
	t.Parallel()

	if got := Origin("https://example.com/careers?page=2"); got != "https://example.com" {
		t.Fatalf("unexpected origin: %q", got)
	}

	if got := Origin("not a url"); got != "" {
		t.Fatalf("expected empty origin for garbage input, got %q", got)
	}
}

func TestEnsureScheme(t *testing.T) {
	t.Parallel()

	if got := EnsureScheme("example.com"); got != "https://example.com" {
		t.Fatalf("unexpected result: %q", got)
	}

	if got := EnsureScheme("http://example.com"); got != "http://example.com" {
		t.Fatalf("existing scheme should be kept, got %q", got)
	}
}
