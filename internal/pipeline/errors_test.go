package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClassifySentinels(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantType      string
		wantMessage   string
		wantRecommend string
	}{
		{
			name:        "no jobs found",
			err:         ErrNoJobsFound,
			wantType:    "no_jobs_found",
			wantMessage: "no job listings found on careers page",
		},
		{
			name:        "no matches",
			err:         ErrNoMatches,
			wantType:    "no_jobs_found",
			wantMessage: "no jobs matched the search criteria",
		},
		{
			name:     "search failed",
			err:      fmt.Errorf("%w: duckduckgo returned nothing", ErrSearchFailed),
			wantType: "search_failed",
		},
		{
			name:     "extraction failed",
			err:      fmt.Errorf("%w: all strategies exhausted", ErrExtractionFailed),
			wantType: "extraction_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.ErrorType != tt.wantType {
				t.Fatalf("expected error type %q, got %q", tt.wantType, got.ErrorType)
			}
			if tt.wantMessage != "" && got.Message != tt.wantMessage {
				t.Fatalf("expected message %q, got %q", tt.wantMessage, got.Message)
			}
			if got.Recommendation == "" {
				t.Fatal("expected a recommendation")
			}
		})
	}
}

func TestClassifyWrappedSentinelSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("step 7: %w", ErrNoJobsFound)
	if got := Classify(err); got.ErrorType != "no_jobs_found" {
		t.Fatalf("expected no_jobs_found, got %q", got.ErrorType)
	}
}

func TestClassifyByErrorText(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType string
	}{
		{"cloudflare challenge", errors.New("blocked: Cloudflare challenge page"), "bot_protection"},
		{"recaptcha", errors.New("page shows reCAPTCHA v3 widget"), "captcha"},
		{"plain captcha", errors.New("captcha required before listings load"), "captcha"},
		{"timeout text", errors.New("page load timeout after 30s"), "timeout"},
		{"deadline exceeded", fmt.Errorf("navigate: %w", context.DeadlineExceeded), "timeout"},
		{"navigation", errors.New("navigation to https://acme.com/careers failed"), "navigation_failed"},
		{"chromium net error", errors.New("net::ERR_NAME_NOT_RESOLVED"), "navigation_failed"},
		{"anything else", errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.ErrorType != tt.wantType {
				t.Fatalf("expected error type %q, got %q", tt.wantType, got.ErrorType)
			}
		})
	}
}

func TestClassifyCloudflareWinsOverTimeout(t *testing.T) {
	// A Cloudflare challenge often surfaces as a timeout; the more specific
	// classification must win.
	err := errors.New("timeout waiting for cloudflare challenge to clear")
	if got := Classify(err); got.ErrorType != "bot_protection" {
		t.Fatalf("expected bot_protection, got %q", got.ErrorType)
	}
	if !strings.Contains(Classify(err).Recommendation, "Cloudflare") {
		t.Fatal("expected the recommendation to name Cloudflare")
	}
}
