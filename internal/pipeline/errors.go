package pipeline

import (
	"context"
	"errors"
	"strings"
)

// Sentinel failures raised by pipeline steps. They carry their own error
// types so the final report can recommend a next step.
var (
	ErrNoJobsFound      = errors.New("no job listings found on careers page")
	ErrNoMatches        = errors.New("no jobs matched the search criteria")
	ErrSearchFailed     = errors.New("company website search failed")
	ErrExtractionFailed = errors.New("job listing extraction failed")
)

// Classification is the structured failure report attached to an unsuccessful
// run.
type Classification struct {
	ErrorType      string
	Message        string
	Recommendation string
}

// Classify maps a step failure onto the fixed error taxonomy. Substring
// checks run against the full wrapped error text, so a Playwright timeout
// buried three wraps deep still classifies as a timeout.
func Classify(err error) Classification {
	switch {
	case errors.Is(err, ErrNoJobsFound):
		return Classification{
			ErrorType:      "no_jobs_found",
			Message:        ErrNoJobsFound.Error(),
			Recommendation: "No job listings were visible on the careers page. The company may not be hiring, or the listings may need interaction this run could not perform.",
		}
	case errors.Is(err, ErrNoMatches):
		return Classification{
			ErrorType:      "no_jobs_found",
			Message:        ErrNoMatches.Error(),
			Recommendation: "Listings were found but none matched the requested title. Try a broader or alternative job title.",
		}
	case errors.Is(err, ErrSearchFailed):
		return Classification{
			ErrorType:      "search_failed",
			Message:        err.Error(),
			Recommendation: "The company website could not be identified. Provide the company domain directly.",
		}
	case errors.Is(err, ErrExtractionFailed):
		return Classification{
			ErrorType:      "extraction_failed",
			Message:        err.Error(),
			Recommendation: "Listings could not be extracted from the page. The site may render entirely through scripts this run could not observe.",
		}
	}

	text := strings.ToLower(err.Error())

	switch {
	case strings.Contains(text, "cloudflare"):
		return Classification{
			ErrorType:      "bot_protection",
			Message:        "Cloudflare protection detected",
			Recommendation: "This website uses Cloudflare protection. Try using a proxy or contact the company directly.",
		}
	case strings.Contains(text, "recaptcha") || strings.Contains(text, "captcha"):
		return Classification{
			ErrorType:      "captcha",
			Message:        "reCAPTCHA detected",
			Recommendation: "This website requires human verification. Manual application recommended.",
		}
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(text, "timeout") || strings.Contains(text, "deadline exceeded"):
		return Classification{
			ErrorType:      "timeout",
			Message:        "Page load timeout",
			Recommendation: "The website is slow or unresponsive. Try again later.",
		}
	case strings.Contains(text, "navigation") || strings.Contains(text, "navigate") || strings.Contains(text, "net::err"):
		return Classification{
			ErrorType:      "navigation_failed",
			Message:        "Navigation failed",
			Recommendation: "Could not navigate to the careers page. Check if the URL is correct.",
		}
	}

	return Classification{
		ErrorType:      "unknown",
		Message:        err.Error(),
		Recommendation: "An unexpected error occurred. Please try again.",
	}
}
