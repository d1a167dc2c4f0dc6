package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

var (
	ErrMissingTitle   = errors.New("job title is required")
	ErrMissingCompany = errors.New("either company name or company domain is required")
)

// WorkflowSteps records the URLs and strategy picked while the pipeline ran,
// for the final report.
type WorkflowSteps struct {
	CompanyURL     string `json:"company_url,omitempty"`
	CareersURL     string `json:"careers_url,omitempty"`
	JobListingsURL string `json:"job_listings_url,omitempty"`
	StrategyUsed   string `json:"strategy_used,omitempty"`
	ATSSystem      string `json:"ats_system,omitempty"`
	Confidence     int    `json:"confidence,omitempty"`
	PagesScraped   int    `json:"pages_scraped,omitempty"`
	SearchUsed     bool   `json:"search_used,omitempty"`
}

// Metadata about the run itself.
type ScrapeMetadata struct {
	Timestamp      string `json:"timestamp"`
	ScraperVersion string `json:"scraper_version"`
	Mode           string `json:"mode"`
}

// Result is the single JSON document written for every run, success or not.
type Result struct {
	Success        bool           `json:"success"`
	Target         Target         `json:"job_params"`
	WorkflowSteps  *WorkflowSteps `json:"workflow_steps,omitempty"`
	JobsFound      int            `json:"jobs_found"`
	AllJobData     []Record       `json:"all_job_data,omitempty"`
	Error          string         `json:"error,omitempty"`
	ErrorType      string         `json:"error_type,omitempty"`
	Recommendation string         `json:"recommendation,omitempty"`
	Metadata       ScrapeMetadata `json:"scrape_metadata"`
}

const scraperVersion = "universal_v1.0"

// NewResult stamps a result document with run metadata.
func NewResult(target Target) *Result {
	return &Result{
		Target: target,
		Metadata: ScrapeMetadata{
			Timestamp:      time.Now().Format(time.RFC3339),
			ScraperVersion: scraperVersion,
			Mode:           "universal",
		},
	}
}

// WriteFile persists the result document as indented JSON.
func (r *Result) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write result to %s: %w", path, err)
	}

	return nil
}
