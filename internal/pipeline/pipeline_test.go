package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jobsift/jobsift/internal/browser"
	"github.com/jobsift/jobsift/internal/discovery"
	"github.com/jobsift/jobsift/internal/jobs"
)

// fakeGenerator replays scripted model responses in call order.
type fakeGenerator struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (g *fakeGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	if len(g.responses) == 0 {
		return "{}", nil
	}
	response := g.responses[0]
	g.responses = g.responses[1:]
	return response, nil
}

func (g *fakeGenerator) Model() string { return "fake-model" }

// fakeDriver serves canned pages keyed by URL.
type fakeDriver struct {
	currentURL  string
	pages       map[string]string
	navigations []string
	navErrs     map[string]error
}

func (d *fakeDriver) Navigate(_ context.Context, url string) (*browser.NavResult, error) {
	d.navigations = append(d.navigations, url)
	if err := d.navErrs[url]; err != nil {
		return nil, err
	}
	d.currentURL = url
	return &browser.NavResult{URL: url}, nil
}

func (d *fakeDriver) CurrentURL() string { return d.currentURL }

func (d *fakeDriver) Content(_ context.Context) (string, error) {
	return d.pages[d.currentURL], nil
}

func (d *fakeDriver) Fill(_ context.Context, _, _ string) error  { return nil }
func (d *fakeDriver) Click(_ context.Context, _ string) error    { return nil }
func (d *fakeDriver) Press(_ context.Context, _, _ string) error { return nil }

func (d *fakeDriver) QueryState(_ context.Context, _ string, _ time.Duration) (browser.ElementState, error) {
	return browser.ElementState{}, nil
}

func (d *fakeDriver) Evaluate(_ context.Context, _ string) (any, error) { return nil, nil }

func (d *fakeDriver) WaitForSelector(_ context.Context, selector string, _ time.Duration) error {
	return fmt.Errorf("selector %q not found", selector)
}

func (d *fakeDriver) FrameCount() int { return 1 }

func (d *fakeDriver) FrameContent(_ context.Context, index int) (string, string, error) {
	return "", "", fmt.Errorf("no frame at index %d", index)
}

func (d *fakeDriver) Screenshot(_ context.Context, _ string) error { return nil }

// fakeFinder stands in for web search based company discovery.
type fakeFinder struct {
	site    *discovery.CompanySite
	err     error
	queries []string
}

func (f *fakeFinder) FindCompanyWebsite(_ context.Context, companyName string) (*discovery.CompanySite, error) {
	f.queries = append(f.queries, companyName)
	if f.err != nil {
		return nil, f.err
	}
	return f.site, nil
}

func stubPipelineDelays(t *testing.T) {
	t.Helper()
	origCareers, origSearch, origDetail := careersSettleDelay, searchSettleDelay, detailSettleDelay
	careersSettleDelay, searchSettleDelay, detailSettleDelay = 0, 0, 0
	t.Cleanup(func() {
		careersSettleDelay, searchSettleDelay, detailSettleDelay = origCareers, origSearch, origDetail
	})
}

const homeHTML = `<html><body>
<a href="/about">About us</a>
<a href="/careers">Careers at Acme</a>
</body></html>`

const rolesHTML = `<html><body>
<h2>Open roles</h2>
<a href="/jobs/123">Senior Software Engineer</a>
<a href="/jobs/456">Head Chef</a>
</body></html>`

const jobHTML = `<html><body>
<h1>Senior Software Engineer</h1>
<p>Location: Berlin</p>
<p>This is a full-time position.</p>
</body></html>`

const analysisResponse = `{
	"strategy": "extract_current_page",
	"ats_system": "custom",
	"confidence": 70,
	"reasoning": "listings are visible on the page",
	"execution_plan": {},
	"fallback_strategy": ""
}`

const listingsResponse = `{
	"jobs": [
		{"title": "Senior Software Engineer", "url": "/jobs/123", "location": "Berlin", "relevance_score": 90},
		{"title": "Head Chef", "url": "/jobs/456", "relevance_score": 10}
	]
}`

const detailResponse = `{
	"title": "Senior Software Engineer",
	"company": "Acme",
	"location": "Berlin, Germany",
	"employment_type": "Full-time",
	"description": "Build and run backend services."
}`

func newRunDriver() *fakeDriver {
	return &fakeDriver{
		pages: map[string]string{
			"https://acme.example":          homeHTML,
			"https://acme.example/careers":  rolesHTML,
			"https://acme.example/jobs/123": jobHTML,
		},
	}
}

func TestRunSuccessWithDomain(t *testing.T) {
	stubPipelineDelays(t)

	drv := newRunDriver()
	gen := &fakeGenerator{responses: []string{analysisResponse, listingsResponse, detailResponse}}
	p := New(Options{Driver: drv, Generator: gen})

	target := jobs.Target{Title: "Software Engineer", CompanyName: "Acme", CompanyDomain: "acme.example"}
	result := p.Run(context.Background(), target)

	if !result.Success {
		t.Fatalf("expected success, got error %q (%s)", result.Error, result.ErrorType)
	}
	if result.JobsFound != 1 || len(result.AllJobData) != 1 {
		t.Fatalf("expected exactly one job, got %d", result.JobsFound)
	}

	record := result.AllJobData[0]
	if record.JobURL != "https://acme.example/jobs/123" {
		t.Fatalf("unexpected job url: %q", record.JobURL)
	}
	if record.Title != "Senior Software Engineer" {
		t.Fatalf("unexpected title: %q", record.Title)
	}
	if record.MatchScore <= 0 {
		t.Fatalf("expected a positive match score, got %v", record.MatchScore)
	}
	if record.ScrapeOrder != 1 {
		t.Fatalf("expected scrape order 1, got %d", record.ScrapeOrder)
	}

	steps := result.WorkflowSteps
	if steps == nil {
		t.Fatal("expected workflow steps")
	}
	if steps.CompanyURL != "https://acme.example" {
		t.Fatalf("unexpected company url: %q", steps.CompanyURL)
	}
	if steps.CareersURL != "https://acme.example/careers" {
		t.Fatalf("unexpected careers url: %q", steps.CareersURL)
	}
	if steps.JobListingsURL != "https://acme.example/careers" {
		t.Fatalf("unexpected listings url: %q", steps.JobListingsURL)
	}
	if steps.StrategyUsed != "extract_current_page" || steps.ATSSystem != "custom" || steps.Confidence != 70 {
		t.Fatalf("unexpected strategy steps: %+v", steps)
	}
	if steps.PagesScraped != 1 {
		t.Fatalf("expected one page scraped, got %d", steps.PagesScraped)
	}
}

func TestRunCompanyDiscoveryFailure(t *testing.T) {
	stubPipelineDelays(t)

	drv := newRunDriver()
	finder := &fakeFinder{err: errors.New("no results")}
	gen := &fakeGenerator{}
	p := New(Options{Driver: drv, Finder: finder, Generator: gen})

	target := jobs.Target{Title: "Software Engineer", CompanyName: "Acme"}
	result := p.Run(context.Background(), target)

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.ErrorType != "search_failed" {
		t.Fatalf("expected search_failed, got %q", result.ErrorType)
	}
	if len(finder.queries) != 1 || finder.queries[0] != "Acme" {
		t.Fatalf("expected one lookup for Acme, got %v", finder.queries)
	}
	if result.WorkflowSteps == nil || result.WorkflowSteps.CompanyURL != "" {
		t.Fatalf("expected empty company url, got %+v", result.WorkflowSteps)
	}
}

func TestRunCompanyDiscoverySuppliesURL(t *testing.T) {
	stubPipelineDelays(t)

	drv := newRunDriver()
	finder := &fakeFinder{site: &discovery.CompanySite{
		CompanyName: "Acme",
		URL:         "https://acme.example",
		RootURL:     "https://acme.example",
		Confidence:  "high",
	}}
	gen := &fakeGenerator{responses: []string{analysisResponse, listingsResponse, detailResponse}}
	p := New(Options{Driver: drv, Finder: finder, Generator: gen})

	target := jobs.Target{Title: "Software Engineer", CompanyName: "Acme"}
	result := p.Run(context.Background(), target)

	if !result.Success {
		t.Fatalf("expected success, got error %q (%s)", result.Error, result.ErrorType)
	}
	if result.WorkflowSteps.CompanyURL != "https://acme.example" {
		t.Fatalf("unexpected company url: %q", result.WorkflowSteps.CompanyURL)
	}
}

func TestRunNoListingsShape(t *testing.T) {
	stubPipelineDelays(t)

	drv := newRunDriver()
	drv.pages["https://acme.example/careers"] = `<html><body><p>We are not hiring right now.</p></body></html>`
	gen := &fakeGenerator{responses: []string{analysisResponse, `{"jobs": []}`}}
	p := New(Options{Driver: drv, Generator: gen})

	target := jobs.Target{Title: "Software Engineer", CompanyName: "Acme", CompanyDomain: "acme.example"}
	result := p.Run(context.Background(), target)

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.ErrorType != "no_jobs_found" {
		t.Fatalf("expected no_jobs_found, got %q", result.ErrorType)
	}
	if result.Error != "no job listings found on careers page" {
		t.Fatalf("unexpected error message: %q", result.Error)
	}

	// Partial progress still lands in the report.
	steps := result.WorkflowSteps
	if steps.CompanyURL == "" || steps.CareersURL == "" {
		t.Fatalf("expected partial workflow steps, got %+v", steps)
	}
	if steps.JobListingsURL != "" {
		t.Fatalf("expected no listings url, got %q", steps.JobListingsURL)
	}
}

func TestRunNoMatchesShape(t *testing.T) {
	stubPipelineDelays(t)

	drv := newRunDriver()
	gen := &fakeGenerator{responses: []string{
		analysisResponse,
		`{"jobs": [{"title": "Head Chef", "url": "/jobs/456"}]}`,
	}}
	p := New(Options{Driver: drv, Generator: gen})

	target := jobs.Target{Title: "Quantum Cryptographer", CompanyName: "Acme", CompanyDomain: "acme.example"}
	result := p.Run(context.Background(), target)

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.ErrorType != "no_jobs_found" {
		t.Fatalf("expected no_jobs_found, got %q", result.ErrorType)
	}
	if result.Error != "no jobs matched the search criteria" {
		t.Fatalf("unexpected error message: %q", result.Error)
	}
	if result.WorkflowSteps.JobListingsURL == "" {
		t.Fatal("expected listings url to be recorded before matching")
	}
}

func TestRunFallsBackToSelectorPass(t *testing.T) {
	stubPipelineDelays(t)

	drv := newRunDriver()
	// Model extraction comes back empty, the page itself carries the links.
	gen := &fakeGenerator{responses: []string{analysisResponse, `{"jobs": []}`, detailResponse}}
	p := New(Options{Driver: drv, Generator: gen})

	target := jobs.Target{Title: "Software Engineer", CompanyName: "Acme", CompanyDomain: "acme.example"}
	result := p.Run(context.Background(), target)

	if !result.Success {
		t.Fatalf("expected success via selector pass, got %q (%s)", result.Error, result.ErrorType)
	}
	if len(result.AllJobData) != 1 {
		t.Fatalf("expected one job, got %d", len(result.AllJobData))
	}
	if result.AllJobData[0].JobURL != "https://acme.example/jobs/123" {
		t.Fatalf("unexpected job url: %q", result.AllJobData[0].JobURL)
	}
}

func TestScrapeMatchesSkipsDuplicatesAndEmptyURLs(t *testing.T) {
	stubPipelineDelays(t)

	drv := newRunDriver()
	drv.currentURL = "https://acme.example/careers"
	gen := &fakeGenerator{responses: []string{detailResponse}}
	p := New(Options{Driver: drv, Generator: gen})

	matches := []jobs.Match{
		{Candidate: jobs.Candidate{Title: "Ghost entry"}, MatchScore: 90},
		{Candidate: jobs.Candidate{Title: "Senior Software Engineer", URL: "https://acme.example/jobs/123"}, MatchScore: 88},
		{Candidate: jobs.Candidate{Title: "Senior Software Engineer", URL: "https://acme.example/jobs/123"}, MatchScore: 85},
	}

	records, err := p.scrapeMatches(context.Background(), matches, jobs.Target{Title: "Software Engineer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if records[0].ScrapeOrder != 2 {
		t.Fatalf("expected the original match position, got %d", records[0].ScrapeOrder)
	}
	if gen.calls != 1 {
		t.Fatalf("expected one detail extraction, got %d", gen.calls)
	}
}

func TestScrapeMatchesSkipsUnreachablePostings(t *testing.T) {
	stubPipelineDelays(t)

	drv := newRunDriver()
	drv.currentURL = "https://acme.example/careers"
	drv.navErrs = map[string]error{"https://acme.example/jobs/456": errors.New("net::ERR_ABORTED")}
	gen := &fakeGenerator{responses: []string{detailResponse}}
	p := New(Options{Driver: drv, Generator: gen})

	matches := []jobs.Match{
		{Candidate: jobs.Candidate{Title: "Broken", URL: "https://acme.example/jobs/456"}, MatchScore: 90},
		{Candidate: jobs.Candidate{Title: "Senior Software Engineer", URL: "https://acme.example/jobs/123"}, MatchScore: 88},
	}

	records, err := p.scrapeMatches(context.Background(), matches, jobs.Target{Title: "Software Engineer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if records[0].JobURL != "https://acme.example/jobs/123" {
		t.Fatalf("unexpected job url: %q", records[0].JobURL)
	}
}

func TestCleanResult(t *testing.T) {
	result := &jobs.Result{
		Success:       true,
		WorkflowSteps: &jobs.WorkflowSteps{JobListingsURL: "https://acme.example/careers"},
		AllJobData: []jobs.Record{
			{Title: "Engineer"},
			{
				Title:  "Analyst",
				JobURL: "https://acme.example/jobs/9",
				LocationDetails: &jobs.LocationDetails{
					CityState: "ACCEPT COOKIES Berlin",
				},
			},
		},
	}

	cleanResult(result)

	if result.AllJobData[0].JobURL != "https://acme.example/careers" {
		t.Fatalf("expected listings url backfill, got %q", result.AllJobData[0].JobURL)
	}
	if result.AllJobData[1].JobURL != "https://acme.example/jobs/9" {
		t.Fatalf("existing job url must stay, got %q", result.AllJobData[1].JobURL)
	}
	if result.AllJobData[1].LocationDetails.CityState != "" {
		t.Fatalf("expected cookie noise stripped, got %q", result.AllJobData[1].LocationDetails.CityState)
	}
}
