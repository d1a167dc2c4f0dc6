// Package pipeline orchestrates one scraping run from company name to the
// final result document.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/ai"
	"github.com/jobsift/jobsift/internal/browser"
	"github.com/jobsift/jobsift/internal/discovery"
	"github.com/jobsift/jobsift/internal/extract"
	"github.com/jobsift/jobsift/internal/jobs"
	"github.com/jobsift/jobsift/internal/match"
	"github.com/jobsift/jobsift/internal/paginate"
	"github.com/jobsift/jobsift/internal/searchform"
	"github.com/jobsift/jobsift/internal/strategy"
	"github.com/jobsift/jobsift/internal/utils"
)

// Settle delays between pipeline steps, shortened in tests.
var (
	careersSettleDelay = 3 * time.Second
	searchSettleDelay  = 3 * time.Second
	detailSettleDelay  = 2 * time.Second
)

// CompanyFinder resolves a company name to its website when no domain was
// given.
type CompanyFinder interface {
	FindCompanyWebsite(ctx context.Context, companyName string) (*discovery.CompanySite, error)
}

// Options wires the pipeline's external boundaries.
type Options struct {
	Driver    browser.Driver
	Finder    CompanyFinder
	Generator ai.Generator
	MaxPages  int
	Logger    *zap.Logger
}

// Pipeline runs the linear scraping workflow. All steps share one browser
// page and execute strictly in order.
type Pipeline struct {
	drv      browser.Driver
	finder   CompanyFinder
	selector *strategy.Selector
	executor *strategy.Executor
	detailer *detailer
	limiter  *hostLimiter
	maxPages int
	logger   *zap.Logger
}

func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = paginate.DefaultMaxPages
	}

	semantic := extract.NewSemantic(opts.Generator, logger)

	return &Pipeline{
		drv:      opts.Driver,
		finder:   opts.Finder,
		selector: strategy.NewSelector(opts.Generator, logger),
		executor: strategy.NewExecutor(opts.Driver, semantic, logger),
		detailer: newDetailer(opts.Generator, logger),
		limiter:  newHostLimiter(detailScrapeInterval),
		maxPages: maxPages,
		logger:   logger,
	}
}

// Run executes the full workflow and always returns a result document. Step
// failures are classified into the error taxonomy instead of surfacing as
// raw errors.
func (p *Pipeline) Run(ctx context.Context, target jobs.Target) *jobs.Result {
	result := jobs.NewResult(target)
	steps := &jobs.WorkflowSteps{}
	result.WorkflowSteps = steps

	if err := p.run(ctx, target, steps, result); err != nil {
		classification := Classify(err)
		result.Success = false
		result.Error = classification.Message
		result.ErrorType = classification.ErrorType
		result.Recommendation = classification.Recommendation
		p.logger.Error("scraping run failed",
			zap.String("error_type", classification.ErrorType),
			zap.Error(err),
		)
	}
	return result
}

func (p *Pipeline) run(ctx context.Context, target jobs.Target, steps *jobs.WorkflowSteps, result *jobs.Result) error {
	if err := target.Validate(); err != nil {
		return err
	}

	p.logger.Info("step 1: determining company url")
	companyURL, err := p.companyURL(ctx, target)
	if err != nil {
		return err
	}
	steps.CompanyURL = companyURL

	p.logger.Info("step 2: finding careers page", zap.String("company_url", companyURL))
	careersURL, err := p.findCareersPage(ctx, companyURL)
	if err != nil {
		return err
	}
	steps.CareersURL = careersURL

	p.logger.Info("step 3: navigating to careers page", zap.String("careers_url", careersURL))
	if _, err := p.drv.Navigate(ctx, careersURL); err != nil {
		return fmt.Errorf("navigate to careers page: %w", err)
	}
	if err := utils.WaitFor(ctx, careersSettleDelay); err != nil {
		return err
	}

	p.logger.Info("step 4: attempting search")
	if err := p.attemptSearch(ctx, target, steps); err != nil {
		return err
	}

	html, err := p.drv.Content(ctx)
	if err != nil {
		return fmt.Errorf("read careers page: %w", err)
	}

	p.logger.Info("step 5: checking for pagination")
	pageInfo, err := paginate.Detect(html)
	if err != nil {
		p.logger.Warn("pagination detection failed", zap.Error(err))
		pageInfo = &paginate.Info{}
	}

	p.logger.Info("step 6: selecting extraction strategy")
	if hint, ok := p.selector.Hint(p.drv.CurrentURL()); ok {
		p.logger.Debug("origin was analyzed before",
			zap.String("strategy", hint.Analysis.Strategy.String()),
			zap.Time("stored_at", hint.StoredAt),
		)
	}
	analysis, err := p.selector.Analyze(ctx, target, p.drv.CurrentURL(), html)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		p.logger.Warn("strategy analysis failed, using direct extraction", zap.Error(err))
		analysis = &strategy.Analysis{Strategy: strategy.KindExtractCurrentPage}
	}
	steps.StrategyUsed = analysis.Strategy.String()
	steps.ATSSystem = analysis.ATSSystem
	steps.Confidence = analysis.Confidence

	p.logger.Info("step 7: extracting job listings", zap.Bool("paginated", pageInfo.HasPagination))
	candidates, pagesScraped, extractErr := p.extractListings(ctx, analysis, target, pageInfo)
	steps.PagesScraped = pagesScraped

	if extractErr != nil || len(candidates) == 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if extractErr != nil {
			p.logger.Warn("strategy extraction failed, trying selector-only pass", zap.Error(extractErr))
		} else {
			p.logger.Info("strategy extraction found nothing, trying selector-only pass")
		}
		if fallback, err := p.fallbackListings(ctx); err == nil && len(fallback) > 0 {
			candidates = fallback
		}
	}

	if len(candidates) == 0 {
		return ErrNoJobsFound
	}
	steps.JobListingsURL = p.drv.CurrentURL()

	collection := jobs.Candidates{Items: candidates}
	if dropped := collection.DedupeByURL(); dropped > 0 {
		p.logger.Debug("dropped duplicate listings", zap.Int("dropped", dropped))
	}
	candidates = collection.Items

	p.logger.Info("step 8: matching listings against target", zap.Int("candidates", len(candidates)))
	matches := match.FindAllMatches(target, candidates)
	if len(matches) == 0 {
		return ErrNoMatches
	}

	p.logger.Info("step 9: scraping matched postings", zap.Int("matches", len(matches)))
	records, err := p.scrapeMatches(ctx, matches, target)
	if err != nil {
		return err
	}

	result.Success = true
	result.JobsFound = len(records)
	result.AllJobData = records
	cleanResult(result)

	p.logger.Info("scraping run completed", zap.Int("jobs", len(records)))
	return nil
}

// companyURL prefers an explicit domain and falls back to web search.
func (p *Pipeline) companyURL(ctx context.Context, target jobs.Target) (string, error) {
	if target.CompanyDomain != "" {
		return utils.EnsureScheme(target.CompanyDomain), nil
	}

	site, err := p.finder.FindCompanyWebsite(ctx, target.CompanyName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	return site.URL, nil
}

func (p *Pipeline) findCareersPage(ctx context.Context, companyURL string) (string, error) {
	if _, err := p.drv.Navigate(ctx, companyURL); err != nil {
		return "", fmt.Errorf("navigate to company website: %w", err)
	}

	html, err := p.drv.Content(ctx)
	if err != nil {
		return "", fmt.Errorf("read company homepage: %w", err)
	}

	link, err := discovery.FindCareersLink(html, companyURL)
	if err != nil {
		return "", err
	}
	if link.Fallback {
		p.logger.Info("no clear careers link, using /careers path")
	}
	return link.URL, nil
}

// attemptSearch is best effort: a failing search form never fails the run,
// only a cancelled context does.
func (p *Pipeline) attemptSearch(ctx context.Context, target jobs.Target, steps *jobs.WorkflowSteps) error {
	html, err := p.drv.Content(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		p.logger.Warn("could not read page for search detection", zap.Error(err))
		return nil
	}

	detection, err := searchform.Detect(html)
	if err != nil || !detection.HasSearch() {
		p.logger.Info("no search form detected")
		return nil
	}

	outcome, err := searchform.Run(ctx, p.drv, detection, target.Title, p.logger)
	if err != nil {
		return err
	}

	steps.SearchUsed = outcome.Used
	if outcome.Used {
		p.logger.Info("search form used", zap.String("selector", outcome.FilledSelector))
		return utils.WaitFor(ctx, searchSettleDelay)
	}
	p.logger.Info("search form not usable", zap.String("reason", outcome.Reason))
	return nil
}

func (p *Pipeline) extractListings(ctx context.Context, analysis *strategy.Analysis, target jobs.Target, pageInfo *paginate.Info) ([]jobs.Candidate, int, error) {
	extractor := func(ctx context.Context) ([]jobs.Candidate, error) {
		return p.executor.Run(ctx, analysis, target)
	}

	if pageInfo.HasPagination {
		outcome, err := paginate.Drive(ctx, p.drv, p.maxPages, extractor, p.logger)
		if err != nil {
			return nil, 0, err
		}
		if !outcome.Success {
			return outcome.Candidates.Items, outcome.PagesScraped, outcome.Err
		}
		return outcome.Candidates.Items, outcome.PagesScraped, nil
	}

	candidates, err := extractor(ctx)
	return candidates, 1, err
}

// fallbackListings is the selector-only pass used when strategy extraction
// yields nothing.
func (p *Pipeline) fallbackListings(ctx context.Context) ([]jobs.Candidate, error) {
	html, err := p.drv.Content(ctx)
	if err != nil {
		return nil, err
	}
	return extract.FindJobLinks(html, p.drv.CurrentURL())
}

// scrapeMatches visits each matched posting once and builds its record.
// Individual posting failures are skipped; only cancellation aborts the
// loop.
func (p *Pipeline) scrapeMatches(ctx context.Context, matches []jobs.Match, target jobs.Target) ([]jobs.Record, error) {
	visited := mapset.NewSet[string]()
	var records []jobs.Record

	for i, m := range matches {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		jobURL := m.URL
		if jobURL == "" || !visited.Add(jobURL) {
			continue
		}

		p.logger.Info("scraping matched job",
			zap.Int("position", i+1),
			zap.Int("total", len(matches)),
			zap.String("title", m.Title),
		)

		if err := p.limiter.Wait(ctx, jobURL); err != nil {
			return records, err
		}

		if _, err := p.drv.Navigate(ctx, jobURL); err != nil {
			p.logger.Warn("failed to open job posting", zap.String("url", jobURL), zap.Error(err))
			continue
		}
		if err := utils.WaitFor(ctx, detailSettleDelay); err != nil {
			return records, err
		}

		html, err := p.drv.Content(ctx)
		if err != nil {
			p.logger.Warn("failed to read job posting", zap.String("url", jobURL), zap.Error(err))
			continue
		}

		record, err := p.detailer.Extract(ctx, html, target)
		if err != nil {
			p.logger.Warn("failed to extract job details", zap.String("url", jobURL), zap.Error(err))
			continue
		}

		record.MatchScore = m.MatchScore
		record.JobURL = jobURL
		record.ScrapeOrder = i + 1
		records = append(records, *record)
	}

	return records, nil
}

// cleanResult backfills missing posting URLs and strips cookie-banner noise
// that leaks into location fields.
func cleanResult(result *jobs.Result) {
	if !result.Success {
		return
	}

	listingsURL := ""
	if result.WorkflowSteps != nil {
		listingsURL = result.WorkflowSteps.JobListingsURL
	}

	for i := range result.AllJobData {
		record := &result.AllJobData[i]
		if record.JobURL == "" {
			record.JobURL = listingsURL
		}
		if record.LocationDetails != nil &&
			strings.Contains(strings.ToUpper(record.LocationDetails.CityState), "COOKIE") {
			record.LocationDetails.CityState = ""
		}
	}
}
