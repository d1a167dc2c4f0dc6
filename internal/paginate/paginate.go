// Package paginate walks paginated job boards, collecting listings from each
// page until the next control runs out or the page budget is spent.
package paginate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/browser"
	"github.com/jobsift/jobsift/internal/jobs"
	"github.com/jobsift/jobsift/internal/utils"
)

// DefaultMaxPages bounds how many result pages one run will walk.
const DefaultMaxPages = 5

const (
	nextProbeTimeout = 2 * time.Second
	// pageSettleDelay lets the next page render after the control is
	// clicked.
	pageSettleDelay = 3 * time.Second
)

// nextSelectors covers the usual shapes of a next-page control, including the
// Workday-specific automation id.
var nextSelectors = []string{
	`a:has-text("Next")`,
	`button:has-text("Next")`,
	`a:has-text("›")`,
	`button:has-text("›")`,
	`a:has-text(">")`,

	`a[aria-label="Next"]`,
	`button[aria-label="Next"]`,
	`a[aria-label*="next" i]`,
	`button[aria-label*="next" i]`,

	`a.next`,
	`button.next`,
	`a[class*="next" i]`,
	`button[class*="next" i]`,
	`.pagination a:last-child`,

	`[data-automation-id="nextButton"]`,

	`a[rel="next"]`,
	`button[rel="next"]`,
}

// paginationIndicators are substrings that suggest the page is paginated,
// checked in page text and element classes.
var paginationIndicators = []struct {
	fragment    string
	description string
}{
	{"next", "Next button"},
	{"previous", "Previous button"},
	{"pagination", "Pagination container"},
	{"page-", "Page numbers"},
}

var showingPattern = regexp.MustCompile(`(?i)showing\s+\d+\s*-?\s*\d+\s+of\s+(\d+)`)

// Info describes the pagination controls detected on a page.
type Info struct {
	HasPagination bool   `json:"has_pagination"`
	Type          string `json:"pagination_type,omitempty"`
	TotalItems    int    `json:"total_items,omitempty"`
}

// Detect inspects the HTML for pagination controls. A "showing X-Y of N"
// counter also reveals the total listing count.
func Detect(html string) (*Info, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}

	text := strings.ToLower(doc.Text())

	var classes []string
	doc.Find("[class]").Each(func(_ int, sel *goquery.Selection) {
		classes = append(classes, strings.ToLower(sel.AttrOr("class", "")))
	})

	info := &Info{}
	for _, indicator := range paginationIndicators {
		if strings.Contains(text, indicator.fragment) || classContains(classes, indicator.fragment) {
			info.HasPagination = true
			info.Type = indicator.description
			break
		}
	}

	if m := showingPattern.FindStringSubmatch(text); m != nil {
		if total, err := strconv.Atoi(m[1]); err == nil {
			info.TotalItems = total
			info.HasPagination = true
		}
	}

	return info, nil
}

// Extractor pulls the candidates off the currently loaded page.
type Extractor func(ctx context.Context) ([]jobs.Candidate, error)

// Outcome is the aggregate of a pagination walk. Success stays true when at
// least one page yielded results, even if a later page failed.
type Outcome struct {
	Success      bool
	Candidates   jobs.Candidates
	PagesScraped int
	Err          error
}

// Drive extracts from the current page, then repeatedly advances to the next
// page and extracts again, up to maxPages. Results are deduplicated by URL
// across pages. Page-level extraction failures are recorded but do not stop
// the walk; only context cancellation aborts it.
func Drive(ctx context.Context, drv browser.Driver, maxPages int, extract Extractor, logger *zap.Logger) (*Outcome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	outcome := &Outcome{}
	seen := mapset.NewSet[string]()

	for outcome.PagesScraped < maxPages {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		outcome.PagesScraped++
		logger.Debug("processing results page",
			zap.Int("page", outcome.PagesScraped),
			zap.Int("max_pages", maxPages),
		)

		pageResults, err := extract(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return outcome, ctx.Err()
			}
			outcome.Err = err
			logger.Warn("extraction failed on page",
				zap.Int("page", outcome.PagesScraped),
				zap.Error(err),
			)
		}

		added := 0
		for _, cand := range pageResults {
			if cand.URL != "" && !seen.Add(cand.URL) {
				continue
			}
			outcome.Candidates.Append(cand)
			added++
		}
		logger.Debug("collected page results",
			zap.Int("page", outcome.PagesScraped),
			zap.Int("new", added),
			zap.Int("total", outcome.Candidates.Len()),
		)

		advanced, err := clickNext(ctx, drv, logger)
		if err != nil {
			return outcome, err
		}
		if !advanced {
			break
		}

		if err := utils.WaitFor(ctx, pageSettleDelay); err != nil {
			return outcome, err
		}
	}

	outcome.Success = outcome.Candidates.Len() > 0
	return outcome, nil
}

// clickNext finds a usable next-page control and clicks it. Controls that are
// hidden, disabled, or carry a disabled class are passed over.
func clickNext(ctx context.Context, drv browser.Driver, logger *zap.Logger) (bool, error) {
	for _, selector := range nextSelectors {
		state, err := drv.QueryState(ctx, selector, nextProbeTimeout)
		if err != nil {
			return false, err
		}
		if !state.Found {
			continue
		}

		if !state.Visible || !state.Enabled || strings.Contains(strings.ToLower(state.Class), "disabled") {
			logger.Debug("next control unusable", zap.String("selector", selector))
			continue
		}

		if err := drv.Click(ctx, selector); err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			logger.Debug("next click failed", zap.String("selector", selector), zap.Error(err))
			continue
		}

		logger.Debug("advanced to next page", zap.String("selector", selector))
		return true, nil
	}

	return false, nil
}

func classContains(classes []string, fragment string) bool {
	for _, class := range classes {
		if strings.Contains(class, fragment) {
			return true
		}
	}
	return false
}
