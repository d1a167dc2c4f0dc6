package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/browser"
	"github.com/jobsift/jobsift/internal/extract"
	"github.com/jobsift/jobsift/internal/iframe"
	"github.com/jobsift/jobsift/internal/jobs"
	"github.com/jobsift/jobsift/internal/utils"
)

// Settle delays, shortened in tests.
var (
	// navSettleDelay follows every page mutation before the next read.
	navSettleDelay = 3 * time.Second
	// listingAppearDelay follows a matched listing selector before the DOM
	// is serialized.
	listingAppearDelay = 2 * time.Second
	// listingWaitTimeout bounds the wait on each listing selector probe.
	listingWaitTimeout = 5 * time.Second
	// scrollStepDelay lets lazy-loaded content arrive between scrolls.
	scrollStepDelay = 1 * time.Second
	// scrollSettleDelay follows each full-page scroll in scroll_and_extract.
	scrollSettleDelay = 2 * time.Second
)

const (
	// defaultScrollAmount is used when the plan names no scroll count.
	defaultScrollAmount = 5
	// lazyScrollRounds is the fixed lazy-load scroll pass before direct
	// extraction.
	lazyScrollRounds = 3

	// thinContentThreshold flags pages that likely finished loading with no
	// real body.
	thinContentThreshold = 1000
)

// listingWaitSelectors are probed in order until one matches, so extraction
// does not start before a JS-rendered board has painted.
var listingWaitSelectors = []string{
	`[data-automation-id="jobTitle"]`,
	`li[class*="job"]`,
	`div[class*="job"]`,
	`a[href*="/job/"]`,
	`[role="listitem"]`,
	`article`,
	`.job-card`,
	`.job-listing`,
}

// Executor runs one strategy against the browser and turns the resulting page
// state into listing candidates.
type Executor struct {
	drv      browser.Driver
	semantic *extract.Semantic
	logger   *zap.Logger
}

func NewExecutor(drv browser.Driver, semantic *extract.Semantic, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{drv: drv, semantic: semantic, logger: logger}
}

// Run executes the analysis. When a non-direct strategy fails and the
// analysis names a different fallback, exactly one fallback hop into direct
// extraction is taken. One hop, not a loop.
func (e *Executor) Run(ctx context.Context, analysis *Analysis, target jobs.Target) ([]jobs.Candidate, error) {
	e.logger.Info("executing strategy", zap.String("strategy", analysis.Strategy.String()))

	candidates, err := e.execute(ctx, analysis, target)
	if err == nil {
		return candidates, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	if analysis.Strategy == KindExtractCurrentPage ||
		analysis.Fallback == "" || analysis.Fallback == analysis.Strategy.String() {
		return nil, err
	}

	e.logger.Warn("strategy failed, trying direct extraction fallback",
		zap.String("strategy", analysis.Strategy.String()),
		zap.Error(err),
	)
	return e.extractCurrent(ctx, target)
}

func (e *Executor) execute(ctx context.Context, analysis *Analysis, target jobs.Target) ([]jobs.Candidate, error) {
	switch analysis.Strategy {
	case KindIframeNavigation:
		return e.runIframe(ctx, analysis.Plan, target)
	case KindUseSearchForm:
		return e.runSearch(ctx, analysis.Plan, target)
	case KindNavigateToLink:
		return e.runNavigate(ctx, analysis.Plan, target)
	case KindScrollAndExtract:
		return e.runScroll(ctx, analysis.Plan, target)
	default:
		return e.extractCurrent(ctx, target)
	}
}

// runIframe walks the page's frames most relevant first and concatenates the
// listings found in each. The frame named by the plan goes first; a frame
// that yields nothing does not stop the walk.
func (e *Executor) runIframe(ctx context.Context, plan Params, target jobs.Target) ([]jobs.Candidate, error) {
	pageURL := e.drv.CurrentURL()

	html, err := e.drv.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("read page content: %w", err)
	}
	frames, err := iframe.Inventory(html)
	if err != nil {
		return nil, err
	}

	refs := frameVisitOrder(frames, plan)
	if len(refs) == 0 {
		return nil, errors.New("iframe plan has neither source nor index")
	}

	seen := make(map[string]bool)
	var collected []jobs.Candidate
	for _, ref := range refs {
		candidates, err := e.scrapeFrame(ctx, ref, pageURL, target)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			e.logger.Warn("frame produced no listings",
				zap.String("src", ref.src),
				zap.Int("frame_index", ref.index),
				zap.Error(err),
			)
			continue
		}
		for _, cand := range candidates {
			if cand.URL != "" {
				if seen[cand.URL] {
					continue
				}
				seen[cand.URL] = true
			}
			collected = append(collected, cand)
		}
	}

	if len(collected) == 0 {
		return nil, errors.New("no frame on the page yielded listings")
	}
	return collected, nil
}

// frameRef names one frame to visit, by source URL or by its position in the
// page's frame list. index is -1 when only a source is known.
type frameRef struct {
	src   string
	index int
}

// frameVisitOrder puts the plan-named frame first, then the rest of the
// inventory from most to least relevant, skipping the plan's own frame.
func frameVisitOrder(frames []iframe.Info, plan Params) []frameRef {
	var refs []frameRef
	switch {
	case plan.IframeSrc != "":
		refs = append(refs, frameRef{src: plan.IframeSrc, index: -1})
	case plan.IframeIndex != nil:
		refs = append(refs, frameRef{index: *plan.IframeIndex})
	}

	for _, frame := range frames {
		ref := frameRef{src: frame.Source(), index: frame.Index}
		if len(refs) > 0 && sameFrame(refs[0], ref) {
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

// sameFrame reports whether the plan-named frame and an inventoried frame are
// the same element.
func sameFrame(plan, found frameRef) bool {
	if plan.src != "" {
		return plan.src == found.src
	}
	return plan.index == found.index
}

// scrapeFrame pulls listings out of a single frame, navigating the main
// context into src-bearing frames and reading srcless frames in place.
func (e *Executor) scrapeFrame(ctx context.Context, ref frameRef, pageURL string, target jobs.Target) ([]jobs.Candidate, error) {
	if ref.src != "" {
		if !utils.IsNavigable(ref.src) {
			return nil, fmt.Errorf("frame source %q is not navigable", ref.src)
		}
		src := utils.ResolveURL(pageURL, ref.src)
		e.logger.Info("navigating into iframe", zap.String("url", src))

		if _, err := e.drv.Navigate(ctx, src); err != nil {
			return nil, fmt.Errorf("navigate to iframe source: %w", err)
		}
		return e.extractCurrent(ctx, target)
	}

	if ref.index < 0 || ref.index >= e.drv.FrameCount() {
		return nil, fmt.Errorf("iframe index %d out of range (%d frames)", ref.index, e.drv.FrameCount())
	}

	e.logger.Info("reading frame in place", zap.Int("frame_index", ref.index))

	frameHTML, frameURL, err := e.drv.FrameContent(ctx, ref.index)
	if err != nil {
		return nil, fmt.Errorf("read frame %d: %w", ref.index, err)
	}

	candidates, err := e.semantic.Extract(ctx, frameHTML, frameURL, target.Title)
	if err == nil && len(candidates) > 0 {
		return candidates, nil
	}
	if err != nil {
		e.logger.Warn("semantic extraction inside frame failed, scanning frame links", zap.Error(err))
	}

	links, linkErr := iframe.FrameLinks(frameHTML, frameURL)
	if linkErr != nil {
		return nil, fmt.Errorf("scan frame links: %w", linkErr)
	}
	return links, nil
}

// runSearch drives the search form named by the plan, then extracts whatever
// the results page shows.
func (e *Executor) runSearch(ctx context.Context, plan Params, target jobs.Target) ([]jobs.Candidate, error) {
	if plan.SearchInputSelector == "" {
		return nil, errors.New("search plan has no input selector")
	}

	if err := e.drv.Fill(ctx, plan.SearchInputSelector, target.Title); err != nil {
		return nil, fmt.Errorf("fill search input %q: %w", plan.SearchInputSelector, err)
	}

	if plan.SubmitButtonSelector != "" {
		if err := e.drv.Click(ctx, plan.SubmitButtonSelector); err != nil {
			return nil, fmt.Errorf("click submit %q: %w", plan.SubmitButtonSelector, err)
		}
	} else if err := e.drv.Press(ctx, plan.SearchInputSelector, "Enter"); err != nil {
		return nil, fmt.Errorf("submit search with enter: %w", err)
	}

	if err := utils.WaitFor(ctx, navSettleDelay); err != nil {
		return nil, err
	}
	return e.extractCurrent(ctx, target)
}

func (e *Executor) runNavigate(ctx context.Context, plan Params, target jobs.Target) ([]jobs.Candidate, error) {
	if plan.TargetLinkURL == "" {
		return nil, errors.New("navigation plan has no target url")
	}

	targetURL := utils.ResolveURL(e.drv.CurrentURL(), plan.TargetLinkURL)
	e.logger.Info("navigating to target link", zap.String("url", targetURL))

	if _, err := e.drv.Navigate(ctx, targetURL); err != nil {
		return nil, fmt.Errorf("navigate to %q: %w", targetURL, err)
	}
	if err := utils.WaitFor(ctx, navSettleDelay); err != nil {
		return nil, err
	}
	return e.extractCurrent(ctx, target)
}

// runScroll scrolls to the bottom until the page stops growing or the scroll
// budget runs out, then extracts.
func (e *Executor) runScroll(ctx context.Context, plan Params, target jobs.Target) ([]jobs.Candidate, error) {
	amount := plan.ScrollAmount
	if amount <= 0 {
		amount = defaultScrollAmount
	}

	previousHeight := e.pageHeight(ctx)

	for i := 0; i < amount; i++ {
		if _, err := e.drv.Evaluate(ctx, "window.scrollTo(0, document.body.scrollHeight)"); err != nil {
			return nil, fmt.Errorf("scroll page: %w", err)
		}
		if err := utils.WaitFor(ctx, scrollSettleDelay); err != nil {
			return nil, err
		}

		newHeight := e.pageHeight(ctx)
		if newHeight == previousHeight {
			break
		}
		previousHeight = newHeight

		e.logger.Debug("scrolled for more content", zap.Int("round", i+1), zap.Int("budget", amount))
	}

	return e.extractCurrent(ctx, target)
}

// extractCurrent is the terminal state of every strategy: settle, wait for a
// listing selector, nudge lazy loading, then hand the DOM to the extractor.
func (e *Executor) extractCurrent(ctx context.Context, target jobs.Target) ([]jobs.Candidate, error) {
	if err := utils.WaitFor(ctx, navSettleDelay); err != nil {
		return nil, err
	}

	for _, selector := range listingWaitSelectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.drv.WaitForSelector(ctx, selector, listingWaitTimeout); err == nil {
			e.logger.Debug("listing selector appeared", zap.String("selector", selector))
			if err := utils.WaitFor(ctx, listingAppearDelay); err != nil {
				return nil, err
			}
			break
		}
	}

	for i := 0; i < lazyScrollRounds; i++ {
		if _, err := e.drv.Evaluate(ctx, "window.scrollBy(0, 1000)"); err != nil {
			break
		}
		if err := utils.WaitFor(ctx, scrollStepDelay); err != nil {
			return nil, err
		}
	}

	html, err := e.drv.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("read page content: %w", err)
	}
	if len(html) < thinContentThreshold {
		e.logger.Warn("page content is suspiciously small", zap.Int("bytes", len(html)))
	}

	return e.semantic.Extract(ctx, html, e.drv.CurrentURL(), target.Title)
}

func (e *Executor) pageHeight(ctx context.Context) float64 {
	v, err := e.drv.Evaluate(ctx, "document.body.scrollHeight")
	if err != nil {
		return 0
	}
	switch h := v.(type) {
	case float64:
		return h
	case int:
		return float64(h)
	default:
		return 0
	}
}
