package strategy

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/ai"
	"github.com/jobsift/jobsift/internal/jobs"
	"github.com/jobsift/jobsift/internal/pagestruct"
	"github.com/jobsift/jobsift/internal/utils"
)

//go:embed strategy_prompt.md
var strategyPromptTemplate string

// Caps on how much of the page digest the analysis prompt carries.
const (
	promptIframeLimit  = 5
	promptFormLimit    = 3
	promptLinkLimit    = 20
	promptHeadingLimit = 10
)

// Selector asks the model which extraction strategy fits the current page and
// validates the answer down to something the executor can act on.
type Selector struct {
	generator ai.Generator
	cache     *HintCache
	logger    *zap.Logger
}

func NewSelector(generator ai.Generator, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{
		generator: generator,
		cache:     NewHintCache(defaultHintTTL, defaultHintCapacity),
		logger:    logger,
	}
}

// Hint returns the cached decision for the origin of the given URL, if one is
// still fresh.
func (s *Selector) Hint(pageURL string) (Hint, bool) {
	return s.cache.Get(utils.Origin(pageURL))
}

// Analyze digests the page, asks the model for a strategy, and returns the
// validated analysis. A transport failure is the caller's problem; a
// malformed or unknown answer degrades to direct extraction so a sloppy model
// response never aborts the run.
func (s *Selector) Analyze(ctx context.Context, target jobs.Target, currentURL, html string) (*Analysis, error) {
	digest, err := pagestruct.Analyze(html)
	if err != nil {
		return nil, fmt.Errorf("analyze page structure: %w", err)
	}

	s.logger.Debug("page structure digested",
		zap.Int("iframes", digest.IframeCount),
		zap.Int("forms", digest.FormCount),
		zap.Int("links", digest.LinkCount),
		zap.Int("search_inputs", digest.SearchInputCount),
	)

	prompt := buildAnalysisPrompt(target, currentURL, digest)

	raw, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("strategy analysis: %w", err)
	}

	analysis := s.repairAnalysis(raw)

	s.logger.Info("strategy selected",
		zap.String("strategy", analysis.Strategy.String()),
		zap.String("ats_system", analysis.ATSSystem),
		zap.Int("confidence", analysis.Confidence),
		zap.String("reasoning", utils.TruncateForLog(analysis.Reasoning, 200)),
	)

	s.cache.Put(utils.Origin(currentURL), *analysis)

	return analysis, nil
}

// repairAnalysis turns a raw model response into a valid Analysis. Anything
// it cannot make sense of collapses to extract_current_page.
func (s *Selector) repairAnalysis(raw string) *Analysis {
	obj, err := ai.ParseObject(raw)
	if err != nil {
		s.logger.Warn("strategy response is not valid JSON, using direct extraction",
			zap.Error(err),
			zap.String("response", utils.TruncateForLog(raw, 300)),
		)
		return &Analysis{Strategy: KindExtractCurrentPage}
	}

	var decoded struct {
		Strategy   string  `json:"strategy"`
		ATSSystem  string  `json:"ats_system"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
		Plan       Params  `json:"execution_plan"`
		Fallback   string  `json:"fallback_strategy"`
	}
	if err := ai.Decode(obj, &decoded); err != nil {
		s.logger.Warn("strategy response has unexpected shape, using direct extraction", zap.Error(err))
		return &Analysis{Strategy: KindExtractCurrentPage}
	}

	kind, known := ParseKind(decoded.Strategy)
	if !known {
		s.logger.Warn("unknown strategy tag, using direct extraction",
			zap.String("strategy", decoded.Strategy))
	}

	analysis := &Analysis{
		Strategy:   kind,
		ATSSystem:  decoded.ATSSystem,
		Confidence: clampConfidence(decoded.Confidence),
		Reasoning:  decoded.Reasoning,
		Plan:       decoded.Plan,
		Fallback:   decoded.Fallback,
	}

	// A strategy without its required parameters cannot be executed.
	switch analysis.Strategy {
	case KindIframeNavigation:
		if analysis.Plan.IframeSrc == "" && analysis.Plan.IframeIndex == nil {
			s.degrade(analysis, "iframe strategy without src or index")
		}
	case KindUseSearchForm:
		if analysis.Plan.SearchInputSelector == "" {
			s.degrade(analysis, "search strategy without input selector")
		}
	case KindNavigateToLink:
		if analysis.Plan.TargetLinkURL == "" {
			s.degrade(analysis, "navigation strategy without target url")
		}
	}

	// An omitted fallback_strategy means direct extraction, so the executor
	// still gets its one hop when the primary strategy fails.
	if analysis.Strategy != KindExtractCurrentPage && analysis.Fallback == "" {
		analysis.Fallback = KindExtractCurrentPage.String()
	}

	return analysis
}

func (s *Selector) degrade(analysis *Analysis, reason string) {
	s.logger.Warn("strategy missing required parameters, using direct extraction",
		zap.String("strategy", analysis.Strategy.String()),
		zap.String("reason", reason),
	)
	analysis.Strategy = KindExtractCurrentPage
}

func clampConfidence(v float64) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}

func buildAnalysisPrompt(target jobs.Target, currentURL string, digest *pagestruct.Digest) string {
	locationClause := ""
	if target.Location != "" {
		locationClause = " in " + target.Location
	}

	prompt := strategyPromptTemplate
	prompt = strings.ReplaceAll(prompt, "{{JOB_TITLE}}", target.Title)
	prompt = strings.ReplaceAll(prompt, "{{LOCATION_CLAUSE}}", locationClause)
	prompt = strings.ReplaceAll(prompt, "{{CURRENT_URL}}", currentURL)
	prompt = strings.ReplaceAll(prompt, "{{IFRAME_COUNT}}", strconv.Itoa(digest.IframeCount))
	prompt = strings.ReplaceAll(prompt, "{{FORM_COUNT}}", strconv.Itoa(digest.FormCount))
	prompt = strings.ReplaceAll(prompt, "{{LINK_COUNT}}", strconv.Itoa(digest.LinkCount))
	prompt = strings.ReplaceAll(prompt, "{{SEARCH_INPUT_COUNT}}", strconv.Itoa(digest.SearchInputCount))
	prompt = strings.ReplaceAll(prompt, "{{DYNAMIC_INDICATORS}}", strings.Join(digest.DynamicIndicators, ", "))
	prompt = strings.ReplaceAll(prompt, "{{IFRAMES_JSON}}", marshalPromptJSON(capIframes(digest.Iframes)))
	prompt = strings.ReplaceAll(prompt, "{{FORMS_JSON}}", marshalPromptJSON(capForms(digest.Forms)))
	prompt = strings.ReplaceAll(prompt, "{{KEY_LINKS_JSON}}", marshalPromptJSON(capLinks(digest.KeyLinks)))
	prompt = strings.ReplaceAll(prompt, "{{TEXT_PREVIEW}}", digest.TextPreview)
	prompt = strings.ReplaceAll(prompt, "{{HEADINGS_JSON}}", marshalPromptJSON(capHeadings(digest.Headings)))
	return prompt
}

func marshalPromptJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

func capIframes(in []pagestruct.Iframe) []pagestruct.Iframe {
	if len(in) > promptIframeLimit {
		return in[:promptIframeLimit]
	}
	return in
}

func capForms(in []pagestruct.Form) []pagestruct.Form {
	if len(in) > promptFormLimit {
		return in[:promptFormLimit]
	}
	return in
}

func capLinks(in []pagestruct.Link) []pagestruct.Link {
	if len(in) > promptLinkLimit {
		return in[:promptLinkLimit]
	}
	return in
}

func capHeadings(in []pagestruct.Heading) []pagestruct.Heading {
	if len(in) > promptHeadingLimit {
		return in[:promptHeadingLimit]
	}
	return in
}
