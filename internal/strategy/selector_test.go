package strategy

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/jobs"
)

type fakeGenerator struct {
	response string
	err      error
	prompt   string
	calls    int
}

func (f *fakeGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeGenerator) Model() string { return "fake-model" }

const careersHTML = `<html><body>
<h1>Careers at Acme</h1>
<iframe src="https://acme.wd1.myworkdayjobs.com/External" id="jobs-frame"></iframe>
<form action="/search" method="get">
  <input type="search" name="q" placeholder="Search jobs">
</form>
<a href="/jobs/backend-engineer">Backend Engineer openings</a>
<a href="/about">About us</a>
</body></html>`

func TestSelectorAnalyzeValidResponse(t *testing.T) {
	gen := &fakeGenerator{response: "```json\n" + `{
  "strategy": "iframe_navigation",
  "ats_system": "workday",
  "confidence": 85,
  "reasoning": "the workday iframe carries the listings",
  "execution_plan": {
    "iframe_index": 0,
    "iframe_src": "https://acme.wd1.myworkdayjobs.com/External",
    "needs_scrolling": false
  },
  "fallback_strategy": "extract_current_page"
}` + "\n```"}

	selector := NewSelector(gen, zap.NewNop())
	target := jobs.Target{Title: "Backend Engineer", Location: "Berlin"}

	analysis, err := selector.Analyze(context.Background(), target, "https://acme.com/careers", careersHTML)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if analysis.Strategy != KindIframeNavigation {
		t.Errorf("strategy = %q, want iframe_navigation", analysis.Strategy)
	}
	if analysis.ATSSystem != "workday" {
		t.Errorf("ats_system = %q, want workday", analysis.ATSSystem)
	}
	if analysis.Confidence != 85 {
		t.Errorf("confidence = %d, want 85", analysis.Confidence)
	}
	if analysis.Plan.IframeIndex == nil || *analysis.Plan.IframeIndex != 0 {
		t.Errorf("iframe_index = %v, want 0", analysis.Plan.IframeIndex)
	}
	if analysis.Plan.IframeSrc != "https://acme.wd1.myworkdayjobs.com/External" {
		t.Errorf("iframe_src = %q", analysis.Plan.IframeSrc)
	}
	if analysis.Fallback != "extract_current_page" {
		t.Errorf("fallback = %q", analysis.Fallback)
	}
}

func TestSelectorPromptCarriesDigest(t *testing.T) {
	gen := &fakeGenerator{response: `{"strategy": "extract_current_page"}`}
	selector := NewSelector(gen, zap.NewNop())

	target := jobs.Target{Title: "Backend Engineer", Location: "Berlin"}
	if _, err := selector.Analyze(context.Background(), target, "https://acme.com/careers", careersHTML); err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	for _, want := range []string{
		`"Backend Engineer" in Berlin`,
		"https://acme.com/careers",
		"https://acme.wd1.myworkdayjobs.com/External",
		"Search jobs",
		"Backend Engineer openings",
		"Careers at Acme",
	} {
		if !strings.Contains(gen.prompt, want) {
			t.Errorf("prompt is missing %q", want)
		}
	}
}

func TestSelectorDegradesUnknownStrategy(t *testing.T) {
	gen := &fakeGenerator{response: `{"strategy": "summon_robot", "confidence": 90}`}
	selector := NewSelector(gen, zap.NewNop())

	analysis, err := selector.Analyze(context.Background(), jobs.Target{Title: "Engineer"}, "https://acme.com", careersHTML)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if analysis.Strategy != KindExtractCurrentPage {
		t.Errorf("strategy = %q, want extract_current_page", analysis.Strategy)
	}
}

func TestSelectorDegradesMissingParams(t *testing.T) {
	cases := []struct {
		name     string
		response string
	}{
		{"iframe without src or index", `{"strategy": "iframe_navigation", "execution_plan": {}}`},
		{"search without selector", `{"strategy": "use_search_form", "execution_plan": {}}`},
		{"navigation without target", `{"strategy": "navigate_to_link", "execution_plan": {}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &fakeGenerator{response: tc.response}
			selector := NewSelector(gen, zap.NewNop())

			analysis, err := selector.Analyze(context.Background(), jobs.Target{Title: "Engineer"}, "https://acme.com", careersHTML)
			if err != nil {
				t.Fatalf("Analyze returned error: %v", err)
			}
			if analysis.Strategy != KindExtractCurrentPage {
				t.Errorf("strategy = %q, want extract_current_page", analysis.Strategy)
			}
		})
	}
}

func TestSelectorDefaultsOmittedFallback(t *testing.T) {
	gen := &fakeGenerator{response: `{"strategy": "navigate_to_link", "execution_plan": {"target_link_url": "/jobs"}}`}
	selector := NewSelector(gen, zap.NewNop())

	analysis, err := selector.Analyze(context.Background(), jobs.Target{Title: "Engineer"}, "https://acme.com", careersHTML)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if analysis.Strategy != KindNavigateToLink {
		t.Fatalf("strategy = %q, want navigate_to_link", analysis.Strategy)
	}
	if analysis.Fallback != KindExtractCurrentPage.String() {
		t.Errorf("fallback = %q, want extract_current_page", analysis.Fallback)
	}
}

func TestSelectorDegradesMalformedResponse(t *testing.T) {
	gen := &fakeGenerator{response: "the page looks dynamic, I would scroll"}
	selector := NewSelector(gen, zap.NewNop())

	analysis, err := selector.Analyze(context.Background(), jobs.Target{Title: "Engineer"}, "https://acme.com", careersHTML)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if analysis.Strategy != KindExtractCurrentPage {
		t.Errorf("strategy = %q, want extract_current_page", analysis.Strategy)
	}
}

func TestSelectorClampsConfidence(t *testing.T) {
	gen := &fakeGenerator{response: `{"strategy": "scroll_and_extract", "confidence": 150}`}
	selector := NewSelector(gen, zap.NewNop())

	analysis, err := selector.Analyze(context.Background(), jobs.Target{Title: "Engineer"}, "https://acme.com", careersHTML)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if analysis.Confidence != 100 {
		t.Errorf("confidence = %d, want 100", analysis.Confidence)
	}
}

func TestSelectorCachesDecisionPerOrigin(t *testing.T) {
	gen := &fakeGenerator{response: `{"strategy": "use_search_form", "execution_plan": {"search_input_selector": "#q"}}`}
	selector := NewSelector(gen, zap.NewNop())

	if _, err := selector.Analyze(context.Background(), jobs.Target{Title: "Engineer"}, "https://acme.com/careers/all", careersHTML); err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	hint, ok := selector.Hint("https://acme.com/jobs/123")
	if !ok {
		t.Fatal("expected a hint for the same origin")
	}
	if hint.Analysis.Strategy != KindUseSearchForm {
		t.Errorf("hinted strategy = %q, want use_search_form", hint.Analysis.Strategy)
	}
}

func TestSelectorPropagatesGeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: context.DeadlineExceeded}
	selector := NewSelector(gen, zap.NewNop())

	if _, err := selector.Analyze(context.Background(), jobs.Target{Title: "Engineer"}, "https://acme.com", careersHTML); err == nil {
		t.Fatal("expected an error when the generator fails")
	}
}
