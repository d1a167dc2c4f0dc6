package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jobsift/jobsift/internal/jobs"
)

type fakeGenerator struct {
	response string
	err      error
	prompt   string
}

func (f *fakeGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

func (f *fakeGenerator) Model() string { return "fake-model" }

const semanticPage = `<html>
<head><script>window.track()</script></head>
<body>
<nav><a href="/home">Home page</a></nav>
<h1>Open roles</h1>
<a href="/jobs/1">Senior Backend Engineer</a>
<footer><a href="/legal">Legal notice</a></footer>
</body>
</html>`

func TestSemanticExtract(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{response: "```json\n" + `{
		"jobs": [
			{"title": "Senior Backend Engineer", "url": "/jobs/1", "location": "Berlin", "relevance_score": 90},
			{"job_title": "Platform Engineer", "link": "/jobs/2"},
			{"position": "Data Engineer"},
			{"description": "no title here"}
		],
		"debug_info": "job list visible"
	}` + "\n```"}

	s := NewSemantic(gen, nil)

	candidates, err := s.Extract(context.Background(), semanticPage, "https://acme.example/careers", "Backend Engineer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d: %+v", len(candidates), candidates)
	}

	if candidates[0].URL != "https://acme.example/jobs/1" {
		t.Fatalf("expected resolved URL, got %q", candidates[0].URL)
	}
	if candidates[0].RelevanceScore != 90 {
		t.Fatalf("expected explicit relevance kept, got %v", candidates[0].RelevanceScore)
	}

	// Alias repair.
	if candidates[1].Title != "Platform Engineer" || candidates[1].URL != "https://acme.example/jobs/2" {
		t.Fatalf("alias repair failed: %+v", candidates[1])
	}

	// Missing URL falls back to the current page.
	if candidates[2].Title != "Data Engineer" || candidates[2].URL != "https://acme.example/careers" {
		t.Fatalf("url backfill failed: %+v", candidates[2])
	}
	if candidates[2].RelevanceScore != defaultRelevance {
		t.Fatalf("expected default relevance, got %v", candidates[2].RelevanceScore)
	}

	for _, cand := range candidates {
		if cand.Source != jobs.SourceLLMExtracted {
			t.Fatalf("expected llm_extracted source, got %q", cand.Source)
		}
	}

	// Navigation and footer links are stripped before prompting.
	if strings.Contains(gen.prompt, "Legal notice") || strings.Contains(gen.prompt, "Home page") {
		t.Fatalf("noise links leaked into prompt")
	}
	if !strings.Contains(gen.prompt, "Backend Engineer") {
		t.Fatalf("job title missing from prompt")
	}
}

func TestSemanticExtractAlternateListKey(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{response: `{"job_listings": [{"title": "Engineer", "url": "/jobs/9"}]}`}
	s := NewSemantic(gen, nil)

	candidates, err := s.Extract(context.Background(), semanticPage, "https://acme.example", "Engineer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(candidates) != 1 || candidates[0].URL != "https://acme.example/jobs/9" {
		t.Fatalf("unexpected candidates: %+v", candidates)
	}
}

func TestSemanticExtractSingleObjectResponse(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{response: `{"title": "Engineer", "url": "/jobs/5"}`}
	s := NewSemantic(gen, nil)

	candidates, err := s.Extract(context.Background(), semanticPage, "https://acme.example", "Engineer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(candidates) != 1 || candidates[0].Title != "Engineer" {
		t.Fatalf("unexpected candidates: %+v", candidates)
	}
}

func TestSemanticExtractGeneratorError(t *testing.T) {
	t.Parallel()

	genErr := errors.New("quota exhausted")
	s := NewSemantic(&fakeGenerator{err: genErr}, nil)

	if _, err := s.Extract(context.Background(), semanticPage, "https://acme.example", "Engineer"); !errors.Is(err, genErr) {
		t.Fatalf("expected generator error, got %v", err)
	}
}

func TestSemanticExtractGarbageResponse(t *testing.T) {
	t.Parallel()

	s := NewSemantic(&fakeGenerator{response: "I could not find any jobs, sorry."}, nil)

	if _, err := s.Extract(context.Background(), semanticPage, "https://acme.example", "Engineer"); err == nil {
		t.Fatal("expected parse error for non-JSON response")
	}
}
