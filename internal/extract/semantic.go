package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	_ "embed"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/ai"
	"github.com/jobsift/jobsift/internal/jobs"
	"github.com/jobsift/jobsift/internal/utils"
)

//go:embed extract_prompt.md
var extractPromptTemplate string

const (
	// pageTextLimit caps the cleaned page text handed to the model.
	pageTextLimit = 20000
	// promptLinkLimit caps how many links the prompt lists.
	promptLinkLimit = 100

	defaultRelevance = 50
)

// jobsKeys are the response keys checked for the listing array, in order.
var jobsKeys = []string{"jobs", "job_listings", "listings", "results", "data"}

var (
	titleAliases = []string{"title", "job_title", "position", "role", "name"}
	urlAliases   = []string{"url", "link", "href", "job_url", "apply_url"}
)

// Semantic extracts listings from pages whose markup defeats the selector and
// keyword heuristics, by letting a language model read the page content.
type Semantic struct {
	generator ai.Generator
	logger    *zap.Logger
}

// NewSemantic builds a semantic extractor on the given generator.
func NewSemantic(generator ai.Generator, logger *zap.Logger) *Semantic {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Semantic{generator: generator, logger: logger}
}

type promptLink struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Extract strips the page down to text and links, asks the model for the
// listings, and repairs the response into candidates. Entries without any
// recognizable title are dropped; entries without a URL fall back to the
// current page URL.
func (s *Semantic) Extract(ctx context.Context, html, currentURL, jobTitle string) ([]jobs.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}

	doc.Find("script, style, nav, footer, header").Remove()

	text := utils.TruncateBytes(strings.TrimSpace(doc.Text()), pageTextLimit)

	var links []promptLink
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		linkText := strings.TrimSpace(sel.Text())
		if len(linkText) <= 2 {
			return
		}
		links = append(links, promptLink{Text: linkText, Href: sel.AttrOr("href", "")})
	})

	s.logger.Debug("semantic extraction input",
		zap.Int("text_length", len(text)),
		zap.Int("link_count", len(links)),
	)
	if len(links) < 5 {
		s.logger.Warn("very few links found, page might not be fully loaded", zap.Int("link_count", len(links)))
	}

	promptLinks := links
	if len(promptLinks) > promptLinkLimit {
		promptLinks = promptLinks[:promptLinkLimit]
	}

	linksJSON, err := json.MarshalIndent(promptLinks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal prompt links: %w", err)
	}

	prompt := buildExtractPrompt(jobTitle, text, string(linksJSON), len(links))

	raw, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("semantic extraction: %w", err)
	}

	s.logger.Debug("semantic extraction response",
		zap.String("response_preview", utils.TruncateForLog(raw, 500)),
	)

	return repairListings(raw, currentURL, s.logger)
}

func buildExtractPrompt(jobTitle, pageText, linksJSON string, totalLinks int) string {
	prompt := strings.ReplaceAll(extractPromptTemplate, "{{JOB_TITLE}}", jobTitle)
	prompt = strings.ReplaceAll(prompt, "{{PAGE_TEXT}}", pageText)
	prompt = strings.ReplaceAll(prompt, "{{LINKS_JSON}}", linksJSON)
	prompt = strings.ReplaceAll(prompt, "{{TOTAL_LINKS}}", strconv.Itoa(totalLinks))
	return prompt
}

// repairListings turns the raw model response into candidates, tolerating the
// usual schema drift: alternate array keys, alias field names, missing URLs.
func repairListings(raw, currentURL string, logger *zap.Logger) ([]jobs.Candidate, error) {
	obj, err := ai.ParseObject(raw)
	if err != nil {
		return nil, err
	}

	if debug, ok := obj["debug_info"]; ok {
		logger.Debug("extraction debug info", zap.String("debug_info", ai.CoerceString(debug)))
	}

	var entries []any
	for _, key := range jobsKeys {
		if value, ok := obj[key]; ok {
			if list, ok := value.([]any); ok {
				entries = list
				break
			}
		}
	}

	// A bare single job object is accepted as a list of one.
	if entries == nil {
		if _, ok := obj["title"]; ok {
			entries = []any{map[string]any(obj)}
		}
	}

	var candidates []jobs.Candidate
	for idx, entry := range entries {
		item, ok := entry.(map[string]any)
		if !ok {
			logger.Warn("skipping non-object listing entry", zap.Int("index", idx))
			continue
		}

		title, ok := ai.FirstAlias(item, titleAliases...)
		if !ok {
			logger.Warn("skipping listing without title", zap.Int("index", idx))
			continue
		}

		url, ok := ai.FirstAlias(item, urlAliases...)
		if !ok || url == "#" {
			url = currentURL
			logger.Debug("using current page url for listing", zap.Int("index", idx), zap.String("title", title))
		}
		url = utils.ResolveURL(currentURL, url)

		relevance := ai.CoerceFloat(item["relevance_score"])
		if math.IsNaN(relevance) {
			relevance = defaultRelevance
		}

		candidates = append(candidates, jobs.Candidate{
			Title:          title,
			URL:            url,
			Description:    ai.CoerceString(item["description"]),
			Location:       ai.CoerceString(item["location"]),
			RelevanceScore: relevance,
			Source:         jobs.SourceLLMExtracted,
		})
	}

	logger.Debug("semantic extraction complete", zap.Int("candidates", len(candidates)))
	return candidates, nil
}
