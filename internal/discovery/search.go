// Package discovery finds a company's website and its careers page before any
// browser work starts.
package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/utils"
)

const (
	defaultBaseURL = "https://duckduckgo.com"
	searchTimeout  = 30 * time.Second

	// descriptionLimit caps how much snippet text a result carries.
	descriptionLimit = 300
)

// browserHeaders make the HTML endpoint treat us like a regular browser.
var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
}

// resultSelectors locate result containers across DuckDuckGo markup
// revisions.
var resultSelectors = []string{
	"div.result",
	`div[class*="result"]`,
	"article",
	".result__body",
	".web-result",
	`div[data-testid="result"]`,
	".result",
}

// titleSelectors locate the linked title inside one result container.
var titleSelectors = []string{
	`a[class*="result"]`,
	"h3 a",
	"h2 a",
	"a[href]",
	".result__a",
	`[data-testid="result-title-a"]`,
}

// descriptionSelectors locate the snippet inside one result container.
var descriptionSelectors = []string{
	".result__snippet",
	`[class*="snippet"]`,
	".result-snippet",
	`span[class*="snippet"]`,
	`div[class*="snippet"]`,
	"p",
}

// skipDomains are search engines whose self-links never count as results.
var skipDomains = []string{"duckduckgo.com", "google.com", "bing.com", "yahoo.com"}

// lowQualityIndicators mark content-farm hosts that are filtered out.
var lowQualityIndicators = []string{
	"blogspot", "wordpress.com", "tumblr", "reddit.com/r/",
	"quora.com", "answers.com", "ask.com",
}

// Result is one cleaned search hit.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Client scrapes the DuckDuckGo HTML endpoint. There is no API key and no
// SDK; the endpoint serves plain server-rendered markup.
type Client struct {
	http    *http.Client
	baseURL string
	logger  *zap.Logger
}

func NewClient(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:    &http.Client{Timeout: searchTimeout},
		baseURL: defaultBaseURL,
		logger:  logger,
	}
}

// Search runs one query and returns up to maxResults cleaned hits.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("kl", "us-en")
	params.Set("safe", "moderate")
	params.Set("s", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/html/?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	for key, value := range browserHeaders {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("search request returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}

	results := parseResults(doc, maxResults)
	quality := filterQuality(results)

	c.logger.Info("search completed",
		zap.String("query", query),
		zap.Int("results", len(quality)),
	)
	return quality, nil
}

func parseResults(doc *goquery.Document, maxResults int) []Result {
	containers := findResultContainers(doc)
	if containers == nil {
		return nil
	}

	var results []Result
	containers.EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= maxResults*2 || len(results) >= maxResults {
			return false
		}
		if result, ok := parseSingleResult(sel); ok && isValidResult(result) {
			results = append(results, result)
		}
		return true
	})
	return results
}

// findResultContainers tries each container selector and keeps the first one
// matching more than two elements. Fewer matches usually means the selector
// hit page chrome, not results.
func findResultContainers(doc *goquery.Document) *goquery.Selection {
	for _, selector := range resultSelectors {
		sel := doc.Find(selector)
		if sel.Length() > 2 {
			return sel
		}
	}
	return nil
}

func parseSingleResult(container *goquery.Selection) (Result, bool) {
	var title, href string
	for _, selector := range titleSelectors {
		elem := container.Find(selector).First()
		if elem.Length() == 0 {
			continue
		}
		if h, ok := elem.Attr("href"); ok && h != "" {
			title = strings.TrimSpace(elem.Text())
			href = h
			break
		}
	}
	if title == "" || href == "" {
		return Result{}, false
	}

	cleaned := cleanRedirectURL(href)
	if cleaned == "" {
		return Result{}, false
	}

	description := utils.TruncateBytes(extractDescription(container), descriptionLimit)

	return Result{Title: title, URL: cleaned, Description: description}, true
}

func extractDescription(container *goquery.Selection) string {
	for _, selector := range descriptionSelectors {
		text := strings.TrimSpace(container.Find(selector).First().Text())
		if len(text) > 10 {
			return text
		}
	}
	return ""
}

// cleanRedirectURL unwraps DuckDuckGo's /l/?uddg= redirect wrapper and drops
// anything that is not a plain http(s) URL.
func cleanRedirectURL(raw string) string {
	if raw == "" {
		return ""
	}

	if strings.HasPrefix(raw, "/l/?") || strings.HasPrefix(raw, "//duckduckgo.com/l/?") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		if target := parsed.Query().Get("uddg"); target != "" {
			return target
		}
		return ""
	}

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return ""
}

func isValidResult(result Result) bool {
	lowered := strings.ToLower(result.URL)
	for _, domain := range skipDomains {
		if strings.Contains(lowered, domain) {
			return false
		}
	}
	if len(result.Title) < 5 || len(result.Title) > 200 {
		return false
	}
	return true
}

func filterQuality(results []Result) []Result {
	var quality []Result
	for _, result := range results {
		if isQualityResult(result) {
			quality = append(quality, result)
		}
	}
	return quality
}

func isQualityResult(result Result) bool {
	lowered := strings.ToLower(result.URL)
	for _, indicator := range lowQualityIndicators {
		if strings.Contains(lowered, indicator) {
			return false
		}
	}
	return len(result.Title)+len(result.Description) >= 20
}
