package discovery

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"go.uber.org/zap"
)

// Thresholds for accepting a company-website hit.
const (
	companyAcceptScore   = 25
	companySettledScore  = 70
	companySearchResults = 5
)

// officialIndicators in a title or snippet suggest the company's own site.
var officialIndicators = []string{"official", "corporate", "company", "homepage", "home", "main"}

// penaltySites host pages about a company rather than by it.
var penaltySites = []string{
	"linkedin", "facebook", "twitter", "instagram", "youtube",
	"wikipedia", "crunchbase", "glassdoor", "indeed", "bloomberg",
	"news", "blog", "forum",
}

// jobSiteIndicators spot job boards masquerading as company domains.
var jobSiteIndicators = []string{"jobs", "careers", "hiring", "employment"}

// CompanySite is an accepted company-website discovery.
type CompanySite struct {
	CompanyName string  `json:"company_name"`
	URL         string  `json:"url"`
	RootURL     string  `json:"root_url"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Score       float64 `json:"confidence_score"`
	Confidence  string  `json:"confidence"`
}

// FindCompanyWebsite searches for the company by name and scores each hit on
// how much it looks like the company's own site. Hits at or below the accept
// floor are treated as not found.
func (c *Client) FindCompanyWebsite(ctx context.Context, companyName string) (*CompanySite, error) {
	c.logger.Info("searching for company website", zap.String("company", companyName))

	queries := []string{
		companyName,
		companyName + " official website",
	}

	var best *Result
	bestScore := 0.0

	for _, query := range queries {
		results, err := c.Search(ctx, query, companySearchResults)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			c.logger.Warn("company search query failed", zap.String("query", query), zap.Error(err))
			continue
		}

		for i := range results {
			score := companyConfidence(results[i], companyName)
			if score > bestScore {
				bestScore = score
				best = &results[i]
			}
		}

		if bestScore > companySettledScore {
			break
		}
	}

	if best == nil || bestScore <= companyAcceptScore {
		return nil, fmt.Errorf("no suitable website found for %s (best score %.0f)", companyName, bestScore)
	}

	site := &CompanySite{
		CompanyName: companyName,
		URL:         best.URL,
		RootURL:     rootURL(best.URL),
		Title:       best.Title,
		Description: best.Description,
		Score:       bestScore,
		Confidence:  companyConfidenceLevel(bestScore),
	}

	c.logger.Info("company website found",
		zap.String("url", site.URL),
		zap.String("confidence", site.Confidence),
	)
	return site, nil
}

// companyConfidence scores one search hit against the company name. Signals
// are additive; penalties can only pull the score back to zero.
func companyConfidence(result Result, companyName string) float64 {
	words := companyWords(companyName)
	if len(words) == 0 {
		return 0
	}

	resultURL := strings.ToLower(result.URL)
	title := strings.ToLower(result.Title)
	description := strings.ToLower(result.Description)
	domain := domainOf(resultURL)

	score := 0.0

	for _, word := range words {
		if strings.Contains(domain, word) {
			score += 35
		}
	}

	companyClean := strings.Join(words, "")
	domainClean := cleanDomain(domain)
	switch ratio := fuzzy.Ratio(companyClean, domainClean); {
	case ratio > 85:
		score += 40
	case ratio > 70:
		score += 25
	}

	titleScore := 0.0
	titleWords := strings.Fields(title)
	for _, word := range words {
		if strings.Contains(title, word) {
			titleScore += 20
			continue
		}
		for _, titleWord := range titleWords {
			if fuzzy.Ratio(word, titleWord) > 80 {
				titleScore += 15
				break
			}
		}
	}
	score += min(titleScore, 40)

	descScore := 0.0
	for _, word := range words {
		if strings.Contains(description, word) {
			descScore += 8
		}
	}
	score += min(descScore, 20)

	for _, indicator := range officialIndicators {
		if strings.Contains(title, indicator) || strings.Contains(description, indicator) {
			score += 15
			break
		}
	}

	for _, tld := range []string{".com", ".org", ".net"} {
		if strings.Contains(domain, tld) {
			score += 10
			break
		}
	}

	penalized := false
	for _, penalty := range penaltySites {
		if strings.Contains(resultURL, penalty) || strings.Contains(title, penalty) {
			score -= 30
			penalized = true
			break
		}
	}

	if !penalized {
		for _, indicator := range jobSiteIndicators {
			if strings.Contains(resultURL, indicator) && !strings.HasPrefix(domain, companyClean) {
				score -= 15
				break
			}
		}
	}

	return max(score, 0)
}

func companyConfidenceLevel(score float64) string {
	switch {
	case score >= 80:
		return "high"
	case score >= 50:
		return "medium"
	case score >= 25:
		return "low"
	default:
		return "very_low"
	}
}

// companyWords splits a company name into comparable lowercase words, keeping
// only those longer than two characters.
func companyWords(name string) []string {
	replacer := strings.NewReplacer(",", " ", ".", " ")
	fields := strings.Fields(replacer.Replace(strings.ToLower(name)))

	var words []string
	for _, field := range fields {
		if len(field) > 2 {
			words = append(words, field)
		}
	}
	return words
}

func domainOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}

func cleanDomain(domain string) string {
	replacer := strings.NewReplacer(".com", "", ".org", "", ".net", "", "-", "", "_", "")
	return replacer.Replace(domain)
}

func rootURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return rawURL
	}
	return parsed.Scheme + "://" + parsed.Host
}
