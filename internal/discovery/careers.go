package discovery

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/jobsift/jobsift/internal/utils"
)

// careersAcceptScore is the floor below which the literal /careers path is
// used instead of the best-scoring link.
const careersAcceptScore = 20

// careersKeywords identify links that lead to a jobs page.
var careersKeywords = []string{
	"career", "job", "hiring", "opportunity", "employment",
	"join", "work", "talent", "careers", "karriere",
}

// careersOfficialWords nudge the score toward a company's own careers page.
var careersOfficialWords = []string{"official", "corporate", "company"}

// careersPenaltyWords mark links that share vocabulary with careers pages but
// lead elsewhere.
var careersPenaltyWords = []string{"news", "blog", "contact", "about", "investor"}

// CareersLink is the chosen path to a company's careers page.
type CareersLink struct {
	URL        string `json:"careers_url"`
	Score      int    `json:"score"`
	Confidence string `json:"confidence"`
	Reasoning  string `json:"reasoning"`
	Fallback   bool   `json:"fallback,omitempty"`
}

// FindCareersLink scans the homepage HTML for the link most likely to lead to
// the careers page. When nothing scores above the floor, the literal /careers
// path is returned as a low-confidence fallback.
func FindCareersLink(html, baseURL string) (*CareersLink, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse homepage html: %w", err)
	}

	bestScore := 0
	bestURL := ""

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := sel.AttrOr("href", "")
		text := strings.ToLower(strings.TrimSpace(sel.Text()))

		resolved := utils.ResolveURL(baseURL, href)
		if resolved == "" {
			return
		}

		score := scoreCareersLink(text, strings.ToLower(resolved))
		if score > bestScore {
			bestScore = score
			bestURL = resolved
		}
	})

	if bestURL != "" && bestScore > careersAcceptScore {
		return &CareersLink{
			URL:        bestURL,
			Score:      bestScore,
			Confidence: careersConfidence(bestScore),
			Reasoning:  fmt.Sprintf("best match found with score %d", bestScore),
		}, nil
	}

	return &CareersLink{
		URL:        utils.ResolveURL(baseURL, "/careers"),
		Confidence: "low",
		Reasoning:  "no clear careers link found, using fallback /careers",
		Fallback:   true,
	}, nil
}

func scoreCareersLink(text, linkURL string) int {
	score := 0

	for _, keyword := range careersKeywords {
		if strings.Contains(text, keyword) {
			score += 30
		}
		if strings.Contains(linkURL, keyword) {
			score += 25
		}
	}

	for _, keyword := range careersKeywords {
		if fuzzy.PartialRatio(keyword, text) > 80 {
			score += 20
		}
		if fuzzy.PartialRatio(keyword, linkURL) > 80 {
			score += 15
		}
	}

	for _, word := range careersOfficialWords {
		if strings.Contains(text, word) || strings.Contains(linkURL, word) {
			score += 10
			break
		}
	}

	for _, word := range careersPenaltyWords {
		if strings.Contains(text, word) || strings.Contains(linkURL, word) {
			score -= 15
			break
		}
	}

	return score
}

func careersConfidence(score int) string {
	switch {
	case score > 60:
		return "high"
	case score > 35:
		return "medium"
	default:
		return "low"
	}
}
