// Package extract pulls job listing candidates out of careers-page HTML,
// first with selector and keyword heuristics and then, when those come up
// empty, with semantic analysis.
package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobsift/jobsift/internal/jobs"
	"github.com/jobsift/jobsift/internal/utils"
)

// jobLinkSelectors hit the common markup shapes of job links across boards.
var jobLinkSelectors = []string{
	`a[href*="job"]`,
	`a[href*="career"]`,
	`a[href*="position"]`,
	`a[href*="apply"]`,
	`.job-title a`,
	`.position-title a`,
	`.job-listing a`,
	`.career-item a`,
	`[class*="job"] a`,
	`[class*="career"] a`,
}

// jobKeywords score a link by how job-like its text or href reads.
var jobKeywords = []string{
	"job", "career", "position", "role", "opening", "vacancy",
	"opportunity", "hiring", "employment", "apply", "application",
}

// FindJobLinks mines the HTML for job posting links. The selector pass runs
// first, then a keyword pass catches links the selectors missed. Duplicate
// URLs collapse into the first hit and results are ordered by keyword score,
// with selector matches winning ties.
func FindJobLinks(html, baseURL string) ([]jobs.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}

	var found []jobs.Candidate
	seen := make(map[string]struct{})

	add := func(cand jobs.Candidate) {
		if _, ok := seen[cand.URL]; ok {
			return
		}
		seen[cand.URL] = struct{}{}
		found = append(found, cand)
	}

	for _, selector := range jobLinkSelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			href := sel.AttrOr("href", "")
			if !utils.IsNavigable(href) {
				return
			}

			add(jobs.Candidate{
				Title:  strings.TrimSpace(sel.Text()),
				URL:    utils.ResolveURL(baseURL, href),
				Source: jobs.SourceSelectorMatch,
			})
		})
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := sel.AttrOr("href", "")
		if !utils.IsNavigable(href) {
			return
		}

		text := strings.ToLower(strings.TrimSpace(sel.Text()))
		hrefLower := strings.ToLower(href)

		score := 0
		for _, keyword := range jobKeywords {
			if strings.Contains(text, keyword) || strings.Contains(hrefLower, keyword) {
				score++
			}
		}
		if score == 0 {
			return
		}

		add(jobs.Candidate{
			Title:          strings.TrimSpace(sel.Text()),
			URL:            utils.ResolveURL(baseURL, href),
			RelevanceScore: float64(score),
			Source:         jobs.SourceKeywordMatch,
		})
	})

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].RelevanceScore != found[j].RelevanceScore {
			return found[i].RelevanceScore > found[j].RelevanceScore
		}
		return sourceRank(found[i].Source) > sourceRank(found[j].Source)
	})

	return found, nil
}

func sourceRank(source jobs.Source) int {
	if source == jobs.SourceSelectorMatch {
		return 1
	}
	return 0
}
