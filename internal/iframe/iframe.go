// Package iframe inventories embedded frames on a careers page and ranks them
// by how likely they are to host the job board.
package iframe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobsift/jobsift/internal/jobs"
	"github.com/jobsift/jobsift/internal/utils"
)

// atsDomains are hosted applicant tracking systems. An iframe pointing at one
// of these almost certainly carries the listings.
var atsDomains = []string{"workday", "greenhouse", "lever", "icims", "taleo", "smartrecruiters", "jobvite"}

// Info describes one iframe found on the page. DataSrc covers lazy-loaded
// frames that only populate src after scroll.
type Info struct {
	// Index is the frame's position in document order, kept across the
	// relevance sort so srcless frames stay addressable.
	Index          int    `json:"index"`
	Src            string `json:"src,omitempty"`
	ID             string `json:"id,omitempty"`
	Name           string `json:"name,omitempty"`
	Class          string `json:"class,omitempty"`
	Title          string `json:"title,omitempty"`
	Width          string `json:"width,omitempty"`
	Height         string `json:"height,omitempty"`
	DataSrc        string `json:"data_src,omitempty"`
	Sandbox        string `json:"sandbox,omitempty"`
	Loading        string `json:"loading,omitempty"`
	RelevanceScore int    `json:"relevance_score"`
}

// Source returns the frame URL, preferring src over the lazy-load attribute.
func (i Info) Source() string {
	if strings.TrimSpace(i.Src) != "" {
		return i.Src
	}
	return i.DataSrc
}

// Inventory lists every iframe in the HTML, most relevant first.
func Inventory(html string) ([]Info, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}

	var frames []Info
	doc.Find("iframe").Each(func(i int, sel *goquery.Selection) {
		info := Info{
			Index:   i,
			Src:     sel.AttrOr("src", ""),
			ID:      sel.AttrOr("id", ""),
			Name:    sel.AttrOr("name", ""),
			Class:   sel.AttrOr("class", ""),
			Title:   sel.AttrOr("title", ""),
			Width:   sel.AttrOr("width", ""),
			Height:  sel.AttrOr("height", ""),
			DataSrc: sel.AttrOr("data-src", ""),
			Sandbox: sel.AttrOr("sandbox", ""),
			Loading: sel.AttrOr("loading", ""),
		}
		info.RelevanceScore = Relevance(info)
		frames = append(frames, info)
	})

	sort.SliceStable(frames, func(i, j int) bool {
		return frames[i].RelevanceScore > frames[j].RelevanceScore
	})

	return frames, nil
}

// Relevance scores how likely the frame carries job listings. Signals are
// additive so a Workday frame with a job-bearing src scores both bonuses.
func Relevance(info Info) int {
	score := 0

	src := strings.ToLower(info.Src)
	if containsAny(src, "job", "career", "position", "apply", "workday", "greenhouse", "lever") {
		score += 50
	}

	idName := strings.ToLower(info.ID + " " + info.Name)
	if containsAny(idName, "job", "career", "position", "listing") {
		score += 30
	}

	if containsAny(strings.ToLower(info.Class), "job", "career", "position") {
		score += 20
	}

	if containsAny(strings.ToLower(info.Title), "job", "career", "position") {
		score += 25
	}

	if containsAny(src, atsDomains...) {
		score += 60
	}

	return score
}

// FrameLinks pulls candidate job links out of raw frame content. Links are
// kept when their text carries an action or job keyword, with hrefs resolved
// against the frame URL.
func FrameLinks(frameHTML, frameURL string) ([]jobs.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(frameHTML))
	if err != nil {
		return nil, fmt.Errorf("parse frame html: %w", err)
	}

	var candidates []jobs.Candidate
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}

		if !containsAny(strings.ToLower(text), "apply", "view", "position", "job") {
			return
		}

		href := sel.AttrOr("href", "")
		if !utils.IsNavigable(href) {
			return
		}

		candidates = append(candidates, jobs.Candidate{
			Title:  text,
			URL:    utils.ResolveURL(frameURL, href),
			Source: jobs.SourceIframe,
		})
	})

	return candidates, nil
}

func containsAny(s string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
