// Package searchform detects on-page job search inputs and drives them.
// Search is opportunistic: a page without a usable form is not an error.
package searchform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/browser"
	"github.com/jobsift/jobsift/internal/utils"
)

var (
	searchKeywords   = []string{"search", "keyword", "query", "job", "title", "position"}
	locationKeywords = []string{"location", "city", "place", "where"}
)

// fallbackSelectors is tried when no page-derived selector can be filled.
// Ordered from precise to generic, with known ATS patterns at the end.
var fallbackSelectors = []string{
	`input[type="search"]`,
	`input[type="text"][aria-label*="search" i]`,
	`input[type="text"][role="searchbox" i]`,
	`input[type="text"][placeholder*="search" i]`,
	`input[type="text"][placeholder*="keyword" i]`,
	`input[type="text"][placeholder*="job" i]`,
	`input[type="text"][placeholder*="position" i]`,
	`input[type="text"][placeholder*="title" i]`,

	`input[name*="search" i]`,
	`input[name*="keyword" i]`,
	`input[name*="q" i]`,
	`input[name*="query" i]`,
	`input[name*="job" i]`,
	`input[name*="position" i]`,
	`input[name*="title" i]`,
	`input[name*="role" i]`,

	`input[id*="search" i]`,
	`input[id*="keyword" i]`,
	`input[id*="q" i]`,
	`input[id*="query" i]`,
	`input[id*="job" i]`,
	`input[id*="title" i]`,
	`input[id^="typehead" i]`,
	`input[id^="global-search" i]`,
	`input[id^="careers-search" i]`,

	`input[class*="search" i]`,
	`input[class*="keyword" i]`,
	`input[class*="job" i]`,
	`input[class*="query" i]`,
	`input[class*="title" i]`,
	`input[class*="position" i]`,
	`input[class*="global-search" i]`,
	`input[class*="search-field" i]`,
	`input[class*="search-box" i]`,
	`input[class*="input-search" i]`,
	`input[class*="search-input" i]`,
	`input[class*="job-search" i]`,
	`input[class*="careers-search" i]`,

	`input[aria-label*="search" i]`,
	`input[title*="search" i]`,
	`input[role="combobox"][aria-autocomplete="list"]`,
	`input[aria-labelledby*="search" i]`,
	`input[aria-describedby*="search" i]`,
	`input[placeholder][class*="input" i]`,
	`input:not([type="hidden"]):not([disabled])`,

	`input[id*="jobsearch" i]`,
	`input[id*="keysearch" i]`,
	`input[id*="keywordsearch" i]`,
	`input[name*="keywordsearch" i]`,
	`input[id*="gh-search" i]`,
	`input[name*="lever-search" i]`,
	`input[class*="ais-SearchBox-input" i]`,
}

// submitSelectors covers the usual ways a search form is submitted.
var submitSelectors = []string{
	`button[type="submit"]`,
	`input[type="submit"]`,
	`button:has-text("Search")`,
	`button:has-text("Find")`,
	`button:has-text("Go")`,
	`button[aria-label*="search" i]`,
	`.search-button`,
	`button[class*="search"]`,
}

// Input is one detected search or location input with the selectors that can
// address it, most specific first.
type Input struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name,omitempty"`
	Type        string   `json:"type"`
	Placeholder string   `json:"placeholder,omitempty"`
	Selectors   []string `json:"selectors"`
}

// Detection is the result of scanning a page for search inputs.
type Detection struct {
	SearchInputs   []Input `json:"inputs"`
	LocationInputs []Input `json:"location_inputs"`
}

// HasSearch reports whether any search input was found.
func (d *Detection) HasSearch() bool {
	return d != nil && len(d.SearchInputs) > 0
}

// Detect scans the HTML for text and search inputs whose attributes suggest a
// job search box. Inputs that look like location fields are tracked
// separately so the job title never lands in a city box.
func Detect(html string) (*Detection, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}

	detection := &Detection{}

	doc.Find("input").Each(func(_ int, sel *goquery.Selection) {
		inputType := sel.AttrOr("type", "text")
		if inputType != "text" && inputType != "search" {
			return
		}

		id := sel.AttrOr("id", "")
		name := sel.AttrOr("name", "")
		placeholder := sel.AttrOr("placeholder", "")
		class := sel.AttrOr("class", "")

		haystack := strings.ToLower(id + " " + name + " " + placeholder + " " + class)

		isSearch := containsAny(haystack, searchKeywords)
		isLocation := containsAny(haystack, locationKeywords)
		if !isSearch && !isLocation {
			return
		}

		input := Input{
			ID:          id,
			Name:        name,
			Type:        inputType,
			Placeholder: placeholder,
		}

		if id != "" {
			input.Selectors = append(input.Selectors, "#"+id)
		}
		if name != "" {
			input.Selectors = append(input.Selectors, fmt.Sprintf(`input[name=%q]`, name))
		}
		if first := firstClass(class); first != "" {
			input.Selectors = append(input.Selectors, "input."+first)
		}

		switch {
		case isLocation:
			detection.LocationInputs = append(detection.LocationInputs, input)
		case isSearch:
			detection.SearchInputs = append(detection.SearchInputs, input)
		}
	})

	return detection, nil
}

// Outcome reports what the search attempt did.
type Outcome struct {
	Used           bool
	FilledSelector string
	Reason         string
}

const (
	probeTimeout = 2 * time.Second
	// resultsDelay lets the results page render after submit.
	resultsDelay = 5 * time.Second
)

// Run fills the best available search input with the job title and submits
// it. The page-derived selectors are tried first, then the fallback catalog.
// Failure to search leaves the page usable, so only context cancellation is
// returned as an error.
func Run(ctx context.Context, drv browser.Driver, detection *Detection, jobTitle string, logger *zap.Logger) (*Outcome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	filled := ""
	for _, input := range detection.SearchInputs {
		for _, selector := range input.Selectors {
			state, err := drv.QueryState(ctx, selector, probeTimeout)
			if err != nil {
				return nil, err
			}
			if !state.Found || !state.Visible || !state.Enabled {
				continue
			}
			if err := drv.Fill(ctx, selector, jobTitle); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				logger.Debug("fill failed", zap.String("selector", selector), zap.Error(err))
				continue
			}
			filled = selector
			break
		}
		if filled != "" {
			break
		}
	}

	if filled == "" {
		for _, selector := range fallbackSelectors {
			state, err := drv.QueryState(ctx, selector, probeTimeout)
			if err != nil {
				return nil, err
			}
			if !state.Found || !state.Visible {
				continue
			}
			if err := drv.Fill(ctx, selector, jobTitle); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				continue
			}
			logger.Debug("filled search via fallback selector", zap.String("selector", selector))
			filled = selector
			break
		}
	}

	if filled == "" {
		return &Outcome{Used: false, Reason: "could not fill search input"}, nil
	}

	if err := utils.WaitFor(ctx, time.Second); err != nil {
		return nil, err
	}

	submitted := false
	for _, selector := range submitSelectors {
		if err := drv.Click(ctx, selector); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		logger.Debug("clicked submit", zap.String("selector", selector))
		submitted = true
		break
	}

	if !submitted {
		if err := drv.Press(ctx, filled, "Enter"); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return &Outcome{Used: false, FilledSelector: filled, Reason: "could not submit search"}, nil
		}
		logger.Debug("submitted search with enter", zap.String("selector", filled))
	}

	if err := utils.WaitFor(ctx, resultsDelay); err != nil {
		return nil, err
	}

	return &Outcome{Used: true, FilledSelector: filled}, nil
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}

func firstClass(class string) string {
	fields := strings.Fields(class)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
