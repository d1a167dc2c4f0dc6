// Package pagestruct digests raw careers-page HTML into the compact structure
// summary that strategy selection reasons over.
package pagestruct

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobsift/jobsift/internal/utils"
)

const (
	// textPreviewLimit caps how much page text the digest carries.
	textPreviewLimit = 1500
	// plainLinkLimit is how many low-relevance links are still kept before
	// only keyword-bearing links make the cut.
	plainLinkLimit = 50
	// keyLinkLimit caps the digest's link list after the relevance sort.
	keyLinkLimit = 100
)

// jobKeywords mark a link as likely job-related.
var jobKeywords = []string{"job", "career", "position", "opening", "vacancy", "apply", "opportunity"}

// dynamicClasses are CSS class fragments that indicate dynamically loaded
// content.
var dynamicClasses = []string{"infinite-scroll", "lazy-load", "load-more", "pagination"}

// Iframe summarizes one iframe element.
type Iframe struct {
	Src   string `json:"src,omitempty"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Title string `json:"title,omitempty"`
	Class string `json:"class,omitempty"`
}

// FormInput summarizes one text or search input inside a form.
type FormInput struct {
	Type        string `json:"type"`
	Name        string `json:"name,omitempty"`
	ID          string `json:"id,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

// Form summarizes a form that carries at least one text or search input.
type Form struct {
	Action string      `json:"action,omitempty"`
	Method string      `json:"method,omitempty"`
	Inputs []FormInput `json:"inputs"`
}

// Link is an anchor kept in the digest, with its job-keyword relevance.
type Link struct {
	Text      string `json:"text"`
	Href      string `json:"href"`
	Relevance int    `json:"relevance"`
}

// Heading is a visible h1/h2/h3 heading.
type Heading struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Digest is the page structure summary. Counts cover the whole page while the
// slices are trimmed to what strategy analysis needs.
type Digest struct {
	IframeCount       int       `json:"iframe_count"`
	Iframes           []Iframe  `json:"iframes"`
	FormCount         int       `json:"form_count"`
	Forms             []Form    `json:"forms"`
	LinkCount         int       `json:"link_count"`
	KeyLinks          []Link    `json:"key_links"`
	SearchInputCount  int       `json:"search_input_count"`
	DynamicIndicators []string  `json:"dynamic_indicators"`
	TextPreview       string    `json:"text_preview"`
	Headings          []Heading `json:"headings"`
}

// Analyze parses the HTML and builds its structure digest. Script, style and
// other non-content tags are dropped before anything is counted so the text
// preview reflects what a visitor sees.
func Analyze(html string) (*Digest, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}

	doc.Find("script, style, meta, link, noscript").Remove()

	digest := &Digest{}

	doc.Find("iframe").Each(func(_ int, sel *goquery.Selection) {
		digest.IframeCount++
		digest.Iframes = append(digest.Iframes, Iframe{
			Src:   sel.AttrOr("src", ""),
			ID:    sel.AttrOr("id", ""),
			Name:  sel.AttrOr("name", ""),
			Title: sel.AttrOr("title", ""),
			Class: sel.AttrOr("class", ""),
		})
	})

	doc.Find("form").Each(func(_ int, sel *goquery.Selection) {
		form := Form{
			Action: sel.AttrOr("action", ""),
			Method: sel.AttrOr("method", ""),
		}

		sel.Find("input").Each(func(_ int, input *goquery.Selection) {
			inputType := input.AttrOr("type", "text")
			if inputType != "text" && inputType != "search" {
				return
			}
			digest.SearchInputCount++
			form.Inputs = append(form.Inputs, FormInput{
				Type:        inputType,
				Name:        input.AttrOr("name", ""),
				ID:          input.AttrOr("id", ""),
				Placeholder: input.AttrOr("placeholder", ""),
			})
		})

		if len(form.Inputs) > 0 {
			digest.FormCount++
			digest.Forms = append(digest.Forms, form)
		}
	})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		href := sel.AttrOr("href", "")

		if len(text) < 3 || len(text) > 200 {
			return
		}

		digest.LinkCount++

		relevance := linkRelevance(text, href)
		if relevance > 0 || digest.LinkCount <= plainLinkLimit {
			digest.KeyLinks = append(digest.KeyLinks, Link{
				Text:      text,
				Href:      href,
				Relevance: relevance,
			})
		}
	})

	sort.SliceStable(digest.KeyLinks, func(i, j int) bool {
		return digest.KeyLinks[i].Relevance > digest.KeyLinks[j].Relevance
	})
	if len(digest.KeyLinks) > keyLinkLimit {
		digest.KeyLinks = digest.KeyLinks[:keyLinkLimit]
	}

	digest.DynamicIndicators = findDynamicIndicators(doc)

	digest.TextPreview = utils.TruncateBytes(doc.Text(), textPreviewLimit)

	doc.Find("h1, h2, h3").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		digest.Headings = append(digest.Headings, Heading{
			Level: goquery.NodeName(sel),
			Text:  text,
		})
	})

	return digest, nil
}

// linkRelevance counts how many job keywords appear in the link text or href.
func linkRelevance(text, href string) int {
	text = strings.ToLower(text)
	href = strings.ToLower(href)

	relevance := 0
	for _, keyword := range jobKeywords {
		if strings.Contains(text, keyword) || strings.Contains(href, keyword) {
			relevance++
		}
	}
	return relevance
}

func findDynamicIndicators(doc *goquery.Document) []string {
	var classes []string
	doc.Find("[class]").Each(func(_ int, sel *goquery.Selection) {
		classes = append(classes, strings.ToLower(sel.AttrOr("class", "")))
	})

	var indicators []string
	for _, indicator := range dynamicClasses {
		for _, class := range classes {
			if strings.Contains(class, indicator) {
				indicators = append(indicators, indicator)
				break
			}
		}
	}
	return indicators
}
