// Package match scores discovered listings against the requested job using
// fuzzy string similarity.
package match

import (
	"errors"
	"sort"
	"strings"
	"unicode"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jobsift/jobsift/internal/jobs"
)

// allMatchThreshold is the minimum total score for a candidate to count as a
// match when collecting every match rather than the single best one.
const allMatchThreshold = 80

// Confidence bands a match score for reporting.
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceVeryLow Confidence = "very_low"
)

// ConfidenceFor bands the given match score.
func ConfidenceFor(score float64) Confidence {
	switch {
	case score >= 80:
		return ConfidenceHigh
	case score >= 60:
		return ConfidenceMedium
	case score >= 40:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// ErrNoCandidates is returned when matching is attempted on an empty set.
var ErrNoCandidates = errors.New("no candidates provided for matching")

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases the input and strips diacritics so "Méxicó" and "mexico"
// compare equal.
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// BestMatch is the outcome of ranking candidates against a target.
type BestMatch struct {
	Best       jobs.Match
	Top        []jobs.Match
	Confidence Confidence
}

// topMatchLimit bounds how many ranked alternatives BestMatch carries.
const topMatchLimit = 10

// FindBestMatch ranks every candidate against the target and returns the
// highest scorer together with up to ten runners-up. Keyword bonuses here use
// both exact and fuzzy token hits, which makes the ranking tolerant of
// inflected titles.
func FindBestMatch(target jobs.Target, candidates []jobs.Candidate) (*BestMatch, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	title := Fold(target.Title)
	location := Fold(target.Location)
	keywords := titleKeywords(title)

	matches := make([]jobs.Match, 0, len(candidates))
	for _, cand := range candidates {
		total, breakdown := score(title, location, keywords, cand, true)
		matches = append(matches, jobs.Match{
			Candidate:  cand,
			MatchScore: total,
			Breakdown:  breakdown,
		})
	}

	sortByScore(matches)

	top := matches
	if len(top) > topMatchLimit {
		top = top[:topMatchLimit]
	}

	return &BestMatch{
		Best:       matches[0],
		Top:        top,
		Confidence: ConfidenceFor(matches[0].MatchScore),
	}, nil
}

// FindAllMatches returns every candidate scoring at or above the match
// threshold, best first. Candidates without a title are skipped. Keyword
// bonuses use exact token hits only, keeping the threshold strict.
func FindAllMatches(target jobs.Target, candidates []jobs.Candidate) []jobs.Match {
	title := Fold(target.Title)
	location := Fold(target.Location)
	keywords := titleKeywords(title)

	var matches []jobs.Match
	for _, cand := range candidates {
		if strings.TrimSpace(cand.Title) == "" {
			continue
		}

		total, breakdown := score(title, location, keywords, cand, false)
		if total < allMatchThreshold {
			continue
		}

		matches = append(matches, jobs.Match{
			Candidate:  cand,
			MatchScore: total,
			Breakdown:  breakdown,
		})
	}

	sortByScore(matches)
	return matches
}

// score computes similarity of one candidate against the folded target title.
// The base is the stronger of token-sort similarity and 80% of partial
// similarity. URL similarity contributes at 30% weight, location and keyword
// hits add flat bonuses on top.
func score(title, location string, keywords []string, cand jobs.Candidate, fuzzyKeywords bool) (float64, jobs.ScoreBreakdown) {
	candTitle := Fold(cand.Title)
	candURL := strings.ToLower(cand.URL)

	titleSimilarity := float64(fuzzy.TokenSortRatio(title, candTitle))
	partialSimilarity := float64(fuzzy.PartialRatio(title, candTitle))
	urlSimilarity := float64(fuzzy.PartialRatio(title, candURL))

	base := titleSimilarity
	if weighted := partialSimilarity * 0.8; weighted > base {
		base = weighted
	}

	urlBonus := urlSimilarity * 0.3

	var locationBonus float64
	switch {
	case location != "" && strings.Contains(candTitle, location):
		locationBonus = 20
	case location != "" && strings.Contains(candURL, location):
		locationBonus = 10
	}

	var keywordBonus float64
	for _, keyword := range keywords {
		if strings.Contains(candTitle, keyword) {
			keywordBonus += 15
		} else if fuzzyKeywords && fuzzy.PartialRatio(keyword, candTitle) > 85 {
			keywordBonus += 10
		}
	}

	breakdown := jobs.ScoreBreakdown{
		TitleSimilarity:   titleSimilarity,
		PartialSimilarity: partialSimilarity,
		URLSimilarity:     urlSimilarity,
		LocationBonus:     locationBonus,
		KeywordBonus:      keywordBonus,
	}

	return base + urlBonus + locationBonus + keywordBonus, breakdown
}

// titleKeywords splits the folded title into tokens worth a keyword bonus.
// Tokens of one or two characters are noise and skipped.
func titleKeywords(title string) []string {
	fields := strings.Fields(title)
	keywords := make([]string, 0, len(fields))
	for _, field := range fields {
		if len(field) > 2 {
			keywords = append(keywords, field)
		}
	}
	return keywords
}

func sortByScore(matches []jobs.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})
}
