// Package jobs holds the data model shared across the extraction pipeline.
package jobs

import "strings"

// Target describes the job the run is looking for. Title is mandatory and at
// least one of CompanyName/CompanyDomain must be set.
type Target struct {
	Title         string `json:"job_title" mapstructure:"title"`
	CompanyName   string `json:"company_name,omitempty" mapstructure:"company"`
	CompanyDomain string `json:"company_domain,omitempty" mapstructure:"domain"`
	Location      string `json:"location,omitempty" mapstructure:"location"`
}

// Validate reports whether the target carries the mandatory fields.
func (t *Target) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrMissingTitle
	}
	if strings.TrimSpace(t.CompanyName) == "" && strings.TrimSpace(t.CompanyDomain) == "" {
		return ErrMissingCompany
	}
	return nil
}

// Source tags where a candidate listing came from.
type Source string

const (
	SourceSelectorMatch Source = "selector_match"
	SourceKeywordMatch  Source = "keyword_match"
	SourceLLMExtracted  Source = "llm_extracted"
	SourceIframe        Source = "iframe"
)

// Candidate is a job listing discovered on a careers page. URL is always
// absolute by the time a candidate leaves the extraction boundary.
type Candidate struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Description    string  `json:"description,omitempty"`
	Location       string  `json:"location,omitempty"`
	RelevanceScore float64 `json:"relevance_score"`
	Source         Source  `json:"source"`
}

// Candidates is an ordered collection of listing candidates.
type Candidates struct {
	Items []Candidate `json:"items"`
}

func (c *Candidates) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

// URLs returns the candidate URLs in discovery order.
func (c *Candidates) URLs() []string {
	urls := make([]string, 0, c.Len())
	for _, item := range c.Items {
		urls = append(urls, item.URL)
	}
	return urls
}

// Append adds the given candidates, keeping discovery order.
func (c *Candidates) Append(items ...Candidate) {
	c.Items = append(c.Items, items...)
}

// DedupeByURL removes later duplicates of the same URL, keeping the first
// occurrence. Duplicates across sources collapse into whichever was seen
// first.
func (c *Candidates) DedupeByURL() int {
	if c == nil || len(c.Items) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, len(c.Items))
	kept := c.Items[:0]
	dropped := 0

	for _, item := range c.Items {
		if _, ok := seen[item.URL]; ok {
			dropped++
			continue
		}
		seen[item.URL] = struct{}{}
		kept = append(kept, item)
	}

	c.Items = kept
	return dropped
}

// ScoreBreakdown records the individual components of a match score for
// reporting. The total is the unweighted sum of base plus the bonuses.
type ScoreBreakdown struct {
	TitleSimilarity   float64 `json:"title_similarity"`
	PartialSimilarity float64 `json:"partial_similarity"`
	URLSimilarity     float64 `json:"url_similarity"`
	LocationBonus     float64 `json:"location_bonus"`
	KeywordBonus      float64 `json:"keyword_bonus"`
}

// Match is a candidate that scored against the target.
type Match struct {
	Candidate
	MatchScore float64        `json:"match_score"`
	Breakdown  ScoreBreakdown `json:"score_breakdown"`
}

// LocationDetails carries the enriched location fields scraped from a
// posting body.
type LocationDetails struct {
	BasicLocation string `json:"basic_location,omitempty"`
	FullAddress   string `json:"full_address,omitempty"`
	CityState     string `json:"city_state,omitempty"`
	Country       string `json:"country,omitempty"`
	RemoteHybrid  string `json:"remote_hybrid,omitempty"`
	OnSite        string `json:"on_site,omitempty"`
}

// Metadata captures identifying details found in the posting body.
type Metadata struct {
	JobID               string `json:"job_id,omitempty"`
	ApplicationDeadline string `json:"application_deadline,omitempty"`
	TeamDepartment      string `json:"team_department,omitempty"`
}

// Record is the final structured output for one matched job. It is assembled
// once during detail scraping and only touched afterwards by output
// post-processing.
type Record struct {
	Title            string           `json:"title"`
	Company          string           `json:"company,omitempty"`
	Location         string           `json:"location,omitempty"`
	EmploymentType   string           `json:"employment_type,omitempty"`
	SalaryRange      string           `json:"salary_range,omitempty"`
	Requirements     []string         `json:"requirements,omitempty"`
	Responsibilities []string         `json:"responsibilities,omitempty"`
	Description      string           `json:"description,omitempty"`
	Benefits         []string         `json:"benefits,omitempty"`
	ExperienceLevel  string           `json:"experience_level,omitempty"`
	RemoteOption     string           `json:"remote_option,omitempty"`
	Department       string           `json:"department,omitempty"`
	LocationDetails  *LocationDetails `json:"location_details,omitempty"`
	Metadata         *Metadata        `json:"metadata,omitempty"`

	// Provenance.
	MatchScore  float64 `json:"match_score"`
	JobURL      string  `json:"job_url"`
	ScrapeOrder int     `json:"scrape_order"`
}
