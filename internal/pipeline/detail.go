package pipeline

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/ai"
	"github.com/jobsift/jobsift/internal/jobs"
	"github.com/jobsift/jobsift/internal/utils"
)

//go:embed detail_prompt.md
var detailPromptTemplate string

// detailTextLimit caps how much posting text goes into the model prompt.
const detailTextLimit = 10000

// listItemLimit caps each extracted requirements/responsibilities/benefits
// list.
const listItemLimit = 10

var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Location:?\s*([^,\n]+(?:,\s*[^,\n]+)*)`),
	regexp.MustCompile(`(?i)Based in:?\s*([^,\n]+)`),
	regexp.MustCompile(`(?i)Office:?\s*([^,\n]+)`),
	regexp.MustCompile(`(?i)City:?\s*([^,\n]+)`),
	regexp.MustCompile(`\b([A-Z][a-z]+,\s*[A-Z]{2})\b`),
	regexp.MustCompile(`\b([A-Z][a-z]+\s+[A-Z][a-z]+,\s*[A-Z]{2})\b`),
}

var salaryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$[\d,]+-\$?[\d,]+`),
	regexp.MustCompile(`£[\d,]+-£?[\d,]+`),
	regexp.MustCompile(`€[\d,]+-€?[\d,]+`),
	regexp.MustCompile(`\$[\d,]+(?:\.\d{2})?\s*-\s*\$?[\d,]+(?:\.\d{2})?`),
	regexp.MustCompile(`(?i)Salary:?\s*([^\n]+)`),
	regexp.MustCompile(`(?i)Pay:?\s*([^\n]+)`),
	regexp.MustCompile(`(?i)Compensation:?\s*([^\n]+)`),
}

// keywordLabel maps a reported label to the keywords that imply it. Order
// matters: the first label whose keywords appear wins.
type keywordLabel struct {
	label    string
	keywords []string
}

var employmentTypes = []keywordLabel{
	{"Full-time", []string{"full-time", "full time", "fulltime", "permanent"}},
	{"Part-time", []string{"part-time", "part time", "parttime"}},
	{"Contract", []string{"contract", "contractor", "freelance", "temporary"}},
	{"Internship", []string{"intern", "internship", "trainee"}},
	{"Temporary", []string{"temp", "temporary", "seasonal"}},
}

var remoteOptions = []keywordLabel{
	{"Remote", []string{"remote", "work from home", "wfh", "telecommute"}},
	{"Hybrid", []string{"hybrid", "flexible", "mixed"}},
	{"Onsite", []string{"on-site", "onsite", "office-based", "in-office"}},
}

var experienceLevels = []keywordLabel{
	{"Entry", []string{"entry", "junior", "graduate", "trainee", "0-2 years"}},
	{"Mid", []string{"mid", "intermediate", "2-5 years", "3-7 years"}},
	{"Senior", []string{"senior", "lead", "principal", "5+ years", "7+ years"}},
	{"Executive", []string{"director", "vp", "executive", "head of", "chief"}},
}

var requirementPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Requirements?:?\s*([^:]+(?:\n[^:]+)*)`),
	regexp.MustCompile(`(?i)Qualifications?:?\s*([^:]+(?:\n[^:]+)*)`),
	regexp.MustCompile(`(?i)Skills?:?\s*([^:]+(?:\n[^:]+)*)`),
}

var responsibilityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Responsibilities:?\s*([^:]+(?:\n[^:]+)*)`),
	regexp.MustCompile(`(?i)Duties:?\s*([^:]+(?:\n[^:]+)*)`),
	regexp.MustCompile(`(?i)You will:?\s*([^:]+(?:\n[^:]+)*)`),
}

var benefitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Benefits:?\s*([^:]+(?:\n[^:]+)*)`),
	regexp.MustCompile(`(?i)Perks:?\s*([^:]+(?:\n[^:]+)*)`),
	regexp.MustCompile(`(?i)We offer:?\s*([^:]+(?:\n[^:]+)*)`),
}

var listSplitter = regexp.MustCompile(`[•*\-\n]`)

var jobIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Job ID:?\s*([A-Z0-9-]+)`),
	regexp.MustCompile(`(?i)Reference:?\s*([A-Z0-9-]+)`),
	regexp.MustCompile(`(?i)Req\.?\s*#?([A-Z0-9-]+)`),
}

var deadlinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Apply by:?\s*([A-Za-z]+ \d{1,2},? \d{4})`),
	regexp.MustCompile(`(?i)Deadline:?\s*([A-Za-z]+ \d{1,2},? \d{4})`),
	regexp.MustCompile(`(?i)Closes:?\s*([A-Za-z]+ \d{1,2},? \d{4})`),
}

var teamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Team:?\s*([^.\n]+)`),
	regexp.MustCompile(`(?i)Department:?\s*([^.\n]+)`),
	regexp.MustCompile(`(?i)Division:?\s*([^.\n]+)`),
}

var (
	fullAddressPattern  = regexp.MustCompile(`(\d+[^,\n]*,\s*[^,\n]+,\s*[A-Z]{2}\s*\d{5})`)
	cityStatePattern    = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*),\s*([A-Z]{2})\b`)
	countryPattern      = regexp.MustCompile(`(?i)\b(United States|USA|UK|United Kingdom|Germany|France|Canada|Australia)\b`)
	remoteHybridPattern = regexp.MustCompile(`(?i)\b(remote|hybrid|work from home|telecommute|flexible)\b`)
	onSitePattern       = regexp.MustCompile(`(?i)\b(on-?site|office|in-person)\b`)
)

var titleSelectors = []string{"h1", ".job-title", ".position-title", `[class*="title"]`, "title"}

var titleKeywords = []string{"engineer", "developer", "manager", "analyst", "consultant", "specialist"}

// detailer turns one job posting page into a full record. The model does the
// heavy lifting; deterministic regex extraction fills whatever it leaves
// blank, so a model outage still yields a usable record.
type detailer struct {
	generator ai.Generator
	logger    *zap.Logger
}

func newDetailer(generator ai.Generator, logger *zap.Logger) *detailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &detailer{generator: generator, logger: logger}
}

func (d *detailer) Extract(ctx context.Context, html string, target jobs.Target) (*jobs.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse job posting: %w", err)
	}

	doc.Find("script, style, nav, footer, header").Remove()
	text := doc.Text()

	record := d.modelRecord(ctx, text)
	if record == nil {
		record = &jobs.Record{}
	}

	if record.Title == "" {
		record.Title = extractTitle(doc, target.Title)
	}
	if record.Location == "" {
		record.Location = firstGroupMatch(locationPatterns, text, 3, 50)
	}
	if record.EmploymentType == "" {
		record.EmploymentType = firstKeywordLabel(employmentTypes, text)
	}
	if record.SalaryRange == "" {
		record.SalaryRange = extractSalary(text)
	}
	if record.RemoteOption == "" {
		record.RemoteOption = firstKeywordLabel(remoteOptions, text)
	}
	if record.ExperienceLevel == "" {
		record.ExperienceLevel = firstKeywordLabel(experienceLevels, text)
	}
	if len(record.Requirements) == 0 {
		record.Requirements = extractListSection(requirementPatterns, text, 10, 200)
	}
	if len(record.Responsibilities) == 0 {
		record.Responsibilities = extractListSection(responsibilityPatterns, text, 10, 200)
	}
	if len(record.Benefits) == 0 {
		record.Benefits = extractListSection(benefitPatterns, text, 5, 100)
	}

	record.LocationDetails = extractLocationDetails(text, record.Location)
	record.Metadata = extractMetadata(text)

	return record, nil
}

// modelRecord asks the model for the structured posting fields. Any failure
// is logged and reported as nil; regex extraction then carries the record.
func (d *detailer) modelRecord(ctx context.Context, text string) *jobs.Record {
	text = utils.TruncateBytes(text, detailTextLimit)
	prompt := strings.ReplaceAll(detailPromptTemplate, "{{PAGE_TEXT}}", text)

	raw, err := d.generator.GenerateContent(ctx, prompt)
	if err != nil {
		d.logger.Warn("model detail extraction failed, relying on pattern extraction", zap.Error(err))
		return nil
	}

	obj, err := ai.ParseObject(raw)
	if err != nil {
		d.logger.Warn("model detail response is not valid JSON", zap.Error(err))
		return nil
	}

	var decoded struct {
		Title            string   `json:"title"`
		Company          string   `json:"company"`
		Location         string   `json:"location"`
		EmploymentType   string   `json:"employment_type"`
		SalaryRange      string   `json:"salary_range"`
		Requirements     []string `json:"requirements"`
		Responsibilities []string `json:"responsibilities"`
		Description      string   `json:"description"`
		Benefits         []string `json:"benefits"`
		ExperienceLevel  string   `json:"experience_level"`
		RemoteOption     string   `json:"remote_option"`
		Department       string   `json:"department"`
	}
	if err := ai.Decode(obj, &decoded); err != nil {
		d.logger.Warn("model detail response has unexpected shape", zap.Error(err))
		return nil
	}

	return &jobs.Record{
		Title:            strings.TrimSpace(decoded.Title),
		Company:          strings.TrimSpace(decoded.Company),
		Location:         strings.TrimSpace(decoded.Location),
		EmploymentType:   strings.TrimSpace(decoded.EmploymentType),
		SalaryRange:      strings.TrimSpace(decoded.SalaryRange),
		Requirements:     decoded.Requirements,
		Responsibilities: decoded.Responsibilities,
		Description:      strings.TrimSpace(decoded.Description),
		Benefits:         decoded.Benefits,
		ExperienceLevel:  strings.TrimSpace(decoded.ExperienceLevel),
		RemoteOption:     strings.TrimSpace(decoded.RemoteOption),
		Department:       strings.TrimSpace(decoded.Department),
	}
}

// extractTitle prefers on-page headings that resemble the expected title and
// falls back to the expected title itself.
func extractTitle(doc *goquery.Document, expected string) string {
	expectedLower := strings.ToLower(expected)

	for _, selector := range titleSelectors {
		found := ""
		doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text := strings.TrimSpace(sel.Text())
			if len(text) <= 5 {
				return true
			}
			lowered := strings.ToLower(text)
			if expected != "" && fuzzy.PartialRatio(expectedLower, lowered) > 60 {
				found = text
				return false
			}
			for _, keyword := range titleKeywords {
				if strings.Contains(lowered, keyword) {
					found = text
					return false
				}
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return expected
}

func firstGroupMatch(patterns []*regexp.Regexp, text string, minLen, maxLen int) string {
	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			value := strings.TrimSpace(m[1])
			if len(value) >= minLen && len(value) < maxLen {
				return value
			}
		}
	}
	return ""
}

func firstKeywordLabel(table []keywordLabel, text string) string {
	lowered := strings.ToLower(text)
	for _, entry := range table {
		for _, keyword := range entry.keywords {
			if strings.Contains(lowered, keyword) {
				return entry.label
			}
		}
	}
	return ""
}

// extractSalary keeps a pattern hit only when it visibly talks about money.
func extractSalary(text string) string {
	for _, pattern := range salaryPatterns {
		match := pattern.FindString(text)
		if match == "" {
			continue
		}
		match = strings.TrimSpace(match)
		lowered := strings.ToLower(match)
		if strings.ContainsAny(match, "$£€") ||
			strings.Contains(lowered, "salary") ||
			strings.Contains(lowered, "pay") ||
			strings.Contains(lowered, "compensation") {
			return match
		}
	}
	return ""
}

func extractListSection(patterns []*regexp.Regexp, text string, minLen, maxLen int) []string {
	for _, pattern := range patterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		var items []string
		for _, item := range listSplitter.Split(m[1], -1) {
			item = strings.TrimSpace(item)
			if len(item) > minLen && len(item) < maxLen {
				items = append(items, item)
			}
			if len(items) == listItemLimit {
				break
			}
		}
		if len(items) > 0 {
			return items
		}
	}
	return nil
}

func extractLocationDetails(text, basicLocation string) *jobs.LocationDetails {
	details := &jobs.LocationDetails{BasicLocation: basicLocation}

	if m := fullAddressPattern.FindStringSubmatch(text); m != nil {
		details.FullAddress = m[1]
	}
	if m := cityStatePattern.FindStringSubmatch(text); m != nil {
		details.CityState = m[1] + ", " + m[2]
	}
	if m := countryPattern.FindStringSubmatch(text); m != nil {
		details.Country = m[1]
	}
	if m := remoteHybridPattern.FindStringSubmatch(text); m != nil {
		details.RemoteHybrid = m[1]
	}
	if m := onSitePattern.FindStringSubmatch(text); m != nil {
		details.OnSite = m[1]
	}

	if details.FullAddress == "" && details.CityState == "" && details.Country == "" &&
		details.RemoteHybrid == "" && details.OnSite == "" && basicLocation == "" {
		return nil
	}
	return details
}

func extractMetadata(text string) *jobs.Metadata {
	meta := &jobs.Metadata{}

	for _, pattern := range jobIDPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			meta.JobID = m[1]
			break
		}
	}
	for _, pattern := range deadlinePatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			meta.ApplicationDeadline = m[1]
			break
		}
	}
	for _, pattern := range teamPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			meta.TeamDepartment = strings.TrimSpace(m[1])
			break
		}
	}

	if meta.JobID == "" && meta.ApplicationDeadline == "" && meta.TeamDepartment == "" {
		return nil
	}
	return meta
}
