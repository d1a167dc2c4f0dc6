// Package strategy decides how a careers page should be scraped and executes
// that decision against the browser.
package strategy

// Kind is one of the five extraction strategies.
type Kind string

const (
	KindIframeNavigation   Kind = "iframe_navigation"
	KindUseSearchForm      Kind = "use_search_form"
	KindExtractCurrentPage Kind = "extract_current_page"
	KindNavigateToLink     Kind = "navigate_to_link"
	KindScrollAndExtract   Kind = "scroll_and_extract"
)

func (k Kind) String() string {
	return string(k)
}

// ParseKind maps a raw strategy tag to its Kind. Unknown tags report ok=false
// so callers can degrade to direct extraction instead of acting on a value
// the executor has no state for.
func ParseKind(raw string) (Kind, bool) {
	switch Kind(raw) {
	case KindIframeNavigation, KindUseSearchForm, KindExtractCurrentPage,
		KindNavigateToLink, KindScrollAndExtract:
		return Kind(raw), true
	}
	return KindExtractCurrentPage, false
}

// Params carries the strategy-specific execution plan. Fields not relevant to
// the chosen strategy stay at their zero values. IframeIndex is a pointer
// because index 0 and "no index" must stay distinguishable.
type Params struct {
	IframeIndex          *int   `json:"iframe_index,omitempty"`
	IframeSrc            string `json:"iframe_src,omitempty"`
	SearchInputSelector  string `json:"search_input_selector,omitempty"`
	SubmitButtonSelector string `json:"submit_button_selector,omitempty"`
	TargetLinkURL        string `json:"target_link_url,omitempty"`
	NeedsScrolling       bool   `json:"needs_scrolling,omitempty"`
	ScrollAmount         int    `json:"scroll_amount,omitempty"`
}

// Analysis is a validated strategy decision.
type Analysis struct {
	Strategy   Kind   `json:"strategy"`
	ATSSystem  string `json:"ats_system,omitempty"`
	Confidence int    `json:"confidence"`
	Reasoning  string `json:"reasoning,omitempty"`
	Plan       Params `json:"execution_plan"`
	Fallback   string `json:"fallback_strategy,omitempty"`
}
