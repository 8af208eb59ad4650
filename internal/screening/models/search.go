package models

// Query context labels emitted by the planner.
const (
	ContextGeneral    = "general"
	ContextWanted     = "wanted"
	ContextSanctions  = "sanctions"
	ContextCountry    = "country"
	ContextCompliance = "compliance"
	ContextNews       = "news"
)

// DefaultPriorWeight is the base relevance for hits from an unweighted query.
const DefaultPriorWeight = 0.5

// PlannedQuery is one web search to run for an entity.
type PlannedQuery struct {
	Text        string  `json:"text"`
	Context     string  `json:"context"`
	PriorWeight float64 `json:"prior_weight"`
}

// WebResult is one raw organic hit from the search provider.
type WebResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Domain  string `json:"domain"`
}

// SearchOutcome is the result of executing one planned query.
type SearchOutcome struct {
	Success bool         `json:"success"`
	Query   PlannedQuery `json:"query"`
	Results []WebResult  `json:"results"`
	Error   string       `json:"error,omitempty"`
}

// SearchFailure builds a soft-failure outcome for query q.
func SearchFailure(q PlannedQuery, message string) SearchOutcome {
	return SearchOutcome{Success: false, Query: q, Error: message}
}

// RankedResult is a trusted web hit annotated with its relevance.
type RankedResult struct {
	Title        string  `json:"title"`
	Link         string  `json:"link"`
	Snippet      string  `json:"snippet"`
	Domain       string  `json:"domain"`
	SourceName   string  `json:"source_name"`
	Relevance    float64 `json:"relevance_score"`
	Trusted      bool    `json:"is_trusted_source"`
	QueryContext string  `json:"query_context"`
}
