package models

// Result item sources.
const (
	SourceRegistry = "registry"
	SourceWeb      = "web_search"
	SourceCombined = "registry+web_search"
)

// Processing statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ResultItem is one entry of a finding. It carries a registry record, a web
// hit, or both when the two were paired.
type ResultItem struct {
	Source      string        `json:"source"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Registry    *RegistryHit  `json:"registry,omitempty"`
	Web         *RankedResult `json:"web,omitempty"`
}

// ChannelStatus reports how one data source contributed to a finding.
type ChannelStatus struct {
	Found bool   `json:"found"`
	Total int    `json:"total"`
	Error string `json:"error,omitempty"`
}

// SourceStatus groups the per-channel statuses.
type SourceStatus struct {
	Registry  ChannelStatus `json:"registry"`
	WebSearch ChannelStatus `json:"web_search"`
}

// AggregatedFinding is the merged, ranked and capped result for one entity.
type AggregatedFinding struct {
	EntityName       string       `json:"entity_name"`
	Found            bool         `json:"found"`
	Results          []ResultItem `json:"results"`
	Summary          string       `json:"summary"`
	Recommendations  []string     `json:"recommendations"`
	Sources          SourceStatus `json:"sources"`
	ProcessingStatus string       `json:"processing_status"`
	Timestamp        int64        `json:"timestamp"`
}

// FailedFinding is the error-shaped record returned for an entity that could
// not be processed.
func FailedFinding(entity, summary string, timestamp int64) *AggregatedFinding {
	return &AggregatedFinding{
		EntityName:       entity,
		Found:            false,
		Results:          []ResultItem{},
		Summary:          summary,
		Recommendations:  []string{},
		ProcessingStatus: StatusFailed,
		Timestamp:        timestamp,
	}
}
