package models

import (
	"slices"
	"strings"
)

// RegistryHit is one structured record returned by the sanctions registry.
type RegistryHit struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Schema    string   `json:"schema,omitempty"`
	Countries []string `json:"countries,omitempty"`
	Gender    string   `json:"gender,omitempty"`
	BirthDate string   `json:"birth_date,omitempty"`
	Notes     string   `json:"notes,omitempty"`
	Datasets  []string `json:"datasets,omitempty"`
	Topics    []string `json:"topics,omitempty"`
	SourceURL string   `json:"source_url,omitempty"`
}

// Clone returns a copy that shares no slices with h.
func (h RegistryHit) Clone() RegistryHit {
	h.Countries = slices.Clone(h.Countries)
	h.Datasets = slices.Clone(h.Datasets)
	h.Topics = slices.Clone(h.Topics)
	return h
}

// Country returns the first listed country, or "".
func (h RegistryHit) Country() string {
	if len(h.Countries) == 0 {
		return ""
	}
	return h.Countries[0]
}

// Dataset returns the primary dataset label, or "".
func (h RegistryHit) Dataset() string {
	if len(h.Datasets) == 0 {
		return ""
	}
	return h.Datasets[0]
}

// DatasetText joins every dataset label in lower case for marker checks.
func (h RegistryHit) DatasetText() string {
	return strings.ToLower(strings.Join(h.Datasets, " "))
}

// RegistryOutcome is the result of one registry search call.
type RegistryOutcome struct {
	Success    bool          `json:"success"`
	Hits       []RegistryHit `json:"hits"`
	Total      int           `json:"total"`
	Collection string        `json:"collection,omitempty"`
	Query      string        `json:"query,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// Found reports whether the registry returned at least one hit.
func (o RegistryOutcome) Found() bool {
	return o.Success && len(o.Hits) > 0
}

// RegistryFailure builds a soft-failure outcome.
func RegistryFailure(message string) RegistryOutcome {
	return RegistryOutcome{Success: false, Error: message}
}
