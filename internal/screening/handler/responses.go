package handler

import "screener/internal/screening/models"

// APIVersion is reported on every response body.
const APIVersion = "2.0.0"

// EntityRef echoes the requested entity on single-entity responses.
type EntityRef struct {
	Name string `json:"name"`
}

// SingleCheckResponse is returned when the request named one entity.
type SingleCheckResponse struct {
	Success    bool                      `json:"success"`
	Entity     EntityRef                 `json:"entity"`
	Result     *models.AggregatedFinding `json:"result"`
	APIVersion string                    `json:"api_version"`
}

// BatchCheckResponse is returned for list-shaped requests.
type BatchCheckResponse struct {
	Success       bool                        `json:"success"`
	TotalEntities int                         `json:"total_entities"`
	Results       []*models.AggregatedFinding `json:"results"`
	APIVersion    string                      `json:"api_version"`
}

type HealthServices struct {
	Cache         string `json:"cache"`
	OpenSanctions string `json:"opensanctions"`
	Search        string `json:"search"`
	// RegistryCircuit is closed, open or half_open when a breaker is wired.
	RegistryCircuit string `json:"registry_circuit,omitempty"`
}

type HealthResponse struct {
	Status          string         `json:"status"`
	Services        HealthServices `json:"services"`
	SearchProviders []string       `json:"search_providers"`
	APIVersion      string         `json:"api_version"`
}

type ClearCacheResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	APIVersion string `json:"api_version"`
}

// ErrorResponse is the envelope for unknown routes and wrong verbs.
type ErrorResponse struct {
	Error              string   `json:"error"`
	AvailableEndpoints []string `json:"available_endpoints,omitempty"`
	APIVersion         string   `json:"api_version"`
}

// Endpoints lists the public routes for discovery responses.
var Endpoints = []string{
	"POST /check - Entity screening against the sanctions registry and trusted web sources",
	"GET /health - Service health status",
	"POST /clear-cache - Clear cached data (requires auth)",
	"GET /api/info - Capabilities and data sources",
	"GET /metrics - Prometheus metrics",
}

func connected(ok bool) string {
	if ok {
		return "connected"
	}
	return "disconnected"
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "not_configured"
}

func serviceDescription() map[string]any {
	return map[string]any{
		"service":     "Entity Screening API",
		"version":     APIVersion,
		"description": "Sanctions and compliance screening with registry lookup and trusted web search",
		"endpoints":   Endpoints,
		"supported_input_formats": map[string]any{
			"single_person":       map[string]any{"name": "John Doe"},
			"single_company":      map[string]any{"company": "Acme Corporation"},
			"single_organization": map[string]any{"organization": "ABC Foundation"},
			"generic_entity":      map[string]any{"entity": "Entity Name"},
			"enhanced_entity":     map[string]any{"entity": map[string]any{"name": "Entity Name", "type": "person|company|organization"}},
			"direct_lookup":       map[string]any{"id": "Q7747"},
			"multiple_entities":   []any{map[string]any{"name": "Person Name"}, map[string]any{"company": "Company Name"}},
			"batch_format":        map[string]any{"entities": []any{map[string]any{"name": "Entity 1"}, "Entity 2"}},
			"legacy_format":       map[string]any{"queries": []any{"Entity Name 1", "Entity Name 2"}},
		},
	}
}

func apiInfo(trustedDomains []string) map[string]any {
	return map[string]any{
		"api_version":  APIVersion,
		"service_name": "Entity Screening API",
		"capabilities": map[string]any{
			"database_search":  "OpenSanctions consolidated sanctions and watchlist data",
			"web_search":       "Context-aware web search with relevance ranking",
			"trusted_sources":  "Curated allowlist of news, government and regulatory domains",
			"caching":          "Redis-backed result caching",
			"batch_processing": "Bounded parallel screening of entity lists",
		},
		"data_sources": []string{
			"OpenSanctions.org - Global sanctions and compliance database",
			"Trusted news sources (BBC, Reuters, AP News and others)",
			"Government and regulator websites (Treasury.gov, SEC.gov and others)",
		},
		"trusted_domains": trustedDomains,
		"compliance_features": []string{
			"Sanctions screening",
			"Wanted persons database search",
			"Regulatory enforcement tracking",
		},
	}
}
