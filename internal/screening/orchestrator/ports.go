package orchestrator

import (
	"context"
	"time"

	"screener/internal/screening/models"
)

// RegistrySearcher looks an entity up in the sanctions registry. It reports
// failures in the outcome rather than returning an error.
type RegistrySearcher interface {
	Search(ctx context.Context, q models.EntityQuery) models.RegistryOutcome
}

// WebSearcher runs one planned query.
type WebSearcher interface {
	Search(ctx context.Context, q models.PlannedQuery, entity string) models.SearchOutcome
}

// QueryPlanner chooses the web queries for an entity. reg may be nil.
type QueryPlanner interface {
	Plan(entity string, reg *models.RegistryOutcome) []models.PlannedQuery
}

// Aggregator merges source outcomes into a finding.
type Aggregator interface {
	Aggregate(entity string, reg models.RegistryOutcome, searches ...models.SearchOutcome) *models.AggregatedFinding
}

// Cache stores findings by raw entity string; key derivation is the
// implementation's concern. Get returns sentinel.ErrNotFound on a miss.
type Cache interface {
	Get(ctx context.Context, entity string) (*models.AggregatedFinding, error)
	Set(ctx context.Context, entity string, finding *models.AggregatedFinding, ttl time.Duration) error
	IsConnected(ctx context.Context) bool
	Flush(ctx context.Context) error
}
