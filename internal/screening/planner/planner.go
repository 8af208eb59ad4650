// Package planner turns an entity and optional registry context into
// targeted web search queries.
package planner

import (
	"fmt"
	"sort"
	"strings"

	"screener/internal/screening/models"
)

// MaxQueries bounds the multi-query plan.
const MaxQueries = 5

// Prior weights per query context.
const (
	weightWanted     = 0.8
	weightSanctions  = 0.8
	weightCountry    = 0.6
	weightCompliance = models.DefaultPriorWeight
	weightGeneral    = models.DefaultPriorWeight
	weightNews       = 0.4

	// follow-up queries in multi mode sit below a registry-driven primary
	weightFollowUpSanctions = 0.7
	weightFollowUpWanted    = 0.6
)

// Planner builds search queries. The zero value plans a single query.
type Planner struct {
	multi bool
}

// Option configures a Planner.
type Option func(*Planner)

// WithMultiQuery enables the multi-query plan, capped at MaxQueries.
func WithMultiQuery(enabled bool) Option {
	return func(p *Planner) {
		p.multi = enabled
	}
}

// New constructs a Planner.
func New(opts ...Option) *Planner {
	p := &Planner{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan returns the queries to run for entity, highest prior weight first.
// In single mode the result always has exactly one element. reg may be nil.
func (p *Planner) Plan(entity string, reg *models.RegistryOutcome) []models.PlannedQuery {
	primary := Primary(entity, reg)
	if !p.multi {
		return []models.PlannedQuery{primary}
	}
	return capByWeight(append([]models.PlannedQuery{primary}, followUps(entity, reg, primary.Context)...))
}

// Primary picks the one best query for entity given the registry top hit.
func Primary(entity string, reg *models.RegistryOutcome) models.PlannedQuery {
	name := quote(entity)

	top, ok := topHit(reg)
	if !ok {
		return models.PlannedQuery{
			Text:        name + ` sanctions wanted investigation enforcement "financial crime" "regulatory action"`,
			Context:     models.ContextGeneral,
			PriorWeight: weightGeneral,
		}
	}

	datasets := top.DatasetText()
	country := strings.TrimSpace(top.Country())
	switch {
	case strings.Contains(datasets, "wanted"):
		return models.PlannedQuery{
			Text:        name + ` wanted fugitive "law enforcement" criminal`,
			Context:     models.ContextWanted,
			PriorWeight: weightWanted,
		}
	case strings.Contains(datasets, "sanction"):
		return models.PlannedQuery{
			Text:        name + ` sanctions "financial crime" compliance investigation`,
			Context:     models.ContextSanctions,
			PriorWeight: weightSanctions,
		}
	case country != "":
		return models.PlannedQuery{
			Text:        fmt.Sprintf(`%s %s sanctions "regulatory action" investigation`, name, country),
			Context:     models.ContextCountry,
			PriorWeight: weightCountry,
		}
	default:
		return models.PlannedQuery{
			Text:        name + ` sanctions compliance "regulatory enforcement"`,
			Context:     models.ContextCompliance,
			PriorWeight: weightCompliance,
		}
	}
}

func followUps(entity string, reg *models.RegistryOutcome, primaryContext string) []models.PlannedQuery {
	name := quote(entity)
	out := []models.PlannedQuery{
		{Text: name + ` sanctions "financial crime" compliance investigation`, Context: models.ContextSanctions, PriorWeight: weightFollowUpSanctions},
		{Text: name + ` wanted fugitive "law enforcement" criminal`, Context: models.ContextWanted, PriorWeight: weightFollowUpWanted},
	}
	if top, ok := topHit(reg); ok && strings.TrimSpace(top.Country()) != "" {
		out = append(out, models.PlannedQuery{
			Text:        fmt.Sprintf(`%s %s sanctions "regulatory action" investigation`, name, strings.TrimSpace(top.Country())),
			Context:     models.ContextCountry,
			PriorWeight: weightCountry,
		})
	}
	out = append(out,
		models.PlannedQuery{Text: name + ` sanctions compliance "regulatory enforcement"`, Context: models.ContextCompliance, PriorWeight: weightCompliance},
		models.PlannedQuery{Text: name + ` fraud "money laundering" indicted charged`, Context: models.ContextNews, PriorWeight: weightNews},
	)

	filtered := out[:0]
	for _, q := range out {
		if q.Context != primaryContext {
			filtered = append(filtered, q)
		}
	}
	return filtered
}

// capByWeight sorts by descending prior weight, keeping arrival order on
// ties, and drops everything past MaxQueries.
func capByWeight(queries []models.PlannedQuery) []models.PlannedQuery {
	sort.SliceStable(queries, func(i, j int) bool {
		return queries[i].PriorWeight > queries[j].PriorWeight
	})
	if len(queries) > MaxQueries {
		queries = queries[:MaxQueries]
	}
	return queries
}

func topHit(reg *models.RegistryOutcome) (models.RegistryHit, bool) {
	if reg == nil || !reg.Found() {
		return models.RegistryHit{}, false
	}
	return reg.Hits[0], true
}

// quote wraps entity in double quotes for exact-phrase matching. Embedded
// quotes would end the phrase early, so they are dropped.
func quote(entity string) string {
	clean := strings.Join(strings.Fields(strings.ReplaceAll(entity, `"`, "")), " ")
	return `"` + clean + `"`
}
