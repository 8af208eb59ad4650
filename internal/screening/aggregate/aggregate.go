// Package aggregate merges registry records and web hits into one ranked,
// capped finding.
package aggregate

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"screener/internal/screening/models"
	"screener/internal/screening/trust"
)

// Output bounds.
const (
	MaxWebResults      = 5
	MaxRegistryResults = 3
	MaxItems           = 5
	MaxRecommendations = 3

	// RelevanceThreshold drops trusted hits that are near-zero relevance.
	RelevanceThreshold = 0.1
)

// Aggregator is stateless apart from its read-only collaborators and is safe
// for concurrent use.
type Aggregator struct {
	filter *trust.Filter
	now    func() time.Time
	logger *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the logger used for ranking diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New builds an Aggregator around the trust filter.
func New(filter *trust.Filter, opts ...Option) (*Aggregator, error) {
	if filter == nil {
		return nil, fmt.Errorf("trust filter is required")
	}
	a := &Aggregator{
		filter: filter,
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Aggregate builds the finding for entity. Apart from Timestamp the output
// depends only on the inputs.
func (a *Aggregator) Aggregate(entity string, reg models.RegistryOutcome, searches ...models.SearchOutcome) *models.AggregatedFinding {
	ranked := a.Rank(entity, &reg, searches...)

	var regHits []models.RegistryHit
	if reg.Success {
		regHits = reg.Hits
		if len(regHits) > MaxRegistryResults {
			regHits = regHits[:MaxRegistryResults]
		}
	}

	items := merge(regHits, ranked)
	sources := sourceStatus(reg, ranked, searches)

	return &models.AggregatedFinding{
		EntityName:       entity,
		Found:            len(items) > 0,
		Results:          items,
		Summary:          summarize(reg, sources),
		Recommendations:  recommend(sources, items),
		Sources:          sources,
		ProcessingStatus: models.StatusCompleted,
		Timestamp:        a.now().Unix(),
	}
}

// Rank gates, scores, dedupes, sorts and caps web hits. Hits from
// higher-weight queries are considered first, so a URL found by several
// queries keeps its highest-weight occurrence.
func (a *Aggregator) Rank(entity string, reg *models.RegistryOutcome, searches ...models.SearchOutcome) []models.RankedResult {
	ordered := make([]models.SearchOutcome, 0, len(searches))
	for _, s := range searches {
		if s.Success {
			ordered = append(ordered, s)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Query.PriorWeight > ordered[j].Query.PriorWeight
	})

	seen := make(map[string]struct{})
	ranked := make([]models.RankedResult, 0)
	var untrusted, weak int
	for _, s := range ordered {
		base := s.Query.PriorWeight
		if base <= 0 {
			base = models.DefaultPriorWeight
		}
		for _, r := range s.Results {
			if !a.filter.IsTrusted(r.Link) {
				untrusted++
				continue
			}
			if _, dup := seen[r.Link]; dup {
				continue
			}
			seen[r.Link] = struct{}{}

			score := Score(r, entity, reg, base)
			if score < RelevanceThreshold {
				weak++
				continue
			}
			domain := r.Domain
			if domain == "" {
				domain = trust.HostOf(r.Link)
			}
			ranked = append(ranked, models.RankedResult{
				Title:        r.Title,
				Link:         r.Link,
				Snippet:      r.Snippet,
				Domain:       domain,
				SourceName:   a.filter.SourceName(domain),
				Relevance:    score,
				Trusted:      true,
				QueryContext: s.Query.Context,
			})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Relevance > ranked[j].Relevance
	})
	a.logger.Debug("web hits ranked",
		"entity", entity,
		"kept", min(len(ranked), MaxWebResults),
		"untrusted", untrusted,
		"below_threshold", weak,
	)
	if len(ranked) > MaxWebResults {
		ranked = ranked[:MaxWebResults]
	}
	return ranked
}

// merge pairs the i-th registry record with the i-th web hit, reusing the
// top web hit when web hits run out. Unpaired web hits follow, standalone,
// up to MaxItems.
func merge(regHits []models.RegistryHit, web []models.RankedResult) []models.ResultItem {
	items := make([]models.ResultItem, 0, MaxItems)

	for i, h := range regHits {
		hit := h.Clone()
		item := models.ResultItem{
			Source:      models.SourceRegistry,
			Name:        hit.Name,
			Description: describeHit(hit),
			Registry:    &hit,
		}
		if len(web) > 0 {
			w := web[0]
			if i < len(web) {
				w = web[i]
			}
			item.Source = models.SourceCombined
			item.Web = &w
			item.Description = joinNonEmpty(" | ", item.Description, w.Snippet)
		}
		items = append(items, item)
	}

	for i := len(regHits); i < len(web) && len(items) < MaxItems; i++ {
		w := web[i]
		items = append(items, models.ResultItem{
			Source:      models.SourceWeb,
			Name:        w.Title,
			Description: w.Snippet,
			Web:         &w,
		})
	}
	return items
}

func describeHit(h models.RegistryHit) string {
	if strings.TrimSpace(h.Notes) != "" {
		return h.Notes
	}
	var parts []string
	if d := h.Dataset(); d != "" {
		parts = append(parts, "Dataset: "+d)
	}
	if c := h.Country(); c != "" {
		parts = append(parts, "Country: "+c)
	}
	if h.BirthDate != "" {
		parts = append(parts, "Born: "+h.BirthDate)
	}
	if len(parts) == 0 {
		return "Registry record"
	}
	return strings.Join(parts, "; ")
}

func joinNonEmpty(sep string, values ...string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, sep)
}

func sourceStatus(reg models.RegistryOutcome, ranked []models.RankedResult, searches []models.SearchOutcome) models.SourceStatus {
	st := models.SourceStatus{
		Registry: models.ChannelStatus{
			Found: reg.Found(),
			Error: reg.Error,
		},
		WebSearch: models.ChannelStatus{
			Found: len(ranked) > 0,
			Total: len(ranked),
		},
	}
	if reg.Success {
		st.Registry.Total = max(reg.Total, len(reg.Hits))
	}

	anySuccess := false
	for _, s := range searches {
		if s.Success {
			anySuccess = true
			break
		}
	}
	if !anySuccess {
		for _, s := range searches {
			if s.Error != "" {
				st.WebSearch.Error = s.Error
				break
			}
		}
	}
	return st
}
