package aggregate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"screener/internal/screening/models"
	"screener/internal/screening/trust"
	"screener/pkg/testutil"
)

// =============================================================================
// Aggregator Test Suite
// =============================================================================
// Justification for unit tests: aggregation is pure. Every ranking, pairing,
// summary and recommendation rule is checked here against fixed inputs.

type AggregatorSuite struct {
	suite.Suite
	agg *Aggregator
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func (s *AggregatorSuite) SetupTest() {
	agg, err := New(trust.New(), WithClock(testutil.FixedClock))
	s.Require().NoError(err)
	s.agg = agg
}

var generalQuery = models.PlannedQuery{Text: "q", Context: models.ContextGeneral, PriorWeight: 0.5}

func searchOf(q models.PlannedQuery, hits ...models.WebResult) models.SearchOutcome {
	return models.SearchOutcome{Success: true, Query: q, Results: hits}
}

func emptyRegistry() models.RegistryOutcome {
	return models.RegistryOutcome{Success: true, Hits: []models.RegistryHit{}}
}

func registryWith(hits ...models.RegistryHit) models.RegistryOutcome {
	return models.RegistryOutcome{Success: true, Hits: hits, Total: len(hits)}
}

// relevantHit is a trusted hit that comfortably clears the threshold.
func relevantHit(n int) models.WebResult {
	return webHit(
		"Jane Doe sanctions report",
		fmt.Sprintf("Report %d: regulators confirmed Jane Doe is subject to sanctions and an investigation.", n),
		fmt.Sprintf("https://www.reuters.com/world/story-%d", n),
	)
}

// =============================================================================
// Constructor
// =============================================================================

func (s *AggregatorSuite) TestNew() {
	s.Run("nil filter returns error", func() {
		_, err := New(nil)
		s.Require().Error(err)
		s.Contains(err.Error(), "trust filter is required")
	})
}

// =============================================================================
// Scenarios
// =============================================================================

func (s *AggregatorSuite) TestWebOnlyHit() {
	hit := webHit("Jane Doe added to sanctions list",
		"Officials confirmed that Jane Doe was added to the sanctions list this week.",
		"https://www.bbc.com/news/world-1")

	f := s.agg.Aggregate("Jane Doe", emptyRegistry(), searchOf(generalQuery, hit))

	s.True(f.Found)
	s.Equal("Found in web search (1 results)", f.Summary)
	s.Require().Len(f.Results, 1)
	item := f.Results[0]
	s.Equal(models.SourceWeb, item.Source)
	s.Require().NotNil(item.Web)
	s.Equal("BBC News", item.Web.SourceName)
	s.True(item.Web.Trusted)
	s.Greater(item.Web.Relevance, 0.5)
	s.Equal(models.StatusCompleted, f.ProcessingStatus)
	s.Equal(testutil.FixedTime.Unix(), f.Timestamp)
	s.Equal([]string{RecReviewSources}, f.Recommendations)
}

func (s *AggregatorSuite) TestUntrustedHitExcluded() {
	hit := webHit("sanctions wanted John Smith",
		"John Smith is wanted for sanctions evasion according to this blog post about fraud.",
		"https://randomblog.com/john-smith")

	f := s.agg.Aggregate("John Smith", emptyRegistry(), searchOf(generalQuery, hit))

	s.False(f.Found)
	s.Empty(f.Results)
	s.Equal(SummaryNothingFound, f.Summary)
	s.Equal([]string{RecTryVariations}, f.Recommendations)
}

func (s *AggregatorSuite) TestRegistryRateLimitedDegrades() {
	reg := models.RegistryFailure("OpenSanctions API rate limit exceeded for this month. Please try again later or upgrade your subscription.")

	f := s.agg.Aggregate("Jane Doe", reg, searchOf(generalQuery, relevantHit(1)))

	s.True(f.Found)
	s.Contains(f.Summary, "Degraded results")
	s.Contains(f.Summary, "rate limit exceeded")
	s.Contains(f.Summary, "1 source(s) found")
	s.Equal(reg.Error, f.Sources.Registry.Error)
	s.True(f.Sources.WebSearch.Found)
}

func (s *AggregatorSuite) TestBothSourcesFailed() {
	reg := models.RegistryFailure("Timeout")
	search := models.SearchFailure(generalQuery, "Timeout")

	f := s.agg.Aggregate("Jane Doe", reg, search)

	s.False(f.Found)
	s.Equal("Degraded results: registry unavailable (Timeout). 0 source(s) found.", f.Summary)
	s.Equal("Timeout", f.Sources.WebSearch.Error)
}

// =============================================================================
// Ranking
// =============================================================================

func (s *AggregatorSuite) TestRankDropsBelowThreshold() {
	boiler := webHit("Privacy Policy",
		"Read our privacy policy and terms of service before you sign up for the newsletter.",
		"https://www.bbc.com/privacy")

	ranked := s.agg.Rank("Jane Doe", nil, searchOf(generalQuery, boiler, relevantHit(1)))

	s.Require().Len(ranked, 1)
	s.Equal("https://www.reuters.com/world/story-1", ranked[0].Link)
}

func (s *AggregatorSuite) TestRankDedupesKeepingHighestWeightQuery() {
	sanctionsQuery := models.PlannedQuery{Text: "q2", Context: models.ContextSanctions, PriorWeight: 0.8}

	ranked := s.agg.Rank("Jane Doe", nil,
		searchOf(generalQuery, relevantHit(1)),
		searchOf(sanctionsQuery, relevantHit(1)),
	)

	s.Require().Len(ranked, 1)
	s.Equal(models.ContextSanctions, ranked[0].QueryContext)
}

func (s *AggregatorSuite) TestRankIsStableAndCapped() {
	hits := make([]models.WebResult, 0, 7)
	for i := range 7 {
		hits = append(hits, relevantHit(i))
	}

	ranked := s.agg.Rank("Jane Doe", nil, searchOf(generalQuery, hits...))

	s.Require().Len(ranked, MaxWebResults)
	for i, r := range ranked {
		s.Equal(hits[i].Link, r.Link, "ties keep arrival order")
	}
}

func (s *AggregatorSuite) TestRankSortsByRelevance() {
	weak := webHit("Doe indicted", "Doe indicted in federal court", "https://apnews.com/a")
	strong := relevantHit(2)

	ranked := s.agg.Rank("Jane Doe", nil, searchOf(generalQuery, weak, strong))

	s.Require().Len(ranked, 2)
	s.Equal(strong.Link, ranked[0].Link)
	s.GreaterOrEqual(ranked[0].Relevance, ranked[1].Relevance)
}

func (s *AggregatorSuite) TestRankLogsDiscardedHits() {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	agg, err := New(trust.New(), WithLogger(logger))
	s.Require().NoError(err)
	untrusted := webHit("Jane Doe", "Jane Doe sanctions", "https://randomblog.com/jane")

	ranked := agg.Rank("Jane Doe", nil, searchOf(generalQuery, relevantHit(1), untrusted))

	s.Len(ranked, 1)
	var entry map[string]any
	s.Require().NoError(json.Unmarshal(buf.Bytes(), &entry))
	s.Equal("web hits ranked", entry["msg"])
	s.EqualValues(1, entry["kept"])
	s.EqualValues(1, entry["untrusted"])
	s.EqualValues(0, entry["below_threshold"])
}

func (s *AggregatorSuite) TestRankIgnoresFailedSearches() {
	failed := models.SearchOutcome{Success: false, Query: generalQuery, Results: []models.WebResult{relevantHit(1)}}

	s.Empty(s.agg.Rank("Jane Doe", nil, failed))
}

// =============================================================================
// Merge and pairing
// =============================================================================

func (s *AggregatorSuite) TestRegistryHitsAreCappedAndAlwaysIncluded() {
	hits := make([]models.RegistryHit, 0, 5)
	for i := range 5 {
		hits = append(hits, models.RegistryHit{ID: fmt.Sprint(i), Name: "Jane Doe"})
	}

	f := s.agg.Aggregate("Jane Doe", registryWith(hits...))

	s.True(f.Found)
	s.Require().Len(f.Results, MaxRegistryResults)
	for _, it := range f.Results {
		s.Equal(models.SourceRegistry, it.Source)
		s.Nil(it.Web)
	}
	s.Equal("Found in Registry (5 records)", f.Summary)
}

func (s *AggregatorSuite) TestFindingOwnsRegistrySlices() {
	reg := registryWith(models.RegistryHit{
		ID:        "a",
		Name:      "Jane Doe",
		Countries: []string{"ru"},
		Datasets:  []string{"us_ofac_sdn"},
		Topics:    []string{"sanction"},
	})

	f := s.agg.Aggregate("Jane Doe", reg)
	reg.Hits[0].Countries[0] = "xx"
	reg.Hits[0].Datasets[0] = "xx"
	reg.Hits[0].Topics[0] = "xx"

	s.Require().Len(f.Results, 1)
	got := f.Results[0].Registry
	s.Require().NotNil(got)
	s.Equal([]string{"ru"}, got.Countries)
	s.Equal([]string{"us_ofac_sdn"}, got.Datasets)
	s.Equal([]string{"sanction"}, got.Topics)
}

func (s *AggregatorSuite) TestPairingReusesTopWebHit() {
	reg := registryWith(
		models.RegistryHit{ID: "a", Name: "Jane Doe"},
		models.RegistryHit{ID: "b", Name: "Jane A. Doe"},
	)

	f := s.agg.Aggregate("Jane Doe", reg, searchOf(generalQuery, relevantHit(1)))

	s.Require().Len(f.Results, 2)
	for _, it := range f.Results {
		s.Equal(models.SourceCombined, it.Source)
		s.Require().NotNil(it.Web)
		s.Equal("https://www.reuters.com/world/story-1", it.Web.Link)
	}
	s.Equal("Found in Registry (2 records) and web search (1 results)", f.Summary)
}

func (s *AggregatorSuite) TestPairingByPositionThenStandalone() {
	reg := registryWith(
		models.RegistryHit{ID: "a", Name: "Jane Doe"},
		models.RegistryHit{ID: "b", Name: "Jane Doe"},
	)
	webHits := []models.WebResult{relevantHit(0), relevantHit(1), relevantHit(2), relevantHit(3), relevantHit(4)}

	f := s.agg.Aggregate("Jane Doe", reg, searchOf(generalQuery, webHits...))

	s.Require().Len(f.Results, MaxItems)
	s.Equal(webHits[0].Link, f.Results[0].Web.Link)
	s.Equal(webHits[1].Link, f.Results[1].Web.Link)
	for i := 2; i < MaxItems; i++ {
		s.Equal(models.SourceWeb, f.Results[i].Source)
		s.Nil(f.Results[i].Registry)
		s.Equal(webHits[i].Link, f.Results[i].Web.Link)
	}
}

// =============================================================================
// Recommendations
// =============================================================================

func (s *AggregatorSuite) TestRecommendationsOrderAndCap() {
	reg := registryWith(models.RegistryHit{
		ID: "a", Name: "Jane Doe", Notes: "Subject of an Interpol red notice; wanted for fraud.",
	})

	f := s.agg.Aggregate("Jane Doe", reg)

	s.Equal([]string{RecEnhancedDueDiligence, RecVerifyOfficial, RecReviewSources}, f.Recommendations)
	s.Contains(f.Results[0].Description, "wanted")
}

func (s *AggregatorSuite) TestDescribeHitFallsBackToAttributes() {
	reg := registryWith(models.RegistryHit{
		ID: "a", Name: "Jane Doe", Datasets: []string{"us_ofac_sdn"}, Countries: []string{"ir"},
	})

	f := s.agg.Aggregate("Jane Doe", reg)

	s.Equal("Dataset: us_ofac_sdn; Country: ir", f.Results[0].Description)
}

// =============================================================================
// Determinism
// =============================================================================

func (s *AggregatorSuite) TestAggregateIsDeterministic() {
	reg := registryWith(models.RegistryHit{ID: "a", Name: "Jane Doe", Countries: []string{"us"}, Datasets: []string{"sanctions"}})
	searches := []models.SearchOutcome{
		searchOf(generalQuery, relevantHit(3), relevantHit(1), relevantHit(2)),
		searchOf(models.PlannedQuery{Text: "q2", Context: models.ContextSanctions, PriorWeight: 0.8}, relevantHit(4)),
	}

	first, err := json.Marshal(s.agg.Aggregate("Jane Doe", reg, searches...))
	s.Require().NoError(err)
	second, err := json.Marshal(s.agg.Aggregate("Jane Doe", reg, searches...))
	s.Require().NoError(err)

	s.JSONEq(string(first), string(second))
}
