package orchestrator

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks RegistrySearcher,WebSearcher,Cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"screener/internal/screening/aggregate"
	"screener/internal/screening/metrics"
	"screener/internal/screening/models"
	"screener/internal/screening/orchestrator/mocks"
	"screener/internal/screening/planner"
	"screener/internal/screening/trust"
	"screener/pkg/platform/sentinel"
	"screener/pkg/testutil"
)

// =============================================================================
// Orchestrator Test Suite
// =============================================================================
// Justification for unit tests: the orchestrator owns the cache contract, the
// timeout barrier, the sequential fallback and batch isolation. Sources and
// cache are mocked; planner and aggregator are the real implementations.

type OrchestratorSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	registry *mocks.MockRegistrySearcher
	web      *mocks.MockWebSearcher
	cache    *mocks.MockCache
	metrics  *metrics.Metrics
	service  *Service
	ctx      context.Context
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func (s *OrchestratorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.registry = mocks.NewMockRegistrySearcher(s.ctrl)
	s.web = mocks.NewMockWebSearcher(s.ctrl)
	s.cache = mocks.NewMockCache(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.ctx = context.Background()
	s.service = s.newService(WithCache(s.cache, time.Hour))
}

func (s *OrchestratorSuite) newService(opts ...Option) *Service {
	agg, err := aggregate.New(trust.New(), aggregate.WithClock(testutil.FixedClock))
	s.Require().NoError(err)
	base := []Option{WithMetrics(s.metrics), WithTimeout(time.Second)}
	svc, err := New(s.registry, s.web, planner.New(), agg, append(base, opts...)...)
	s.Require().NoError(err)
	return svc
}

func (s *OrchestratorSuite) TearDownTest() {
	s.ctrl.Finish()
}

var sanctionsHit = models.WebResult{
	Title:   "Jane Doe sanctions report",
	Snippet: "Regulators confirmed Jane Doe is subject to sanctions and an ongoing investigation.",
	Link:    "https://www.reuters.com/world/jane-doe",
	Domain:  "reuters.com",
}

func webReturning(hits ...models.WebResult) func(context.Context, models.PlannedQuery, string) models.SearchOutcome {
	return func(_ context.Context, q models.PlannedQuery, _ string) models.SearchOutcome {
		if len(hits) == 0 {
			return models.SearchFailure(q, "No search results found")
		}
		return models.SearchOutcome{Success: true, Query: q, Results: hits}
	}
}

func emptyRegistry() models.RegistryOutcome {
	return models.RegistryOutcome{Success: true, Hits: []models.RegistryHit{}}
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *OrchestratorSuite) TestNew() {
	agg, _ := aggregate.New(trust.New())
	p := planner.New()

	s.Run("nil registry", func() {
		_, err := New(nil, s.web, p, agg)
		s.ErrorContains(err, "registry searcher is required")
	})
	s.Run("nil web", func() {
		_, err := New(s.registry, nil, p, agg)
		s.ErrorContains(err, "web searcher is required")
	})
	s.Run("nil planner", func() {
		_, err := New(s.registry, s.web, nil, agg)
		s.ErrorContains(err, "query planner is required")
	})
	s.Run("nil aggregator", func() {
		_, err := New(s.registry, s.web, p, nil)
		s.ErrorContains(err, "aggregator is required")
	})
}

// =============================================================================
// Cache contract
// =============================================================================

func (s *OrchestratorSuite) TestCacheHitSkipsSources() {
	cached := &models.AggregatedFinding{EntityName: "Jane Doe", Found: true, Summary: "cached", ProcessingStatus: models.StatusCompleted}
	s.cache.EXPECT().Get(gomock.Any(), "Jane Doe").Return(cached, nil)

	got := s.service.Check(s.ctx, "  Jane Doe ")

	s.Same(cached, got)
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.CacheLookups.WithLabelValues("hit")))
}

func (s *OrchestratorSuite) TestCacheMissRunsPipelineAndStores() {
	s.cache.EXPECT().Get(gomock.Any(), "Jane Doe").Return(nil, sentinel.ErrNotFound)
	s.registry.EXPECT().Search(gomock.Any(), models.MustEntityQuery("Jane Doe")).Return(emptyRegistry())
	s.web.EXPECT().Search(gomock.Any(), gomock.Any(), "Jane Doe").DoAndReturn(webReturning(sanctionsHit))
	s.cache.EXPECT().Set(gomock.Any(), "Jane Doe", gomock.Any(), time.Hour).Return(nil)

	got := s.service.Check(s.ctx, "Jane Doe")

	s.True(got.Found)
	s.Equal("Found in web search (1 results)", got.Summary)
	s.Equal(models.StatusCompleted, got.ProcessingStatus)
}

func (s *OrchestratorSuite) TestCacheErrorsAreSoft() {
	s.cache.EXPECT().Get(gomock.Any(), "Jane Doe").Return(nil, errors.New("connection refused"))
	s.registry.EXPECT().Search(gomock.Any(), gomock.Any()).Return(emptyRegistry())
	s.web.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(webReturning())
	s.cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))

	got := s.service.Check(s.ctx, "Jane Doe")

	s.False(got.Found)
	s.Equal(aggregate.SummaryNothingFound, got.Summary)
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.CacheLookups.WithLabelValues("error")))
}

func (s *OrchestratorSuite) TestWithoutCache() {
	svc := s.newService()
	s.registry.EXPECT().Search(gomock.Any(), gomock.Any()).Return(emptyRegistry())
	s.web.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(webReturning(sanctionsHit))

	got := svc.Check(s.ctx, "Jane Doe")

	s.True(got.Found)
	s.False(svc.CacheConnected(s.ctx))
	s.ErrorIs(svc.FlushCache(s.ctx), sentinel.ErrUnavailable)
}

func (s *OrchestratorSuite) TestBlankEntityIsRejected() {
	got := s.service.Check(s.ctx, "   ")

	s.False(got.Found)
	s.Equal(models.StatusFailed, got.ProcessingStatus)
	s.Equal(MsgInvalidEntity, got.Summary)
	s.Empty(got.Results)
}

// =============================================================================
// Strategies
// =============================================================================

func (s *OrchestratorSuite) TestParallelPlansWithoutRegistryData() {
	svc := s.newService()
	s.registry.EXPECT().Search(gomock.Any(), gomock.Any()).Return(models.RegistryOutcome{
		Success: true,
		Hits:    []models.RegistryHit{{ID: "x", Name: "Jane Doe", Datasets: []string{"interpol_wanted"}}},
		Total:   1,
	})
	s.web.EXPECT().Search(gomock.Any(), gomock.Any(), "Jane Doe").
		DoAndReturn(func(_ context.Context, q models.PlannedQuery, _ string) models.SearchOutcome {
			s.Equal(models.ContextGeneral, q.Context)
			return models.SearchFailure(q, "No search results found")
		})

	got := svc.Check(s.ctx, "Jane Doe")

	s.True(got.Found)
	s.Equal(models.SourceRegistry, got.Results[0].Source)
}

func (s *OrchestratorSuite) TestSequentialPlansFromRegistryData() {
	s.registry.EXPECT().Search(gomock.Any(), gomock.Any()).Return(models.RegistryOutcome{
		Success: true,
		Hits:    []models.RegistryHit{{ID: "x", Name: "Jane Doe", Datasets: []string{"interpol_wanted"}}},
		Total:   1,
	})
	s.web.EXPECT().Search(gomock.Any(), gomock.Any(), "Jane Doe").
		DoAndReturn(func(_ context.Context, q models.PlannedQuery, _ string) models.SearchOutcome {
			s.Equal(models.ContextWanted, q.Context)
			return models.SearchFailure(q, "No search results found")
		})

	reg, searches := s.service.sequential(s.ctx, models.MustEntityQuery("Jane Doe"))

	s.True(reg.Found())
	s.Len(searches, 1)
}

func (s *OrchestratorSuite) TestRegistryTimeoutIsSubstituted() {
	svc := s.newService(WithTimeout(50 * time.Millisecond))
	release := make(chan struct{})
	s.T().Cleanup(func() { close(release) })

	s.registry.EXPECT().Search(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.EntityQuery) models.RegistryOutcome {
			<-release
			return emptyRegistry()
		})
	s.web.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(webReturning(sanctionsHit))

	got := svc.Check(s.ctx, "Jane Doe")

	s.True(got.Found)
	s.Equal(MsgTimeout, got.Sources.Registry.Error)
	s.Contains(got.Summary, "Degraded results: registry unavailable (Timeout)")
	s.Contains(got.Summary, "1 source(s) found")
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.SourceOutcome.WithLabelValues(metrics.SourceRegistry, "timeout")))
}

func (s *OrchestratorSuite) TestWebTimeoutIsSubstituted() {
	svc := s.newService(WithTimeout(50 * time.Millisecond))
	release := make(chan struct{})
	s.T().Cleanup(func() { close(release) })

	s.registry.EXPECT().Search(gomock.Any(), gomock.Any()).Return(emptyRegistry())
	s.web.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q models.PlannedQuery, _ string) models.SearchOutcome {
			<-release
			return models.SearchOutcome{Success: true, Query: q, Results: []models.WebResult{sanctionsHit}}
		})

	got := svc.Check(s.ctx, "Jane Doe")

	s.False(got.Found)
	s.Equal(MsgTimeout, got.Sources.WebSearch.Error)
	s.Equal(aggregate.SummaryNothingFound, got.Summary)
}

func (s *OrchestratorSuite) TestPanicFallsBackToSequential() {
	svc := s.newService()
	first := s.registry.EXPECT().Search(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.EntityQuery) models.RegistryOutcome {
			panic("registry client exploded")
		})
	s.registry.EXPECT().Search(gomock.Any(), gomock.Any()).Return(emptyRegistry()).After(first)
	s.web.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(webReturning(sanctionsHit)).MinTimes(1).MaxTimes(2)

	got := svc.Check(s.ctx, "Jane Doe")

	s.True(got.Found)
	s.Equal(models.StatusCompleted, got.ProcessingStatus)
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.StrategyFallbacks))
}

// =============================================================================
// Batch
// =============================================================================

func (s *OrchestratorSuite) TestBatchIsolatesFailures() {
	svc := s.newService(WithBatchConcurrency(2))
	s.registry.EXPECT().Search(gomock.Any(), models.MustEntityQuery("Jane Doe")).Return(emptyRegistry())
	s.registry.EXPECT().Search(gomock.Any(), models.MustEntityQuery("ACME Corp")).
		DoAndReturn(func(context.Context, models.EntityQuery) models.RegistryOutcome {
			panic("boom")
		}).Times(2)
	s.registry.EXPECT().Search(gomock.Any(), models.MustEntityQuery("John Roe")).Return(emptyRegistry())
	s.web.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(webReturning(sanctionsHit)).AnyTimes()

	results := svc.CheckBatch(s.ctx, []string{"Jane Doe", "ACME Corp", "John Roe"})

	s.Require().Len(results, 3)
	s.Equal("Jane Doe", results[0].EntityName)
	s.Equal(models.StatusCompleted, results[0].ProcessingStatus)

	s.Equal("ACME Corp", results[1].EntityName)
	s.Equal(models.StatusFailed, results[1].ProcessingStatus)
	s.False(results[1].Found)
	s.Empty(results[1].Results)
	s.Equal("Processing error: boom", results[1].Summary)

	s.Equal("John Roe", results[2].EntityName)
	s.Equal(models.StatusCompleted, results[2].ProcessingStatus)
}

func (s *OrchestratorSuite) TestBatchBlankEntry() {
	svc := s.newService()
	s.registry.EXPECT().Search(gomock.Any(), gomock.Any()).Return(emptyRegistry())
	s.web.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(webReturning())

	results := svc.CheckBatch(s.ctx, []string{"", "Jane Doe"})

	s.Equal(MsgInvalidEntity, results[0].Summary)
	s.Equal(models.StatusCompleted, results[1].ProcessingStatus)
}

func (s *OrchestratorSuite) TestFlushCache() {
	s.cache.EXPECT().Flush(gomock.Any()).Return(nil)
	s.cache.EXPECT().IsConnected(gomock.Any()).Return(true)

	s.NoError(s.service.FlushCache(s.ctx))
	s.True(s.service.CacheConnected(s.ctx))
}
