package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"screener/internal/screening/metrics"
	"screener/internal/screening/models"
)

// MsgTimeout replaces the outcome of a source that missed the join barrier.
const MsgTimeout = "Timeout"

// parallel runs the registry call and the planned web searches side by
// side and waits at most s.timeout. A source that misses the barrier is
// replaced by a timeout failure and left to finish on its own. The web
// query is planned without registry context. A panic in either branch is
// returned as an error so the caller can fall back.
func (s *Service) parallel(ctx context.Context, q models.EntityQuery) (models.RegistryOutcome, []models.SearchOutcome, error) {
	entity := q.String()
	queries := s.planner.Plan(entity, nil)

	regCh := make(chan models.RegistryOutcome, 1)
	webCh := make(chan []models.SearchOutcome, 1)
	panicCh := make(chan any, 2)

	go func() {
		defer recoverInto(panicCh)
		regCh <- s.callRegistry(ctx, q)
	}()
	go func() {
		defer recoverInto(panicCh)
		webCh <- s.searchAll(ctx, queries, entity)
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	var (
		reg      models.RegistryOutcome
		searches []models.SearchOutcome
		gotReg   bool
		gotWeb   bool
	)
	for !gotReg || !gotWeb {
		select {
		case reg = <-regCh:
			gotReg = true
		case searches = <-webCh:
			gotWeb = true
		case p := <-panicCh:
			return models.RegistryOutcome{}, nil, fmt.Errorf("parallel dispatch panicked: %v", p)
		case <-timer.C:
			if !gotReg {
				s.metrics.IncrementSourceOutcome(metrics.SourceRegistry, "timeout")
				s.logger.WarnContext(ctx, "registry missed the join barrier", "entity", entity, "timeout", s.timeout)
				reg = models.RegistryFailure(MsgTimeout)
			}
			if !gotWeb {
				s.metrics.IncrementSourceOutcome(metrics.SourceWebSearch, "timeout")
				s.logger.WarnContext(ctx, "web search missed the join barrier", "entity", entity, "timeout", s.timeout)
				searches = timedOut(queries)
			}
			return reg, searches, nil
		}
	}
	return reg, searches, nil
}

// sequential runs the registry first and plans the web query from its
// result. There is no join barrier; each client's own timeout applies.
func (s *Service) sequential(ctx context.Context, q models.EntityQuery) (models.RegistryOutcome, []models.SearchOutcome) {
	entity := q.String()
	reg := s.callRegistry(ctx, q)
	queries := s.planner.Plan(entity, &reg)

	searches := make([]models.SearchOutcome, 0, len(queries))
	for _, pq := range queries {
		searches = append(searches, s.callWeb(ctx, pq, entity))
	}
	return reg, searches
}

// searchAll runs every planned query concurrently and returns outcomes in
// plan order.
func (s *Service) searchAll(ctx context.Context, queries []models.PlannedQuery, entity string) []models.SearchOutcome {
	out := make([]models.SearchOutcome, len(queries))
	if len(queries) == 1 {
		out[0] = s.callWeb(ctx, queries[0], entity)
		return out
	}

	var (
		wg       sync.WaitGroup
		panicked any
		mu       sync.Mutex
	)
	for i, pq := range queries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					panicked = r
					mu.Unlock()
				}
			}()
			out[i] = s.callWeb(ctx, pq, entity)
		}()
	}
	wg.Wait()
	if panicked != nil {
		panic(panicked)
	}
	return out
}

func (s *Service) callRegistry(ctx context.Context, q models.EntityQuery) models.RegistryOutcome {
	start := time.Now()
	out := s.registry.Search(ctx, q)
	s.metrics.ObserveSource(metrics.SourceRegistry, time.Since(start), resultLabel(out.Success))
	return out
}

func (s *Service) callWeb(ctx context.Context, pq models.PlannedQuery, entity string) models.SearchOutcome {
	start := time.Now()
	out := s.web.Search(ctx, pq, entity)
	s.metrics.ObserveSource(metrics.SourceWebSearch, time.Since(start), resultLabel(out.Success))
	return out
}

func timedOut(queries []models.PlannedQuery) []models.SearchOutcome {
	out := make([]models.SearchOutcome, 0, len(queries))
	for _, pq := range queries {
		out = append(out, models.SearchFailure(pq, MsgTimeout))
	}
	return out
}

func recoverInto(ch chan<- any) {
	if r := recover(); r != nil {
		ch <- r
	}
}

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
