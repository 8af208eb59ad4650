package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"screener/internal/screening/models"
	"screener/pkg/requestcontext"
)

// CheckBatch screens entities independently, at most batchConcurrency at a
// time. Results are positional. A failing entity yields a failed record in
// its slot and never affects the others.
func (s *Service) CheckBatch(ctx context.Context, entities []string) []*models.AggregatedFinding {
	results := make([]*models.AggregatedFinding, len(entities))

	var g errgroup.Group
	g.SetLimit(s.batchConcurrency)
	for i, entity := range entities {
		g.Go(func() error {
			results[i] = s.Check(ctx, entity)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.ProcessingStatus == models.StatusFailed {
			failed++
		}
	}
	s.logger.InfoContext(ctx, "batch screened",
		"entities", len(entities),
		"failed", failed,
		"request_id", requestcontext.RequestID(ctx),
	)
	return results
}
