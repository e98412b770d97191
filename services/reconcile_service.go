package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SirCraft007/grade-api/database"
	"github.com/SirCraft007/grade-api/services/aggregation"
	"github.com/SirCraft007/grade-api/utils"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ReconcileService recomputes stored summaries from the raw grade rows
type ReconcileService struct {
	repo        *database.GradebookRepository
	pipeline    *aggregation.Pipeline
	concurrency int
	log         *utils.Logger
}

// ReconcileResult summarizes a reconciliation sweep
type ReconcileResult struct {
	Users     int             `json:"users"`
	Succeeded int             `json:"succeeded"`
	Failed    map[uint]string `json:"failed,omitempty"`
	Duration  time.Duration   `json:"duration"`
}

// NewReconcileService creates a reconciler running at most concurrency users at once
func NewReconcileService(db *gorm.DB, pipeline *aggregation.Pipeline, concurrency int, logger *utils.Logger) *ReconcileService {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &ReconcileService{
		repo:        database.NewGradebookRepository(db),
		pipeline:    pipeline,
		concurrency: concurrency,
		log:         logger.With("component", "reconciler"),
	}
}

// RecomputeUser rebuilds every subject summary and the totals of one user
func (s *ReconcileService) RecomputeUser(ctx context.Context, userID uint) (*aggregation.UserSummary, error) {
	summary, err := s.pipeline.Recompute(ctx, userID)
	if err != nil {
		return nil, lookupErr(err)
	}
	return summary, nil
}

// RecomputeAll rebuilds the summaries of every user. A failing user is recorded in the
// result and does not stop the sweep; only a failure to list users or a cancelled
// context is returned as an error.
func (s *ReconcileService) RecomputeAll(ctx context.Context) (*ReconcileResult, error) {
	start := time.Now()

	ids, err := s.repo.ListUserIDs(ctx)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{Users: len(ids), Failed: map[uint]string{}}
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		userID := id
		g.Go(func() error {
			_, err := s.pipeline.Recompute(ctx, userID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[userID] = err.Error()
				s.log.Warn("reconcile failed", "user_id", userID, "error", err)
				return nil
			}
			result.Succeeded++
			return nil
		})
	}
	_ = g.Wait()

	result.Duration = time.Since(start)
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("reconcile interrupted: %w", err)
	}

	s.log.Info("reconcile finished",
		"users", result.Users,
		"succeeded", result.Succeeded,
		"failed", len(result.Failed),
		"duration", result.Duration.String(),
	)
	return result, nil
}
