package tasks

import (
	"context"
	"fmt"

	"github.com/ludarr/ludarr/internal/kvcache"
	"github.com/ludarr/ludarr/internal/review"
	"github.com/ludarr/ludarr/internal/scheduler"
)

const (
	CachePruneTaskID  = "cache-prune"
	ReviewPruneTaskID = "review-prune"
)

// RegisterCachePruneTask registers daily cleanup of expired cache rows.
func RegisterCachePruneTask(sched *scheduler.Scheduler, cache *kvcache.Store) error {
	if cache == nil {
		return nil
	}

	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          CachePruneTaskID,
		Name:        "Cache Prune",
		Description: "Delete expired key/value cache entries",
		Cron:        "0 4 * * *",
		Func: func(ctx context.Context) error {
			if _, err := cache.PruneExpired(ctx); err != nil {
				return fmt.Errorf("failed to prune cache: %w", err)
			}
			return nil
		},
	})
}

// RegisterReviewPruneTask registers daily cleanup of old resolved review
// records. Rejection fingerprints are kept forever.
func RegisterReviewPruneTask(sched *scheduler.Scheduler, queue *review.Queue) error {
	if queue == nil {
		return nil
	}

	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          ReviewPruneTaskID,
		Name:        "Review Prune",
		Description: "Delete resolved review matches past retention",
		Cron:        "30 4 * * *",
		Func: func(ctx context.Context) error {
			_, err := queue.Prune()
			return err
		},
	})
}
