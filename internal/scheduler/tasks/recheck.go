// Package tasks wires the long-running services into named scheduler tasks.
package tasks

import (
	"context"
	"time"

	"github.com/ludarr/ludarr/internal/monitor"
	"github.com/ludarr/ludarr/internal/scheduler"
)

const RecheckTaskID = "monitor-recheck"

// RegisterRecheckTask registers the periodic search over all monitored
// titles that are wanted and not throttled.
func RegisterRecheckTask(sched *scheduler.Scheduler, orch *monitor.Orchestrator, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          RecheckTaskID,
		Name:        "Monitor Recheck",
		Description: "Search release agents for all wanted monitored titles",
		Interval:    interval,
		RunOnStart:  true,
		Func: func(ctx context.Context) error {
			orch.RecheckAll(ctx)
			return nil
		},
	})
}
