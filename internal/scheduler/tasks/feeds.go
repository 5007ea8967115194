package tasks

import (
	"fmt"
	"time"

	"github.com/ludarr/ludarr/internal/feedwatch"
	"github.com/ludarr/ludarr/internal/scheduler"
)

// RegisterFeedTasks registers one polling task per configured feed watcher.
func RegisterFeedTasks(sched *scheduler.Scheduler, watchers []*feedwatch.Watcher, defaultInterval time.Duration) error {
	if defaultInterval <= 0 {
		defaultInterval = 15 * time.Minute
	}

	for _, w := range watchers {
		interval := w.Interval()
		if interval <= 0 {
			interval = defaultInterval
		}
		err := sched.RegisterTask(scheduler.TaskConfig{
			ID:          "feed-" + w.Name(),
			Name:        "Feed Poll: " + w.Name(),
			Description: "Poll the release feed and match entries against monitored titles",
			Interval:    interval,
			RunOnStart:  true,
			Func:        w.Check,
		})
		if err != nil {
			return fmt.Errorf("failed to register feed task %q: %w", w.Name(), err)
		}
	}
	return nil
}
