package evolve

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/evolve/internal/core/config"
	"github.com/colonyops/evolve/internal/core/evolution"
	"github.com/colonyops/evolve/internal/core/logging"
)

// TaskRunner drives a single task to an outcome.
type TaskRunner interface {
	Run(ctx context.Context, task evolution.Task, version int) (evolution.Outcome, error)
}

// VersionSource mints the version for the next task.
type VersionSource interface {
	Next() (int, error)
}

// Loop polls the task queue and hands eligible tasks to a TaskRunner.
type Loop struct {
	queue    evolution.TaskQueue
	versions VersionSource
	runner   TaskRunner
	labels   config.LabelConfig
	poll     time.Duration
	backoff  time.Duration
	log      zerolog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewLoop(
	queue evolution.TaskQueue,
	versions VersionSource,
	runner TaskRunner,
	labels config.LabelConfig,
	loop config.LoopConfig,
	log zerolog.Logger,
) *Loop {
	return &Loop{
		queue:    queue,
		versions: versions,
		runner:   runner,
		labels:   labels,
		poll:     loop.PollInterval,
		backoff:  loop.ErrorBackoff,
		log:      log,
		sleep:    sleepCtx,
	}
}

// Run scans until a task succeeds, returning the handoff to the new version,
// or until ctx is cancelled, returning nil. Cancellation is observed only
// between scans; a scan in progress runs to completion.
func (l *Loop) Run(ctx context.Context) (*evolution.Handoff, error) {
	for {
		if ctx.Err() != nil {
			return nil, nil
		}

		handoff, err := l.Scan(context.WithoutCancel(ctx))
		if handoff != nil {
			return handoff, nil
		}

		wait := l.poll
		if err != nil {
			l.log.Error().Err(err).Dur("backoff", l.backoff).Msg("scan failed")
			wait = l.backoff
		}

		if err := l.sleep(ctx, wait); err != nil {
			return nil, nil
		}
	}
}

// Scan processes open tasks in tracker order until one succeeds. Tasks left
// after a success are picked up by the next generation.
func (l *Loop) Scan(ctx context.Context) (*evolution.Handoff, error) {
	tasks, err := l.queue.ListTasks(ctx, l.labels.Task)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	for _, task := range tasks {
		if task.HasLabel(l.labels.Failed) && !task.HasLabel(l.labels.Retry) {
			l.log.Debug().Int("task", task.Number).Msg("skipping failed task")
			continue
		}

		version, err := l.versions.Next()
		if err != nil {
			return nil, fmt.Errorf("next version: %w", err)
		}
		tctx := logging.WithVersion(logging.WithTask(ctx, task.Number), version)

		if task.HasLabel(l.labels.Retry) {
			l.log.Info().Ctx(tctx).Str("title", task.Title).Msg("retrying task")
			for _, label := range []string{l.labels.Failed, l.labels.Retry} {
				if err := l.queue.RemoveLabel(ctx, task.Number, label); err != nil {
					return nil, fmt.Errorf("clear retry labels on #%d: %w", task.Number, err)
				}
			}
		} else {
			l.log.Info().Ctx(tctx).Str("title", task.Title).Msg("processing task")
		}

		outcome, err := l.runner.Run(ctx, task, version)
		if err != nil {
			return nil, fmt.Errorf("task #%d: %w", task.Number, err)
		}

		if outcome.Succeeded {
			l.log.Info().Ctx(tctx).Str("artifact", outcome.Artifact).Msg("complete, switching to new version")
			return &evolution.Handoff{
				Version:  outcome.Version,
				Artifact: outcome.Artifact,
				Task:     task.Number,
			}, nil
		}
	}

	return nil, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
