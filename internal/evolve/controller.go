package evolve

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/evolve/internal/core/evolution"
	"github.com/colonyops/evolve/internal/core/logging"
)

// ScriptBuilder applies a generated script to produce an artifact.
type ScriptBuilder interface {
	Build(ctx context.Context, script string, version int, currentAgent string) (string, error)
	Discard(version int) error
}

// ArtifactValidator smoke-tests an artifact.
type ArtifactValidator interface {
	Validate(ctx context.Context, artifact string) bool
}

// TaskPublisher reports task outcomes to version control and the tracker.
type TaskPublisher interface {
	PublishSuccess(ctx context.Context, task evolution.Task, version, attempt int) (evolution.PullRequest, error)
	PublishGiveUp(ctx context.Context, task evolution.Task, attempts int, lastErr string) error
}

// ControllerConfig wires a Controller.
type ControllerConfig struct {
	Agent            string // path of the running agent
	SystemPromptPath string // optional
	MaxRetries       int
	Layout           evolution.Layout
}

// Controller drives one task through bounded generate/build/validate attempts.
type Controller struct {
	cfg       ControllerConfig
	generator Generator
	builder   ScriptBuilder
	validator ArtifactValidator
	publisher TaskPublisher
	journal   evolution.Journal
	log       zerolog.Logger
	now       func() time.Time
}

func NewController(
	cfg ControllerConfig,
	generator Generator,
	builder ScriptBuilder,
	validator ArtifactValidator,
	publisher TaskPublisher,
	journal evolution.Journal,
	log zerolog.Logger,
) *Controller {
	if journal == nil {
		journal = evolution.NopJournal{}
	}
	return &Controller{
		cfg:       cfg,
		generator: generator,
		builder:   builder,
		validator: validator,
		publisher: publisher,
		journal:   journal,
		log:       log,
		now:       time.Now,
	}
}

// Run attempts task up to MaxRetries times, every attempt targeting version.
// A returned error is either a failure to read the running agent or a
// *evolution.PublishError; attempt failures are folded into the Outcome.
func (c *Controller) Run(ctx context.Context, task evolution.Task, version int) (evolution.Outcome, error) {
	ctx = logging.WithVersion(logging.WithTask(ctx, task.Number), version)
	outcome := evolution.Outcome{Task: task, Version: version, Artifact: c.cfg.Layout.Artifact(version)}

	source, err := os.ReadFile(c.cfg.Agent)
	if err != nil {
		return outcome, fmt.Errorf("read running agent: %w", err)
	}
	systemPrompt := c.systemPrompt(ctx)

	var previous *evolution.Attempt
	for k := 1; k <= c.cfg.MaxRetries; k++ {
		actx := logging.WithAttempt(ctx, k)
		start := c.now()

		if k == 1 {
			c.log.Info().Ctx(actx).Msgf("generating evolution script (attempt %d/%d)", k, c.cfg.MaxRetries)
		} else {
			c.log.Info().Ctx(actx).Msgf("retry %d/%d: generating new approach", k, c.cfg.MaxRetries)
		}

		attempt := c.attempt(actx, task, version, k, string(source), systemPrompt, previous)
		c.record(actx, task, version, attempt, start)

		if !attempt.Failed() {
			c.log.Info().Ctx(actx).Msg("self-check passed, publishing")

			pr, err := c.publisher.PublishSuccess(actx, task, version, k)
			if err != nil {
				// The task is retried on a later scan with the same version.
				if derr := c.builder.Discard(version); derr != nil {
					c.log.Warn().Ctx(actx).Err(derr).Msg("failed to discard unpublished version")
				}
				outcome.Attempt = k
				return outcome, err
			}

			c.recordStatus(actx, task, version, k, evolution.StatusPublished, "", pr.URL, start)
			outcome.Succeeded = true
			outcome.Attempt = k
			outcome.PullRequest = pr
			return outcome, nil
		}

		c.log.Warn().Ctx(actx).Str("error", attempt.Err).Msgf("attempt %d/%d failed", k, c.cfg.MaxRetries)
		previous = &attempt
	}

	lastErr := previous.Err
	if err := c.builder.Discard(version); err != nil {
		c.log.Warn().Ctx(ctx).Err(err).Msg("failed to discard abandoned version")
	}

	start := c.now()
	if err := c.publisher.PublishGiveUp(ctx, task, c.cfg.MaxRetries, lastErr); err != nil {
		outcome.Attempt = c.cfg.MaxRetries
		outcome.LastError = lastErr
		return outcome, err
	}
	c.recordStatus(ctx, task, version, c.cfg.MaxRetries, evolution.StatusGivenUp, lastErr, "", start)
	c.log.Warn().Ctx(ctx).Msg("giving up, task left open for review")

	outcome.Attempt = c.cfg.MaxRetries
	outcome.LastError = lastErr
	return outcome, nil
}

func (c *Controller) attempt(
	ctx context.Context,
	task evolution.Task,
	version, index int,
	source, systemPrompt string,
	previous *evolution.Attempt,
) evolution.Attempt {
	attempt := evolution.Attempt{Index: index}

	script, err := c.generator.Generate(ctx, Request{
		Task:         task,
		Filename:     filepath.Base(c.cfg.Agent),
		Source:       source,
		Layout:       c.cfg.Layout,
		SystemPrompt: systemPrompt,
		Previous:     previous,
	})
	if err != nil {
		attempt.Err = err.Error()
		return attempt
	}
	attempt.Script = script

	c.log.Info().Ctx(ctx).Msgf("creating version %d", version)
	artifact, err := c.builder.Build(ctx, script, version, c.cfg.Agent)
	if err != nil {
		attempt.Err = err.Error()
		return attempt
	}

	c.log.Info().Ctx(ctx).Str("artifact", artifact).Msg("testing new version")
	if !c.validator.Validate(ctx, artifact) {
		attempt.Err = evolution.SelfCheckFailed
	}

	return attempt
}

func (c *Controller) systemPrompt(ctx context.Context) string {
	if c.cfg.SystemPromptPath == "" {
		return ""
	}

	data, err := os.ReadFile(c.cfg.SystemPromptPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.log.Warn().Ctx(ctx).Err(err).Msg("failed to read system prompt, continuing without it")
		}
		return ""
	}
	return string(data)
}

func (c *Controller) record(ctx context.Context, task evolution.Task, version int, attempt evolution.Attempt, start time.Time) {
	status := evolution.StatusSucceeded
	if attempt.Failed() {
		status = evolution.StatusFailed
	}

	c.write(ctx, evolution.JournalEntry{
		Task:      task.Number,
		Title:     task.Title,
		Version:   version,
		Attempt:   attempt.Index,
		Status:    status,
		Error:     attempt.Err,
		Script:    attempt.Script,
		StartedAt: start,
		Duration:  c.now().Sub(start),
	})
}

func (c *Controller) recordStatus(ctx context.Context, task evolution.Task, version, attempt int, status evolution.EntryStatus, errMsg, detail string, start time.Time) {
	c.write(ctx, evolution.JournalEntry{
		Task:      task.Number,
		Title:     task.Title,
		Version:   version,
		Attempt:   attempt,
		Status:    status,
		Error:     errMsg,
		Detail:    detail,
		StartedAt: start,
		Duration:  c.now().Sub(start),
	})
}

func (c *Controller) write(ctx context.Context, entry evolution.JournalEntry) {
	if err := c.journal.Record(ctx, entry); err != nil {
		c.log.Warn().Ctx(ctx).Err(err).Msg("failed to journal attempt")
	}
}
