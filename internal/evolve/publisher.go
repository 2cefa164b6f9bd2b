package evolve

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/colonyops/evolve/internal/core/config"
	"github.com/colonyops/evolve/internal/core/evolution"
	"github.com/colonyops/evolve/internal/core/git"
	"github.com/colonyops/evolve/pkg/tmpl"
)

var (
	prBodyTemplate = tmpl.MustParse(`**Automated evolution from agent**

Task: {{ .Task.Title }}

This PR was automatically created by the self-modifying agent. Review the changes and merge to deploy the new version.

**Review checklist:**
- [ ] Evolution script looks safe (` + "`{{ .Record }}`" + `)
- [ ] New agent code is reasonable (` + "`{{ .Artifact }}`" + `)
- [ ] No secrets or credentials exposed
- [ ] Tests pass (agent ran ` + "`{{ .SelfCheck }}`" + ` successfully)
`)

	successTemplate = tmpl.MustParse(`✓ Successfully created PR for v{{ .Version }}
{{- if gt .Attempt 1 }} (succeeded on attempt {{ .Attempt }}){{ end }}
{{- if .URL }}

{{ .URL }}{{ end }}`)

	giveUpTemplate = tmpl.MustParse(`✗ Failed after {{ .Attempts }} attempts.

Last error: {{ .LastError }}

**Leaving issue open for human review.**

You can:
- Add the ` + "`{{ .RetryLabel }}`" + ` label to try again
- Close the issue if task is no longer needed
- Manually implement and close the issue`)
)

// Publisher records task outcomes in version control and on the tracker.
type Publisher struct {
	git       git.Git
	queue     evolution.TaskQueue
	hosting   evolution.Hosting
	layout    evolution.Layout
	dir       string
	remote    string
	base      string
	labels    config.LabelConfig
	selfCheck string
	exclude   []string
	log       zerolog.Logger
}

// PublisherConfig holds the repository coordinates a Publisher works against.
type PublisherConfig struct {
	Dir       string
	Remote    string
	Base      string
	Layout    evolution.Layout
	Labels    config.LabelConfig
	SelfCheck string   // flag named in the review checklist
	Exclude   []string // work tree paths never staged, relative to Dir
}

func NewPublisher(cfg PublisherConfig, g git.Git, queue evolution.TaskQueue, hosting evolution.Hosting, log zerolog.Logger) *Publisher {
	return &Publisher{
		git:       g,
		queue:     queue,
		hosting:   hosting,
		layout:    cfg.Layout,
		dir:       cfg.Dir,
		remote:    cfg.Remote,
		base:      cfg.Base,
		labels:    cfg.Labels,
		selfCheck: cfg.SelfCheck,
		exclude:   cfg.Exclude,
		log:       log,
	}
}

var _ TaskPublisher = (*Publisher)(nil)

// PublishSuccess commits the work tree to a fresh evolution branch, opens a
// pull request, reports back on the task and closes it. The first failing
// step aborts the sequence and is returned as *evolution.PublishError.
//
// The work tree keeps the committed files after switching back to the base
// branch, so the new version stays runnable before the pull request merges.
func (p *Publisher) PublishSuccess(ctx context.Context, task evolution.Task, version, attempt int) (evolution.PullRequest, error) {
	branch := p.layout.Branch(version)

	var branched, committed bool
	steps := []struct {
		name string
		fn   func() error
	}{
		{"checkout " + p.base, func() error { return p.git.Checkout(ctx, p.dir, p.base) }},
		{"pull", func() error { return p.git.Pull(ctx, p.dir) }},
		{"create branch", func() error {
			err := p.git.CreateBranch(ctx, p.dir, branch)
			branched = err == nil
			return err
		}},
		{"add", func() error { return p.git.AddAll(ctx, p.dir, p.exclude...) }},
		{"commit", func() error {
			err := p.git.Commit(ctx, p.dir, fmt.Sprintf("v%d: %s", version, task.Title))
			committed = err == nil
			return err
		}},
		{"push", func() error { return p.git.Push(ctx, p.dir, p.remote, branch) }},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			if branched {
				p.abandon(ctx, branch, committed)
			}
			return evolution.PullRequest{}, &evolution.PublishError{Step: step.name, Err: err}
		}
	}

	body, err := tmpl.Render(prBodyTemplate, map[string]any{
		"Task":      task,
		"Record":    p.layout.Record(version),
		"Artifact":  p.layout.Artifact(version),
		"SelfCheck": p.selfCheck,
	})
	if err != nil {
		p.abandon(ctx, branch, true)
		return evolution.PullRequest{}, &evolution.PublishError{Step: "render pull request", Err: err}
	}

	pr, err := p.hosting.OpenPullRequest(ctx, evolution.PullRequestSpec{
		Title: fmt.Sprintf("Agent Evolution v%d: %s", version, task.Title),
		Body:  body,
		Head:  branch,
		Base:  p.base,
	})
	if err != nil {
		p.abandon(ctx, branch, true)
		return evolution.PullRequest{}, &evolution.PublishError{Step: "open pull request", Err: err}
	}

	if err := p.git.Checkout(ctx, p.dir, p.base); err != nil {
		return pr, &evolution.PublishError{Step: "checkout " + p.base, Err: err}
	}
	if err := p.git.RestoreFrom(ctx, p.dir, branch, "."); err != nil {
		return pr, &evolution.PublishError{Step: "restore work tree", Err: err}
	}

	comment, err := tmpl.Render(successTemplate, map[string]any{
		"Version": version,
		"Attempt": attempt,
		"URL":     pr.URL,
	})
	if err != nil {
		return pr, &evolution.PublishError{Step: "render comment", Err: err}
	}

	if err := p.queue.Comment(ctx, task.Number, comment); err != nil {
		return pr, &evolution.PublishError{Step: "comment", Err: err}
	}
	if err := p.queue.Close(ctx, task.Number); err != nil {
		return pr, &evolution.PublishError{Step: "close", Err: err}
	}

	p.log.Info().Ctx(ctx).Str("pr", pr.URL).Msg("pull request opened, task closed")
	return pr, nil
}

// PublishGiveUp explains the failure on the task and marks it failed. The
// task stays open.
func (p *Publisher) PublishGiveUp(ctx context.Context, task evolution.Task, attempts int, lastErr string) error {
	comment, err := tmpl.Render(giveUpTemplate, map[string]any{
		"Attempts":   attempts,
		"LastError":  lastErr,
		"RetryLabel": p.labels.Retry,
	})
	if err != nil {
		return &evolution.PublishError{Step: "render comment", Err: err}
	}

	if err := p.queue.Comment(ctx, task.Number, comment); err != nil {
		return &evolution.PublishError{Step: "comment", Err: err}
	}
	if err := p.queue.AddLabel(ctx, task.Number, p.labels.Failed); err != nil {
		return &evolution.PublishError{Step: "label " + p.labels.Failed, Err: err}
	}

	return nil
}

// abandon returns to the base branch after a failed publish and deletes the
// local evolution branch so a retry of the same version can recreate it.
// Committed files are restored into the work tree first.
func (p *Publisher) abandon(ctx context.Context, branch string, committed bool) {
	if err := p.git.Checkout(ctx, p.dir, p.base); err != nil {
		p.log.Warn().Ctx(ctx).Err(err).Msgf("failed to return to %s", p.base)
		return
	}
	if committed {
		if err := p.git.RestoreFrom(ctx, p.dir, branch, "."); err != nil {
			p.log.Warn().Ctx(ctx).Err(err).Msg("failed to restore work tree")
		}
	}
	if err := p.git.DeleteBranch(ctx, p.dir, branch); err != nil {
		p.log.Warn().Ctx(ctx).Err(err).Str("branch", branch).Msg("failed to delete branch")
	}
}
