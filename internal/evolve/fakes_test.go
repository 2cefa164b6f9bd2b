package evolve

import (
	"context"
	"fmt"
	"sync"

	"github.com/colonyops/evolve/internal/core/config"
	"github.com/colonyops/evolve/internal/core/evolution"
)

func testLabels() config.LabelConfig {
	return config.DefaultConfig().Labels
}

// fakeTracker implements evolution.TaskQueue and evolution.Hosting in memory.
type fakeTracker struct {
	mu sync.Mutex

	tasks   []evolution.Task
	listErr error
	prErr   error

	calls    []string
	comments map[int][]string
	closed   map[int]bool
	prs      []evolution.PullRequestSpec
}

func newFakeTracker(tasks ...evolution.Task) *fakeTracker {
	return &fakeTracker{
		tasks:    tasks,
		comments: map[int][]string{},
		closed:   map[int]bool{},
	}
}

func (f *fakeTracker) find(number int) *evolution.Task {
	for i := range f.tasks {
		if f.tasks[i].Number == number {
			return &f.tasks[i]
		}
	}
	return nil
}

func (f *fakeTracker) ListTasks(_ context.Context, label string) ([]evolution.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list "+label)

	if f.listErr != nil {
		return nil, f.listErr
	}

	var out []evolution.Task
	for _, t := range f.tasks {
		if t.HasLabel(label) && !f.closed[t.Number] {
			labels := make(map[string]bool, len(t.Labels))
			for k, v := range t.Labels {
				labels[k] = v
			}
			t.Labels = labels
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTracker) AddLabel(_ context.Context, number int, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("label+ #%d %s", number, label))
	if t := f.find(number); t != nil {
		t.Labels[label] = true
	}
	return nil
}

func (f *fakeTracker) RemoveLabel(_ context.Context, number int, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("label- #%d %s", number, label))
	if t := f.find(number); t != nil {
		delete(t.Labels, label)
	}
	return nil
}

func (f *fakeTracker) Comment(_ context.Context, number int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("comment #%d", number))
	f.comments[number] = append(f.comments[number], body)
	return nil
}

func (f *fakeTracker) Close(_ context.Context, number int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("close #%d", number))
	f.closed[number] = true
	return nil
}

func (f *fakeTracker) OpenPullRequest(_ context.Context, spec evolution.PullRequestSpec) (evolution.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "pr "+spec.Head)
	if f.prErr != nil {
		return evolution.PullRequest{}, f.prErr
	}
	f.prs = append(f.prs, spec)
	n := len(f.prs)
	return evolution.PullRequest{Number: 100 + n, URL: fmt.Sprintf("https://github.com/octo/agent/pull/%d", 100+n)}, nil
}

func (f *fakeTracker) labelsOf(number int) map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t := f.find(number); t != nil {
		return t.Labels
	}
	return nil
}

// scriptedGenerator returns scripts or errors in order and records requests.
type scriptedGenerator struct {
	scripts  []string
	errs     []error
	requests []Request
}

func (g *scriptedGenerator) Generate(_ context.Context, req Request) (string, error) {
	i := len(g.requests)
	g.requests = append(g.requests, req)

	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.scripts) {
		return g.scripts[i], nil
	}
	return g.scripts[len(g.scripts)-1], nil
}

// fakeBuilder returns configured results per call.
type fakeBuilder struct {
	layout    evolution.Layout
	errs      []error
	builds    []string
	discarded []int
}

func (b *fakeBuilder) Build(_ context.Context, script string, version int, _ string) (string, error) {
	i := len(b.builds)
	b.builds = append(b.builds, script)
	if i < len(b.errs) && b.errs[i] != nil {
		return "", b.errs[i]
	}
	return b.layout.Artifact(version), nil
}

func (b *fakeBuilder) Discard(version int) error {
	b.discarded = append(b.discarded, version)
	return nil
}

// fakeValidator returns results in order; the last repeats.
type fakeValidator struct {
	results []bool
	calls   []string
}

func (v *fakeValidator) Validate(_ context.Context, artifact string) bool {
	i := len(v.calls)
	v.calls = append(v.calls, artifact)
	if i < len(v.results) {
		return v.results[i]
	}
	return v.results[len(v.results)-1]
}

// fakePublisher records publish calls.
type fakePublisher struct {
	successErr error
	giveUpErr  error

	successes []int // attempt indexes
	giveUps   []string
}

func (p *fakePublisher) PublishSuccess(_ context.Context, _ evolution.Task, version, attempt int) (evolution.PullRequest, error) {
	p.successes = append(p.successes, attempt)
	if p.successErr != nil {
		return evolution.PullRequest{}, p.successErr
	}
	return evolution.PullRequest{Number: 1, URL: fmt.Sprintf("https://example.test/pr/v%d", version)}, nil
}

func (p *fakePublisher) PublishGiveUp(_ context.Context, _ evolution.Task, _ int, lastErr string) error {
	p.giveUps = append(p.giveUps, lastErr)
	return p.giveUpErr
}

// memJournal collects entries.
type memJournal struct {
	entries []evolution.JournalEntry
}

func (j *memJournal) Record(_ context.Context, e evolution.JournalEntry) error {
	j.entries = append(j.entries, e)
	return nil
}

func (j *memJournal) statuses() []evolution.EntryStatus {
	out := make([]evolution.EntryStatus, len(j.entries))
	for i, e := range j.entries {
		out[i] = e.Status
	}
	return out
}

func task(number int, title string, labels ...string) evolution.Task {
	set := map[string]bool{"agent-task": true}
	for _, l := range labels {
		set[l] = true
	}
	return evolution.Task{Number: number, Title: title, Labels: set}
}
