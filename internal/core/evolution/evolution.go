// Package evolution defines the domain types shared by the evolution pipeline:
// tasks pulled from the issue tracker, numbered artifact versions, attempts
// and their outcomes, and the collaborator interfaces the pipeline drives.
package evolution

import (
	"context"
	"sort"
)

// Task is an issue tracker item requesting a change.
type Task struct {
	Number int
	Title  string
	URL    string
	Labels map[string]bool
}

// HasLabel reports whether the task currently carries label.
func (t Task) HasLabel(label string) bool {
	return t.Labels[label]
}

// LabelNames returns the task labels in sorted order.
func (t Task) LabelNames() []string {
	names := make([]string, 0, len(t.Labels))
	for name, ok := range t.Labels {
		if ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// PullRequest identifies an opened pull request.
type PullRequest struct {
	Number int
	URL    string
}

// PullRequestSpec describes a pull request to open.
type PullRequestSpec struct {
	Title string
	Body  string
	Head  string
	Base  string
}

// TaskQueue is the issue tracker the task loop polls.
type TaskQueue interface {
	// ListTasks returns open tasks carrying label.
	ListTasks(ctx context.Context, label string) ([]Task, error)
	// AddLabel attaches label to the task.
	AddLabel(ctx context.Context, number int, label string) error
	// RemoveLabel detaches label from the task. Removing an absent label is not an error.
	RemoveLabel(ctx context.Context, number int, label string) error
	// Comment posts body as a new comment on the task.
	Comment(ctx context.Context, number int, body string) error
	// Close transitions the task to closed.
	Close(ctx context.Context, number int) error
}

// Hosting opens pull requests on the code host.
type Hosting interface {
	OpenPullRequest(ctx context.Context, spec PullRequestSpec) (PullRequest, error)
}
