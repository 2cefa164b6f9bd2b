package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/colonyops/evolve/pkg/executil"
)

// Executor implements Git using the git command-line tool.
type Executor struct {
	gitPath string
	exec    executil.Executor
}

var _ Git = (*Executor)(nil)

// NewExecutor creates a new git executor with the specified git binary path.
func NewExecutor(gitPath string, exec executil.Executor) *Executor {
	return &Executor{gitPath: gitPath, exec: exec}
}

func (e *Executor) Checkout(ctx context.Context, dir, branch string) error {
	if _, err := e.exec.RunDir(ctx, dir, e.gitPath, "checkout", branch); err != nil {
		return fmt.Errorf("checkout %s: %w", branch, err)
	}
	return nil
}

func (e *Executor) CreateBranch(ctx context.Context, dir, branch string) error {
	if _, err := e.exec.RunDir(ctx, dir, e.gitPath, "checkout", "-B", branch); err != nil {
		return fmt.Errorf("create branch %s: %w", branch, err)
	}
	return nil
}

func (e *Executor) DeleteBranch(ctx context.Context, dir, branch string) error {
	if _, err := e.exec.RunDir(ctx, dir, e.gitPath, "branch", "-D", branch); err != nil {
		return fmt.Errorf("delete branch %s: %w", branch, err)
	}
	return nil
}

func (e *Executor) Pull(ctx context.Context, dir string) error {
	if _, err := e.exec.RunDir(ctx, dir, e.gitPath, "pull"); err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	return nil
}

func (e *Executor) AddAll(ctx context.Context, dir string, exclude ...string) error {
	args := []string{"add", "-A", "--", "."}
	for _, path := range exclude {
		args = append(args, ":(exclude)"+path)
	}
	if _, err := e.exec.RunDir(ctx, dir, e.gitPath, args...); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	return nil
}

func (e *Executor) Commit(ctx context.Context, dir, message string) error {
	if _, err := e.exec.RunDir(ctx, dir, e.gitPath, "commit", "-m", message); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (e *Executor) RestoreFrom(ctx context.Context, dir, source string, paths ...string) error {
	args := append([]string{"restore", "--source=" + source, "--worktree", "--"}, paths...)
	if _, err := e.exec.RunDir(ctx, dir, e.gitPath, args...); err != nil {
		return fmt.Errorf("restore from %s: %w", source, err)
	}
	return nil
}

func (e *Executor) Push(ctx context.Context, dir, remote, branch string) error {
	if _, err := e.exec.RunDir(ctx, dir, e.gitPath, "push", remote, branch); err != nil {
		return fmt.Errorf("push %s %s: %w", remote, branch, err)
	}
	return nil
}

func (e *Executor) RemoteURL(ctx context.Context, dir, remote string) (string, error) {
	out, err := e.exec.RunDir(ctx, dir, e.gitPath, "remote", "get-url", remote)
	if err != nil {
		return "", fmt.Errorf("get remote url: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (e *Executor) IsClean(ctx context.Context, dir string) (bool, error) {
	out, err := e.exec.RunDir(ctx, dir, e.gitPath, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return len(strings.TrimSpace(string(out))) == 0, nil
}

func (e *Executor) Branch(ctx context.Context, dir string) (string, error) {
	// Try to get branch name first
	out, err := e.exec.RunDir(ctx, dir, e.gitPath, "branch", "--show-current")
	if err != nil {
		return "", fmt.Errorf("git branch: %w", err)
	}

	branch := strings.TrimSpace(string(out))
	if branch != "" {
		return branch, nil
	}

	// Empty branch name means detached HEAD - get short commit SHA
	out, err = e.exec.RunDir(ctx, dir, e.gitPath, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}

	return strings.TrimSpace(string(out)), nil
}
