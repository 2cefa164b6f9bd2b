// Package git provides an abstraction for the git operations used to publish
// evolved versions.
package git

import (
	"context"
	"strings"
)

// Git defines git operations needed by evolve. All operations act on the
// repository in dir.
type Git interface {
	// Checkout switches to an existing branch.
	Checkout(ctx context.Context, dir, branch string) error
	// CreateBranch creates branch from HEAD and switches to it. A stale
	// branch of the same name is reset to HEAD.
	CreateBranch(ctx context.Context, dir, branch string) error
	// DeleteBranch force-deletes a local branch.
	DeleteBranch(ctx context.Context, dir, branch string) error
	// Pull fetches and merges the upstream of the current branch.
	Pull(ctx context.Context, dir string) error
	// AddAll stages every change in the work tree, including untracked files,
	// except paths matching exclude.
	AddAll(ctx context.Context, dir string, exclude ...string) error
	// Commit records the staged changes with message.
	Commit(ctx context.Context, dir, message string) error
	// RestoreFrom overwrites paths in the work tree with their content at
	// source, leaving HEAD and the index alone.
	RestoreFrom(ctx context.Context, dir, source string, paths ...string) error
	// Push pushes branch to remote.
	Push(ctx context.Context, dir, remote, branch string) error
	// RemoteURL returns the URL of remote.
	RemoteURL(ctx context.Context, dir, remote string) (string, error)
	// IsClean returns true if there are no uncommitted changes in dir.
	IsClean(ctx context.Context, dir string) (bool, error)
	// Branch returns the current branch name, or short commit SHA if in detached HEAD state.
	Branch(ctx context.Context, dir string) (string, error)
}

// ExtractOwnerRepo returns the owner and repository name of a remote URL in
// either scp-like (git@host:owner/repo.git) or https form. Nested groups
// yield the last two path segments.
func ExtractOwnerRepo(remote string) (owner, repo string) {
	remote = strings.TrimSpace(remote)
	remote = strings.TrimSuffix(remote, ".git")

	var path string
	switch {
	case strings.Contains(remote, "://"):
		_, rest, _ := strings.Cut(remote, "://")
		_, path, _ = strings.Cut(rest, "/")
	case strings.Contains(remote, ":"):
		_, path, _ = strings.Cut(remote, ":")
	default:
		return "", ""
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 {
		return "", ""
	}
	return parts[len(parts)-2], parts[len(parts)-1]
}

// ExtractRepoName returns just the repository name of a remote URL.
func ExtractRepoName(remote string) string {
	_, repo := ExtractOwnerRepo(remote)
	return repo
}
