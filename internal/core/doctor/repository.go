package doctor

import (
	"context"
	"fmt"
	"strings"

	"github.com/colonyops/evolve/internal/core/git"
)

// RepositoryCheck verifies the working directory is a git work tree whose
// remote points at the configured repository.
type RepositoryCheck struct {
	git    git.Git
	dir    string
	remote string
	base   string
	repo   string // owner/name
}

func NewRepositoryCheck(g git.Git, dir, remote, base, repo string) *RepositoryCheck {
	return &RepositoryCheck{git: g, dir: dir, remote: remote, base: base, repo: repo}
}

func (c *RepositoryCheck) Name() string {
	return "Repository"
}

func (c *RepositoryCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	branch, err := c.git.Branch(ctx, c.dir)
	if err != nil {
		result.Items = append(result.Items, fail("work tree", fmt.Sprintf("%s is not a git repository", c.dir)))
		return result
	}

	if branch == c.base {
		result.Items = append(result.Items, pass("branch", branch))
	} else {
		result.Items = append(result.Items, warn("branch", fmt.Sprintf("on %s, tasks start from %s", branch, c.base)))
	}

	clean, err := c.git.IsClean(ctx, c.dir)
	switch {
	case err != nil:
		result.Items = append(result.Items, fail("status", err.Error()))
	case clean:
		result.Items = append(result.Items, pass("status", "clean"))
	default:
		result.Items = append(result.Items, warn("status", "uncommitted changes will be swept into the next evolution commit"))
	}

	url, err := c.git.RemoteURL(ctx, c.dir, c.remote)
	if err != nil {
		result.Items = append(result.Items, fail("remote "+c.remote, "not configured"))
		return result
	}

	owner, name := git.ExtractOwnerRepo(url)
	got := owner + "/" + name
	switch {
	case c.repo == "":
		result.Items = append(result.Items, warn("remote "+c.remote, got+" (REPO not set)"))
	case !strings.EqualFold(got, c.repo):
		result.Items = append(result.Items, fail("remote "+c.remote, fmt.Sprintf("points at %s, REPO is %s", got, c.repo)))
	default:
		result.Items = append(result.Items, pass("remote "+c.remote, got))
	}

	return result
}
