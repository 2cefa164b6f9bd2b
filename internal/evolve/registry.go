package evolve

import (
	"fmt"
	"os"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/colonyops/evolve/internal/core/evolution"
)

// Registry discovers artifact versions present in the work directory.
type Registry struct {
	dir    string
	layout evolution.Layout
}

func NewRegistry(dir string, layout evolution.Layout) *Registry {
	return &Registry{dir: dir, layout: layout}
}

// Versions returns every artifact version present, ascending.
func (r *Registry) Versions() ([]int, error) {
	matches, err := doublestar.Glob(os.DirFS(r.dir), r.layout.Glob(), doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("scan %s for artifacts: %w", r.dir, err)
	}

	versions := make([]int, 0, len(matches))
	for _, m := range matches {
		if v, ok := r.layout.ParseVersion(m); ok {
			versions = append(versions, v)
		}
	}
	slices.Sort(versions)

	return slices.Compact(versions), nil
}

// Next returns one more than the highest existing version, or 1 when none exist.
func (r *Registry) Next() (int, error) {
	latest, _, err := r.Latest()
	if err != nil {
		return 0, err
	}
	return latest + 1, nil
}

// Latest returns the highest existing version and its filename. The version
// is zero when no artifact exists.
func (r *Registry) Latest() (int, string, error) {
	versions, err := r.Versions()
	if err != nil {
		return 0, "", err
	}
	if len(versions) == 0 {
		return 0, "", nil
	}

	v := versions[len(versions)-1]
	return v, r.layout.Artifact(v), nil
}
