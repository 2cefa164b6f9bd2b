package evolution

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Placeholder tokens a generated script may use in place of concrete values.
const (
	// VersionToken stands for "v<next version>".
	VersionToken = "vN"
	// CurrentAgentToken stands for the filename of the running agent.
	CurrentAgentToken = "CURRENT_AGENT"
)

// Layout maps version numbers to the deterministic filenames of artifacts,
// evolution records and branches.
type Layout struct {
	// Name is the artifact stem, e.g. "agent" for agent_v3.py.
	Name string
	// Ext is the artifact extension including the dot, e.g. ".py".
	Ext string
}

// DefaultLayout produces agent_v<N>.py artifacts.
func DefaultLayout() Layout {
	return Layout{Name: "agent", Ext: ".py"}
}

// Artifact returns the artifact filename for version.
func (l Layout) Artifact(version int) string {
	return fmt.Sprintf("%s_v%d%s", l.Name, version, l.Ext)
}

// Record returns the evolution record filename for version.
func (l Layout) Record(version int) string {
	return fmt.Sprintf("evolve_v%d.sh", version)
}

// Branch returns the publication branch for version.
func (l Layout) Branch(version int) string {
	return fmt.Sprintf("evolution-v%d", version)
}

// GenericArtifact is the artifact name with the version placeholder,
// e.g. agent_vN.py, as the generator is asked to write it.
func (l Layout) GenericArtifact() string {
	return l.Name + "_" + VersionToken + l.Ext
}

// Glob returns a doublestar pattern matching candidate artifact files.
// Candidates still need ParseVersion; the glob only narrows the scan.
func (l Layout) Glob() string {
	return escapeGlob(l.Name) + "_v*" + escapeGlob(l.Ext)
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`*?[]{}\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseVersion extracts the version from an artifact filename. Paths are
// reduced to their base name first.
func (l Layout) ParseVersion(filename string) (int, bool) {
	m := l.pattern().FindStringSubmatch(filepath.Base(filename))
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil || v < 1 {
		return 0, false
	}
	return v, true
}

func (l Layout) pattern() *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(l.Name) + `_v(\d+)` + regexp.QuoteMeta(l.Ext) + `$`)
}
