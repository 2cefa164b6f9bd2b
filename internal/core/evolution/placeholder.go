package evolution

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Substitute patches the generic placeholders in a generated script with
// concrete values: the generic artifact name and any remaining "vN" become
// the concrete version, and CURRENT_AGENT becomes the base name of the
// running agent.
//
// Generated text is not trusted to follow the contract, so the result is
// checked afterwards and ErrUnresolvedPlaceholder is returned if a token
// survived (for example because the agent filename itself contains one).
func Substitute(script string, layout Layout, version int, currentAgent string) (string, error) {
	current := filepath.Base(currentAgent)

	out := strings.NewReplacer(
		layout.GenericArtifact(), layout.Artifact(version),
		VersionToken, fmt.Sprintf("v%d", version),
		CurrentAgentToken, current,
	).Replace(script)

	for _, token := range []string{VersionToken, CurrentAgentToken} {
		if strings.Contains(out, token) {
			return "", fmt.Errorf("%w: %q", ErrUnresolvedPlaceholder, token)
		}
	}

	return out, nil
}
