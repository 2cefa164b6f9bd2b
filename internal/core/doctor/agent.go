package doctor

import (
	"context"
	"fmt"
	"os"
)

// LatestFunc reports the highest existing artifact version and its filename.
// A zero version means no artifact exists yet.
type LatestFunc func() (version int, filename string, err error)

// AgentCheck verifies there is a runnable agent and reports the version
// lineage and optional prompt file.
type AgentCheck struct {
	bootstrap    string
	systemPrompt string
	latest       LatestFunc
}

func NewAgentCheck(bootstrap, systemPrompt string, latest LatestFunc) *AgentCheck {
	return &AgentCheck{bootstrap: bootstrap, systemPrompt: systemPrompt, latest: latest}
}

func (c *AgentCheck) Name() string {
	return "Agent"
}

func (c *AgentCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	version, filename, err := c.latest()
	switch {
	case err != nil:
		result.Items = append(result.Items, fail("versions", err.Error()))
	case version == 0:
		result.Items = append(result.Items, pass("versions", "none yet, next is v1"))
	default:
		result.Items = append(result.Items, pass("versions", fmt.Sprintf("latest %s, next is v%d", filename, version+1)))
	}

	if _, err := os.Stat(c.bootstrap); err != nil {
		if version == 0 {
			result.Items = append(result.Items, fail("bootstrap", c.bootstrap+" not found"))
		} else {
			result.Items = append(result.Items, warn("bootstrap", c.bootstrap+" not found"))
		}
	} else {
		result.Items = append(result.Items, pass("bootstrap", c.bootstrap))
	}

	if c.systemPrompt != "" {
		if _, err := os.Stat(c.systemPrompt); err != nil {
			result.Items = append(result.Items, warn("system prompt", c.systemPrompt+" not found, generator runs without one"))
		} else {
			result.Items = append(result.Items, pass("system prompt", c.systemPrompt))
		}
	}

	return result
}
