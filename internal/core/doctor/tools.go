package doctor

import (
	"context"
	"os/exec"
)

// lookPathFunc is the function used to find executables on PATH.
// Package-level variable to allow test overrides.
var lookPathFunc = exec.LookPath

// Tool is an executable the loop shells out to.
type Tool struct {
	Name     string
	Path     string
	Optional bool
	Purpose  string
}

// ToolsCheck verifies that required external tools are available on $PATH.
type ToolsCheck struct {
	tools []Tool
}

// NewToolsCheck creates a new tools check. Tools with an empty Path are skipped.
func NewToolsCheck(tools ...Tool) *ToolsCheck {
	return &ToolsCheck{tools: tools}
}

func (c *ToolsCheck) Name() string {
	return "Tools"
}

func (c *ToolsCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	for _, tool := range c.tools {
		if tool.Path == "" {
			continue
		}

		path, err := lookPathFunc(tool.Path)
		switch {
		case err == nil:
			result.Items = append(result.Items, pass(tool.Name, path))
		case tool.Optional:
			result.Items = append(result.Items, warn(tool.Name, "not found on PATH ("+tool.Purpose+")"))
		default:
			result.Items = append(result.Items, fail(tool.Name, "not found on PATH ("+tool.Purpose+")"))
		}
	}

	return result
}
