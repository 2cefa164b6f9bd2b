package evolve

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/colonyops/evolve/internal/core/evolution"
	"github.com/colonyops/evolve/internal/integration/llm"
	"github.com/colonyops/evolve/pkg/tmpl"
)

// ErrEmptyScript is returned when the model reply contains no script.
var ErrEmptyScript = errors.New("model returned an empty script")

// Request is everything the generator sees for one attempt.
type Request struct {
	Task         evolution.Task
	Filename     string // base name of the running agent
	Source       string // full source of the running agent
	Layout       evolution.Layout
	SystemPrompt string
	Previous     *evolution.Attempt
}

// Generator produces an evolution script for a task.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ScriptGenerator asks a completion client for a script and extracts it from
// the reply.
type ScriptGenerator struct {
	client llm.Client
	log    zerolog.Logger
}

var _ Generator = (*ScriptGenerator)(nil)

func NewScriptGenerator(client llm.Client, log zerolog.Logger) *ScriptGenerator {
	return &ScriptGenerator{client: client, log: log}
}

// Generate returns the extracted script. Every failure is a *evolution.GenerationError.
func (g *ScriptGenerator) Generate(ctx context.Context, req Request) (string, error) {
	prompt, err := BuildPrompt(req)
	if err != nil {
		return "", &evolution.GenerationError{Err: err}
	}

	reply, err := g.client.Complete(ctx, req.SystemPrompt, prompt)
	if err != nil {
		return "", &evolution.GenerationError{Err: err}
	}

	script := llm.ExtractScript(reply)
	if script == "" {
		return "", &evolution.GenerationError{Err: ErrEmptyScript}
	}

	g.log.Debug().Ctx(ctx).Int("script_len", len(script)).Msg("script generated")
	return script, nil
}

var promptTemplate = tmpl.MustParse(strings.ReplaceAll(`Current agent filename: {{ .Filename }}
Current agent code:
'''{{ .Lang }}
{{ .Source }}
'''

Task: {{ .Task }}

{{ if .Previous -}}
**PREVIOUS ATTEMPT FAILED**

Previous script:
'''bash
{{ fallback "N/A" .Previous.Script }}
'''

Error: {{ .Previous.Err }}

Generate a DIFFERENT approach that avoids this error.
{{- else -}}
Generate a bash script that creates {{ .Generic }} with the modifications needed to accomplish this task. Remember to copy from {{ .Filename }} (the current agent), not from a hardcoded filename.
{{- end }}
`, "'''", "```"))

// BuildPrompt renders the user message for req.
func BuildPrompt(req Request) (string, error) {
	return tmpl.Render(promptTemplate, struct {
		Filename string
		Lang     string
		Source   string
		Task     string
		Generic  string
		Previous *evolution.Attempt
	}{
		Filename: req.Filename,
		Lang:     fenceLang(req.Filename),
		Source:   strings.TrimRight(req.Source, "\n"),
		Task:     req.Task.Title,
		Generic:  req.Layout.GenericArtifact(),
		Previous: req.Previous,
	})
}

func fenceLang(filename string) string {
	switch ext := filepath.Ext(filename); ext {
	case ".py":
		return "python"
	case ".sh":
		return "bash"
	case ".js":
		return "javascript"
	case ".rb":
		return "ruby"
	default:
		return strings.TrimPrefix(ext, ".")
	}
}
