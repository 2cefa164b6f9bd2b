// Package tmpl provides template rendering utilities for shell commands and
// issue/pull request text.
package tmpl

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
)

// shellQuote returns a shell-safe quoted string. It wraps the string in single
// quotes and escapes any existing single quotes using the '\" technique.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	// Replace ' with '\'' (end quote, escaped quote, start quote)
	escaped := strings.ReplaceAll(s, "'", `'\''`)
	return "'" + escaped + "'"
}

var funcs = template.FuncMap{
	"shq":      shellQuote,
	"join":     strings.Join,
	"base":     filepath.Base,
	"trim":     strings.TrimSpace,
	"indent":   indent,
	"fallback": fallback,
}

func indent(prefix, s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

func fallback(def, s string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// Render executes a Go template string with the given data.
// Returns an error if the template is invalid or references undefined keys.
//
// Available template functions:
//   - shq: Shell-quote a string for safe use in shell commands
//   - join: Join string slice with separator (e.g., join .Args " ")
//   - base: Final element of a path
//   - trim: Trim surrounding whitespace
//   - indent: Prefix every non-empty line (e.g., indent "> " .Error)
//   - fallback: Use a default for blank values (e.g., fallback "N/A" .Script)
func Render(tmpl string, data any) (string, error) {
	t, err := template.New("").Funcs(funcs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}

// MustParse validates a template at startup; Render is used at call time.
func MustParse(tmpl string) string {
	if _, err := template.New("").Funcs(funcs).Parse(tmpl); err != nil {
		panic(fmt.Sprintf("tmpl: %v", err))
	}
	return tmpl
}
