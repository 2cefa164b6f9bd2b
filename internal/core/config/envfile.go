package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"slices"
	"strings"
)

// ParseEnv reads KEY=VALUE lines. Blank lines and lines starting with # are
// ignored, an optional "export " prefix is dropped and values wrapped in
// matching single or double quotes are unquoted. Lines without "=" are
// skipped. Only the first "=" splits, so values may contain "=".
func ParseEnv(r io.Reader) (map[string]string, error) {
	vars := make(map[string]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}

		vars[key] = unquote(strings.TrimSpace(value))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	return vars, nil
}

func unquote(v string) string {
	if len(v) >= 2 {
		first, last := v[0], v[len(v)-1]
		if (first == '"' || first == '\'') && first == last {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// LoadEnvFile merges path into the process environment, overriding values
// already set. A missing file is not an error. Returns the keys applied.
func LoadEnvFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open env file: %w", err)
	}
	defer func() { _ = f.Close() }()

	vars, err := ParseEnv(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	keys := make([]string, 0, len(vars))
	for k, v := range vars {
		if err := os.Setenv(k, v); err != nil {
			return keys, fmt.Errorf("set %s: %w", k, err)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// WriteEnvFile writes vars as KEY=VALUE lines with owner-only permissions.
// Keys already in the file are preserved unless vars overrides them. Keys in
// order come first, the rest follow sorted.
func WriteEnvFile(path string, vars map[string]string, order []string) error {
	merged := map[string]string{}
	if f, err := os.Open(path); err == nil {
		existing, err := ParseEnv(f)
		_ = f.Close()
		if err != nil {
			return err
		}
		maps.Copy(merged, existing)
	}
	maps.Copy(merged, vars)

	var b strings.Builder
	written := map[string]bool{}
	for _, k := range order {
		if v, ok := merged[k]; ok {
			fmt.Fprintf(&b, "%s=%s\n", k, v)
			written[k] = true
		}
	}
	for _, k := range slices.Sorted(maps.Keys(merged)) {
		if !written[k] {
			fmt.Fprintf(&b, "%s=%s\n", k, merged[k])
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("write env file: %w", err)
	}
	return nil
}
