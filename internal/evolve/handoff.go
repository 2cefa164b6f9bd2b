package evolve

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/colonyops/evolve/internal/core/evolution"
)

// WriteHandoff stores h at path, replacing any previous handoff atomically.
func WriteHandoff(path string, h evolution.Handoff) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal handoff: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create handoff dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write handoff: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write handoff: %w", err)
	}

	return nil
}

// ReadHandoff loads the handoff at path.
func ReadHandoff(path string) (evolution.Handoff, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return evolution.Handoff{}, fmt.Errorf("read handoff: %w", err)
	}

	var h evolution.Handoff
	if err := json.Unmarshal(data, &h); err != nil {
		return evolution.Handoff{}, fmt.Errorf("parse handoff: %w", err)
	}
	if h.Artifact == "" {
		return evolution.Handoff{}, fmt.Errorf("parse handoff: no artifact")
	}

	return h, nil
}
