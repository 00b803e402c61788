// Package output renders resolution results: a JSON report on disk, a
// terminal table and a live progress bar.
package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wayrake/internal/core/domain"
	"wayrake/internal/core/ports"
	"wayrake/internal/platform/errors"
)

// Report is the JSON document written after a run.
type Report struct {
	Tool        string                `json:"tool"`
	Version     string                `json:"version,omitempty"`
	GeneratedAt time.Time             `json:"generated_at"`
	Mode        string                `json:"mode"`
	Inputs      []string              `json:"inputs,omitempty"`
	Query       string                `json:"query,omitempty"`
	Items       []domain.ResourceItem `json:"items,omitempty"`
	Hits        []ports.SearchHit     `json:"hits,omitempty"`
}

// WriteJSON writes the report under dir and returns the file path. The
// filename carries the first target and a timestamp so repeated runs never
// clobber each other.
func WriteJSON(dir string, r Report) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create output directory")
	}

	target := r.Query
	if len(r.Inputs) > 0 {
		target = r.Inputs[0]
	}
	timestamp := time.Now().Format("20060102_150405")
	name := "wayrake_" + sanitizeName(target) + "_" + timestamp + ".json"
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to create output file")
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", errors.Wrap(err, "failed to encode report")
	}
	return path, nil
}

// sanitizeName turns a target URL into a filename fragment.
func sanitizeName(target string) string {
	target = strings.TrimPrefix(target, "http://")
	target = strings.TrimPrefix(target, "https://")
	s := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, target)
	if len(s) > 60 {
		s = s[:60]
	}
	if s == "" {
		s = "run"
	}
	return s
}
