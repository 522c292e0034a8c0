package release

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Release is one completed deploy: which image went to which service, and
// when. The tag is fixed across runs, so the digest is what distinguishes
// one release from the next.
type Release struct {
	Serial     int       `json:"serial"`
	Platform   string    `json:"platform"`
	Service    string    `json:"service"`
	Image      string    `json:"image"`
	Digest     string    `json:"digest,omitempty"`
	URL        string    `json:"url,omitempty"`
	DeployedAt time.Time `json:"deployedAt"`
}

// History is the on-disk ledger format.
type History struct {
	Version  int        `json:"version"`
	Serial   int        `json:"serial"`
	Releases []*Release `json:"releases"`
}

// Ledger reads and appends the local release history. It records what this
// machine deployed; it is not a coordination mechanism between machines, and
// concurrent deploys from different machines still race on the platform.
type Ledger struct {
	path string
}

func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// Read loads the history, returning an empty one when the file does not
// exist yet.
func (l *Ledger) Read() (*History, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &History{Version: 1}, nil
		}
		return nil, fmt.Errorf("failed to read release history %s: %w", l.path, err)
	}

	var h History
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("failed to parse release history %s: %w", l.path, err)
	}
	return &h, nil
}

// Append records a release, assigning it the next serial.
func (l *Ledger) Append(rel *Release) error {
	h, err := l.Read()
	if err != nil {
		return err
	}

	h.Serial++
	rel.Serial = h.Serial
	if rel.DeployedAt.IsZero() {
		rel.DeployedAt = time.Now().UTC()
	}
	h.Releases = append(h.Releases, rel)

	return l.write(h)
}

func (l *Ledger) write(h *History) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create release directory: %w", err)
	}

	content, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode release history: %w", err)
	}

	if err := os.WriteFile(l.path, append(content, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write release history %s: %w", l.path, err)
	}
	return nil
}
