// Package usage records model token consumption per run and cumulatively per
// workspace, persisted as JSON under .cartograph/.
package usage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cartograph/internal/logging"
)

// TokenCounts accumulates input and output tokens.
type TokenCounts struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Calls  int `json:"calls"`
}

// Add folds one completion's counts in.
func (c *TokenCounts) Add(input, output int) {
	c.Input += input
	c.Output += output
	c.Calls++
}

// Total returns input plus output.
func (c TokenCounts) Total() int { return c.Input + c.Output }

// Data is the persisted shape.
type Data struct {
	Version   string                 `json:"version"`
	Total     TokenCounts            `json:"total"`
	ByModel   map[string]TokenCounts `json:"byModel"`
	BySession map[string]TokenCounts `json:"bySession"`
	UpdatedAt string                 `json:"updatedAt"`
}

// Tracker manages token usage recording and persistence.
type Tracker struct {
	mu       sync.Mutex
	data     Data
	filePath string
}

// NewTracker opens or creates the usage file under the workspace.
func NewTracker(workspace string) (*Tracker, error) {
	dir := filepath.Join(workspace, ".cartograph")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create usage dir: %w", err)
	}

	t := &Tracker{
		filePath: filepath.Join(dir, "usage.json"),
		data: Data{
			Version:   "1.0",
			ByModel:   map[string]TokenCounts{},
			BySession: map[string]TokenCounts{},
		},
	}
	if err := t.load(); err != nil {
		logging.Usage("usage file unreadable, starting fresh: %v", err)
	}
	return t, nil
}

func (t *Tracker) load() error {
	raw, err := os.ReadFile(t.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, &t.data); err != nil {
		return err
	}
	if t.data.ByModel == nil {
		t.data.ByModel = map[string]TokenCounts{}
	}
	if t.data.BySession == nil {
		t.data.BySession = map[string]TokenCounts{}
	}
	return nil
}

// Track records one completion's token counts.
func (t *Tracker) Track(sessionID, model string, input, output int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.Total.Add(input, output)

	m := t.data.ByModel[model]
	m.Add(input, output)
	t.data.ByModel[model] = m

	s := t.data.BySession[sessionID]
	s.Add(input, output)
	t.data.BySession[sessionID] = s

	logging.Usage("tracked %d in / %d out for session %s", input, output, sessionID)
}

// Session returns the counts recorded for one session so far.
func (t *Tracker) Session(sessionID string) TokenCounts {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data.BySession[sessionID]
}

// Save writes the usage data to disk.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	raw, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal usage: %w", err)
	}
	if err := os.WriteFile(t.filePath, raw, 0o644); err != nil {
		return fmt.Errorf("write usage: %w", err)
	}
	return nil
}
