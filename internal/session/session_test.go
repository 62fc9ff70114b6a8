package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"cartograph/internal/config"
	"cartograph/internal/explore"
	"cartograph/internal/usage"
)

func TestWriteSummary(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Workspace.Dir = dir

	s := &Session{ID: "run-1", cfg: cfg}
	summary := &Summary{
		SessionID:    "run-1",
		StartURL:     "https://demo.example.com",
		Status:       explore.StatusFlowEnd,
		URLsVisited:  3,
		Fingerprints: 4,
		Actions:      []string{"clickElement on #about [a → b]"},
		Tokens:       usage.TokenCounts{Input: 1500, Output: 300, Calls: 2},
		GraphPath:    filepath.Join(dir, ".cartograph", "graph.db"),
	}
	require.NoError(t, s.writeSummary(summary))

	raw, err := os.ReadFile(filepath.Join(dir, ".cartograph", "runs", "run-1.json"))
	require.NoError(t, err)

	var decoded Summary
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, explore.StatusFlowEnd, decoded.Status)
	require.Equal(t, 3, decoded.URLsVisited)
	require.Equal(t, 1800, decoded.Tokens.Total())
	require.Len(t, decoded.Actions, 1)
}

func TestNewRejectsIncompleteConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Workspace.Dir = t.TempDir()
	// No start URL, no API key.
	_, err := New(t.Context(), cfg)
	require.Error(t, err)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Workspace.Dir = t.TempDir()
	cfg.StartURL = "https://demo.example.com"
	cfg.LLM.Provider = "mystery"
	cfg.LLM.APIKey = "k"
	_, err := New(t.Context(), cfg)
	require.ErrorContains(t, err, "unknown llm provider")
}
