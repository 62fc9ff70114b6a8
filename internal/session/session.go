// Package session wires one exploration run together: browser, model client,
// graph store and usage tracking around the core loop.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"cartograph/internal/browser"
	"cartograph/internal/config"
	"cartograph/internal/explore"
	"cartograph/internal/graph"
	"cartograph/internal/llm"
	"cartograph/internal/logging"
	"cartograph/internal/usage"
)

// Summary is the run report written to the workspace and returned to the CLI.
type Summary struct {
	SessionID    string            `json:"sessionId"`
	StartURL     string            `json:"startUrl"`
	Status       explore.Status    `json:"status"`
	StartedAt    string            `json:"startedAt"`
	FinishedAt   string            `json:"finishedAt"`
	URLsVisited  int               `json:"urlsVisited"`
	Fingerprints int               `json:"fingerprints"`
	Actions      []string          `json:"actions"`
	Tokens       usage.TokenCounts `json:"tokens"`
	GraphPath    string            `json:"graphPath"`
}

// Session owns the resources of one exploration run.
type Session struct {
	ID      string
	cfg     *config.Config
	driver  *browser.Driver
	model   llm.Client
	store   *graph.Store
	tracker *usage.Tracker
}

// New provisions every collaborator. On any error the already-acquired
// resources are released before returning.
func New(ctx context.Context, cfg *config.Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider, err := llm.ParseProvider(cfg.LLM.Provider)
	if err != nil {
		return nil, err
	}

	s := &Session{ID: uuid.NewString(), cfg: cfg}

	s.tracker, err = usage.NewTracker(cfg.Workspace.Dir)
	if err != nil {
		return nil, err
	}

	s.store, err = graph.Open(filepath.Join(cfg.Workspace.Dir, cfg.Graph.Path))
	if err != nil {
		return nil, err
	}

	s.model, err = llm.NewClient(ctx, llm.Config{
		Provider:    provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.ParsedTimeout(),
	})
	if err != nil {
		s.store.Close()
		return nil, err
	}

	s.driver, err = browser.Launch(ctx, browser.Config{
		Headless:            cfg.Browser.IsHeadless(),
		NavigationTimeoutMs: cfg.Browser.NavigationTimeoutMs,
		StabilizeTimeoutMs:  cfg.Browser.StabilizeTimeoutMs,
	})
	if err != nil {
		s.store.Close()
		return nil, err
	}

	logging.Session("session %s created for %s (provider %s)", s.ID, cfg.StartURL, provider)
	return s, nil
}

// Close releases every resource. Safe on a partially failed run.
func (s *Session) Close() {
	if s.driver != nil {
		if err := s.driver.Close(); err != nil {
			logging.SessionError("browser close: %v", err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			logging.SessionError("graph close: %v", err)
		}
	}
	if s.tracker != nil {
		if err := s.tracker.Save(); err != nil {
			logging.SessionError("usage save: %v", err)
		}
	}
}

// Run navigates to the start URL and drives the loop to completion.
func (s *Session) Run(ctx context.Context) (*Summary, error) {
	started := time.Now().UTC()

	if err := s.driver.Navigate(ctx, s.cfg.StartURL); err != nil {
		return nil, fmt.Errorf("initial navigation: %w", err)
	}

	sc := explore.NewStageContext(s.ID, s.driver, s.model, s.store)
	if s.cfg.Auth.HasCredentials() {
		sc.Credentials = &explore.Credentials{
			Username: s.cfg.Auth.Username,
			Password: s.cfg.Auth.Password,
		}
	}
	if s.cfg.Explore.DuplicateLimit > 0 {
		sc.DuplicateLimit = s.cfg.Explore.DuplicateLimit
	}
	if s.cfg.Explore.IntraBatchDelayMs > 0 {
		sc.IntraBatchDelay = time.Duration(s.cfg.Explore.IntraBatchDelayMs) * time.Millisecond
	}
	if len(s.cfg.Explore.IgnoreSelectors) > 0 {
		sc.IgnoreList = append(sc.IgnoreList, s.cfg.Explore.IgnoreSelectors...)
	}
	sc.OnTokens = func(input, output int) {
		s.tracker.Track(s.ID, s.cfg.LLM.Model, input, output)
	}

	runner := explore.NewRunner(sc, s.cfg.Explore.RecursionLimit)
	final, err := runner.Run(ctx, explore.NewRunState(explore.NormalizeURL(s.cfg.StartURL)))
	if err != nil && final.Status == "" {
		final.Status = explore.StatusFailure
	}

	summary := &Summary{
		SessionID:    s.ID,
		StartURL:     s.cfg.StartURL,
		Status:       final.Status,
		StartedAt:    started.Format(time.RFC3339),
		FinishedAt:   time.Now().UTC().Format(time.RFC3339),
		URLsVisited:  sc.Frontier.Len(),
		Fingerprints: len(final.VisitedFingerprints),
		Actions:      final.ActionHistory,
		Tokens:       s.tracker.Session(s.ID),
		GraphPath:    s.store.Path(),
	}
	if werr := s.writeSummary(summary); werr != nil {
		logging.SessionError("write summary: %v", werr)
	}
	return summary, err
}

func (s *Session) writeSummary(summary *Summary) error {
	dir := filepath.Join(s.cfg.Workspace.Dir, ".cartograph", "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, summary.SessionID+".json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return err
	}
	logging.Session("run summary written to %s", path)
	return nil
}
