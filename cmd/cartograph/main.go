package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cartograph/internal/config"
	"cartograph/internal/explore"
	"cartograph/internal/graph"
	"cartograph/internal/logging"
	"cartograph/internal/session"
)

var (
	configPath string
	verbose    bool
	startURL   string
	headful    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cartograph",
	Short: "cartograph - autonomous web application mapper",
	Long: `cartograph drives a headless browser through a web application,
letting a language model pick the next interaction, and records every page
state and transition as a directed graph.

The result is a navigable map of the application: which pages exist, which
actions connect them, and what each page offered.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Run an exploration session",
	Long: `Starts at the configured URL and loops through observe, decide,
execute and persist phases until the site is exhausted, the model signals
completion, or the iteration limit is reached.`,
	RunE: runExplore,
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect the recorded exploration graph",
}

var graphStatesCmd = &cobra.Command{
	Use:   "states",
	Short: "List recorded page states",
	RunE:  func(cmd *cobra.Command, args []string) error { return dumpGraph(cmd, true) },
}

var graphTransitionsCmd = &cobra.Command{
	Use:   "transitions",
	Short: "List recorded transitions",
	RunE:  func(cmd *cobra.Command, args []string) error { return dumpGraph(cmd, false) },
}

func runExplore(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if startURL != "" {
		cfg.StartURL = startURL
	}
	if headful {
		f := false
		cfg.Browser.Headless = &f
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	if err := logging.Initialize(cfg.Workspace.Dir, level); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting exploration", zap.String("url", cfg.StartURL), zap.String("provider", cfg.LLM.Provider))

	sess, err := session.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	summary, err := sess.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("exploration finished",
		zap.String("session", summary.SessionID),
		zap.String("status", string(summary.Status)),
		zap.Int("urls", summary.URLsVisited),
		zap.Int("tokens", summary.Tokens.Total()))

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))

	if summary.Status == explore.StatusFailure {
		return fmt.Errorf("exploration failed, see %s", filepath.Join(cfg.Workspace.Dir, ".cartograph", "logs"))
	}
	return nil
}

func dumpGraph(cmd *cobra.Command, states bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	sessionID, _ := cmd.Flags().GetString("session")

	store, err := graph.Open(filepath.Join(cfg.Workspace.Dir, cfg.Graph.Path))
	if err != nil {
		return err
	}
	defer store.Close()

	var payload any
	if states {
		payload, err = store.States(cmd.Context(), sessionID)
	} else {
		payload, err = store.Transitions(cmd.Context(), sessionID)
	}
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "cartograph.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	exploreCmd.Flags().StringVar(&startURL, "url", "", "override start_url from config")
	exploreCmd.Flags().BoolVar(&headful, "headful", false, "run the browser with a visible window")

	graphCmd.PersistentFlags().String("session", "", "restrict output to one session id")
	graphCmd.AddCommand(graphStatesCmd, graphTransitionsCmd)

	rootCmd.AddCommand(exploreCmd, graphCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
