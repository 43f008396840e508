package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/quishield/quishield/pkg/config"
	"github.com/quishield/quishield/pkg/engine"
	"github.com/quishield/quishield/pkg/ml"
)

// Version is set at build time via -ldflags.
var Version = "0.3.0-dev"

var (
	policyFile string
	verbose    bool
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "quishield",
	Short: "Risk classification engine for decoded QR payloads",
	Long: `Quishield analyzes the decoded text of QR codes before the user acts on
them. Payloads are typed (URL, Wi-Fi, SMS, vCard, ...), run through
deterministic threat rules and a statistical URL scorer, and banded into a
risk decision: ALLOW, SANDBOX_PREVIEW, or BLOCK.

Scoring policy (weights, thresholds, allowlists) loads from quishield.yaml;
collaborators (model path, oracle provider, evidence capture) configure via
QUISHIELD_* environment variables.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "help", "version", "init":
			// init creates the policy file; loading it first would fail.
			return nil
		}

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		cfg = config.NewDefaultConfig()
		policy, err := config.LoadPolicy(policyFile)
		if err != nil {
			return fmt.Errorf("load policy: %w", err)
		}
		cfg.Policy = policy
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&policyFile, "policy", "", "scoring policy file (default: quishield.yaml if present)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")
	rootCmd.Version = Version
}

// buildAnalyzer assembles the engine, attaching the semantic lure matcher
// when enabled. Matcher failures (no embedding endpoint) just disable the
// feature.
func buildAnalyzer(ctx context.Context) *engine.Analyzer {
	var opts []engine.Option
	if cfg.EnableSemantics {
		m, err := ml.NewLureMatcher(ctx, cfg.EmbeddingBaseURL, cfg.EmbeddingModel)
		if err != nil {
			slog.Warn("semantic lure matching unavailable", "error", err)
		} else {
			opts = append(opts, engine.WithLureMatcher(m))
		}
	}
	return engine.New(cfg, opts...)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
