package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quishield/quishield/pkg/config"
	"github.com/quishield/quishield/pkg/engine"
	"github.com/quishield/quishield/pkg/ml"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show scorer and collaborator status",
	RunE: func(cmd *cobra.Command, args []string) error {
		analyzer := buildAnalyzer(cmd.Context())
		status := modelStatus(analyzer)

		artifact := ml.Inspect(cfg)
		fmt.Printf("URL scorer:    %s\n", status["scorer"])
		fmt.Printf("Model path:    %s\n", orNone(artifact.Path))
		fmt.Printf("Model kind:    %s\n", artifact.Kind)
		if artifact.Exists {
			fmt.Printf("Model file:    %d bytes, modified %s\n",
				artifact.SizeBytes, artifact.ModifiedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("Oracle:        %s\n", status["oracle"])
		fmt.Printf("Evidence:      %s\n", status["evidence"])
		fmt.Printf("History store: %s\n", status["history"])
		return nil
	},
}

// modelStatus is shared between this command and GET /api/models.
func modelStatus(analyzer *engine.Analyzer) map[string]string {
	scorer := "unavailable (rules-only mode)"
	if analyzer.ScorerAvailable() {
		scorer = analyzer.ScorerName()
	}

	oracleStatus := string(cfg.OracleProvider)
	if cfg.OracleProvider == config.OracleNone {
		oracleStatus = "disabled"
	} else if cfg.RedisAddr != "" {
		oracleStatus += " (cached)"
	}

	evidenceStatus := string(cfg.EvidenceMode)
	if cfg.EvidenceMode == config.EvidenceNone {
		evidenceStatus = "disabled"
	}

	historyStatus := "disabled"
	if cfg.HistoryDSN != "" {
		historyStatus = "postgres"
	}

	artifact := ml.Inspect(cfg)

	return map[string]string{
		"scorer":     scorer,
		"model_path": artifact.Path,
		"model_kind": artifact.Kind,
		"oracle":     oracleStatus,
		"evidence":   evidenceStatus,
		"history":    historyStatus,
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
