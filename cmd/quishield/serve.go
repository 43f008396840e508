package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/spf13/cobra"

	"github.com/quishield/quishield/pkg/engine"
	"github.com/quishield/quishield/pkg/history"
	"github.com/quishield/quishield/pkg/httputil"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis HTTP API",
	Long: `Start the HTTP server exposing the analysis pipeline.

Endpoints:
  GET  /health       liveness and component status
  POST /api/analyze  analyze a payload ({"payload": "..."})
  GET  /api/models   scorer and collaborator status
  GET  /api/history  recent scans (requires QUISHIELD_HISTORY_DSN)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		analyzer := buildAnalyzer(cmd.Context())

		var store *history.Store
		if cfg.HistoryDSN != "" {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			s, err := history.Open(ctx, cfg.HistoryDSN)
			if err != nil {
				return err
			}
			store = s
			defer store.Close()
		}

		app := newServer(analyzer, store)
		slog.Info("quishield serving", "addr", addr, "history", store != nil)
		return app.Listen(addr)
	},
}

// historyWrites bounds the background persistence goroutines.
var historyWrites = httputil.NewSemaphore(32)

func newServer(analyzer *engine.Analyzer, store *history.Store) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Quishield",
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"version": Version,
			"scorer":  analyzer.ScorerAvailable(),
		})
	})

	app.Post("/api/analyze", func(c fiber.Ctx) error {
		var req struct {
			Payload  string `json:"payload"`
			ReportID string `json:"report_id"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.Payload == "" {
			return c.Status(400).JSON(fiber.Map{"error": "payload field is required"})
		}

		res := analyzer.AnalyzeWithID(c.Context(), req.Payload, req.ReportID)
		if store != nil {
			saveHistory(store, res)
		}
		return c.JSON(res)
	})

	app.Get("/api/models", func(c fiber.Ctx) error {
		return c.JSON(modelStatus(analyzer))
	})

	app.Get("/api/history", func(c fiber.Ctx) error {
		if store == nil {
			return c.Status(404).JSON(fiber.Map{"error": "history store not configured"})
		}
		limit := fiber.Query[int](c, "limit", 50)
		entries, err := store.Recent(c.Context(), limit)
		if err != nil {
			slog.Error("history listing failed", "error", err)
			return c.Status(500).JSON(fiber.Map{"error": "history unavailable"})
		}
		return c.JSON(fiber.Map{"entries": entries})
	})

	return app
}

// saveHistory persists off the request path. A full queue drops the write;
// the scan response never waits on postgres.
func saveHistory(store *history.Store, res *engine.Result) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if !historyWrites.TryAcquire() {
		slog.Warn("history write dropped, queue full", "report_id", res.ReportID)
		return
	}
	go func() {
		defer historyWrites.Release()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := store.Save(ctx, history.Entry{
			ReportID:    res.ReportID,
			PayloadType: string(res.Type),
			RiskScore:   res.Decision.RiskScore,
			Category:    res.Decision.Category,
			Action:      res.Decision.RecommendedAction,
			Result:      raw,
		})
		if err != nil {
			slog.Warn("history write failed", "report_id", res.ReportID, "error", err)
		}
	}()
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}
