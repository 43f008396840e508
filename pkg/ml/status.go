package ml

import (
	"os"
	"strings"
	"time"

	"github.com/quishield/quishield/pkg/config"
)

// Status describes the configured model artifact on disk, independent of
// whether it loaded. Surfaced by the models command and GET /api/models.
type Status struct {
	Path       string    `json:"path,omitempty"`
	Kind       string    `json:"kind"`
	Exists     bool      `json:"exists"`
	SizeBytes  int64     `json:"size_bytes,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
}

// Inspect reports on the model artifact without loading it.
func Inspect(cfg *config.Config) Status {
	st := Status{
		Path: cfg.ModelPath,
		Kind: resolveKind(cfg.ModelPath, cfg.ModelKind),
	}
	if cfg.ModelPath == "" {
		return st
	}
	info, err := os.Stat(cfg.ModelPath)
	if err != nil {
		return st
	}
	st.Exists = true
	st.SizeBytes = info.Size()
	st.ModifiedAt = info.ModTime()
	return st
}

// resolveKind maps the auto kind to a concrete backend by artifact suffix.
func resolveKind(path, kind string) string {
	if kind != "" && kind != config.ModelKindAuto {
		return kind
	}
	if path == "" {
		return config.ModelKindAuto
	}
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return config.ModelKindLinear
	}
	return config.ModelKindONNX
}
