// Package handlers exposes the enhancement proxy over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"mediaboost/internal/domain"
	"mediaboost/internal/infra"
	"mediaboost/internal/storage"
	"mediaboost/internal/topaz"
)

// Prober extracts source metadata from a staged upload.
type Prober interface {
	Probe(ctx context.Context, path, originalName string) (domain.SourceMetadata, error)
}

// Enhancer is the slice of the remote client the handlers need.
type Enhancer interface {
	SubmitAndUpload(ctx context.Context, src topaz.Source, job topaz.JobRequest) (*topaz.Submission, error)
	EnhanceImage(ctx context.Context, src topaz.Source, params topaz.ImageParams) ([]byte, string, error)
	Status(ctx context.Context, id string) (*topaz.JobStatus, error)
	Download(ctx context.Context, id string) (io.ReadCloser, string, int64, error)
}

// App carries the handler dependencies.
type App struct {
	Logger   infra.Logger
	Cfg      infra.Config
	Prober   Prober
	Enhancer Enhancer
	Scratch  *storage.Scratch
}

func NewApp(logger infra.Logger, cfg infra.Config, prober Prober, enhancer Enhancer, scratch *storage.Scratch) *App {
	return &App{Logger: logger, Cfg: cfg, Prober: prober, Enhancer: enhancer, Scratch: scratch}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}
