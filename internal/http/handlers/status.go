package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"mediaboost/internal/domain"
)

// Status proxies one normalized poll of the remote job state.
func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "process id required")
		return
	}

	st, err := a.Enhancer.Status(r.Context(), id)
	if err != nil {
		a.Logger.Warn().Err(err).Str("job_id", id).Msg("status poll failed")
		a.error(w, http.StatusBadGateway, err.Error())
		return
	}
	a.json(w, http.StatusOK, st)
}

// DownloadVideo streams the enhanced result through the server so
// browser clients never need credentials for the remote storage.
func (a *App) DownloadVideo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "process id required")
		return
	}

	body, contentType, length, err := a.Enhancer.Download(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrNotReady):
		a.error(w, http.StatusTooEarly, "enhancement is not finished yet")
		return
	case errors.Is(err, domain.ErrJobFailed):
		a.error(w, http.StatusBadGateway, err.Error())
		return
	case err != nil:
		a.Logger.Error().Err(err).Str("job_id", id).Msg("download failed")
		a.error(w, http.StatusBadGateway, err.Error())
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", attachmentFor("enhanced-"+id+extensionFor(contentType)))
	if length > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	}
	if _, err := io.Copy(w, body); err != nil {
		// Headers are gone; all that is left is the log line.
		a.Logger.Warn().Err(err).Str("job_id", id).Msg("download stream interrupted")
	}
}

func extensionFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "quicktime"):
		return ".mov"
	case strings.Contains(contentType, "matroska"):
		return ".mkv"
	case strings.Contains(contentType, "webm"):
		return ".webm"
	default:
		return ".mp4"
	}
}
