package handlers

import (
	"net/http"

	"mediaboost/internal/topaz"
)

// Models publishes the enhancement model catalog so the UI never
// hardcodes it.
func (a *App) Models(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"video": topaz.VideoModels,
		"image": topaz.ImageModels,
	})
}
