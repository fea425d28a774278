package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"build-watcher/internal/poller"
)

// Coordinator is the part of the poll coordinator the handlers need.
type Coordinator interface {
	Tick(ctx context.Context) (poller.Outcome, error)
	Latest() (poller.Report, bool)
}

type BuildsHandler struct {
	Coord Coordinator
}

func NewBuildsHandler(c Coordinator) *BuildsHandler {
	return &BuildsHandler{Coord: c}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Latest serves the last comparison report, or 204 before the first one.
func (h *BuildsHandler) Latest(w http.ResponseWriter, _ *http.Request) {
	r, ok := h.Coord.Latest()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, r)
}

// Poll runs one tick synchronously.
func (h *BuildsHandler) Poll(w http.ResponseWriter, r *http.Request) {
	out, err := h.Coord.Tick(r.Context())
	switch {
	case errors.Is(err, poller.ErrTickInFlight):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case err != nil:
		log.Error().Err(err).Msg("manual poll failed")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error(), "outcome": out.String()})
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"outcome": out.String()})
	}
}
