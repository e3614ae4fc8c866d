package feed

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/johnnewto/seamap/pkg/models"
	"github.com/johnnewto/seamap/pkg/track"
)

type Handler struct {
	feed   *Feed
	logger *zap.Logger
	page   PageOptions
}

func NewHandler(feed *Feed, logger *zap.Logger, page PageOptions) *Handler {
	return &Handler{feed: feed, logger: logger, page: page}
}

// Routes registers the public endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /new_waypoint", h.NewWaypoint)
	mux.HandleFunc("GET /track.geojson", h.TrackGeoJSON)
	mux.HandleFunc("GET /healthz", h.Health)
}

// NewWaypoint advances the track by one step and returns the new waypoint.
func (h *Handler) NewWaypoint(w http.ResponseWriter, r *http.Request) {
	wp, err := h.feed.Advance(r.Context())
	if err != nil {
		h.logger.Error("Feed Error", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, wp)
}

func (h *Handler) TrackGeoJSON(w http.ResponseWriter, r *http.Request) {
	points, err := h.feed.Track(r.Context())
	if err != nil {
		h.logger.Error("Track Read Error", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(models.TrackCollection(points))
}

type healthResponse struct {
	Status    string `json:"status"`
	Vessel    string `json:"vessel,omitempty"`
	Waypoints int    `json:"waypoints"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	n, err := h.feed.Len(r.Context())
	if err == nil && n == 0 {
		err = track.ErrEmptyTrack
	}
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Vessel: h.page.Vessel, Waypoints: n})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
