package feed

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/johnnewto/seamap/pkg/models"
	"github.com/johnnewto/seamap/pkg/track"
)

//go:embed templates/index.html
var pageFS embed.FS

var pageTmpl = template.Must(template.ParseFS(pageFS, "templates/index.html"))

// PageOptions configures the map page.
type PageOptions struct {
	Title        string
	Vessel       string
	PollInterval time.Duration
	Zoom         int
}

type pageData struct {
	Title  string
	Center models.Waypoint
	Track  []models.Waypoint
	Zoom   int
	PollMS int64
}

// Index renders the map seeded with the current track, centred on the latest waypoint.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	points, err := h.feed.Track(r.Context())
	if err == nil && len(points) == 0 {
		err = track.ErrEmptyTrack
	}
	if err != nil {
		h.logger.Error("Page Render Error", zap.Error(err))
		http.Error(w, "track unavailable", http.StatusInternalServerError)
		return
	}

	data := pageData{
		Title:  h.page.Title,
		Center: points[len(points)-1],
		Track:  points,
		Zoom:   h.page.Zoom,
		PollMS: h.page.PollInterval.Milliseconds(),
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		h.logger.Error("Template Error", zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
