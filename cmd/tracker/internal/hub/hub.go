package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/johnnewto/seamap/cmd/tracker/internal/observability"
	"github.com/johnnewto/seamap/cmd/tracker/internal/protocol"
	"github.com/johnnewto/seamap/pkg/models"
	"github.com/johnnewto/seamap/pkg/track"
)

// MaxHistory caps a single history response.
const MaxHistory = 500

// snapshotTimeout bounds the store read done while Register holds the hub lock.
var snapshotTimeout = time.Second

type ClientInterface interface {
	ID() string
	SendJSON(v interface{})
	SendBytes(b []byte)
	Close()
}

// Hub fans new waypoints out to every connected viewer.
type Hub struct {
	clients map[ClientInterface]bool

	store  track.Store
	logger *zap.Logger
	mu     sync.RWMutex
}

func NewHub(store track.Store, logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[ClientInterface]bool),
		store:   store,
		logger:  logger,
	}
}

// Register adds client and sends it the latest waypoint so the view starts in the right place.
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	observability.WSClients.Set(float64(len(h.clients)))

	// under the lock so no broadcast can overtake the snapshot
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()
	w, err := h.store.Latest(ctx)
	switch {
	case err == nil:
		client.SendJSON(protocol.WSResponse{Type: protocol.TypeWaypoint, Data: w})
	case !errors.Is(err, track.ErrEmptyTrack):
		h.logger.Warn("Snapshot read failed", zap.String("client", client.ID()), zap.Error(err))
	}
	h.logger.Debug("Client registered", zap.String("client", client.ID()))
}

func (h *Hub) HandleCommand(client ClientInterface, req protocol.WSRequest) {
	switch req.Action {
	case protocol.ActionLatest:
		h.handleLatest(client, req)
	case protocol.ActionHistory:
		h.handleHistory(client, req)
	default:
		h.sendError(client, req.ID, "Unknown action: "+req.Action)
	}
}

func (h *Hub) handleLatest(client ClientInterface, req protocol.WSRequest) {
	w, err := h.store.Latest(context.Background())
	if err != nil {
		h.sendError(client, req.ID, err.Error())
		return
	}
	client.SendJSON(protocol.WSResponse{Type: protocol.TypeWaypoint, ID: req.ID, Data: w})
}

func (h *Hub) handleHistory(client ClientInterface, req protocol.WSRequest) {
	limit := req.Payload.Limit
	if limit <= 0 || limit > MaxHistory {
		limit = MaxHistory
	}

	points, err := h.store.Recent(context.Background(), limit)
	if err != nil {
		h.logger.Error("History read failed", zap.Error(err))
		h.sendError(client, req.ID, "History unavailable")
		return
	}
	client.SendJSON(protocol.WSResponse{
		Type:    protocol.TypeHistory,
		ID:      req.ID,
		Status:  "success",
		Message: fmt.Sprintf("%d waypoints", len(points)),
		Data:    points,
	})
}

func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	observability.WSClients.Set(float64(len(h.clients)))
	client.Close()
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Name() string { return "websocket" }

// Publish implements feed.Sink.
func (h *Hub) Publish(ctx context.Context, ev models.WaypointEvent) error {
	payload, err := json.Marshal(protocol.WSResponse{Type: protocol.TypeWaypoint, Data: ev.Waypoint})
	if err != nil {
		return err
	}
	h.Broadcast(payload)
	return nil
}

func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		client.SendBytes(payload)
	}
}

func (h *Hub) sendError(c ClientInterface, id, msg string) {
	c.SendJSON(protocol.WSResponse{Type: protocol.TypeError, ID: id, Status: "error", Message: msg})
}
