package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/johnnewto/seamap/cmd/tracker/internal/hub"
	"github.com/johnnewto/seamap/cmd/tracker/internal/protocol"
)

const (
	maxMessageSize = 4 * 1024 // requests are tiny
)

type ClientAdapter struct {
	conn   net.Conn
	hub    *hub.Hub
	send   chan []byte
	logger *zap.Logger

	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration
}

func NewClient(conn net.Conn, h *hub.Hub, logger *zap.Logger) *ClientAdapter {
	return &ClientAdapter{
		conn:       conn,
		hub:        h,
		send:       make(chan []byte, 256),
		logger:     logger,
		writeWait:  5 * time.Second,
		pongWait:   60 * time.Second,
		pingPeriod: 50 * time.Second,
	}
}

// Start registers with the hub (which queues the latest waypoint) and runs the pumps.
func (c *ClientAdapter) Start() {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump()
}

func (c *ClientAdapter) ID() string { return c.conn.RemoteAddr().String() }
func (c *ClientAdapter) Close()     { close(c.send) } // Only close channel, let writePump close conn

func (c *ClientAdapter) SendJSON(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Marshal Error", zap.Error(err))
		return
	}
	c.SendBytes(b)
}

func (c *ClientAdapter) SendBytes(b []byte) {
	select {
	case c.send <- b:
	default:
		// Drop message if buffer full (Backpressure)
	}
}

func (c *ClientAdapter) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	rd := &wsutil.Reader{
		Source:         c.conn,
		State:          ws.StateServerSide,
		CheckUTF8:      true,
		MaxFrameSize:   maxMessageSize,
		OnIntermediate: discardFrame,
	}

	for {
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))

		hdr, err := rd.NextFrame()
		if err != nil {
			if errors.Is(err, wsutil.ErrFrameTooLarge) {
				c.logger.Warn("Frame too large", zap.String("client", c.ID()))
			}
			return
		}

		switch hdr.OpCode {
		case ws.OpClose:
			return
		case ws.OpText:
			// fragments are joined by the reader, so bound the whole message too
			msg, err := io.ReadAll(io.LimitReader(rd, maxMessageSize+1))
			if err != nil {
				return
			}
			if len(msg) > maxMessageSize {
				c.logger.Warn("Message too large", zap.String("client", c.ID()), zap.Int("size", len(msg)))
				return
			}
			c.handleRequest(msg)
		default:
			// pongs, pings and binary frames only refresh the deadline
			if err := rd.Discard(); err != nil {
				return
			}
		}
	}
}

func (c *ClientAdapter) handleRequest(msg []byte) {
	var req protocol.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		c.SendJSON(protocol.WSResponse{Type: protocol.TypeError, Status: "error", Message: "Invalid JSON"})
		return
	}
	req.Action = strings.ToLower(strings.TrimSpace(req.Action))
	c.hub.HandleCommand(c, req)
}

// discardFrame drops control frames that arrive between fragments.
func discardFrame(_ ws.Header, r io.Reader) error {
	_, err := io.Copy(io.Discard, r)
	return err
}

func (c *ClientAdapter) writePump() {
	ping := time.NewTicker(c.pingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		var err error
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.write(ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
				return
			}
			err = c.write(ws.OpText, msg)
		case <-ping.C:
			err = c.write(ws.OpPing, nil)
		}
		if err != nil {
			c.logger.Debug("Write failed", zap.String("client", c.ID()), zap.Error(err))
			return
		}
	}
}

func (c *ClientAdapter) write(op ws.OpCode, payload []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	return wsutil.WriteServerMessage(c.conn, op, payload)
}
