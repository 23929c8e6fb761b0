package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

const (
	frameSnapshot = "snapshot"
	frameResult   = "result"
	frameError    = "error"

	// clients only send control frames, anything larger is a protocol violation
	maxClientFrame = 4096
)

// streamFrame is one text frame of a route stream.
type streamFrame struct {
	Type      string          `json:"type"`
	Values    []stopResponse  `json:"values,omitempty"`
	Data      *routeResponse  `json:"data,omitempty"`
	TimeTaken float64         `json:"timetaken,omitempty"`
	Error     *errorFrameBody `json:"error,omitempty"`
}

type errorFrameBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RouteStream is one open websocket streaming a route search. its context ends when the
// client goes away or the stream is closed.
type RouteStream struct {
	mu     sync.Mutex
	conn   net.Conn
	closed bool

	ctx    context.Context
	cancel context.CancelFunc

	id     uint64
	opened time.Time
}

func (s *RouteStream) Context() context.Context {
	return s.ctx
}

// watch reads client frames until a close frame or a read error, then cancels the stream.
// pings are answered, data frames are discarded.
func (s *RouteStream) watch() {
	defer s.cancel()
	for {
		h, err := ws.ReadHeader(s.conn)
		if err != nil || h.Length > maxClientFrame {
			return
		}
		payload := make([]byte, h.Length)
		if _, err := io.ReadFull(s.conn, payload); err != nil {
			return
		}
		switch h.OpCode {
		case ws.OpClose:
			return
		case ws.OpPing:
			if h.Masked {
				ws.Cipher(payload, h.Mask, 0)
			}
			s.mu.Lock()
			if !s.closed {
				_ = wsutil.WriteServerMessage(s.conn, ws.OpPong, payload)
			}
			s.mu.Unlock()
		}
	}
}

func (s *RouteStream) send(f streamFrame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return net.ErrClosed
	}
	return wsutil.WriteServerText(s.conn, payload)
}

func (s *RouteStream) close(code ws.StatusCode, reason string) error {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_ = wsutil.WriteServerMessage(s.conn, ws.OpClose, ws.NewCloseFrameBody(code, reason))
	return s.conn.Close()
}

// Hub tracks the open route streams so they can be closed on shutdown.
type Hub struct {
	mu      sync.RWMutex
	seq     uint64
	streams map[uint64]*RouteStream
}

func NewHub() *Hub {
	return &Hub{
		streams: make(map[uint64]*RouteStream),
	}
}

// Open registers conn and starts watching it for the client leaving. the stream's
// context is derived from ctx.
func (h *Hub) Open(ctx context.Context, conn net.Conn) *RouteStream {
	sctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.seq++
	s := &RouteStream{conn: conn, ctx: sctx, cancel: cancel, id: h.seq, opened: time.Now()}
	h.streams[s.id] = s
	h.mu.Unlock()

	go s.watch()
	return s
}

// Close ends stream with a normal closure. closing twice is a no-op.
func (h *Hub) Close(s *RouteStream) {
	h.detach(s)
	_ = s.close(ws.StatusNormalClosure, "")
}

func (h *Hub) detach(s *RouteStream) {
	h.mu.Lock()
	delete(h.streams, s.id)
	h.mu.Unlock()
}

// CloseAll ends every open stream with a going away closure.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	streams := h.streams
	h.streams = make(map[uint64]*RouteStream)
	h.mu.Unlock()

	for _, s := range streams {
		_ = s.close(ws.StatusGoingAway, "server shutting down")
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams)
}
