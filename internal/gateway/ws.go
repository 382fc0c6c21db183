package gateway

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/byom-labs/byom-chat/pkg/logger"
	"github.com/byom-labs/byom-chat/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 512 * 1024
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browsers connect cross-origin in dev; the demo trusts all origins,
	// matching its CORS posture.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsSession adapts one websocket connection to the hub's Session contract.
type wsSession struct {
	conn *websocket.Conn
	gw   *Gateway
	log  *logger.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// Handler returns the HTTP handler for GET /ws, upgrading each request to
// a websocket session driven by the gateway.
func (g *Gateway) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			g.log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		sess := &wsSession{
			conn: conn,
			gw:   g,
			log:  g.log,
			send: make(chan []byte, sendBufferSize),
		}

		metrics.IncrementWSConnections()
		go sess.writePump()
		go sess.readPump(r)
	}
}

// Send marshals the event and queues it for delivery. Frames to a slow
// client are dropped rather than blocking the broadcaster.
func (s *wsSession) Send(event string, data any) error {
	frame, err := Encode(event, data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return websocket.ErrCloseSent
	}
	select {
	case s.send <- frame:
		return nil
	default:
		s.log.Warn("send buffer full, dropping frame", zap.String("event", event))
		return nil
	}
}

func (s *wsSession) readPump(r *http.Request) {
	defer s.teardown("read closed")

	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		s.gw.Dispatch(r.Context(), s, raw)
	}
}

func (s *wsSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *wsSession) teardown(reason string) {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
	s.mu.Unlock()

	s.gw.Disconnect(s, reason)
	s.conn.Close()
	metrics.DecrementWSConnections()
}
