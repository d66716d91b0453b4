package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/greedi-fi/internal/feed"
	"github.com/yourusername/greedi-fi/internal/metrics"
)

const (
	wsWriteDeadline = 10 * time.Second
	wsSendBuffer    = 64
)

// wsConn adapts a gorilla WebSocket connection to the fan-out Conn
// capability. A single writer goroutine drains the outbound buffer, so
// messages reach the peer in the order they were accepted.
type wsConn struct {
	conn   *websocket.Conn
	out    chan []byte
	closed chan struct{}
	once   sync.Once
}

func newWSConn(conn *websocket.Conn) *wsConn {
	c := &wsConn{
		conn:   conn,
		out:    make(chan []byte, wsSendBuffer),
		closed: make(chan struct{}),
	}
	go c.writePump()
	return c
}

// Send queues payload for delivery. It fails when the outbound buffer stays
// full past ctx's deadline or the connection has closed; a failure marks the
// connection for registry removal.
func (c *wsConn) Send(ctx context.Context, payload []byte) error {
	select {
	case <-c.closed:
		return fmt.Errorf("connection closed")
	default:
	}

	select {
	case c.out <- payload:
		return nil
	case <-c.closed:
		return fmt.Errorf("connection closed")
	case <-ctx.Done():
		return fmt.Errorf("send timed out: %w", ctx.Err())
	}
}

func (c *wsConn) writePump() {
	for {
		select {
		case payload := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *wsConn) close() {
	c.once.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}

func (s *Server) handleOrderBookWS(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	s.serveChannelWS(w, r, feed.OrderBookPrefix+symbol, symbol)
}

func (s *Server) handleTradesWS(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	s.serveChannelWS(w, r, feed.TradesPrefix+symbol, "")
}

// serveChannelWS upgrades the connection, subscribes it to channel and holds
// it until the client disconnects. Disconnect removes the connection from the
// registry before the handler returns, so the next fan-out cycle cannot
// reach it.
func (s *Server) serveChannelWS(w http.ResponseWriter, r *http.Request, channel, snapshotSymbol string) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := newWSConn(conn)
	defer client.close()

	// Order-book subscribers get the latest snapshot before live updates
	if snapshotSymbol != "" {
		if snapshot, err := s.market.OrderBookSnapshot(snapshotSymbol); err == nil {
			sendCtx, cancel := context.WithTimeout(r.Context(), wsWriteDeadline)
			client.Send(sendCtx, snapshot)
			cancel()
		}
	}

	s.registry.Subscribe(channel, client)
	metrics.ActiveConnections.Inc()
	s.logger.WithFields(logrus.Fields{
		"channel": channel,
		"remote":  conn.RemoteAddr().String(),
	}).Debug("Client subscribed")

	defer func() {
		s.registry.Unsubscribe(channel, client)
		metrics.ActiveConnections.Dec()
		s.logger.WithField("channel", channel).Debug("Client unsubscribed")
	}()

	// Inbound frames are ignored; the read loop exists to detect disconnect
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
