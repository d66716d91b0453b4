package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSConfig configures the exchange WebSocket feed source
type WSConfig struct {
	URL              string
	Symbols          []string
	HandshakeTimeout time.Duration
	ReadLimit        int64
}

// WSSource subscribes to an exchange WebSocket feed (Deribit-style JSON-RPC)
// and demultiplexes upstream notifications into exact platform channel names
// (orderbook:<symbol>, trades:<symbol>).
type WSSource struct {
	cfg    WSConfig
	logger *logrus.Logger
}

// subscribeRequest is the upstream JSON-RPC subscription message
type subscribeRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  subscribeParams `json:"params"`
}

type subscribeParams struct {
	Channels []string `json:"channels"`
}

// notification is the envelope of an upstream subscription push
type notification struct {
	Method string `json:"method"`
	Params struct {
		Channel string          `json:"channel"`
		Data    json.RawMessage `json:"data"`
	} `json:"params"`
}

// NewWSSource creates a WebSocket feed source
func NewWSSource(cfg WSConfig, logger *logrus.Logger) *WSSource {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &WSSource{cfg: cfg, logger: logger}
}

// Subscribe dials the upstream feed, subscribes to the channels implied by
// patterns for every configured symbol and streams demultiplexed messages
// until the connection drops or ctx is cancelled.
func (s *WSSource) Subscribe(ctx context.Context, patterns []string) (<-chan Message, error) {
	upstream := s.upstreamChannels(patterns)
	if len(upstream) == 0 {
		return nil, fmt.Errorf("no upstream channels derived from patterns %v", patterns)
	}

	dialer := websocket.Dialer{HandshakeTimeout: s.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to feed: %w", err)
	}
	if s.cfg.ReadLimit > 0 {
		conn.SetReadLimit(s.cfg.ReadLimit)
	}

	req := subscribeRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "public/subscribe",
		Params:  subscribeParams{Channels: upstream},
	}
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"url":      s.cfg.URL,
		"channels": len(upstream),
	}).Info("Subscribed to upstream feed")

	out := make(chan Message, 256)
	go s.readLoop(ctx, conn, out)
	return out, nil
}

func (s *WSSource) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- Message) {
	defer close(out)
	defer conn.Close()

	// Unblock ReadMessage when the caller cancels
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.logger.WithError(err).Warn("Feed read failed")
			}
			return
		}

		var note notification
		if err := json.Unmarshal(raw, &note); err != nil || note.Method != "subscription" {
			// Subscription acks and heartbeats are not relayed
			continue
		}

		channel, ok := demux(note.Params.Channel)
		if !ok {
			s.logger.WithField("channel", note.Params.Channel).Debug("Ignoring unknown upstream channel")
			continue
		}

		select {
		case out <- Message{Channel: channel, Payload: note.Params.Data}:
		case <-ctx.Done():
			return
		}
	}
}

// upstreamChannels maps platform patterns to upstream channel names for every
// configured symbol.
func (s *WSSource) upstreamChannels(patterns []string) []string {
	var channels []string
	for _, symbol := range s.cfg.Symbols {
		for _, pattern := range patterns {
			switch {
			case MatchPattern(pattern, OrderBookPrefix+symbol):
				channels = append(channels, "book."+symbol+".100ms")
			case MatchPattern(pattern, TradesPrefix+symbol):
				channels = append(channels, "trades."+symbol+".100ms")
			}
		}
	}
	return channels
}

// demux converts an upstream channel name (book.<symbol>.100ms) into the
// exact platform channel name used for registry lookup.
func demux(upstream string) (string, bool) {
	parts := strings.Split(upstream, ".")
	if len(parts) < 2 {
		return "", false
	}
	switch parts[0] {
	case "book":
		return OrderBookPrefix + parts[1], true
	case "trades":
		return TradesPrefix + parts[1], true
	default:
		return "", false
	}
}
