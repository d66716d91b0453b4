// Package feed abstracts the upstream publish/subscribe market-data source.
package feed

import (
	"context"
	"strings"
	"sync"
)

// Channel name prefixes used across the platform
const (
	OrderBookPrefix = "orderbook:"
	TradesPrefix    = "trades:"
)

// Message is one (channel, payload) pair from the feed. Payload is an opaque
// JSON document passed through to subscribers unmodified.
type Message struct {
	Channel string
	Payload []byte
}

// Source delivers feed messages matching the given channel patterns.
// Patterns may end in "*" for prefix wildcards (e.g. "orderbook:*"); the
// source demultiplexes to exact channel names before delivery. The returned
// channel closes when the feed disconnects or ctx is cancelled; callers
// resubscribe to recover.
type Source interface {
	Subscribe(ctx context.Context, patterns []string) (<-chan Message, error)
}

// MatchPattern reports whether channel matches pattern, honouring a trailing
// "*" prefix wildcard.
func MatchPattern(pattern, channel string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(channel, prefix)
	}
	return pattern == channel
}

// MemorySource is an in-process Source for tests and local development.
// Publish fans messages out to every subscription whose patterns match.
type MemorySource struct {
	mu   sync.Mutex
	subs []*memorySub
}

type memorySub struct {
	patterns []string
	ch       chan Message
	done     <-chan struct{}
}

// NewMemorySource creates an in-memory feed source
func NewMemorySource() *MemorySource {
	return &MemorySource{}
}

// Subscribe registers a subscription for the given patterns
func (s *MemorySource) Subscribe(ctx context.Context, patterns []string) (<-chan Message, error) {
	sub := &memorySub{
		patterns: patterns,
		ch:       make(chan Message, 64),
		done:     ctx.Done(),
	}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		for i, candidate := range s.subs {
			if candidate == sub {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		close(sub.ch)
	}()

	return sub.ch, nil
}

// SubscriberCount returns the number of active subscriptions
func (s *MemorySource) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Publish delivers a message to all matching subscriptions
func (s *MemorySource) Publish(channel string, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		for _, pattern := range sub.patterns {
			if !MatchPattern(pattern, channel) {
				continue
			}
			select {
			case sub.ch <- Message{Channel: channel, Payload: payload}:
			case <-sub.done:
			}
			break
		}
	}
}
