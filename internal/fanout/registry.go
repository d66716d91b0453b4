// Package fanout relays market-data messages from an upstream feed to every
// live connection subscribed to the message's channel.
package fanout

import (
	"context"
	"sync"

	"github.com/yourusername/greedi-fi/internal/metrics"
)

// Conn is the minimal capability the fan-out layer needs from a live client
// connection. Send must respect ctx cancellation so a stalled peer cannot
// block the relay loop beyond the configured delivery timeout.
type Conn interface {
	Send(ctx context.Context, payload []byte) error
}

// channelEntry holds the subscriber set for one channel. Each entry carries
// its own lock so unrelated channels never serialize on each other.
type channelEntry struct {
	mu      sync.RWMutex
	members map[Conn]struct{}
}

// Registry tracks, per channel name, the set of currently subscribed
// connections. Entries persist after their last member leaves.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]*channelEntry
}

// NewRegistry creates an empty channel registry
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]*channelEntry)}
}

// Subscribe registers conn under channel, creating the entry on first use.
// Subscribing an already registered connection is a no-op.
func (r *Registry) Subscribe(channel string, conn Conn) {
	entry := r.entry(channel, true)
	entry.mu.Lock()
	entry.members[conn] = struct{}{}
	entry.mu.Unlock()
}

// Unsubscribe removes conn from channel's member set. Removing an absent
// connection is tolerated; disconnect races are expected.
func (r *Registry) Unsubscribe(channel string, conn Conn) {
	entry := r.entry(channel, false)
	if entry == nil {
		return
	}
	entry.mu.Lock()
	delete(entry.members, conn)
	entry.mu.Unlock()
}

// Members returns a snapshot of channel's current subscribers. The entry lock
// is held only for the copy.
func (r *Registry) Members(channel string) []Conn {
	entry := r.entry(channel, false)
	if entry == nil {
		return nil
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()
	members := make([]Conn, 0, len(entry.members))
	for conn := range entry.members {
		members = append(members, conn)
	}
	return members
}

// ChannelCount returns the number of channel entries seen so far
func (r *Registry) ChannelCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

func (r *Registry) entry(channel string, create bool) *channelEntry {
	r.mu.RLock()
	entry, ok := r.channels[channel]
	r.mu.RUnlock()
	if ok || !create {
		return entry
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok = r.channels[channel]; ok {
		return entry
	}
	entry = &channelEntry{members: make(map[Conn]struct{})}
	r.channels[channel] = entry
	metrics.SubscribedChannels.Set(float64(len(r.channels)))
	return entry
}
