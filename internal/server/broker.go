package server

import (
	"encoding/json"
	"sync"

	"github.com/mixzter/duel/internal/match"
)

// Broker is an in-process pub/sub for match snapshots, keyed by match ID.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded snapshots of the
// given match. The channel is closed when the match is abandoned.
func (b *Broker) Subscribe(matchID string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[matchID] == nil {
		b.subs[matchID] = make(map[chan []byte]struct{})
	}
	b.subs[matchID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the match's subscribers.
func (b *Broker) Unsubscribe(matchID string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[matchID], ch)
	if len(b.subs[matchID]) == 0 {
		delete(b.subs, matchID)
	}
	b.mu.Unlock()
}

// Publish sends a snapshot to all subscribers of its match.
func (b *Broker) Publish(snap match.Snapshot) {
	if snap.Match == nil {
		return
	}
	data, _ := json.Marshal(snap)
	b.mu.RLock()
	for ch := range b.subs[snap.Match.MatchID] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}

// Close ends every subscription of a match by closing the subscriber
// channels.
func (b *Broker) Close(matchID string) {
	b.mu.Lock()
	for ch := range b.subs[matchID] {
		close(ch)
	}
	delete(b.subs, matchID)
	b.mu.Unlock()
}

// Subscribers returns the number of subscribers of a match.
func (b *Broker) Subscribers(matchID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[matchID])
}
