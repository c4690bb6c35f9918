// Package notify fans events out from the pipeline to UI collaborators (the
// toast layer and the map). The core only signals; rendering is someone
// else's job.
package notify

import (
	"sync"
	"sync/atomic"
)

type Kind string

const (
	// KindNewSevere reports how many previously unseen Severe disruptions an
	// automatic refresh brought in.
	KindNewSevere    Kind = "new-severe-disruptions"
	KindFetchError   Kind = "fetch-error"
	KindFetchSuccess Kind = "fetch-success"

	// Map viewport commands emitted by the view-sync coordinator.
	KindMapSetView    Kind = "map-set-view"
	KindMapClosePopup Kind = "map-close-popup"
	KindMapOpenPopup  Kind = "map-open-popup"
)

// ViewCommand describes a viewport move for KindMapSetView events.
type ViewCommand struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Zoom       int     `json:"zoom"`
	Animate    bool    `json:"animate"`
	DurationMs int64   `json:"durationMs"`
}

type Event struct {
	Kind    Kind         `json:"kind"`
	Count   int          `json:"count,omitempty"`
	Message string       `json:"message,omitempty"`
	View    *ViewCommand `json:"view,omitempty"`
	PopupID string       `json:"popupId,omitempty"`
}

type Broadcaster struct {
	subscribers map[uint64]chan Event
	nextID      atomic.Uint64
	mu          sync.RWMutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan Event),
	}
}

func (b *Broadcaster) Subscribe() (uint64, chan Event) {
	id := b.nextID.Add(1)
	ch := make(chan Event, 64) // room for a full refresh cycle of events

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
			// Skip slow subscribers
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels, causing streams to exit gracefully
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
