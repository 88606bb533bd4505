package controller

import (
	"context"
	"sync"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// EventKind tells listeners what happened.
type EventKind int

const (
	// EventState is emitted after every change of the alarm.
	EventState EventKind = iota
	// EventCue is emitted for every cue played while sounding.
	EventCue
)

// String returns the wire name of the event kind.
func (k EventKind) String() string {
	if k == EventCue {
		return "cue"
	}

	return "state"
}

// Event is a state change or a cue, with the alarm right after it.
type Event struct {
	Kind     EventKind
	Snapshot *domain.Snapshot
}

// Listener receives events.
type Listener func(ctx context.Context, e Event)

// fanout delivers events to listeners in subscription order. Each listener
// gets its own copy of the snapshot.
type fanout struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]Listener
	order     []uint64
}

func newFanout() *fanout {
	return &fanout{listeners: make(map[uint64]Listener)}
}

func (f *fanout) add(l Listener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	f.listeners[id] = l
	f.order = append(f.order, id)

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()

		delete(f.listeners, id)

		for i, v := range f.order {
			if v == id {
				f.order = append(f.order[:i], f.order[i+1:]...)
				break
			}
		}
	}
}

func (f *fanout) emit(ctx context.Context, e Event) {
	f.mu.RLock()
	listeners := make([]Listener, 0, len(f.order))

	for _, id := range f.order {
		listeners = append(listeners, f.listeners[id])
	}
	f.mu.RUnlock()

	for _, l := range listeners {
		l(ctx, Event{Kind: e.Kind, Snapshot: e.Snapshot.Clone()})
	}
}
