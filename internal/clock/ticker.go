package clock

import (
	"context"
	"sync"
	"time"

	"github.com/oshokin/alarm-clock/internal/logger"
)

// Handler receives readings. It runs on the ticker goroutine and must not block.
type Handler func(ctx context.Context, r Reading)

// Ticker samples the wall clock once per interval and publishes each
// reading to its subscribers in subscription order.
type Ticker struct {
	interval time.Duration
	location *time.Location

	mu       sync.Mutex
	nextID   uint64
	handlers map[uint64]Handler
	order    []uint64
	last     Reading
}

// NewTicker creates a ticker. A nil location means time.Local.
func NewTicker(interval time.Duration, location *time.Location) *Ticker {
	if location == nil {
		location = time.Local
	}

	return &Ticker{
		interval: interval,
		location: location,
		handlers: make(map[uint64]Handler),
	}
}

// Subscribe registers h and returns a function that removes it.
func (t *Ticker) Subscribe(h Handler) (unsubscribe func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++
	t.handlers[id] = h
	t.order = append(t.order, id)

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()

		delete(t.handlers, id)

		for i, v := range t.order {
			if v == id {
				t.order = append(t.order[:i], t.order[i+1:]...)
				break
			}
		}
	}
}

// Last returns the most recent reading, or a fresh sample before the first tick.
func (t *Ticker) Last() Reading {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.last.Time.IsZero() {
		return t.sample()
	}

	return t.last
}

// Run publishes a reading immediately and then every interval until ctx is
// done. Handlers are never called after Run returns.
func (t *Ticker) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "ticker")

	logger.DebugKV(ctx, "Clock ticker started", "interval", t.interval.String(), "location", t.location.String())

	t.publish(ctx)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug(ctx, "Clock ticker stopped")
			return nil
		case <-ticker.C:
			t.publish(ctx)
		}
	}
}

func (t *Ticker) publish(ctx context.Context) {
	t.mu.Lock()
	r := t.sample()
	t.last = r

	handlers := make([]Handler, 0, len(t.order))
	for _, id := range t.order {
		handlers = append(handlers, t.handlers[id])
	}
	t.mu.Unlock()

	for _, h := range handlers {
		h(ctx, r)
	}
}

// sample reads the wall clock. Callers hold mu.
func (t *Ticker) sample() Reading {
	return Reading{Time: time.Now().In(t.location)}
}
