package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oshokin/alarm-clock/internal/audio"
	"github.com/oshokin/alarm-clock/internal/clock"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
)

const (
	// DefaultCueInterval is the period between cues while sounding.
	DefaultCueInterval = 600 * time.Millisecond
	// DefaultDuration is how long the alarm sounds before stopping by itself.
	DefaultDuration = 15 * time.Second
)

var (
	// ErrSounding is returned when the target is changed while the alarm sounds.
	ErrSounding = errors.New("alarm is sounding")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("controller is closed")
)

// Player plays one cue per call. Stop silences cues in flight and must be a
// no-op when they have already finished.
type Player interface {
	Play(ctx context.Context) error
	Stop()
}

// Option configures a Controller.
type Option func(*Controller)

// WithCueInterval sets the period between cues.
func WithCueInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.cueInterval = d
		}
	}
}

// WithDuration sets the automatic stop deadline.
func WithDuration(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.duration = d
		}
	}
}

// Controller is the alarm state machine. All methods are safe for
// concurrent use.
type Controller struct {
	player      Player
	cueInterval time.Duration
	duration    time.Duration
	events      *fanout

	mu      sync.Mutex
	cfg     domain.Config
	state   domain.State
	session *session
	// firedMinute is the start of the last minute the alarm fired in.
	firedMinute time.Time
	closed      bool
}

// session is the lifetime of one sounding alarm. The cue ticker and the
// deadline timer are created and released together.
type session struct {
	since    time.Time
	deadline time.Time
	cues     int
	ticker   *time.Ticker
	timer    *time.Timer
	stop     chan struct{}
	done     chan struct{}
}

// New creates an idle controller playing cues through player.
func New(player Player, opts ...Option) *Controller {
	if player == nil {
		player = audio.Discard{}
	}

	c := &Controller{
		player:      player,
		cueInterval: DefaultCueInterval,
		duration:    DefaultDuration,
		events:      newFanout(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Subscribe registers l for state and cue events and returns a function
// removing it. Listeners run synchronously and must not call back into the
// controller.
func (c *Controller) Subscribe(l Listener) (unsubscribe func()) {
	return c.events.add(l)
}

// Snapshot returns the current alarm.
func (c *Controller) Snapshot() *domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshotLocked()
}

// SetTarget changes the target minute; "" clears it. The target cannot
// change while the alarm sounds.
func (c *Controller) SetTarget(ctx context.Context, target string) (*domain.Snapshot, error) {
	parsed, err := domain.ParseTarget(target)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()

	switch {
	case c.closed:
		c.mu.Unlock()
		return nil, ErrClosed
	case c.state == domain.StateSounding:
		c.mu.Unlock()
		return nil, ErrSounding
	}

	c.cfg.Target = parsed
	c.state = c.restingState()
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	logger.InfoKV(ctx, "Alarm target set", "target", parsed, "state", snapshot.State.String())
	c.events.emit(ctx, Event{Kind: EventState, Snapshot: snapshot})

	return snapshot, nil
}

// Toggle stops a sounding alarm, otherwise flips the enabled flag.
// Stopping clears the enabled flag and returns only after the session
// goroutine has exited, so no cue is played afterwards.
func (c *Controller) Toggle(ctx context.Context) (*domain.Snapshot, error) {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}

	var stopped *session

	if c.state == domain.StateSounding {
		stopped = c.session
		c.release(stopped)
		c.cfg.Enabled = false
	} else {
		c.cfg.Enabled = !c.cfg.Enabled
	}

	c.state = c.restingState()
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if stopped != nil {
		<-stopped.done
		c.player.Stop()

		logger.InfoKV(ctx, "Alarm stopped manually", "target", snapshot.Target, "cues", stopped.cues)
	} else {
		logger.InfoKV(ctx, "Alarm toggled", "enabled", snapshot.Enabled, "state", snapshot.State.String())
	}

	c.events.emit(ctx, Event{Kind: EventState, Snapshot: snapshot})

	return snapshot, nil
}

// OnTick compares a reading with the target and starts sounding on an exact
// minute match. It fires at most once per calendar minute.
func (c *Controller) OnTick(ctx context.Context, r clock.Reading) {
	c.mu.Lock()

	if c.closed || c.state != domain.StateArmed || r.Minute() != c.cfg.Target {
		c.mu.Unlock()
		return
	}

	minute := r.MinuteStart()
	if minute.Equal(c.firedMinute) {
		c.mu.Unlock()
		logger.DebugKV(ctx, "Alarm already fired this minute", "target", c.cfg.Target)

		return
	}

	c.firedMinute = minute
	s := c.start()
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	logger.InfoKV(ctx, "Alarm sounding", "target", snapshot.Target, "deadline", c.duration.String())
	c.events.emit(ctx, Event{Kind: EventState, Snapshot: snapshot})

	go c.run(context.WithoutCancel(ctx), s)
}

// Close releases a sounding session and rejects further changes. No cue is
// played after Close returns.
func (c *Controller) Close() {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return
	}

	c.closed = true
	s := c.session

	if s != nil {
		c.release(s)
		c.state = c.restingState()
	}
	c.mu.Unlock()

	if s != nil {
		<-s.done
		c.player.Stop()
	}
}

// start enters Sounding. Callers hold mu.
func (c *Controller) start() *session {
	now := time.Now()

	s := &session{
		since:    now,
		deadline: now.Add(c.duration),
		ticker:   time.NewTicker(c.cueInterval),
		timer:    time.NewTimer(c.duration),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	c.session = s
	c.state = domain.StateSounding

	return s
}

// release is the single cleanup path out of Sounding, shared by the manual
// stop, the deadline and Close. It cancels the cue ticker and the deadline
// timer together. Callers hold mu.
func (c *Controller) release(s *session) {
	s.ticker.Stop()
	s.timer.Stop()
	close(s.stop)

	if c.session == s {
		c.session = nil
	}
}

// run plays the first cue immediately and then one per interval until the
// session is released or its deadline passes. A cue tick landing on the
// deadline loses to the deadline.
func (c *Controller) run(ctx context.Context, s *session) {
	defer close(s.done)

	if !c.cue(ctx, s) {
		return
	}

	for {
		select {
		case <-s.stop:
			return
		case <-s.timer.C:
			c.expire(ctx, s)
			return
		case now := <-s.ticker.C:
			if !now.Before(s.deadline) {
				c.expire(ctx, s)
				return
			}

			if !c.cue(ctx, s) {
				return
			}
		}
	}
}

// cue plays one cue if s is still the live session.
func (c *Controller) cue(ctx context.Context, s *session) bool {
	c.mu.Lock()

	if c.session != s {
		c.mu.Unlock()
		return false
	}

	s.cues++
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if err := c.player.Play(ctx); err != nil {
		if errors.Is(err, audio.ErrUnavailable) {
			logger.DebugKV(ctx, "Cue skipped", "reason", err.Error())
		} else {
			logger.WarnKV(ctx, "Cue failed", "error", err)
		}
	}

	c.events.emit(ctx, Event{Kind: EventCue, Snapshot: snapshot})

	return true
}

// expire stops the alarm at its deadline and disables it so the next
// matching tick does not re-arm it.
func (c *Controller) expire(ctx context.Context, s *session) {
	c.mu.Lock()

	if c.session != s {
		c.mu.Unlock()
		return
	}

	c.release(s)
	c.cfg.Enabled = false
	c.state = c.restingState()
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	logger.InfoKV(ctx, "Alarm stopped automatically", "target", snapshot.Target, "cues", s.cues,
		"after", time.Since(s.since).String())
	c.events.emit(ctx, Event{Kind: EventState, Snapshot: snapshot})
}

// restingState is the state outside Sounding. Callers hold mu.
func (c *Controller) restingState() domain.State {
	if c.cfg.Enabled && c.cfg.Target != "" {
		return domain.StateArmed
	}

	return domain.StateIdle
}

// snapshotLocked copies the alarm. Callers hold mu.
func (c *Controller) snapshotLocked() *domain.Snapshot {
	snapshot := &domain.Snapshot{
		Config: c.cfg,
		State:  c.state,
	}

	if c.session != nil {
		snapshot.SoundingSince = c.session.since
		snapshot.Cues = c.session.cues
	}

	return snapshot
}
