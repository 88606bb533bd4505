package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/faiface/beep"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	grpcapi "github.com/oshokin/alarm-clock/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-clock/internal/api/web"
	"github.com/oshokin/alarm-clock/internal/audio"
	"github.com/oshokin/alarm-clock/internal/audio/speaker"
	"github.com/oshokin/alarm-clock/internal/clock"
	"github.com/oshokin/alarm-clock/internal/config"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/metrics"
	"github.com/oshokin/alarm-clock/internal/notify"
	"github.com/oshokin/alarm-clock/internal/service/controller"
)

// app holds the wired components of one alarm-clock process.
type app struct {
	cfg        *config.Config
	ticker     *clock.Ticker
	controller *controller.Controller
	output     *speaker.Output
	web        *web.Server
	grpc       *grpc.Server
	registry   *prometheus.Registry
}

// newApp builds every component and subscribes them to the ticker and the
// controller. Nothing runs until run.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	readout, err := clock.NewReadout(cfg.Locale)
	if err != nil {
		return nil, err
	}

	cue, err := buildCue(cfg.Tone)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		ticker:   clock.NewTicker(cfg.Alarm.TickInterval, loc),
		registry: prometheus.NewRegistry(),
	}

	var player controller.Player = audio.Discard{}
	if cfg.Speaker {
		a.output = speaker.New(cue)
		player = a.output
	}

	a.controller = controller.New(
		player,
		controller.WithCueInterval(cfg.Alarm.CueInterval),
		controller.WithDuration(cfg.Alarm.Duration),
	)

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := metrics.New(a.registry)

	accessLevel, _ := logger.ParseLogLevel(cfg.AccessLogLevel)

	a.web, err = web.NewServer(&web.Options{
		Alarm:          a.controller,
		Clock:          a.ticker,
		Readout:        readout,
		Cue:            cue,
		Hub:            web.NewHub(m),
		Gatherer:       a.registry,
		AccessLogLevel: accessLevel,
	})
	if err != nil {
		return nil, err
	}

	if cfg.GRPCAddress != "" {
		a.grpc = grpc.NewServer()
		grpcapi.RegisterAlarmClockServer(a.grpc, grpcapi.NewServer(a.controller, a.ticker))
	}

	// The controller compares first so the readings pushed to browsers
	// never run ahead of the alarm state.
	a.ticker.Subscribe(a.controller.OnTick)
	a.ticker.Subscribe(m.OnTick)
	a.ticker.Subscribe(a.web.OnTick)

	a.controller.Subscribe(m.OnEvent)
	a.controller.Subscribe(a.web.OnEvent)

	if cfg.Notify {
		a.controller.Subscribe(notifyOnStart(notify.NewDesktop()))
	}

	logger.DebugKV(ctx, "Alarm clock assembled",
		"locale", readout.Tag().String(),
		"location", loc.String(),
		"cue", cue.Duration().String(),
		"speaker", cfg.Speaker,
	)

	return a, nil
}

// run serves until ctx is done or a component fails, then shuts everything
// down within the configured timeout.
func (a *app) run(ctx context.Context) error {
	lc := net.ListenConfig{}

	httpListener, err := lc.Listen(ctx, "tcp", a.cfg.HTTPAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.cfg.HTTPAddress, err)
	}

	var grpcListener net.Listener
	if a.grpc != nil {
		if grpcListener, err = lc.Listen(ctx, "tcp", a.cfg.GRPCAddress); err != nil {
			_ = httpListener.Close()
			return fmt.Errorf("listen on %s: %w", a.cfg.GRPCAddress, err)
		}
	}

	defer a.close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.ticker.Run(gctx)
	})

	g.Go(func() error {
		logger.InfoKV(ctx, "Clock face listening", "url", "http://"+httpListener.Addr().String()+"/")

		if err := a.web.Serve(httpListener); err != nil {
			return fmt.Errorf("serve http: %w", err)
		}

		return nil
	})

	if grpcListener != nil {
		g.Go(func() error {
			logger.InfoKV(ctx, "Control API listening", "listen_address", grpcListener.Addr().String())

			if err := a.grpc.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("serve gRPC: %w", err)
			}

			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.shutdown(ctx)

		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info(ctx, "Alarm clock stopped")

	return nil
}

// shutdown stops both servers. Watch streams only end with their clients,
// so a gRPC server still draining after the timeout is stopped hard.
func (a *app) shutdown(ctx context.Context) {
	logger.Info(ctx, "Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Timeout)
	defer cancel()

	if err := a.web.Shutdown(shutdownCtx); err != nil {
		logger.WarnKV(ctx, "HTTP shutdown did not finish", "error", err)
	}

	if a.grpc == nil {
		return
	}

	// Done channel is closed after GracefulStop finishes.
	done := make(chan struct{})

	go func() {
		a.grpc.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn(ctx, "Forcing gRPC server to stop")
		a.grpc.Stop()
		<-done
	}
}

// close releases the alarm and the audio device.
func (a *app) close() {
	a.controller.Close()

	if a.output != nil {
		a.output.Close()
	}
}

// buildCue renders the configured tone or loads the configured file.
func buildCue(t config.Tone) (*audio.Cue, error) {
	sr := beep.SampleRate(t.SampleRate)

	if t.File != "" {
		cue, err := audio.LoadCue(t.File, sr)
		if err != nil {
			return nil, fmt.Errorf("load cue: %w", err)
		}

		return cue, nil
	}

	return audio.NewCue(sr, audio.Shape{
		Frequency: t.Frequency,
		Peak:      t.Peak,
		Floor:     t.Floor,
		Attack:    t.Attack,
		Length:    t.Length,
	}), nil
}

// desktopNotifier is satisfied by notify.Desktop.
type desktopNotifier interface {
	AlarmStarted(ctx context.Context, snapshot *domain.Snapshot)
}

// notifyOnStart announces every start of sounding without blocking the controller.
func notifyOnStart(n desktopNotifier) controller.Listener {
	return func(ctx context.Context, e controller.Event) {
		if e.Kind != controller.EventState || e.Snapshot.State != domain.StateSounding {
			return
		}

		go n.AlarmStarted(context.WithoutCancel(ctx), e.Snapshot)
	}
}

