package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/alarm-clock/internal/audio"
	"github.com/oshokin/alarm-clock/internal/clock"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/service/controller"
)

// Alarm abstracts the controller operations the page depends on.
type Alarm interface {
	Snapshot() *domain.Snapshot
	SetTarget(ctx context.Context, target string) (*domain.Snapshot, error)
	Toggle(ctx context.Context) (*domain.Snapshot, error)
}

// Clock provides the latest reading for page loads and API calls.
type Clock interface {
	Last() clock.Reading
}

// Options configures a Server.
type Options struct {
	// Alarm is the controller behind the page.
	Alarm Alarm
	// Clock provides the current reading.
	Clock Clock
	// Readout formats the digital time.
	Readout *clock.Readout
	// Cue is served as /cue.wav; nil serves 404.
	Cue *audio.Cue
	// Hub broadcasts frames to browsers; nil creates one without metrics.
	Hub *Hub
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
	// Logger is the base of the access log; nil uses the global logger.
	Logger *zap.SugaredLogger
	// AccessLogLevel is the minimum level of the access log. The zero value
	// logs every request.
	AccessLogLevel zapcore.Level
}

// readHeaderTimeout bounds slow clients.
const readHeaderTimeout = 10 * time.Second

var errMissingOption = errors.New("web: alarm, clock and readout are required")

// Server is the HTTP face of the alarm clock.
type Server struct {
	echo    *echo.Echo
	alarm   Alarm
	clock   Clock
	readout *clock.Readout
	labels  labels
	hub     *Hub
	face    *clock.Face
	cueWAV  []byte
	access  *zap.SugaredLogger

	upgrader websocket.Upgrader
}

// NewServer builds the routes.
func NewServer(opts *Options) (*Server, error) {
	if opts == nil || opts.Alarm == nil || opts.Clock == nil || opts.Readout == nil {
		return nil, errMissingOption
	}

	r, err := newRenderer()
	if err != nil {
		return nil, err
	}

	s := &Server{
		echo:    echo.New(),
		alarm:   opts.Alarm,
		clock:   opts.Clock,
		readout: opts.Readout,
		labels:  labelsFor(opts.Readout.Tag()),
		hub:     opts.Hub,
		face:    clock.NewFace(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1 << 10,
			WriteBufferSize: 10 << 10,
		},
	}

	if s.hub == nil {
		s.hub = NewHub(nil)
	}

	base := opts.Logger
	if base == nil {
		base = logger.Logger()
	}

	s.access = base.Desugar().WithOptions(logger.WithLevel(opts.AccessLogLevel)).Named("http").Sugar()

	if opts.Cue != nil {
		var buf bytes.Buffer
		if err := opts.Cue.EncodeWAV(&buf); err != nil {
			return nil, fmt.Errorf("encode cue: %w", err)
		}

		s.cueWAV = buf.Bytes()
	}

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = r
	e.HTTPErrorHandler = s.handleError

	e.Use(s.accessLog)

	e.GET("/", s.handleIndex)
	e.GET("/api/state", s.handleState)
	e.PUT("/api/alarm", s.handleSetTarget)
	e.POST("/api/alarm/toggle", s.handleToggle)
	e.GET("/cue.wav", s.handleCue)
	e.GET("/ws", s.handleWebsocket)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	e.GET("/health", s.handleHealth)

	return s, nil
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	// Reuse the listener so tests can bind random ports.
	s.echo.Listener = l
	s.echo.Server.ReadHeaderTimeout = readHeaderTimeout

	err := s.echo.StartServer(s.echo.Server)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// Shutdown disconnects browsers, stops accepting requests and waits for
// handlers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()

	return s.echo.Shutdown(ctx)
}

// OnTick pushes a tick frame to every browser.
func (s *Server) OnTick(ctx context.Context, r clock.Reading) {
	s.hub.broadcast(ctx, s.tickFrame(r))
}

// OnEvent pushes a state or cue frame to every browser.
func (s *Server) OnEvent(ctx context.Context, e controller.Event) {
	f := &frame{
		Type:  frameState,
		Alarm: s.labels.alarmView(e.Snapshot),
	}

	if e.Kind == controller.EventCue {
		f.Type = frameCue
	}

	s.hub.broadcast(ctx, f)
}

func (s *Server) tickFrame(r clock.Reading) *frame {
	h := r.Hands()
	t := r.Time

	return &frame{
		Type:    frameTick,
		Time:    &t,
		Readout: s.readout.Format(r.Time),
		Hands:   &handsView{Hour: h.Hour, Minute: h.Minute, Second: h.Second},
	}
}

func (s *Server) stateFrame() *frame {
	f := s.tickFrame(s.clock.Last())
	f.Type = frameState
	f.Alarm = s.labels.alarmView(s.alarm.Snapshot())

	return f
}

func (s *Server) handleIndex(c echo.Context) error {
	r := s.clock.Last()
	hour, minute, second := r.Hands().HandSegments()

	lang, _ := s.readout.Tag().Base()

	return c.Render(http.StatusOK, templateIndex, pongo2.Context{
		"lang":          lang.String(),
		"labels":        s.labels,
		"size":          clock.FaceSize,
		"center":        clock.FaceCenter,
		"outer_rim":     clock.OuterRimRadius,
		"wood_rim":      clock.WoodRimRadius,
		"dial":          clock.DialRadius,
		"hour_marks":    toSVGLines(s.face.HourMarks),
		"minute_marks":  toSVGLines(s.face.MinuteMarks),
		"numerals":      toSVGTexts(s.face.Numerals),
		"hour":          toSVGLine(hour),
		"minute":        toSVGLine(minute),
		"second":        toSVGLine(second),
		"hour_length":   clock.HourHandLength,
		"minute_length": clock.MinuteHandLen,
		"second_length": clock.SecondHandLen,
		"alarm":         s.labels.alarmView(s.alarm.Snapshot()),
		"readout":       s.readout.Format(r.Time),
	})
}

func (s *Server) handleState(c echo.Context) error {
	return c.JSON(http.StatusOK, s.stateFrame())
}

type setTargetRequest struct {
	Target string `json:"target"`
}

func (s *Server) handleSetTarget(c echo.Context) error {
	var req setTargetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if _, err := s.alarm.SetTarget(c.Request().Context(), req.Target); err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, s.stateFrame())
}

func (s *Server) handleToggle(c echo.Context) error {
	if _, err := s.alarm.Toggle(c.Request().Context()); err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, s.stateFrame())
}

func (s *Server) handleCue(c echo.Context) error {
	if s.cueWAV == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no cue configured")
	}

	return c.Blob(http.StatusOK, "audio/wav", s.cueWAV)
}

func (s *Server) handleWebsocket(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the response.
		logger.DebugKV(c.Request().Context(), "Websocket upgrade failed", "error", err)
		return nil
	}

	ctx := logger.WithKV(c.Request().Context(), "remote", c.RealIP())
	logger.DebugKV(ctx, "Browser connected")

	s.hub.serve(ctx, conn, s.stateFrame())

	logger.DebugKV(ctx, "Browser disconnected")

	return nil
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthStatus{Status: "ok"})
}

// handleError answers every error as {"error": message}.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := any(http.StatusText(code))

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		message = httpErr.Message
	} else {
		logger.WarnKV(c.Request().Context(), "Handler error", "path", c.Path(), "error", err)
	}

	if err := c.JSON(code, map[string]any{"error": message}); err != nil {
		logger.ErrorKV(c.Request().Context(), "Failed to write http error", "error", err)
	}
}

// toHTTPError maps controller errors to HTTP status codes.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidTarget):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, controller.ErrSounding):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, controller.ErrClosed):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}

// accessLog logs finished requests at info and failed ones at warn, filtered
// by the access log level rather than the global one.
func (s *Server) accessLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		req := c.Request()
		status := c.Response().Status

		log := s.access.Infow
		if status >= http.StatusInternalServerError {
			log = s.access.Warnw
		}

		log("HTTP request",
			"method", req.Method,
			"uri", req.RequestURI,
			"status", status,
			"remote", c.RealIP(),
			"latency", time.Since(start).String(),
		)

		return nil
	}
}
