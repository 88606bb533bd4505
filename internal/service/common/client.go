//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	api "github.com/oshokin/alarm-clock/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-clock/internal/config"
)

// Client wraps the AlarmClock gRPC client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the alarm clock.
	conn *grpc.ClientConn
	// api is the AlarmClock client stub.
	api *api.AlarmClockClient

	// callTimeout is the default timeout for individual unary calls.
	callTimeout time.Duration
	// actor is sent with every call as "user@host".
	actor string
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for unary calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor identifies the caller to the server.
func WithActor(actor string) Option {
	return func(c *Client) {
		c.actor = actor
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errNotConnected is returned when a method is called on a client without a connection.
	errNotConnected = errors.New("client is not connected")
)

// Dial creates a gRPC connection to the alarm clock.
// Note: this uses insecure transport credentials; the control API is meant
// for localhost or a trusted network.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	// Use the non-context NewClient API recommended by grpc-go
	// (DialContext is deprecated as of grpc-go v1.60+).
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial alarm clock: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewAlarmClockClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetState retrieves the current alarm.
func (c *Client) GetState(ctx context.Context) (*api.Update, error) {
	if c.api == nil {
		return nil, errNotConnected
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetState(callCtx)
	if err != nil {
		return nil, fmt.Errorf("get alarm state: %w", err)
	}

	return api.FromProto(resp)
}

// SetTarget sets the alarm target "HH:MM"; an empty target clears it.
func (c *Client) SetTarget(ctx context.Context, target string) (*api.Update, error) {
	if c.api == nil {
		return nil, errNotConnected
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.SetTarget(callCtx, target)
	if err != nil {
		return nil, fmt.Errorf("set alarm target: %w", err)
	}

	return api.FromProto(resp)
}

// Toggle stops a sounding alarm or flips the enabled flag.
func (c *Client) Toggle(ctx context.Context) (*api.Update, error) {
	if c.api == nil {
		return nil, errNotConnected
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Toggle(callCtx)
	if err != nil {
		return nil, fmt.Errorf("toggle alarm: %w", err)
	}

	return api.FromProto(resp)
}

// Watch calls fn for every update until ctx is cancelled, the server closes
// the stream, or fn returns an error.
func (c *Client) Watch(ctx context.Context, fn func(*api.Update) error) error {
	if c.api == nil {
		return errNotConnected
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := c.api.Watch(c.withActor(ctx))
	if err != nil {
		return fmt.Errorf("watch alarm: %w", err)
	}

	for {
		msg, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("watch alarm: %w", err)
		}

		update, err := api.FromProto(msg)
		if err != nil {
			return err
		}

		if err := fn(update); err != nil {
			return err
		}
	}
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = c.withActor(ctx)

	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

// withActor attaches the actor header when one is set.
func (c *Client) withActor(ctx context.Context) context.Context {
	if c.actor == "" {
		return ctx
	}

	return metadata.AppendToOutgoingContext(ctx, api.ActorHeader, c.actor)
}
