package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-stomp/stomp/v3/frame"

	"github.com/c360/stompflow/broker"
	"github.com/c360/stompflow/errors"
	"github.com/c360/stompflow/metric"
)

// Conn is the slice of a broker connection the loop consumes. broker.Conn
// satisfies it; tests substitute scripted connections.
type Conn interface {
	Subscribe(destinations []string, headers map[string]string) error
	Receive() (*frame.Frame, error)
	Send(destination string, body []byte, headers map[string]string) error
	Ack(msg *frame.Frame) error
	Close() error
}

// Dialer opens a connection to one endpoint
type Dialer func(ctx context.Context, ep broker.Endpoint) (Conn, error)

// Engine is the top-level control loop: it composes roster failover, the
// broker connection lifecycle, frame dispatch and the shutdown checkpoint
// into the run-forever procedure.
//
// The engine is strictly single-threaded: one goroutine owns the connection
// and all run state, so no locking is needed. Receive is the sole suspension
// point and blocks without timeout; cancellation is observed only between
// frames, never mid-dispatch.
type Engine struct {
	roster   *Roster
	registry *Registry
	logger   *slog.Logger
	metrics  *engineMetrics

	dial             Dialer
	triesPerServer   int
	retryDelay       time.Duration
	subscribeHeaders map[string]string
	utf8             bool

	// Overridable for tests; defaults to a context-aware timer sleep.
	sleep func(ctx context.Context, d time.Duration)
}

// New creates an engine over the given roster and handler registry
func New(
	roster *Roster,
	registry *Registry,
	logger *slog.Logger,
	metricsRegistry *metric.Registry,
	opts ...Option,
) (*Engine, error) {
	if roster == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("nil roster"), "Engine", "New", "validate dependencies")
	}
	if registry == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("nil registry"), "Engine", "New", "validate dependencies")
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		roster:         roster,
		registry:       registry,
		logger:         logger,
		metrics:        newEngineMetrics(metricsRegistry),
		triesPerServer: 1,
		retryDelay:     15 * time.Second,
		sleep:          sleepCtx,
	}
	e.dial = e.dialBroker

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, errors.WrapInvalid(err, "Engine", "New", "apply option")
		}
	}

	return e, nil
}

// Run consumes frames until ctx is cancelled. Connection failures never end
// the run: they drive retry and failover forever. The only exit is the
// shutdown checkpoint between frames.
func (e *Engine) Run(ctx context.Context) error {
	return e.run(ctx, false)
}

// RunOnce processes exactly one frame and stops (test-harness mode)
func (e *Engine) RunOnce(ctx context.Context) error {
	return e.run(ctx, true)
}

func (e *Engine) run(ctx context.Context, once bool) error {
	dests := destinations(e.registry.Routes())
	if len(dests) == 0 {
		return errors.WrapInvalid(
			fmt.Errorf("no routes registered"), "Engine", "run", "derive subscriptions")
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		ep := e.roster.Next()

		for try := 1; try <= e.triesPerServer; try++ {
			if ctx.Err() != nil {
				return nil
			}

			conn, err := e.connect(ctx, ep, dests)
			if err != nil {
				e.logger.Warn("Broker connection attempt failed",
					"endpoint", ep.String(),
					"try", try,
					"tries_per_server", e.triesPerServer,
					"error", err)
				e.metrics.recordConnectFailure(ep, err)
				if broker.IsRefused(err) {
					e.sleep(ctx, e.retryDelay)
				}
				continue
			}

			e.logger.Info("Consuming from broker",
				"endpoint", ep.String(), "destinations", dests)
			e.metrics.recordConnected()

			err = e.consume(ctx, conn, once)
			e.metrics.recordDisconnected()
			_ = conn.Close()

			if err == nil {
				e.logger.Info("Engine stopped", "endpoint", ep.String())
				return nil
			}

			e.logger.Warn("Broker connection failed, failing over",
				"endpoint", ep.String(), "error", err)
			break
		}

		e.metrics.recordFailover()
	}
}

// connect performs one connection attempt: dial plus subscribe. Any failure
// counts as one failed try against the endpoint.
func (e *Engine) connect(ctx context.Context, ep broker.Endpoint, dests []string) (Conn, error) {
	e.metrics.recordConnectAttempt(ep)

	conn, err := e.dial(ctx, ep)
	if err != nil {
		return nil, err
	}

	if err := conn.Subscribe(dests, e.headersFor(ep)); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}

// headersFor merges the global subscribe headers with the endpoint's own;
// endpoint values win.
func (e *Engine) headersFor(ep broker.Endpoint) map[string]string {
	if len(e.subscribeHeaders) == 0 && len(ep.SubscribeHeaders) == 0 {
		return nil
	}
	merged := make(map[string]string, len(e.subscribeHeaders)+len(ep.SubscribeHeaders))
	for k, v := range e.subscribeHeaders {
		merged[k] = v
	}
	for k, v := range ep.SubscribeHeaders {
		merged[k] = v
	}
	return merged
}

// consume is the Receiving/Dispatching cycle on one live connection. It
// returns nil when the stop checkpoint fires, or the error that requires
// failover.
func (e *Engine) consume(ctx context.Context, conn Conn, once bool) error {
	for {
		f, err := conn.Receive()
		if err != nil {
			return err
		}
		if f == nil {
			// heartbeat
			continue
		}

		e.metrics.recordFrame(f.Command)

		if err := e.dispatch(ctx, conn, f); err != nil {
			return err
		}

		// Stop checkpoint: the only place the loop may exit, evaluated
		// after the frame has been fully handled (reply sent, ack sent).
		if once || ctx.Err() != nil {
			return nil
		}
	}
}

// dispatch classifies one inbound frame by command. Stateless: each frame is
// routed independently.
func (e *Engine) dispatch(ctx context.Context, conn Conn, f *frame.Frame) error {
	switch f.Command {
	case frame.MESSAGE:
		return e.handleMessage(ctx, conn, f)
	case frame.ERROR:
		// Protocol warning: logged, never fatal, no reconnect. The
		// connection is assumed usable until a read actually fails.
		e.logger.Warn("Broker ERROR frame",
			"message", f.Header.Get(frame.Message))
		e.metrics.recordError("protocol_warning")
		return nil
	default:
		e.logger.Debug("Dropping unhandled frame", "command", f.Command)
		return nil
	}
}

// handleMessage runs the adapter/handler/reply/ack sequence for one MESSAGE
// frame. The frame is acknowledged exactly once, strictly after any reply
// has been sent. A returned error aborts the connection; the frame is left
// unacked so the broker redelivers it to the next connection.
func (e *Engine) handleMessage(ctx context.Context, conn Conn, f *frame.Frame) error {
	req, err := toRequest(f)
	if err != nil {
		e.metrics.recordError("malformed_destination")
		return err
	}

	handler, ok := e.registry.Lookup(req.Route)
	if !ok {
		// Subscriptions are derived from the registry, so this frame was
		// misrouted by the broker. Ack without reply rather than forcing an
		// endless redelivery loop.
		e.logger.Warn("No handler registered for route", "route", req.Route)
		e.metrics.recordError("unknown_route")
		return conn.Ack(f)
	}

	start := time.Now()
	resp, handlerErr := handler.Handle(ctx, req)
	e.metrics.recordHandled(req.Route, time.Since(start).Seconds())

	status := "success"
	if handlerErr != nil {
		// Application errors are not engine failures: encode the failure
		// into a response body and deliver it on the normal reply path.
		status = "failure"
		e.logger.Error("Handler failed", "route", req.Route, "error", handlerErr)
		e.metrics.recordError("application")
		resp = Response{
			Body:    e.registry.EncodeError(req.Route, handlerErr),
			ReplyTo: req.ReplyTo,
		}
	}

	if dest := replyDestination(resp); dest != "" {
		if err := conn.Send(dest, resp.Body, nil); err != nil {
			return err
		}
		e.metrics.recordReply(req.Route, status)
	}

	if err := conn.Ack(f); err != nil {
		return err
	}
	e.metrics.recordAck(req.Route)

	return nil
}

// dialBroker is the default Dialer
func (e *Engine) dialBroker(ctx context.Context, ep broker.Endpoint) (Conn, error) {
	return broker.Dial(ctx, ep, broker.WithUTF8(e.utf8))
}

// sleepCtx sleeps for d or until ctx is cancelled
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
