// Package broker provides a client for managing STOMP broker connections.
// A Conn owns exactly one transport connection to one broker endpoint and
// exposes the frame-level operations the engine loop is built from: connect,
// subscribe, blocking receive, send, acknowledge, disconnect.
package broker

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"

	"github.com/c360/stompflow/errors"
)

const (
	// STOMP 1.1 only: the ACK frame shape (message-id + subscription) is
	// fixed and heart-beating can be declined, so Receive blocks with no
	// timeout.
	stompVersion = "1.1"
	ackMode      = "client-individual"
)

// Endpoint identifies one broker server. Immutable once constructed; the
// engine selects one per connection attempt and never mutates shared config.
type Endpoint struct {
	Host             string
	Port             int
	SubscribeHeaders map[string]string
}

// Addr returns the host:port dial address for the endpoint
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) String() string {
	return "stomp://" + e.Addr()
}

// Conn is a live connection to one broker endpoint. It is owned by a single
// goroutine; none of its methods are safe for concurrent use.
type Conn struct {
	endpoint Endpoint
	tcp      net.Conn
	reader   *frame.Reader
	writer   *frame.Writer

	logger         Logger
	login          string
	passcode       string
	connectTimeout time.Duration
	utf8           bool

	// destination -> subscription id, recorded on SUBSCRIBE
	subs   map[string]string
	closed bool
}

// Dial opens a transport connection to the endpoint and performs the STOMP
// CONNECT handshake. All failures are connect errors; the caller's
// retry/failover policy decides what to do with them.
func Dial(ctx context.Context, ep Endpoint, opts ...Option) (*Conn, error) {
	c := newConn(ep)
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Conn", "Dial", "apply option")
		}
	}

	dialer := net.Dialer{Timeout: c.connectTimeout}
	tcp, err := dialer.DialContext(ctx, "tcp", ep.Addr())
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", errors.ErrConnectFailed, ep.Addr(), err)
	}

	if err := c.attach(tcp); err != nil {
		_ = tcp.Close()
		return nil, err
	}

	c.logger.Debugf("Connected to %s", ep)
	return c, nil
}

// Attach performs the CONNECT handshake over an existing transport (for testing)
func Attach(nc net.Conn, ep Endpoint, opts ...Option) (*Conn, error) {
	c := newConn(ep)
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Conn", "Attach", "apply option")
		}
	}
	if err := c.attach(nc); err != nil {
		return nil, err
	}
	return c, nil
}

func newConn(ep Endpoint) *Conn {
	return &Conn{
		endpoint:       ep,
		logger:         &defaultLogger{},
		connectTimeout: 10 * time.Second,
		subs:           make(map[string]string),
	}
}

// attach wires the frame reader/writer onto the transport and completes the
// CONNECT / CONNECTED exchange.
func (c *Conn) attach(nc net.Conn) error {
	c.tcp = nc
	c.reader = frame.NewReader(nc)
	c.writer = frame.NewWriter(nc)

	connect := frame.New(frame.CONNECT,
		frame.AcceptVersion, stompVersion,
		frame.Host, c.endpoint.Host,
		frame.HeartBeat, "0,0")
	if c.login != "" {
		connect.Header.Add(frame.Login, c.login)
		connect.Header.Add(frame.Passcode, c.passcode)
	}

	if err := c.writer.Write(connect); err != nil {
		return fmt.Errorf("%w: send CONNECT: %w", errors.ErrConnectFailed, err)
	}

	// The handshake is the one read that must not block forever: a TCP
	// endpoint that accepts but never answers would otherwise wedge the
	// whole retry loop.
	if c.connectTimeout > 0 {
		if err := nc.SetReadDeadline(time.Now().Add(c.connectTimeout)); err != nil {
			return fmt.Errorf("%w: set handshake deadline: %w", errors.ErrConnectFailed, err)
		}
	}

	reply, err := c.readFrame()
	if err != nil {
		return fmt.Errorf("%w: read CONNECTED: %w", errors.ErrConnectFailed, err)
	}

	if c.connectTimeout > 0 {
		if err := nc.SetReadDeadline(time.Time{}); err != nil {
			return fmt.Errorf("%w: clear handshake deadline: %w", errors.ErrConnectFailed, err)
		}
	}

	switch reply.Command {
	case frame.CONNECTED:
		return nil
	case frame.ERROR:
		return fmt.Errorf("%w: broker refused session: %s",
			errors.ErrConnectFailed, reply.Header.Get(frame.Message))
	default:
		return fmt.Errorf("%w: unexpected %s frame during handshake",
			errors.ErrConnectFailed, reply.Command)
	}
}

// readFrame reads the next non-heartbeat frame.
func (c *Conn) readFrame() (*frame.Frame, error) {
	for {
		f, err := c.reader.Read()
		if err != nil {
			return nil, err
		}
		if f != nil {
			return f, nil
		}
	}
}

// Endpoint returns the endpoint this connection was dialed against
func (c *Conn) Endpoint() Endpoint {
	return c.endpoint
}

// Subscribe issues one SUBSCRIBE per destination in client-individual
// acknowledgment mode: the broker must not auto-acknowledge, and every
// delivered message is confirmed individually via Ack. The extra headers are
// merged into each SUBSCRIBE frame.
func (c *Conn) Subscribe(destinations []string, headers map[string]string) error {
	for key := range headers {
		if key == "" {
			return fmt.Errorf("%w: empty header key", errors.ErrSubscribeFailed)
		}
	}

	for _, dest := range destinations {
		id := uuid.NewString()
		sub := frame.New(frame.SUBSCRIBE,
			frame.Id, id,
			frame.Destination, dest,
			frame.Ack, ackMode)
		for key, value := range headers {
			sub.Header.Add(key, value)
		}

		if err := c.writer.Write(sub); err != nil {
			return fmt.Errorf("%w: subscribe %s: %w", errors.ErrSubscribeFailed, dest, err)
		}
		c.subs[dest] = id
		c.logger.Debugf("Subscribed to %s (id=%s)", dest, id)
	}

	return nil
}

// SubscriptionID returns the id used for a destination's subscription
func (c *Conn) SubscriptionID(destination string) (string, bool) {
	id, ok := c.subs[destination]
	return id, ok
}

// Receive blocks until a frame arrives or the connection fails. This is the
// engine's sole suspension point; there is deliberately no timeout.
// Heartbeats yield (nil, nil).
func (c *Conn) Receive() (*frame.Frame, error) {
	f, err := c.reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrConnectionLost, err)
	}
	return f, nil
}

// Send transmits a SEND frame. The body is transmitted verbatim; the UTF8
// option only changes the content-type stamped on the frame.
func (c *Conn) Send(destination string, body []byte, headers map[string]string) error {
	out := frame.New(frame.SEND,
		frame.Destination, destination,
		frame.ContentLength, strconv.Itoa(len(body)))

	if _, ok := headers[frame.ContentType]; !ok {
		if c.utf8 {
			out.Header.Add(frame.ContentType, "text/plain;charset=utf-8")
		} else {
			out.Header.Add(frame.ContentType, "application/octet-stream")
		}
	}
	for key, value := range headers {
		out.Header.Add(key, value)
	}
	out.Body = body

	if err := c.writer.Write(out); err != nil {
		return fmt.Errorf("%w: send to %s: %w", errors.ErrConnectionLost, destination, err)
	}
	return nil
}

// Ack confirms consumption of a delivered MESSAGE frame. The ACK references
// the frame's delivery identity (message-id plus subscription), never its
// content.
func (c *Conn) Ack(msg *frame.Frame) error {
	messageID := msg.Header.Get(frame.MessageId)
	if messageID == "" {
		return errors.WrapInvalid(
			fmt.Errorf("frame has no %s header", frame.MessageId),
			"Conn", "Ack", "resolve delivery identity")
	}
	subscription := msg.Header.Get(frame.Subscription)

	ack := frame.New(frame.ACK,
		frame.Subscription, subscription,
		frame.MessageId, messageID)

	if err := c.writer.Write(ack); err != nil {
		return fmt.Errorf("%w: ack %s: %w", errors.ErrConnectionLost, messageID, err)
	}
	return nil
}

// Close releases the transport. Idempotent; a best-effort DISCONNECT is sent
// but its receipt is not awaited.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	if c.writer != nil {
		_ = c.writer.Write(frame.New(frame.DISCONNECT))
	}
	if c.tcp != nil {
		return c.tcp.Close()
	}
	return nil
}

// IsRefused reports whether err indicates the endpoint actively refused the
// connection, as opposed to any other transport failure. The engine's retry
// delay applies only to refused connections.
func IsRefused(err error) bool {
	return stderrors.Is(err, syscall.ECONNREFUSED)
}
