package engine

import (
	"fmt"
	"time"
)

// Option is a functional option for configuring the Engine
type Option func(*Engine) error

// WithDialer replaces how the engine opens broker connections (for tests and
// custom transports)
func WithDialer(dial Dialer) Option {
	return func(e *Engine) error {
		if dial == nil {
			return fmt.Errorf("nil dialer")
		}
		e.dial = dial
		return nil
	}
}

// WithTriesPerServer sets how many connection attempts are made against one
// endpoint before failing over to the next
func WithTriesPerServer(tries int) Option {
	return func(e *Engine) error {
		if tries < 1 {
			return fmt.Errorf("tries per server must be >= 1, got %d", tries)
		}
		e.triesPerServer = tries
		return nil
	}
}

// WithConnectRetryDelay sets the sleep applied before retrying an endpoint
// that refused the connection
func WithConnectRetryDelay(d time.Duration) Option {
	return func(e *Engine) error {
		if d < 0 {
			return fmt.Errorf("connect retry delay cannot be negative: %v", d)
		}
		e.retryDelay = d
		return nil
	}
}

// WithSubscribeHeaders sets extra headers merged into every SUBSCRIBE frame
func WithSubscribeHeaders(headers map[string]string) Option {
	return func(e *Engine) error {
		e.subscribeHeaders = headers
		return nil
	}
}

// WithUTF8 marks outbound bodies as UTF-8 text instead of raw octets
func WithUTF8(enabled bool) Option {
	return func(e *Engine) error {
		e.utf8 = enabled
		return nil
	}
}
