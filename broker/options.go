package broker

import (
	"fmt"
	"log"
	"time"
)

// Logger interface for injecting custom loggers
type Logger interface {
	Printf(format string, v ...any)
	Errorf(format string, v ...any)
	Debugf(format string, v ...any)
}

// defaultLogger implements Logger using standard log package
type defaultLogger struct{}

func (l *defaultLogger) Printf(format string, v ...any) {
	log.Printf("[STOMP] "+format, v...)
}

func (l *defaultLogger) Errorf(format string, v ...any) {
	log.Printf("[STOMP ERROR] "+format, v...)
}

func (l *defaultLogger) Debugf(_ string, _ ...any) {
	// Silent by default
}

// Option is a functional option for configuring a Conn
type Option func(*Conn) error

// WithLogger sets a custom logger for the connection
func WithLogger(logger Logger) Option {
	return func(c *Conn) error {
		if logger == nil {
			logger = &defaultLogger{}
		}
		c.logger = logger
		return nil
	}
}

// WithCredentials sets the login and passcode sent in the CONNECT frame
func WithCredentials(login, passcode string) Option {
	return func(c *Conn) error {
		c.login = login
		c.passcode = passcode
		return nil
	}
}

// WithConnectTimeout bounds the TCP dial and the CONNECT handshake read.
// Zero disables the handshake deadline.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Conn) error {
		if d < 0 {
			return fmt.Errorf("connect timeout cannot be negative: %v", d)
		}
		c.connectTimeout = d
		return nil
	}
}

// WithUTF8 controls the content-type stamped on outbound frames: enabled
// marks bodies as UTF-8 text, disabled sends them as raw octets
func WithUTF8(enabled bool) Option {
	return func(c *Conn) error {
		c.utf8 = enabled
		return nil
	}
}
