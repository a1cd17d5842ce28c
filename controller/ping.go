// Package controller holds the built-in request handlers. Each controller
// implements engine.Handler and is registered against a route at startup.
package controller

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/c360/stompflow/engine"
)

// pingMessage is the decoded body of a CatalystPing request
type pingMessage struct {
	Type string `json:"type"`
}

// SimulatedError is raised when a request explicitly asks the engine to
// fail, so operators can exercise the error-response path end to end.
type SimulatedError struct {
	Route string
}

func (e *SimulatedError) Error() string {
	return fmt.Sprintf("simulated failure requested on route %q", e.Route)
}

// Ping answers liveness probes. A body of type "ping" gets a PONG reply; a
// body of type "throwerror" deliberately fails the request.
type Ping struct{}

// NewPing creates the ping controller
func NewPing() *Ping {
	return &Ping{}
}

// Handle implements engine.Handler
func (p *Ping) Handle(_ context.Context, req engine.Request) (engine.Response, error) {
	var msg pingMessage
	if err := json.Unmarshal(req.Body, &msg); err != nil {
		return engine.Response{}, fmt.Errorf("controller.Ping: decode request body: %w", err)
	}

	switch msg.Type {
	case "ping":
		body, err := json.Marshal(map[string]string{"status": "PONG"})
		if err != nil {
			return engine.Response{}, fmt.Errorf("controller.Ping: encode reply: %w", err)
		}
		return engine.Response{Body: body, ReplyTo: req.ReplyTo}, nil
	case "throwerror":
		return engine.Response{}, &SimulatedError{Route: req.Route}
	default:
		return engine.Response{}, fmt.Errorf("controller.Ping: unknown request type %q", msg.Type)
	}
}
