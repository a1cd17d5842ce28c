package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/c360/stompflow/errors"
)

// Request is what the engine hands to application handlers: the logical
// route the message arrived on, the body verbatim, and the reply token from
// the inbound frame's reply-to header, if any. The engine never parses the
// body; deserialization belongs to the application side.
type Request struct {
	Route   string
	Body    []byte
	ReplyTo string
}

// Response is what handlers return. A non-empty ReplyTo requests that the
// body be sent to the broker's temporary reply queue for that token; an
// empty ReplyTo means no reply is expected. Handlers that want to answer the
// caller copy Request.ReplyTo across.
type Response struct {
	Body    []byte
	ReplyTo string
}

// Handler processes one application request. Returning an error marks the
// response as an application-level failure; it never aborts the engine loop.
type Handler interface {
	Handle(ctx context.Context, req Request) (Response, error)
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(ctx context.Context, req Request) (Response, error)

// Handle implements Handler
func (f HandlerFunc) Handle(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// ErrorEncoder converts a handler error into a failure response body so the
// error can travel back to the caller instead of crashing the loop
type ErrorEncoder func(route string, err error) []byte

// Registry maps route names to handlers. It is populated once during startup
// and read-only while the engine runs.
type Registry struct {
	handlers    map[string]Handler
	encodeError ErrorEncoder
	mu          sync.RWMutex
}

// NewRegistry creates an empty handler registry with the default JSON error
// encoder
func NewRegistry() *Registry {
	return &Registry{
		handlers:    make(map[string]Handler),
		encodeError: defaultErrorEncoder,
	}
}

// Register binds a route name to a handler. Empty or duplicate routes are
// configuration mistakes and rejected.
func (r *Registry) Register(route string, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(route) == "" {
		return errors.WrapInvalid(errors.ErrEmptyRoute, "Registry", "Register", "validate route")
	}
	if handler == nil {
		return errors.WrapInvalid(
			fmt.Errorf("nil handler for route %q", route),
			"Registry", "Register", "validate handler")
	}
	if _, exists := r.handlers[route]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrDuplicateRoute, route),
			"Registry", "Register", "validate route")
	}

	r.handlers[route] = handler
	return nil
}

// Lookup resolves a route to its handler
func (r *Registry) Lookup(route string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[route]
	return h, ok
}

// Routes returns the registered route names, sorted for stable subscription
// ordering
func (r *Registry) Routes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes := make([]string, 0, len(r.handlers))
	for route := range r.handlers {
		routes = append(routes, route)
	}
	sort.Strings(routes)
	return routes
}

// SetErrorEncoder replaces the encoder used to turn handler errors into
// failure response bodies
func (r *Registry) SetErrorEncoder(enc ErrorEncoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if enc == nil {
		enc = defaultErrorEncoder
	}
	r.encodeError = enc
}

// EncodeError produces the failure response body for a handler error
func (r *Registry) EncodeError(route string, err error) []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.encodeError(route, err)
}

// defaultErrorEncoder emits a small JSON document identifying the
// originating error type, so callers can tell domain failures apart.
func defaultErrorEncoder(_ string, err error) []byte {
	payload := map[string]string{
		"status":     "error",
		"error_type": strings.TrimPrefix(fmt.Sprintf("%T", err), "*"),
		"message":    err.Error(),
	}
	body, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return []byte(`{"status":"error"}`)
	}
	return body
}
