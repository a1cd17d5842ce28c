// Package stompflow is a broker-driven request engine: it consumes request
// frames from a STOMP message broker, routes them to registered application
// handlers, and delivers their replies through the broker's temporary reply
// queues.
//
// # Architecture
//
// The module is split along the engine's state machine:
//
//   - broker: one STOMP connection to one endpoint, exposing the frame-level
//     operations the loop is built from (connect, subscribe, blocking
//     receive, send, acknowledge, disconnect)
//   - engine: the single-threaded control loop composing roster failover,
//     the connection lifecycle, frame dispatch, and the cooperative shutdown
//     checkpoint
//   - controller: the built-in application handlers registered against
//     routes at startup
//   - config: the configuration surface (server list shapes, retry policy,
//     subscribe headers) loaded once at startup
//   - metric: Prometheus registry, core engine metrics, and the HTTP
//     exposition server
//   - errors: classified error handling shared by every package
//
// # Delivery model
//
// The engine acknowledges each MESSAGE frame exactly once, strictly after
// the reply (if any) has been sent. A transport failure before the ack
// leaves the frame unacknowledged so the broker redelivers it on the next
// connection: delivery is at-least-once, and handlers should tolerate
// replays.
//
// Application handler errors are not engine failures. They are encoded into
// a failure response and delivered on the normal reply path; the frame is
// still acknowledged.
//
// # Failover
//
// Endpoints are tried in round-robin order, forever. Each endpoint gets a
// configurable number of connection attempts before the engine moves on,
// and actively refused connections are retried after a fixed delay. The
// only exit from the loop is context cancellation, observed between frames.
package stompflow
