// Package engine implements the broker-driven request loop.
//
// The engine owns the broker connection lifecycle and runs a single-threaded
// consumer cycle:
//
//	SelectingServer -> Connecting -> Subscribed -> Receiving
//	    -> (Dispatching -> Receiving)* -> Disconnecting -> SelectingServer
//
// with an exit to Stopped checked only between frames. Endpoint selection is
// round-robin over the configured roster; each endpoint gets a fixed number
// of connection tries (with a delay applied to refused connections) before
// the loop fails over to the next one. Connection loss during consumption
// also fails over; nothing but the shutdown checkpoint ever stops the loop.
//
// Inbound MESSAGE frames are mapped to application requests by stripping the
// /queue/ prefix from the destination header. The registered handler for the
// route produces a response; if the response names a reply token, a reply
// frame is sent to the corresponding /remote-temp-queue/ destination. The
// original frame is acknowledged exactly once, strictly after the reply.
// Handler errors are encoded into failure response bodies and travel the
// same path; they never abort the loop or leave a frame unacknowledged.
//
// Horizontal scaling is achieved by running multiple engine processes
// against the same queues; the broker balances deliveries across consumers.
// There is deliberately no concurrency inside one engine.
package engine
