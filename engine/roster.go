package engine

import (
	"github.com/c360/stompflow/broker"
	"github.com/c360/stompflow/errors"
)

// Roster holds the ordered list of broker endpoints and advances a cursor to
// implement round-robin failover. Failover policy is purely positional: an
// endpoint that recently failed is never skipped.
type Roster struct {
	endpoints []broker.Endpoint
	cursor    int
}

// NewRoster creates a roster from an ordered endpoint sequence
func NewRoster(endpoints []broker.Endpoint) (*Roster, error) {
	if len(endpoints) == 0 {
		return nil, errors.WrapInvalid(errors.ErrEmptyServerList,
			"Roster", "NewRoster", "validate endpoints")
	}

	r := &Roster{endpoints: make([]broker.Endpoint, len(endpoints))}
	copy(r.endpoints, endpoints)
	return r, nil
}

// Next returns the next endpoint in round-robin order, wrapping to the first
// entry after the last
func (r *Roster) Next() broker.Endpoint {
	ep := r.endpoints[r.cursor]
	r.cursor = (r.cursor + 1) % len(r.endpoints)
	return ep
}

// Len returns the number of configured endpoints
func (r *Roster) Len() int {
	return len(r.endpoints)
}
