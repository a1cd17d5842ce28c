package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/stompflow/broker"
	"github.com/c360/stompflow/errors"
)

func TestRoster_EmptyEndpointList(t *testing.T) {
	_, err := NewRoster(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEmptyServerList)
}

func TestRoster_RoundRobinWraps(t *testing.T) {
	roster, err := NewRoster(testEndpoints("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, 3, roster.Len())

	var hosts []string
	for i := 0; i < 7; i++ {
		hosts = append(hosts, roster.Next().Host)
	}
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c", "a"}, hosts)
}

func TestRoster_SingleEndpointRepeats(t *testing.T) {
	roster, err := NewRoster(testEndpoints("only"))
	require.NoError(t, err)

	assert.Equal(t, "only", roster.Next().Host)
	assert.Equal(t, "only", roster.Next().Host)
}

func TestRoster_CopiesInput(t *testing.T) {
	eps := testEndpoints("a", "b")
	roster, err := NewRoster(eps)
	require.NoError(t, err)

	eps[0] = broker.Endpoint{Host: "mutated", Port: 1}
	assert.Equal(t, "a", roster.Next().Host)
}
