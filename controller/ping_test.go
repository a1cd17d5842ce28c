package controller

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/stompflow/engine"
)

func TestPing_PongReply(t *testing.T) {
	ping := NewPing()

	resp, err := ping.Handle(context.Background(), engine.Request{
		Route:   "CatalystPing",
		Body:    []byte(`{"type":"ping"}`),
		ReplyTo: "sess-1",
	})
	require.NoError(t, err)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(resp.Body, &payload))
	assert.Equal(t, "PONG", payload["status"])
	assert.Equal(t, "sess-1", resp.ReplyTo)
}

func TestPing_ThrowError(t *testing.T) {
	ping := NewPing()

	_, err := ping.Handle(context.Background(), engine.Request{
		Route:   "CatalystPing",
		Body:    []byte(`{"type":"throwerror"}`),
		ReplyTo: "sess-2",
	})
	require.Error(t, err)

	var simulated *SimulatedError
	require.ErrorAs(t, err, &simulated)
	assert.Equal(t, "CatalystPing", simulated.Route)
}

func TestPing_ErrorTravelsThroughEncoder(t *testing.T) {
	registry := engine.NewRegistry()
	require.NoError(t, registry.Register("CatalystPing", NewPing()))

	h, ok := registry.Lookup("CatalystPing")
	require.True(t, ok)

	_, err := h.Handle(context.Background(), engine.Request{
		Route: "CatalystPing",
		Body:  []byte(`{"type":"throwerror"}`),
	})
	require.Error(t, err)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(registry.EncodeError("CatalystPing", err), &payload))
	assert.Equal(t, "error", payload["status"])
	assert.Equal(t, "controller.SimulatedError", payload["error_type"])
}

func TestPing_UnknownType(t *testing.T) {
	ping := NewPing()
	_, err := ping.Handle(context.Background(), engine.Request{
		Body: []byte(`{"type":"shrug"}`),
	})
	assert.Error(t, err)
}

func TestPing_MalformedBody(t *testing.T) {
	ping := NewPing()
	_, err := ping.Handle(context.Background(), engine.Request{
		Body: []byte(`not json`),
	})
	assert.Error(t, err)
}
