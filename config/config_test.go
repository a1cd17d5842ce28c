package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/stompflow/errors"
)

func TestServerList_SingleObject(t *testing.T) {
	loader := NewLoader()
	cfg, err := loader.Parse([]byte(`{"servers":{"hostname":"broker","port":61614}}`), ".json")
	require.NoError(t, err)

	eps := cfg.Endpoints()
	require.Len(t, eps, 1)
	assert.Equal(t, "broker", eps[0].Host)
	assert.Equal(t, 61614, eps[0].Port)
}

func TestServerList_Array(t *testing.T) {
	loader := NewLoader()
	cfg, err := loader.Parse([]byte(
		`{"servers":[{"hostname":"a"},{"hostname":"b","port":7}]}`), ".json")
	require.NoError(t, err)

	eps := cfg.Endpoints()
	require.Len(t, eps, 2)
	assert.Equal(t, "a", eps[0].Host)
	assert.Equal(t, DefaultPort, eps[0].Port)
	assert.Equal(t, "b", eps[1].Host)
	assert.Equal(t, 7, eps[1].Port)
}

func TestConfig_LegacyFlatHostnamePort(t *testing.T) {
	loader := NewLoader()
	cfg, err := loader.Parse([]byte(`{"hostname":"legacy"}`), ".json")
	require.NoError(t, err)

	eps := cfg.Endpoints()
	require.Len(t, eps, 1)
	assert.Equal(t, "legacy", eps[0].Host)
	assert.Equal(t, DefaultPort, eps[0].Port)
}

func TestConfig_NoServersFailsValidation(t *testing.T) {
	loader := NewLoader()
	_, err := loader.Parse([]byte(`{}`), ".json")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEmptyServerList)
}

func TestConfig_Defaults(t *testing.T) {
	cfg := &Config{Hostname: "broker"}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultTriesPerServer, cfg.Tries())
	assert.Equal(t, DefaultConnectRetryDelaySeconds*time.Second, cfg.RetryDelay())
	assert.False(t, cfg.UTF8)
}

func TestConfig_ExplicitZeroRetryDelayDisablesSleep(t *testing.T) {
	zero := 0
	cfg := &Config{Hostname: "broker", ConnectRetryDelay: &zero}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, time.Duration(0), cfg.RetryDelay())
}

func TestConfig_ValidationFailures(t *testing.T) {
	cases := map[string]*Config{
		"missing hostname": {Servers: ServerList{{Port: 61613}}},
		"negative port":    {Servers: ServerList{{Hostname: "a", Port: -1}}},
		"huge port":        {Servers: ServerList{{Hostname: "a", Port: 70000}}},
		"negative tries":   {Hostname: "a", TriesPerServer: -1},
	}
	for name, cfg := range cases {
		assert.Error(t, cfg.Validate(), name)
	}
}

func TestConfig_EndpointSubscribeHeaders(t *testing.T) {
	loader := NewLoader()
	cfg, err := loader.Parse([]byte(
		`{"servers":{"hostname":"a","subscribe_headers":{"selector":"kind = 'order'"}}}`), ".json")
	require.NoError(t, err)

	eps := cfg.Endpoints()
	require.Len(t, eps, 1)
	assert.Equal(t, map[string]string{"selector": "kind = 'order'"}, eps[0].SubscribeHeaders)
}

func TestLoader_YAMLSingleAndList(t *testing.T) {
	loader := NewLoader()

	cfg, err := loader.Parse([]byte("servers:\n  hostname: solo\n"), ".yaml")
	require.NoError(t, err)
	require.Len(t, cfg.Endpoints(), 1)
	assert.Equal(t, "solo", cfg.Endpoints()[0].Host)

	cfg, err = loader.Parse([]byte(
		"servers:\n  - hostname: a\n  - hostname: b\ntries_per_server: 4\n"), ".yml")
	require.NoError(t, err)
	assert.Len(t, cfg.Endpoints(), 2)
	assert.Equal(t, 4, cfg.Tries())
}

func TestLoader_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"servers":{"hostname":"fromfile"},"utf8":true}`), 0o600))

	loader := NewLoader()
	cfg, err := loader.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fromfile", cfg.Endpoints()[0].Host)
	assert.True(t, cfg.UTF8)
}

func TestLoader_MissingFile(t *testing.T) {
	loader := NewLoader()
	_, err := loader.LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
}

func TestLoader_MalformedJSON(t *testing.T) {
	loader := NewLoader()
	_, err := loader.Parse([]byte(`{"servers":`), ".json")
	assert.Error(t, err)
}
