// Package config defines the process-wide engine configuration: the broker
// server list (in its three accepted shapes), connection retry policy, body
// encoding, and the subscribe headers merged into every subscription.
// Configuration is loaded once at startup and read-only afterwards.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/stompflow/broker"
	"github.com/c360/stompflow/errors"
)

const (
	// DefaultPort is the conventional STOMP listener port
	DefaultPort = 61613
	// DefaultTriesPerServer is the connection attempts per endpoint before
	// failing over
	DefaultTriesPerServer = 1
	// DefaultConnectRetryDelaySeconds is the sleep before retrying a refused
	// connection
	DefaultConnectRetryDelaySeconds = 15
)

// Config is the engine configuration surface
type Config struct {
	// Servers accepts a single endpoint object or a list of them. The
	// legacy flat Hostname/Port pair below is honored when Servers is
	// absent.
	Servers  ServerList `json:"servers,omitempty" yaml:"servers,omitempty"`
	Hostname string     `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Port     int        `json:"port,omitempty" yaml:"port,omitempty"`

	TriesPerServer    int  `json:"tries_per_server,omitempty" yaml:"tries_per_server,omitempty"`
	ConnectRetryDelay *int `json:"connect_retry_delay,omitempty" yaml:"connect_retry_delay,omitempty"`
	UTF8              bool `json:"utf8,omitempty" yaml:"utf8,omitempty"`

	SubscribeHeaders map[string]string `json:"subscribe_headers,omitempty" yaml:"subscribe_headers,omitempty"`

	Login    string `json:"login,omitempty" yaml:"login,omitempty"`
	Passcode string `json:"passcode,omitempty" yaml:"passcode,omitempty"`

	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// MetricsConfig controls the Prometheus exposition server
type MetricsConfig struct {
	Enabled bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Port    int    `json:"port,omitempty" yaml:"port,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Server is one broker endpoint entry
type Server struct {
	Hostname         string            `json:"hostname" yaml:"hostname"`
	Port             int               `json:"port,omitempty" yaml:"port,omitempty"`
	SubscribeHeaders map[string]string `json:"subscribe_headers,omitempty" yaml:"subscribe_headers,omitempty"`
}

// ServerList accepts either a single endpoint object or an ordered list of
// them; both wire shapes normalize to a slice at load time, once.
type ServerList []Server

// UnmarshalJSON implements the object-or-array shape
func (l *ServerList) UnmarshalJSON(data []byte) error {
	var list []Server
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single Server
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("servers must be an endpoint or a list of endpoints: %w", err)
	}
	*l = ServerList{single}
	return nil
}

// UnmarshalYAML implements the object-or-array shape
func (l *ServerList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var list []Server
		if err := value.Decode(&list); err != nil {
			return err
		}
		*l = list
		return nil
	case yaml.MappingNode:
		var single Server
		if err := value.Decode(&single); err != nil {
			return err
		}
		*l = ServerList{single}
		return nil
	default:
		return fmt.Errorf("servers must be an endpoint or a list of endpoints")
	}
}

// Validate checks the configuration. Only validation failures here may
// terminate the process, and only at startup.
func (c *Config) Validate() error {
	if len(c.Endpoints()) == 0 {
		return errors.WrapInvalid(errors.ErrEmptyServerList,
			"Config", "Validate", "normalize servers")
	}

	for i, s := range c.Servers {
		if s.Hostname == "" {
			return errors.WrapInvalid(
				fmt.Errorf("server %d has no hostname", i),
				"Config", "Validate", "check servers")
		}
		if s.Port < 0 || s.Port > 65535 {
			return errors.WrapInvalid(
				fmt.Errorf("server %d has invalid port %d", i, s.Port),
				"Config", "Validate", "check servers")
		}
	}

	if c.TriesPerServer < 0 {
		return errors.WrapInvalid(
			fmt.Errorf("tries_per_server cannot be negative: %d", c.TriesPerServer),
			"Config", "Validate", "check retry policy")
	}
	if c.ConnectRetryDelay != nil && *c.ConnectRetryDelay < 0 {
		return errors.WrapInvalid(
			fmt.Errorf("connect_retry_delay cannot be negative: %d", *c.ConnectRetryDelay),
			"Config", "Validate", "check retry policy")
	}

	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return errors.WrapInvalid(
			fmt.Errorf("invalid metrics port %d", c.Metrics.Port),
			"Config", "Validate", "check metrics")
	}

	return nil
}

// Endpoints normalizes the three accepted server shapes (single endpoint,
// endpoint list, legacy flat hostname/port) into the ordered sequence the
// roster is built from.
func (c *Config) Endpoints() []broker.Endpoint {
	if len(c.Servers) > 0 {
		eps := make([]broker.Endpoint, 0, len(c.Servers))
		for _, s := range c.Servers {
			eps = append(eps, broker.Endpoint{
				Host:             s.Hostname,
				Port:             portOrDefault(s.Port),
				SubscribeHeaders: s.SubscribeHeaders,
			})
		}
		return eps
	}

	if c.Hostname != "" {
		return []broker.Endpoint{{Host: c.Hostname, Port: portOrDefault(c.Port)}}
	}

	return nil
}

// Tries returns tries_per_server with its default applied
func (c *Config) Tries() int {
	if c.TriesPerServer < 1 {
		return DefaultTriesPerServer
	}
	return c.TriesPerServer
}

// RetryDelay returns connect_retry_delay with its default applied. An
// explicit zero disables the sleep.
func (c *Config) RetryDelay() time.Duration {
	if c.ConnectRetryDelay == nil {
		return DefaultConnectRetryDelaySeconds * time.Second
	}
	return time.Duration(*c.ConnectRetryDelay) * time.Second
}

func portOrDefault(port int) int {
	if port == 0 {
		return DefaultPort
	}
	return port
}
