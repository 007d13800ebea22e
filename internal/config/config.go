// Package config loads the processor's tunable parameters from the
// environment, mirroring the opcua-adapter's env.Parse(&cfg) pattern.
package config

import "github.com/caarlos0/env/v7"

// Config holds the processor's hardening knobs (spec.md §9 Open
// Questions): buffer size caps, channel lifetime cap, nonce length, and
// the publish queue bound.
type Config struct {
	// MaxReceiveBufferSize and MaxSendBufferSize clamp the Hello
	// negotiation (Open Question (c)); 0 disables the clamp.
	MaxReceiveBufferSize uint32 `env:"OPCUA_MAX_RECEIVE_BUFFER_SIZE" envDefault:"0"`
	MaxSendBufferSize    uint32 `env:"OPCUA_MAX_SEND_BUFFER_SIZE" envDefault:"0"`

	// MaxChannelLifetimeMS caps OpenSecureChannel's RevisedLifetime;
	// 0 disables the cap.
	MaxChannelLifetimeMS uint32 `env:"OPCUA_MAX_CHANNEL_LIFETIME_MS" envDefault:"0"`

	// ServerNonceLength is floored to 32 by the channel manager
	// regardless of this value (Open Question (b)).
	ServerNonceLength int `env:"OPCUA_SERVER_NONCE_LENGTH" envDefault:"32"`

	// PublishQueueMax bounds the per-connection publish queue; 0 means
	// unbounded (Open Question (d)).
	PublishQueueMax int `env:"OPCUA_PUBLISH_QUEUE_MAX" envDefault:"0"`
}

// Load parses Config from the process environment.
func Load() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
