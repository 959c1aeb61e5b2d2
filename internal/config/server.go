package config

import (
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/satriahrh/morsenet/domain/morse"
	"github.com/satriahrh/morsenet/internal/framing"
)

// ServerConfig configures the relay process
type ServerConfig struct {
	Host          string           `json:"relay_host"`
	Port          int              `json:"relay_port"`
	HTTPAddr      string           `json:"http_addr"`
	Framing       framing.Mode     `json:"framing"`
	DecodeMode    morse.DecodeMode `json:"decode_mode"`
	MaxFrameSize  int              `json:"max_frame_size"`
	SendQueueSize int              `json:"send_queue_size"`
	WriteWait     Duration         `json:"write_wait"`
	StatsInterval Duration         `json:"stats_interval"`

	RedisAddr    string `json:"redis_addr"`
	RedisChannel string `json:"redis_channel"`

	MDNSEnabled  bool   `json:"mdns_enabled"`
	MDNSInstance string `json:"mdns_instance"`

	OperatorSecret string `json:"operator_secret"`
	LogDevelopment bool   `json:"log_development"`
}

// DefaultServer returns the built-in relay settings
func DefaultServer() ServerConfig {
	return ServerConfig{
		Host:          "0.0.0.0",
		Port:          5555,
		HTTPAddr:      ":8080",
		Framing:       framing.ModeLine,
		DecodeMode:    morse.Lenient,
		MaxFrameSize:  framing.DefaultMaxFrameSize,
		SendQueueSize: 64,
		WriteWait:     Duration(5 * time.Second),
		StatsInterval: Duration(time.Minute),
		RedisChannel:  "morse-relay",
		MDNSInstance:  "morse-relay",
	}
}

// LoadServer resolves the relay settings. envFiles defaults to ".env".
func LoadServer(envFiles ...string) (*ServerConfig, error) {
	if err := loadDotEnv(envFiles); err != nil {
		return nil, err
	}

	cfg := DefaultServer()
	if err := applyFile(&cfg); err != nil {
		return nil, err
	}

	e := &env{}
	e.string("RELAY_HOST", &cfg.Host)
	e.int("RELAY_PORT", &cfg.Port)
	e.string("HTTP_ADDR", &cfg.HTTPAddr)
	e.framing("FRAMING", &cfg.Framing)
	e.decodeMode("DECODE_MODE", &cfg.DecodeMode)
	e.int("MAX_FRAME_SIZE", &cfg.MaxFrameSize)
	e.int("SEND_QUEUE_SIZE", &cfg.SendQueueSize)
	e.duration("WRITE_WAIT", &cfg.WriteWait)
	e.duration("STATS_INTERVAL", &cfg.StatsInterval)
	e.string("REDIS_ADDR", &cfg.RedisAddr)
	e.string("REDIS_CHANNEL", &cfg.RedisChannel)
	e.bool("MDNS_ENABLED", &cfg.MDNSEnabled)
	e.string("MDNS_INSTANCE", &cfg.MDNSInstance)
	e.string("OPERATOR_SECRET", &cfg.OperatorSecret)
	e.bool("LOG_DEVELOPMENT", &cfg.LogDevelopment)
	if e.err != nil {
		return nil, invalid(e.err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and mode names
func (c *ServerConfig) Validate() error {
	err := validatePort("RELAY_PORT", c.Port)
	err = multierr.Append(err, validateModes(c.Framing, c.DecodeMode))
	if c.MaxFrameSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("MAX_FRAME_SIZE: must be positive"))
	}
	if c.SendQueueSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("SEND_QUEUE_SIZE: must be positive"))
	}
	if c.WriteWait <= 0 {
		err = multierr.Append(err, fmt.Errorf("WRITE_WAIT: must be positive"))
	}
	if c.StatsInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("STATS_INTERVAL: must be positive"))
	}
	if c.MDNSEnabled && c.MDNSInstance == "" {
		err = multierr.Append(err, fmt.Errorf("MDNS_INSTANCE: required when MDNS_ENABLED"))
	}
	return invalid(err)
}

// RelayAddr is the TCP listen address
func (c *ServerConfig) RelayAddr() string {
	return joinHostPort(c.Host, c.Port)
}
