package config

import (
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/satriahrh/morsenet/domain/morse"
	"github.com/satriahrh/morsenet/internal/framing"
)

// ClientConfig configures a peer
type ClientConfig struct {
	ServerIP     string       `json:"server_ip"`
	ServerPort   int          `json:"server_port"`
	Framing      framing.Mode `json:"framing"`
	DotThreshold Duration     `json:"dot_threshold"`

	// LetterGap is the idle time that closes a letter; zero disables it
	LetterGap      Duration         `json:"letter_gap"`
	DecodeMode     morse.DecodeMode `json:"decode_mode"`
	DialTimeout    Duration         `json:"dial_timeout"`
	Discover       bool             `json:"discover"`
	LogDevelopment bool             `json:"log_development"`
}

// DefaultClient returns the built-in peer settings
func DefaultClient() ClientConfig {
	return ClientConfig{
		ServerIP:     "127.0.0.1",
		ServerPort:   5555,
		Framing:      framing.ModeLine,
		DotThreshold: Duration(200 * time.Millisecond),
		LetterGap:    Duration(600 * time.Millisecond),
		DecodeMode:   morse.Strict,
		DialTimeout:  Duration(5 * time.Second),
	}
}

// LoadClient resolves the peer settings. envFiles defaults to ".env".
func LoadClient(envFiles ...string) (*ClientConfig, error) {
	if err := loadDotEnv(envFiles); err != nil {
		return nil, err
	}

	cfg := DefaultClient()
	if err := applyFile(&cfg); err != nil {
		return nil, err
	}

	e := &env{}
	e.string("SERVER_IP", &cfg.ServerIP)
	e.int("SERVER_PORT", &cfg.ServerPort)
	e.framing("FRAMING", &cfg.Framing)
	e.duration("DOT_THRESHOLD", &cfg.DotThreshold)
	e.duration("LETTER_GAP", &cfg.LetterGap)
	e.decodeMode("DECODE_MODE", &cfg.DecodeMode)
	e.duration("DIAL_TIMEOUT", &cfg.DialTimeout)
	e.bool("DISCOVER", &cfg.Discover)
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
func (c *ClientConfig) Validate() error {
	var err error
	if !c.Discover {
		err = validatePort("SERVER_PORT", c.ServerPort)
		if c.ServerIP == "" {
			err = multierr.Append(err, fmt.Errorf("SERVER_IP: required unless DISCOVER is set"))
		}
	}
	err = multierr.Append(err, validateModes(c.Framing, c.DecodeMode))
	if c.DotThreshold <= 0 {
		err = multierr.Append(err, fmt.Errorf("DOT_THRESHOLD: must be positive"))
	}
	if c.LetterGap < 0 {
		err = multierr.Append(err, fmt.Errorf("LETTER_GAP: must not be negative"))
	}
	if c.DialTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("DIAL_TIMEOUT: must be positive"))
	}
	return invalid(err)
}

// ServerAddr is the relay address to dial
func (c *ClientConfig) ServerAddr() string {
	return joinHostPort(c.ServerIP, c.ServerPort)
}
