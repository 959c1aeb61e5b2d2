// Package config loads relay and client settings.
//
// Values are resolved in order: built-in defaults, the YAML file named by
// CONFIG_FILE, then environment variables. A .env file, when present, seeds
// the environment without overriding variables that are already set.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ghodss/yaml"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/satriahrh/morsenet/domain/morse"
	"github.com/satriahrh/morsenet/internal/framing"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Duration accepts Go duration strings ("200ms") or plain seconds ("0.2")
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*d = Duration(v * float64(time.Second))
		return nil
	case string:
		parsed, err := parseDuration(v)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// loadDotEnv seeds the environment from files that exist
func loadDotEnv(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// applyFile overlays the YAML file named by CONFIG_FILE onto dst
func applyFile(dst interface{}) error {
	path, ok := os.LookupEnv("CONFIG_FILE")
	if !ok || path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

// env collects environment overrides and remembers every parse failure
type env struct {
	err error
}

func (e *env) string(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = strings.TrimSpace(v)
	}
}

func (e *env) int(key string, dst *int) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		e.err = multierr.Append(e.err, fmt.Errorf("%s: %q is not an integer", key, v))
		return
	}
	*dst = n
}

func (e *env) bool(key string, dst *bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		e.err = multierr.Append(e.err, fmt.Errorf("%s: %q is not a boolean", key, v))
		return
	}
	*dst = b
}

func (e *env) duration(key string, dst *Duration) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	d, err := parseDuration(v)
	if err != nil {
		e.err = multierr.Append(e.err, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = Duration(d)
}

func (e *env) framing(key string, dst *framing.Mode) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	*dst = framing.Mode(strings.ToLower(strings.TrimSpace(v)))
}

func (e *env) decodeMode(key string, dst *morse.DecodeMode) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	*dst = morse.DecodeMode(strings.ToLower(strings.TrimSpace(v)))
}

func validatePort(key string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s: %d is out of range", key, port)
	}
	return nil
}

func validateModes(f framing.Mode, d morse.DecodeMode) error {
	var err error
	if _, perr := framing.ParseMode(string(f)); perr != nil {
		err = multierr.Append(err, fmt.Errorf("FRAMING: %w", perr))
	}
	if _, perr := morse.ParseDecodeMode(string(d)); perr != nil {
		err = multierr.Append(err, fmt.Errorf("DECODE_MODE: %w", perr))
	}
	return err
}

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
