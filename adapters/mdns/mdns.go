package mdns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/satriahrh/morsenet/domain/repositories"
)

const domain = "local."

var ErrNotFound = errors.New("no relay found on the local network")

// Announcer advertises a relay over multicast DNS
type Announcer struct {
	logger *zap.Logger
}

func NewAnnouncer(logger *zap.Logger) *Announcer {
	return &Announcer{logger: logger}
}

// Announce implements repositories.Announcer
func (a *Announcer) Announce(ctx context.Context, instance string, port int) (repositories.Announcement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	server, err := zeroconf.Register(instance, repositories.ServiceType, domain, port, []string{"txtv=1"}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	a.logger.Info("mDNS service registered",
		zap.String("instance", instance),
		zap.String("service", repositories.ServiceType),
		zap.Int("port", port))
	return server, nil
}

// Locator browses for the first announced relay
type Locator struct {
	timeout time.Duration
	logger  *zap.Logger
}

func NewLocator(timeout time.Duration, logger *zap.Logger) *Locator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Locator{timeout: timeout, logger: logger}
}

// Locate implements repositories.Locator
func (l *Locator) Locate(ctx context.Context) (string, int, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to initialize mDNS resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, repositories.ServiceType, domain, entries); err != nil {
		return "", 0, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return "", 0, ErrNotFound
		case entry, ok := <-entries:
			if !ok {
				return "", 0, ErrNotFound
			}
			host := hostOf(entry)
			if host == "" {
				continue
			}
			l.logger.Info("mDNS discovered relay",
				zap.String("instance", entry.Instance),
				zap.String("host", host),
				zap.Int("port", entry.Port))
			return host, entry.Port, nil
		}
	}
}

// hostOf prefers an IPv4 address, then IPv6, then the advertised host name
func hostOf(entry *zeroconf.ServiceEntry) string {
	if entry == nil {
		return ""
	}
	if len(entry.AddrIPv4) > 0 {
		return entry.AddrIPv4[0].String()
	}
	if len(entry.AddrIPv6) > 0 {
		return entry.AddrIPv6[0].String()
	}
	return strings.TrimSuffix(entry.HostName, ".")
}
