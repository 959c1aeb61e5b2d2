package repositories

import "context"

// ServiceType is the DNS-SD service name relays announce under
const ServiceType = "_morse-relay._tcp"

// Announcer advertises a running relay on the local network
type Announcer interface {
	Announce(ctx context.Context, instance string, port int) (Announcement, error)
}

// Announcement is a live advertisement
type Announcement interface {
	Shutdown()
}

// Locator finds a relay to connect to
type Locator interface {
	Locate(ctx context.Context) (host string, port int, err error)
}
