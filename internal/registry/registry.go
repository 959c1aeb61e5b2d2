package registry

import (
	"errors"
	"sort"
	"sync"

	"github.com/satriahrh/morsenet/domain/entities"
)

var (
	ErrDuplicatePeer = errors.New("peer already registered")
	ErrPeerClosed    = errors.New("peer is closed")
	ErrSendQueueFull = errors.New("peer send queue is full")
)

// Peer is one connected client, whatever its transport
type Peer interface {
	ID() string
	Info() entities.PeerInfo
	// Send queues a delivery. It must not block on the network.
	Send(d entities.Delivery) error
	Close() error
}

type entry struct {
	peer Peer
	seq  uint64
}

// Registry maintains the set of connected peers. All methods are safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	peers map[string]entry
	seq   uint64
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		peers: make(map[string]entry),
	}
}

// Register adds a peer. Registering an id twice fails with ErrDuplicatePeer.
func (r *Registry) Register(p Peer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.ID()
	if _, exists := r.peers[id]; exists {
		return ErrDuplicatePeer
	}
	r.seq++
	r.peers[id] = entry{peer: p, seq: r.seq}
	return nil
}

// Unregister removes a peer and returns it. It reports false when the peer was
// not registered, so concurrent callers can tell who removed it.
func (r *Registry) Unregister(id string) (Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.peers[id]
	if !exists {
		return nil, false
	}
	delete(r.peers, id)
	return e.peer, true
}

// Contains reports whether a peer is currently registered
func (r *Registry) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.peers[id]
	return exists
}

// Get returns a registered peer by id
func (r *Registry) Get(id string) (Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.peers[id]
	return e.peer, exists
}

// Snapshot returns the registered peers in registration order. The slice is
// owned by the caller and does not change when the registry does.
func (r *Registry) Snapshot() []Peer {
	r.mu.RLock()
	entries := make([]entry, 0, len(r.peers))
	for _, e := range r.peers {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})

	peers := make([]Peer, len(entries))
	for i, e := range entries {
		peers[i] = e.peer
	}
	return peers
}

// Infos describes every registered peer in registration order
func (r *Registry) Infos() []entities.PeerInfo {
	snapshot := r.Snapshot()
	infos := make([]entities.PeerInfo, len(snapshot))
	for i, p := range snapshot {
		infos[i] = p.Info()
	}
	return infos
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// CloseAll unregisters and closes every peer. It returns how many were closed.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	peers := make([]Peer, 0, len(r.peers))
	for id, e := range r.peers {
		peers = append(peers, e.peer)
		delete(r.peers, id)
	}
	r.mu.Unlock()

	for _, p := range peers {
		_ = p.Close()
	}
	return len(peers)
}
