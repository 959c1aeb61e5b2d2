package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/morsenet/domain/entities"
	"github.com/satriahrh/morsenet/internal/framing"
	"github.com/satriahrh/morsenet/internal/registry"
)

const (
	// Default time allowed to write one frame to a peer.
	defaultWriteWait = 5 * time.Second

	defaultSendQueueSize = 64

	// Accept retry backoff bounds.
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// FrameHandler consumes frames read from peers
type FrameHandler interface {
	HandleFrame(ctx context.Context, origin entities.PeerInfo, frame []byte) string
}

// Options configures a relay server
type Options struct {
	Addr          string
	Framing       framing.Mode
	MaxFrameSize  int
	SendQueueSize int
	WriteWait     time.Duration
}

func (o Options) withDefaults() Options {
	if o.Framing == "" {
		o.Framing = framing.ModeLine
	}
	if o.MaxFrameSize <= 0 {
		o.MaxFrameSize = framing.DefaultMaxFrameSize
	}
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = defaultSendQueueSize
	}
	if o.WriteWait <= 0 {
		o.WriteWait = defaultWriteWait
	}
	return o
}

// Server accepts TCP peers, registers them and feeds their frames to a handler
type Server struct {
	opts     Options
	registry *registry.Registry
	handler  FrameHandler
	logger   *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	active   map[*tcpPeer]struct{}
	shutdown bool

	wg sync.WaitGroup
}

// NewServer creates a relay server
func NewServer(opts Options, reg *registry.Registry, handler FrameHandler, logger *zap.Logger) *Server {
	return &Server{
		opts:     opts.withDefaults(),
		registry: reg,
		handler:  handler,
		logger:   logger,
		active:   make(map[*tcpPeer]struct{}),
	}
}

// ListenAndServe listens on the configured address and serves until ctx is
// done or Shutdown is called
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the accept loop on ln. Accept errors are logged and retried;
// Serve returns nil once the server is shutting down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	s.listener = ln
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	stop := context.AfterFunc(ctx, s.closeListener)
	defer stop()

	s.logger.Info("Relay listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("framing", string(s.opts.Framing)))

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isShuttingDown() || ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("listener closed unexpectedly: %w", err)
			}

			if delay == 0 {
				delay = minAcceptDelay
			} else {
				delay *= 2
			}
			if delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			s.logger.Warn("Accept failed, retrying", zap.Error(err), zap.Duration("delay", delay))

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		delay = 0

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// handleConn owns one connection from accept to close
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	peer := newTCPPeer(uuid.NewString(), conn, s.opts, s.logger)
	peer.onWriteFailure = s.dropPeer

	if !s.track(peer) {
		conn.Close()
		return
	}
	defer s.untrack(peer)

	if err := s.registry.Register(peer); err != nil {
		peer.logger.Error("Failed to register peer", zap.Error(err))
		peer.Close()
		return
	}
	peer.setState(StateOpen)
	peer.logger.Info("Peer connected")

	defer func() {
		peer.setState(StateClosing)
		s.registry.Unregister(peer.ID())
		peer.Close()
		peer.setState(StateClosed)
		peer.logger.Info("Peer disconnected")
	}()

	go peer.writePump()

	reader := framing.NewReader(s.opts.Framing, conn, s.opts.MaxFrameSize)
	for {
		frame, err := reader.ReadFrame()
		if errors.Is(err, framing.ErrFrameTooLarge) && s.opts.Framing == framing.ModeLine {
			// the reader has already skipped the rest of the line
			peer.logger.Warn("Dropped oversized frame", zap.Error(err))
			continue
		}
		if err != nil {
			if !isClosedConnError(err) {
				peer.logger.Warn("Read failed", zap.Error(err))
			}
			return
		}
		if len(frame) == 0 {
			return
		}
		s.handler.HandleFrame(ctx, peer.Info(), frame)
	}
}

func (s *Server) dropPeer(p *tcpPeer, err error) {
	if _, ok := s.registry.Unregister(p.ID()); ok {
		p.logger.Warn("Unregistered peer after write failure", zap.Error(err))
	}
}

func (s *Server) track(p *tcpPeer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return false
	}
	s.active[p] = struct{}{}
	return true
}

func (s *Server) untrack(p *tcpPeer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, p)
}

func (s *Server) isShuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

func (s *Server) closeListener() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
	if s.listener != nil {
		s.listener.Close()
	}
}

// Addr returns the listening address, or nil before Serve
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting, closes every connection this server owns and
// waits for the handlers to finish or ctx to expire
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeListener()

	s.mu.Lock()
	peers := make([]*tcpPeer, 0, len(s.active))
	for p := range s.active {
		peers = append(peers, p)
	}
	s.mu.Unlock()

	for _, p := range peers {
		s.registry.Unregister(p.ID())
		p.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Relay stopped", zap.Int("closedPeers", len(peers)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isClosedConnError(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
