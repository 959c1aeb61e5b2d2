package relay

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/morsenet/domain/entities"
	"github.com/satriahrh/morsenet/internal/framing"
	"github.com/satriahrh/morsenet/internal/registry"
)

// ConnState is the lifecycle of one relay connection
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// tcpPeer is a registered TCP connection. The connection handler owns the
// read side; writePump is the only writer.
type tcpPeer struct {
	info      entities.PeerInfo
	conn      net.Conn
	writer    framing.Writer
	writeWait time.Duration

	// Buffered channel of outbound deliveries.
	send chan entities.Delivery
	done chan struct{}

	state     atomic.Int32
	closeOnce sync.Once

	onWriteFailure func(p *tcpPeer, err error)
	logger         *zap.Logger
}

func newTCPPeer(id string, conn net.Conn, opts Options, logger *zap.Logger) *tcpPeer {
	p := &tcpPeer{
		info: entities.PeerInfo{
			ID:          id,
			RemoteAddr:  conn.RemoteAddr().String(),
			Transport:   entities.TransportTCP,
			ConnectedAt: time.Now(),
		},
		conn:      conn,
		writer:    framing.NewWriter(opts.Framing, conn),
		writeWait: opts.WriteWait,
		send:      make(chan entities.Delivery, opts.SendQueueSize),
		done:      make(chan struct{}),
		logger:    logger.With(zap.String("peerID", id), zap.String("remoteAddr", conn.RemoteAddr().String())),
	}
	p.state.Store(int32(StateConnecting))
	return p
}

func (p *tcpPeer) ID() string {
	return p.info.ID
}

func (p *tcpPeer) Info() entities.PeerInfo {
	return p.info
}

func (p *tcpPeer) State() ConnState {
	return ConnState(p.state.Load())
}

func (p *tcpPeer) setState(s ConnState) {
	prev := ConnState(p.state.Swap(int32(s)))
	if prev != s {
		p.logger.Debug("Connection state changed",
			zap.Stringer("from", prev),
			zap.Stringer("to", s))
	}
}

// Send queues a delivery without blocking. A full queue is reported as a
// failure so the broadcaster can drop the peer.
func (p *tcpPeer) Send(d entities.Delivery) error {
	select {
	case <-p.done:
		return registry.ErrPeerClosed
	default:
	}

	select {
	case p.send <- d:
		return nil
	case <-p.done:
		return registry.ErrPeerClosed
	default:
		return registry.ErrSendQueueFull
	}
}

// Close closes the connection. It is safe to call more than once.
func (p *tcpPeer) Close() error {
	err := registry.ErrPeerClosed
	p.closeOnce.Do(func() {
		close(p.done)
		err = p.conn.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	})
	return err
}

// writePump drains the send queue onto the connection
func (p *tcpPeer) writePump() {
	for {
		select {
		case <-p.done:
			return
		case d := <-p.send:
			if p.writeWait > 0 {
				_ = p.conn.SetWriteDeadline(time.Now().Add(p.writeWait))
			}
			if err := p.writer.WriteFrame([]byte(d.Text)); err != nil {
				p.logger.Warn("Failed to write to peer", zap.Error(err))
				if p.onWriteFailure != nil {
					p.onWriteFailure(p, err)
				}
				_ = p.Close()
				return
			}
		}
	}
}
