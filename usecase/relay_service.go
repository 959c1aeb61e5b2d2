package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/morsenet/domain/entities"
	"github.com/satriahrh/morsenet/domain/morse"
	"github.com/satriahrh/morsenet/domain/repositories"
	"github.com/satriahrh/morsenet/internal/registry"
)

// BroadcastReport summarizes one fan-out
type BroadcastReport struct {
	Delivered int
	Failed    int
	// Skipped counts peers that left between the snapshot and their turn
	Skipped int
}

// RelayService decodes inbound frames and fans the text out to the other peers
type RelayService struct {
	codec      *morse.Codec
	registry   *registry.Registry
	bus        repositories.MessageBus
	instanceID string
	logger     *zap.Logger
	now        func() time.Time
}

// NewRelayService creates a relay service. bus may be nil for a standalone relay.
func NewRelayService(
	codec *morse.Codec,
	reg *registry.Registry,
	bus repositories.MessageBus,
	instanceID string,
	logger *zap.Logger,
) *RelayService {
	return &RelayService{
		codec:      codec,
		registry:   reg,
		bus:        bus,
		instanceID: instanceID,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *RelayService) InstanceID() string {
	return s.instanceID
}

func (s *RelayService) Codec() *morse.Codec {
	return s.codec
}

// HandleFrame decodes one frame received from origin and broadcasts the text
// to every other registered peer. It returns the decoded text.
func (s *RelayService) HandleFrame(ctx context.Context, origin entities.PeerInfo, frame []byte) string {
	morseText := string(frame)
	text := s.codec.Decode(morseText)

	s.logger.Info("Morse frame received",
		zap.String("peerID", origin.ID),
		zap.String("remoteAddr", origin.RemoteAddr),
		zap.String("morse", morseText),
		zap.String("translated", text))

	delivery := entities.Delivery{
		SenderID: origin.ID,
		Morse:    morseText,
		Text:     text,
		At:       s.now(),
	}

	report := s.Broadcast(origin.ID, delivery)
	s.logger.Debug("Broadcast completed",
		zap.String("peerID", origin.ID),
		zap.Int("delivered", report.Delivered),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped))

	if s.bus != nil {
		msg := entities.RelayedMessage{
			InstanceID: s.instanceID,
			SenderID:   origin.ID,
			Morse:      morseText,
			Text:       text,
			SentAt:     delivery.At,
		}
		if err := s.bus.Publish(ctx, msg); err != nil {
			s.logger.Warn("Failed to publish to message bus",
				zap.String("peerID", origin.ID),
				zap.Error(err))
		}
	}

	return text
}

// Broadcast delivers d to every peer in the current snapshot except originID.
// A failing peer is unregistered and closed; delivery to the rest continues.
func (s *RelayService) Broadcast(originID string, d entities.Delivery) BroadcastReport {
	var report BroadcastReport

	for _, peer := range s.registry.Snapshot() {
		id := peer.ID()
		if id == originID {
			continue
		}
		if !s.registry.Contains(id) {
			report.Skipped++
			continue
		}

		if err := peer.Send(d); err != nil {
			report.Failed++
			s.dropPeer(peer, err)
			continue
		}
		report.Delivered++
	}

	return report
}

func (s *RelayService) dropPeer(peer registry.Peer, cause error) {
	if _, ok := s.registry.Unregister(peer.ID()); !ok {
		return
	}
	if err := peer.Close(); err != nil && !errors.Is(err, registry.ErrPeerClosed) {
		s.logger.Debug("Error closing dropped peer", zap.String("peerID", peer.ID()), zap.Error(err))
	}
	s.logger.Warn("Dropped peer after failed delivery",
		zap.String("peerID", peer.ID()),
		zap.Error(cause))
}

// ConsumeBus relays messages published by other instances to local peers
// until ctx is done.
func (s *RelayService) ConsumeBus(ctx context.Context) error {
	if s.bus == nil {
		<-ctx.Done()
		return nil
	}

	messages, err := s.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to message bus: %w", err)
	}

	s.logger.Info("Consuming message bus", zap.String("instanceID", s.instanceID))

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if msg.InstanceID == s.instanceID {
				continue
			}
			if err := msg.Validate(); err != nil {
				s.logger.Warn("Discarding invalid bus message", zap.Error(err))
				continue
			}
			report := s.Broadcast(msg.SenderID, msg.Delivery())
			s.logger.Debug("Relayed bus message",
				zap.String("fromInstance", msg.InstanceID),
				zap.Int("delivered", report.Delivered))
		}
	}
}
