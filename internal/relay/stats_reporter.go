package relay

import (
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/morsenet/domain/entities"
	"github.com/satriahrh/morsenet/internal/registry"
)

const defaultStatsInterval = time.Minute

// StatsReporter periodically logs the registry population
type StatsReporter struct {
	registry *registry.Registry
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

// NewStatsReporter creates a new stats reporter
func NewStatsReporter(reg *registry.Registry, interval time.Duration, logger *zap.Logger) *StatsReporter {
	if interval <= 0 {
		interval = defaultStatsInterval
	}
	return &StatsReporter{
		registry: reg,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the background reporting loop
func (s *StatsReporter) Start() {
	go s.reportLoop()
	s.logger.Info("Stats reporter started", zap.Duration("interval", s.interval))
}

// Stop stops the reporting loop
func (s *StatsReporter) Stop() {
	close(s.stopChan)
	s.logger.Info("Stats reporter stopped")
}

func (s *StatsReporter) reportLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.report()
		}
	}
}

// Snapshot counts registered peers per transport
func (s *StatsReporter) Snapshot() map[entities.Transport]int {
	counts := make(map[entities.Transport]int)
	for _, info := range s.registry.Infos() {
		counts[info.Transport]++
	}
	return counts
}

func (s *StatsReporter) report() {
	counts := s.Snapshot()
	s.logger.Info("Relay stats",
		zap.Int("peers", s.registry.Len()),
		zap.Int("tcp", counts[entities.TransportTCP]),
		zap.Int("websocket", counts[entities.TransportWebSocket]))
}
