package websocket

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// HubMonitor periodically reports registry occupancy
type HubMonitor struct {
	hub      *Hub
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewHubMonitor creates a monitor that reports every interval
func NewHubMonitor(hub *Hub, interval time.Duration, logger *zap.Logger) *HubMonitor {
	return &HubMonitor{
		hub:      hub,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the background reporting loop
func (m *HubMonitor) Start() {
	go m.reportLoop()
	m.logger.Info("Hub monitor started", zap.Duration("interval", m.interval))
}

// Stop ends the reporting loop
func (m *HubMonitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		m.logger.Info("Hub monitor stopped")
	})
}

func (m *HubMonitor) reportLoop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.report()
		}
	}
}

// Snapshot returns the live connection count and the age of the oldest one
func (m *HubMonitor) Snapshot() (active int, oldest time.Duration) {
	conns := m.hub.ActiveConnections()
	if len(conns) == 0 {
		return 0, 0
	}
	return len(conns), time.Since(conns[0].CreatedAt)
}

func (m *HubMonitor) report() {
	active, oldest := m.Snapshot()
	m.logger.Info("Active connections",
		zap.Int("active", active),
		zap.Duration("oldest", oldest))
}
