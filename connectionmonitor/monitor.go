package connectionmonitor

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// healthCheckInterval defines interval between connection health checks.
	healthCheckInterval = 30 * time.Second
	// reconnectTimeout defines timeout for reconnection attempts.
	reconnectTimeout = 5 * time.Second
	// maxReconnectAttempts defines maximum number of reconnection attempts.
	maxReconnectAttempts = 3
)

// ConnectionMonitor represents connection state monitoring interface.
type ConnectionMonitor interface {
	// Start starts connection monitoring.
	Start(ctx context.Context) error
	// Stop stops connection monitoring.
	Stop()
}

// BlockchainClient represents the chain client side of the monitoring contract.
type BlockchainClient interface {
	// CheckConnection checks if connection is alive.
	CheckConnection(ctx context.Context) error
	// Reconnect attempts to reconnect to blockchain node.
	Reconnect(ctx context.Context) error
}

type connectionMonitor struct {
	client       BlockchainClient
	logger       *logrus.Logger
	chainName    string
	stopChan     chan struct{}
	isMonitoring bool
	monitorMutex sync.RWMutex
}

// NewConnectionMonitor creates a new connection monitor instance.
//
// Parameters:
// - client: the blockchain client to monitor.
// - logger: the logger for logging purposes.
// - chainName: the name of the monitored chain.
//
// Returns:
// - ConnectionMonitor: the new connection monitor instance.
func NewConnectionMonitor(client BlockchainClient, logger *logrus.Logger, chainName string) ConnectionMonitor {
	return &connectionMonitor{
		client:    client,
		logger:    logger,
		chainName: chainName,
		stopChan:  make(chan struct{}),
	}
}

// Start starts connection monitoring.
//
// Parameters:
// - ctx: the context for managing the monitoring goroutine.
//
// Returns:
// - error: an error if the connection monitor is already running.
func (m *connectionMonitor) Start(ctx context.Context) error {
	m.monitorMutex.Lock()
	if m.isMonitoring {
		m.monitorMutex.Unlock()
		return errors.Errorf("connection monitor is already running for chain %s", m.chainName)
	}
	m.isMonitoring = true
	m.monitorMutex.Unlock()

	go m.monitorConnection(ctx)
	return nil
}

// Stop stops connection monitoring.
func (m *connectionMonitor) Stop() {
	m.monitorMutex.Lock()
	defer m.monitorMutex.Unlock()

	if !m.isMonitoring {
		return
	}

	close(m.stopChan)
	m.isMonitoring = false
}

// monitorConnection periodically checks connection health and triggers
// reconnection when the check fails.
func (m *connectionMonitor) monitorConnection(ctx context.Context) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, reconnectTimeout)
			err := m.client.CheckConnection(checkCtx)
			cancel()

			if err == nil {
				continue
			}

			m.logger.WithField("chain", m.chainName).WithError(err).Warn("Connection check failed, attempting to reconnect")
			m.handleReconnect(ctx)
		}
	}
}

// handleReconnect attempts to reconnect with a bounded number of attempts.
func (m *connectionMonitor) handleReconnect(ctx context.Context) {
	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		reconnectCtx, cancel := context.WithTimeout(ctx, reconnectTimeout)
		err := m.client.Reconnect(reconnectCtx)
		cancel()

		if err == nil {
			m.logger.WithField("chain", m.chainName).Info("Connection restored")
			return
		}

		m.logger.WithFields(logrus.Fields{
			"chain":   m.chainName,
			"attempt": attempt,
		}).WithError(err).Error("Reconnect attempt failed")

		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case <-time.After(reconnectTimeout):
		}
	}

	m.logger.WithField("chain", m.chainName).Error("Giving up reconnecting after max attempts")
}
