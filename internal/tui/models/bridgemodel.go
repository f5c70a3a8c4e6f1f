package models

import (
	"context"
	"sync"

	"github.com/allbin/midiserial"
	"github.com/allbin/midiserial/internal/tui/styles"
)

// BridgeStatusMsg reports a bridge state change to the program
type BridgeStatusMsg struct {
	State styles.State
	Err   error
}

// StatsMsg carries a periodic counter snapshot
type StatsMsg struct {
	Stats midiserial.Stats
}

// BridgeModel holds the monitor state shared with the bridge goroutine
type BridgeModel struct {
	portPath string

	state styles.State
	err   error
	ready bool
	stats midiserial.Stats

	cancel context.CancelFunc
	ctx    context.Context
	mu     sync.RWMutex
}

func NewBridgeModel(parent context.Context, portPath string) *BridgeModel {
	ctx, cancel := context.WithCancel(parent)

	return &BridgeModel{
		portPath: portPath,
		state:    styles.StateOpening,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (m *BridgeModel) GetPortPath() string {
	return m.portPath
}

func (m *BridgeModel) GetState() styles.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Apply records a status message. A failure wins over a later stop.
func (m *BridgeModel) Apply(msg BridgeStatusMsg) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == styles.StateFailed && msg.State == styles.StateStopped {
		return
	}
	m.state = msg.State
	if msg.Err != nil {
		m.err = msg.Err
	}
}

func (m *BridgeModel) GetError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

func (m *BridgeModel) IsRunning() bool {
	return m.GetState() == styles.StateRunning
}

func (m *BridgeModel) IsReady() bool {
	return m.ready
}

func (m *BridgeModel) SetReady(ready bool) {
	m.ready = ready
}

func (m *BridgeModel) GetStats() midiserial.Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

func (m *BridgeModel) SetStats(stats midiserial.Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = stats
}

func (m *BridgeModel) GetContext() context.Context {
	return m.ctx
}

// Cancel stops the bridge goroutine
func (m *BridgeModel) Cancel() {
	if m.cancel != nil {
		m.cancel()
	}
}
