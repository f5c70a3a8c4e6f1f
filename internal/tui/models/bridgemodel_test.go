package models

import (
	"context"
	"errors"
	"testing"

	"github.com/allbin/midiserial"
	"github.com/allbin/midiserial/internal/tui/styles"
)

func TestBridgeModelStates(t *testing.T) {
	m := NewBridgeModel(context.Background(), "/dev/ttyS1")

	if m.GetState() != styles.StateOpening {
		t.Errorf("Expected initial state OPENING, got %s", m.GetState())
	}

	m.Apply(BridgeStatusMsg{State: styles.StateRunning})
	if !m.IsRunning() {
		t.Error("Expected model to be running")
	}

	fail := errors.New("hangup")
	m.Apply(BridgeStatusMsg{State: styles.StateFailed, Err: fail})
	m.Apply(BridgeStatusMsg{State: styles.StateStopped})

	if m.GetState() != styles.StateFailed {
		t.Errorf("Expected failure to stick, got %s", m.GetState())
	}
	if !errors.Is(m.GetError(), fail) {
		t.Errorf("Expected error %v, got %v", fail, m.GetError())
	}
}

func TestBridgeModelCancel(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	defer cancelParent()

	m := NewBridgeModel(parent, "/dev/ttyS1")
	m.Cancel()

	select {
	case <-m.GetContext().Done():
	default:
		t.Error("Expected context to be cancelled")
	}
	if parent.Err() != nil {
		t.Error("Expected parent context to stay alive")
	}
}

func TestBridgeModelStats(t *testing.T) {
	m := NewBridgeModel(context.Background(), "/dev/ttyS1")
	m.SetStats(midiserial.Stats{RxMessages: 3})

	if got := m.GetStats().RxMessages; got != 3 {
		t.Errorf("Expected 3 rx messages, got %d", got)
	}
}
