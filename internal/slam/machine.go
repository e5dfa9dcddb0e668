// Package slam models the run modes of the robot's navigation system.
package slam

import (
	"fmt"
	"sync"
)

// Mode describes what the SLAM system is currently doing.
type Mode string

const (
	ModeIdle      Mode = "Idle"
	ModeExploring Mode = "Exploring"
	ModeTracking  Mode = "Tracking"
	ModeLostPose  Mode = "LostPose"
)

// Machine is a lightweight deterministic run-mode state machine. Mapping and
// tracking are mutually exclusive; starting one ends the other.
type Machine struct {
	mu        sync.RWMutex
	mode      Mode
	streaming bool
}

// New creates a machine in the idle mode with streaming off.
func New() *Machine {
	return &Machine{mode: ModeIdle}
}

// Mode returns the current run mode.
func (m *Machine) Mode() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// Streaming reports whether the depth sensor stream is open.
func (m *Machine) Streaming() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.streaming
}

// OnMappingStart moves the system into the exploring mode.
func (m *Machine) OnMappingStart() {
	m.transition(ModeExploring)
}

// OnMappingStop returns to idle. Reports whether mapping was running, so the
// caller knows whether a map was produced.
func (m *Machine) OnMappingStop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	wasMapping := m.mode == ModeExploring
	m.mode = ModeIdle
	return wasMapping
}

// OnTrackingStart moves the system into the tracking mode.
func (m *Machine) OnTrackingStart() {
	m.transition(ModeTracking)
}

// OnTrackingStop returns to idle when tracking or lost.
func (m *Machine) OnTrackingStop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == ModeTracking || m.mode == ModeLostPose {
		m.mode = ModeIdle
	}
}

// OnPoseLost marks the tracking pose as lost. Only meaningful while tracking.
func (m *Machine) OnPoseLost() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == ModeTracking {
		m.mode = ModeLostPose
	}
}

// SetStreaming opens or closes the depth sensor stream.
func (m *Machine) SetStreaming(on bool) {
	m.mu.Lock()
	m.streaming = on
	m.mu.Unlock()
}

// Reset returns the machine to its initial state.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.mode = ModeIdle
	m.streaming = false
	m.mu.Unlock()
}

// Force sets the mode unconditionally.
func (m *Machine) Force(mode Mode) error {
	switch mode {
	case ModeIdle, ModeExploring, ModeTracking, ModeLostPose:
		m.transition(mode)
		return nil
	default:
		return fmt.Errorf("invalid mode: %s", mode)
	}
}

// StatusBits packs the mode and streaming flag into the bit field the status
// endpoints report.
func (m *Machine) StatusBits() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bits := 0
	switch m.mode {
	case ModeExploring:
		bits |= 1
	case ModeTracking, ModeLostPose:
		bits |= 2
	}
	if m.streaming {
		bits |= 4
	}
	return bits
}

func (m *Machine) transition(mode Mode) {
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
}
