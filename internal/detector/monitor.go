// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_detector

import (
	"context"
	"sync"
	"time"

	"github.com/rapidaai/meetscribe/pkg/commons"
	"github.com/rapidaai/meetscribe/pkg/events"
)

// DefaultPollInterval is how often the monitor queries the activity probe.
const DefaultPollInterval = 3 * time.Second

// Monitor polls the activity probe and publishes edge-triggered
// meeting.started / meeting.ended events. Detection runs independently of
// recording state: the monitor never looks at the session controller, it
// only reports transitions.
type Monitor struct {
	logger   commons.Logger
	bus      *events.Bus
	probe    ActivityProbe
	registry Registry
	interval time.Duration

	mu              sync.Mutex
	running         bool
	cancel          context.CancelFunc
	done            chan struct{}
	lastDetectedApp string
}

// NewMonitor creates a detection monitor. A zero interval selects
// DefaultPollInterval.
func NewMonitor(
	logger commons.Logger,
	bus *events.Bus,
	probe ActivityProbe,
	registry Registry,
	interval time.Duration,
) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		logger:   logger,
		bus:      bus,
		probe:    probe,
		registry: registry,
		interval: interval,
	}
}

// Start begins periodic polling. Idempotent: calling Start on a running
// monitor does nothing.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.running = true
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	m.logger.Infof("meeting detection started: interval=%s", m.interval)

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		// Check immediately, then on every tick.
		m.check(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.check(ctx)
			}
		}
	}()
}

// Stop halts polling and waits for the poll loop to exit. Idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	cancel()
	<-done
	m.logger.Info("meeting detection stopped")
}

// Current returns the app name of the meeting detected on the last tick,
// or "" when none.
func (m *Monitor) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastDetectedApp
}

// check performs one detection tick. Errors never escape: any failure in
// the probe chain degrades to "no meeting detected this tick".
func (m *Monitor) check(ctx context.Context) {
	detected := m.detect(ctx)

	m.mu.Lock()
	previous := m.lastDetectedApp
	m.lastDetectedApp = detected
	m.mu.Unlock()

	switch {
	case detected != "" && previous == "":
		m.logger.Infof("meeting detected: app=%s", detected)
		m.bus.Publish(events.Event{
			Kind:    events.KindMeetingStarted,
			Payload: events.MeetingStartedData{AppName: detected},
		})
	case detected == "" && previous != "":
		m.logger.Infof("meeting ended: app=%s", previous)
		m.bus.Publish(events.Event{Kind: events.KindMeetingEnded})
	}
	// A switch from one meeting app to another stays silent, as does
	// staying idle.
}

// detect resolves the currently active meeting app, or "". The primary
// window probe is tried first; on failure the process-only fallback runs
// with its reduced rule set. A failing fallback also yields "".
func (m *Monitor) detect(ctx context.Context) string {
	windows, err := m.probe.ListWindows(ctx)
	if err == nil {
		return m.registry.Match(windows)
	}
	m.logger.Debugf("window probe failed, trying process fallback: %v", err)

	processes, err := m.probe.ListProcesses(ctx)
	if err != nil {
		m.logger.Debugf("process fallback failed: %v", err)
		return ""
	}
	return m.registry.MatchProcesses(processes)
}
