// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_detector

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rapidaai/meetscribe/pkg/commons"
	"github.com/rapidaai/meetscribe/pkg/events"
)

// ============================================================================
// Test helpers
// ============================================================================

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(
		commons.Name("test-detector"),
		commons.Level("error"),
	)
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return logger
}

// fakeProbe scripts one result per tick.
type fakeProbe struct {
	windows     [][]Window
	windowErrs  []error
	processes   []string
	processErr  error
	windowCalls int
}

func (p *fakeProbe) ListWindows(ctx context.Context) ([]Window, error) {
	i := p.windowCalls
	p.windowCalls++
	if i < len(p.windowErrs) && p.windowErrs[i] != nil {
		return nil, p.windowErrs[i]
	}
	if i < len(p.windows) {
		return p.windows[i], nil
	}
	return nil, nil
}

func (p *fakeProbe) ListProcesses(ctx context.Context) ([]string, error) {
	return p.processes, p.processErr
}

type recordedEvents struct {
	started []string
	ended   int
}

func recordDetectionEvents(bus *events.Bus) *recordedEvents {
	rec := &recordedEvents{}
	bus.Subscribe(events.KindMeetingStarted, func(e events.Event) {
		rec.started = append(rec.started, e.Payload.(events.MeetingStartedData).AppName)
	})
	bus.Subscribe(events.KindMeetingEnded, func(events.Event) {
		rec.ended++
	})
	return rec
}

func newTestMonitor(t *testing.T, probe ActivityProbe) (*Monitor, *recordedEvents) {
	t.Helper()
	bus := events.NewBus()
	rec := recordDetectionEvents(bus)
	return NewMonitor(newTestLogger(t), bus, probe, DefaultRegistry(), time.Hour), rec
}

func zoomWindow() []Window {
	return []Window{{ProcessName: "zoom.us", Title: "Zoom Meeting - Standup"}}
}

// ============================================================================
// Edge-triggered detection
// ============================================================================

func TestCheck_EmitsOnlyOnTransitions(t *testing.T) {
	probe := &fakeProbe{windows: [][]Window{
		nil,          // none
		zoomWindow(), // none -> Zoom: meeting-started
		zoomWindow(), // Zoom -> Zoom: silent
		zoomWindow(), // Zoom -> Zoom: silent
		nil,          // Zoom -> none: meeting-ended
		nil,          // none -> none: silent
	}}
	monitor, rec := newTestMonitor(t, probe)

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		monitor.check(ctx)
	}

	assert.Equal(t, []string{"Zoom"}, rec.started)
	assert.Equal(t, 1, rec.ended)
}

func TestCheck_NameToNameChangeStaysSilent(t *testing.T) {
	probe := &fakeProbe{windows: [][]Window{
		zoomWindow(),
		{{ProcessName: "Slack", Title: "Huddle"}}, // different app, still a meeting
	}}
	monitor, rec := newTestMonitor(t, probe)

	ctx := context.Background()
	monitor.check(ctx)
	monitor.check(ctx)

	assert.Equal(t, []string{"Zoom"}, rec.started)
	assert.Equal(t, 0, rec.ended)
	assert.Equal(t, "Slack Huddle", monitor.Current())
}

func TestCheck_RepeatedDetectionNeverRefires(t *testing.T) {
	probe := &fakeProbe{windows: [][]Window{zoomWindow(), zoomWindow(), zoomWindow()}}
	monitor, rec := newTestMonitor(t, probe)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		monitor.check(ctx)
	}

	assert.Equal(t, []string{"Zoom"}, rec.started)
}

// ============================================================================
// Probe failure handling
// ============================================================================

func TestCheck_PrimaryFailureFallsBackToProcesses(t *testing.T) {
	probe := &fakeProbe{
		windowErrs: []error{fmt.Errorf("accessibility permission denied")},
		processes:  []string{"zoom.us", "CptHost"},
	}
	monitor, rec := newTestMonitor(t, probe)

	monitor.check(context.Background())

	assert.Equal(t, []string{"Zoom"}, rec.started)
}

func TestCheck_BothProbesFailingYieldsNoMeeting(t *testing.T) {
	probe := &fakeProbe{
		windowErrs: []error{fmt.Errorf("primary down")},
		processErr: fmt.Errorf("fallback down"),
	}
	monitor, rec := newTestMonitor(t, probe)

	assert.NotPanics(t, func() { monitor.check(context.Background()) })
	assert.Empty(t, rec.started)
	assert.Equal(t, 0, rec.ended)
}

func TestCheck_ProbeFailureEndsActiveMeeting(t *testing.T) {
	probe := &fakeProbe{
		windows:    [][]Window{zoomWindow()},
		windowErrs: []error{nil, fmt.Errorf("probe broke")},
		processErr: fmt.Errorf("fallback broke"),
	}
	monitor, rec := newTestMonitor(t, probe)

	ctx := context.Background()
	monitor.check(ctx)
	monitor.check(ctx)

	// Failure degrades to "no meeting this tick", which is an edge.
	assert.Equal(t, []string{"Zoom"}, rec.started)
	assert.Equal(t, 1, rec.ended)
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestStartStop_Idempotent(t *testing.T) {
	probe := &fakeProbe{}
	monitor, _ := newTestMonitor(t, probe)

	monitor.Start()
	monitor.Start() // second start is a no-op
	monitor.Stop()
	monitor.Stop() // second stop is a no-op

	// Only the immediate check of the single poll loop ran.
	assert.Equal(t, 1, probe.windowCalls)
}

func TestCurrent_TracksLastDetection(t *testing.T) {
	probe := &fakeProbe{windows: [][]Window{zoomWindow(), nil}}
	monitor, _ := newTestMonitor(t, probe)

	ctx := context.Background()
	assert.Equal(t, "", monitor.Current())
	monitor.check(ctx)
	assert.Equal(t, "Zoom", monitor.Current())
	monitor.check(ctx)
	assert.Equal(t, "", monitor.Current())
}
