// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	internal_store "github.com/rapidaai/meetscribe/internal/store"
	internal_summary "github.com/rapidaai/meetscribe/internal/summary"
	internal_transcript "github.com/rapidaai/meetscribe/internal/transcript"
	"github.com/rapidaai/meetscribe/pkg/commons"
	"github.com/rapidaai/meetscribe/pkg/events"
)

// ErrStreamUnavailable is returned by Start when no transcription backend
// is configured. No meeting is created in that case.
var ErrStreamUnavailable = errors.New("no transcription backend configured")

// DefaultTitle is used when a recording is started without a title.
const DefaultTitle = "Manual Recording"

// Status is the controller's externally visible state. A pure read.
type Status struct {
	IsRecording     bool   `json:"isRecording"`
	ActiveMeetingID uint64 `json:"activeMeetingId,omitempty"`
}

// sessionState is the in-memory state of the single active session. Owned
// exclusively by the controller, guarded by its mutex, never persisted.
type sessionState struct {
	meetingID uint64
	start     time.Time
	processor *internal_transcript.Processor
}

// Controller is the top-level recording state machine: Idle ⇄ Recording,
// one session process-wide. Every trigger, whether manual, shell command
// or detector-driven, goes through the same mutex, so start and stop can
// never interleave. Invalid transitions (Start while Recording, Stop while
// Idle) are deliberate no-ops, not errors.
type Controller struct {
	logger       commons.Logger
	store        internal_store.Store
	bus          *events.Bus
	factory      internal_transcript.StreamFactory
	orchestrator *internal_summary.Orchestrator

	mu      sync.Mutex
	session *sessionState // nil while Idle

	// clock is injectable for testing; defaults to time.Now.
	clock func() time.Time
}

// NewController wires the session controller. factory may be nil when no
// transcription backend is configured; orchestrator may be nil when no
// summarization backend is configured (stop then skips summarization).
func NewController(
	logger commons.Logger,
	store internal_store.Store,
	bus *events.Bus,
	factory internal_transcript.StreamFactory,
	orchestrator *internal_summary.Orchestrator,
) *Controller {
	return &Controller{
		logger:       logger,
		store:        store,
		bus:          bus,
		factory:      factory,
		orchestrator: orchestrator,
		clock:        time.Now,
	}
}

// SubscribeDetection routes detector events into the controller. A
// detected meeting start is only surfaced to the user (the shell shows the
// notification straight off the bus); recording never auto-starts. A
// detected meeting end stops the session, but only when one is recording.
func (c *Controller) SubscribeDetection() {
	c.bus.Subscribe(events.KindMeetingEnded, func(events.Event) {
		if err := c.Stop(context.Background()); err != nil {
			c.logger.Errorf("auto-stop after meeting end failed: %v", err)
		}
	})
}

// Configure swaps the transcription and summarization backends, typically
// after a settings update. The active session (if any) keeps the stream it
// was started with; the new factory applies from the next Start.
func (c *Controller) Configure(
	factory internal_transcript.StreamFactory,
	orchestrator *internal_summary.Orchestrator,
) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factory = factory
	c.orchestrator = orchestrator
}

// Start begins a new recording session. No-op (nil error) while already
// Recording. Returns ErrStreamUnavailable, creating nothing, when no
// transcription backend is configured.
func (c *Controller) Start(ctx context.Context, title string) error {
	if title == "" {
		title = DefaultTitle
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		c.logger.Debugf("start ignored: already recording meeting %d", c.session.meetingID)
		return nil
	}
	if c.factory == nil {
		return ErrStreamUnavailable
	}

	// Open the stream before creating the meeting row so a failed dial
	// leaves no orphaned meeting behind.
	stream, err := c.factory.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open transcription stream: %w", err)
	}

	meetingID, err := c.store.CreateMeeting(ctx, title)
	if err != nil {
		_ = stream.Close()
		return fmt.Errorf("failed to create meeting: %w", err)
	}

	start := c.clock()
	c.session = &sessionState{
		meetingID: meetingID,
		start:     start,
		processor: internal_transcript.NewProcessor(c.logger, c.store, c.bus, stream, meetingID, start),
	}

	c.logger.Infof("recording started: meeting=%d, title=%q", meetingID, title)
	c.bus.Publish(events.Event{
		Kind:    events.KindRecordingStarted,
		Payload: events.RecordingStartedData{MeetingID: meetingID, Title: title},
	})
	c.bus.Publish(events.Event{Kind: events.KindTranscriptionReady})
	return nil
}

// Stop ends the active session. No-op (nil error) while Idle. The state
// transition completes synchronously; summarization runs afterwards in the
// background and never rolls the transition back.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}

	session := c.session
	c.session = nil

	if err := session.processor.Close(); err != nil {
		// The session still ends; a dirty stream teardown is not fatal.
		c.logger.Warnf("stream close during stop: %v", err)
	}

	// The in-memory transition is already complete, so the lifecycle events
	// go out even when the end stamp fails; the row then stays active in
	// the database and is logged as orphaned.
	endErr := c.store.EndMeeting(ctx, session.meetingID)
	if endErr != nil {
		c.logger.Errorf("failed to end meeting %d, row stays active: %v", session.meetingID, endErr)
	}

	c.logger.Infof("recording stopped: meeting=%d", session.meetingID)
	c.bus.Publish(events.Event{Kind: events.KindTranscriptionStopped})
	c.bus.Publish(events.Event{
		Kind:    events.KindRecordingStopped,
		Payload: events.RecordingStoppedData{MeetingID: session.meetingID},
	})

	if endErr != nil {
		return fmt.Errorf("failed to end meeting %d: %w", session.meetingID, endErr)
	}

	// Snapshot the orchestrator while the mutex is held; Configure may swap
	// it while the summarization goroutine runs.
	go c.summarize(session.meetingID, c.orchestrator)
	return nil
}

// Status reports the current state without side effects.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return Status{}
	}
	return Status{IsRecording: true, ActiveMeetingID: c.session.meetingID}
}

// FeedAudio forwards an audio chunk to the active session's processor.
// Chunks arriving while Idle are dropped.
func (c *Controller) FeedAudio(chunk []byte, userSource bool) error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		c.logger.Debugf("audio chunk dropped: no active session")
		return nil
	}
	return session.processor.FeedAudio(chunk, userSource)
}

// RegenerateSummary re-reads a finished meeting's transcript and rewrites
// its summary. Returns the new summary, or "" for an empty transcript.
func (c *Controller) RegenerateSummary(ctx context.Context, meetingID uint64) (string, error) {
	c.mu.Lock()
	orchestrator := c.orchestrator
	c.mu.Unlock()

	if orchestrator == nil {
		return "", fmt.Errorf("no summarization backend configured")
	}

	transcript, err := c.store.GetTranscript(ctx, meetingID)
	if err != nil {
		return "", err
	}
	if len(transcript) == 0 {
		return "", nil
	}

	summary, err := orchestrator.Summarize(ctx, transcript)
	if err != nil {
		return "", err
	}
	if err := c.store.SetSummary(ctx, meetingID, summary); err != nil {
		return "", err
	}

	c.bus.Publish(events.Event{
		Kind:    events.KindSummaryReady,
		Payload: events.SummaryReadyData{MeetingID: meetingID},
	})
	return summary, nil
}

// ActionItems extracts the action items of a finished meeting's transcript.
// Returns an empty list for an empty transcript or an unusable backend
// response.
func (c *Controller) ActionItems(ctx context.Context, meetingID uint64) ([]string, error) {
	c.mu.Lock()
	orchestrator := c.orchestrator
	c.mu.Unlock()

	if orchestrator == nil {
		return nil, fmt.Errorf("no summarization backend configured")
	}

	transcript, err := c.store.GetTranscript(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	return orchestrator.ActionItems(ctx, transcript), nil
}

// summarize runs the post-stop summarization branch: best effort, off the
// state-machine path. An empty transcript skips the backend entirely and
// writes no summary. Failures leave summary null. The orchestrator is
// passed in by the caller, captured under the controller mutex, so a
// concurrent Configure cannot swap it mid-run.
func (c *Controller) summarize(meetingID uint64, orchestrator *internal_summary.Orchestrator) {
	if orchestrator == nil {
		return
	}
	ctx := context.Background()

	transcript, err := c.store.GetTranscript(ctx, meetingID)
	if err != nil {
		c.logger.Errorf("failed to load transcript for summarization: meeting=%d: %v", meetingID, err)
		return
	}
	if len(transcript) == 0 {
		c.logger.Debugf("summarization skipped: meeting=%d has no transcript", meetingID)
		return
	}

	summary, err := orchestrator.Summarize(ctx, transcript)
	if err != nil {
		c.logger.Errorf("summarization failed: meeting=%d: %v", meetingID, err)
		return
	}
	if err := c.store.SetSummary(ctx, meetingID, summary); err != nil {
		c.logger.Errorf("failed to store summary: meeting=%d: %v", meetingID, err)
		return
	}

	c.bus.Publish(events.Event{
		Kind:    events.KindSummaryReady,
		Payload: events.SummaryReadyData{MeetingID: meetingID},
	})
}
