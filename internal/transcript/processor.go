// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transcript

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	internal_entity "github.com/rapidaai/meetscribe/internal/entity"
	internal_store "github.com/rapidaai/meetscribe/internal/store"
	"github.com/rapidaai/meetscribe/pkg/commons"
	"github.com/rapidaai/meetscribe/pkg/events"
)

// Processor reconciles the raw recognition event sequence of one session
// into speaker-labeled transcript segments. Final events with text are
// persisted in arrival order and published with their assigned identity;
// interim events are published without identity for live display and never
// touch the store. Empty events are dropped.
type Processor struct {
	logger    commons.Logger
	store     internal_store.Store
	bus       *events.Bus
	stream    Stream
	meetingID uint64
	start     time.Time

	mu         sync.Mutex
	closed     bool
	userSource bool // most recent audio source hint

	loopDone chan struct{}

	// clock is injectable for testing; defaults to time.Now.
	clock func() time.Time
}

// NewProcessor binds a processor to a meeting and its session clock anchor
// and starts consuming the stream.
func NewProcessor(
	logger commons.Logger,
	store internal_store.Store,
	bus *events.Bus,
	stream Stream,
	meetingID uint64,
	start time.Time,
) *Processor {
	p := &Processor{
		logger:    logger,
		store:     store,
		bus:       bus,
		stream:    stream,
		meetingID: meetingID,
		start:     start,
		loopDone:  make(chan struct{}),
		clock:     time.Now,
	}

	go p.consume()
	return p
}

func (p *Processor) consume() {
	defer close(p.loopDone)
	for event := range p.stream.Events() {
		if err := p.handle(event); err != nil {
			// Persistence failures surface here; the event is dropped, the
			// stream keeps going.
			p.logger.Errorf("transcript event dropped: meeting=%d: %v", p.meetingID, err)
		}
	}
}

// FeedAudio forwards one audio chunk to the provider and records the
// source flag as the latest speaker-attribution hint. The hint is a
// best-effort overlay on top of provider diarization, not a replacement.
func (p *Processor) FeedAudio(chunk []byte, userSource bool) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.userSource = userSource
	p.mu.Unlock()

	if err := p.stream.Send(chunk); err != nil {
		return fmt.Errorf("failed to forward audio chunk: %w", err)
	}
	return nil
}

// handle processes one recognition event per the reconciliation rules.
func (p *Processor) handle(event RecognitionEvent) error {
	text := strings.TrimSpace(event.Text)
	if text == "" {
		return nil
	}

	p.mu.Lock()
	if p.closed {
		// Events racing the close call: no persistence, no notification.
		p.mu.Unlock()
		return nil
	}
	userSource := p.userSource
	p.mu.Unlock()

	timestampMs := p.clock().Sub(p.start).Milliseconds()

	speakerIndex := 0
	if event.SpeakerIndex != nil {
		speakerIndex = *event.SpeakerIndex
	}

	// Either signal marks user speech: diarization index 0 (primary
	// speaker) or a local-microphone source hint. When the two disagree the
	// user-positive signal wins.
	isUser := speakerIndex == 0 || userSource

	speaker := "You"
	if !isUser {
		speaker = fmt.Sprintf("Speaker %d", speakerIndex+1)
	}

	confidence := 1.0
	if event.Confidence != nil {
		confidence = *event.Confidence
	}

	if !event.IsFinal {
		p.bus.Publish(events.Event{
			Kind: events.KindTranscriptSegment,
			Payload: events.TranscriptSegmentData{
				MeetingID:   p.meetingID,
				Speaker:     speaker,
				Text:        text,
				TimestampMs: timestampMs,
				IsUser:      isUser,
				Confidence:  confidence,
				Final:       false,
			},
		})
		return nil
	}

	segment := &internal_entity.TranscriptSegment{
		MeetingId:   p.meetingID,
		Speaker:     speaker,
		Text:        text,
		TimestampMs: timestampMs,
		IsUser:      isUser,
		Confidence:  confidence,
	}

	id, err := p.store.InsertSegment(context.Background(), segment)
	if err != nil {
		return err
	}

	p.bus.Publish(events.Event{
		Kind: events.KindTranscriptSegment,
		Payload: events.TranscriptSegmentData{
			ID:          id,
			MeetingID:   p.meetingID,
			Speaker:     speaker,
			Text:        text,
			TimestampMs: timestampMs,
			IsUser:      isUser,
			Confidence:  confidence,
			Final:       true,
		},
	})
	return nil
}

// Close finalizes the underlying stream and stops all persistence and
// notification. Idempotent. Events still in flight when Close is called
// are dropped, not queued; stop does not wait for the provider to drain.
func (p *Processor) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	err := p.stream.Close()
	<-p.loopDone
	return err
}
