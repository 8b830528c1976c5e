// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package events

import (
	"sync"

	"github.com/google/uuid"
)

// Kind identifies the type of an event and what payload to expect.
type Kind string

const (
	// Detection events (MeetingActivityMonitor -> shell/controller)
	KindMeetingStarted Kind = "meeting.started" // Payload: MeetingStartedData
	KindMeetingEnded   Kind = "meeting.ended"   // Payload: nil

	// Recording lifecycle events (RecordingSessionController -> shell)
	KindRecordingStarted Kind = "recording.started" // Payload: RecordingStartedData
	KindRecordingStopped Kind = "recording.stopped" // Payload: RecordingStoppedData

	// Transcript events (TranscriptStreamProcessor -> shell)
	KindTranscriptSegment    Kind = "transcript.segment"    // Payload: TranscriptSegmentData
	KindTranscriptionReady   Kind = "transcription.ready"   // Payload: nil
	KindTranscriptionStopped Kind = "transcription.stopped" // Payload: nil

	// Summarization events (SummaryOrchestrator completion -> shell)
	KindSummaryReady Kind = "summary.ready" // Payload: SummaryReadyData
)

// Event is a single published notification.
type Event struct {
	Kind    Kind        `json:"kind"`
	Payload interface{} `json:"payload,omitempty"`
}

// MeetingStartedData carries the detected meeting application name.
type MeetingStartedData struct {
	AppName string `json:"appName"`
}

// RecordingStartedData identifies a freshly created recording session.
type RecordingStartedData struct {
	MeetingID uint64 `json:"meetingId"`
	Title     string `json:"title"`
}

// RecordingStoppedData identifies the session that just ended.
type RecordingStoppedData struct {
	MeetingID uint64 `json:"meetingId"`
}

// TranscriptSegmentData carries one recognized segment. ID is zero for
// interim results; a non-zero ID marks a persisted final segment. Repeated
// interim deliveries replace the prior interim display, they do not append.
type TranscriptSegmentData struct {
	ID          uint64  `json:"id,omitempty"`
	MeetingID   uint64  `json:"meetingId"`
	Speaker     string  `json:"speaker"`
	Text        string  `json:"text"`
	TimestampMs int64   `json:"timestampMs"`
	IsUser      bool    `json:"isUser"`
	Confidence  float64 `json:"confidence"`
	Final       bool    `json:"final"`
}

// SummaryReadyData signals that an asynchronous summary landed for a meeting.
type SummaryReadyData struct {
	MeetingID uint64 `json:"meetingId"`
}

// Handler receives published events for one kind.
type Handler func(Event)

// Subscription identifies a registered handler so it can be removed.
type Subscription struct {
	id   string
	kind Kind
}

// Bus is a synchronous typed publish/subscribe hub. Handlers run on the
// publisher's goroutine in subscription order; a handler must not block.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]subscriber
}

type subscriber struct {
	id      string
	handler Handler
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[Kind][]subscriber),
	}
}

// Subscribe registers a handler for one event kind and returns the
// subscription token used to unsubscribe.
func (b *Bus) Subscribe(kind Kind, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	b.handlers[kind] = append(b.handlers[kind], subscriber{id: id, handler: handler})
	return Subscription{id: id, kind: kind}
}

// Unsubscribe removes a previously registered handler. Unknown
// subscriptions are ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[sub.kind]
	for i, s := range subs {
		if s.id == sub.id {
			b.handlers[sub.kind] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers the event to every handler subscribed to its kind.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := b.handlers[event.Kind]
	// Copy so handlers may subscribe/unsubscribe while publishing.
	snapshot := make([]subscriber, len(subs))
	copy(snapshot, subs)
	b.mu.RUnlock()

	for _, s := range snapshot {
		s.handler(event)
	}
}
