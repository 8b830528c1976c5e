// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transcript

import "context"

// RecognitionEvent is one recognition result from the provider stream.
// Interim events are revisions of an in-flight utterance; final events are
// settled and are the only ones that become durable segments.
type RecognitionEvent struct {
	Text    string
	IsFinal bool

	// SpeakerIndex is the provider diarization index, nil when the provider
	// did not diarize this result. Index 0 is the primary speaker.
	SpeakerIndex *int

	// Confidence is the provider-reported confidence, nil when unreported.
	Confidence *float64
}

// Stream is one live transcription connection. It accepts raw audio and
// produces a finite sequence of recognition events. A stream is not
// restartable: once Close is called (or the connection drops) the events
// channel is closed and a fresh session needs a fresh stream.
type Stream interface {
	// Send forwards one audio chunk to the provider.
	Send(chunk []byte) error

	// Events yields recognition events in provider arrival order. The
	// channel closes when the stream ends.
	Events() <-chan RecognitionEvent

	// Close finalizes the stream. Idempotent.
	Close() error
}

// StreamFactory opens a new provider stream for a recording session.
// Returns an error when no transcription backend is configured or the
// connection cannot be established.
type StreamFactory interface {
	Open(ctx context.Context) (Stream, error)
}
