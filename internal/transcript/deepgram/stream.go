// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transcript_deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	internal_transcript "github.com/rapidaai/meetscribe/internal/transcript"
	"github.com/rapidaai/meetscribe/pkg/commons"
)

const (
	listenEndpoint = "wss://api.deepgram.com/v1/listen"

	// Deepgram drops idle connections; a keepalive message must go out
	// when no audio has been sent for a while.
	keepAliveInterval = 5 * time.Second

	eventBufferSize = 32
)

// Options are the live-listen parameters. Zero values select the session
// defaults used for meeting capture.
type Options struct {
	Model          string
	Language       string
	SampleRate     int
	UtteranceEndMs int
}

func (o Options) withDefaults() Options {
	if o.Model == "" {
		o.Model = "nova-2"
	}
	if o.Language == "" {
		o.Language = "en"
	}
	if o.SampleRate == 0 {
		o.SampleRate = 16000
	}
	if o.UtteranceEndMs == 0 {
		o.UtteranceEndMs = 1000
	}
	return o
}

// connectionString builds the listen URL. Diarization and interim results
// are always on: the processor depends on both.
func (o Options) connectionString() string {
	params := url.Values{}
	params.Add("model", o.Model)
	params.Add("language", o.Language)
	params.Add("smart_format", "true")
	params.Add("punctuate", "true")
	params.Add("diarize", "true")
	params.Add("interim_results", "true")
	params.Add("utterance_end_ms", fmt.Sprintf("%d", o.UtteranceEndMs))
	params.Add("vad_events", "true")
	params.Add("encoding", "linear16")
	params.Add("sample_rate", fmt.Sprintf("%d", o.SampleRate))
	params.Add("channels", "1")
	return fmt.Sprintf("%s?%s", listenEndpoint, params.Encode())
}

// Factory opens live Deepgram streams.
type Factory struct {
	logger commons.Logger
	key    string
	opts   Options
}

// NewFactory creates a stream factory for the given API key.
func NewFactory(logger commons.Logger, key string, opts Options) (*Factory, error) {
	if key == "" {
		return nil, fmt.Errorf("deepgram api key is empty")
	}
	return &Factory{logger: logger, key: key, opts: opts.withDefaults()}, nil
}

// Open dials a new live transcription connection and starts the reader.
func (f *Factory) Open(ctx context.Context) (internal_transcript.Stream, error) {
	header := http.Header{}
	header.Set("Authorization", "Token "+f.key)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, f.opts.connectionString(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("deepgram connection failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("deepgram connection failed: %w", err)
	}

	s := &stream{
		id:     uuid.New().String(),
		logger: f.logger,
		conn:   conn,
		events: make(chan internal_transcript.RecognitionEvent, eventBufferSize),
		done:   make(chan struct{}),
	}

	f.logger.Infof("deepgram stream opened: id=%s, model=%s", s.id, f.opts.Model)

	go s.readLoop()
	go s.keepAliveLoop()
	return s, nil
}

type stream struct {
	id     string
	logger commons.Logger
	conn   *websocket.Conn
	events chan internal_transcript.RecognitionEvent

	writeMu   sync.Mutex // serializes websocket writes
	closeOnce sync.Once
	done      chan struct{}
}

// resultMessage mirrors the subset of the Deepgram Results payload the
// processor needs. Word-level speaker indices carry diarization.
type resultMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
			Words      []struct {
				Word    string `json:"word"`
				Speaker *int   `json:"speaker"`
			} `json:"words"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (s *stream) Send(chunk []byte) error {
	select {
	case <-s.done:
		return fmt.Errorf("deepgram stream %s is closed", s.id)
	default:
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
		return fmt.Errorf("failed to send audio to deepgram: %w", err)
	}
	return nil
}

func (s *stream) Events() <-chan internal_transcript.RecognitionEvent {
	return s.events
}

// readLoop decodes provider messages into recognition events until the
// connection ends. A connection error marks the stream inactive and is
// logged once; there is no automatic reconnection.
func (s *stream) readLoop() {
	defer close(s.events)
	for {
		msgType, payload, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				// Expected: Close was requested.
			default:
				s.logger.Errorf("deepgram stream %s connection error: %v", s.id, err)
				s.shutdown()
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var msg resultMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logger.Warnf("deepgram stream %s: undecodable message: %v", s.id, err)
			continue
		}
		if msg.Type != "Results" || len(msg.Channel.Alternatives) == 0 {
			continue
		}

		alt := msg.Channel.Alternatives[0]
		event := internal_transcript.RecognitionEvent{
			Text:    alt.Transcript,
			IsFinal: msg.IsFinal,
		}
		if len(alt.Words) > 0 && alt.Words[0].Speaker != nil {
			event.SpeakerIndex = alt.Words[0].Speaker
		}
		if alt.Confidence > 0 {
			confidence := alt.Confidence
			event.Confidence = &confidence
		}

		select {
		case s.events <- event:
		case <-s.done:
			return
		}
	}
}

func (s *stream) keepAliveLoop() {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"KeepAlive"}`))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Close finalizes the stream: asks the provider to flush, then tears the
// connection down. Idempotent.
func (s *stream) Close() error {
	s.shutdown()
	return nil
}

func (s *stream) shutdown() {
	s.closeOnce.Do(func() {
		close(s.done)

		s.writeMu.Lock()
		// Best-effort finalize; the connection is going away either way.
		_ = s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
		s.writeMu.Unlock()

		_ = s.conn.Close()
		s.logger.Infof("deepgram stream closed: id=%s", s.id)
	})
}
