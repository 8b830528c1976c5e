// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_shell

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/rapidaai/meetscribe/pkg/events"
)

// Audio frames are binary: one source-flag byte (1 = local microphone,
// 0 = remote/system audio) followed by LINEAR16 PCM.
const (
	audioSourceUser byte = 1

	outboundBufferSize = 64
	writeTimeout       = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 * 1024,
	WriteBufferSize: 16 * 1024,
	// The shell API binds to loopback; cross-origin checks add nothing.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsEnvelope is the outbound event frame.
type wsEnvelope struct {
	Kind      events.Kind `json:"kind"`
	Timestamp int64       `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// wsCommand is an inbound text-frame control message.
type wsCommand struct {
	Type  string `json:"type"` // "start_recording" | "stop_recording"
	Title string `json:"title,omitempty"`
}

// stream upgrades the connection and bridges it both ways: bus events out
// as JSON envelopes, audio chunks and control commands in.
func (s *Server) stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Errorf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	outbound := make(chan wsEnvelope, outboundBufferSize)
	subs := s.subscribeAll(outbound)
	defer func() {
		for _, sub := range subs {
			s.bus.Unsubscribe(sub)
		}
	}()

	done := make(chan struct{})
	go s.writeLoop(conn, outbound, done)
	defer close(done)

	s.readLoop(c, conn)
}

// subscribeAll fans every bus event kind into the connection's outbound
// queue. Bus handlers must not block, so a full queue drops the event for
// this one consumer.
func (s *Server) subscribeAll(outbound chan wsEnvelope) []events.Subscription {
	kinds := []events.Kind{
		events.KindMeetingStarted,
		events.KindMeetingEnded,
		events.KindRecordingStarted,
		events.KindRecordingStopped,
		events.KindTranscriptSegment,
		events.KindTranscriptionReady,
		events.KindTranscriptionStopped,
		events.KindSummaryReady,
	}

	subs := make([]events.Subscription, 0, len(kinds))
	for _, kind := range kinds {
		subs = append(subs, s.bus.Subscribe(kind, func(event events.Event) {
			envelope := wsEnvelope{
				Kind:      event.Kind,
				Timestamp: time.Now().UnixMilli(),
				Payload:   event.Payload,
			}
			select {
			case outbound <- envelope:
			default:
				s.logger.Warnf("shell event dropped for slow websocket consumer: kind=%s", event.Kind)
			}
		}))
	}
	return subs
}

func (s *Server) writeLoop(conn *websocket.Conn, outbound <-chan wsEnvelope, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case envelope := <-outbound:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(envelope); err != nil {
				return
			}
		}
	}
}

func (s *Server) readLoop(c *gin.Context, conn *websocket.Conn) {
	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if len(payload) < 2 {
				continue
			}
			userSource := payload[0] == audioSourceUser
			if err := s.controller.FeedAudio(payload[1:], userSource); err != nil {
				s.logger.Errorf("audio chunk rejected: %v", err)
			}

		case websocket.TextMessage:
			var cmd wsCommand
			if err := json.Unmarshal(payload, &cmd); err != nil {
				s.logger.Warnf("undecodable shell command: %v", err)
				continue
			}
			s.handleCommand(c, cmd)
		}
	}
}

func (s *Server) handleCommand(c *gin.Context, cmd wsCommand) {
	switch cmd.Type {
	case "start_recording":
		if err := s.controller.Start(c.Request.Context(), cmd.Title); err != nil {
			s.logger.Errorf("start via websocket failed: %v", err)
		}
	case "stop_recording":
		if err := s.controller.Stop(c.Request.Context()); err != nil {
			s.logger.Errorf("stop via websocket failed: %v", err)
		}
	default:
		s.logger.Warnf("unknown shell command: %s", cmd.Type)
	}
}
