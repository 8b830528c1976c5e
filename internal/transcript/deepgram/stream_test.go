// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_transcript_deepgram

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/meetscribe/pkg/commons"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(
		commons.Name("test-deepgram"),
		commons.Level("error"),
	)
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return logger
}

// --- Connection parameters ---

func TestConnectionString_SessionDefaults(t *testing.T) {
	raw := Options{}.withDefaults().connectionString()
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(raw, listenEndpoint+"?"))
	query := parsed.Query()
	assert.Equal(t, "nova-2", query.Get("model"))
	assert.Equal(t, "en", query.Get("language"))
	assert.Equal(t, "linear16", query.Get("encoding"))
	assert.Equal(t, "16000", query.Get("sample_rate"))
	assert.Equal(t, "1", query.Get("channels"))
	assert.Equal(t, "1000", query.Get("utterance_end_ms"))

	// The processor depends on these; they are not configurable.
	assert.Equal(t, "true", query.Get("diarize"))
	assert.Equal(t, "true", query.Get("interim_results"))
	assert.Equal(t, "true", query.Get("vad_events"))
}

func TestConnectionString_CustomOptions(t *testing.T) {
	raw := Options{Model: "nova-3", Language: "de", SampleRate: 48000, UtteranceEndMs: 2000}.
		withDefaults().connectionString()
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	query := parsed.Query()
	assert.Equal(t, "nova-3", query.Get("model"))
	assert.Equal(t, "de", query.Get("language"))
	assert.Equal(t, "48000", query.Get("sample_rate"))
	assert.Equal(t, "2000", query.Get("utterance_end_ms"))
}

func TestNewFactory_RejectsEmptyKey(t *testing.T) {
	_, err := NewFactory(newTestLogger(t), "", Options{})
	assert.Error(t, err)
}

// --- Result decoding ---

func TestResultMessage_DecodesDiarizedTranscript(t *testing.T) {
	payload := `{
		"type": "Results",
		"is_final": true,
		"channel": {
			"alternatives": [{
				"transcript": "hello there",
				"confidence": 0.97,
				"words": [
					{"word": "hello", "speaker": 1},
					{"word": "there", "speaker": 1}
				]
			}]
		}
	}`

	var msg resultMessage
	require.NoError(t, json.Unmarshal([]byte(payload), &msg))

	assert.Equal(t, "Results", msg.Type)
	assert.True(t, msg.IsFinal)
	require.Len(t, msg.Channel.Alternatives, 1)
	alt := msg.Channel.Alternatives[0]
	assert.Equal(t, "hello there", alt.Transcript)
	assert.Equal(t, 0.97, alt.Confidence)
	require.NotNil(t, alt.Words[0].Speaker)
	assert.Equal(t, 1, *alt.Words[0].Speaker)
}

func TestResultMessage_MissingSpeakerStaysNil(t *testing.T) {
	payload := `{
		"type": "Results",
		"is_final": false,
		"channel": {
			"alternatives": [{
				"transcript": "partial",
				"confidence": 0.5,
				"words": [{"word": "partial"}]
			}]
		}
	}`

	var msg resultMessage
	require.NoError(t, json.Unmarshal([]byte(payload), &msg))
	assert.Nil(t, msg.Channel.Alternatives[0].Words[0].Speaker)
}
