// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_cli

import (
	"context"
	"fmt"

	"github.com/rapidaai/meetscribe/config"
	internal_store "github.com/rapidaai/meetscribe/internal/store"
	internal_summary "github.com/rapidaai/meetscribe/internal/summary"
	internal_transcript "github.com/rapidaai/meetscribe/internal/transcript"
	internal_transcript_deepgram "github.com/rapidaai/meetscribe/internal/transcript/deepgram"
	"github.com/rapidaai/meetscribe/pkg/commons"
)

// Settings keys understood by the backend resolver. Stored settings
// override the environment config so keys entered through the UI apply
// without a restart.
const (
	settingDeepgramApiKey  = "deepgramApiKey"
	settingAnthropicApiKey = "anthropicApiKey"
	settingOpenAIApiKey    = "openaiApiKey"
	settingSummaryProvider = "summaryProvider"
	settingSummaryModel    = "summaryModel"
)

type backendSet struct {
	factory      internal_transcript.StreamFactory
	orchestrator *internal_summary.Orchestrator
}

// resolveBackends builds the transcription and summarization backends from
// config overlaid with stored settings. A missing credential leaves the
// corresponding backend nil; recording then fails fast with
// ErrStreamUnavailable, and summarization is skipped.
func resolveBackends(
	ctx context.Context,
	logger commons.Logger,
	cfg *config.AppConfig,
	store internal_store.Store,
) (*backendSet, error) {
	settings, err := store.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	pick := func(settingKey, configValue string) string {
		if v := settings[settingKey]; v != "" {
			return v
		}
		return configValue
	}

	set := &backendSet{}

	if key := pick(settingDeepgramApiKey, cfg.DeepgramApiKey); key != "" {
		factory, err := internal_transcript_deepgram.NewFactory(logger, key, internal_transcript_deepgram.Options{})
		if err != nil {
			return nil, err
		}
		set.factory = factory
	} else {
		logger.Warn("no deepgram api key configured; recording is unavailable")
	}

	provider := pick(settingSummaryProvider, cfg.SummaryProvider)
	model := pick(settingSummaryModel, cfg.SummaryModel)

	var backend internal_summary.Backend
	switch provider {
	case "openai":
		if key := pick(settingOpenAIApiKey, cfg.OpenAIApiKey); key != "" {
			backend, err = internal_summary.NewOpenAIBackend(logger, key, model)
		}
	default:
		if key := pick(settingAnthropicApiKey, cfg.AnthropicApiKey); key != "" {
			backend, err = internal_summary.NewAnthropicBackend(logger, key, model)
		}
	}
	if err != nil {
		return nil, err
	}

	if backend != nil {
		orchestrator, err := internal_summary.NewOrchestrator(logger, backend)
		if err != nil {
			return nil, err
		}
		set.orchestrator = orchestrator
	} else {
		logger.Warnf("no %s api key configured; summaries are disabled", provider)
	}

	return set, nil
}
