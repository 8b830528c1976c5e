// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rapidaai/meetscribe/config"
	internal_store "github.com/rapidaai/meetscribe/internal/store"
	internal_transcript_deepgram "github.com/rapidaai/meetscribe/internal/transcript/deepgram"
	"github.com/rapidaai/meetscribe/pkg/commons"
)

// NewDoctorCmd checks the local setup: database health, transcription
// credential and summarization credential.
func NewDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check database and backend credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor()
		},
	}
}

func runDoctor() error {
	vConfig, err := config.InitConfig()
	if err != nil {
		return err
	}
	cfg, err := config.GetApplicationConfig(vConfig)
	if err != nil {
		return err
	}

	logger, err := commons.NewApplicationLogger(
		commons.Name(cfg.Name),
		commons.Level("error"), // keep doctor output readable
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	report := func(name string, err error) {
		if err != nil {
			fmt.Printf("✗ %s: %v\n", name, err)
			return
		}
		fmt.Printf("✓ %s\n", name)
	}

	store, err := internal_store.NewSqliteStore(logger, cfg.DatabasePath)
	report("database", err)

	deepgramKey := cfg.DeepgramApiKey
	summaryKeys := map[string]string{
		"anthropic": cfg.AnthropicApiKey,
		"openai":    cfg.OpenAIApiKey,
	}
	if store != nil {
		defer store.Close()
		settings, err := store.GetSettings(ctx)
		report("settings", err)
		if err == nil {
			if v := settings[settingDeepgramApiKey]; v != "" {
				deepgramKey = v
			}
			if v := settings[settingAnthropicApiKey]; v != "" {
				summaryKeys["anthropic"] = v
			}
			if v := settings[settingOpenAIApiKey]; v != "" {
				summaryKeys["openai"] = v
			}
		}
	}

	report("deepgram credential", internal_transcript_deepgram.VerifyCredential(ctx, deepgramKey))

	if summaryKeys[cfg.SummaryProvider] == "" {
		report(cfg.SummaryProvider+" credential", fmt.Errorf("no api key configured"))
	} else {
		report(cfg.SummaryProvider+" credential", nil)
	}

	return nil
}
