// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/rapidaai/meetscribe/pkg/commons"
)

const defaultAnthropicModel = "claude-sonnet-4-20250514"

type anthropicBackend struct {
	logger commons.Logger
	client anthropic.Client
	model  string
}

// NewAnthropicBackend creates a summarization backend over the Anthropic
// Messages API. An empty model selects the default.
func NewAnthropicBackend(logger commons.Logger, key, model string) (Backend, error) {
	if key == "" {
		return nil, fmt.Errorf("anthropic api key is empty")
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	return &anthropicBackend{
		logger: logger,
		client: anthropic.NewClient(option.WithAPIKey(key)),
		model:  model,
	}, nil
}

func (b *anthropicBackend) Name() string {
	return "anthropic"
}

func (b *anthropicBackend) Complete(ctx context.Context, prompt string) (string, error) {
	message, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: 2048,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic completion failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic returned no text content")
	}
	return sb.String(), nil
}
