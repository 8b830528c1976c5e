// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_summary

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/rapidaai/meetscribe/pkg/commons"
)

const defaultOpenAIModel = "gpt-4o"

type openaiBackend struct {
	logger commons.Logger
	client openai.Client
	model  string
}

// NewOpenAIBackend creates a summarization backend over the OpenAI chat
// completions API. An empty model selects the default.
func NewOpenAIBackend(logger commons.Logger, key, model string) (Backend, error) {
	if key == "" {
		return nil, fmt.Errorf("openai api key is empty")
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &openaiBackend{
		logger: logger,
		client: openai.NewClient(option.WithAPIKey(key)),
		model:  model,
	}, nil
}

func (b *openaiBackend) Name() string {
	return "openai"
}

func (b *openaiBackend) Complete(ctx context.Context, prompt string) (string, error) {
	completion, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai returned no text content")
	}
	return completion.Choices[0].Message.Content, nil
}
