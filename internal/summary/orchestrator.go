// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_summary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	internal_entity "github.com/rapidaai/meetscribe/internal/entity"
	"github.com/rapidaai/meetscribe/pkg/commons"
)

// FallbackSummary is returned for an empty transcript without calling the
// backend.
const FallbackSummary = "No transcript available."

// promptTokenBudget caps the formatted transcript size. When a transcript
// exceeds it, the oldest lines are dropped first: the end of a meeting
// carries the decisions and action items.
const promptTokenBudget = 100_000

const summaryPromptTemplate = `You are an expert meeting summarizer. Analyze the following meeting transcript and provide a comprehensive summary.

TRANSCRIPT:
%s

Please provide a summary with the following sections:

## Overview
A brief 2-3 sentence overview of what the meeting was about.

## Key Discussion Points
Bullet points of the main topics discussed.

## Decisions Made
Any decisions that were reached during the meeting.

## Action Items
Tasks or follow-ups mentioned, with the responsible person if identified.

## Notable Quotes
Any particularly important or memorable statements (optional, include only if relevant).

Keep the summary concise but informative. Use clear, professional language.`

const actionItemsPromptTemplate = `Extract action items from this meeting transcript. Return ONLY a JSON array of strings, each being an action item. Include the responsible person if mentioned.

TRANSCRIPT:
%s

Return format: ["Action item 1", "Action item 2", ...]`

// Backend is the natural-language completion service used for
// summarization. Implementations may fail; the orchestrator propagates
// those failures to its caller.
type Backend interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Orchestrator formats finished transcripts and requests summaries and
// action items from the configured backend. No timeout is applied here;
// callers own deadlines via ctx.
type Orchestrator struct {
	logger  commons.Logger
	backend Backend
	encoder *tiktoken.Tiktoken
}

// NewOrchestrator wires the orchestrator to a backend. The token encoder
// is loaded eagerly so budget enforcement never fails mid-session.
func NewOrchestrator(logger commons.Logger, backend Backend) (*Orchestrator, error) {
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load token encoder: %w", err)
	}
	return &Orchestrator{
		logger:  logger,
		backend: backend,
		encoder: encoder,
	}, nil
}

// Summarize produces a structured summary of the transcript. An empty
// transcript short-circuits to FallbackSummary without a backend call.
// Backend failures propagate; the caller decides to log-and-ignore.
func (o *Orchestrator) Summarize(ctx context.Context, transcript []internal_entity.TranscriptSegment) (string, error) {
	if len(transcript) == 0 {
		return FallbackSummary, nil
	}

	lines := make([]string, len(transcript))
	for i, segment := range transcript {
		lines[i] = fmt.Sprintf("[%s] %s: %s", formatTimestamp(segment.TimestampMs), segment.Speaker, segment.Text)
	}
	formatted := o.fitToBudget(lines)

	prompt := fmt.Sprintf(summaryPromptTemplate, formatted)
	summary, err := o.backend.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("summarization via %s failed: %w", o.backend.Name(), err)
	}

	o.logger.Infof("summary generated: backend=%s, segments=%d, length=%d",
		o.backend.Name(), len(transcript), len(summary))
	return summary, nil
}

// ActionItems extracts a list of action-item strings via a separate
// backend request with a strict output contract. Backend failures and
// malformed responses both yield an empty list, never an error.
func (o *Orchestrator) ActionItems(ctx context.Context, transcript []internal_entity.TranscriptSegment) []string {
	if len(transcript) == 0 {
		return nil
	}

	lines := make([]string, len(transcript))
	for i, segment := range transcript {
		lines[i] = fmt.Sprintf("%s: %s", segment.Speaker, segment.Text)
	}
	formatted := o.fitToBudget(lines)

	prompt := fmt.Sprintf(actionItemsPromptTemplate, formatted)
	response, err := o.backend.Complete(ctx, prompt)
	if err != nil {
		o.logger.Errorf("action item extraction via %s failed: %v", o.backend.Name(), err)
		return nil
	}

	var items []string
	if err := json.Unmarshal([]byte(stripCodeFence(response)), &items); err != nil {
		o.logger.Warnf("action item response not a JSON string array, dropping: %v", err)
		return nil
	}
	return items
}

// fitToBudget joins transcript lines, dropping the oldest while the token
// count exceeds the prompt budget.
func (o *Orchestrator) fitToBudget(lines []string) string {
	for len(lines) > 1 {
		joined := strings.Join(lines, "\n")
		if len(o.encoder.Encode(joined, nil, nil)) <= promptTokenBudget {
			return joined
		}
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}

func formatTimestamp(timestampMs int64) string {
	minutes := timestampMs / 60_000
	seconds := (timestampMs % 60_000) / 1000
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// stripCodeFence unwraps a markdown-fenced response so the JSON contract
// survives models that decorate their output.
func stripCodeFence(response string) string {
	trimmed := strings.TrimSpace(response)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
