// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transcript_deepgram

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

const authEndpoint = "https://api.deepgram.com/v1/auth/token"

// VerifyCredential checks an API key against the Deepgram REST API without
// opening a live stream. Used by the doctor command and settings updates.
func VerifyCredential(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("deepgram api key is empty")
	}

	resp, err := resty.New().R().
		SetContext(ctx).
		SetHeader("Authorization", "Token "+key).
		Get(authEndpoint)
	if err != nil {
		return fmt.Errorf("deepgram credential check failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("deepgram rejected credential (status %d)", resp.StatusCode())
	}
	return nil
}
