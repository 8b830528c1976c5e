// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the meetscribe command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "meetscribe",
		Short: "Capture, transcribe and summarize meetings",
		Long: "MeetScribe detects running meetings, records live audio streamed from the " +
			"host shell, transcribes it with speaker labels, and summarizes every session.",
	}

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewDoctorCmd())
	return rootCmd
}
