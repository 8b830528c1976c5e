// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_detector

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rapidaai/meetscribe/pkg/commons"
)

// Window is one visible window reported by the activity probe.
type Window struct {
	ProcessName string
	Title       string
}

// ActivityProbe reports what is currently on screen. ListWindows is the
// precise primary query; ListProcesses is the cheaper fallback used when
// window enumeration fails (for example when accessibility permission is
// missing). Both may fail with recoverable errors.
type ActivityProbe interface {
	ListWindows(ctx context.Context) ([]Window, error)
	ListProcesses(ctx context.Context) ([]string, error)
}

const windowListScript = `
tell application "System Events"
	set appList to ""
	repeat with proc in (every process whose background only is false)
		set procName to name of proc
		try
			repeat with win in (every window of proc)
				set winTitle to name of win
				set appList to appList & procName & "|" & winTitle & "\n"
			end repeat
		end try
	end repeat
	return appList
end tell
`

type darwinProbe struct {
	logger commons.Logger
}

// NewDarwinProbe returns the macOS activity probe: System Events window
// enumeration via osascript, with a ps-based process listing as fallback.
func NewDarwinProbe(logger commons.Logger) ActivityProbe {
	return &darwinProbe{logger: logger}
}

func (p *darwinProbe) ListWindows(ctx context.Context) ([]Window, error) {
	out, err := exec.CommandContext(ctx, "osascript", "-e", windowListScript).Output()
	if err != nil {
		return nil, fmt.Errorf("osascript window enumeration failed: %w", err)
	}

	var windows []Window
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		parts := strings.SplitN(line, "|", 2)
		if len(parts) != 2 {
			continue
		}
		windows = append(windows, Window{
			ProcessName: strings.TrimSpace(parts[0]),
			Title:       strings.TrimSpace(parts[1]),
		})
	}
	return windows, nil
}

func (p *darwinProbe) ListProcesses(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, "ps", "-axo", "comm=").Output()
	if err != nil {
		return nil, fmt.Errorf("process listing failed: %w", err)
	}

	var names []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
