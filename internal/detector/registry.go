// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_detector

import "strings"

// MeetingApp is one registry entry. An entry matches a window when the
// process name contains one of ProcessNames AND the window title contains
// one of WindowTitles, both case-insensitive.
type MeetingApp struct {
	Name         string
	ProcessNames []string
	WindowTitles []string
}

// Registry is an ordered list of known meeting applications. The first
// matching entry wins.
type Registry []MeetingApp

// DefaultRegistry returns the built-in meeting application registry.
func DefaultRegistry() Registry {
	return Registry{
		{
			Name:         "Zoom",
			ProcessNames: []string{"zoom.us", "CptHost"},
			WindowTitles: []string{"Zoom Meeting", "Zoom Webinar"},
		},
		{
			Name:         "Google Meet",
			ProcessNames: []string{"Google Chrome", "Arc", "Safari", "Firefox", "Microsoft Edge"},
			WindowTitles: []string{"Meet -", "meet.google.com"},
		},
		{
			Name:         "Microsoft Teams",
			ProcessNames: []string{"Microsoft Teams", "Teams"},
			WindowTitles: []string{"Microsoft Teams"},
		},
		{
			Name:         "Slack Huddle",
			ProcessNames: []string{"Slack"},
			WindowTitles: []string{"Huddle"},
		},
		{
			Name:         "Discord",
			ProcessNames: []string{"Discord"},
			WindowTitles: []string{"Voice Connected"},
		},
	}
}

// Match returns the first registry entry matched by any of the given
// windows, or "" when none match.
func (r Registry) Match(windows []Window) string {
	for _, win := range windows {
		if win.ProcessName == "" || win.Title == "" {
			continue
		}
		for _, app := range r {
			if app.matchesWindow(win) {
				return app.Name
			}
		}
	}
	return ""
}

func (a MeetingApp) matchesWindow(win Window) bool {
	return containsAnyFold(win.ProcessName, a.ProcessNames) &&
		containsAnyFold(win.Title, a.WindowTitles)
}

// MatchProcesses applies the reduced process-only rules used when only a
// process listing is available. Less precise than window matching: a
// running client does not imply an active call, so only the signals that
// reliably indicate one are checked. Zoom spawns a dedicated CptHost
// process per meeting.
func (r Registry) MatchProcesses(processNames []string) string {
	joined := strings.ToLower(strings.Join(processNames, "\n"))

	if strings.Contains(joined, "zoom.us") && strings.Contains(joined, "cpthost") {
		return "Zoom"
	}
	if strings.Contains(joined, "microsoft teams") {
		return "Microsoft Teams"
	}
	return ""
}

func containsAnyFold(value string, candidates []string) bool {
	lower := strings.ToLower(value)
	for _, c := range candidates {
		if strings.Contains(lower, strings.ToLower(c)) {
			return true
		}
	}
	return false
}
