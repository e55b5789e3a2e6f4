// Copyright (c) 2025 Rootsline Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// PALETTE
// =============================================================================

// Green - Primary accent, provider names, success states
var Green = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}

// Gold - Brand color, header, voice names
var Gold = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}

// Rose - Errors and fallback responses
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// TextPrimary - Main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}

// TextMuted - Routing metadata, timestamps, hints
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// Overlay - Borders and separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

// =============================================================================
// THEME
// =============================================================================

// Theme holds the styled components for the chat client.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	Header    lipgloss.Style
	UserLabel lipgloss.Style
	BotLabel  lipgloss.Style
	Meta      lipgloss.Style
	ErrorText lipgloss.Style
	InputBox  lipgloss.Style
	StatusBar lipgloss.Style
	Spinner   lipgloss.Style
	HelpKey   lipgloss.Style
	HelpDesc  lipgloss.Style
	Separator lipgloss.Style
}

// NewTheme creates a theme with all styles configured.
func NewTheme() *Theme {
	colorProfile := termenv.ColorProfile()

	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}

	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Gold).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Green).
		Padding(0, 2)

	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Gold)

	t.BotLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Green)

	t.Meta = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.ErrorText = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.InputBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Gold)

	t.HelpKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(Green)

	t.HelpDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Separator = lipgloss.NewStyle().
		Foreground(Overlay)

	return t
}
