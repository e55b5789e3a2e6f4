// Copyright (c) 2025 Rootsline Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/rootsline/irie/internal/orchestrator"
	"github.com/rootsline/irie/internal/registry"
	"github.com/rootsline/irie/internal/router"
)

// =============================================================================
// MESSAGES
// =============================================================================

// envelopeMsg carries a completed routing result back into the update loop.
type envelopeMsg struct {
	query    string
	envelope orchestrator.Envelope
}

// =============================================================================
// MODEL
// =============================================================================

// chatModel is the bubbletea model for the interactive chat client.
type chatModel struct {
	theme  *Theme
	engine *orchestrator.Engine
	userID string

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model
	renderer *glamour.TermRenderer

	transcript []string
	waiting    bool
	ready      bool
	width      int
	height     int

	lastProvider registry.ProviderKey
	lastVoice    string
	queryCount   int
}

func newChatModel(engine *orchestrator.Engine, userID string) chatModel {
	theme := NewTheme()

	ti := textinput.New()
	ti.Placeholder = "Ask anything..."
	ti.CharLimit = 4000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	return chatModel{
		theme:  theme,
		engine: engine,
		userID: userID,
		input:  ti,
		spin:   sp,
	}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

// =============================================================================
// UPDATE
// =============================================================================

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			return m.submitInput()
		}

	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil

	case envelopeMsg:
		return m.handleEnvelope(msg)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m chatModel) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	headerHeight := 3
	footerHeight := 5
	vpHeight := msg.Height - headerHeight - footerHeight
	if vpHeight < 3 {
		vpHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
	}
	m.input.Width = msg.Width - 6

	// Rebuild the markdown renderer at the new width. Responses render
	// as plain text if glamour fails to initialize.
	wrap := msg.Width - 4
	if wrap > 100 {
		wrap = 100
	}
	if wrap > 10 {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
		if err == nil {
			m.renderer = renderer
		}
	}

	m.refreshViewport()
	return m, nil
}

// submitInput sends the typed query through the routing engine.
func (m chatModel) submitInput() (tea.Model, tea.Cmd) {
	if m.waiting {
		return m, nil
	}
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		return m, nil
	}
	m.input.Reset()

	m.transcript = append(m.transcript,
		m.theme.UserLabel.Render("you")+"  "+query)
	m.refreshViewport()
	m.viewport.GotoBottom()

	m.waiting = true
	engine := m.engine
	userID := m.userID
	routeCmd := func() tea.Msg {
		env := engine.RouteQuery(context.Background(), query, router.Context{}, userID)
		return envelopeMsg{query: query, envelope: env}
	}
	return m, tea.Batch(routeCmd, m.spin.Tick)
}

// handleEnvelope appends a completed response to the transcript.
func (m chatModel) handleEnvelope(msg envelopeMsg) (tea.Model, tea.Cmd) {
	m.waiting = false
	m.queryCount++

	env := msg.envelope
	m.lastProvider = env.SelectedModel
	if env.VoiceModel != nil {
		m.lastVoice = env.VoiceModel.Name
	} else {
		m.lastVoice = ""
	}

	label := m.theme.BotLabel.Render(string(env.SelectedModel))
	body := m.renderMarkdown(env.Text)

	block := label + "\n" + body + "\n" + m.metaLine(env)
	m.transcript = append(m.transcript, block)
	m.refreshViewport()
	m.viewport.GotoBottom()

	m.input.Focus()
	return m, textinput.Blink
}

// metaLine formats the routing metadata shown under each response.
func (m chatModel) metaLine(env orchestrator.Envelope) string {
	parts := []string{
		fmt.Sprintf("%.1fs", env.ProcessingTime),
		fmt.Sprintf("confidence %.0f%%", env.Confidence*100),
	}
	if env.VoiceModel != nil {
		parts = append(parts, "voice "+env.VoiceModel.Name)
	}
	line := m.theme.Meta.Render(strings.Join(parts, " | "))
	if env.Error != "" {
		line += "\n" + m.theme.ErrorText.Render("fallback: "+env.Error)
	}
	return line
}

func (m *chatModel) renderMarkdown(content string) string {
	if m.renderer == nil {
		return content
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

func (m *chatModel) refreshViewport() {
	if !m.ready {
		return
	}
	sep := "\n" + m.theme.Separator.Render(strings.Repeat("─", min(m.width, 60))) + "\n"
	m.viewport.SetContent(strings.Join(m.transcript, sep))
}

// =============================================================================
// VIEW
// =============================================================================

func (m chatModel) View() string {
	if !m.ready {
		return "loading..."
	}

	header := m.theme.Header.Render("irie chat")

	var status string
	switch {
	case m.waiting:
		status = m.spin.View() + " " + m.theme.StatusBar.Render("routing...")
	case m.lastProvider != "" && m.lastVoice != "":
		status = m.theme.StatusBar.Render(fmt.Sprintf(
			"last: %s voiced by %s | queries: %d", m.lastProvider, m.lastVoice, m.queryCount))
	case m.lastProvider != "":
		status = m.theme.StatusBar.Render(fmt.Sprintf(
			"last: %s | queries: %d", m.lastProvider, m.queryCount))
	default:
		status = m.theme.StatusBar.Render("six providers ready")
	}

	help := m.theme.HelpKey.Render("enter") + m.theme.HelpDesc.Render(" send  ") +
		m.theme.HelpKey.Render("esc") + m.theme.HelpDesc.Render(" quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		status,
		m.theme.InputBox.Render(m.input.View()),
		help,
	)
}
