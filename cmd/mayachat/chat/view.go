package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"mayachat/internal/conversation"
	"mayachat/internal/transcript"
)

const assistantName = "Maya"

func viewportNew(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.MouseWheelEnabled = true
	return vp
}

// rebuildRenderer recreates the markdown renderer for the current width.
func (m *Model) rebuildRenderer(width int) {
	wrap := width - 4
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		m.log.Warn("markdown renderer unavailable", zap.Error(err))
		m.renderer = nil
		return
	}
	m.renderer = r
}

// safeRenderMarkdown renders markdown, falling back to plain text if the
// renderer panics on malformed input.
func (m *Model) safeRenderMarkdown(content string) (out string) {
	if m.renderer == nil {
		return content
	}
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn("markdown render panicked", zap.Any("panic", r))
			out = content
		}
	}()
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n") + "\n"
}

// syncViewport re-renders the transcript into the viewport. toBottom scrolls
// to the newest turn.
func (m *Model) syncViewport(toBottom bool) {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderHistory())
	if toBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderHistory() string {
	var b strings.Builder
	for _, turn := range m.ctrl.Transcript().All() {
		switch turn.Role {
		case transcript.RoleUser:
			b.WriteString(m.styles.UserLabel.Render("You") + "\n")
			b.WriteString(m.styles.UserBubble.Render(turn.Content) + "\n\n")
		case transcript.RoleAssistant:
			b.WriteString(m.styles.AssistantLabel.Render(assistantName) + "\n")
			b.WriteString(m.safeRenderMarkdown(turn.Content) + "\n")
		}
	}
	return b.String()
}

// View renders the full frame.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Connecting...\n"
	}

	var b strings.Builder
	b.WriteString(m.headerView() + "\n")
	b.WriteString(m.viewport.View() + "\n")
	b.WriteString(m.footerView())
	return b.String()
}

func (m *Model) headerView() string {
	title := fmt.Sprintf(" %s · Vivid Realty ", assistantName)
	return m.styles.Header.Width(m.width).Render(title)
}

// footerHeight estimates the footer's line count for viewport sizing. The
// widget pane dominates; everything else is a single line.
func (m *Model) footerHeight() int {
	h := 2 // hints + ask/status line
	if m.widget != nil {
		h += strings.Count(m.widget.view(m.styles), "\n") + 1
	}
	return h
}

func (m *Model) footerView() string {
	var b strings.Builder

	switch {
	case m.ctrl.Loading():
		b.WriteString(m.spin.View() + m.styles.Muted.Render(" Maya is typing...") + "\n")
	case m.ctrl.Phase() == conversation.PhaseEnded:
		b.WriteString(m.styles.Success.Render("Session ended.") + "\n")
	case m.widget != nil && !m.focusAsk:
		b.WriteString(m.widget.view(m.styles) + "\n")
	}

	if m.focusAsk {
		b.WriteString(m.styles.Prompt.Render("? ") + m.askInput.View() + "\n")
	}
	if m.status != "" {
		b.WriteString(m.styles.Error.Render(m.status) + "\n")
	}

	b.WriteString(m.styles.Footer.Render(m.hints()))
	return b.String()
}

func (m *Model) hints() string {
	var hints []string
	if m.focusAsk {
		hints = append(hints, "enter: ask", "esc: back")
	} else {
		hints = append(hints, "tab: ask a question")
	}
	if m.ctrl.ShowMenu() {
		hints = append(hints, "ctrl+b: menu")
	}
	hints = append(hints, "ctrl+d: end chat", "ctrl+c: quit")
	return strings.Join(hints, " · ")
}
