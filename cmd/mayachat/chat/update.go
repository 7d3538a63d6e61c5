package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"mayachat/cmd/mayachat/ui"
	"mayachat/internal/conversation"
	"mayachat/internal/transcript"
)

// ThemeChangedMsg switches the color theme at runtime. Sent when the config
// file's theme setting changes while a session is open.
type ThemeChangedMsg struct {
	Theme ui.Theme
}

// Update is the bubbletea message loop.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case ThemeChangedMsg:
		m.styles = ui.NewStyles(msg.Theme)
		m.spin.Style = m.styles.Spinner
		m.syncViewport(false)
		return m, nil

	case rerenderMsg:
		m.rebuildRenderer(msg.width)
		m.syncViewport(true)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case turnDoneMsg:
		return m.handleTurnDone(msg)

	case cardsLoadedMsg:
		if m.widget != nil && m.widget.kind == widgetPropertyCards {
			m.widget.cardsLoading = false
			m.widget.cardsFailed = msg.err != nil
			if m.widget.cardIdx >= len(m.widget.browser.Listings()) {
				m.widget.cardIdx = 0
			}
		}
		if msg.err != nil {
			m.log.Warn("property load failed", zap.Error(msg.err))
		}
		return m, nil

	case cardActionMsg:
		if msg.err != nil {
			m.status = "Request failed. Please try again."
			m.log.Warn("property action failed", zap.Error(msg.err))
			return m, nil
		}
		m.status = ""
		// The acknowledgement is informational; it does not replace the
		// active widget, so append without rebuilding.
		m.ctrl.Transcript().Append(transcript.RoleAssistant, msg.resp.Message, nil)
		m.syncViewport(true)
		return m, nil
	}
	return m, nil
}

func (m *Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	headerHeight := 2
	footerHeight := m.footerHeight()
	vpHeight := msg.Height - headerHeight - footerHeight
	if vpHeight < 3 {
		vpHeight = 3
	}

	if !m.ready {
		m.viewport = viewportNew(msg.Width, vpHeight)
		m.rebuildRenderer(msg.Width)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
	}
	m.syncViewport(false)

	// Re-wrapping markdown is expensive; let the resize burst settle first.
	m.resize.Resize(msg.Width, msg.Height, func(w, _ int) {
		if m.send != nil {
			m.send(rerenderMsg{width: w})
		}
	})
	return m, nil
}

func (m *Model) handleTurnDone(msg turnDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		switch {
		case errors.Is(msg.err, conversation.ErrBusy):
			// Inputs stay disabled while loading, so this is a race with
			// a queued keypress. Drop it.
		case errors.Is(msg.err, conversation.ErrEnded):
			m.status = "This session has ended. Press ctrl+c to exit."
		default:
			m.log.Warn("interaction rejected", zap.Error(msg.err))
		}
		return m, nil
	}
	m.status = ""
	cmd := m.refreshWidget()
	m.syncViewport(true)
	if m.ctrl.Phase() == conversation.PhaseEnded {
		m.widget = nil
	}
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		m.resize.Cancel()
		return m, tea.Quit

	case "ctrl+d":
		if m.ctrl.Phase() == conversation.PhaseIdle {
			return m, m.endCmd()
		}
		return m, nil

	case "ctrl+b":
		if m.ctrl.ShowMenu() && m.ctrl.Phase() == conversation.PhaseIdle {
			return m, m.menuCmd()
		}
		return m, nil

	case "tab":
		// Tab cycles lead-form fields; everywhere else it toggles the ask
		// prompt.
		if !m.focusAsk && m.widget != nil && m.widget.kind == widgetLeadForm {
			break
		}
		m.toggleAskFocus()
		return m, nil

	case "esc":
		if m.focusAsk {
			m.toggleAskFocus()
			return m, nil
		}

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.ctrl.Loading() || m.ctrl.Phase() == conversation.PhaseEnded {
		return m, nil
	}

	if m.focusAsk {
		return m.handleAskKey(msg)
	}
	if m.widget == nil {
		return m, nil
	}

	action, cmd := m.widget.handleKey(msg)
	if dispatch := m.dispatch(action); dispatch != nil {
		return m, dispatch
	}
	return m, cmd
}

func (m *Model) toggleAskFocus() {
	m.focusAsk = !m.focusAsk
	if m.focusAsk {
		m.askInput.Focus()
	} else {
		m.askInput.Blur()
	}
}

func (m *Model) handleAskKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" {
		question := strings.TrimSpace(m.askInput.Value())
		if question == "" {
			return m, nil
		}
		m.askInput.Reset()
		m.toggleAskFocus()
		return m, m.askCmd(question)
	}
	var cmd tea.Cmd
	m.askInput, cmd = m.askInput.Update(msg)
	return m, cmd
}

// dispatch converts a completed widget action into its controller command.
func (m *Model) dispatch(action widgetAction) tea.Cmd {
	switch action.kind {
	case actionSelectCategory:
		return m.selectCategoryCmd(action.category)
	case actionSubmitLead:
		return m.submitLeadCmd(action.name, action.email, action.phone)
	case actionSubmitInput:
		return m.submitCmd(action.input, action.echo)
	case actionGoToMenu:
		return m.menuCmd()
	case actionEndChat:
		return m.endCmd()
	case actionPropertyAction:
		return m.cardActionCmd(m.widget.browser, action.listing, action.doQuote)
	case actionShowMore:
		m.widget.cardsLoading = true
		return m.showMoreCmd(m.widget.browser)
	}
	return nil
}
