// Package chat implements the terminal chat widget. The model renders the
// transcript through glamour, hosts the active UI widget declared by the
// latest assistant turn, and dispatches every interaction through the
// conversation controller.
package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"mayachat/cmd/mayachat/ui"
	"mayachat/internal/chatclient"
	"mayachat/internal/conversation"
	"mayachat/internal/transcript"
)

// Model is the bubbletea model for the chat session.
type Model struct {
	ctrl   *conversation.Controller
	client *chatclient.Client
	log    *zap.Logger
	styles ui.Styles

	viewport viewport.Model
	askInput textinput.Model
	spin     spinner.Model
	renderer *glamour.TermRenderer

	resize *ui.ResizeDebouncer
	send   func(tea.Msg)

	// widget derived from the latest assistant turn
	widget       *widget
	widgetTurnID string

	focusAsk bool
	pageSize int
	width    int
	height   int
	ready    bool
	status   string
	quitting bool
}

// New builds the chat model. The controller must be freshly constructed; the
// model issues the opening round trip from Init.
func New(ctrl *conversation.Controller, client *chatclient.Client, theme ui.Theme, logger *zap.Logger) *Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	styles := ui.NewStyles(theme)

	ask := textinput.New()
	ask.Placeholder = "Ask Maya anything..."
	ask.CharLimit = 512
	ask.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return &Model{
		ctrl:     ctrl,
		client:   client,
		log:      logger,
		styles:   styles,
		askInput: ask,
		spin:     sp,
		resize:   ui.NewResizeDebouncer(ui.DefaultResizeDuration),
	}
}

// SetSend wires the program's message injector so timer callbacks can reach
// the Update loop. Call it after tea.NewProgram.
func (m *Model) SetSend(send func(tea.Msg)) {
	m.send = send
}

// SetPageSize sets the property-cards page width. Zero keeps the default.
func (m *Model) SetPageSize(n int) {
	m.pageSize = n
}

// Init opens the session.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.openCmd())
}

// lastAssistantTurn returns the newest assistant turn, if any.
func (m *Model) lastAssistantTurn() (transcript.Turn, bool) {
	turns := m.ctrl.Transcript().All()
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == transcript.RoleAssistant {
			return turns[i], true
		}
	}
	return transcript.Turn{}, false
}

// refreshWidget rebuilds the active widget when the latest assistant turn
// changed. Returns the load command for widgets that fetch data.
func (m *Model) refreshWidget() tea.Cmd {
	turn, ok := m.lastAssistantTurn()
	if !ok {
		m.widget = nil
		m.widgetTurnID = ""
		return nil
	}
	if turn.ID == m.widgetTurnID {
		return nil
	}
	m.widgetTurnID = turn.ID
	m.widget = newWidget(turn.Component, m.client, m.ctrl.SessionID(), m.log)
	if m.widget != nil && m.widget.kind == widgetPropertyCards {
		m.widget.browser.SetPageSize(m.pageSize)
		return m.loadCardsCmd(m.widget.browser)
	}
	return nil
}
