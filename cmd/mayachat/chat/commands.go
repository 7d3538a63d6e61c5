package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"mayachat/internal/properties"
	"mayachat/internal/protocol"
)

// turnDoneMsg signals that a controller round trip finished. The controller
// has already updated the transcript; err is only non-nil for lifecycle
// violations (busy, ended), never for network failures.
type turnDoneMsg struct {
	err error
}

// cardsLoadedMsg signals that a property browser fetch finished.
type cardsLoadedMsg struct {
	err error
}

// cardActionMsg carries the acknowledgement for a brochure or quote request.
type cardActionMsg struct {
	resp *protocol.ChatResponse
	err  error
}

// rerenderMsg asks the model to rebuild the markdown renderer after a
// debounced resize settles.
type rerenderMsg struct {
	width int
}

func (m *Model) openCmd() tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{err: m.ctrl.Open(context.Background())}
	}
}

func (m *Model) selectCategoryCmd(cat protocol.Category) tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{err: m.ctrl.SelectCategory(context.Background(), cat)}
	}
}

func (m *Model) submitLeadCmd(name, email, phone string) tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{err: m.ctrl.SubmitLead(context.Background(), name, email, phone)}
	}
}

func (m *Model) submitCmd(input protocol.Input, echo string) tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{err: m.ctrl.Submit(context.Background(), input, echo)}
	}
}

func (m *Model) menuCmd() tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{err: m.ctrl.BackToMenu(context.Background())}
	}
}

func (m *Model) askCmd(question string) tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{err: m.ctrl.Ask(context.Background(), question)}
	}
}

func (m *Model) endCmd() tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{err: m.ctrl.End(context.Background())}
	}
}

func (m *Model) loadCardsCmd(b *properties.Browser) tea.Cmd {
	return func() tea.Msg {
		return cardsLoadedMsg{err: b.Load(context.Background())}
	}
}

func (m *Model) showMoreCmd(b *properties.Browser) tea.Cmd {
	return func() tea.Msg {
		return cardsLoadedMsg{err: b.ShowMore(context.Background())}
	}
}

func (m *Model) cardActionCmd(b *properties.Browser, listing protocol.Listing, quote bool) tea.Cmd {
	return func() tea.Msg {
		var (
			resp *protocol.ChatResponse
			err  error
		)
		if quote {
			resp, err = b.Quote(context.Background(), listing)
		} else {
			resp, err = b.Brochure(context.Background(), listing)
		}
		return cardActionMsg{resp: resp, err: err}
	}
}
