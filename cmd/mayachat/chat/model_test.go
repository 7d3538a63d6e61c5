package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mayachat/cmd/mayachat/ui"
	"mayachat/internal/conversation"
	"mayachat/internal/protocol"
	"mayachat/internal/transcript"
)

// scriptedService replays canned responses, newest first.
type scriptedService struct {
	responses []*protocol.ChatResponse
}

func (s *scriptedService) next() *protocol.ChatResponse {
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp
}

func (s *scriptedService) Init(ctx context.Context) (*protocol.ChatResponse, error) {
	return s.next(), nil
}

func (s *scriptedService) SelectCategory(ctx context.Context, sessionID, category string) (*protocol.ChatResponse, error) {
	return s.next(), nil
}

func (s *scriptedService) SubmitLead(ctx context.Context, req protocol.SubmitLeadRequest) (*protocol.ChatResponse, error) {
	return s.next(), nil
}

func (s *scriptedService) SendInput(ctx context.Context, sessionID, currentState string, input protocol.Input) (*protocol.ChatResponse, error) {
	return s.next(), nil
}

func (s *scriptedService) BackToMenu(ctx context.Context, sessionID string) (*protocol.ChatResponse, error) {
	return s.next(), nil
}

func (s *scriptedService) Ask(ctx context.Context, sessionID, question string) (*protocol.ChatResponse, error) {
	return s.next(), nil
}

func (s *scriptedService) End(ctx context.Context, sessionID string) (*protocol.EndResponse, error) {
	return &protocol.EndResponse{Message: "Bye!", SessionEnded: true}, nil
}

func newTestModel(t *testing.T, svc conversation.Service) *Model {
	t.Helper()
	ctrl := conversation.New(svc, transcript.New(nil), zap.NewNop(), nil)
	return New(ctrl, nil, ui.DarkTheme(), zap.NewNop())
}

func TestOpeningResponseActivatesCategoryWidget(t *testing.T) {
	svc := &scriptedService{responses: []*protocol.ChatResponse{{
		SessionID:    "sess-1",
		Message:      "Welcome to Vivid Realty!",
		CurrentState: "greeting",
		UIComponent:  testCategories(),
	}}}
	m := newTestModel(t, svc)

	require.NoError(t, m.ctrl.Open(context.Background()))
	m.handleTurnDone(turnDoneMsg{})

	require.NotNil(t, m.widget)
	assert.Equal(t, widgetCategories, m.widget.kind)
}

func TestWidgetOnlyRebuildsOnNewAssistantTurn(t *testing.T) {
	svc := &scriptedService{responses: []*protocol.ChatResponse{{
		SessionID:   "sess-1",
		Message:     "Welcome!",
		UIComponent: testCategories(),
	}}}
	m := newTestModel(t, svc)
	require.NoError(t, m.ctrl.Open(context.Background()))
	m.handleTurnDone(turnDoneMsg{})

	first := m.widget
	first.cursor = 2
	m.handleTurnDone(turnDoneMsg{})
	assert.Same(t, first, m.widget, "cursor state survives unrelated refreshes")
}

func TestEndedSessionClearsWidget(t *testing.T) {
	svc := &scriptedService{responses: []*protocol.ChatResponse{{
		SessionID:   "sess-1",
		Message:     "Welcome!",
		UIComponent: testCategories(),
	}}}
	m := newTestModel(t, svc)
	require.NoError(t, m.ctrl.Open(context.Background()))
	m.handleTurnDone(turnDoneMsg{})
	require.NotNil(t, m.widget)

	require.NoError(t, m.ctrl.End(context.Background()))
	m.handleTurnDone(turnDoneMsg{})
	assert.Nil(t, m.widget)
	assert.Equal(t, conversation.PhaseEnded, m.ctrl.Phase())
}
