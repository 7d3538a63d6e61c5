// Package conversation implements the client-side conversation controller.
// The controller owns the session and dialogue-state identifiers, appends
// every turn to the transcript (user turns optimistically, before the server
// confirms), and performs the auto-continuation round trip whenever a
// response arrives without a renderable UI descriptor.
//
// Every network failure is absorbed here: the transcript gains a static
// apology turn, the loading flag clears, and session/dialogue state stay
// untouched so the user's next action retries in the same context.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"mayachat/internal/protocol"
	"mayachat/internal/transcript"
)

// Phase is the controller's lifecycle state.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseAwaitingResponse
	PhaseIdle
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseAwaitingResponse:
		return "awaiting-response"
	case PhaseIdle:
		return "idle"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Static recovery messages. Failures never surface as errors to the render
// layer; they become these assistant turns.
const (
	ConnectApology = "Hi! I'm having trouble connecting. Please try again in a moment."
	RetryApology   = "I apologize, but I'm having trouble processing your message. Please try again."
)

// ErrBusy is returned when a second interaction is attempted while one is in
// flight. The UI disables inputs while loading, so hitting this means the
// caller bypassed the declared controls.
var ErrBusy = errors.New("conversation: request already in flight")

// ErrEnded is returned for interactions after the session has ended.
var ErrEnded = errors.New("conversation: session has ended")

// Service is the remote chat service contract the controller drives.
// *chatclient.Client satisfies it.
type Service interface {
	Init(ctx context.Context) (*protocol.ChatResponse, error)
	SelectCategory(ctx context.Context, sessionID, category string) (*protocol.ChatResponse, error)
	SubmitLead(ctx context.Context, req protocol.SubmitLeadRequest) (*protocol.ChatResponse, error)
	SendInput(ctx context.Context, sessionID, currentState string, input protocol.Input) (*protocol.ChatResponse, error)
	BackToMenu(ctx context.Context, sessionID string) (*protocol.ChatResponse, error)
	Ask(ctx context.Context, sessionID, question string) (*protocol.ChatResponse, error)
	End(ctx context.Context, sessionID string) (*protocol.EndResponse, error)
}

// Recorder mirrors appended turns to a local history sink. Implemented by
// *history.Store; nil disables recording.
type Recorder interface {
	RecordTurn(sessionID string, turnNumber int, turn transcript.Turn) error
}

// Controller orchestrates the dialogue with the remote service.
type Controller struct {
	mu sync.RWMutex

	svc      Service
	log      *zap.Logger
	ts       *transcript.Store
	recorder Recorder

	phase        Phase
	sessionID    string
	currentState string
	showMenu     bool
	category     string
}

// New builds a controller around the given service and transcript store.
// logger and recorder may be nil.
func New(svc Service, ts *transcript.Store, logger *zap.Logger, recorder Recorder) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		svc:      svc,
		log:      logger,
		ts:       ts,
		recorder: recorder,
		phase:    PhaseUninitialized,
	}
}

// Transcript exposes the transcript store for rendering.
func (c *Controller) Transcript() *transcript.Store { return c.ts }

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// SessionID returns the session identifier, empty before a successful init.
func (c *Controller) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// CurrentState returns the opaque dialogue state from the latest response.
func (c *Controller) CurrentState() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentState
}

// ShowMenu reports whether the return-to-menu affordance should be visible.
func (c *Controller) ShowMenu() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.showMenu
}

// Category returns the category held between a pick and the lead submission.
func (c *Controller) Category() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.category
}

// Loading reports whether a primary-channel request is in flight.
func (c *Controller) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase == PhaseAwaitingResponse
}

// Open initializes the session. On failure the controller stays usable: a
// connectivity apology is appended and a later Open retries from scratch.
func (c *Controller) Open(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.settle()

	resp, err := c.svc.Init(ctx)
	if err != nil {
		c.log.Warn("session init failed", zap.Error(err))
		c.appendAssistant(ConnectApology, nil)
		return nil
	}

	c.mu.Lock()
	c.sessionID = resp.SessionID
	c.mu.Unlock()
	c.apply(resp)
	return nil
}

// SelectCategory reports the user's category pick. The category is held
// until the subsequent lead submission.
func (c *Controller) SelectCategory(ctx context.Context, cat protocol.Category) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.settle()

	c.appendUser(fmt.Sprintf("%s %s", cat.Emoji, cat.Label))
	c.mu.Lock()
	c.category = cat.ID
	sessionID := c.sessionID
	c.mu.Unlock()

	resp, err := c.svc.SelectCategory(ctx, sessionID, cat.ID)
	if err != nil {
		c.recover("select-category", err)
		return nil
	}
	c.applyWithContinue(ctx, resp)
	return nil
}

// SubmitLead submits validated contact details for the held category.
// Field validation happens in the form widget; by the time a submission
// reaches the controller it is complete.
func (c *Controller) SubmitLead(ctx context.Context, name, email, phone string) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.settle()

	c.appendUser(fmt.Sprintf("Submitted: %s, %s, %s", name, email, phone))
	c.mu.RLock()
	req := protocol.SubmitLeadRequest{
		SessionID: c.sessionID,
		Category:  c.category,
		Name:      name,
		Email:     email,
		Phone:     phone,
	}
	c.mu.RUnlock()

	resp, err := c.svc.SubmitLead(ctx, req)
	if err != nil {
		c.recover("submit-lead", err)
		return nil
	}
	c.applyWithContinue(ctx, resp)
	return nil
}

// Submit replays one normalized widget output. echo is the human-readable
// rendition of what the user chose, appended optimistically.
func (c *Controller) Submit(ctx context.Context, input protocol.Input, echo string) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.settle()

	c.appendUser(echo)
	c.mu.RLock()
	sessionID, state := c.sessionID, c.currentState
	c.mu.RUnlock()

	resp, err := c.svc.SendInput(ctx, sessionID, state, input)
	if err != nil {
		c.recover("input", err)
		return nil
	}
	c.applyWithContinue(ctx, resp)
	return nil
}

// BackToMenu resets the category selection and returns to the main menu.
func (c *Controller) BackToMenu(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.settle()

	c.appendUser("Back to main menu")
	c.mu.Lock()
	c.category = ""
	sessionID := c.sessionID
	c.mu.Unlock()

	resp, err := c.svc.BackToMenu(ctx, sessionID)
	if err != nil {
		c.recover("menu", err)
		return nil
	}
	c.apply(resp)
	// The menu affordance is always hidden after an explicit return, no
	// matter what the response says.
	c.mu.Lock()
	c.showMenu = false
	c.mu.Unlock()
	return nil
}

// Ask sends free text on the always-available channel. It bypasses the
// structured flow: no dialogue state is sent, no auto-continuation runs, and
// the stored state only changes if the response carries replacements.
func (c *Controller) Ask(ctx context.Context, question string) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.settle()

	c.appendUser(question)
	c.mu.RLock()
	sessionID := c.sessionID
	c.mu.RUnlock()

	resp, err := c.svc.Ask(ctx, sessionID, question)
	if err != nil {
		c.recover("ask", err)
		return nil
	}

	c.appendAssistant(resp.Message, resp.UIComponent)
	c.mu.Lock()
	if resp.CurrentState != "" {
		c.currentState = resp.CurrentState
		c.showMenu = resp.ShowMenuButton
	}
	c.mu.Unlock()
	return nil
}

// End closes the session. The farewell from the service is appended and the
// controller becomes terminal.
func (c *Controller) End(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.settle()

	c.mu.RLock()
	sessionID := c.sessionID
	c.mu.RUnlock()

	resp, err := c.svc.End(ctx, sessionID)
	if err != nil {
		c.recover("end", err)
		return nil
	}
	if resp.Message != "" {
		c.appendAssistant(resp.Message, nil)
	}
	c.mu.Lock()
	c.phase = PhaseEnded
	c.mu.Unlock()
	return nil
}

// =============================================================================
// INTERNALS
// =============================================================================

// begin moves the controller into awaiting-response, rejecting concurrent
// interactions and interactions after the session ended.
func (c *Controller) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.phase {
	case PhaseAwaitingResponse:
		return ErrBusy
	case PhaseEnded:
		return ErrEnded
	}
	c.phase = PhaseAwaitingResponse
	return nil
}

// settle returns to idle unless the session ended meanwhile.
func (c *Controller) settle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseAwaitingResponse {
		c.phase = PhaseIdle
	}
}

// apply appends the assistant turn and adopts the response's dialogue state.
func (c *Controller) apply(resp *protocol.ChatResponse) {
	c.appendAssistant(resp.Message, resp.UIComponent)
	c.mu.Lock()
	c.currentState = resp.CurrentState
	c.showMenu = resp.ShowMenuButton
	c.mu.Unlock()
}

// applyWithContinue applies the response, then performs exactly one
// synthetic continue round trip if it carried no renderable descriptor. The
// continued response is applied as-is even when it is descriptor-less again;
// chaining further would risk an unbounded loop against a misbehaving
// service.
func (c *Controller) applyWithContinue(ctx context.Context, resp *protocol.ChatResponse) {
	c.apply(resp)
	if resp.UIComponent.Renderable() {
		return
	}

	c.mu.RLock()
	sessionID, state := c.sessionID, c.currentState
	c.mu.RUnlock()

	c.log.Debug("auto-continuing descriptor-less turn", zap.String("state", state))
	next, err := c.svc.SendInput(ctx, sessionID, state, protocol.ContinueInput())
	if err != nil {
		c.recover("auto-continue", err)
		return
	}
	c.apply(next)
}

// recover converts a network failure into a static apology turn. Session and
// dialogue state are left unchanged so the next action retries in context.
func (c *Controller) recover(op string, err error) {
	c.log.Warn("chat request failed", zap.String("op", op), zap.Error(err))
	c.appendAssistant(RetryApology, nil)
}

func (c *Controller) appendUser(content string) {
	c.record(c.ts.Append(transcript.RoleUser, content, nil))
}

func (c *Controller) appendAssistant(content string, component *protocol.UIComponent) {
	c.record(c.ts.Append(transcript.RoleAssistant, content, component))
}

func (c *Controller) record(turn transcript.Turn) {
	if c.recorder == nil {
		return
	}
	c.mu.RLock()
	sessionID := c.sessionID
	c.mu.RUnlock()
	if sessionID == "" {
		return
	}
	if err := c.recorder.RecordTurn(sessionID, c.ts.Len(), turn); err != nil {
		c.log.Warn("failed to record turn", zap.Error(err))
	}
}
