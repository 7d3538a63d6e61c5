// Package protocol defines the wire types exchanged with the chat service:
// request/response pairs for the conversation endpoints, the tagged UI
// descriptor attached to assistant turns, and the normalized input pair sent
// back for every widget interaction.
//
// The client never interprets dialogue state or descriptor payloads beyond
// decoding them; the server owns all conversational semantics.
package protocol

// ChatResponse is the standard response shape shared by every conversation
// endpoint (init, select-category, submit-lead, input, menu, ask).
type ChatResponse struct {
	SessionID      string         `json:"session_id"`
	Message        string         `json:"message"`
	CurrentState   string         `json:"current_state"`
	NextState      string         `json:"next_state,omitempty"`
	UIComponent    *UIComponent   `json:"ui_component,omitempty"`
	ShowMenuButton bool           `json:"show_menu_button"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// InitRequest starts a new session. The body is intentionally empty.
type InitRequest struct{}

// SelectCategoryRequest reports the user's category pick.
type SelectCategoryRequest struct {
	SessionID string `json:"session_id"`
	Category  string `json:"category"`
}

// SubmitLeadRequest carries the lead-capture form.
type SubmitLeadRequest struct {
	SessionID string `json:"session_id"`
	Category  string `json:"category"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// UserInputRequest replays a normalized widget output together with the
// dialogue state echoed from the most recent response.
type UserInputRequest struct {
	SessionID    string    `json:"session_id"`
	CurrentState string    `json:"current_state"`
	InputType    InputKind `json:"input_type"`
	InputData    any       `json:"input_data"`
}

// MenuRequest returns the conversation to the main menu.
type MenuRequest struct {
	SessionID string `json:"session_id"`
}

// EndRequest ends the session.
type EndRequest struct {
	SessionID string `json:"session_id"`
}

// EndResponse is the terminal acknowledgement for EndRequest.
type EndResponse struct {
	Message      string `json:"message"`
	SessionEnded bool   `json:"session_ended"`
}

// AskRequest is the free-text channel. It carries the session id only; the
// structured dialogue state is deliberately not threaded through.
type AskRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

// PropertyActionRequest requests a brochure or quote for one listing.
type PropertyActionRequest struct {
	SessionID  string `json:"session_id"`
	Action     string `json:"action"` // "brochure" or "quote"
	PropertyID string `json:"property_id"`
}

// PropertyFilterRequest narrows the listing catalog by parsed preferences.
type PropertyFilterRequest struct {
	PropertyType string   `json:"property_type"`
	Budget       string   `json:"budget,omitempty"`
	Location     []string `json:"location,omitempty"`
}

// =============================================================================
// NORMALIZED INPUT
// =============================================================================

// InputKind identifies which descriptor family produced a user input. It must
// exactly mirror the type of the descriptor that was rendered so the server
// can interpret the payload against the state it dictated.
type InputKind string

const (
	InputButton             InputKind = "button"
	InputForm               InputKind = "form"
	InputText               InputKind = "text"
	InputNumberConfirmation InputKind = "number_confirmation"
)

// Input is the canonical (kind, payload) pair for one widget output.
// Payload is a scalar string for button/text/number_confirmation and a
// field-keyed object for form.
type Input struct {
	Kind    InputKind
	Payload any
}

// ButtonInput normalizes a button selection.
func ButtonInput(value string) Input {
	return Input{Kind: InputButton, Payload: value}
}

// FormInput normalizes a form submission keyed by field name.
func FormInput(values map[string]any) Input {
	return Input{Kind: InputForm, Payload: values}
}

// TextInput normalizes free text typed into a text_input widget.
func TextInput(text string) Input {
	return Input{Kind: InputText, Payload: text}
}

// NumberConfirmationInput normalizes a confirmed (possibly edited) number.
func NumberConfirmationInput(number string) Input {
	return Input{Kind: InputNumberConfirmation, Payload: number}
}

// ContinueInput is the synthetic input the controller sends to advance past a
// descriptor-less assistant turn. The value matches what a rendered continue
// button would produce.
func ContinueInput() Input {
	return ButtonInput("continue")
}

// =============================================================================
// PROPERTY LISTINGS (read-only collaborator)
// =============================================================================

// Listing is one property in the catalog.
type Listing struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Location string `json:"location"`
	Price    string `json:"price"`
	ImageURL string `json:"image_url,omitempty"`
}

// ListingsResponse wraps a listing page.
type ListingsResponse struct {
	Properties []Listing `json:"properties"`
}
