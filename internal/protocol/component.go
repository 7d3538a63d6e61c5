package protocol

import (
	"encoding/json"
	"fmt"
)

// ComponentType tags a UI descriptor. The set is closed on the client side:
// tags outside it decode to a nil payload and render nothing, so new server
// widgets degrade to plain messages instead of errors.
type ComponentType string

const (
	ComponentCategoryButtons    ComponentType = "category_buttons"
	ComponentLeadForm           ComponentType = "lead_form"
	ComponentPreferenceForm     ComponentType = "preference_form"
	ComponentButtons            ComponentType = "buttons"
	ComponentPropertyCards      ComponentType = "property_cards"
	ComponentNumberConfirmation ComponentType = "number_confirmation"
	ComponentTextInput          ComponentType = "text_input"
)

// UIComponent is the server-declared descriptor attached to an assistant
// turn. Data stays raw until a renderer asks for the typed payload.
type UIComponent struct {
	Type ComponentType   `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Category is one entry of a category_buttons descriptor.
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Emoji string `json:"emoji"`
}

// CategoryButtonsData is the payload for category_buttons.
type CategoryButtonsData struct {
	Categories []Category `json:"categories"`
}

// FormField is one input of a lead_form descriptor.
type FormField struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Type     string `json:"type"` // text, email, tel
	Required bool   `json:"required"`
}

// LeadFormData is the payload for lead_form. Errors carries server-side
// validation messages when a submission is bounced back.
type LeadFormData struct {
	Fields []FormField `json:"fields"`
	Errors []string    `json:"errors,omitempty"`
}

// Option is a selectable choice. The wire format is either an object
// {value, label} or a bare string (multiselect chips use bare strings);
// both decode into the same shape with Value == Label for bare strings.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// UnmarshalJSON accepts both option encodings.
func (o *Option) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		o.Value = s
		o.Label = s
		return nil
	}
	type alias Option
	var obj alias
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("option is neither string nor object: %w", err)
	}
	*o = Option(obj)
	return nil
}

// PreferenceFieldKind is the widget kind of one preference-form field.
type PreferenceFieldKind string

const (
	PreferenceDropdown    PreferenceFieldKind = "dropdown"
	PreferenceMultiselect PreferenceFieldKind = "multiselect_chips"
	PreferenceButtons     PreferenceFieldKind = "buttons"
)

// PreferenceField is one field of a preference_form descriptor. Each field
// carries its own option set; SubmitLabel on the first field names the
// form's submit affordance.
type PreferenceField struct {
	Name        string              `json:"name"`
	Label       string              `json:"label"`
	Type        PreferenceFieldKind `json:"type"`
	Options     []Option            `json:"options"`
	Required    bool                `json:"required"`
	SubmitLabel string              `json:"submit_label,omitempty"`
}

// PreferenceFormData is the payload for preference_form.
type PreferenceFormData struct {
	Fields []PreferenceField `json:"fields"`
}

// SubmitLabel returns the form's submit label, defaulting to "Continue".
func (d *PreferenceFormData) SubmitLabel() string {
	if len(d.Fields) > 0 && d.Fields[0].SubmitLabel != "" {
		return d.Fields[0].SubmitLabel
	}
	return "Continue"
}

// ButtonsData is the payload for a plain action-button list.
type ButtonsData struct {
	Options []Option `json:"options"`
}

// NumberField is the single field of a number_confirmation descriptor.
// Label carries the pre-filled number; Options[0] is the one confirmation
// affordance.
type NumberField struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Options []Option `json:"options"`
}

// NumberConfirmationData is the payload for number_confirmation.
type NumberConfirmationData struct {
	Fields []NumberField `json:"fields"`
}

// Field returns the confirmation field, or nil when the payload is
// malformed (no field or no confirmation option).
func (d *NumberConfirmationData) Field() *NumberField {
	if len(d.Fields) == 0 || len(d.Fields[0].Options) == 0 {
		return nil
	}
	return &d.Fields[0]
}

// TextInputData is the payload for text_input. When Optional is set the
// widget exposes a skip affordance labelled SkipLabel that submits a fixed
// sentinel instead of the typed text.
type TextInputData struct {
	Placeholder string `json:"placeholder"`
	Optional    bool   `json:"optional,omitempty"`
	SkipLabel   string `json:"skip_label,omitempty"`
}

// PropertyCardsData is the payload for property_cards. Preferences is the
// serialized filter criteria when Filtered is set, otherwise empty.
type PropertyCardsData struct {
	PropertyType string `json:"property_type"`
	Filtered     bool   `json:"filtered"`
	Preferences  string `json:"preferences,omitempty"`
}

// Payload decodes the variant-specific payload for the descriptor tag.
// Unknown tags return (nil, nil): forward-compatible no-op, not an error.
func (c *UIComponent) Payload() (any, error) {
	if c == nil {
		return nil, nil
	}
	decode := func(v any) (any, error) {
		if len(c.Data) == 0 {
			return nil, fmt.Errorf("%s descriptor has no data", c.Type)
		}
		if err := json.Unmarshal(c.Data, v); err != nil {
			return nil, fmt.Errorf("decode %s descriptor: %w", c.Type, err)
		}
		return v, nil
	}

	switch c.Type {
	case ComponentCategoryButtons:
		return decode(&CategoryButtonsData{})
	case ComponentLeadForm:
		return decode(&LeadFormData{})
	case ComponentPreferenceForm:
		return decode(&PreferenceFormData{})
	case ComponentButtons:
		return decode(&ButtonsData{})
	case ComponentNumberConfirmation:
		return decode(&NumberConfirmationData{})
	case ComponentTextInput:
		return decode(&TextInputData{})
	case ComponentPropertyCards:
		return decode(&PropertyCardsData{})
	default:
		return nil, nil
	}
}

// Renderable reports whether the descriptor resolves to a widget the client
// can act on. Nil components, unknown tags, and undecodable payloads are all
// non-renderable; the auto-continuation protocol treats them alike.
func (c *UIComponent) Renderable() bool {
	p, err := c.Payload()
	return err == nil && p != nil
}

// NewComponent builds a descriptor from a typed payload. Used by the demo
// server and by tests.
func NewComponent(t ComponentType, data any) (*UIComponent, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s descriptor: %w", t, err)
	}
	return &UIComponent{Type: t, Data: raw}, nil
}

// MustComponent is NewComponent for static payloads that cannot fail.
func MustComponent(t ComponentType, data any) *UIComponent {
	c, err := NewComponent(t, data)
	if err != nil {
		panic(err)
	}
	return c
}
