package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadCategoryButtons(t *testing.T) {
	raw := `{
		"type": "category_buttons",
		"data": {"categories": [
			{"id": "buy", "label": "Buy", "emoji": "🏠"},
			{"id": "brochure", "label": "Get Property Brochure", "emoji": "📋"}
		]}
	}`
	var c UIComponent
	require.NoError(t, json.Unmarshal([]byte(raw), &c))

	p, err := c.Payload()
	require.NoError(t, err)
	data, ok := p.(*CategoryButtonsData)
	require.True(t, ok)
	require.Len(t, data.Categories, 2)
	assert.Equal(t, "buy", data.Categories[0].ID)
	assert.Equal(t, "🏠", data.Categories[0].Emoji)
	assert.True(t, c.Renderable())
}

func TestPayloadUnknownTagIsNoOp(t *testing.T) {
	c := &UIComponent{Type: "holographic_tour", Data: json.RawMessage(`{"x":1}`)}
	p, err := c.Payload()
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.False(t, c.Renderable())
}

func TestPayloadNilComponent(t *testing.T) {
	var c *UIComponent
	p, err := c.Payload()
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.False(t, c.Renderable())
}

func TestPayloadMalformedDataIsNotRenderable(t *testing.T) {
	c := &UIComponent{Type: ComponentButtons, Data: json.RawMessage(`"oops"`)}
	_, err := c.Payload()
	assert.Error(t, err)
	assert.False(t, c.Renderable())
}

func TestOptionAcceptsStringAndObject(t *testing.T) {
	var opts []Option
	raw := `["Mumbai", {"value": "50_100", "label": "₹50L - ₹1 Crore"}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &opts))
	require.Len(t, opts, 2)
	assert.Equal(t, Option{Value: "Mumbai", Label: "Mumbai"}, opts[0])
	assert.Equal(t, Option{Value: "50_100", Label: "₹50L - ₹1 Crore"}, opts[1])
}

func TestPreferenceFormSubmitLabel(t *testing.T) {
	d := &PreferenceFormData{Fields: []PreferenceField{
		{Name: "budget", Type: PreferenceDropdown, SubmitLabel: "Find Properties"},
	}}
	assert.Equal(t, "Find Properties", d.SubmitLabel())

	empty := &PreferenceFormData{}
	assert.Equal(t, "Continue", empty.SubmitLabel())
}

func TestNumberConfirmationField(t *testing.T) {
	c := MustComponent(ComponentNumberConfirmation, NumberConfirmationData{
		Fields: []NumberField{{
			Name:    "phone",
			Label:   "9876543210",
			Options: []Option{{Value: "confirm", Label: "Confirm Number"}},
		}},
	})

	p, err := c.Payload()
	require.NoError(t, err)
	data := p.(*NumberConfirmationData)
	f := data.Field()
	require.NotNil(t, f)
	assert.Equal(t, "9876543210", f.Label)
	assert.Equal(t, "Confirm Number", f.Options[0].Label)

	// Malformed: no confirmation option.
	bad := &NumberConfirmationData{Fields: []NumberField{{Name: "phone"}}}
	assert.Nil(t, bad.Field())
}

func TestContinueInputShape(t *testing.T) {
	in := ContinueInput()
	assert.Equal(t, InputButton, in.Kind)
	assert.Equal(t, "continue", in.Payload)
}

func TestFormInputPayloadSerializesByFieldName(t *testing.T) {
	req := UserInputRequest{
		SessionID:    "s1",
		CurrentState: "brochure_preferences",
		InputType:    InputForm,
		InputData: map[string]any{
			"budget":   "50_100",
			"location": []string{"Chennai", "Pune"},
		},
	}
	b, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "form", decoded["input_type"])
	payload := decoded["input_data"].(map[string]any)
	assert.Equal(t, "50_100", payload["budget"])
}
