package server

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"mayachat/internal/chatclient"
	"mayachat/internal/config"
	"mayachat/internal/conversation"
	"mayachat/internal/properties"
	"mayachat/internal/protocol"
	"mayachat/internal/transcript"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		// The genai import starts an opencensus stats worker at package init.
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv, err := New(context.Background(), config.ServeConfig{
		AllowedOrigins: []string{"*"},
		GeminiModel:    "gemini-2.0-flash",
	}, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func startClient(t *testing.T) (*chatclient.Client, *conversation.Controller) {
	t.Helper()
	ts := startServer(t)
	client, err := chatclient.New(ts.URL)
	require.NoError(t, err)
	ctrl := conversation.New(client, transcript.New(nil), nil, nil)
	return client, ctrl
}

func TestInitReturnsGreetingWithCategories(t *testing.T) {
	_, ctrl := startClient(t)

	require.NoError(t, ctrl.Open(context.Background()))

	last, ok := ctrl.Transcript().Last()
	require.True(t, ok)
	assert.Contains(t, last.Content, "Welcome to Vivid Realty")
	require.NotNil(t, last.Component)

	payload, err := last.Component.Payload()
	require.NoError(t, err)
	cats := payload.(*protocol.CategoryButtonsData)
	require.Len(t, cats.Categories, 5)
	assert.Equal(t, "brochure", cats.Categories[0].ID)
	assert.False(t, ctrl.ShowMenu())
}

func TestLeadValidationBouncesFormWithErrors(t *testing.T) {
	client, ctrl := startClient(t)
	require.NoError(t, ctrl.Open(context.Background()))

	resp, err := client.SelectCategory(context.Background(), ctrl.SessionID(), "brochure")
	require.NoError(t, err)
	assert.Equal(t, "lead_capture", resp.CurrentState)
	assert.Equal(t, protocol.ComponentLeadForm, resp.UIComponent.Type)

	bounce, err := client.SubmitLead(context.Background(), protocol.SubmitLeadRequest{
		SessionID: ctrl.SessionID(),
		Category:  "brochure",
		Name:      "A",
		Email:     "not-an-email",
		Phone:     "12345",
	})
	require.NoError(t, err)
	assert.Equal(t, "lead_capture", bounce.CurrentState, "invalid submission stays in lead capture")
	assert.Contains(t, bounce.Message, "valid name")
	assert.Contains(t, bounce.Message, "valid email")
	assert.Contains(t, bounce.Message, "10-digit")

	payload, err := bounce.UIComponent.Payload()
	require.NoError(t, err)
	form := payload.(*protocol.LeadFormData)
	assert.Len(t, form.Errors, 3)
}

func TestBrochureFlowEndToEnd(t *testing.T) {
	_, ctrl := startClient(t)
	ctx := context.Background()
	require.NoError(t, ctrl.Open(ctx))

	require.NoError(t, ctrl.SelectCategory(ctx, protocol.Category{ID: "brochure", Label: "Get Property Brochure", Emoji: "📋"}))
	assert.Equal(t, "lead_capture", ctrl.CurrentState())

	// A valid lead enters the brochure flow. brochure_start has no
	// descriptor, so the controller auto-continues into the preference
	// form.
	require.NoError(t, ctrl.SubmitLead(ctx, "Asha Raman", "Asha@Example.com", "98765 43210"))
	assert.Equal(t, "brochure_preferences", ctrl.CurrentState())

	last, _ := ctrl.Transcript().Last()
	require.NotNil(t, last.Component)
	assert.Equal(t, protocol.ComponentPreferenceForm, last.Component.Type)
	payload, err := last.Component.Payload()
	require.NoError(t, err)
	assert.Equal(t, "Find Properties", payload.(*protocol.PreferenceFormData).SubmitLabel())

	// Preference submission yields filtered property cards.
	require.NoError(t, ctrl.Submit(ctx, protocol.FormInput(map[string]any{
		"budget":        "50_100",
		"location":      []any{"Chennai"},
		"property_type": "apartment",
	}), "Submitted preferences"))
	assert.Equal(t, "brochure_preferences_collected", ctrl.CurrentState())

	last, _ = ctrl.Transcript().Last()
	require.NotNil(t, last.Component)
	require.Equal(t, protocol.ComponentPropertyCards, last.Component.Type)
	payload, err = last.Component.Payload()
	require.NoError(t, err)
	cards := payload.(*protocol.PropertyCardsData)
	assert.Equal(t, "apartment", cards.PropertyType)
	assert.True(t, cards.Filtered)
	assert.NotEmpty(t, cards.Preferences)
}

func TestBookingFlowCollectsPhoneConfirmationAndRequests(t *testing.T) {
	client, ctrl := startClient(t)
	ctx := context.Background()
	require.NoError(t, ctrl.Open(ctx))
	require.NoError(t, ctrl.SelectCategory(ctx, protocol.Category{ID: "booking", Label: "Book an Appointment", Emoji: "📅"}))
	require.NoError(t, ctrl.SubmitLead(ctx, "Dev Kumar", "dev@example.com", "9876543210"))
	assert.Equal(t, "booking_start", ctrl.CurrentState())

	require.NoError(t, ctrl.Submit(ctx, protocol.ButtonInput("specific"), "Yes, specific property"))
	require.NoError(t, ctrl.Submit(ctx, protocol.ButtonInput("this_week"), "This Week"))
	require.NoError(t, ctrl.Submit(ctx, protocol.ButtonInput("morning"), "Morning"))

	// The phone confirmation descriptor carries the captured number.
	last, _ := ctrl.Transcript().Last()
	require.NotNil(t, last.Component)
	require.Equal(t, protocol.ComponentNumberConfirmation, last.Component.Type)
	payload, err := last.Component.Payload()
	require.NoError(t, err)
	field := payload.(*protocol.NumberConfirmationData).Field()
	require.NotNil(t, field)
	assert.Equal(t, "9876543210", field.Label)

	// Confirm with an edited number, then the optional requests input.
	require.NoError(t, ctrl.Submit(ctx, protocol.NumberConfirmationInput("9123456780"), "9123456780"))
	last, _ = ctrl.Transcript().Last()
	require.NotNil(t, last.Component)
	assert.Equal(t, protocol.ComponentTextInput, last.Component.Type)

	// The scheduling summary carries no descriptor, so the controller
	// auto-continues into the follow-up buttons and the summary sits one
	// turn back.
	require.NoError(t, ctrl.Submit(ctx, protocol.TextInput("No special requests"), "No special requests"))
	assert.Equal(t, "booking_confirmation", ctrl.CurrentState())

	turns := ctrl.Transcript().All()
	require.GreaterOrEqual(t, len(turns), 2)
	summary := turns[len(turns)-2].Content
	assert.Contains(t, summary, "Your site visit has been scheduled")
	assert.Contains(t, summary, "9123456780", "summary uses the edited number")

	last, _ = ctrl.Transcript().Last()
	require.NotNil(t, last.Component)
	assert.Equal(t, protocol.ComponentButtons, last.Component.Type)

	// End from the follow-up buttons.
	resp, err := client.End(ctx, ctrl.SessionID())
	require.NoError(t, err)
	assert.True(t, resp.SessionEnded)
	assert.Contains(t, resp.Message, "Dev Kumar")
}

func TestMenuButtonReturnsToCategorySelection(t *testing.T) {
	_, ctrl := startClient(t)
	ctx := context.Background()
	require.NoError(t, ctrl.Open(ctx))
	require.NoError(t, ctrl.SelectCategory(ctx, protocol.Category{ID: "question", Label: "Ask a Question", Emoji: "💬"}))
	require.NoError(t, ctrl.SubmitLead(ctx, "Meera S", "meera@example.com", "9000000001"))
	assert.Equal(t, "faq_start", ctrl.CurrentState())

	require.NoError(t, ctrl.BackToMenu(ctx))
	assert.Equal(t, "category_selection", ctrl.CurrentState())
	assert.False(t, ctrl.ShowMenu())

	last, _ := ctrl.Transcript().Last()
	assert.Contains(t, last.Content, "What else can I help you with")
	require.NotNil(t, last.Component)
	assert.Equal(t, protocol.ComponentCategoryButtons, last.Component.Type)
}

func TestFAQPickGetsCannedAnswer(t *testing.T) {
	_, ctrl := startClient(t)
	ctx := context.Background()
	require.NoError(t, ctrl.Open(ctx))
	require.NoError(t, ctrl.SelectCategory(ctx, protocol.Category{ID: "question", Label: "Ask a Question", Emoji: "💬"}))
	require.NoError(t, ctrl.SubmitLead(ctx, "Meera S", "meera@example.com", "9000000001"))

	require.NoError(t, ctrl.Submit(ctx, protocol.ButtonInput("loan"), "Loans & Finance"))

	// Without an API key the answerer serves the canned loan answer, and
	// faq_category_select is descriptor-less so the controller continues
	// into the follow-up buttons.
	turns := ctrl.Transcript().All()
	require.GreaterOrEqual(t, len(turns), 2)
	answer := turns[len(turns)-2]
	assert.Contains(t, answer.Content, "home loans")
	assert.Equal(t, "faq_handle", ctrl.CurrentState())
}

func TestAskChannelIsStateless(t *testing.T) {
	client, ctrl := startClient(t)
	ctx := context.Background()
	require.NoError(t, ctrl.Open(ctx))
	require.NoError(t, ctrl.SelectCategory(ctx, protocol.Category{ID: "booking", Label: "Book an Appointment", Emoji: "📅"}))
	stateBefore := ctrl.CurrentState()

	resp, err := client.Ask(ctx, ctrl.SessionID(), "do you have villas near the beach?")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Message)
	assert.Empty(t, resp.CurrentState, "ask replies carry no dialogue state")
	assert.Equal(t, stateBefore, ctrl.CurrentState())
}

func TestPropertiesEndpoints(t *testing.T) {
	client, ctrl := startClient(t)
	ctx := context.Background()
	require.NoError(t, ctrl.Open(ctx))

	listings, err := client.ListProperties(ctx, "apartment", 6)
	require.NoError(t, err)
	require.Len(t, listings, 6)
	for _, l := range listings {
		assert.Equal(t, "apartment", l.Type)
	}

	filtered, err := client.FilterProperties(ctx, protocol.PropertyFilterRequest{
		PropertyType: "villa",
		Location:     []string{"Chennai"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, filtered)
	for _, l := range filtered {
		assert.Equal(t, "villa", l.Type)
		assert.Equal(t, "Chennai", l.Location)
	}

	browser, err := properties.NewBrowser(client, nil, ctrl.SessionID(), protocol.PropertyCardsData{PropertyType: "apartment"})
	require.NoError(t, err)
	require.NoError(t, browser.Load(ctx))
	require.NotEmpty(t, browser.Listings())

	action, err := browser.Brochure(ctx, browser.Listings()[0])
	require.NoError(t, err)
	assert.Contains(t, action.Message, "brochure")
}

func TestUnknownSessionRejected(t *testing.T) {
	client, _ := startClient(t)

	_, err := client.SendInput(context.Background(), "no-such-session", "booking_start", protocol.ButtonInput("specific"))
	require.Error(t, err)
	var statusErr *chatclient.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 400, statusErr.Code)
}
