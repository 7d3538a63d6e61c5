package chatclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mayachat/internal/protocol"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL)
	require.NoError(t, err)
	return c
}

func TestNewRejectsBareHost(t *testing.T) {
	_, err := New("localhost:8080")
	assert.Error(t, err)
}

func TestInitDecodesResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/chat/init", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		_ = json.NewEncoder(w).Encode(protocol.ChatResponse{
			SessionID:    "sess-1",
			Message:      "Hi, I'm Maya",
			CurrentState: "menu",
			UIComponent: protocol.MustComponent(protocol.ComponentCategoryButtons,
				protocol.CategoryButtonsData{Categories: []protocol.Category{
					{ID: "buy", Label: "Buy", Emoji: "🏠"},
				}}),
		})
	})

	resp, err := c.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, "menu", resp.CurrentState)
	require.NotNil(t, resp.UIComponent)
	assert.Equal(t, protocol.ComponentCategoryButtons, resp.UIComponent.Type)
}

func TestSendInputThreadsStateAndKind(t *testing.T) {
	var got protocol.UserInputRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/chat/input", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(protocol.ChatResponse{SessionID: got.SessionID, CurrentState: "next"})
	})

	_, err := c.SendInput(context.Background(), "sess-1", "booking_date_preference",
		protocol.ButtonInput("this_week"))
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, "booking_date_preference", got.CurrentState)
	assert.Equal(t, protocol.InputButton, got.InputType)
	assert.Equal(t, "this_week", got.InputData)
}

func TestAskSendsSessionOnly(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/chat/ask", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(protocol.ChatResponse{Message: "our offices are in Chennai"})
	})

	_, err := c.Ask(context.Background(), "sess-1", "where are you located?")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", body["session_id"])
	assert.Equal(t, "where are you located?", body["question"])
	_, hasState := body["current_state"]
	assert.False(t, hasState)
}

func TestListPropertiesBuildsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/properties/villa", r.URL.Path)
		assert.Equal(t, "6", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode(protocol.ListingsResponse{Properties: []protocol.Listing{
			{ID: "p1", Name: "Vivid Gardens", Type: "villa", Location: "Chennai", Price: "1.2 Cr"},
		}})
	})

	listings, err := c.ListProperties(context.Background(), "villa", 6)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "Vivid Gardens", listings[0].Name)
}

func TestServerErrorSurfacesAsStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "lead information not found", http.StatusBadRequest)
	})

	_, err := c.BackToMenu(context.Background(), "sess-1")
	require.Error(t, err)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
	assert.Contains(t, statusErr.Body, "lead information not found")
}

func TestEndDecodesTerminalAck(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/chat/end", r.URL.Path)
		_ = json.NewEncoder(w).Encode(protocol.EndResponse{Message: "bye", SessionEnded: true})
	})

	resp, err := c.End(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.True(t, resp.SessionEnded)
}
