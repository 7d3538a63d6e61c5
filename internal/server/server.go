// Package server implements the Vivid Realty demo chat service: the scripted
// dialogue flows, lead capture, and property catalog behind the /api/v2
// endpoints the client speaks to. It exists so the widget can be run and
// tested end to end without the production backend.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"mayachat/internal/config"
	"mayachat/internal/protocol"
)

// Server carries the demo service state.
type Server struct {
	router   *chi.Mux
	sessions *sessionStore
	catalog  *catalog
	answer   *answerer
	log      *zap.Logger
}

// New builds the demo server.
func New(ctx context.Context, cfg config.ServeConfig, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cat, err := loadCatalog()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
		MaxAge:         300,
	}))

	s := &Server{
		router:   r,
		sessions: newSessionStore(),
		catalog:  cat,
		answer:   newAnswerer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger),
		log:      logger,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)

	s.router.Route("/api/v2", func(r chi.Router) {
		r.Post("/chat/init", s.handleInit)
		r.Post("/chat/select-category", s.handleSelectCategory)
		r.Post("/chat/submit-lead", s.handleSubmitLead)
		r.Post("/chat/input", s.handleInput)
		r.Post("/chat/menu", s.handleMenu)
		r.Post("/chat/ask", s.handleAsk)
		r.Post("/chat/end", s.handleEnd)

		r.Get("/properties/{propertyType}", s.handleListProperties)
		r.Post("/properties/filter", s.handleFilterProperties)
		r.Post("/properties/action", s.handlePropertyAction)
	})
}

// Router exposes the handler for mounting and tests.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.create()
	sess.State = stateGreeting
	s.log.Info("session started", zap.String("session", sess.ID))

	s.writeJSON(w, http.StatusOK, protocol.ChatResponse{
		SessionID:      sess.ID,
		Message:        greetingMessage,
		CurrentState:   string(stateGreeting),
		NextState:      string(stateCategorySelection),
		UIComponent:    categoryButtonsComponent(),
		ShowMenuButton: false,
	})
}

func (s *Server) handleSelectCategory(w http.ResponseWriter, r *http.Request) {
	var req protocol.SelectCategoryRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess, ok := s.sessions.get(req.SessionID)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Session not found. Please start over.")
		return
	}
	if _, ok := categoryStartState[req.Category]; !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown category %q", req.Category))
		return
	}

	sess.Lead.Category = req.Category
	sess.State = stateLeadCapture

	s.writeJSON(w, http.StatusOK, protocol.ChatResponse{
		SessionID:      sess.ID,
		Message:        leadCaptureMessage,
		CurrentState:   string(stateLeadCapture),
		UIComponent:    leadFormComponent(nil),
		ShowMenuButton: true,
	})
}

func (s *Server) handleSubmitLead(w http.ResponseWriter, r *http.Request) {
	var req protocol.SubmitLeadRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess, ok := s.sessions.get(req.SessionID)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Session not found. Please start over.")
		return
	}

	name, email, phone, errs := validateLead(req.Name, req.Email, req.Phone)
	if len(errs) > 0 {
		// Bounce the form back with the validation messages.
		s.writeJSON(w, http.StatusOK, protocol.ChatResponse{
			SessionID:      sess.ID,
			Message:        strings.Join(errs, " "),
			CurrentState:   string(stateLeadCapture),
			NextState:      string(stateLeadCapture),
			UIComponent:    leadFormComponent(errs),
			ShowMenuButton: true,
		})
		return
	}

	sess.Lead.Name = name
	sess.Lead.Email = email
	sess.Lead.Phone = phone
	if req.Category != "" {
		sess.Lead.Category = req.Category
	}
	s.log.Info("lead captured",
		zap.String("session", sess.ID),
		zap.String("category", sess.Lead.Category))

	start, ok := categoryStartState[sess.Lead.Category]
	if !ok {
		start = stateFAQStart
	}
	resp := s.enterState(sess, start)
	resp.Metadata = map[string]any{"lead_captured": true}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var req protocol.UserInputRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess, ok := s.sessions.get(req.SessionID)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Session not found. Please start over.")
		return
	}

	current := flowState(req.CurrentState)
	// Navigation buttons work from any state.
	if value, ok := req.InputData.(string); ok && req.InputType == protocol.InputButton {
		switch value {
		case "menu", "restart":
			s.writeJSON(w, http.StatusOK, s.menuResponse(sess))
			return
		case "end":
			sess.State = stateHandoff
			s.writeJSON(w, http.StatusOK, s.enterState(sess, stateHandoff))
			return
		}
	}

	cfg, ok := flowTable[current]
	if !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown state %q", req.CurrentState))
		return
	}

	s.recordInput(sess, current, req)
	resp := s.enterStateWithInput(sess, cfg.next, inputText(req.InputData))
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	var req protocol.MenuRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess, ok := s.sessions.get(req.SessionID)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Session not found. Please start over.")
		return
	}
	s.writeJSON(w, http.StatusOK, s.menuResponse(sess))
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req protocol.AskRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	answer := s.answer.Answer(r.Context(), req.Question)
	// The ask channel is stateless: no current_state in the reply.
	s.writeJSON(w, http.StatusOK, protocol.ChatResponse{
		SessionID: req.SessionID,
		Message:   answer,
	})
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	var req protocol.EndRequest
	if !s.decode(w, r, &req) {
		return
	}

	name := "there"
	if sess, ok := s.sessions.get(req.SessionID); ok {
		if sess.Lead.Name != "" {
			name = sess.Lead.Name
		}
		sess.Ended = true
		sess.State = stateEnded
	}

	s.writeJSON(w, http.StatusOK, protocol.EndResponse{
		Message:      fmt.Sprintf("Thank you for chatting with us, %s! Our team will be in touch soon. Have a great day! 🙏✨", name),
		SessionEnded: true,
	})
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	propertyType := chi.URLParam(r, "propertyType")
	limit := 6
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	s.writeJSON(w, http.StatusOK, protocol.ListingsResponse{
		Properties: s.catalog.byType(propertyType, limit),
	})
}

func (s *Server) handleFilterProperties(w http.ResponseWriter, r *http.Request) {
	var req protocol.PropertyFilterRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.writeJSON(w, http.StatusOK, protocol.ListingsResponse{
		Properties: s.catalog.filter(req),
	})
}

func (s *Server) handlePropertyAction(w http.ResponseWriter, r *http.Request) {
	var req protocol.PropertyActionRequest
	if !s.decode(w, r, &req) {
		return
	}
	listing, ok := s.catalog.byID(req.PropertyID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "property not found")
		return
	}

	var msg string
	switch req.Action {
	case "brochure":
		msg = fmt.Sprintf("📋 The brochure for %s is on its way to your email!", listing.Name)
	case "quote":
		msg = fmt.Sprintf("💰 Our agent will send you a detailed quote for %s (%s) shortly!", listing.Name, listing.Price)
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", req.Action))
		return
	}

	s.writeJSON(w, http.StatusOK, protocol.ChatResponse{
		SessionID: req.SessionID,
		Message:   msg,
	})
}

// =============================================================================
// FLOW EXECUTION
// =============================================================================

// enterState moves the session into state and renders its scripted response.
func (s *Server) enterState(sess *session, state flowState) protocol.ChatResponse {
	return s.enterStateWithInput(sess, state, "")
}

func (s *Server) enterStateWithInput(sess *session, state flowState, input string) protocol.ChatResponse {
	cfg, ok := flowTable[state]
	if !ok {
		// Off the end of a flow: park at the handoff.
		state = stateHandoff
		cfg = flowTable[state]
	}
	sess.State = state

	ctx := sess.context()
	message := formatMessage(cfg.message, ctx)
	if cfg.needsAnswer {
		message = s.answer.Answer(context.Background(), input)
	}

	var component *protocol.UIComponent
	if cfg.component != nil {
		component = cfg.component(ctx)
	}

	return protocol.ChatResponse{
		SessionID:      sess.ID,
		Message:        message,
		CurrentState:   string(state),
		NextState:      string(cfg.next),
		UIComponent:    component,
		ShowMenuButton: cfg.showMenu,
	}
}

func (s *Server) menuResponse(sess *session) protocol.ChatResponse {
	sess.State = stateCategorySelection
	sess.Lead.Category = ""
	return protocol.ChatResponse{
		SessionID:      sess.ID,
		Message:        menuMessage,
		CurrentState:   string(stateCategorySelection),
		UIComponent:    categoryButtonsComponent(),
		ShowMenuButton: false,
	}
}

// recordInput folds the user's answer into the session's lead data so later
// messages can reference it.
func (s *Server) recordInput(sess *session, state flowState, req protocol.UserInputRequest) {
	switch req.InputType {
	case protocol.InputForm:
		values, ok := req.InputData.(map[string]any)
		if !ok {
			return
		}
		for k, v := range values {
			sess.Lead.Data[k] = inputText(v)
		}
		if raw, err := json.Marshal(values); err == nil {
			sess.Lead.Data["preferences_json"] = string(raw)
		}
	case protocol.InputText:
		text := inputText(req.InputData)
		switch state {
		case stateOtherStart:
			sess.Lead.Data["query"] = text
		case stateBookingPhoneConfirmed:
			sess.Lead.Data["special_requests"] = text
		default:
			sess.Lead.Data["user_response"] = text
		}
	case protocol.InputNumberConfirmation:
		if phone := inputText(req.InputData); phone != "" {
			sess.Lead.Phone = phone
		}
	case protocol.InputButton:
		value := inputText(req.InputData)
		switch state {
		case stateBookingStart:
			sess.Lead.Data["property_interest"] = value
		case stateBookingPropertyInterest:
			sess.Lead.Data["visit_date"] = value
		case stateBookingDatePreference:
			sess.Lead.Data["visit_time"] = value
		case stateAvailabilityBudget:
			sess.Lead.Data["property_type"] = value
		case stateAvailabilityPropertyType:
			sess.Lead.Data["timeline"] = value
		}
	}
}

// inputText renders any input payload as a display string.
func inputText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, inputText(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", t)
	}
}

// =============================================================================
// HTTP HELPERS
// =============================================================================

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}
