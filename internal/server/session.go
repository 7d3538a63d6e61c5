package server

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// lead holds the contact details and flow data collected for one session.
type lead struct {
	Name     string
	Email    string
	Phone    string
	Category string
	// Data accumulates flow answers (budget, location, query, ...).
	Data map[string]string
}

// session is one live conversation.
type session struct {
	ID        string
	State     flowState
	Lead      lead
	CreatedAt time.Time
	Ended     bool
}

// context builds the placeholder substitution map for message templating.
func (s *session) context() map[string]string {
	ctx := map[string]string{
		"name":  s.Lead.Name,
		"email": s.Lead.Email,
		"phone": s.Lead.Phone,
	}
	if ctx["name"] == "" {
		ctx["name"] = "there"
	}
	for k, v := range s.Lead.Data {
		ctx[k] = v
	}
	ctx["preferences_summary"] = summarize(s.Lead.Data)
	ctx["booking_summary"] = summarize(s.Lead.Data)
	ctx["search_summary"] = summarize(s.Lead.Data)
	return ctx
}

// sessionStore keeps live sessions in memory.
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*session)}
}

func (ss *sessionStore) create() *session {
	s := &session{
		ID:        uuid.NewString(),
		State:     stateGreeting,
		Lead:      lead{Data: make(map[string]string)},
		CreatedAt: time.Now(),
	}
	ss.mu.Lock()
	ss.sessions[s.ID] = s
	ss.mu.Unlock()
	return s
}

func (ss *sessionStore) get(id string) (*session, bool) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	s, ok := ss.sessions[id]
	return s, ok
}

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	nonDigitPattern = regexp.MustCompile(`[^0-9]`)
)

// validateLead checks a lead submission. On success the cleaned values are
// returned; on failure the error messages to bounce back.
func validateLead(name, email, phone string) (cleanName, cleanEmail, cleanPhone string, errs []string) {
	cleanName = strings.TrimSpace(name)
	if len(cleanName) < 2 {
		errs = append(errs, msgInvalidName)
	}

	cleanEmail = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(cleanEmail) {
		errs = append(errs, msgInvalidEmail)
	}

	cleanPhone = nonDigitPattern.ReplaceAllString(strings.TrimSpace(phone), "")
	if len(cleanPhone) != 10 {
		errs = append(errs, msgInvalidPhone)
	}
	return
}
