package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/debemdeboas/the-press/internal/model"
	"github.com/rs/zerolog"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("not allowed for this user")
)

type Status int

const (
	// StatusLoading means resolution has not completed. It grants nothing.
	StatusLoading Status = iota
	StatusUnauthenticated
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "loading"
	}
}

// SessionState is the resolved authentication state of one request.
// Session is non-nil exactly when Status is StatusAuthenticated.
type SessionState struct {
	Status  Status
	Session *model.Session
}

func Loading() SessionState {
	return SessionState{Status: StatusLoading}
}

func Unauthenticated() SessionState {
	return SessionState{Status: StatusUnauthenticated}
}

func Authenticated(s *model.Session) SessionState {
	if s == nil {
		return Unauthenticated()
	}
	return SessionState{Status: StatusAuthenticated, Session: s}
}

// StateFromResolution maps a provider result to a state. An absent session is
// Unauthenticated; an interrupted or failed lookup is still Loading.
func StateFromResolution(sess *model.Session, err error) SessionState {
	switch {
	case err == nil:
		return Authenticated(sess)
	case errors.Is(err, ErrNoSession):
		return Unauthenticated()
	default:
		return Loading()
	}
}

func (s SessionState) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated && s.Session != nil
}

func (s SessionState) User() (model.User, bool) {
	if !s.IsAuthenticated() {
		return model.User{}, false
	}
	return s.Session.User, true
}

func (s SessionState) UserID() model.UserID {
	u, _ := s.User()
	return u.ID
}

func (s SessionState) MarshalJSON() ([]byte, error) {
	out := struct {
		Status string      `json:"status"`
		User   *model.User `json:"user,omitempty"`
	}{
		Status: s.Status.String(),
	}
	if u, ok := s.User(); ok {
		out.User = &u
	}
	return json.Marshal(out)
}

type Decision int

const (
	Pending Decision = iota
	Deny
	Allow
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "pending"
	}
}

// CanViewDrafts is the single gate for the draft listing, both when the page
// is rendered and when the delivered page re-checks the session.
func CanViewDrafts(state SessionState) Decision {
	switch state.Status {
	case StatusAuthenticated:
		u, ok := state.User()
		if !ok || (u.ID == "" && u.Email == "") {
			return Deny
		}
		return Allow
	case StatusUnauthenticated:
		return Deny
	default:
		return Pending
	}
}

// CanViewPost allows published posts to everyone and drafts to their owner.
func CanViewPost(state SessionState, post *model.Post) bool {
	if post == nil {
		return false
	}
	return post.Published || post.OwnedBy(state.UserID())
}

func CanModifyPost(state SessionState, post *model.Post) error {
	if !state.IsAuthenticated() {
		return ErrUnauthenticated
	}
	if post == nil || !post.OwnedBy(state.UserID()) {
		return ErrForbidden
	}
	return nil
}

// SessionHandlerFunc receives the request's session explicitly.
type SessionHandlerFunc func(w http.ResponseWriter, r *http.Request, state SessionState)

func ResolveState(p AuthProvider, r *http.Request) SessionState {
	if p == nil {
		return Unauthenticated()
	}

	sess, err := p.ResolveSession(r)
	state := StateFromResolution(sess, err)
	if err != nil && state.Status == StatusLoading {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Session resolution did not complete")
	}
	return state
}

// WithSession resolves the session once and hands it to h.
func WithSession(p AuthProvider, h SessionHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(w, r, ResolveState(p, r))
	}
}

// ClientSessionState re-resolves the session for a page that is already on
// the client. Resolution that does not finish within timeout stays Loading.
func ClientSessionState(p AuthProvider, r *http.Request, timeout time.Duration) SessionState {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	return ResolveState(p, r.WithContext(ctx))
}
