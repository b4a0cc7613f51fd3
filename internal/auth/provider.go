// Package auth adapts external session authorities and decides what a session may see.
package auth

import (
	"errors"
	"net/http"

	"github.com/debemdeboas/the-press/internal/model"
	"github.com/rs/zerolog"
)

// ErrNoSession means the request carries no valid session.
var ErrNoSession = errors.New("no session")

var authLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	authLogger = l
}

type AuthProvider interface {
	WithHeaderAuthorization() func(http.Handler) http.Handler

	// ResolveSession returns ErrNoSession when the request is anonymous. Any
	// other error means the session could not be determined.
	ResolveSession(r *http.Request) (*model.Session, error)

	HandleWebhookUser(w http.ResponseWriter, r *http.Request)
}
