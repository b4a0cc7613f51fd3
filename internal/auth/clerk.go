package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	clerkuser "github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/debemdeboas/the-press/internal/config"
	"github.com/debemdeboas/the-press/internal/model"
	"github.com/rs/zerolog"
)

// UserStore keeps the local copy of Clerk users that posts are joined against.
type UserStore interface {
	UpsertUser(ctx context.Context, user model.User) error
	DeleteUser(ctx context.Context, id model.UserID) error
}

type ClerkAuthProvider struct {
	users UserStore

	cookieExtractor clerkhttp.AuthorizationOption
	getUser         func(ctx context.Context, id string) (*clerk.User, error)
}

func NewClerkAuthProvider(clerkKey string, users UserStore) *ClerkAuthProvider {
	clerk.SetKey(clerkKey)

	return &ClerkAuthProvider{
		users: users,
		cookieExtractor: clerkhttp.AuthorizationJWTExtractor(func(r *http.Request) string {
			cookie, err := r.Cookie(config.CookieClerk)
			if err != nil || cookie == nil {
				return ""
			}
			return cookie.Value
		}),
		getUser: clerkuser.Get,
	}
}

func (c *ClerkAuthProvider) WithHeaderAuthorization() func(http.Handler) http.Handler {
	return clerkhttp.WithHeaderAuthorization(c.cookieExtractor)
}

func (c *ClerkAuthProvider) ResolveSession(r *http.Request) (*model.Session, error) {
	ctx := r.Context()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	claims, ok := clerk.SessionClaimsFromContext(ctx)
	if !ok || claims.Subject == "" {
		return nil, ErrNoSession
	}

	usr, err := c.getUser(ctx, claims.Subject)
	if err != nil {
		var apiErr *clerk.APIErrorResponse
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusNotFound {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("error fetching clerk user %s: %w", claims.Subject, err)
	}

	return &model.Session{User: userFromClerk(usr)}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func userFromClerk(usr *clerk.User) model.User {
	u := model.User{
		ID:       model.UserID(usr.ID),
		Username: deref(usr.Username),
		Name:     strings.TrimSpace(deref(usr.FirstName) + " " + deref(usr.LastName)),
	}

	primary := deref(usr.PrimaryEmailAddressID)
	for _, email := range usr.EmailAddresses {
		if email == nil {
			continue
		}
		if u.Email == "" || email.ID == primary {
			u.Email = email.EmailAddress
		}
	}

	return u
}

type webhookEvent struct {
	Data clerk.User `json:"data"`
	Type string     `json:"type"`
}

// HandleWebhookUser mirrors Clerk user lifecycle events into the users table.
func (c *ClerkAuthProvider) HandleWebhookUser(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	var payload webhookEvent
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		l.Warn().Err(err).Msg("Error decoding event payload")
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if payload.Data.ID == "" {
		http.Error(w, "Missing user id", http.StatusBadRequest)
		return
	}

	el := l.With().Str("event", payload.Type).Str("user_id", payload.Data.ID).Logger()
	l = &el

	switch payload.Type {
	case "user.created", "user.updated":
		if err := c.users.UpsertUser(r.Context(), userFromClerk(&payload.Data)); err != nil {
			l.Error().Err(err).Msg("Error saving user")
			http.Error(w, "Error saving user", http.StatusInternalServerError)
			return
		}

		l.Info().Msg("User saved")
		if payload.Type == "user.created" {
			w.WriteHeader(http.StatusCreated)
		} else {
			w.WriteHeader(http.StatusNoContent)
		}

	case "user.deleted":
		if err := c.users.DeleteUser(r.Context(), model.UserID(payload.Data.ID)); err != nil {
			l.Error().Err(err).Msg("Error deleting user")
			http.Error(w, "Error deleting user", http.StatusInternalServerError)
			return
		}

		l.Info().Msg("User deleted")
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Invalid event type", http.StatusBadRequest)
	}
}
