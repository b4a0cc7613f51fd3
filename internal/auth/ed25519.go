package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/debemdeboas/the-press/internal/config"
	"github.com/debemdeboas/the-press/internal/model"
	"github.com/rs/zerolog"
)

// Ed25519AuthProvider implements AuthProvider for a single operator who
// proves possession of a private key by signing a random challenge.
type Ed25519AuthProvider struct {
	publicKey  ed25519.PublicKey
	headerName string
	cookieName string
	user       model.User

	mu        sync.RWMutex
	challenge []byte
}

func NewEd25519AuthProvider(publicKeyPEM string, headerName string, user model.User) (*Ed25519AuthProvider, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing the public key")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	publicKey, ok := pub.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("key is not an Ed25519 public key")
	}

	p := &Ed25519AuthProvider{
		publicKey:  publicKey,
		headerName: headerName,
		cookieName: config.CookieAuthToken,
		user:       user,
	}
	if err := p.RefreshChallenge(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Ed25519AuthProvider) signatureFromRequest(r *http.Request) []byte {
	l := zerolog.Ctx(r.Context())

	// A header, when present, is the only credential considered.
	if authHeader := r.Header.Get(p.headerName); p.headerName != "" && authHeader != "" {
		signature, err := base64.StdEncoding.DecodeString(strings.TrimSpace(authHeader))
		if err != nil {
			l.Debug().Err(err).Msg("Failed to decode signature from header")
			return nil
		}
		return signature
	}

	if cookie, err := r.Cookie(p.cookieName); err == nil && cookie.Value != "" {
		signature, err := base64.StdEncoding.DecodeString(cookie.Value)
		if err == nil {
			return signature
		}
		l.Debug().Err(err).Msg("Failed to decode signature from cookie")
	}

	return nil
}

// WithHeaderAuthorization returns middleware that puts the operator's user ID
// in the request context when the request carries a valid signature.
func (p *Ed25519AuthProvider) WithHeaderAuthorization() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if signature := p.signatureFromRequest(r); len(signature) > 0 && p.Verify(signature) {
				ctx := ContextWithUserID(r.Context(), p.user.ID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (p *Ed25519AuthProvider) ResolveSession(r *http.Request) (*model.Session, error) {
	if err := r.Context().Err(); err != nil {
		return nil, err
	}

	userID, ok := UserIDFromContext(r.Context())
	if !ok || userID == "" || userID != p.user.ID {
		return nil, ErrNoSession
	}

	return &model.Session{User: p.user}, nil
}

// HandleWebhookUser answers 404: the single operator has no user lifecycle
// to mirror.
func (p *Ed25519AuthProvider) HandleWebhookUser(w http.ResponseWriter, r *http.Request) {
	http.NotFound(w, r)
}

// Verify checks signature against the current challenge.
func (p *Ed25519AuthProvider) Verify(signature []byte) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return ed25519.Verify(p.publicKey, p.challenge, signature)
}

func (p *Ed25519AuthProvider) GetChallenge() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]byte(nil), p.challenge...)
}

// RefreshChallenge replaces the challenge, invalidating every issued signature.
func (p *Ed25519AuthProvider) RefreshChallenge() error {
	challenge := make([]byte, 32)
	if _, err := rand.Read(challenge); err != nil {
		authLogger.Error().Err(err).Msg("Failed to generate challenge")
		return fmt.Errorf("failed to generate challenge: %w", err)
	}

	p.mu.Lock()
	p.challenge = challenge
	p.mu.Unlock()
	return nil
}

// User returns the account a valid signature maps to.
func (p *Ed25519AuthProvider) User() model.User {
	return p.user
}
