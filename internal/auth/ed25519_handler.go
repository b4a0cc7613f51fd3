package auth

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/debemdeboas/the-press/internal/config"
	"github.com/rs/zerolog"
)

const signatureMaxAge = 24 * 3600

func writeChallenge(w http.ResponseWriter, challenge []byte) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.Header().Set(config.HCacheControl, "no-store")
	json.NewEncoder(w).Encode(map[string]string{
		"challenge": base64.StdEncoding.EncodeToString(challenge),
	})
}

// ServeChallenge answers with the challenge the operator has to sign.
func (p *Ed25519AuthProvider) ServeChallenge(w http.ResponseWriter, r *http.Request) {
	writeChallenge(w, p.GetChallenge())
}

// RotateChallenge signs every operator out and answers with the new challenge.
func (p *Ed25519AuthProvider) RotateChallenge(w http.ResponseWriter, r *http.Request) {
	if err := p.RefreshChallenge(); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to refresh challenge")
		http.Error(w, config.ErrRefreshChallengeFmt, http.StatusInternalServerError)
		return
	}

	zerolog.Ctx(r.Context()).Info().Msg("Challenge rotated")
	writeChallenge(w, p.GetChallenge())
}

func (p *Ed25519AuthProvider) sessionCookie(r *http.Request, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     p.cookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   r.TLS != nil,
		MaxAge:   maxAge,
	}
}

// SignIn checks the signature in the auth header and keeps it in a cookie so
// page loads carry it. htmx callers are sent on to the redirect parameter.
func (p *Ed25519AuthProvider) SignIn(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	authHeader := strings.TrimSpace(r.Header.Get(p.headerName))
	if authHeader == "" {
		http.Error(w, config.ErrAuthHeaderRequired, http.StatusUnauthorized)
		return
	}

	signature, err := base64.StdEncoding.DecodeString(authHeader)
	if err != nil {
		l.Warn().Err(err).Msg("Failed to decode signature")
		http.Error(w, config.ErrInvalidSignatureFormat, http.StatusUnauthorized)
		return
	}

	if !p.Verify(signature) {
		l.Warn().Msg("Signature verification failed")
		http.Error(w, config.ErrInvalidSignature, http.StatusUnauthorized)
		return
	}

	http.SetCookie(w, p.sessionCookie(r, authHeader, signatureMaxAge))
	w.Header().Set(config.HHxRedirect, safeRedirect(r.URL.Query().Get("redirect")))

	l.Info().Str("user_id", string(p.user.ID)).Msg("Operator signed in")
	w.WriteHeader(http.StatusNoContent)
}

// SignOut drops this browser's cookie. Other holders of the signature stay
// signed in until the challenge rotates.
func (p *Ed25519AuthProvider) SignOut(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, p.sessionCookie(r, "", -1))
	w.Header().Set(config.HHxRedirect, "/")
	w.WriteHeader(http.StatusNoContent)
}

// safeRedirect only follows local paths.
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}

func (p *Ed25519AuthProvider) loginPage(tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := struct {
			RedirectURL string
		}{
			RedirectURL: safeRedirect(r.URL.Query().Get("redirect")),
		}

		var buf bytes.Buffer
		if err := tmpl.ExecuteTemplate(&buf, config.TemplateNameAuth, data); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to render auth template")
			http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
			return
		}

		w.Header().Set(config.HCType, config.CTypeHTML)
		w.Header().Set(config.HCacheControl, "no-store")
		buf.WriteTo(w)
	}
}
