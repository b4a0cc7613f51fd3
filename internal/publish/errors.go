package publish

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/debemdeboas/the-press/internal/auth"
	"github.com/debemdeboas/the-press/internal/config"
	"github.com/debemdeboas/the-press/internal/repository"
	"github.com/rs/zerolog"
)

type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		publishLogger.Error().Err(err).Msg("Error encoding response")
	}
}

func WriteError(w http.ResponseWriter, status int, code, msg string) {
	WriteJSON(w, status, ErrorBody{Error: msg, Code: code})
}

// writeFailure maps repository and auth errors onto the JSON error schema.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	l := zerolog.Ctx(r.Context())

	switch {
	case errors.Is(err, repository.ErrPostNotFound):
		WriteError(w, http.StatusNotFound, config.CodeNotFound, "post not found")
	case errors.Is(err, auth.ErrUnauthenticated):
		WriteError(w, http.StatusUnauthorized, config.CodeUnauthenticated, "sign in to continue")
	case errors.Is(err, repository.ErrNotOwner), errors.Is(err, auth.ErrForbidden):
		WriteError(w, http.StatusForbidden, config.CodeForbidden, "post belongs to another user")
	default:
		l.Error().Stack().Err(err).Msg("Persistence failure")
		WriteError(w, http.StatusInternalServerError, config.CodePersistenceUnavailable, "storage is unavailable, try again later")
	}
}
