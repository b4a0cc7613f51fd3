// Package drafts serves the listing of the signed-in user's unpublished posts.
//
// The listing is gated twice: once when the page is rendered on the server and
// again when the delivered page asks for its fragment. Both gates go through
// auth.CanViewDrafts.
package drafts

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/debemdeboas/the-press/internal/auth"
	"github.com/debemdeboas/the-press/internal/config"
	"github.com/debemdeboas/the-press/internal/model"
	"github.com/rs/zerolog"
)

var draftsLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	draftsLogger = l
}

// Finder is the part of the post repository the listing needs.
type Finder interface {
	FindDraftsByAuthor(ctx context.Context, owner model.UserID) ([]model.Post, error)
	FindDraftsByAuthorEmail(ctx context.Context, email string) ([]model.Post, error)
}

type Handler struct {
	finder        Finder
	provider      auth.AuthProvider
	clientTimeout time.Duration

	page    *template.Template
	partial *template.Template
}

type pageData struct {
	*model.PageData
	View View
}

// NewHandler parses the drafts templates from fsys. clientTimeout bounds the
// session lookup made for the fragment.
func NewHandler(finder Finder, provider auth.AuthProvider, fsys fs.FS, clientTimeout time.Duration) (*Handler, error) {
	page, err := template.ParseFS(fsys,
		config.TemplatesLocalDir+"/"+config.TemplateLayout,
		config.TemplatesLocalDir+"/"+config.TemplateDrafts,
		config.TemplatesLocalDir+"/"+config.TemplateDraftsPartial,
	)
	if err != nil {
		return nil, fmt.Errorf("error loading drafts templates: %w", err)
	}

	partial, err := template.ParseFS(fsys, config.TemplatesLocalDir+"/"+config.TemplateDraftsPartial)
	if err != nil {
		return nil, fmt.Errorf("error loading drafts fragment template: %w", err)
	}

	return &Handler{
		finder:        finder,
		provider:      provider,
		clientTimeout: clientTimeout,
		page:          page,
		partial:       partial,
	}, nil
}

func (h *Handler) find(ctx context.Context, state auth.SessionState) ([]model.Post, error) {
	user, _ := state.User()
	if user.ID == "" {
		return h.finder.FindDraftsByAuthorEmail(ctx, user.Email)
	}
	return h.finder.FindDraftsByAuthor(ctx, user.ID)
}

// List is the server-side gate. Anything short of an authenticated session is
// denied with 403 and no drafts; a failed lookup is 500 and never an empty list.
func (h *Handler) List(ctx context.Context, state auth.SessionState) (View, int) {
	if auth.CanViewDrafts(state) != auth.Allow {
		return Guard(auth.Unauthenticated(), nil, nil), http.StatusForbidden
	}

	drafts, err := h.find(ctx, state)
	if err != nil {
		draftsLogger.Error().Err(err).Str("user_id", string(state.UserID())).Msg("Error listing drafts")
		return Guard(state, nil, err), http.StatusInternalServerError
	}
	return Guard(state, drafts, nil), http.StatusOK
}

// ServeDraftsPage renders the full drafts page for state.
func (h *Handler) ServeDraftsPage(w http.ResponseWriter, r *http.Request, state auth.SessionState) {
	view, status := h.List(r.Context(), state)

	data := pageData{PageData: model.NewPageData(r), View: view}
	if u, ok := state.User(); ok {
		data.Viewer = &u
	}

	h.render(w, r, h.page, config.TemplateLayout, status, data)
}

// ServeDraftsPartial re-checks the session for a page that is already on the
// client and renders the fragment for whatever state it is in.
func (h *Handler) ServeDraftsPartial(w http.ResponseWriter, r *http.Request) {
	state := auth.ClientSessionState(h.provider, r, h.clientTimeout)

	var (
		drafts []model.Post
		err    error
	)
	if auth.CanViewDrafts(state) == auth.Allow {
		drafts, err = h.find(r.Context(), state)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("Error listing drafts")
		}
	}

	h.render(w, r, h.partial, config.TemplateNameDrafts, http.StatusOK, Guard(state, drafts, err))
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl *template.Template, name string, status int, data any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("template", name).Msg("Error rendering drafts")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HCType, config.CTypeHTML)
	w.Header().Set(config.HCacheControl, "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
