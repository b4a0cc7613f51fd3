package main

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/the-press/internal/auth"
	"github.com/debemdeboas/the-press/internal/config"
	"github.com/debemdeboas/the-press/internal/model"
	"github.com/debemdeboas/the-press/internal/publish"
	"github.com/debemdeboas/the-press/internal/render"
	"github.com/debemdeboas/the-press/internal/repository"
	"github.com/debemdeboas/the-press/internal/sse"
	"github.com/debemdeboas/the-press/internal/theme"
	"github.com/debemdeboas/the-press/internal/util"
)

const draftsTopicParam = "drafts"

func (a *app) serveRobots(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, a.static, "robots.txt")
}

func (a *app) serveIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		*model.PageData
		Posts []model.Post
	}{
		PageData: model.NewPageData(r),
		Posts:    a.posts.GetPostList(),
	}

	w.Header().Set(config.HCType, config.CTypeHTML)
	if err := a.index.ExecuteTemplate(w, config.TemplateLayout, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Error rendering index")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
	}
}

// visiblePost loads id for state. Posts the viewer may not see are reported
// as missing so their existence is not disclosed.
func (a *app) visiblePost(ctx context.Context, state auth.SessionState, id model.PostID) (*model.Post, int) {
	if id == "" {
		return nil, http.StatusNotFound
	}

	post, err := a.posts.ReadPost(ctx, id)
	switch {
	case errors.Is(err, repository.ErrPostNotFound):
		return nil, http.StatusNotFound
	case err != nil:
		zerolog.Ctx(ctx).Error().Err(err).Str("post_id", string(id)).Msg("Error reading post")
		return nil, http.StatusInternalServerError
	case !auth.CanViewPost(state, post):
		return nil, http.StatusNotFound
	}
	return post, http.StatusOK
}

func (a *app) renderedPost(r *http.Request, state auth.SessionState, id model.PostID) (*model.Post, int) {
	post, status := a.visiblePost(r.Context(), state, id)
	if post == nil {
		return nil, status
	}

	html, info := render.RenderMarkdownCached(post.Markdown, post.MDContentHash, theme.SyntaxThemeFromRequest(r))
	post.Content = template.HTML(html)
	post.Info = info
	return post, http.StatusOK
}

func writeStatus(w http.ResponseWriter, status int) {
	if status == http.StatusNotFound {
		http.Error(w, "404 page not found", status)
		return
	}
	http.Error(w, config.ErrInternalServerError, status)
}

func (a *app) servePost(w http.ResponseWriter, r *http.Request, state auth.SessionState) {
	post, status := a.renderedPost(r, state, model.PostID(r.PathValue("id")))
	if post == nil {
		writeStatus(w, status)
		return
	}

	data := struct {
		*model.PageData
		Post *model.Post
	}{
		PageData: model.NewPageData(r),
		Post:     post,
	}
	if u, ok := state.User(); ok {
		data.Viewer = &u
	}

	w.Header().Set(config.HCType, config.CTypeHTML)
	if post.IsDraft() {
		w.Header().Set(config.HCacheControl, "no-store")
	}
	if err := a.post.ExecuteTemplate(w, config.TemplateLayout, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Error rendering post")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
	}
}

// servePostPartial renders only the post body, for live reload.
func (a *app) servePostPartial(w http.ResponseWriter, r *http.Request, state auth.SessionState) {
	post, status := a.renderedPost(r, state, model.PostID(r.URL.Query().Get("post")))
	if post == nil {
		writeStatus(w, status)
		return
	}

	w.Header().Set(config.HCType, config.CTypeHTML)
	if err := a.post.ExecuteTemplate(w, "post-body", post); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Error rendering post fragment")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
	}
}

func serveSyntaxTheme(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("theme")
	if name == "" {
		http.Error(w, "theme required", http.StatusBadRequest)
		return
	}

	css := []byte(theme.GenerateSyntaxCSS(name))
	w.Header().Set(config.HCType, config.CTypeCSS)
	w.Header().Set(config.HETag, `"`+util.ContentHash(css)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(css)
}

// serveEvents streams a topic. "drafts" is always the caller's own drafts
// topic; "post:<id>" requires that the caller may see the post.
func (a *app) serveEvents(w http.ResponseWriter, r *http.Request, state auth.SessionState) {
	topic := r.URL.Query().Get("topic")

	switch {
	case topic == draftsTopicParam:
		if !state.IsAuthenticated() {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		topic = sse.DraftsTopic(state.UserID())

	case strings.HasPrefix(topic, "post:"):
		id := model.PostID(strings.TrimPrefix(topic, "post:"))
		if _, status := a.visiblePost(r.Context(), state, id); status != http.StatusOK {
			writeStatus(w, status)
			return
		}

	default:
		http.Error(w, "topic must be drafts or post:<id>", http.StatusBadRequest)
		return
	}

	a.clients.Serve(w, r, topic)
}

func serveSession(w http.ResponseWriter, r *http.Request, state auth.SessionState) {
	w.Header().Set(config.HCacheControl, "no-store")
	publish.WriteJSON(w, http.StatusOK, state)
}
