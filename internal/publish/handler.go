// Package publish serves the write side of the blog: creating drafts, editing
// them and publishing them.
package publish

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/debemdeboas/the-press/internal/auth"
	"github.com/debemdeboas/the-press/internal/config"
	"github.com/debemdeboas/the-press/internal/model"
	"github.com/debemdeboas/the-press/internal/repository"
	"github.com/debemdeboas/the-press/internal/sse"
	"github.com/debemdeboas/the-press/internal/util"
	"github.com/rs/zerolog"
)

var publishLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	publishLogger = l
}

const maxContentBytes = 1 << 20

// Store is the part of the post repository the write endpoints need.
type Store interface {
	NewPost() *model.Post
	ReadPost(ctx context.Context, id model.PostID) (*model.Post, error)
	SavePost(ctx context.Context, post *model.Post) error
	SetPostContent(ctx context.Context, post *model.Post) error
	PublishPost(ctx context.Context, id model.PostID) (*model.Post, error)
	PublishPostAs(ctx context.Context, id model.PostID, owner model.UserID) (*model.Post, error)
}

type Broadcaster interface {
	Broadcast(topic, msg string) int
}

type Handler struct {
	store        Store
	mirror       repository.Mirror
	events       Broadcaster
	requireOwner bool
}

// NewHandler builds the write endpoints. With requireOwner false any caller may
// publish any post. A nil mirror disables mirroring.
func NewHandler(store Store, mirror repository.Mirror, events Broadcaster, requireOwner bool) *Handler {
	if mirror == nil {
		mirror = repository.NopMirror{}
	}
	return &Handler{
		store:        store,
		mirror:       mirror,
		events:       events,
		requireOwner: requireOwner,
	}
}

func (h *Handler) RequireOwner() bool {
	return h.requireOwner
}

// ServePublish flips the post's published flag and answers with the updated post.
func (h *Handler) ServePublish(w http.ResponseWriter, r *http.Request, state auth.SessionState) {
	id := model.PostID(r.PathValue("id"))
	l := zerolog.Ctx(r.Context()).With().Str("post_id", string(id)).Logger()

	if id == "" {
		WriteError(w, http.StatusBadRequest, config.CodeBadRequest, "post id is required")
		return
	}

	var (
		post *model.Post
		err  error
	)
	if h.requireOwner {
		if !state.IsAuthenticated() {
			writeFailure(w, r, auth.ErrUnauthenticated)
			return
		}
		post, err = h.store.PublishPostAs(r.Context(), id, state.UserID())
	} else {
		post, err = h.store.PublishPost(r.Context(), id)
	}
	if err != nil {
		l.Info().Err(err).Msg("Publish rejected")
		writeFailure(w, r, err)
		return
	}

	h.afterPublish(r.Context(), l, post)
	w.Header().Set(config.HHxTrigger, "published")
	WriteJSON(w, http.StatusOK, post)
}

// afterPublish runs the publish side effects. Their failures are logged only.
func (h *Handler) afterPublish(ctx context.Context, l zerolog.Logger, post *model.Post) {
	if h.events != nil {
		n := h.events.Broadcast(sse.DraftsTopic(post.Owner), "published:"+string(post.ID))
		l.Debug().Int("clients", n).Msg("Publish event sent")
	}

	if err := h.mirror.MirrorPost(ctx, post); err != nil {
		l.Warn().Err(err).Msg("Error mirroring published post")
	}
}

func readContent(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxContentBytes)
	if err := r.ParseForm(); err != nil {
		if errors.As(err, new(*http.MaxBytesError)) {
			WriteError(w, http.StatusRequestEntityTooLarge, config.CodeTooLarge, "content exceeds 1 MiB")
			return "", false
		}
		WriteError(w, http.StatusBadRequest, config.CodeBadRequest, "malformed form body")
		return "", false
	}

	content := r.PostForm.Get("content")
	if strings.TrimSpace(content) == "" {
		WriteError(w, http.StatusBadRequest, config.CodeBadRequest, "content is required")
		return "", false
	}
	return content, true
}

// ServeCreate stores the form's content as a new draft owned by the caller.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request, state auth.SessionState) {
	if !state.IsAuthenticated() {
		writeFailure(w, r, auth.ErrUnauthenticated)
		return
	}

	content, ok := readContent(w, r)
	if !ok {
		return
	}

	post := h.store.NewPost()
	post.Owner = state.UserID()
	post.Markdown = []byte(content)
	post.Title = util.PostTitle(post.Markdown, post.CreatedDate)

	if err := h.store.SavePost(r.Context(), post); err != nil {
		writeFailure(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("post_id", string(post.ID)).Msg("Draft created")
	WriteJSON(w, http.StatusCreated, post)
}

// ServeUpdate replaces a post's content. Only its owner may do so.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request, state auth.SessionState) {
	id := model.PostID(r.PathValue("id"))

	post, err := h.store.ReadPost(r.Context(), id)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	// Drafts stay hidden from everyone but their owner.
	if !auth.CanViewPost(state, post) {
		writeFailure(w, r, repository.ErrPostNotFound)
		return
	}
	if err := auth.CanModifyPost(state, post); err != nil {
		writeFailure(w, r, err)
		return
	}

	content, ok := readContent(w, r)
	if !ok {
		return
	}

	post.Markdown = []byte(content)
	post.Title = util.PostTitle(post.Markdown, post.CreatedDate)
	if err := h.store.SetPostContent(r.Context(), post); err != nil {
		writeFailure(w, r, err)
		return
	}

	if h.events != nil {
		h.events.Broadcast(sse.PostTopic(post.ID), "reload")
	}
	WriteJSON(w, http.StatusOK, post)
}
