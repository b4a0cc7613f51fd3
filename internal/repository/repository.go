// Package repository persists posts and users and mirrors published posts.
package repository

import (
	"context"
	"fmt"

	"github.com/debemdeboas/the-press/internal/model"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrNotOwner     = errors.New("post is owned by another user")

	// ErrPersistenceUnavailable matches every failure of the underlying store.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)

var repoLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}

type PostRepository interface {
	// Init loads published posts and keeps them fresh until ctx is done.
	Init(ctx context.Context) error

	GetPosts() ([]model.Post, map[string]*model.Post, error)
	GetPostList() []model.Post

	ReadPost(ctx context.Context, id model.PostID) (*model.Post, error)
	NewPost() *model.Post
	SavePost(ctx context.Context, post *model.Post) error
	SetPostContent(ctx context.Context, post *model.Post) error

	PublishPost(ctx context.Context, id model.PostID) (*model.Post, error)
	PublishPostAs(ctx context.Context, id model.PostID, owner model.UserID) (*model.Post, error)

	FindDraftsByAuthor(ctx context.Context, owner model.UserID) ([]model.Post, error)
	FindDraftsByAuthorEmail(ctx context.Context, email string) ([]model.Post, error)

	UpsertUser(ctx context.Context, user model.User) error
	DeleteUser(ctx context.Context, id model.UserID) error

	// SetReloadNotifier sets a function that is called when a published post's content changes.
	SetReloadNotifier(notifier func(model.PostID))
}

type persistenceError struct {
	op  string
	err error
}

func (e *persistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *persistenceError) Unwrap() error {
	return e.err
}

func (e *persistenceError) Is(target error) bool {
	return target == ErrPersistenceUnavailable
}

func unavailable(err error, op string) error {
	return errors.WithStack(&persistenceError{op: op, err: err})
}

func notFound(id model.PostID) error {
	return errors.Wrapf(ErrPostNotFound, "post %s", id)
}
