package repository

import (
	"context"
	"database/sql"
	"slices"
	"sync"
	"time"

	"github.com/debemdeboas/the-press/internal/cache"
	"github.com/debemdeboas/the-press/internal/config"
	"github.com/debemdeboas/the-press/internal/db"
	"github.com/debemdeboas/the-press/internal/model"
	"github.com/debemdeboas/the-press/internal/util"
	"github.com/debemdeboas/the-press/internal/util/compression"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const reloadInterval = 10 * time.Second

const selectPost = `
SELECT p.id, p.title, p.content, p.md_content_hash, p.published, p.user_id,
       COALESCE(NULLIF(u.name, ''), u.username, ''),
       p.created_at, p.modified_at
FROM posts p
LEFT JOIN users u ON u.id = p.user_id`

type DBPostRepository struct { // implements PostRepository
	postsCache *cache.Cache[string, *model.Post]

	mu               sync.RWMutex
	postsCacheSorted []model.Post
	publishedCount   int
	lastModifiedTime *time.Time

	reloadNotifier func(model.PostID)

	db         db.Db
	compressor compression.Compressor
}

func NewDBPostRepository(db db.Db, compressor compression.Compressor) *DBPostRepository {
	if compressor == nil {
		compressor = compression.ZstdCompressor{}
	}

	return &DBPostRepository{
		postsCache: cache.NewCache[string, *model.Post](),

		db: db,

		compressor: compressor,
	}
}

func (r *DBPostRepository) Init(ctx context.Context) error {
	if err := r.refresh(ctx); err != nil {
		return err
	}

	go r.ReloadPosts(ctx)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *DBPostRepository) scanPost(row rowScanner) (*model.Post, error) {
	var post model.Post
	var compressed []byte

	err := row.Scan(
		&post.ID, &post.Title, &compressed, &post.MDContentHash, &post.Published, &post.Owner,
		&post.AuthorName, &post.CreatedDate, &post.ModifiedDate,
	)
	if err != nil {
		return nil, err
	}

	if len(compressed) > 0 {
		content, err := r.compressor.Decompress(compressed)
		if err != nil {
			return nil, errors.Wrapf(err, "error decompressing post %s", post.ID)
		}
		post.Markdown = content
	}
	post.Path = string(post.ID)

	return &post, nil
}

func (r *DBPostRepository) queryPosts(ctx context.Context, op string, query string, args ...any) ([]model.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(err, op)
	}
	defer rows.Close()

	posts := make([]model.Post, 0)
	for rows.Next() {
		post, err := r.scanPost(rows)
		if err != nil {
			return nil, unavailable(err, op)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err, op)
	}

	return posts, nil
}

// GetLatestModifiedTime returns how many posts are published and when the newest of them last changed.
func (r *DBPostRepository) GetLatestModifiedTime(ctx context.Context) (int, *time.Time, error) {
	var count int
	var latestTimeStr sql.NullString
	row := r.db.QueryRowContext(ctx, `SELECT COUNT(*), MAX(modified_at) FROM posts WHERE published = 1`)
	if err := row.Scan(&count, &latestTimeStr); err != nil {
		return 0, nil, unavailable(err, "error scanning latest modified time")
	}

	if !latestTimeStr.Valid {
		return count, nil, nil // NULL, so no published posts yet.
	}

	// The go-sqlite3 driver returns a string for MAX(), so we must parse it.
	timeFormats := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		time.RFC3339Nano,
		time.RFC3339,
	}

	var parseErr error
	for _, format := range timeFormats {
		latestTime, err := time.Parse(format, latestTimeStr.String)
		if err == nil {
			return count, &latestTime, nil
		}
		parseErr = err
	}

	return 0, nil, errors.Wrapf(parseErr, "error parsing latest modified time %q", latestTimeStr.String)
}

func (r *DBPostRepository) loadPublished(ctx context.Context) ([]model.Post, map[string]*model.Post, error) {
	posts, err := r.queryPosts(ctx, "error querying posts", selectPost+` WHERE p.published = 1`)
	if err != nil {
		return nil, nil, err
	}

	slices.SortStableFunc(posts, func(a, b model.Post) int {
		return -a.ModifiedDate.Compare(b.ModifiedDate)
	})

	postMap := make(map[string]*model.Post, len(posts))
	for i := range posts {
		postMap[string(posts[i].ID)] = &posts[i]
	}

	return posts, postMap, nil
}

// GetPosts returns published posts, newest first.
func (r *DBPostRepository) GetPosts() ([]model.Post, map[string]*model.Post, error) {
	return r.loadPublished(context.Background())
}

func (r *DBPostRepository) GetPostList() []model.Post {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.postsCacheSorted)
}

// ReadPost returns any post, draft or published. Callers decide who may see it.
func (r *DBPostRepository) ReadPost(ctx context.Context, id model.PostID) (*model.Post, error) {
	if cached, ok := r.postsCache.Get(string(id)); ok {
		post := *cached
		return &post, nil
	}

	post, err := r.scanPost(r.db.QueryRowContext(ctx, selectPost+` WHERE p.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	} else if err != nil {
		return nil, unavailable(err, "error reading post")
	}

	return post, nil
}

// refresh reloads the published cache and notifies about posts whose content changed.
func (r *DBPostRepository) refresh(ctx context.Context) error {
	count, latest, err := r.GetLatestModifiedTime(ctx)
	if err != nil {
		return err
	}

	posts, postMap, err := r.loadPublished(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	previous := r.postsCacheSorted
	r.postsCacheSorted = posts
	r.publishedCount = count
	r.lastModifiedTime = latest
	r.postsCache.SetTo(postMap)
	notifier := r.reloadNotifier
	r.mu.Unlock()

	cachedHashes := make(map[model.PostID]string, len(previous))
	for _, post := range previous {
		cachedHashes[post.ID] = post.MDContentHash
	}

	for _, post := range posts {
		hash, exists := cachedHashes[post.ID]
		switch {
		case !exists:
			repoLogger.Debug().Str("post_id", string(post.ID)).Str("title", post.Title).Msg("New published post")
		case hash != post.MDContentHash:
			repoLogger.Info().Str("post_id", string(post.ID)).Str("title", post.Title).Msg("Post content changed, reloading")
			if notifier != nil {
				go notifier(post.ID)
			}
		}
	}

	return nil
}

func (r *DBPostRepository) changed(ctx context.Context) (bool, error) {
	count, latest, err := r.GetLatestModifiedTime(ctx)
	if err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if count != r.publishedCount {
		return true, nil
	}
	if latest == nil || r.lastModifiedTime == nil {
		return latest != r.lastModifiedTime, nil
	}
	return latest.After(*r.lastModifiedTime), nil
}

// ReloadPosts polls for changes to published posts until ctx is done.
func (r *DBPostRepository) ReloadPosts(ctx context.Context) {
	ticker := time.NewTicker(reloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			repoLogger.Debug().Msg("Stopping post reload loop")
			return
		case <-ticker.C:
		}

		changed, err := r.changed(ctx)
		if err != nil {
			repoLogger.Error().Err(err).Msg("Error checking latest modification time")
			continue
		}
		if !changed {
			repoLogger.Debug().Msg("No posts modified, skipping reload")
			continue
		}

		repoLogger.Debug().Msg("Posts may have changed, performing full reload")
		if err := r.refresh(ctx); err != nil {
			repoLogger.Error().Err(err).Msg(config.ErrReloadingPosts)
		}
	}
}

func (r *DBPostRepository) SetReloadNotifier(notifier func(model.PostID)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloadNotifier = notifier
}

func (r *DBPostRepository) NewPost() *model.Post {
	now := time.Now().UTC()

	return &model.Post{
		ID: model.PostID(uuid.New().String()),

		CreatedDate:  now,
		ModifiedDate: now,
	}
}

func (r *DBPostRepository) compress(post *model.Post) ([]byte, error) {
	compressed, err := r.compressor.Compress(post.Markdown)
	if err != nil {
		return nil, errors.Wrap(err, "error compressing content")
	}

	// Hash the compressed bytes, the same thing that is stored.
	post.MDContentHash = util.ContentHash(compressed)
	return compressed, nil
}

// SavePost inserts a new post. New posts are always drafts.
func (r *DBPostRepository) SavePost(ctx context.Context, post *model.Post) error {
	if post.Owner == "" {
		return errors.Errorf("post %s has no owner", post.ID)
	}

	compressed, err := r.compress(post)
	if err != nil {
		return err
	}
	post.Published = false

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO posts (id, title, content, md_content_hash, published, user_id, created_at, modified_at) VALUES (?, ?, ?, ?, 0, ?, ?, ?)`,
		post.ID, post.Title, compressed, post.MDContentHash, post.Owner, post.CreatedDate, post.ModifiedDate,
	)
	if err != nil {
		return unavailable(err, "error saving post")
	}

	repoLogger.Debug().Str("post_id", string(post.ID)).Str("owner", string(post.Owner)).Msg("Draft saved")
	return nil
}

func (r *DBPostRepository) SetPostContent(ctx context.Context, post *model.Post) error {
	compressed, err := r.compress(post)
	if err != nil {
		return err
	}
	post.ModifiedDate = time.Now().UTC()

	res, err := r.db.ExecContext(ctx,
		`UPDATE posts SET title = ?, content = ?, md_content_hash = ?, modified_at = ? WHERE id = ?`,
		post.Title, compressed, post.MDContentHash, post.ModifiedDate, post.ID,
	)
	if err != nil {
		return unavailable(err, "error saving post")
	}
	if n, err := res.RowsAffected(); err != nil {
		return unavailable(err, "error saving post")
	} else if n == 0 {
		return notFound(post.ID)
	}

	repoLogger.Debug().Str("post_id", string(post.ID)).Msg("Post content set")

	if post.Published {
		if err := r.refresh(ctx); err != nil {
			repoLogger.Warn().Err(err).Msg("Error refreshing published posts")
		}
	}
	return nil
}

// PublishPost marks a post as published without checking who owns it.
func (r *DBPostRepository) PublishPost(ctx context.Context, id model.PostID) (*model.Post, error) {
	return r.updatePostPublished(ctx, id, "")
}

// PublishPostAs publishes id only if owner is its author.
func (r *DBPostRepository) PublishPostAs(ctx context.Context, id model.PostID, owner model.UserID) (*model.Post, error) {
	if owner == "" {
		return nil, errors.Wrapf(ErrNotOwner, "post %s", id)
	}
	return r.updatePostPublished(ctx, id, owner)
}

// updatePostPublished sets published and nothing else. An empty owner skips the ownership check.
func (r *DBPostRepository) updatePostPublished(ctx context.Context, id model.PostID, owner model.UserID) (*model.Post, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable(err, "error starting publish")
	}
	defer tx.Rollback()

	if owner != "" {
		var author model.UserID
		err := tx.QueryRowContext(ctx, `SELECT user_id FROM posts WHERE id = ?`, id).Scan(&author)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		} else if err != nil {
			return nil, unavailable(err, "error reading post owner")
		}
		if author != owner {
			return nil, errors.Wrapf(ErrNotOwner, "post %s", id)
		}
	}

	res, err := tx.ExecContext(ctx, `UPDATE posts SET published = 1 WHERE id = ?`, id)
	if err != nil {
		return nil, unavailable(err, "error publishing post")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, unavailable(err, "error publishing post")
	}
	if n == 0 {
		return nil, notFound(id)
	}

	post, err := r.scanPost(tx.QueryRowContext(ctx, selectPost+` WHERE p.id = ?`, id))
	if err != nil {
		return nil, unavailable(err, "error reading published post")
	}

	if err := tx.Commit(); err != nil {
		return nil, unavailable(err, "error committing publish")
	}

	repoLogger.Info().Str("post_id", string(id)).Str("owner", string(post.Owner)).Msg("Post published")

	if err := r.refresh(ctx); err != nil {
		repoLogger.Warn().Err(err).Msg("Error refreshing published posts")
	}
	return post, nil
}

// FindDraftsByAuthor lists owner's unpublished posts in insertion order.
func (r *DBPostRepository) FindDraftsByAuthor(ctx context.Context, owner model.UserID) ([]model.Post, error) {
	if owner == "" {
		return []model.Post{}, nil
	}

	return r.queryPosts(ctx, "error querying drafts",
		selectPost+` WHERE p.published = 0 AND p.user_id = ? ORDER BY p.created_at ASC, p.id ASC`, owner)
}

func (r *DBPostRepository) FindDraftsByAuthorEmail(ctx context.Context, email string) ([]model.Post, error) {
	if email == "" {
		return []model.Post{}, nil
	}

	return r.queryPosts(ctx, "error querying drafts",
		selectPost+` WHERE p.published = 0 AND u.email = ? ORDER BY p.created_at ASC, p.id ASC`, email)
}

func (r *DBPostRepository) UpsertUser(ctx context.Context, user model.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, name) VALUES (?, NULLIF(?, ''), ?, ?)
		ON CONFLICT(id) DO UPDATE SET username = excluded.username, email = excluded.email, name = excluded.name`,
		user.ID, user.Username, user.Email, user.Name,
	)
	if err != nil {
		return unavailable(err, "error saving user")
	}
	return nil
}

func (r *DBPostRepository) DeleteUser(ctx context.Context, id model.UserID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return unavailable(err, "error deleting user")
	}
	return nil
}
