package repository

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/debemdeboas/the-press/internal/db"
	"github.com/debemdeboas/the-press/internal/model"
)

func setupTestRepo(t *testing.T) (*DBPostRepository, *db.SQLite) {
	t.Helper()

	sqlite := db.NewSQLite(db.MemoryPath)
	if err := sqlite.InitDb(); err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return NewDBPostRepository(sqlite, nil), sqlite
}

func saveDraft(t *testing.T, repo *DBPostRepository, owner model.UserID, title string, created time.Time) *model.Post {
	t.Helper()

	post := repo.NewPost()
	post.Title = title
	post.Markdown = []byte("# " + title)
	post.Owner = owner
	post.CreatedDate = created
	post.ModifiedDate = created

	if err := repo.SavePost(context.Background(), post); err != nil {
		t.Fatalf("Failed to save post %q: %v", title, err)
	}
	return post
}

func postIDs(posts []model.Post) []model.PostID {
	ids := make([]model.PostID, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}

func equalIDs(a, b []model.PostID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var base = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func TestSavePostIsDraft(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	post := repo.NewPost()
	post.Title = "Sneaky"
	post.Markdown = []byte("# Sneaky")
	post.Owner = "alice"
	post.Published = true

	if err := repo.SavePost(ctx, post); err != nil {
		t.Fatalf("Failed to save post: %v", err)
	}

	got, err := repo.ReadPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("Failed to read post: %v", err)
	}
	if got.Published {
		t.Error("Expected a newly saved post to be a draft")
	}
	if !bytes.Equal(got.Markdown, post.Markdown) {
		t.Errorf("Expected markdown %q, got %q", post.Markdown, got.Markdown)
	}
	if got.MDContentHash == "" {
		t.Error("Expected content hash to be set")
	}

	t.Run("Post without owner is rejected", func(t *testing.T) {
		orphan := repo.NewPost()
		if err := repo.SavePost(ctx, orphan); err == nil {
			t.Error("Expected error saving a post without an owner")
		}
	})
}

func TestPublishPost(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	draft := saveDraft(t, repo, "alice", "First", base)

	before, err := repo.ReadPost(ctx, draft.ID)
	if err != nil {
		t.Fatalf("Failed to read draft: %v", err)
	}

	published, err := repo.PublishPost(ctx, draft.ID)
	if err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}

	if !published.Published {
		t.Error("Expected post to be published")
	}
	if published.ID != before.ID || published.Title != before.Title || published.Owner != before.Owner {
		t.Errorf("Expected identity fields unchanged, got %+v", published)
	}
	if !bytes.Equal(published.Markdown, before.Markdown) || published.MDContentHash != before.MDContentHash {
		t.Error("Expected content unchanged by publish")
	}
	if !published.CreatedDate.Equal(before.CreatedDate) {
		t.Errorf("Expected created date %v, got %v", before.CreatedDate, published.CreatedDate)
	}
	if !published.ModifiedDate.Equal(before.ModifiedDate) {
		t.Errorf("Expected publish not to touch modified date %v, got %v", before.ModifiedDate, published.ModifiedDate)
	}

	list := repo.GetPostList()
	if len(list) != 1 || list[0].ID != draft.ID {
		t.Errorf("Expected published cache to contain the post, got %v", postIDs(list))
	}
}

func TestPublishUnknownPost(t *testing.T) {
	repo, sqlite := setupTestRepo(t)
	ctx := context.Background()

	saveDraft(t, repo, "alice", "Untouched", base)

	_, err := repo.PublishPost(ctx, "does-not-exist")
	if !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("Expected ErrPostNotFound, got %v", err)
	}
	if errors.Is(err, ErrPersistenceUnavailable) {
		t.Error("Expected not found to be distinct from persistence errors")
	}

	var published int
	if err := sqlite.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE published = 1`).Scan(&published); err != nil {
		t.Fatalf("Failed to count posts: %v", err)
	}
	if published != 0 {
		t.Errorf("Expected no writes, found %d published posts", published)
	}
}

func TestPublishTwice(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	draft := saveDraft(t, repo, "alice", "Twice", base)

	first, err := repo.PublishPost(ctx, draft.ID)
	if err != nil {
		t.Fatalf("First publish failed: %v", err)
	}
	second, err := repo.PublishPost(ctx, draft.ID)
	if err != nil {
		t.Fatalf("Second publish failed: %v", err)
	}

	if !second.Published {
		t.Error("Expected post to stay published")
	}
	if !first.ModifiedDate.Equal(second.ModifiedDate) || first.MDContentHash != second.MDContentHash {
		t.Error("Expected second publish to leave the post unchanged")
	}
}

func TestPublishPostAs(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	draft := saveDraft(t, repo, "alice", "Owned", base)

	testCases := []struct {
		name      string
		id        model.PostID
		owner     model.UserID
		expectErr error
	}{
		{name: "Another user", id: draft.ID, owner: "bob", expectErr: ErrNotOwner},
		{name: "No user", id: draft.ID, owner: "", expectErr: ErrNotOwner},
		{name: "Unknown post", id: "missing", owner: "alice", expectErr: ErrPostNotFound},
		{name: "Owner", id: draft.ID, owner: "alice"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			post, err := repo.PublishPostAs(ctx, tc.id, tc.owner)
			if tc.expectErr != nil {
				if !errors.Is(err, tc.expectErr) {
					t.Fatalf("Expected %v, got %v", tc.expectErr, err)
				}
				if post != nil {
					t.Error("Expected no post on error")
				}

				current, err := repo.ReadPost(ctx, draft.ID)
				if err != nil {
					t.Fatalf("Failed to read post: %v", err)
				}
				if current.Published {
					t.Error("Expected rejected publish to leave the post a draft")
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !post.Published {
				t.Error("Expected owner to publish the post")
			}
		})
	}
}

func TestFindDraftsByAuthor(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	a1 := saveDraft(t, repo, "alice", "A1", base)
	a2 := saveDraft(t, repo, "alice", "A2", base.Add(time.Minute))
	aPub := saveDraft(t, repo, "alice", "A published", base.Add(2*time.Minute))
	b1 := saveDraft(t, repo, "bob", "B1", base)
	a0 := saveDraft(t, repo, "alice", "A0", base.Add(-time.Minute))

	if _, err := repo.PublishPost(ctx, aPub.ID); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}

	testCases := []struct {
		name     string
		owner    model.UserID
		expected []model.PostID
	}{
		{name: "Alice sees her drafts in creation order", owner: "alice", expected: []model.PostID{a0.ID, a1.ID, a2.ID}},
		{name: "Bob sees only his draft", owner: "bob", expected: []model.PostID{b1.ID}},
		{name: "Unknown user has no drafts", owner: "carol", expected: []model.PostID{}},
		{name: "Empty user id has no drafts", owner: "", expected: []model.PostID{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			drafts, err := repo.FindDraftsByAuthor(ctx, tc.owner)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if drafts == nil {
				t.Fatal("Expected an empty slice, got nil")
			}

			for _, d := range drafts {
				if d.Published || d.Owner != tc.owner {
					t.Errorf("Draft listing leaked post %s (published=%v owner=%s)", d.ID, d.Published, d.Owner)
				}
			}

			if got := postIDs(drafts); !equalIDs(got, tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, got)
			}
		})
	}

	t.Run("Same timestamp orders by id", func(t *testing.T) {
		saveDraft(t, repo, "bob", "B2", base)

		drafts, err := repo.FindDraftsByAuthor(ctx, "bob")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(drafts) != 2 {
			t.Fatalf("Expected 2 drafts, got %d", len(drafts))
		}
		if drafts[0].ID > drafts[1].ID {
			t.Errorf("Expected ties broken by id, got %v", postIDs(drafts))
		}
	})
}

func TestFindDraftsByAuthorEmail(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	if err := repo.UpsertUser(ctx, model.User{ID: "alice", Username: "alice", Email: "alice@example.com", Name: "Alice A."}); err != nil {
		t.Fatalf("Failed to save user: %v", err)
	}

	draft := saveDraft(t, repo, "alice", "By email", base)
	saveDraft(t, repo, "bob", "Not alice", base)

	drafts, err := repo.FindDraftsByAuthorEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(drafts) != 1 || drafts[0].ID != draft.ID {
		t.Fatalf("Expected only alice's draft, got %v", postIDs(drafts))
	}
	if drafts[0].AuthorName != "Alice A." {
		t.Errorf("Expected author name from users table, got %q", drafts[0].AuthorName)
	}

	empty, err := repo.FindDraftsByAuthorEmail(ctx, "")
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected no drafts for an empty email, got %v (%v)", postIDs(empty), err)
	}
}

func TestDraftListingScenario(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	p1 := saveDraft(t, repo, "a", "P1", base)
	p2 := saveDraft(t, repo, "a", "P2", base.Add(time.Minute))
	if _, err := repo.PublishPost(ctx, p2.ID); err != nil {
		t.Fatalf("Failed to publish P2: %v", err)
	}

	drafts, err := repo.FindDraftsByAuthor(ctx, "a")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := postIDs(drafts); !equalIDs(got, []model.PostID{p1.ID}) {
		t.Fatalf("Expected [P1], got %v", got)
	}

	if _, err := repo.PublishPost(ctx, p1.ID); err != nil {
		t.Fatalf("Failed to publish P1: %v", err)
	}

	drafts, err = repo.FindDraftsByAuthor(ctx, "a")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(drafts) != 0 {
		t.Errorf("Expected no drafts after publishing, got %v", postIDs(drafts))
	}
}

func TestReadPost(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	draft := saveDraft(t, repo, "alice", "Readable", base)

	post, err := repo.ReadPost(ctx, draft.ID)
	if err != nil {
		t.Fatalf("Expected drafts to be readable by id: %v", err)
	}
	if post.Path != string(draft.ID) {
		t.Errorf("Expected path %q, got %q", draft.ID, post.Path)
	}

	if _, err := repo.ReadPost(ctx, "missing"); !errors.Is(err, ErrPostNotFound) {
		t.Errorf("Expected ErrPostNotFound, got %v", err)
	}

	t.Run("Cached copies are independent", func(t *testing.T) {
		if _, err := repo.PublishPost(ctx, draft.ID); err != nil {
			t.Fatalf("Failed to publish: %v", err)
		}

		first, _ := repo.ReadPost(ctx, draft.ID)
		first.Title = "mutated"

		second, _ := repo.ReadPost(ctx, draft.ID)
		if second.Title != "Readable" {
			t.Errorf("Expected cached post to be unaffected, got %q", second.Title)
		}
	})
}

func TestSetPostContent(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	post := saveDraft(t, repo, "alice", "Original", base)
	if _, err := repo.PublishPost(ctx, post.ID); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}

	reloaded := make(chan model.PostID, 1)
	repo.SetReloadNotifier(func(id model.PostID) { reloaded <- id })

	post.Published = true
	post.Markdown = []byte("# Updated")
	post.Title = "Updated"
	oldHash := post.MDContentHash
	if err := repo.SetPostContent(ctx, post); err != nil {
		t.Fatalf("Failed to set content: %v", err)
	}
	if post.MDContentHash == oldHash {
		t.Error("Expected content hash to change")
	}

	select {
	case id := <-reloaded:
		if id != post.ID {
			t.Errorf("Expected reload for %s, got %s", post.ID, id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected reload notification for changed published post")
	}

	got, err := repo.ReadPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("Failed to read post: %v", err)
	}
	if string(got.Markdown) != "# Updated" || got.Title != "Updated" {
		t.Errorf("Expected updated content, got %q / %q", got.Title, got.Markdown)
	}

	missing := repo.NewPost()
	if err := repo.SetPostContent(ctx, missing); !errors.Is(err, ErrPostNotFound) {
		t.Errorf("Expected ErrPostNotFound, got %v", err)
	}
}

func TestPersistenceUnavailable(t *testing.T) {
	repo, sqlite := setupTestRepo(t)
	ctx := context.Background()

	sqlite.Close()

	_, err := repo.FindDraftsByAuthor(ctx, "alice")
	if !errors.Is(err, ErrPersistenceUnavailable) {
		t.Errorf("Expected ErrPersistenceUnavailable from drafts, got %v", err)
	}

	_, err = repo.PublishPost(ctx, "any")
	if !errors.Is(err, ErrPersistenceUnavailable) {
		t.Errorf("Expected ErrPersistenceUnavailable from publish, got %v", err)
	}
	if errors.Is(err, ErrPostNotFound) {
		t.Error("Expected persistence errors to be distinct from not found")
	}
}

func TestInitAndReloadLoopStops(t *testing.T) {
	repo, _ := setupTestRepo(t)

	post := saveDraft(t, repo, "alice", "Before init", base)
	if _, err := repo.PublishPost(context.Background(), post.ID); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := repo.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	cancel()

	if list := repo.GetPostList(); len(list) != 1 {
		t.Errorf("Expected 1 published post after init, got %d", len(list))
	}
}

func TestUsers(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	post := saveDraft(t, repo, "u1", "Named", base)

	if err := repo.UpsertUser(ctx, model.User{ID: "u1", Username: "ada"}); err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}
	got, _ := repo.ReadPost(ctx, post.ID)
	if got.AuthorName != "ada" {
		t.Errorf("Expected username fallback 'ada', got %q", got.AuthorName)
	}

	if err := repo.UpsertUser(ctx, model.User{ID: "u1", Username: "ada", Name: "Ada Lovelace"}); err != nil {
		t.Fatalf("Failed to update user: %v", err)
	}
	got, _ = repo.ReadPost(ctx, post.ID)
	if got.AuthorName != "Ada Lovelace" {
		t.Errorf("Expected name 'Ada Lovelace', got %q", got.AuthorName)
	}

	// Users without a username must not collide on the unique index.
	for _, id := range []model.UserID{"u2", "u3"} {
		if err := repo.UpsertUser(ctx, model.User{ID: id}); err != nil {
			t.Errorf("Failed to insert user %s without username: %v", id, err)
		}
	}

	if err := repo.DeleteUser(ctx, "u1"); err != nil {
		t.Fatalf("Failed to delete user: %v", err)
	}
	got, err := repo.ReadPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("Expected post to outlive its author row: %v", err)
	}
	if got.AuthorName != "" {
		t.Errorf("Expected empty author name, got %q", got.AuthorName)
	}
}
