package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

const failedToInitDB = "Failed to initialize database: %v"

func newMemoryDb(t *testing.T) *SQLite {
	t.Helper()

	db := NewSQLite(MemoryPath)
	if err := db.InitDb(); err != nil {
		t.Fatalf(failedToInitDB, err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewSQLite(t *testing.T) {
	db := NewSQLite(MemoryPath)

	if db == nil {
		t.Fatal("Expected non-nil SQLite instance")
	}
	if db.conn != nil {
		t.Error("Expected connection to be nil initially")
	}
	if err := db.Close(); err != nil {
		t.Errorf("Expected closing an unopened db to succeed, got %v", err)
	}
}

func TestInitDbCreatesSchema(t *testing.T) {
	db := newMemoryDb(t)

	t.Run("Tables exist", func(t *testing.T) {
		for _, table := range []string{"users", "posts", "schema_migrations"} {
			var name string
			err := db.Get().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
			if err != nil {
				t.Errorf("Expected table %s to exist: %v", table, err)
			}
		}
	})

	t.Run("Posts table columns", func(t *testing.T) {
		rows, err := db.Get().Query("PRAGMA table_info(posts)")
		if err != nil {
			t.Fatalf("Failed to get posts table info: %v", err)
		}
		defer rows.Close()

		columns := make(map[string]bool)
		for rows.Next() {
			var cid, notNull, pk int
			var name, dataType string
			var defaultValue sql.NullString
			if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
				t.Fatalf("Failed to scan column info: %v", err)
			}
			columns[name] = true
		}

		expected := []string{"id", "title", "content", "md_content_hash", "published", "user_id", "created_at", "modified_at"}
		for _, col := range expected {
			if !columns[col] {
				t.Errorf("Expected posts table to have column %s", col)
			}
		}
	})

	t.Run("Published defaults to false", func(t *testing.T) {
		_, err := db.Get().Exec(`INSERT INTO posts (id, user_id, created_at, modified_at) VALUES ('p1', 'u1', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
		if err != nil {
			t.Fatalf("Failed to insert post: %v", err)
		}

		var published bool
		if err := db.QueryRowContext(context.Background(), `SELECT published FROM posts WHERE id = 'p1'`).Scan(&published); err != nil {
			t.Fatalf("Failed to read post: %v", err)
		}
		if published {
			t.Error("Expected a new post to be unpublished")
		}
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newMemoryDb(t)

	version, err := Migrate(db.Get())
	if err != nil {
		t.Fatalf("Expected second migration run to be a no-op, got %v", err)
	}
	if version != 1 {
		t.Errorf("Expected schema version 1, got %d", version)
	}
}

func TestInitDbOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "press.db")

	first := NewSQLite(path)
	if err := first.InitDb(); err != nil {
		t.Fatalf(failedToInitDB, err)
	}
	if _, err := first.Get().Exec(`INSERT INTO users (id, username) VALUES ('u1', 'ada')`); err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}
	first.Close()

	second := NewSQLite(path)
	if err := second.InitDb(); err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer second.Close()

	var username string
	if err := second.Get().QueryRow(`SELECT username FROM users WHERE id = 'u1'`).Scan(&username); err != nil {
		t.Fatalf("Expected user to survive reopen: %v", err)
	}
	if username != "ada" {
		t.Errorf("Expected username 'ada', got %q", username)
	}
}

func TestBeginTxRollback(t *testing.T) {
	db := newMemoryDb(t)
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO users (id, username) VALUES ('u2', 'grace')`); err != nil {
		t.Fatalf("Failed to insert in transaction: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Failed to roll back: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		t.Fatalf("Failed to count users: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected rollback to discard insert, found %d users", count)
	}
}
