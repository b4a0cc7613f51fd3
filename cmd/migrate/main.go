// Command migrate imports a directory of markdown files as posts.
//
// Imported posts are drafts owned by --owner-id unless --publish is set.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/the-press/internal/config"
	"github.com/debemdeboas/the-press/internal/db"
	"github.com/debemdeboas/the-press/internal/logger"
	"github.com/debemdeboas/the-press/internal/model"
	"github.com/debemdeboas/the-press/internal/repository"
	"github.com/debemdeboas/the-press/internal/util"
	"github.com/debemdeboas/the-press/internal/util/compression"
)

func main() {
	path := flag.String("path", "", "Path to the directory containing .md files")
	ownerID := flag.String("owner-id", "", "Owner user ID for the posts")
	dbPath := flag.String("db", "./database.db", "Path to the sqlite database")
	codec := flag.String("compression", config.CompressionZstd, "Content compression: zstd or gzip")
	publish := flag.Bool("publish", false, "Publish imported posts instead of keeping them as drafts")
	flag.Parse()

	log := logger.New("info", logger.FormatConsole)

	if *path == "" || *ownerID == "" {
		log.Fatal().Msg("Both --path and --owner-id flags are required")
	}

	compressor, err := compression.New(*codec)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid compression")
	}

	database := db.NewSQLite(*dbPath)
	if err := database.InitDb(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer database.Close()

	repo := repository.NewDBPostRepository(database, compressor)

	n, err := importDir(context.Background(), log, repo, *path, model.UserID(*ownerID), *publish)
	if err != nil {
		log.Fatal().Err(err).Str("path", *path).Msg("Import failed")
	}
	log.Info().Int("posts", n).Bool("published", *publish).Msg("Import finished")
}

type importer interface {
	NewPost() *model.Post
	SavePost(ctx context.Context, post *model.Post) error
	PublishPost(ctx context.Context, id model.PostID) (*model.Post, error)
}

// importDir saves every .md file in dir and returns how many were imported.
// A file that fails is logged and skipped.
func importDir(ctx context.Context, log zerolog.Logger, repo importer, dir string, owner model.UserID, publish bool) (int, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".md") {
			continue
		}

		l := log.With().Str("file", file.Name()).Logger()
		post, err := importFile(ctx, repo, dir, file, owner)
		if err != nil {
			l.Error().Err(err).Msg("Error importing file")
			continue
		}

		if publish {
			if _, err := repo.PublishPost(ctx, post.ID); err != nil {
				l.Error().Err(err).Msg("Error publishing imported post")
				continue
			}
		}

		l.Info().Str("post_id", string(post.ID)).Msg("Imported")
		n++
	}
	return n, nil
}

func importFile(ctx context.Context, repo importer, dir string, file os.DirEntry, owner model.UserID) (*model.Post, error) {
	content, err := os.ReadFile(filepath.Join(dir, file.Name()))
	if err != nil {
		return nil, err
	}

	info, err := file.Info()
	if err != nil {
		return nil, err
	}
	modTime := info.ModTime().UTC()

	post := repo.NewPost()
	post.Markdown = content
	post.Owner = owner
	post.CreatedDate = modTime
	post.ModifiedDate = modTime
	post.Title = strings.TrimSuffix(file.Name(), ".md")

	if fm, err := util.GetFrontMatter(content); err == nil {
		if fm.Title != "" {
			post.Title = fm.Title
		}
		if !fm.Date.IsZero() {
			post.CreatedDate = fm.Date.UTC()
		}
	}

	return post, repo.SavePost(ctx, post)
}
