package model

import (
	"encoding/json"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/debemdeboas/the-press/internal/config"
	"github.com/mmarkdown/mmark/v2/mast"
	"github.com/mmarkdown/mmark/v2/mast/reference"
)

func TestPostGetTitle(t *testing.T) {
	testCases := []struct {
		name     string
		post     Post
		expected string
	}{
		{
			name:     "No Info returns Title field",
			post:     Post{Title: "Direct Title"},
			expected: "Direct Title",
		},
		{
			name:     "Empty Info returns Title field",
			post:     Post{Title: "Direct Title", Info: &mast.TitleData{}},
			expected: "Direct Title",
		},
		{
			name:     "Info.Title wins",
			post:     Post{Title: "Direct Title", Info: &mast.TitleData{Title: "Info Title"}},
			expected: "Info Title",
		},
		{
			name: "Series info is prepended",
			post: Post{
				Title: "Direct Title",
				Info: &mast.TitleData{
					Title:      "Episode Title",
					SeriesInfo: reference.SeriesInfo{Name: "MySerial", Value: "5"},
				},
			},
			expected: "[MySerial-5] Episode Title",
		},
		{
			name: "Partial series info is ignored",
			post: Post{
				Title: "Direct Title",
				Info: &mast.TitleData{
					Title:      "Episode Title",
					SeriesInfo: reference.SeriesInfo{Name: "MySerial"},
				},
			},
			expected: "Episode Title",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.post.GetTitle(); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestPostOwnership(t *testing.T) {
	post := &Post{ID: "p1", Owner: "alice"}

	if !post.IsDraft() {
		t.Error("Expected a new post to be a draft")
	}
	if !post.OwnedBy("alice") {
		t.Error("Expected alice to own the post")
	}
	if post.OwnedBy("bob") {
		t.Error("Expected bob not to own the post")
	}

	orphan := &Post{ID: "p2"}
	if orphan.OwnedBy("") {
		t.Error("Expected the empty user id to own nothing")
	}

	post.Published = true
	if post.IsDraft() {
		t.Error("Expected a published post not to be a draft")
	}
}

func TestPostJSON(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	post := Post{
		ID:            "p1",
		Title:         "Hello",
		Content:       template.HTML("<p>rendered</p>"),
		MDContentHash: "hash",
		Markdown:      []byte("# secret draft body"),
		Published:     true,
		Owner:         "alice",
		AuthorName:    "Alice",
		CreatedDate:   created,
		ModifiedDate:  created,
	}

	data, err := json.Marshal(post)
	if err != nil {
		t.Fatalf("Failed to marshal post: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Failed to unmarshal post: %v", err)
	}

	for _, key := range []string{"id", "title", "published", "authorId", "authorName", "createdAt", "modifiedAt"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("Expected JSON field %q", key)
		}
	}
	if len(fields) != 7 {
		t.Errorf("Expected exactly 7 JSON fields, got %d: %s", len(fields), data)
	}
	if fields["authorId"] != "alice" {
		t.Errorf("Expected authorId 'alice', got %v", fields["authorId"])
	}
	if strings.Contains(string(data), "secret draft body") {
		t.Error("Expected markdown body to stay out of the JSON representation")
	}
}

func TestUserDisplayName(t *testing.T) {
	if got := (User{Username: "ada", Name: "Ada Lovelace"}).DisplayName(); got != "Ada Lovelace" {
		t.Errorf("Expected full name, got %q", got)
	}
	if got := (User{Username: "ada"}).DisplayName(); got != "ada" {
		t.Errorf("Expected username fallback, got %q", got)
	}
}

func TestNewPageData(t *testing.T) {
	originalConfig := config.AppConfig
	defer func() { config.AppConfig = originalConfig }()

	config.AppConfig = &config.Config{
		Site: config.SiteConfig{
			Name:        "Test Site",
			Description: "Test Description",
		},
		Content: config.ContentConfig{SyntaxTheme: "github"},
	}

	t.Run("Fills site data from config", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/drafts", nil)

		pd := NewPageData(req)

		if pd.SiteName != "Test Site" {
			t.Errorf("Expected SiteName 'Test Site', got %s", pd.SiteName)
		}
		if pd.SiteDescription != "Test Description" {
			t.Errorf("Expected SiteDescription 'Test Description', got %s", pd.SiteDescription)
		}
		if pd.SyntaxTheme != "github" {
			t.Errorf("Expected SyntaxTheme 'github', got %s", pd.SyntaxTheme)
		}
		if pd.SyntaxCSS == "" {
			t.Error("Expected syntax CSS to be generated")
		}
		if !pd.IsDrafts() {
			t.Error("Expected /drafts to be a drafts page")
		}
		if pd.Viewer != nil {
			t.Error("Expected no viewer by default")
		}
	})

	t.Run("Syntax theme cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: config.CookieSyntaxTheme, Value: "monokai"})

		if pd := NewPageData(req); pd.SyntaxTheme != "monokai" {
			t.Errorf("Expected SyntaxTheme 'monokai', got %s", pd.SyntaxTheme)
		}
	})
}

func TestPageDataIsPost(t *testing.T) {
	showToolbar := true
	hideToolbar := false

	testCases := []struct {
		name     string
		pd       PageData
		expected bool
	}{
		{name: "Posts URL", pd: PageData{PageURL: "/posts/test-post"}, expected: true},
		{name: "Other URL", pd: PageData{PageURL: "/about"}, expected: false},
		{name: "Uppercase is a different path", pd: PageData{PageURL: "/POSTS/test-post"}, expected: false},
		{name: "Explicit toolbar", pd: PageData{PageURL: "/about", ShowToolbar: &showToolbar}, expected: true},
		{name: "Explicitly hidden toolbar", pd: PageData{PageURL: "/posts/x", ShowToolbar: &hideToolbar}, expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.pd.IsPost(); got != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, got)
			}
		})
	}
}
