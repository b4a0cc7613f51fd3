// Package model defines the core data structures shared by the blog's packages.
package model

import (
	"html/template"
	"strings"
	"time"

	"github.com/mmarkdown/mmark/v2/mast"
)

type PostID string

type Post struct {
	ID PostID `json:"id"`

	Title   string        `json:"title"`
	Content template.HTML `json:"-"`
	Path    string        `json:"-"`

	// Used for cache busting.
	// We cannot use the content hash because the content is already rendered.
	MDContentHash string `json:"-"`

	Markdown []byte `json:"-"`

	// Published only ever moves from false to true.
	Published bool `json:"published"`

	Owner      UserID `json:"authorId"`
	AuthorName string `json:"authorName,omitempty"`

	CreatedDate  time.Time `json:"createdAt"`
	ModifiedDate time.Time `json:"modifiedAt"`

	// Optional data from Mmark front matter.
	Info *mast.TitleData `json:"-"`
}

func (p *Post) GetTitle() string {
	if p.Info != nil && p.Info.Title != "" {
		var s strings.Builder

		if p.Info.SeriesInfo.Name != "" && p.Info.SeriesInfo.Value != "" {
			s.WriteString("[")
			s.WriteString(p.Info.SeriesInfo.Name)
			s.WriteString("-")
			s.WriteString(p.Info.SeriesInfo.Value)
			s.WriteString("] ")
		}

		s.WriteString(p.Info.Title)

		return s.String()
	}
	return p.Title
}

// IsDraft reports whether the post is still private to its owner.
func (p *Post) IsDraft() bool {
	return !p.Published
}

// OwnedBy reports whether uid is the post's author. The empty id owns nothing.
func (p *Post) OwnedBy(uid UserID) bool {
	return uid != "" && p.Owner == uid
}
