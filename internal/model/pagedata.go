package model

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/debemdeboas/the-press/internal/config"
	"github.com/debemdeboas/the-press/internal/theme"
)

type PageData struct {
	SiteName        string
	SiteDescription string

	PageURL string

	SyntaxCSS   template.CSS
	SyntaxTheme string

	// Viewer is nil for anonymous requests.
	Viewer *User

	ShowToolbar *bool
}

func NewPageData(r *http.Request) *PageData {
	syntaxTheme := theme.SyntaxThemeFromRequest(r)

	pd := &PageData{
		PageURL:     r.URL.Path,
		SyntaxTheme: syntaxTheme,
		SyntaxCSS:   theme.GenerateSyntaxCSS(syntaxTheme),
	}
	if config.AppConfig != nil {
		pd.SiteName = config.AppConfig.Site.Name
		pd.SiteDescription = config.AppConfig.Site.Description
	}
	return pd
}

func (pd *PageData) IsPost() bool {
	if pd.ShowToolbar == nil {
		return strings.HasPrefix(pd.PageURL, config.PostsUrlPath)
	}
	return *pd.ShowToolbar
}

func (pd *PageData) IsDrafts() bool {
	return strings.HasPrefix(pd.PageURL, config.DraftsUrlPath)
}
