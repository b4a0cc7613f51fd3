// Package theme picks the chroma style used for code blocks and generates its CSS.
package theme

import (
	"html/template"
	"net/http"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/debemdeboas/the-press/internal/cache"
	"github.com/debemdeboas/the-press/internal/config"
)

const fallbackSyntaxTheme = "gruvbox"

func DefaultSyntaxTheme() string {
	if config.AppConfig == nil || config.AppConfig.Content.SyntaxTheme == "" {
		return fallbackSyntaxTheme
	}
	return config.AppConfig.Content.SyntaxTheme
}

// SyntaxThemeFromRequest honours the reader's cookie when it names a known style.
func SyntaxThemeFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(config.CookieSyntaxTheme); err == nil {
		if _, ok := styles.Registry[cookie.Value]; ok {
			return cookie.Value
		}
	}
	return DefaultSyntaxTheme()
}

func SyntaxThemes() []string {
	styleNames := styles.Names()
	slices.Sort(styleNames)
	return styleNames
}

func GetFormatter() *html.Formatter {
	return html.New(
		html.WithClasses(true),
		html.TabWidth(4),
		html.WithLineNumbers(true),
		html.WrapLongLines(true),
	)
}

func GenerateSyntaxCSS(theme string) template.CSS {
	if css, ok := cache.GetSyntaxCSS(theme); ok {
		return css
	}

	var buf strings.Builder
	style := styles.Get(theme)

	bg := style.Get(chroma.Background)
	if !bg.Colour.IsSet() {
		// Chroma themes without a foreground colour need one picked from the background.
		luminance := (0.299*float64(bg.Background.Red()) +
			0.587*float64(bg.Background.Green()) +
			0.114*float64(bg.Background.Blue())) / 255
		if luminance > 0.5 {
			buf.WriteString(".chroma { color: #181818; }\n")
		}
	}

	GetFormatter().WriteCSS(&buf, style)
	css := template.CSS(buf.String())
	cache.SetSyntaxCSS(theme, css)
	return css
}
