// Package render turns post markdown into sanitized HTML with highlighted code blocks.
package render

import (
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/debemdeboas/the-press/internal/cache"
	"github.com/debemdeboas/the-press/internal/theme"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	md_html "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmarkdown/mmark/v2/lang"
	"github.com/mmarkdown/mmark/v2/mast"
	"github.com/mmarkdown/mmark/v2/mparser"
	"github.com/mmarkdown/mmark/v2/render/mhtml"
	"github.com/rs/zerolog"
)

var renderLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	renderLogger = l
}

var regexCallout = regexp.MustCompile(`//\s*&lt;&lt;(\d+)&gt;&gt;`)

// Post bodies are user content. Chroma output needs its class attributes.
var policy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	p.AllowElements("section", "figure", "figcaption", "span")
	return p
}()

func HighlightCode(code, language, highlightTheme string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return html.EscapeString(code)
	}

	style := styles.Get(highlightTheme)
	if style == nil {
		style = styles.Fallback
	}

	var buf strings.Builder
	if err := theme.GetFormatter().Format(&buf, style, iterator); err != nil {
		renderLogger.Warn().Err(err).Str("language", language).Msg("Failed to highlight code block")
		return html.EscapeString(code)
	}

	return regexCallout.ReplaceAllString(buf.String(), `<span class="callout">$1</span>`)
}

// RenderMarkdown renders md with the mmark dialect and returns the title block
// it found. The returned HTML is sanitized.
func RenderMarkdown(md []byte, highlightTheme string) ([]byte, *mast.TitleData) {
	md = markdown.NormalizeNewlines(md)

	p := parser.NewWithExtensions(mparser.Extensions | parser.NoIntraEmphasis)

	init := mparser.NewInitial("")
	var info *mast.TitleData

	p.Opts = parser.Options{
		ParserHook: func(data []byte) (ast.Node, []byte, int) {
			node, data, consumed := mparser.Hook(data)
			if t, ok := node.(*mast.Title); ok {
				info = t.TitleData
			}
			return node, data, consumed
		},
		ReadIncludeFn: init.ReadInclude,
		Flags:         parser.FlagsNone,
	}

	doc := markdown.Parse(md, p)
	mparser.AddIndex(doc)

	if info == nil {
		info = &mast.TitleData{Title: "Untitled", Language: "en"}
	}

	mhtmlOpts := mhtml.RendererOptions{
		Language: lang.New(info.Language),
	}

	opts := md_html.RendererOptions{
		Comments: [][]byte{[]byte("//"), []byte("#")},
		RenderNodeHook: func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
			if code, ok := node.(*ast.CodeBlock); ok && entering {
				var lang string
				if code.Info != nil {
					lang = string(code.Info)
				}
				fmt.Fprintf(w, `<div class="highlight">%s</div>`, HighlightCode(string(code.Literal), lang, highlightTheme))
				return ast.GoToNext, true
			}

			return mhtmlOpts.RenderHook(w, node, entering)
		},
		Flags: md_html.CommonFlags | md_html.FootnoteNoHRTag | md_html.FootnoteReturnLinks,
	}

	rendered := markdown.Render(doc, md_html.NewRenderer(opts))
	return policy.SanitizeBytes(rendered), info
}

var renderCacheMutex sync.Mutex

// RenderMarkdownCached renders through the shared cache keyed by content hash and theme.
func RenderMarkdownCached(md []byte, contentHash, highlightTheme string) ([]byte, *mast.TitleData) {
	if contentHash == "" {
		renderLogger.Warn().Msg("Content hash is empty, skipping cache check")
		return RenderMarkdown(md, highlightTheme)
	}

	if out, info, ok := cachedRender(contentHash, highlightTheme); ok {
		return out, info
	}

	renderCacheMutex.Lock()
	defer renderCacheMutex.Unlock()

	// Another goroutine may have filled it while we waited.
	if out, info, ok := cachedRender(contentHash, highlightTheme); ok {
		return out, info
	}

	renderLogger.Debug().Str("contentHash", contentHash).Str("highlightTheme", highlightTheme).Msg("Cache miss for rendered markdown")
	out, info := RenderMarkdown(md, highlightTheme)
	cache.SetRenderedMarkdown(contentHash, highlightTheme, out, info)
	return out, info
}

func cachedRender(contentHash, highlightTheme string) ([]byte, *mast.TitleData, bool) {
	cached, ok := cache.GetRenderedMarkdown(contentHash, highlightTheme)
	if !ok {
		return nil, nil, false
	}
	return cached.HTML, cached.Title, true
}

// WarmCache renders in the background so the first reader hits the cache.
func WarmCache(md []byte, contentHash, highlightTheme string) {
	go func() {
		RenderMarkdownCached(md, contentHash, highlightTheme)
		renderLogger.Debug().Str("contentHash", contentHash).Str("highlightTheme", highlightTheme).Msg("Cache warming completed")
	}()
}
