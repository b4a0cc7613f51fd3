package cache

import "html/template"

var (
	staticETags = NewCache[string, string]()
	syntaxCSS   = NewCache[string, template.CSS]()
)

// StaticETag returns the quoted entity tag of the embedded file served at path.
func StaticETag(path string) (string, bool) {
	return staticETags.Get(path)
}

// LoadStaticETags replaces the known entity tags. tags is owned by the cache afterwards.
func LoadStaticETags(tags map[string]string) {
	staticETags.SetTo(tags)
}

func GetSyntaxCSS(theme string) (template.CSS, bool) {
	return syntaxCSS.Get(theme)
}

func SetSyntaxCSS(theme string, css template.CSS) {
	syntaxCSS.Set(theme, css)
}
