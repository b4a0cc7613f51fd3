package config

const (
	//? These paths must match the paths in the embed directive

	StaticLocalDir = "static"
	StaticUrlPath  = "/" + StaticLocalDir + "/"

	TemplatesLocalDir = "templates"

	PostsUrlPath  = "/posts/"
	DraftsUrlPath = "/drafts"

	TemplateLayout        = "layout.html"
	TemplateIndex         = "index.html"
	TemplatePost          = "post.html"
	TemplateDrafts        = "drafts.html"
	TemplateDraftsPartial = "drafts_partial.html"
	TemplateAuth          = "ed25519_auth.html"

	// Block names inside the templates above.
	TemplateNameAuth   = "auth"
	TemplateNameDrafts = "drafts-list"
)

const (
	AuthTypeEd25519 = "ed25519"
	AuthTypeClerk   = "clerk"

	CompressionZstd = "zstd"
	CompressionGzip = "gzip"
)
