package config

const (
	HCType        = "Content-Type"
	HETag         = "ETag"
	HCacheControl = "Cache-Control"
	HHxRedirect   = "Hx-Redirect"
	HHxTrigger    = "Hx-Trigger"

	CTypeCSS  = "text/css"
	CTypeHTML = "text/html; charset=utf-8"
	CTypeJSON = "application/json"
)

const (
	CookieAuthToken = "auth_token"
	CookieClerk     = "__session"

	CookieSyntaxTheme = "syntax-theme"
)
