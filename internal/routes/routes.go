// Package routes defines HTTP route constants for the application.
package routes

// Pages and fragments
const (
	RobotsPath = "/robots.txt"
	RootPath   = "/"
	PostPath   = "/posts/{id}"
	DraftsPath = "/drafts"

	PartialsPost   = "/partials/post"
	PartialsDrafts = "/partials/drafts"

	SyntaxThemeGet = "/syntax-theme/{theme}"

	// SSE
	SSEPath = "/sse"
)

// API
const (
	APIPosts   = "/api/posts"
	APIPost    = "/api/posts/{id}"
	APIPublish = "/api/publish/{id}"
	APISession = "/api/session"

	WebhookUser = "/webhook/user"
)

// Auth routes
const (
	AuthChallenge = "/auth/challenge"
	AuthVerify    = "/auth/verify"
	AuthLogin     = "/auth/login"
	AuthLogout    = "/auth/logout"
)
