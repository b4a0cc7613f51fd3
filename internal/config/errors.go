package config

const (
	// Database errors
	ErrInitializeDatabaseFmt = "Failed to initialize database: %v"

	// Auth errors
	ErrCreateProviderFmt      = "Failed to create provider: %v"
	ErrAuthHeaderRequired     = "Authorization header required"
	ErrInvalidSignatureFormat = "Invalid signature format"
	ErrInvalidSignature       = "Invalid signature"
	ErrInternalServerError    = "Internal server error"
	ErrRefreshChallengeFmt    = "Failed to refresh challenge"

	// Post processing errors
	ErrInitializingPosts = "Error initializing posts"
	ErrReloadingPosts    = "Error reloading posts"
)

// Codes carried in the "code" field of JSON error bodies.
const (
	CodeNotFound               = "not_found"
	CodeUnauthenticated        = "unauthenticated"
	CodeForbidden              = "forbidden"
	CodeBadRequest             = "bad_request"
	CodeTooLarge               = "content_too_large"
	CodePersistenceUnavailable = "persistence_unavailable"
)
