package main

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/debemdeboas/the-press/internal/auth"
	"github.com/debemdeboas/the-press/internal/cache"
	"github.com/debemdeboas/the-press/internal/config"
	"github.com/debemdeboas/the-press/internal/drafts"
	"github.com/debemdeboas/the-press/internal/model"
	"github.com/debemdeboas/the-press/internal/publish"
	"github.com/debemdeboas/the-press/internal/repository"
	"github.com/debemdeboas/the-press/internal/routes"
	"github.com/debemdeboas/the-press/internal/sse"
	"github.com/debemdeboas/the-press/internal/util"
)

type appOptions struct {
	Config   *config.Config
	Posts    repository.PostRepository
	Provider auth.AuthProvider
	Mirror   repository.Mirror
	Content  fs.FS
	Timeout  time.Duration
	Log      zerolog.Logger
}

type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	posts    repository.PostRepository
	provider auth.AuthProvider
	clients  *sse.SSEClients
	timeout  time.Duration

	content fs.FS
	static  fs.FS
	index   *template.Template
	post    *template.Template

	publish *publish.Handler
	drafts  *drafts.Handler
}

func newApp(opts appOptions) (*app, error) {
	static, err := fs.Sub(opts.Content, config.StaticLocalDir)
	if err != nil {
		return nil, err
	}
	if err := hashStatic(static); err != nil {
		return nil, err
	}

	index, err := template.ParseFS(opts.Content,
		config.TemplatesLocalDir+"/"+config.TemplateLayout,
		config.TemplatesLocalDir+"/"+config.TemplateIndex,
	)
	if err != nil {
		return nil, fmt.Errorf("error loading index template: %w", err)
	}

	post, err := template.ParseFS(opts.Content,
		config.TemplatesLocalDir+"/"+config.TemplateLayout,
		config.TemplatesLocalDir+"/"+config.TemplatePost,
	)
	if err != nil {
		return nil, fmt.Errorf("error loading post template: %w", err)
	}

	clients := sse.NewSSEClients()

	draftsHandler, err := drafts.NewHandler(opts.Posts, opts.Provider, opts.Content, clientSessionTimeout(opts.Timeout))
	if err != nil {
		return nil, err
	}

	opts.Posts.SetReloadNotifier(func(id model.PostID) {
		clients.Broadcast(sse.PostTopic(id), "reload")
	})

	return &app{
		cfg:      opts.Config,
		log:      opts.Log,
		posts:    opts.Posts,
		provider: opts.Provider,
		clients:  clients,
		timeout:  opts.Timeout,
		content:  opts.Content,
		static:   static,
		index:    index,
		post:     post,
		publish:  publish.NewHandler(opts.Posts, opts.Mirror, clients, opts.Config.Publish.RequireOwner),
		drafts:   draftsHandler,
	}, nil
}

func hashStatic(static fs.FS) error {
	tags := make(map[string]string)
	err := fs.WalkDir(static, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(static, path)
		if err != nil {
			return err
		}
		tags[config.StaticUrlPath+path] = `"` + util.ContentHash(data) + `"`
		return nil
	})
	if err != nil {
		return err
	}

	cache.LoadStaticETags(tags)
	return nil
}

// clientSessionTimeout bounds the drafts fragment's session lookup. It must
// expire before the route's TimeoutHandler so the fragment can still render
// the loading state.
func clientSessionTimeout(request time.Duration) time.Duration {
	return request / 2
}

// bounded caps a handler at the request timeout. Streaming routes must not use it.
func (a *app) bounded(h http.Handler) http.Handler {
	return http.TimeoutHandler(h, a.timeout, "Request timed out")
}

func (a *app) withSession(h auth.SessionHandlerFunc) http.Handler {
	return a.bounded(auth.WithSession(a.provider, h))
}

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+routes.RobotsPath, a.serveRobots)
	mux.Handle("GET "+config.StaticUrlPath, http.StripPrefix(config.StaticUrlPath, http.FileServer(http.FS(a.static))))

	mux.Handle("GET /{$}", a.bounded(http.HandlerFunc(a.serveIndex)))
	mux.Handle("GET "+routes.PostPath, a.withSession(a.servePost))
	mux.Handle("GET "+routes.PartialsPost, a.withSession(a.servePostPartial))
	mux.Handle("GET "+routes.SyntaxThemeGet, a.bounded(http.HandlerFunc(serveSyntaxTheme)))

	mux.Handle("GET "+routes.DraftsPath, a.withSession(a.drafts.ServeDraftsPage))
	mux.Handle("GET "+routes.PartialsDrafts, a.bounded(http.HandlerFunc(a.drafts.ServeDraftsPartial)))

	mux.Handle("GET "+routes.SSEPath, auth.WithSession(a.provider, a.serveEvents))

	mux.Handle("POST "+routes.APIPosts, a.withSession(a.publish.ServeCreate))
	mux.Handle("PUT "+routes.APIPost, a.withSession(a.publish.ServeUpdate))
	mux.Handle("PUT "+routes.APIPublish, a.withSession(a.publish.ServePublish))
	mux.Handle("POST "+routes.APIPublish, a.withSession(a.publish.ServePublish))
	mux.Handle("GET "+routes.APISession, a.withSession(serveSession))

	mux.Handle("POST "+routes.WebhookUser, a.bounded(http.HandlerFunc(a.provider.HandleWebhookUser)))

	if p, ok := a.provider.(*auth.Ed25519AuthProvider); ok {
		if err := auth.RegisterEd25519AuthRoutes(mux, p, a.content); err != nil {
			a.log.Error().Err(err).Msg("Auth routes are disabled")
		}
	}

	var h http.Handler = mux
	h = secureHeaders(h)
	h = cacheIt(h)
	h = a.provider.WithHeaderAuthorization()(h)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request")
	})(h)
	h = hlog.RemoteAddrHandler("ip")(h)
	h = hlog.RequestIDHandler("req_id", "X-Request-Id")(h)
	h = hlog.NewHandler(a.log)(h)
	return h
}
