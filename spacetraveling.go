// Package spacetraveling serves a blog whose posts live in the Prismic
// headless CMS. It seeds a listing page with one page of posts and extends
// it one post at a time, generates a fixed set of post pages ahead of time,
// and resolves every other post on its first request.
//
// Pages are rendered through the ViewFuncs struct so a site can swap the
// default templates in the views package for its own templ components.
package spacetraveling

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/post"
	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/views"
)

// ViewFuncs holds the templ components the handlers render.
type ViewFuncs struct {
	Home           func(views.HomeData) templ.Component
	PostItem       func(views.PostItem) templ.Component
	Post           func(views.PostData) templ.Component
	Loading        func(views.LoadingData) templ.Component
	NotFound       func(views.ErrorData) templ.Component
	ServerError    func(views.ErrorData) templ.Component
	AdminLogin     func(views.AdminLoginData) templ.Component
	AdminDashboard func(views.AdminData) templ.Component
}

// DefaultViews returns the pages shipped in the views package.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:           views.Home,
		PostItem:       views.Item,
		Post:           views.Post,
		Loading:        views.Loading,
		NotFound:       views.NotFound,
		ServerError:    views.ServerError,
		AdminLogin:     views.AdminLogin,
		AdminDashboard: views.AdminDashboard,
	}
}

// App is the central application. It wires together the CMS client, the
// page store and cache, handlers, middleware and templates.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Store  *Store
	Cache  *PageCache
	Views  ViewFuncs

	content       ContentClient
	resolver      *resolver
	dates         *post.DateFormatter
	loc           *time.Location
	log           *slog.Logger
	loginLimiter  *RateLimiter
	moreLimiter   *RateLimiter
	customRoutes  []func(*App)
	staticDir     string
	ownsStore     bool
	shutdownGrace time.Duration
}

// New creates an App with the given configuration and view functions.
// Nothing is opened until Setup.
func New(cfg SiteConfig, v ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &App{
		Config:        cfg,
		Echo:          e,
		Views:         v,
		staticDir:     "public",
		shutdownGrace: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = slog.Default()
	}

	return a
}

// Setup validates the configuration, opens the CMS client and the store,
// and registers middleware and routes. After Setup the Echo instance can
// serve requests.
func (a *App) Setup(ctx context.Context) error {
	if a.Config.AdminPassword != "" && a.Config.SessionSecret == "" {
		return errors.New("spacetraveling: SessionSecret is required when AdminPassword is set")
	}

	loc, err := time.LoadLocation(a.Config.TimeZone)
	if err != nil {
		return fmt.Errorf("spacetraveling: time zone: %w", err)
	}
	a.loc = loc
	a.dates, err = post.NewDateFormatter(a.Config.Locale, loc)
	if err != nil {
		return fmt.Errorf("spacetraveling: %w", err)
	}

	if a.content == nil {
		if a.Config.PrismicEndpoint == "" {
			return errors.New("spacetraveling: PrismicEndpoint is required")
		}
		client, err := prismic.NewClient(a.Config.PrismicEndpoint,
			prismic.WithAccessToken(a.Config.PrismicAccessToken),
			prismic.WithHTTPClient(&http.Client{Timeout: a.Config.FetchTimeout}),
		)
		if err != nil {
			return fmt.Errorf("spacetraveling: %w", err)
		}
		a.content = client
	}

	if a.Store == nil {
		store, err := NewStore(ctx, a.Config.DatabasePath)
		if err != nil {
			return fmt.Errorf("spacetraveling: init store: %w", err)
		}
		a.Store = store
		a.ownsStore = true
	}

	a.Cache = NewPageCache(a.Config.Revalidate)
	a.resolver = newResolver(a)

	a.loginLimiter = NewRateLimiter(5, time.Minute)
	a.moreLimiter = NewRateLimiter(a.Config.LoadMoreLimit, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Run sets the app up, generates the eager pages in the background and
// serves until ctx is done, then shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	if err := a.Setup(ctx); err != nil {
		return err
	}
	defer a.Close()

	go func() {
		if _, err := a.Generate(ctx); err != nil {
			a.log.WarnContext(ctx, "pre-generate pages", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		a.log.InfoContext(ctx, "listening", "addr", a.Config.Addr, "url", a.Config.URL)
		if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownGrace)
	defer cancel()
	a.log.InfoContext(ctx, "shutting down")
	return a.Echo.Shutdown(shutdownCtx)
}

// Start runs the server until SIGINT or SIGTERM.
func (a *App) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Run(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Embedded framework assets; anything else under /public/ falls
	// through to the user's static dir.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := echo.WrapHandler(http.StripPrefix("/public/", http.FileServer(http.FS(embeddedFS))))
	e.GET("/public/loadmore.js", embeddedHandler)
	e.GET("/public/style.css", embeddedHandler)
	e.GET("/images/logo.svg", handleLogo)

	e.Static("/public", a.staticDir)
	e.GET("/robots.txt", a.handleRobots)

	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/post/:slug/", a.handlePost)
	e.GET("/posts/more/", a.handleLoadMore)

	if a.Config.AdminPassword != "" {
		e.GET("/admin/", a.handleAdmin)
		e.POST("/admin/login/", a.handleAdminLogin)
		e.POST("/admin/logout/", handleAdminLogout)
		e.POST("/admin/revalidate/:slug/", a.handleRevalidatePost)
		e.POST("/admin/revalidate-listing/", a.handleRevalidateListing)
	}
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.moreLimiter != nil {
		a.moreLimiter.Stop()
	}
	if a.Store != nil && a.ownsStore {
		return a.Store.Close()
	}
	return nil
}

func (a *App) site() views.Site {
	return views.Site{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
		Author:      a.Config.Author,
		Lang:        a.Config.Locale,
	}
}
