package spacetraveling

import (
	"log/slog"
	"time"

	"github.com/eringen/spacetraveling/listing"
	"github.com/eringen/spacetraveling/post"
)

// SiteConfig holds all configuration for a spacetraveling site.
type SiteConfig struct {
	Name        string // Site name (default "spacetraveling")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string // Author name for JSON-LD when a post has none

	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite snapshot store (default "data/pages.db")
	OutputDir    string // Static export directory for build (default "out")

	PrismicEndpoint    string // Required: API root, e.g. https://repo.cdn.prismic.io/api/v2
	PrismicAccessToken string // Only for private repositories

	PageSize   int      // Posts on the seeded listing page (default 1)
	EagerSlugs []string // Posts generated ahead of the first request
	Locale     string   // Date locale (default "pt-BR")
	TimeZone   string   // IANA zone dates are shown in (default "UTC")

	Revalidate   time.Duration // Age after which a generated page is refetched (default 1h)
	FallbackWait time.Duration // How long a deferred request waits before showing the placeholder (default 2s)
	FetchTimeout time.Duration // Bound on one CMS fetch (default 10s)

	LoadMoreLimit int // Load-more requests per IP per minute (default 60)

	AdminPassword string // Plain text or bcrypt hash; empty disables /admin/
	SessionSecret string // Required when AdminPassword is set
	CookieSecure  bool   // Set true for HTTPS
}

// DefaultEagerSlugs are generated at build time when none are configured.
var DefaultEagerSlugs = []string{"como-utilizar-hooks", "criando-um-app-cra-do-zero"}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "spacetraveling"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/pages.db"
	}
	if c.OutputDir == "" {
		c.OutputDir = "out"
	}
	if c.PageSize <= 0 {
		c.PageSize = 1
	}
	if c.EagerSlugs == nil {
		c.EagerSlugs = append([]string(nil), DefaultEagerSlugs...)
	}
	if c.Locale == "" {
		c.Locale = post.DefaultLocale
	}
	if c.TimeZone == "" {
		c.TimeZone = "UTC"
	}
	if c.Revalidate == 0 {
		c.Revalidate = time.Hour
	}
	if c.FallbackWait == 0 {
		c.FallbackWait = 2 * time.Second
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.LoadMoreLimit == 0 {
		c.LoadMoreLimit = 60
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithContent replaces the CMS client, mostly for tests.
func WithContent(c ContentClient) Option {
	return func(a *App) {
		a.content = c
	}
}

// WithStore uses an already opened snapshot store instead of DatabasePath.
func WithStore(s *Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithLogger sets the application logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.log = l
	}
}

// ContentClient is the part of the CMS client the app uses.
type ContentClient interface {
	listing.Fetcher
	Seeder
	DetailFetcher
	SameOrigin(rawURL string) bool
}
