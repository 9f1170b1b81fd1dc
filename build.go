package spacetraveling

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/eringen/spacetraveling/listing"
	"github.com/eringen/spacetraveling/post"
	"github.com/eringen/spacetraveling/prismic"
)

// Generated is the result of one generation run.
type Generated struct {
	Listing listing.State
	Posts   []post.Detail
	Missing []string // eager slugs the CMS does not know
}

// Generate fetches the listing seed and every eager post, refreshing the
// cache and the store. The fetches are independent and run concurrently.
// An eager slug the CMS does not have is reported in Missing, not as an
// error.
func (a *App) Generate(ctx context.Context) (*Generated, error) {
	var (
		mu  sync.Mutex
		gen Generated
	)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		st, err := a.resolver.seedListing(ctx)
		if err != nil {
			return err
		}
		generated := a.resolver.now()
		a.Cache.PutListing(st, generated)
		if err := a.Store.SaveListing(ctx, st, generated); err != nil {
			return err
		}
		gen.Listing = st
		return nil
	})

	for _, slug := range a.Config.EagerSlugs {
		slug := slug
		g.Go(func() error {
			d, err := a.resolver.fetch(ctx, slug)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, prismic.ErrNotFound):
				a.log.WarnContext(ctx, "eager post not found", "slug", slug)
				gen.Missing = append(gen.Missing, slug)
				return nil
			case err != nil:
				return fmt.Errorf("generate %q: %w", slug, err)
			}
			gen.Posts = append(gen.Posts, d)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &gen, nil
}

// Export writes gen as static HTML into dir: index.html, one
// post/{slug}/index.html per post, and the embedded assets.
func (a *App) Export(ctx context.Context, gen *Generated, dir string) error {
	if err := RenderFile(ctx, filepath.Join(dir, "index.html"), a.Views.Home(a.homeData(gen.Listing))); err != nil {
		return err
	}
	for _, d := range gen.Posts {
		path := filepath.Join(dir, "post", d.UID, "index.html")
		if err := RenderFile(ctx, path, a.Views.Post(a.postData(d))); err != nil {
			return err
		}
	}
	if err := RenderFile(ctx, filepath.Join(dir, "404.html"), a.Views.NotFound(a.errorData("Página não encontrada"))); err != nil {
		return err
	}
	return exportAssets(dir)
}

func exportAssets(dir string) error {
	targets := map[string]string{
		"logo.svg":    filepath.Join(dir, "images", "logo.svg"),
		"loadmore.js": filepath.Join(dir, "public", "loadmore.js"),
		"style.css":   filepath.Join(dir, "public", "style.css"),
	}
	return fs.WalkDir(EmbeddedAssets, "embedded", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		target, ok := targets[d.Name()]
		if !ok {
			return nil
		}
		b, err := EmbeddedAssets.ReadFile(path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.WriteFile(target, b, 0o644)
	})
}
