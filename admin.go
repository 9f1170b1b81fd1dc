package spacetraveling

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/eringen/spacetraveling/post"
	"github.com/eringen/spacetraveling/views"
)

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(a.adminLoginData(false, c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	if !a.loginLimiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	if a.checkPassword(c.FormValue("password")) {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	return Render(c, a.Views.AdminLogin(a.adminLoginData(true, c)))
}

// checkPassword accepts the configured password in plain text or, when it
// looks like one, as a bcrypt hash.
func (a *App) checkPassword(pass string) bool {
	want := a.Config.AdminPassword
	if strings.HasPrefix(want, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(want), []byte(pass)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(pass), []byte(want)) == 1
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

// handleRevalidatePost drops a generated post so its next request resolves
// it again from the CMS.
func (a *App) handleRevalidatePost(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	slug := c.Param("slug")
	a.Cache.InvalidateDetail(slug)
	if err := a.Store.DeletePost(c.Request().Context(), slug); err != nil {
		return err
	}
	a.log.InfoContext(c.Request().Context(), "post revalidated", "slug", slug)
	return redirectWithMessage(c, "Post "+slug+" será gerado novamente.")
}

func (a *App) handleRevalidateListing(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.Cache.InvalidateListing()
	if err := a.Store.DeleteListing(c.Request().Context()); err != nil {
		return err
	}
	a.log.InfoContext(c.Request().Context(), "listing revalidated")
	return redirectWithMessage(c, "Listagem será gerada novamente.")
}

func redirectWithMessage(c echo.Context, msg string) error {
	return c.Redirect(http.StatusSeeOther, "/admin/?msg="+url.QueryEscape(msg))
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	ctx := c.Request().Context()
	snapshots, err := a.Store.ListPosts(ctx)
	if err != nil {
		return err
	}
	data := views.AdminData{
		Site:      a.site(),
		Meta:      views.PageMeta{Title: "Admin"},
		Message:   msg,
		CSRFToken: CsrfToken(c),
	}
	for _, s := range snapshots {
		data.Snapshots = append(data.Snapshots, views.Snapshot{
			Slug:        s.Slug,
			Title:       s.Title,
			Link:        post.Link(s.Slug),
			GeneratedAt: formatGenerated(s.GeneratedAt, a.loc),
			Eager:       a.resolver.IsEager(s.Slug),
		})
	}
	if _, generated, err := a.Store.GetListing(ctx); err == nil {
		data.ListingGeneratedAt = formatGenerated(generated, a.loc)
	}
	return Render(c, a.Views.AdminDashboard(data))
}

func (a *App) adminLoginData(showError bool, c echo.Context) views.AdminLoginData {
	return views.AdminLoginData{
		Site:      a.site(),
		Meta:      views.PageMeta{Title: "Admin"},
		ShowError: showError,
		CSRFToken: CsrfToken(c),
	}
}
