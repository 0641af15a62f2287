// Package web routes HTTP requests to the session gateway and the object
// store and renders the HTML surface.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/pixbin/pixbin/pkg/authn"
	"github.com/pixbin/pixbin/pkg/blob"
	"github.com/pixbin/pixbin/pkg/saml"
	"github.com/pixbin/pixbin/pkg/session"
)

// imagesPerRow controls the account page grid layout.
const imagesPerRow = 4

type Handlers struct {
	gateway *session.Gateway
	store   blob.Store
}

func NewHandlers(gateway *session.Gateway, store blob.Store) *Handlers {
	return &Handlers{
		gateway: gateway,
		store:   store,
	}
}

func (h *Handlers) MountRoutes(e *echo.Echo) {
	e.GET("/", h.getIndex)
	e.GET("/login", h.getLogin)
	e.POST("/identity", h.postIdentity)
	e.GET("/account", h.getAccount)
	e.GET("/img", h.getImage)
	e.POST("/add", h.postAdd)
}

func requestContext(c echo.Context) saml.RequestContext {
	params := url.Values{}
	for k, vs := range c.QueryParams() {
		params[k] = append(params[k], vs...)
	}
	if form, err := c.FormParams(); err == nil {
		for k, vs := range form {
			params[k] = append(params[k], vs...)
		}
	}
	return saml.RequestContext{
		Host:   c.Request().Host,
		Path:   c.Request().URL.Path,
		Params: params,
	}
}

func (h *Handlers) token(c echo.Context) string {
	cookie, err := c.Cookie(session.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// authenticate resolves the session for this request. When the returned
// handled flag is set the response has already been produced (a redirect
// to the IdP or a login page) and the handler must stop.
func (h *Handlers) authenticate(c echo.Context, allowRedirect bool) (string, bool, error) {
	result, err := h.gateway.Authenticate(requestContext(c), h.token(c), allowRedirect)
	if err != nil {
		return "", true, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	switch result.Status {
	case session.StatusAdmitted:
		// re-arm the sliding expiry
		c.SetCookie(h.gateway.Cookie(result.Token))
		return result.Account, false, nil
	case session.StatusRedirect:
		c.SetCookie(h.gateway.Cookie(result.Token))
		return "", true, c.Redirect(http.StatusTemporaryRedirect, result.RedirectURL)
	default:
		return "", true, c.Render(http.StatusOK, "login.html", nil)
	}
}

func (h *Handlers) getIndex(c echo.Context) error {
	account, handled, err := h.authenticate(c, true)
	if handled {
		return err
	}
	if err := h.store.Ensure(account); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.Redirect(http.StatusTemporaryRedirect, "/account")
}

func (h *Handlers) getLogin(c echo.Context) error {
	return c.Render(http.StatusOK, "login.html", nil)
}

// postIdentity is the assertion consumer endpoint the IdP posts back to.
// Failures establish no session but still render the redirect page, so
// the follow-up request restarts the login cleanly.
func (h *Handlers) postIdentity(c echo.Context) error {
	token := h.token(c)
	rawAssertion := []byte(c.FormValue("SAMLResponse"))

	switch {
	case token == "":
		slog.Warn("assertion callback without session cookie", "remote", c.RealIP())
	case len(rawAssertion) == 0:
		slog.Warn("assertion callback without SAMLResponse", "remote", c.RealIP())
	default:
		if _, err := h.gateway.CompleteLogin(token, rawAssertion); err != nil {
			if errors.Is(err, authn.ErrUnknownRequest) {
				slog.Warn("assertion for unknown login request", "remote", c.RealIP())
			} else {
				slog.Error("assertion rejected", "error", err)
			}
		}
	}

	return c.Render(http.StatusOK, "redirect.html", nil)
}

func (h *Handlers) getAccount(c echo.Context) error {
	account, handled, err := h.authenticate(c, true)
	if handled {
		return err
	}
	return h.renderAccount(c, account)
}

func (h *Handlers) getImage(c echo.Context) error {
	account, handled, err := h.authenticate(c, true)
	if handled {
		return err
	}

	obj, err := h.store.Get(account, c.QueryParam("name"))
	switch {
	case errors.Is(err, blob.ErrInvalidName):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid object name")
	case errors.Is(err, blob.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "no such object")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer obj.Close()

	return c.Stream(http.StatusOK, "image/jpeg", obj)
}

// postAdd uses non-redirecting authentication: an unauthenticated upload
// gets a login page body instead of bouncing the POST to the IdP.
func (h *Handlers) postAdd(c echo.Context) error {
	account, handled, err := h.authenticate(c, false)
	if handled {
		return err
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing image field")
	}
	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()

	handle, err := h.store.Put(account, src)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	slog.Info("upload accepted", "account", account, "handle", handle)

	return h.renderAccount(c, account)
}

func (h *Handlers) renderAccount(c echo.Context, account string) error {
	handles, err := h.store.List(account)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.Render(http.StatusOK, "account.html", map[string]interface{}{
		"Account": account,
		"Rows":    groupRows(handles, imagesPerRow),
	})
}

func groupRows(handles []string, perRow int) [][]string {
	var rows [][]string
	for len(handles) > perRow {
		rows = append(rows, handles[:perRow])
		handles = handles[perRow:]
	}
	if len(handles) > 0 {
		rows = append(rows, handles)
	}
	return rows
}
