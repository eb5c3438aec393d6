package api

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

// SessionCookie carries the bearer token for browser requests.
const SessionCookie = "daily_session"

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
	errCrossOrigin          = errors.New("cross-origin request")
)

const (
	bearerPrefix       = "Bearer "
	headerSecFetchSite = "Sec-Fetch-Site"
)

func bearerTokenFromString(raw string) (string, error) {
	raw = strings.Trim(raw, " ")
	if raw == "" {
		return "", errMissingAuthorization
	}
	if len(raw) <= len(bearerPrefix) || !strings.HasPrefix(raw, bearerPrefix) {
		return "", errBadAuthorization
	}
	token := raw[len(bearerPrefix):]
	if strings.Count(token, ".") != 2 {
		return "", errBadAuthorization
	}
	return token, nil
}

// authHeader returns the Authorization header, or a bearer value built from
// the session cookie when the header is absent.
func authHeader(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		return h
	}
	if ck, err := c.Cookie(SessionCookie); err == nil && ck.Value != "" {
		return bearerPrefix + ck.Value
	}
	return ""
}

// checkWriteOrigin rejects cookie-authenticated requests that do not come
// from the serving origin. Requests carrying an Authorization header pass.
func checkWriteOrigin(req *http.Request) error {
	if req.Header.Get(echo.HeaderAuthorization) != "" {
		return nil
	}
	if site := req.Header.Get(headerSecFetchSite); site != "" {
		if site == "same-origin" || site == "none" {
			return nil
		}
		return errCrossOrigin
	}
	origin := req.Header.Get(echo.HeaderOrigin)
	if origin == "" {
		return errCrossOrigin
	}
	u, err := url.Parse(origin)
	if err != nil || !strings.EqualFold(u.Host, req.Host) {
		return errCrossOrigin
	}
	return nil
}
