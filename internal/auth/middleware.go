package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Middleware struct {
	Secret []byte
}

func (m *Middleware) authenticate(c echo.Context) (uint, string, error) {
	cookie, err := c.Cookie("accessToken")
	if err != nil || cookie.Value == "" {
		return 0, "", echo.NewHTTPError(http.StatusUnauthorized, "missing auth cookie")
	}
	userID, role, err := ParseAccessToken(cookie.Value, m.Secret)
	if err != nil {
		return 0, "", echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	return userID, role, nil
}

func (m *Middleware) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, role, err := m.authenticate(c)
		if err != nil {
			return err
		}
		c.Set("userID", userID)
		c.Set("role", role)
		return next(c)
	}
}

func (m *Middleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, role, err := m.authenticate(c)
		if err != nil {
			return err
		}
		if role != "admin" {
			return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
		}
		c.Set("userID", userID)
		c.Set("role", role)
		return next(c)
	}
}

// CurrentUser returns the authenticated user ID previously put into the echo
// context by RequireLogin/RequireAdmin.
func CurrentUser(c echo.Context) (uint, error) {
	v := c.Get("userID")
	id, ok := v.(uint)
	if !ok || id == 0 {
		return 0, errors.New("unauthorized")
	}
	return id, nil
}
