package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"webshop/internal/session"
)

const sessionCookie = "sessionID"

// SessionID mints an opaque session identifier cookie when the request does
// not carry one yet. The cart is addressable only through this ID.
func SessionID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ck, err := c.Cookie(sessionCookie)
		if err != nil || ck.Value == "" {
			id := session.NewID()
			c.SetCookie(&http.Cookie{
				Name:     sessionCookie,
				Value:    id,
				Path:     "/",
				Expires:  time.Now().Add(7 * 24 * time.Hour),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			c.Set(sessionCookie, id)
			return next(c)
		}
		c.Set(sessionCookie, ck.Value)
		return next(c)
	}
}

func sessionID(c echo.Context) string {
	v, _ := c.Get(sessionCookie).(string)
	return v
}
