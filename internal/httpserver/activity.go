package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"webshop/internal/auth"
	"webshop/internal/service/activity"
)

type ActivityHTTP struct {
	Activity *activity.Service
}

func (h *ActivityHTTP) Recent(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	limit := parseIntDefault(c.QueryParam("limit"), 20)
	entries, err := h.Activity.Recent(c.Request().Context(), &userID, limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entries)
}

// RecentAll is the operator view: all users, optional user filter.
func (h *ActivityHTTP) RecentAll(c echo.Context) error {
	limit := parseIntDefault(c.QueryParam("limit"), 20)

	var userID *uint
	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid user_id")
		}
		u := uint(id)
		userID = &u
	}

	entries, err := h.Activity.Recent(c.Request().Context(), userID, limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entries)
}
