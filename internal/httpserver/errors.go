package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"webshop/internal/service/cart"
	"webshop/internal/service/catalog"
	"webshop/internal/service/order"
)

// httpError maps service sentinel errors onto HTTP codes. Anything
// unrecognized is a persistence or programming failure and stays opaque.
func httpError(err error) error {
	switch {
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, cart.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrValidation),
		errors.Is(err, catalog.ErrValidation),
		errors.Is(err, cart.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotOwner):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
