package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"webshop/internal/service/cart"
)

type CartHTTP struct {
	Carts *cart.Service
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	view, err := h.Carts.View(c.Request().Context(), sessionID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	var req struct {
		ProductID uint `json:"product_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	contents, err := h.Carts.Add(c.Request().Context(), sessionID(c), req.ProductID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, contents)
}

func (h *CartHTTP) UpdateCart(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		Action   cart.Action `json:"action"`
		Quantity uint        `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	contents, err := h.Carts.Update(sessionID(c), id, req.Action, req.Quantity)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, contents)
}

func (h *CartHTTP) RemoveFromCart(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	contents := h.Carts.Remove(sessionID(c), id)
	return c.JSON(http.StatusOK, contents)
}
