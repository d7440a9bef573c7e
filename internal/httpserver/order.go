package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"webshop/internal/auth"
	"webshop/internal/logging"
	"webshop/internal/service/order"
	"webshop/internal/util"
)

type OrderHTTP struct {
	Orders *order.Service
}

func (h *OrderHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.checkout")

	userID, err := auth.CurrentUser(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req struct {
		Address string `json:"address"`
	}
	if err := c.Bind(&req); err != nil && c.Request().ContentLength > 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	ord, err := h.Orders.Checkout(ctx, userID, sessionID(c), req.Address)
	if err != nil {
		l.Warn("checkout failed", "userID", userID, "error", err)
		return httpError(err)
	}

	l.Info("checkout succeeded", "userID", userID, "orderID", ord.ID)
	return c.JSON(http.StatusCreated, echo.Map{
		"order_id": ord.ID,
		"total":    ord.Total,
		"status":   ord.Status,
		"items":    ord.Items,
	})
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	orders, err := h.Orders.ListOrders(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHTTP) ConfirmPayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.confirm_payment")

	userID, err := auth.CurrentUser(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	ord, err := h.Orders.ConfirmPayment(ctx, id, userID)
	if err != nil {
		// The payment itself stands when only the notification failed.
		if errors.Is(err, order.ErrNotification) {
			l.Warn("payment confirmed, notification failed", "orderID", id, "error", err)
			return c.JSON(http.StatusOK, echo.Map{
				"order":   ord,
				"warning": "confirmation email could not be sent",
			})
		}
		l.Warn("payment confirmation failed", "orderID", id, "error", err)
		return httpError(err)
	}

	l.Info("payment confirmed", "orderID", id)
	return c.JSON(http.StatusOK, echo.Map{"order": ord})
}

func (h *OrderHTTP) ConfirmReceipt(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	ord, err := h.Orders.ConfirmReceipt(c.Request().Context(), id, userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"order": ord})
}

func (h *OrderHTTP) MarkShipped(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	ord, err := h.Orders.MarkShipped(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"order": ord})
}

func (h *OrderHTTP) AddItem(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	ord, err := h.Orders.AddItem(c.Request().Context(), id, req.ProductID, req.Quantity)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ord)
}

func (h *OrderHTTP) SetItemQuantity(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	itemID, err := pathID(c, "itemID")
	if err != nil {
		return err
	}

	var req struct {
		Quantity uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	ord, err := h.Orders.SetItemQuantity(c.Request().Context(), id, itemID, req.Quantity)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ord)
}

func (h *OrderHTTP) RemoveItem(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	itemID, err := pathID(c, "itemID")
	if err != nil {
		return err
	}

	ord, err := h.Orders.RemoveItem(c.Request().Context(), id, itemID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ord)
}

func (h *OrderHTTP) Sales(c echo.Context) error {
	report, err := h.Orders.Sales(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, report)
}
