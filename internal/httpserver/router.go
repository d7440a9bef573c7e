package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"webshop/internal/auth"
)

type Deps struct {
	AuthHandler     *AuthHTTP
	ProductHandler  *ProductHTTP
	CartHandler     *CartHTTP
	OrderHandler    *OrderHTTP
	ActivityHandler *ActivityHTTP
	JWTSecret       []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	authMW := &auth.Middleware{Secret: d.JWTSecret}

	v1 := e.Group("/api/v1", SessionID)

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	user := v1.Group("", authMW.RequireLogin)

	user.GET("/cart", d.CartHandler.GetCart)
	user.POST("/cart", d.CartHandler.AddToCart)
	user.PATCH("/cart/:id", d.CartHandler.UpdateCart)
	user.DELETE("/cart/:id", d.CartHandler.RemoveFromCart)

	user.POST("/checkout", d.OrderHandler.Checkout)
	user.GET("/orders", d.OrderHandler.ListOrders)
	user.POST("/orders/:id/pay", d.OrderHandler.ConfirmPayment)
	user.POST("/orders/:id/receive", d.OrderHandler.ConfirmReceipt)

	user.GET("/activity", d.ActivityHandler.Recent)

	admin := v1.Group("/admin", authMW.RequireAdmin)

	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)

	admin.POST("/orders/:id/ship", d.OrderHandler.MarkShipped)
	admin.POST("/orders/:id/items", d.OrderHandler.AddItem)
	admin.PATCH("/orders/:id/items/:itemID", d.OrderHandler.SetItemQuantity)
	admin.DELETE("/orders/:id/items/:itemID", d.OrderHandler.RemoveItem)

	admin.GET("/reports/sales", d.OrderHandler.Sales)
	admin.GET("/activity", d.ActivityHandler.RecentAll)
}
