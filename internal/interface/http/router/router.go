// Package router mounts the HTTP API on a gin engine.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/sportsfest/registration/internal/interface/http/handler"
	"github.com/sportsfest/registration/internal/interface/http/middleware"
	"github.com/sportsfest/registration/pkg/response"
)

// Handlers are the route handlers mounted by New.
type Handlers struct {
	Product *handler.ProductHandler
	Cart    *handler.CartHandler
	Payment *handler.PaymentHandler
}

// New builds the engine. mode is a gin mode; swagger is not served in release.
func New(mode string, h Handlers, auth *middleware.AuthMiddleware, logger *zap.Logger) *gin.Engine {
	gin.SetMode(mode)

	r := gin.New()
	r.Use(
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.Metrics(),
	)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong", "status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if mode != gin.ReleaseMode {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")

	// signed by the processor, not by a session
	v1.POST("/webhooks/payments", h.Payment.Webhook)

	authorized := v1.Group("")
	authorized.Use(auth.RequireAuth())
	{
		products := authorized.Group("/products")
		products.GET("/availability", h.Product.GetAvailability)
		products.GET("/:id/availability", h.Product.GetProductAvailability)
		products.GET("/:id/inventory", h.Product.GetInventory)
		products.GET("/:id/tent-quota", h.Product.GetTentQuota)

		cart := authorized.Group("/cart")
		cart.GET("", h.Cart.GetCart)
		cart.POST("/items", h.Cart.AddItem)
		cart.PUT("/items/:product_id", h.Cart.UpdateItem)
		cart.DELETE("/items/:product_id", h.Cart.RemoveItem)
		cart.POST("/checkout", h.Cart.Checkout)

		authorized.POST("/payments/confirm", h.Payment.Confirm)
	}

	return r
}
