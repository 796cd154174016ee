package server

import (
	"net/http"

	"github.com/fekuna/omnipos-boutique-service/internal/auth"
	authH "github.com/fekuna/omnipos-boutique-service/internal/auth/handler"
	invH "github.com/fekuna/omnipos-boutique-service/internal/inventory/handler"
	"github.com/fekuna/omnipos-boutique-service/internal/model"
	prodH "github.com/fekuna/omnipos-boutique-service/internal/product/handler"
	saleH "github.com/fekuna/omnipos-boutique-service/internal/sale/handler"
	shopH "github.com/fekuna/omnipos-boutique-service/internal/shop/handler"
	"github.com/fekuna/omnipos-boutique-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Handlers struct {
	Auth      *authH.AuthHandler
	Shop      *shopH.ShopHandler
	Product   *prodH.ProductHandler
	Inventory *invH.InventoryHandler
	Sale      *saleH.SaleHandler
}

func NewRouter(serviceName string, h *Handlers, authUC auth.UseCase, log logger.ZapLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(RequestLogger(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/auth/login", h.Auth.Login)

	protected := api.Group("")
	protected.Use(auth.Middleware(authUC))
	{
		protected.POST("/auth/logout", h.Auth.Logout)
		protected.GET("/auth/me", h.Auth.Me)

		protected.GET("/shops", h.Shop.ListShops)
		protected.GET("/shops/:id", h.Shop.GetShop)
		admin := protected.Group("")
		admin.Use(auth.RequireRole(model.RoleAdmin))
		admin.POST("/shops", h.Shop.CreateShop)
		admin.POST("/shops/seed", h.Shop.SeedShops)
		admin.PUT("/shops/:id", h.Shop.UpdateShop)
		admin.DELETE("/shops/:id", h.Shop.DeleteShop)

		protected.POST("/products", h.Product.CreateProduct)
		protected.GET("/products", h.Product.ListProducts)
		protected.GET("/products/:id", h.Product.GetProduct)
		protected.PUT("/products/:id", h.Product.UpdateProduct)
		protected.DELETE("/products/:id", h.Product.DeleteProduct)
		protected.GET("/products/:id/variants", h.Product.ListVariants)
		protected.POST("/products/:id/variants", h.Product.AddVariant)

		protected.POST("/products/:id/receive", h.Inventory.Receive)
		protected.POST("/products/:id/sell", h.Inventory.Sell)
		protected.POST("/stock/transfer", h.Inventory.Transfer)
		protected.GET("/stock/alerts", h.Inventory.StockAlerts)
		protected.POST("/checkout", h.Inventory.Checkout)

		protected.GET("/sales", h.Sale.History)
		protected.GET("/sales/statistics", h.Sale.Statistics)
	}

	return r
}
