// Package httpapi exposes the order core as a JSON API on gin.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/matheusmosca/order-inventory-core/internal/analytics"
	"github.com/matheusmosca/order-inventory-core/internal/cart"
	"github.com/matheusmosca/order-inventory-core/internal/checkout"
	"github.com/matheusmosca/order-inventory-core/internal/domain"
	"github.com/matheusmosca/order-inventory-core/internal/orders"
)

// Catalog is the product side of the API.
type Catalog interface {
	Get(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, category string) ([]domain.Product, error)
	Save(ctx context.Context, product *domain.Product) error
	Movements(ctx context.Context, productID int64) ([]domain.StockMovement, error)
}

// Restocker adds stock.
type Restocker interface {
	Restock(ctx context.Context, productID int64, quantity int) (int, error)
}

// OrderReader reads orders.
type OrderReader interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, filter orders.Filter) ([]domain.Order, error)
}

// Transitioner changes order status.
type Transitioner interface {
	Transition(ctx context.Context, orderID string, target domain.Status) (*domain.Order, error)
}

// Reports answers the aggregate queries.
type Reports interface {
	RestockingDemand(ctx context.Context, date string) (*analytics.DemandReport, error)
	SalesAnalytics(ctx context.Context, from, to string) (*analytics.SalesReport, error)
}

// Carts manages session carts.
type Carts interface {
	Get(ctx context.Context, session string) (*cart.Cart, error)
	AddItem(ctx context.Context, session string, productID int64, quantity int) (*cart.Cart, error)
	RemoveItem(ctx context.Context, session string, productID int64) (*cart.Cart, error)
	Clear(ctx context.Context, session string) error
	Checkout(ctx context.Context, checkouter cart.Checkouter, session string, customer domain.Customer, fulfillment domain.Fulfillment) (*domain.Order, error)
}

// Checkouter places orders.
type Checkouter interface {
	Checkout(ctx context.Context, req checkout.Request) (*domain.Order, error)
}

// Deps are the collaborators behind the routes.
type Deps struct {
	Catalog   Catalog
	Restocker Restocker
	Checkout  Checkouter
	Orders    OrderReader
	Lifecycle Transitioner
	Reports   Reports
	Carts     Carts
}

// Handler contém os handlers HTTP
type Handler struct {
	deps   Deps
	logger *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps, serviceName string, logger *zap.Logger) *gin.Engine {
	h := &Handler{deps: deps, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(requestLogger(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := r.Group("/api")

	api.GET("/products", h.ListProducts)
	api.PUT("/products", h.SaveProduct)
	api.GET("/products/:id", h.GetProduct)
	api.POST("/products/:id/restock", h.Restock)
	api.GET("/products/:id/movements", h.ListMovements)

	api.POST("/checkout", h.Checkout)

	api.GET("/orders", h.ListOrders)
	api.GET("/orders/:id", h.GetOrder)
	api.POST("/orders/:id/status", h.TransitionOrder)

	api.GET("/reports/restocking", h.RestockingDemand)
	api.GET("/reports/sales", h.SalesAnalytics)

	api.GET("/carts/:session", h.GetCart)
	api.DELETE("/carts/:session", h.ClearCart)
	api.POST("/carts/:session/items", h.AddCartItem)
	api.DELETE("/carts/:session/items/:productId", h.RemoveCartItem)
	api.POST("/carts/:session/checkout", h.CheckoutCart)

	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.Last().Error()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("[HTTP] request failed", fields...)
			return
		}
		logger.Debug("[HTTP] request", fields...)
	}
}
