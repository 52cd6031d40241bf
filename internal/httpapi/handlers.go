package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/matheusmosca/order-inventory-core/internal/checkout"
	"github.com/matheusmosca/order-inventory-core/internal/domain"
	"github.com/matheusmosca/order-inventory-core/internal/orders"
)

// RestockRequest is the body of POST /api/products/:id/restock.
type RestockRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// RestockResponse reports the stock after a restock.
type RestockResponse struct {
	ProductID int64 `json:"product_id"`
	Stock     int   `json:"stock"`
}

// TransitionRequest is the body of POST /api/orders/:id/status.
type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
}

// CartItemRequest is the body of POST /api/carts/:session/items.
type CartItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

// CartCheckoutRequest is the body of POST /api/carts/:session/checkout.
type CartCheckoutRequest struct {
	Customer    domain.Customer    `json:"customer"`
	Fulfillment domain.Fulfillment `json:"fulfillment"`
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, domain.NewValidationError(name, "must be a positive integer"))
		return 0, false
	}
	return id, true
}

// ListProducts lista os produtos, opcionalmente por categoria
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.deps.Catalog.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// GetProduct busca um produto
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	product, err := h.deps.Catalog.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// SaveProduct cria ou atualiza os metadados de um produto
func (h *Handler) SaveProduct(c *gin.Context) {
	var product domain.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		writeBindError(c, err)
		return
	}

	created := product.ID == 0
	if err := h.deps.Catalog.Save(c.Request.Context(), &product); err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, product)
}

// Restock aumenta o estoque de um produto
func (h *Handler) Restock(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	stock, err := h.deps.Restocker.Restock(c.Request.Context(), id, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, RestockResponse{ProductID: id, Stock: stock})
}

// ListMovements lista o histórico de estoque de um produto
func (h *Handler) ListMovements(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if _, err := h.deps.Catalog.Get(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	movements, err := h.deps.Catalog.Movements(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, movements)
}

// Checkout cria um pedido a partir das linhas enviadas
func (h *Handler) Checkout(c *gin.Context) {
	var req checkout.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	order, err := h.deps.Checkout.Checkout(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// ListOrders lista pedidos com filtros
func (h *Handler) ListOrders(c *gin.Context) {
	filter := orders.Filter{
		From:            c.Query("from"),
		To:              c.Query("to"),
		PickupLocations: queryList(c, "location"),
		Mode:            domain.FulfillmentMode(c.Query("mode")),
		Query:           c.Query("q"),
	}
	for _, raw := range queryList(c, "status") {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	list, err := h.deps.Orders.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// queryList accepts both repeated and comma separated query values.
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// GetOrder busca um pedido
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.deps.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// TransitionOrder altera o status de um pedido
func (h *Handler) TransitionOrder(c *gin.Context) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		writeError(c, err)
		return
	}

	order, err := h.deps.Lifecycle.Transition(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// RestockingDemand retorna a demanda de retirada de um dia
func (h *Handler) RestockingDemand(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		writeError(c, domain.NewValidationError("date", "is required"))
		return
	}
	report, err := h.deps.Reports.RestockingDemand(c.Request.Context(), date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// SalesAnalytics retorna a análise de vendas do período
func (h *Handler) SalesAnalytics(c *gin.Context) {
	report, err := h.deps.Reports.SalesAnalytics(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetCart retorna o carrinho da sessão
func (h *Handler) GetCart(c *gin.Context) {
	cart, err := h.deps.Carts.Get(c.Request.Context(), c.Param("session"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// ClearCart esvazia o carrinho da sessão
func (h *Handler) ClearCart(c *gin.Context) {
	if err := h.deps.Carts.Clear(c.Request.Context(), c.Param("session")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddCartItem adiciona um produto ao carrinho
func (h *Handler) AddCartItem(c *gin.Context) {
	var req CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	cart, err := h.deps.Carts.AddItem(c.Request.Context(), c.Param("session"), req.ProductID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// RemoveCartItem remove um produto do carrinho
func (h *Handler) RemoveCartItem(c *gin.Context) {
	id, ok := int64Param(c, "productId")
	if !ok {
		return
	}
	cart, err := h.deps.Carts.RemoveItem(c.Request.Context(), c.Param("session"), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// CheckoutCart cria um pedido a partir do carrinho da sessão
func (h *Handler) CheckoutCart(c *gin.Context) {
	var req CartCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	order, err := h.deps.Carts.Checkout(c.Request.Context(), h.deps.Checkout, c.Param("session"), req.Customer, req.Fulfillment)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}
