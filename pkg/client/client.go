// Package client is a typed HTTP client for the orders API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/matheusmosca/order-inventory-core/internal/analytics"
	"github.com/matheusmosca/order-inventory-core/internal/cart"
	"github.com/matheusmosca/order-inventory-core/internal/checkout"
	"github.com/matheusmosca/order-inventory-core/internal/domain"
)

// APIError is a non-2xx answer from the API. It matches the domain
// sentinels with errors.Is.
type APIError struct {
	Status    int    `json:"-"`
	Code      string `json:"code"`
	Message   string `json:"error"`
	Field     string `json:"field,omitempty"`
	ProductID int64  `json:"product_id,omitempty"`
	Requested int    `json:"requested,omitempty"`
	Available *int   `json:"available,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("orders api: %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch e.Code {
	case "not_found":
		return target == domain.ErrNotFound
	case "insufficient_stock":
		return target == domain.ErrInsufficientStock
	case "illegal_transition":
		return target == domain.ErrIllegalTransition
	case "validation":
		return target == domain.ErrValidation
	case "persistence":
		return target == domain.ErrPersistence
	case "corrupt_state":
		return target == domain.ErrCorruptState
	}
	return false
}

// OrderQuery filters ListOrders. Empty fields are omitted.
type OrderQuery struct {
	From      string
	To        string
	Statuses  []domain.Status
	Locations []string
	Mode      domain.FulfillmentMode
	Query     string
}

// Client fala com a API de pedidos
type Client struct {
	http *resty.Client
}

// New cria uma nova instância de Client
func New(baseURL string) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json")
	return &Client{http: rc}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req := c.http.R().SetContext(ctx).SetError(&APIError{})
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("orders api %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr, ok := resp.Error().(*APIError)
		if !ok || apiErr.Code == "" {
			apiErr = &APIError{Code: "internal", Message: resp.String()}
		}
		apiErr.Status = resp.StatusCode()
		return apiErr
	}
	return nil
}

// Health verifica se a API está de pé
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// ListProducts lista os produtos, opcionalmente por categoria
func (c *Client) ListProducts(ctx context.Context, category string) ([]domain.Product, error) {
	var out []domain.Product
	path := "/api/products"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProduct busca um produto
func (c *Client) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var out domain.Product
	if err := c.do(ctx, http.MethodGet, productPath(id, ""), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveProduct creates the product when its ID is zero, otherwise updates its
// metadata. Stock is changed only through Restock and orders.
func (c *Client) SaveProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	var out domain.Product
	if err := c.do(ctx, http.MethodPut, "/api/products", product, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Restock returns the product's stock after adding quantity.
func (c *Client) Restock(ctx context.Context, id int64, quantity int) (int, error) {
	var out struct {
		Stock int `json:"stock"`
	}
	body := map[string]int{"quantity": quantity}
	if err := c.do(ctx, http.MethodPost, productPath(id, "/restock"), body, &out); err != nil {
		return 0, err
	}
	return out.Stock, nil
}

// Movements lista o histórico de estoque de um produto
func (c *Client) Movements(ctx context.Context, id int64) ([]domain.StockMovement, error) {
	var out []domain.StockMovement
	if err := c.do(ctx, http.MethodGet, productPath(id, "/movements"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Checkout cria um pedido a partir das linhas enviadas
func (c *Client) Checkout(ctx context.Context, req checkout.Request) (*domain.Order, error) {
	var out domain.Order
	if err := c.do(ctx, http.MethodPost, "/api/checkout", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrder busca um pedido
func (c *Client) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var out domain.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOrders lista pedidos com filtros
func (c *Client) ListOrders(ctx context.Context, q OrderQuery) ([]domain.Order, error) {
	statuses := make([]string, 0, len(q.Statuses))
	for _, s := range q.Statuses {
		statuses = append(statuses, string(s))
	}
	query := url.Values{}
	setQuery(query, "from", q.From)
	setQuery(query, "to", q.To)
	setQuery(query, "mode", string(q.Mode))
	setQuery(query, "q", q.Query)
	setQuery(query, "location", strings.Join(q.Locations, ","))
	setQuery(query, "status", strings.Join(statuses, ","))

	path := "/api/orders"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var out []domain.Order
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Transition moves an order to status.
func (c *Client) Transition(ctx context.Context, id string, status domain.Status) (*domain.Order, error) {
	var out domain.Order
	body := map[string]string{"status": string(status)}
	if err := c.do(ctx, http.MethodPost, "/api/orders/"+url.PathEscape(id)+"/status", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RestockingDemand retorna a demanda de retirada de um dia
func (c *Client) RestockingDemand(ctx context.Context, date string) (*analytics.DemandReport, error) {
	var out analytics.DemandReport
	if err := c.do(ctx, http.MethodGet, "/api/reports/restocking?date="+url.QueryEscape(date), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SalesAnalytics retorna a análise de vendas do período
func (c *Client) SalesAnalytics(ctx context.Context, from, to string) (*analytics.SalesReport, error) {
	var out analytics.SalesReport
	path := "/api/reports/sales?from=" + url.QueryEscape(from) + "&to=" + url.QueryEscape(to)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCart retorna o carrinho da sessão
func (c *Client) GetCart(ctx context.Context, session string) (*cart.Cart, error) {
	var out cart.Cart
	if err := c.do(ctx, http.MethodGet, cartPath(session, ""), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddCartItem adiciona um produto ao carrinho
func (c *Client) AddCartItem(ctx context.Context, session string, productID int64, quantity int) (*cart.Cart, error) {
	var out cart.Cart
	body := domain.CartLine{ProductID: productID, Quantity: quantity}
	if err := c.do(ctx, http.MethodPost, cartPath(session, "/items"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveCartItem remove um produto do carrinho
func (c *Client) RemoveCartItem(ctx context.Context, session string, productID int64) (*cart.Cart, error) {
	var out cart.Cart
	path := cartPath(session, "/items/"+strconv.FormatInt(productID, 10))
	if err := c.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearCart esvazia o carrinho da sessão
func (c *Client) ClearCart(ctx context.Context, session string) error {
	return c.do(ctx, http.MethodDelete, cartPath(session, ""), nil, nil)
}

// CheckoutCart places an order from the session's cart.
func (c *Client) CheckoutCart(ctx context.Context, session string, customer domain.Customer, fulfillment domain.Fulfillment) (*domain.Order, error) {
	var out domain.Order
	body := map[string]any{"customer": customer, "fulfillment": fulfillment}
	if err := c.do(ctx, http.MethodPost, cartPath(session, "/checkout"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
