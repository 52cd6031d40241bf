// Package cart keeps per-session cart lines in Redis until checkout.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/matheusmosca/order-inventory-core/internal/checkout"
	"github.com/matheusmosca/order-inventory-core/internal/domain"
)

// DefaultTTL is how long an untouched cart survives.
const DefaultTTL = 24 * time.Hour

const maxWatchRetries = 3

// Cart is the transient selection of one session.
type Cart struct {
	Session   string            `json:"session"`
	Lines     []domain.CartLine `json:"lines"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ProductLookup resolves products added to a cart.
type ProductLookup interface {
	Get(ctx context.Context, id int64) (*domain.Product, error)
}

// Checkouter places an order from cart lines.
type Checkouter interface {
	Checkout(ctx context.Context, req checkout.Request) (*domain.Order, error)
}

// Store guarda os carrinhos no Redis
type Store struct {
	client  *redis.Client
	catalog ProductLookup
	ttl     time.Duration
	logger  *zap.Logger
}

// NewStore cria uma nova instância de Store. A zero ttl means DefaultTTL.
func NewStore(client *redis.Client, catalog ProductLookup, ttl time.Duration, logger *zap.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, catalog: catalog, ttl: ttl, logger: logger}
}

func cacheKey(session string) string {
	return fmt.Sprintf("cart:%s", session)
}

func validateSession(session string) error {
	if session == "" {
		return domain.NewValidationError("session", "is required")
	}
	return nil
}

// Get returns the session's cart, empty if it has none.
func (s *Store) Get(ctx context.Context, session string) (*Cart, error) {
	if err := validateSession(session); err != nil {
		return nil, err
	}
	return s.load(ctx, s.client, session)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) load(ctx context.Context, c getter, session string) (*Cart, error) {
	data, err := c.Get(ctx, cacheKey(session)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &Cart{Session: session, Lines: []domain.CartLine{}}, nil
	}
	if err != nil {
		return nil, domain.PersistenceError("redis get failed", err)
	}

	var cart Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, domain.CorruptStateError("cart "+session, err)
	}
	return &cart, nil
}

// update applies fn under WATCH so concurrent edits of one session never
// overwrite each other.
func (s *Store) update(ctx context.Context, session string, fn func(*Cart) error) (*Cart, error) {
	if err := validateSession(session); err != nil {
		return nil, err
	}
	key := cacheKey(session)

	var (
		result *Cart
		txErr  error
	)
	txf := func(tx *redis.Tx) error {
		txErr = s.apply(ctx, tx, session, fn, &result)
		return txErr
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		switch {
		case errors.Is(err, redis.TxFailedErr):
			continue
		case err == nil:
			return result, nil
		case txErr != nil:
			return nil, txErr
		default:
			return nil, domain.PersistenceError("redis watch failed", err)
		}
	}
	return nil, domain.PersistenceError("redis update failed",
		fmt.Errorf("cart %s changed concurrently %d times", session, maxWatchRetries))
}

func (s *Store) apply(ctx context.Context, tx *redis.Tx, session string, fn func(*Cart) error, out **Cart) error {
	cart, err := s.load(ctx, tx, session)
	if err != nil {
		return err
	}
	if err := fn(cart); err != nil {
		return err
	}
	cart.UpdatedAt = time.Now()

	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, cacheKey(session), payload, s.ttl)
		return nil
	})
	if errors.Is(err, redis.TxFailedErr) {
		return err
	}
	if err != nil {
		return domain.PersistenceError("redis set failed", err)
	}
	*out = cart
	return nil
}

// AddItem adds quantity of a product, merging with an existing line. The
// combined quantity may not exceed the product's current stock.
func (s *Store) AddItem(ctx context.Context, session string, productID int64, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, domain.NewValidationError("quantity", "must be positive")
	}
	product, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	return s.update(ctx, session, func(c *Cart) error {
		for i := range c.Lines {
			if c.Lines[i].ProductID == productID {
				sum, err := domain.AddQuantities(c.Lines[i].Quantity, quantity)
				if err != nil {
					return err
				}
				if sum > product.Stock {
					return &domain.InsufficientStockError{ProductID: productID,
						Requested: sum, Available: product.Stock}
				}
				c.Lines[i].Quantity = sum
				return nil
			}
		}
		if quantity > product.Stock {
			return &domain.InsufficientStockError{ProductID: productID, Requested: quantity, Available: product.Stock}
		}
		c.Lines = append(c.Lines, domain.CartLine{ProductID: productID, Quantity: quantity})
		return nil
	})
}

// RemoveItem drops a product's line. Removing an absent product is a no-op.
func (s *Store) RemoveItem(ctx context.Context, session string, productID int64) (*Cart, error) {
	return s.update(ctx, session, func(c *Cart) error {
		kept := c.Lines[:0]
		for _, line := range c.Lines {
			if line.ProductID != productID {
				kept = append(kept, line)
			}
		}
		c.Lines = kept
		return nil
	})
}

// Clear deletes the session's cart.
func (s *Store) Clear(ctx context.Context, session string) error {
	if err := validateSession(session); err != nil {
		return err
	}
	if err := s.client.Del(ctx, cacheKey(session)).Err(); err != nil {
		return domain.PersistenceError("redis delete failed", err)
	}
	return nil
}

// Checkout places an order from the session's cart and clears it. A failed
// checkout leaves the cart as it was.
func (s *Store) Checkout(ctx context.Context, checkouter Checkouter, session string, customer domain.Customer, fulfillment domain.Fulfillment) (*domain.Order, error) {
	cart, err := s.Get(ctx, session)
	if err != nil {
		return nil, err
	}
	if len(cart.Lines) == 0 {
		return nil, domain.NewValidationError("items", "cart is empty")
	}

	order, err := checkouter.Checkout(ctx, checkout.Request{
		Lines:       cart.Lines,
		Customer:    customer,
		Fulfillment: fulfillment,
	})
	if err != nil {
		return nil, err
	}

	if err := s.Clear(ctx, session); err != nil {
		s.logger.Warn("[CART] order placed but cart not cleared",
			zap.String("session", session), zap.String("order_id", order.ID), zap.Error(err))
	}
	return order, nil
}
