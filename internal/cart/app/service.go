package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/dwikikusuma/pos-payments/internal/cart/domain"
	"github.com/dwikikusuma/pos-payments/pkg/logger"
)

const StorageKey = "store-cart"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrItemNotFound = errors.New("item not in cart")
)

// Service keeps the in-progress cart in memory and writes it through to the
// store on every change. Storage failures never fail the caller.
type Service struct {
	store Store
	key   string
	log   *slog.Logger

	mu   sync.Mutex
	cart domain.Cart
}

func NewService(store Store, log *slog.Logger) *Service {
	return &Service{
		store: store,
		key:   StorageKey,
		log:   logger.OrDefault(log),
	}
}

// Hydrate loads the persisted cart once at startup. A missing, unreadable
// or corrupt slot yields an empty cart.
func (s *Service) Hydrate(ctx context.Context) domain.Cart {
	var c domain.Cart
	raw, err := s.store.Load(ctx, s.key)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		s.log.Warn("cart storage unavailable", slog.Any("err", err))
	default:
		if err := json.Unmarshal(raw, &c); err != nil {
			s.log.Warn("discarding corrupt cart", slog.Any("err", err))
			c = domain.Cart{}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = c
	return s.cart.Clone()
}

func (s *Service) Get() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

func (s *Service) SetItems(ctx context.Context, items []domain.Line) (domain.Cart, error) {
	for _, it := range items {
		if strings.TrimSpace(it.ID) == "" || it.Quantity <= 0 || it.Price < 0 {
			return domain.Cart{}, ErrInvalidInput
		}
	}
	return s.update(ctx, func(c *domain.Cart) error {
		c.Items = append([]domain.Line(nil), items...)
		return nil
	})
}

func (s *Service) SetDiscount(ctx context.Context, percent float64) (domain.Cart, error) {
	if percent < 0 || percent > 100 {
		return domain.Cart{}, ErrInvalidInput
	}
	return s.update(ctx, func(c *domain.Cart) error {
		c.Discount = percent
		return nil
	})
}

// AddItem increments the line for p, creating it at the end of the cart
// when absent.
func (s *Service) AddItem(ctx context.Context, p domain.Product, qty int64) (domain.Cart, error) {
	if strings.TrimSpace(p.ID) == "" || qty <= 0 || p.Price < 0 {
		return domain.Cart{}, ErrInvalidInput
	}
	return s.update(ctx, func(c *domain.Cart) error {
		for i := range c.Items {
			if c.Items[i].ID == p.ID {
				c.Items[i].Quantity += qty
				c.Items[i].Subtotal = c.Items[i].Price * c.Items[i].Quantity
				return nil
			}
		}
		c.Items = append(c.Items, domain.Line{
			ID:       p.ID,
			Name:     p.Name,
			Price:    p.Price,
			Quantity: qty,
			Subtotal: p.Price * qty,
		})
		return nil
	})
}

// UpdateQuantity sets a line's quantity; zero or less removes it.
func (s *Service) UpdateQuantity(ctx context.Context, id string, qty int64) (domain.Cart, error) {
	if qty <= 0 {
		return s.RemoveItem(ctx, id)
	}
	return s.update(ctx, func(c *domain.Cart) error {
		for i := range c.Items {
			if c.Items[i].ID == id {
				c.Items[i].Quantity = qty
				c.Items[i].Subtotal = c.Items[i].Price * qty
				return nil
			}
		}
		return ErrItemNotFound
	})
}

func (s *Service) RemoveItem(ctx context.Context, id string) (domain.Cart, error) {
	return s.update(ctx, func(c *domain.Cart) error {
		for i := range c.Items {
			if c.Items[i].ID == id {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
				return nil
			}
		}
		return ErrItemNotFound
	})
}

// Reset empties the cart and its discount.
func (s *Service) Reset(ctx context.Context) {
	_, _ = s.update(ctx, func(c *domain.Cart) error {
		*c = domain.Cart{}
		return nil
	})
}

func (s *Service) update(ctx context.Context, fn func(c *domain.Cart) error) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cart.Clone()
	if err := fn(&next); err != nil {
		return domain.Cart{}, err
	}
	s.cart = next
	s.persist(ctx, next)
	return next.Clone(), nil
}

func (s *Service) persist(ctx context.Context, c domain.Cart) {
	if len(c.Items) == 0 && c.Discount == 0 {
		if err := s.store.Delete(ctx, s.key); err != nil {
			s.log.Warn("cart delete failed", slog.Any("err", err))
		}
		return
	}
	raw, err := json.Marshal(c)
	if err != nil {
		s.log.Error("cart encode failed", slog.Any("err", err))
		return
	}
	if err := s.store.Save(ctx, s.key, raw); err != nil {
		s.log.Warn("cart save failed", slog.Any("err", err))
	}
}
