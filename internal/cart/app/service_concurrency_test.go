package app_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dwikikusuma/pos-payments/internal/cart/app"
	"github.com/dwikikusuma/pos-payments/internal/cart/domain"
)

type syncStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *syncStore) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, app.ErrNotFound
	}
	return v, nil
}

func (s *syncStore) Save(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *syncStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func TestCart_ConcurrentAddItemIncrement(t *testing.T) {
	ctx := context.Background()
	store := &syncStore{data: map[string][]byte{}}
	svc := app.NewService(store, nil)
	svc.Hydrate(ctx)

	productID := uuid.NewString()

	const N = 100
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < N; i++ {
		g.Go(func() error {
			_, err := svc.AddItem(ctx, domain.Product{ID: productID, Name: "Espresso", Price: 250}, 1)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent AddItem failed: %v", err)
	}

	cart := app.NewService(store, nil).Hydrate(context.Background())
	if len(cart.Items) != 1 {
		t.Fatalf("expected exactly 1 line, got %d: %+v", len(cart.Items), cart.Items)
	}
	if got := cart.Items[0].Quantity; got != N {
		t.Fatalf("expected quantity=%d, got=%d", N, got)
	}
	if got := cart.Items[0].Subtotal; got != 250*N {
		t.Fatalf("expected subtotal=%d, got=%d", 250*N, got)
	}
}
