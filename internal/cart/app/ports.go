package app

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("cart slot not found")

// Store is a durable key-value slot holding the cart as a JSON blob.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
