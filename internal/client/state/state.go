// Package state persists the small amount of client state that must survive
// a restart: the auth snapshot and the stable device identifier.
package state

import "context"

// Well-known keys.
const (
	KeyAuthSnapshot = "auth_snapshot"
	KeyDeviceID     = "device_id"
)

// Store is a minimal key/value persistence boundary. Get returns (nil, nil)
// when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
