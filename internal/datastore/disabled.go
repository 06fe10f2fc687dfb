package datastore

import (
	"context"
	"errors"
)

// ErrDisabled is returned by Disabled for every load.
var ErrDisabled = errors.New("no object store configured")

// Disabled is a blob loader for deployments without an object store.
// Legacy log locations cannot be resolved; modern logs are unaffected.
type Disabled struct{}

func (Disabled) Load(ctx context.Context, location string) ([]byte, error) {
	return nil, ErrDisabled
}
