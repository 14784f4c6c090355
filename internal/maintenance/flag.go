package maintenance

import (
	"context"
	"errors"
)

var ErrFlagNotFound = errors.New("maintenance flag row not found")

// Flag is the single persisted maintenance row.
type Flag struct {
	ID      int  `json:"id"`
	Enabled bool `json:"enabled"`
}

type repo interface {
	Get(ctx context.Context) (*Flag, error)
	SetEnabled(ctx context.Context, id int, enabled bool) error
}
