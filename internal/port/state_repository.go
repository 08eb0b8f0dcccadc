package port

import (
	"context"

	"github.com/rl1809/guild-bag/internal/core/domain"
)

type StateRepository interface {
	// Load returns the saved state, or the default empty state if nothing was saved yet
	Load(ctx context.Context) (domain.State, error)

	// Save replaces the stored state with s
	Save(ctx context.Context, s domain.State) error
}
