// Package geo provides device location lookup strategies.
package geo

import (
	"context"

	"github.com/osa030/tunemap/internal/domain/user"
)

// Locator is the interface for location providers.
// Implementations may block; callers are expected to bound the call with ctx.
type Locator interface {
	// Locate returns the current coordinate.
	Locate(ctx context.Context) (user.Location, error)

	// Name returns the provider name (used in config).
	Name() string
}
