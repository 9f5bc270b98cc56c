package ports

import (
	"context"

	"github.com/islab/coordinates-registry/internal/core/domain"
)

// Broadcaster delivers change notifications to subscribers. Delivery is best
// effort; callers log failures and carry on.
type Broadcaster interface {
	Broadcast(ctx context.Context, event domain.ChangeEvent) error
}
