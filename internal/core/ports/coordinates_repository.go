package ports

import (
	"context"

	"github.com/islab/coordinates-registry/internal/core/domain"
)

// CoordinatesRepository defines persistence operations for coordinates.
// Implementations enforce a unique (x, y) index and report violations as
// domain.ErrCoordinatesExist.
type CoordinatesRepository interface {
	// FindPage returns at most limit coordinates starting at offset. The
	// order of the returned slice is not guaranteed.
	FindPage(ctx context.Context, offset, limit int) ([]*domain.Coordinates, error)
	// FindByID returns domain.ErrCoordinatesNotFound when no row matches.
	FindByID(ctx context.Context, id int64) (*domain.Coordinates, error)
	ExistsByXY(ctx context.Context, x, y int) (bool, error)
	Create(ctx context.Context, c *domain.Coordinates) (*domain.Coordinates, error)
	// Update overwrites x, y and the admin flag of an existing row.
	Update(ctx context.Context, c *domain.Coordinates) (*domain.Coordinates, error)
	// Delete returns domain.ErrCoordinatesNotFound when no row was removed.
	Delete(ctx context.Context, id int64) error
}

// PersonRepository defines persistence operations for persons that reference
// coordinates.
type PersonRepository interface {
	Create(ctx context.Context, p *domain.Person) (*domain.Person, error)
	FindByCoordinatesID(ctx context.Context, coordinatesID int64) ([]*domain.Person, error)
	DeleteByIDs(ctx context.Context, ids []int64) error
}

// TxRepositories are the repositories bound to a single unit of work.
type TxRepositories struct {
	Users       UserRepository
	Coordinates CoordinatesRepository
	Persons     PersonRepository
}

// Transactor runs fn inside one unit of work. The work is committed when fn
// returns nil and rolled back on any error. The context handed to fn must be
// used for every repository call made through repos.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error
}
