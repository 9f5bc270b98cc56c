package ports

import "context"

// CreatePersonInput carries the data for a new person.
type CreatePersonInput struct {
	Name          string
	CoordinatesID int64
}

// PersonView is the read model returned to callers.
type PersonView struct {
	ID            int64
	Name          string
	CoordinatesID int64
}

// PersonService defines the use cases on persons. Both operations return
// domain.ErrCoordinatesNotFound when the referenced coordinates are missing.
type PersonService interface {
	Create(ctx context.Context, input CreatePersonInput) (*PersonView, error)
	ListByCoordinates(ctx context.Context, coordinatesID int64) ([]PersonView, error)
}
