package ports

import "context"

// ListCoordinatesInput carries the page window for List.
type ListCoordinatesInput struct {
	Offset int
	Limit  int
}

// CreateCoordinatesInput carries the data for a new coordinates entry.
type CreateCoordinatesInput struct {
	X              int
	Y              int
	AdminCanModify bool
}

// AlterCoordinatesInput carries the replacement values for an existing entry.
// A nil AdminCanModify keeps the stored flag.
type AlterCoordinatesInput struct {
	X              int
	Y              int
	AdminCanModify *bool
}

// CoordinatesView is the read model returned to callers.
type CoordinatesView struct {
	ID             int64
	X              int
	Y              int
	AdminCanModify bool
	OwnerUsername  string
}

// CoordinatesService defines the use cases on coordinates. The caller identity
// is read from ctx (see domain.WithIdentity).
type CoordinatesService interface {
	List(ctx context.Context, input ListCoordinatesInput) ([]CoordinatesView, error)
	Create(ctx context.Context, input CreateCoordinatesInput) (*CoordinatesView, error)
	Alter(ctx context.Context, id int64, input AlterCoordinatesInput) (*CoordinatesView, error)
	Delete(ctx context.Context, id int64) error
}
