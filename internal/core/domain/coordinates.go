package domain

import "errors"

// MinY is the lowest accepted value for Coordinates.Y.
const MinY = -290

var (
	ErrCoordinatesNotFound = errors.New("coordinates not found")
	ErrCoordinatesExist    = errors.New("coordinates already exist")
	ErrForbidden           = errors.New("access forbidden")
)

// Coordinates is a shared point owned by the user who created it.
// The (X, Y) pair is unique across all coordinates.
type Coordinates struct {
	ID             int64
	X              int
	Y              int
	AdminCanModify bool
	Owner          User
}

// CanBeModifiedBy applies the ownership rule: the owner may always modify,
// an admin only when the owner opted in through AdminCanModify.
func (c *Coordinates) CanBeModifiedBy(u *User) bool {
	if u == nil {
		return false
	}
	if c.Owner.Username == u.Username {
		return true
	}
	return u.Role == RoleAdmin && c.AdminCanModify
}

// Person references a Coordinates and is deleted together with it.
type Person struct {
	ID            int64
	Name          string
	CoordinatesID int64
}
