package handler

import (
	"time"

	"github.com/islab/coordinates-registry/internal/core/domain"
	"github.com/islab/coordinates-registry/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Coordinates ---

type listCoordinatesQuery struct {
	From int `json:"from" validate:"min=0"`
	Size int `json:"size" validate:"min=1,max=100"`
}

type createCoordinatesRequest struct {
	X              *int  `json:"x"              validate:"required"`
	Y              *int  `json:"y"              validate:"required,min=-290"`
	AdminCanModify *bool `json:"adminCanModify" validate:"required"`
}

type alterCoordinatesRequest struct {
	X              *int  `json:"x"              validate:"required"`
	Y              *int  `json:"y"              validate:"required,min=-290"`
	AdminCanModify *bool `json:"adminCanModify"`
}

type coordinatesResponse struct {
	ID             int64  `json:"id"`
	X              int    `json:"x"`
	Y              int    `json:"y"`
	AdminCanModify bool   `json:"adminCanModify"`
	OwnerUsername  string `json:"ownerUsername"`
}

func toCoordinatesResponse(v ports.CoordinatesView) coordinatesResponse {
	return coordinatesResponse{
		ID:             v.ID,
		X:              v.X,
		Y:              v.Y,
		AdminCanModify: v.AdminCanModify,
		OwnerUsername:  v.OwnerUsername,
	}
}

// --- Auth ---

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"     validate:"omitempty,oneof=USER ADMIN"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID        int64       `json:"id"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

type registerResponse struct {
	User userResponse `json:"user"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      userResponse `json:"user"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Role: u.Role, CreatedAt: u.CreatedAt}
}

// --- Persons ---

type createPersonRequest struct {
	Name          string `json:"name"          validate:"required,max=255"`
	CoordinatesID int64  `json:"coordinatesId" validate:"required,min=1"`
}

type personResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	CoordinatesID int64  `json:"coordinatesId"`
}

func toPersonResponse(v ports.PersonView) personResponse {
	return personResponse{ID: v.ID, Name: v.Name, CoordinatesID: v.CoordinatesID}
}
