package postgres

import (
	"time"

	"github.com/islab/coordinates-registry/internal/core/domain"
)

type userModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"size:16;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userModel) TableName() string { return "app_users" }

func (m userModel) toDomain() domain.User {
	return domain.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Role:         domain.Role(m.Role),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

type coordinatesModel struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	X              int       `gorm:"not null;uniqueIndex:idx_coordinates_xy"`
	Y              int       `gorm:"not null;uniqueIndex:idx_coordinates_xy"`
	AdminCanModify bool      `gorm:"not null"`
	OwnerID        int64     `gorm:"not null;index"`
	Owner          userModel `gorm:"foreignKey:OwnerID"`
}

func (coordinatesModel) TableName() string { return "coordinates" }

func (m coordinatesModel) toDomain() *domain.Coordinates {
	owner := m.Owner.toDomain()
	if owner.ID == 0 {
		owner.ID = m.OwnerID
	}
	return &domain.Coordinates{
		ID:             m.ID,
		X:              m.X,
		Y:              m.Y,
		AdminCanModify: m.AdminCanModify,
		Owner:          owner,
	}
}

type personModel struct {
	ID            int64            `gorm:"primaryKey;autoIncrement"`
	Name          string           `gorm:"size:255;not null"`
	CoordinatesID int64            `gorm:"not null;index"`
	Coordinates   coordinatesModel `gorm:"foreignKey:CoordinatesID"`
}

func (personModel) TableName() string { return "persons" }
