package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/islab/coordinates-registry/internal/core/domain"
	"github.com/islab/coordinates-registry/internal/core/ports"
)

// --- Users ---

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	m := userModel{
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		Role:         string(user.Role),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	created := m.toDomain()
	return &created, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	u := m.toDomain()
	return &u, nil
}

// --- Coordinates ---

type CoordinatesRepository struct {
	db *gorm.DB
}

func NewCoordinatesRepository(db *gorm.DB) *CoordinatesRepository {
	return &CoordinatesRepository{db: db}
}

func (r *CoordinatesRepository) FindPage(ctx context.Context, offset, limit int) ([]*domain.Coordinates, error) {
	var rows []coordinatesModel
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find coordinates page: %w", err)
	}

	out := make([]*domain.Coordinates, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}

func (r *CoordinatesRepository) FindByID(ctx context.Context, id int64) (*domain.Coordinates, error) {
	var m coordinatesModel
	if err := r.db.WithContext(ctx).Preload("Owner").First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCoordinatesNotFound
		}
		return nil, fmt.Errorf("find coordinates %d: %w", id, err)
	}
	return m.toDomain(), nil
}

func (r *CoordinatesRepository) ExistsByXY(ctx context.Context, x, y int) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&coordinatesModel{}).
		Where("x = ? AND y = ?", x, y).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("count coordinates by xy: %w", err)
	}
	return n > 0, nil
}

func (r *CoordinatesRepository) Create(ctx context.Context, c *domain.Coordinates) (*domain.Coordinates, error) {
	m := coordinatesModel{
		X:              c.X,
		Y:              c.Y,
		AdminCanModify: c.AdminCanModify,
		OwnerID:        c.Owner.ID,
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("insert (%d, %d): %w", c.X, c.Y, domain.ErrCoordinatesExist)
		}
		return nil, fmt.Errorf("insert coordinates: %w", err)
	}

	created := *c
	created.ID = m.ID
	return &created, nil
}

func (r *CoordinatesRepository) Update(ctx context.Context, c *domain.Coordinates) (*domain.Coordinates, error) {
	res := r.db.WithContext(ctx).
		Model(&coordinatesModel{ID: c.ID}).
		Updates(map[string]any{
			"x":                c.X,
			"y":                c.Y,
			"admin_can_modify": c.AdminCanModify,
		})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("update %d to (%d, %d): %w", c.ID, c.X, c.Y, domain.ErrCoordinatesExist)
		}
		return nil, fmt.Errorf("update coordinates %d: %w", c.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrCoordinatesNotFound
	}

	updated := *c
	return &updated, nil
}

func (r *CoordinatesRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&coordinatesModel{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete coordinates %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrCoordinatesNotFound
	}
	return nil
}

// --- Persons ---

type PersonRepository struct {
	db *gorm.DB
}

func NewPersonRepository(db *gorm.DB) *PersonRepository {
	return &PersonRepository{db: db}
}

func (r *PersonRepository) Create(ctx context.Context, p *domain.Person) (*domain.Person, error) {
	m := personModel{Name: p.Name, CoordinatesID: p.CoordinatesID}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&m).Error; err != nil {
		return nil, fmt.Errorf("insert person: %w", err)
	}

	created := *p
	created.ID = m.ID
	return &created, nil
}

func (r *PersonRepository) FindByCoordinatesID(ctx context.Context, coordinatesID int64) ([]*domain.Person, error) {
	var rows []personModel
	if err := r.db.WithContext(ctx).Where("coordinates_id = ?", coordinatesID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find persons: %w", err)
	}

	out := make([]*domain.Person, 0, len(rows))
	for _, m := range rows {
		out = append(out, &domain.Person{ID: m.ID, Name: m.Name, CoordinatesID: m.CoordinatesID})
	}
	return out, nil
}

func (r *PersonRepository) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Delete(&personModel{}, ids).Error; err != nil {
		return fmt.Errorf("delete persons: %w", err)
	}
	return nil
}

// --- Unit of work ---

// Transactor runs units of work inside a database transaction.
type Transactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos ports.TxRepositories) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, ports.TxRepositories{
			Users:       NewUserRepository(tx),
			Coordinates: NewCoordinatesRepository(tx),
			Persons:     NewPersonRepository(tx),
		})
	})
}
