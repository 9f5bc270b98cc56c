package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/islab/coordinates-registry/internal/core/domain"
	"github.com/islab/coordinates-registry/internal/core/ports"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// CoordinatesService implements the coordinates use cases and the ownership
// rule that guards every mutation.
//
// Create checks for an existing (x, y) pair before inserting. Two concurrent
// creates of the same pair can both pass that check; the unique index kept by
// every repository rejects the second insert, which then surfaces as
// domain.ErrCoordinatesExist as well.
type CoordinatesService struct {
	users  ports.UserRepository
	coords ports.CoordinatesRepository
	tx     ports.Transactor
	bus    ports.Broadcaster
	log    zerolog.Logger
}

func NewCoordinatesService(
	users ports.UserRepository,
	coords ports.CoordinatesRepository,
	tx ports.Transactor,
	bus ports.Broadcaster,
	log zerolog.Logger,
) *CoordinatesService {
	return &CoordinatesService{users: users, coords: coords, tx: tx, bus: bus, log: log}
}

// List returns one page of coordinates sorted ascending by id.
func (s *CoordinatesService) List(ctx context.Context, in ports.ListCoordinatesInput) ([]ports.CoordinatesView, error) {
	offset, limit := in.Offset, in.Limit
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	page, err := s.coords.FindPage(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list coordinates: %w", err)
	}

	views := make([]ports.CoordinatesView, 0, len(page))
	for _, c := range page {
		views = append(views, toView(c))
	}
	slices.SortFunc(views, func(a, b ports.CoordinatesView) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return views, nil
}

// Create stores new coordinates owned by the caller.
func (s *CoordinatesService) Create(ctx context.Context, in ports.CreateCoordinatesInput) (*ports.CoordinatesView, error) {
	owner, err := loadCaller(ctx, s.users)
	if err != nil {
		return nil, err
	}

	exists, err := s.coords.ExistsByXY(ctx, in.X, in.Y)
	if err != nil {
		return nil, fmt.Errorf("create coordinates: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: (%d, %d)", domain.ErrCoordinatesExist, in.X, in.Y)
	}

	created, err := s.coords.Create(ctx, &domain.Coordinates{
		X:              in.X,
		Y:              in.Y,
		AdminCanModify: in.AdminCanModify,
		Owner:          *owner,
	})
	if err != nil {
		return nil, fmt.Errorf("create coordinates: %w", err)
	}

	s.log.Info().Int64("id", created.ID).Str("owner", owner.Username).Msg("coordinates created")
	s.notify(ctx, domain.ChangeCreated)

	view := toView(created)
	return &view, nil
}

// Alter overwrites x and y of existing coordinates and, when given, the
// admin flag. The (x, y) pair is not re-checked here, but the unique index
// in storage still rejects a move onto an occupied pair with
// domain.ErrCoordinatesExist.
func (s *CoordinatesService) Alter(ctx context.Context, id int64, in ports.AlterCoordinatesInput) (*ports.CoordinatesView, error) {
	c, err := s.coords.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("alter coordinates %d: %w", id, err)
	}
	if err := s.authorize(ctx, s.users, c); err != nil {
		return nil, err
	}

	c.X = in.X
	c.Y = in.Y
	if in.AdminCanModify != nil {
		c.AdminCanModify = *in.AdminCanModify
	}

	updated, err := s.coords.Update(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("alter coordinates %d: %w", id, err)
	}

	s.log.Info().Int64("id", id).Msg("coordinates updated")
	s.notify(ctx, domain.ChangeUpdated)

	view := toView(updated)
	return &view, nil
}

// Delete removes coordinates together with every person that references
// them. Both happen in one unit of work.
func (s *CoordinatesService) Delete(ctx context.Context, id int64) error {
	var removed int
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos ports.TxRepositories) error {
		c, err := repos.Coordinates.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, repos.Users, c); err != nil {
			return err
		}

		persons, err := repos.Persons.FindByCoordinatesID(ctx, id)
		if err != nil {
			return fmt.Errorf("find persons: %w", err)
		}
		if len(persons) > 0 {
			ids := make([]int64, len(persons))
			for i, p := range persons {
				ids[i] = p.ID
			}
			if err := repos.Persons.DeleteByIDs(ctx, ids); err != nil {
				return fmt.Errorf("delete persons: %w", err)
			}
		}
		removed = len(persons)

		return repos.Coordinates.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete coordinates %d: %w", id, err)
	}

	s.log.Info().Int64("id", id).Int("persons_removed", removed).Msg("coordinates deleted")
	s.notify(ctx, domain.ChangeDeleted)
	return nil
}

// loadCaller re-reads the user behind the request identity. The role stored
// on the identity is never trusted here: it may have changed since the
// request started.
func loadCaller(ctx context.Context, users ports.UserRepository) (*domain.User, error) {
	id, ok := domain.IdentityFromContext(ctx)
	if !ok {
		return nil, domain.ErrAuthenticationFailed
	}
	u, err := users.FindByUsername(ctx, id.Username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user %q not found", domain.ErrAuthenticationFailed, id.Username)
		}
		return nil, fmt.Errorf("load caller %q: %w", id.Username, err)
	}
	return u, nil
}

func (s *CoordinatesService) authorize(ctx context.Context, users ports.UserRepository, c *domain.Coordinates) error {
	u, err := loadCaller(ctx, users)
	if err != nil {
		return err
	}
	if !c.CanBeModifiedBy(u) {
		return fmt.Errorf("%w: no access to coordinates %d", domain.ErrForbidden, c.ID)
	}
	return nil
}

// notify is best effort: a failed broadcast never fails the operation.
func (s *CoordinatesService) notify(ctx context.Context, kind domain.ChangeKind) {
	if err := s.bus.Broadcast(ctx, domain.NewChangeEvent(kind)); err != nil {
		s.log.Warn().Err(err).Str("kind", string(kind)).Msg("change broadcast failed")
	}
}

func toView(c *domain.Coordinates) ports.CoordinatesView {
	return ports.CoordinatesView{
		ID:             c.ID,
		X:              c.X,
		Y:              c.Y,
		AdminCanModify: c.AdminCanModify,
		OwnerUsername:  c.Owner.Username,
	}
}
