package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/islab/coordinates-registry/internal/core/domain"
	"github.com/islab/coordinates-registry/internal/core/ports"
)

// PersonService places persons at existing coordinates. Any authenticated
// user may do so; the ownership rule only guards the coordinates themselves.
type PersonService struct {
	coords  ports.CoordinatesRepository
	persons ports.PersonRepository
	tx      ports.Transactor
	log     zerolog.Logger
}

func NewPersonService(
	coords ports.CoordinatesRepository,
	persons ports.PersonRepository,
	tx ports.Transactor,
	log zerolog.Logger,
) *PersonService {
	return &PersonService{coords: coords, persons: persons, tx: tx, log: log}
}

// Create stores a person at the given coordinates. The coordinates lookup and
// the insert share one unit of work so a concurrent delete cannot leave the
// person behind.
func (s *PersonService) Create(ctx context.Context, in ports.CreatePersonInput) (*ports.PersonView, error) {
	var created *domain.Person
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos ports.TxRepositories) error {
		if _, err := loadCaller(ctx, repos.Users); err != nil {
			return err
		}
		if _, err := repos.Coordinates.FindByID(ctx, in.CoordinatesID); err != nil {
			return err
		}
		p, err := repos.Persons.Create(ctx, &domain.Person{Name: in.Name, CoordinatesID: in.CoordinatesID})
		if err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create person at %d: %w", in.CoordinatesID, err)
	}

	s.log.Info().Int64("id", created.ID).Int64("coordinates_id", created.CoordinatesID).Msg("person created")

	view := toPersonView(created)
	return &view, nil
}

// ListByCoordinates returns the persons located at the given coordinates,
// ordered by id.
func (s *PersonService) ListByCoordinates(ctx context.Context, coordinatesID int64) ([]ports.PersonView, error) {
	if _, err := s.coords.FindByID(ctx, coordinatesID); err != nil {
		return nil, fmt.Errorf("list persons at %d: %w", coordinatesID, err)
	}
	persons, err := s.persons.FindByCoordinatesID(ctx, coordinatesID)
	if err != nil {
		return nil, fmt.Errorf("list persons at %d: %w", coordinatesID, err)
	}

	views := make([]ports.PersonView, 0, len(persons))
	for _, p := range persons {
		views = append(views, toPersonView(p))
	}
	slices.SortFunc(views, func(a, b ports.PersonView) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return views, nil
}

func toPersonView(p *domain.Person) ports.PersonView {
	return ports.PersonView{ID: p.ID, Name: p.Name, CoordinatesID: p.CoordinatesID}
}
