package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/islab/coordinates-registry/internal/core/domain"
	"github.com/islab/coordinates-registry/internal/core/ports"
)

func newPersonService(store *memStore) *PersonService {
	r := store.repos()
	return NewPersonService(r.Coordinates, r.Persons, store, nopLogger)
}

func TestPersonService_Create(t *testing.T) {
	f := newCoordsFixture()
	f.store.addUser("alice", domain.RoleUser)
	f.store.addUser("bob", domain.RoleUser)
	target := f.mustCreate(t, "alice", 1, 2, false)
	svc := newPersonService(f.store)

	// placing a person is not restricted to the owner
	view, err := svc.Create(f.as(t, "bob"), ports.CreatePersonInput{Name: "Ann", CoordinatesID: target.ID})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if view.ID == 0 || view.Name != "Ann" || view.CoordinatesID != target.ID {
		t.Fatalf("unexpected view: %+v", view)
	}
	if n := f.store.personCount(target.ID); n != 1 {
		t.Fatalf("expected 1 stored person, got %d", n)
	}
}

func TestPersonService_Create_MissingCoordinates(t *testing.T) {
	f := newCoordsFixture()
	f.store.addUser("alice", domain.RoleUser)
	svc := newPersonService(f.store)

	_, err := svc.Create(f.as(t, "alice"), ports.CreatePersonInput{Name: "Ann", CoordinatesID: 404})
	if !errors.Is(err, domain.ErrCoordinatesNotFound) {
		t.Fatalf("expected ErrCoordinatesNotFound, got %v", err)
	}
	if n := f.store.personCount(404); n != 0 {
		t.Fatalf("expected no stored person, got %d", n)
	}
}

func TestPersonService_Create_Anonymous(t *testing.T) {
	f := newCoordsFixture()
	f.store.addUser("alice", domain.RoleUser)
	target := f.mustCreate(t, "alice", 1, 2, false)
	svc := newPersonService(f.store)

	_, err := svc.Create(context.Background(), ports.CreatePersonInput{Name: "Ann", CoordinatesID: target.ID})
	if !errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestPersonService_ListByCoordinates(t *testing.T) {
	f := newCoordsFixture()
	f.store.addUser("alice", domain.RoleUser)
	target := f.mustCreate(t, "alice", 1, 2, false)
	other := f.mustCreate(t, "alice", 3, 4, false)
	svc := newPersonService(f.store)
	ctx := f.as(t, "alice")

	for _, name := range []string{"Ann", "Ben", "Cid"} {
		if _, err := svc.Create(ctx, ports.CreatePersonInput{Name: name, CoordinatesID: target.ID}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	if _, err := svc.Create(ctx, ports.CreatePersonInput{Name: "Dan", CoordinatesID: other.ID}); err != nil {
		t.Fatalf("create Dan: %v", err)
	}

	views, err := svc.ListByCoordinates(ctx, target.ID)
	if err != nil {
		t.Fatalf("ListByCoordinates returned error: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("expected 3 persons, got %d", len(views))
	}
	for i := 1; i < len(views); i++ {
		if views[i-1].ID >= views[i].ID {
			t.Fatalf("persons not sorted by id: %+v", views)
		}
	}

	if _, err := svc.ListByCoordinates(ctx, 404); !errors.Is(err, domain.ErrCoordinatesNotFound) {
		t.Fatalf("expected ErrCoordinatesNotFound, got %v", err)
	}
}

func TestPersonService_DeleteCascadeRemovesCreatedPersons(t *testing.T) {
	f := newCoordsFixture()
	f.store.addUser("alice", domain.RoleUser)
	target := f.mustCreate(t, "alice", 1, 2, false)
	svc := newPersonService(f.store)
	ctx := f.as(t, "alice")

	if _, err := svc.Create(ctx, ports.CreatePersonInput{Name: "Ann", CoordinatesID: target.ID}); err != nil {
		t.Fatalf("create person: %v", err)
	}
	if err := f.svc.Delete(ctx, target.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if n := f.store.personCount(target.ID); n != 0 {
		t.Fatalf("expected persons removed, %d left", n)
	}
	if _, err := svc.ListByCoordinates(ctx, target.ID); !errors.Is(err, domain.ErrCoordinatesNotFound) {
		t.Fatalf("expected ErrCoordinatesNotFound after delete, got %v", err)
	}
}

func TestCoordinatesService_Create_ConcurrentCallersKeepOwnIdentity(t *testing.T) {
	f := newCoordsFixture()
	const callers = 8
	for i := 0; i < callers; i++ {
		f.store.addUser(fmt.Sprintf("user%d", i), domain.RoleUser)
	}

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		username := fmt.Sprintf("user%d", i)
		ctx := f.as(t, username)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := f.svc.Create(ctx, ports.CreateCoordinatesInput{X: i, Y: i})
			if err != nil {
				errs <- fmt.Errorf("%s: %w", username, err)
				return
			}
			if v.OwnerUsername != username {
				errs <- fmt.Errorf("%s: owner recorded as %q", username, v.OwnerUsername)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
