package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/islab/coordinates-registry/internal/core/domain"
	"github.com/islab/coordinates-registry/internal/core/ports"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(Config{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString()),
		MaxOpenConns: 1,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func mustUser(t *testing.T, db *gorm.DB, username string, role domain.Role) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	u, err := NewUserRepository(db).Create(context.Background(), &domain.User{
		Username: username, PasswordHash: "hash", Role: role, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func mustCoordinates(t *testing.T, db *gorm.DB, owner *domain.User, x, y int) *domain.Coordinates {
	t.Helper()
	c, err := NewCoordinatesRepository(db).Create(context.Background(), &domain.Coordinates{X: x, Y: y, Owner: *owner})
	if err != nil {
		t.Fatalf("create coordinates (%d, %d): %v", x, y, err)
	}
	return c
}

func TestUserRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := mustUser(t, db, "alice", domain.RoleAdmin)
	if alice.ID == 0 {
		t.Fatalf("expected generated id")
	}

	got, err := repo.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if got.ID != alice.ID || got.Role != domain.RoleAdmin || got.PasswordHash != "hash" {
		t.Fatalf("unexpected user %+v", got)
	}

	if _, err := repo.FindByUsername(ctx, "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	_, err = repo.Create(ctx, &domain.User{Username: "alice", PasswordHash: "x", Role: domain.RoleUser})
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestCoordinatesRepository_CreateAndFind(t *testing.T) {
	db := openTestDB(t)
	repo := NewCoordinatesRepository(db)
	ctx := context.Background()
	alice := mustUser(t, db, "alice", domain.RoleUser)

	created := mustCoordinates(t, db, alice, 1, -290)

	got, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.X != 1 || got.Y != -290 || got.Owner.Username != "alice" || got.Owner.ID != alice.ID {
		t.Fatalf("unexpected coordinates %+v", got)
	}

	exists, err := repo.ExistsByXY(ctx, 1, -290)
	if err != nil || !exists {
		t.Fatalf("ExistsByXY = %v, %v", exists, err)
	}
	exists, err = repo.ExistsByXY(ctx, -290, 1)
	if err != nil || exists {
		t.Fatalf("ExistsByXY swapped = %v, %v", exists, err)
	}

	if _, err := repo.FindByID(ctx, created.ID+100); !errors.Is(err, domain.ErrCoordinatesNotFound) {
		t.Fatalf("expected ErrCoordinatesNotFound, got %v", err)
	}
}

func TestCoordinatesRepository_UniqueXY(t *testing.T) {
	db := openTestDB(t)
	repo := NewCoordinatesRepository(db)
	ctx := context.Background()
	alice := mustUser(t, db, "alice", domain.RoleUser)

	first := mustCoordinates(t, db, alice, 3, 4)
	second := mustCoordinates(t, db, alice, 5, 6)

	_, err := repo.Create(ctx, &domain.Coordinates{X: 3, Y: 4, Owner: *alice})
	if !errors.Is(err, domain.ErrCoordinatesExist) {
		t.Fatalf("expected ErrCoordinatesExist on insert, got %v", err)
	}

	second.X, second.Y = first.X, first.Y
	if _, err := repo.Update(ctx, second); !errors.Is(err, domain.ErrCoordinatesExist) {
		t.Fatalf("expected ErrCoordinatesExist on update, got %v", err)
	}
}

func TestCoordinatesRepository_UpdateAndDelete(t *testing.T) {
	db := openTestDB(t)
	repo := NewCoordinatesRepository(db)
	ctx := context.Background()
	alice := mustUser(t, db, "alice", domain.RoleUser)
	c := mustCoordinates(t, db, alice, 1, 1)

	c.X, c.Y, c.AdminCanModify = 7, 8, true
	if _, err := repo.Update(ctx, c); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := repo.FindByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.X != 7 || got.Y != 8 || !got.AdminCanModify {
		t.Fatalf("update not persisted: %+v", got)
	}

	// false must be written too
	c.AdminCanModify = false
	if _, err := repo.Update(ctx, c); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got, _ := repo.FindByID(ctx, c.ID); got.AdminCanModify {
		t.Fatalf("expected flag cleared")
	}

	if _, err := repo.Update(ctx, &domain.Coordinates{ID: 999, X: 1, Y: 2}); !errors.Is(err, domain.ErrCoordinatesNotFound) {
		t.Fatalf("expected ErrCoordinatesNotFound, got %v", err)
	}

	if err := repo.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, c.ID); !errors.Is(err, domain.ErrCoordinatesNotFound) {
		t.Fatalf("expected ErrCoordinatesNotFound on second delete, got %v", err)
	}
}

func TestCoordinatesRepository_FindPage(t *testing.T) {
	db := openTestDB(t)
	repo := NewCoordinatesRepository(db)
	alice := mustUser(t, db, "alice", domain.RoleUser)
	for i := 0; i < 5; i++ {
		mustCoordinates(t, db, alice, i, i)
	}

	page, err := repo.FindPage(context.Background(), 1, 3)
	if err != nil {
		t.Fatalf("FindPage: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(page))
	}
	for i, c := range page {
		if c.X != i+1 {
			t.Fatalf("row %d: expected x=%d, got %d", i, i+1, c.X)
		}
		if c.Owner.Username != "alice" {
			t.Fatalf("owner not preloaded: %+v", c.Owner)
		}
	}
}

func seedCascade(t *testing.T, db *gorm.DB) (*domain.Coordinates, *domain.Coordinates) {
	t.Helper()
	alice := mustUser(t, db, "alice", domain.RoleUser)
	target := mustCoordinates(t, db, alice, 1, 1)
	other := mustCoordinates(t, db, alice, 2, 2)

	persons := NewPersonRepository(db)
	for _, p := range []domain.Person{
		{Name: "p1", CoordinatesID: target.ID},
		{Name: "p2", CoordinatesID: target.ID},
		{Name: "p3", CoordinatesID: other.ID},
	} {
		p := p
		if _, err := persons.Create(context.Background(), &p); err != nil {
			t.Fatalf("create person: %v", err)
		}
	}
	return target, other
}

func cascadeDelete(ctx context.Context, repos ports.TxRepositories, id int64) error {
	ps, err := repos.Persons.FindByCoordinatesID(ctx, id)
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.ID)
	}
	if err := repos.Persons.DeleteByIDs(ctx, ids); err != nil {
		return err
	}
	return repos.Coordinates.Delete(ctx, id)
}

func TestTransactor_CommitsCascade(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	target, other := seedCascade(t, db)

	err := NewTransactor(db).WithinTransaction(ctx, func(ctx context.Context, repos ports.TxRepositories) error {
		return cascadeDelete(ctx, repos, target.ID)
	})
	if err != nil {
		t.Fatalf("WithinTransaction: %v", err)
	}

	persons := NewPersonRepository(db)
	if left, _ := persons.FindByCoordinatesID(ctx, target.ID); len(left) != 0 {
		t.Fatalf("expected target persons removed, %d left", len(left))
	}
	if left, _ := persons.FindByCoordinatesID(ctx, other.ID); len(left) != 1 {
		t.Fatalf("unrelated persons must survive, got %d", len(left))
	}
	if _, err := NewCoordinatesRepository(db).FindByID(ctx, target.ID); !errors.Is(err, domain.ErrCoordinatesNotFound) {
		t.Fatalf("expected coordinates removed, got %v", err)
	}
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	target, _ := seedCascade(t, db)
	boom := errors.New("boom")

	err := NewTransactor(db).WithinTransaction(ctx, func(ctx context.Context, repos ports.TxRepositories) error {
		if err := cascadeDelete(ctx, repos, target.ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if left, _ := NewPersonRepository(db).FindByCoordinatesID(ctx, target.ID); len(left) != 2 {
		t.Fatalf("expected persons restored, got %d", len(left))
	}
	if _, err := NewCoordinatesRepository(db).FindByID(ctx, target.ID); err != nil {
		t.Fatalf("expected coordinates restored, got %v", err)
	}
}
