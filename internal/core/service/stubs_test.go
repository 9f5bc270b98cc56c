package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/islab/coordinates-registry/internal/core/domain"
	"github.com/islab/coordinates-registry/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory store backing the user, coordinates and person stubs
// ---------------------------------------------------------------------------

type memStore struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	coords  map[int64]*domain.Coordinates
	persons map[int64]*domain.Person
	nextID  int64

	// reverse makes FindPage return rows in descending id order, the way an
	// unsorted repository page might.
	reverse bool
	// deleteCoordsErr, when set, is returned by coordinates Delete.
	deleteCoordsErr error
	// lastOffset and lastLimit record the last FindPage window.
	lastOffset, lastLimit int
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[string]*domain.User),
		coords:  make(map[int64]*domain.Coordinates),
		persons: make(map[int64]*domain.Person),
	}
}

func (m *memStore) addUser(username string, role domain.Role) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u := &domain.User{ID: m.nextID, Username: username, Role: role}
	m.users[username] = u
	clone := *u
	return &clone
}

func (m *memStore) setRole(username string, role domain.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[username].Role = role
}

func (m *memStore) removeUser(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, username)
}

func (m *memStore) addPerson(name string, coordinatesID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.persons[m.nextID] = &domain.Person{ID: m.nextID, Name: name, CoordinatesID: coordinatesID}
}

func (m *memStore) personCount(coordinatesID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.persons {
		if p.CoordinatesID == coordinatesID {
			n++
		}
	}
	return n
}

func (m *memStore) hasCoordinates(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.coords[id]
	return ok
}

func (m *memStore) repos() ports.TxRepositories {
	return ports.TxRepositories{
		Users:       memUsers{m},
		Coordinates: memCoords{m},
		Persons:     memPersons{m},
	}
}

// WithinTransaction snapshots the store and restores it when fn fails.
func (m *memStore) WithinTransaction(ctx context.Context, fn func(context.Context, ports.TxRepositories) error) error {
	m.mu.Lock()
	coords := make(map[int64]*domain.Coordinates, len(m.coords))
	for k, v := range m.coords {
		clone := *v
		coords[k] = &clone
	}
	persons := make(map[int64]*domain.Person, len(m.persons))
	for k, v := range m.persons {
		clone := *v
		persons[k] = &clone
	}
	m.mu.Unlock()

	if err := fn(ctx, m.repos()); err != nil {
		m.mu.Lock()
		m.coords = coords
		m.persons = persons
		m.mu.Unlock()
		return err
	}
	return nil
}

type memUsers struct{ *memStore }

func (r memUsers) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r memUsers) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Username]; ok {
		return nil, domain.ErrUserExists
	}
	r.nextID++
	clone := *user
	clone.ID = r.nextID
	r.users[user.Username] = &clone
	out := clone
	return &out, nil
}

type memCoords struct{ *memStore }

func (r memCoords) FindPage(_ context.Context, offset, limit int) ([]*domain.Coordinates, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastOffset, r.lastLimit = offset, limit

	var ids []int64
	for id := range r.coords {
		ids = append(ids, id)
	}
	// ascending first so offset/limit are deterministic
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	if offset > len(ids) {
		offset = len(ids)
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	ids = ids[offset:end]

	out := make([]*domain.Coordinates, 0, len(ids))
	for _, id := range ids {
		clone := *r.coords[id]
		out = append(out, &clone)
	}
	if r.reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (r memCoords) FindByID(_ context.Context, id int64) (*domain.Coordinates, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coords[id]
	if !ok {
		return nil, domain.ErrCoordinatesNotFound
	}
	clone := *c
	return &clone, nil
}

func (r memCoords) ExistsByXY(_ context.Context, x, y int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.coords {
		if c.X == x && c.Y == y {
			return true, nil
		}
	}
	return false, nil
}

func (r memCoords) Create(_ context.Context, c *domain.Coordinates) (*domain.Coordinates, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	clone := *c
	clone.ID = r.nextID
	r.coords[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r memCoords) Update(_ context.Context, c *domain.Coordinates) (*domain.Coordinates, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.coords[c.ID]
	if !ok {
		return nil, domain.ErrCoordinatesNotFound
	}
	stored.X, stored.Y, stored.AdminCanModify = c.X, c.Y, c.AdminCanModify
	out := *stored
	return &out, nil
}

func (r memCoords) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteCoordsErr != nil {
		return r.deleteCoordsErr
	}
	if _, ok := r.coords[id]; !ok {
		return domain.ErrCoordinatesNotFound
	}
	delete(r.coords, id)
	return nil
}

type memPersons struct{ *memStore }

func (r memPersons) Create(_ context.Context, p *domain.Person) (*domain.Person, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	clone := *p
	clone.ID = r.nextID
	r.persons[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r memPersons) FindByCoordinatesID(_ context.Context, coordinatesID int64) ([]*domain.Person, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Person
	for _, p := range r.persons {
		if p.CoordinatesID == coordinatesID {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r memPersons) DeleteByIDs(_ context.Context, ids []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.persons, id)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Broadcaster and token codec stubs
// ---------------------------------------------------------------------------

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
	err    error
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, event domain.ChangeEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return b.err
}

func (b *recordingBroadcaster) kinds() []domain.ChangeKind {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.ChangeKind, len(b.events))
	for i, e := range b.events {
		out[i] = e.Kind
	}
	return out
}

// stubCodec treats "valid:<username>" as a valid token for username.
type stubCodec struct {
	issued []string
}

func (c *stubCodec) Issue(username string, _ domain.Role) (string, time.Time, error) {
	c.issued = append(c.issued, username)
	return "valid:" + username, time.Now().Add(time.Hour), nil
}

func (c *stubCodec) Validate(token string) bool {
	return len(token) > len("valid:") && token[:len("valid:")] == "valid:"
}

func (c *stubCodec) Subject(token string) (string, error) {
	if !c.Validate(token) {
		return "", errors.New("malformed token")
	}
	return token[len("valid:"):], nil
}

func (c *stubCodec) ExpiresAt(string) (time.Time, error) {
	return time.Now().Add(time.Hour), nil
}
