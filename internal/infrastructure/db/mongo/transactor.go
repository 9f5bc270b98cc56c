package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/islab/coordinates-registry/internal/core/ports"
)

// Transactor runs units of work in a MongoDB session transaction. The server
// must be a replica set or sharded cluster.
type Transactor struct {
	client *mongo.Client
	repos  ports.TxRepositories
}

// NewTransactor binds the repositories of db to client sessions. Repository
// calls pick up the session from the context passed to fn.
func NewTransactor(client *mongo.Client, db *mongo.Database) *Transactor {
	return &Transactor{
		client: client,
		repos: ports.TxRepositories{
			Users:       NewUserRepository(db),
			Coordinates: NewCoordinatesRepository(db),
			Persons:     NewPersonRepository(db),
		},
	}
}

func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos ports.TxRepositories) error) error {
	sess, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, t.repos)
	})
	return err
}
