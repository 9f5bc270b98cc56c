package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/islab/coordinates-registry/internal/core/domain"
)

type PersonRepository struct {
	db   *mongo.Database
	coll *mongo.Collection
}

func NewPersonRepository(db *mongo.Database) *PersonRepository {
	return &PersonRepository{db: db, coll: db.Collection(collectionPersons)}
}

type mongoPerson struct {
	ID            int64  `bson:"_id"`
	Name          string `bson:"name"`
	CoordinatesID int64  `bson:"coordinates_id"`
}

func (r *PersonRepository) Create(ctx context.Context, p *domain.Person) (*domain.Person, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := nextID(ctx, r.db, collectionPersons)
	if err != nil {
		return nil, err
	}
	doc := mongoPerson{ID: id, Name: p.Name, CoordinatesID: p.CoordinatesID}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert person: %w", err)
	}

	created := *p
	created.ID = id
	return &created, nil
}

func (r *PersonRepository) FindByCoordinatesID(ctx context.Context, coordinatesID int64) ([]*domain.Person, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{"coordinates_id": coordinatesID})
	if err != nil {
		return nil, fmt.Errorf("find persons: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoPerson
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode persons: %w", err)
	}

	out := make([]*domain.Person, 0, len(docs))
	for _, d := range docs {
		out = append(out, &domain.Person{ID: d.ID, Name: d.Name, CoordinatesID: d.CoordinatesID})
	}
	return out, nil
}

func (r *PersonRepository) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return fmt.Errorf("delete persons: %w", err)
	}
	return nil
}
