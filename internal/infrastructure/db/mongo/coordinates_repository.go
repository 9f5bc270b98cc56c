package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/islab/coordinates-registry/internal/core/domain"
)

type CoordinatesRepository struct {
	db   *mongo.Database
	coll *mongo.Collection
}

func NewCoordinatesRepository(db *mongo.Database) *CoordinatesRepository {
	return &CoordinatesRepository{db: db, coll: db.Collection(collectionCoordinates)}
}

type mongoCoordinates struct {
	ID             int64       `bson:"_id"`
	X              int         `bson:"x"`
	Y              int         `bson:"y"`
	AdminCanModify bool        `bson:"admin_can_modify"`
	OwnerID        int64       `bson:"owner_id"`
	Owner          []mongoUser `bson:"owner,omitempty"` // filled by $lookup
}

func (mc mongoCoordinates) toDomain() *domain.Coordinates {
	c := &domain.Coordinates{
		ID:             mc.ID,
		X:              mc.X,
		Y:              mc.Y,
		AdminCanModify: mc.AdminCanModify,
		Owner:          domain.User{ID: mc.OwnerID},
	}
	if len(mc.Owner) > 0 {
		c.Owner = mc.Owner[0].toDomain()
	}
	return c
}

// withOwner joins the owning user onto each coordinates document.
func withOwner(stages ...bson.D) mongo.Pipeline {
	return append(mongo.Pipeline(stages), bson.D{{Key: "$lookup", Value: bson.M{
		"from":         collectionUsers,
		"localField":   "owner_id",
		"foreignField": "_id",
		"as":           "owner",
	}}})
}

func (r *CoordinatesRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]*domain.Coordinates, error) {
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate coordinates: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoCoordinates
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode coordinates: %w", err)
	}

	out := make([]*domain.Coordinates, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *CoordinatesRepository) FindPage(ctx context.Context, offset, limit int) ([]*domain.Coordinates, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.aggregate(ctx, withOwner(
		bson.D{{Key: "$sort", Value: bson.M{"_id": 1}}},
		bson.D{{Key: "$skip", Value: int64(offset)}},
		bson.D{{Key: "$limit", Value: int64(limit)}},
	))
}

func (r *CoordinatesRepository) FindByID(ctx context.Context, id int64) (*domain.Coordinates, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	found, err := r.aggregate(ctx, withOwner(bson.D{{Key: "$match", Value: bson.M{"_id": id}}}))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, domain.ErrCoordinatesNotFound
	}
	return found[0], nil
}

func (r *CoordinatesRepository) ExistsByXY(ctx context.Context, x, y int) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := r.coll.FindOne(ctx, bson.M{"x": x, "y": y}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find coordinates by xy: %w", err)
	}
	return true, nil
}

func (r *CoordinatesRepository) Create(ctx context.Context, c *domain.Coordinates) (*domain.Coordinates, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := nextID(ctx, r.db, collectionCoordinates)
	if err != nil {
		return nil, err
	}

	doc := mongoCoordinates{
		ID:             id,
		X:              c.X,
		Y:              c.Y,
		AdminCanModify: c.AdminCanModify,
		OwnerID:        c.Owner.ID,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("insert (%d, %d): %w", c.X, c.Y, domain.ErrCoordinatesExist)
		}
		return nil, fmt.Errorf("insert coordinates: %w", err)
	}

	created := *c
	created.ID = id
	return &created, nil
}

func (r *CoordinatesRepository) Update(ctx context.Context, c *domain.Coordinates) (*domain.Coordinates, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": c.ID}, bson.M{"$set": bson.M{
		"x":                c.X,
		"y":                c.Y,
		"admin_can_modify": c.AdminCanModify,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("update %d to (%d, %d): %w", c.ID, c.X, c.Y, domain.ErrCoordinatesExist)
		}
		return nil, fmt.Errorf("update coordinates: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, domain.ErrCoordinatesNotFound
	}

	updated := *c
	return &updated, nil
}

func (r *CoordinatesRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete coordinates: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrCoordinatesNotFound
	}
	return nil
}
