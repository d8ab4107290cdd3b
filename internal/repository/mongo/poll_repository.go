package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/DevOwais28/wepollin/internal/models"
	"github.com/DevOwais28/wepollin/internal/repository"
)

// PollRepository is the MongoDB implementation of repository.PollStore.
type PollRepository struct {
	coll *mongo.Collection
}

func NewPollRepository(db *mongo.Database) *PollRepository {
	return &PollRepository{coll: db.Collection("polls")}
}

func (r *PollRepository) Insert(ctx context.Context, poll *models.Poll) error {
	if poll.ID.IsZero() {
		poll.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, poll)
	return err
}

func (r *PollRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Poll, error) {
	var poll models.Poll
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&poll)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

func (r *PollRepository) FindByAccessKey(ctx context.Context, key string) (*models.Poll, error) {
	var poll models.Poll
	err := r.coll.FindOne(ctx, bson.M{
		"visibility": models.VisibilityPrivate,
		"access_key": key,
	}).Decode(&poll)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

func (r *PollRepository) ListPublic(ctx context.Context, now time.Time) ([]models.Poll, error) {
	filter := bson.M{
		"visibility": models.VisibilityPublic,
		"expires_at": bson.M{"$gt": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	polls := make([]models.Poll, 0)
	if err := cursor.All(ctx, &polls); err != nil {
		return nil, err
	}
	return polls, nil
}

func (r *PollRepository) Update(ctx context.Context, poll *models.Poll) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": poll.ID}, poll)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PollRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
