package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/DevOwais28/wepollin/internal/models"
	"github.com/DevOwais28/wepollin/internal/repository"
)

// VoteRepository is the MongoDB implementation of repository.VoteStore. The
// one-vote-per-voter invariant lives in the unique compound index created by
// EnsureIndexes: two racing inserts for the same (poll, voter) pair hit the
// index, and the loser surfaces as repository.ErrDuplicateVote.
type VoteRepository struct {
	coll *mongo.Collection
}

func NewVoteRepository(db *mongo.Database) *VoteRepository {
	return &VoteRepository{coll: db.Collection("votes")}
}

// EnsureIndexes creates the unique (poll_id, voter_id) index. Must be called
// once at startup before any vote is accepted.
func (r *VoteRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "poll_id", Value: 1},
			{Key: "voter_id", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("uniq_poll_voter"),
	})
	return err
}

func (r *VoteRepository) Insert(ctx context.Context, vote *models.Vote) error {
	if vote.ID.IsZero() {
		vote.ID = primitive.NewObjectID()
	}
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = time.Now().UTC()
	}
	_, err := r.coll.InsertOne(ctx, vote)
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicateVote
	}
	return err
}

func (r *VoteRepository) ListByPoll(ctx context.Context, pollID primitive.ObjectID) ([]models.Vote, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"poll_id": pollID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	votes := make([]models.Vote, 0)
	if err := cursor.All(ctx, &votes); err != nil {
		return nil, err
	}
	return votes, nil
}

func (r *VoteRepository) CountByPoll(ctx context.Context, pollID primitive.ObjectID) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"poll_id": pollID})
}

func (r *VoteRepository) FindByPollAndVoter(ctx context.Context, pollID, voterID primitive.ObjectID) (*models.Vote, error) {
	var vote models.Vote
	err := r.coll.FindOne(ctx, bson.M{"poll_id": pollID, "voter_id": voterID}).Decode(&vote)
	if err == mongo.ErrNoDocuments {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *VoteRepository) DeleteByPoll(ctx context.Context, pollID primitive.ObjectID) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"poll_id": pollID})
	return err
}
