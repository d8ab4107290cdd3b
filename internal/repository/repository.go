// Package repository defines the persistence interfaces of the voting core
// and the sentinel errors its implementations translate store-level failures
// into. Services depend on these interfaces only; the mongo subpackage is the
// production implementation and the memory subpackage backs the tests.
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/DevOwais28/wepollin/internal/models"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("repository: not found")

	// ErrDuplicateVote is returned when an insert would create a second vote
	// for the same (poll, voter) pair. Implementations must detect this
	// atomically at the point of persistence, not by a prior existence check.
	ErrDuplicateVote = errors.New("repository: duplicate vote")

	// ErrDuplicateUser is returned when a user's email is already registered.
	ErrDuplicateUser = errors.New("repository: duplicate user")
)

// PollStore persists poll documents.
type PollStore interface {
	Insert(ctx context.Context, poll *models.Poll) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Poll, error)
	FindByAccessKey(ctx context.Context, key string) (*models.Poll, error)
	// ListPublic returns public polls that have not expired at the given
	// time, newest first. Private polls are never listed.
	ListPublic(ctx context.Context, now time.Time) ([]models.Poll, error)
	Update(ctx context.Context, poll *models.Poll) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// VoteStore persists vote documents and enforces the one-vote-per-voter
// invariant.
type VoteStore interface {
	// Insert writes the vote, returning ErrDuplicateVote if a vote for the
	// same (PollID, VoterID) already exists. The check-and-insert is atomic.
	Insert(ctx context.Context, vote *models.Vote) error
	ListByPoll(ctx context.Context, pollID primitive.ObjectID) ([]models.Vote, error)
	CountByPoll(ctx context.Context, pollID primitive.ObjectID) (int64, error)
	FindByPollAndVoter(ctx context.Context, pollID, voterID primitive.ObjectID) (*models.Vote, error)
	// DeleteByPoll removes all votes of a poll; used as the delete cascade.
	DeleteByPoll(ctx context.Context, pollID primitive.ObjectID) error
}

// UserStore persists user documents.
type UserStore interface {
	Insert(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}
