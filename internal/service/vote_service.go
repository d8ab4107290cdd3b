package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/DevOwais28/wepollin/internal/models"
	"github.com/DevOwais28/wepollin/internal/repository"
	"github.com/DevOwais28/wepollin/internal/tally"
)

// Broadcaster fans a vote event out to every connected viewer of a poll. The
// websocket hub implements it; tests plug in a recorder.
type Broadcaster interface {
	BroadcastVote(event models.VoteEvent)
}

// VotePublisher emits successful votes onto the trending pipeline's input
// topic. Publishing is best effort and never delays or fails a vote.
type VotePublisher interface {
	PublishVote(ctx context.Context, vote *models.Vote)
}

// VoteService validates vote attempts, persists them, and recomputes tallies.
// Both the REST handler and the websocket hub call CastVote; there is no
// second write path.
type VoteService struct {
	polls       repository.PollStore
	votes       repository.VoteStore
	broadcaster Broadcaster
	publisher   VotePublisher
	now         func() time.Time
}

func NewVoteService(polls repository.PollStore, votes repository.VoteStore) *VoteService {
	return &VoteService{
		polls: polls,
		votes: votes,
		now:   time.Now,
	}
}

// SetBroadcaster wires the live update channel. Called once during startup;
// nil leaves broadcasting off (unit tests, tooling).
func (s *VoteService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetPublisher wires the vote event publisher.
func (s *VoteService) SetPublisher(p VotePublisher) {
	s.publisher = p
}

// CastVote records one vote and returns the updated tally.
//
// Preconditions, checked in order with the first failure winning: the poll
// exists and the caller holds its access key if private, the poll has not
// expired, the option index is in bounds. The one-vote-per-voter invariant is
// not pre-checked here; the store's atomic insert enforces it, so two racing
// attempts by the same voter resolve to exactly one stored row.
func (s *VoteService) CastVote(ctx context.Context, pollID, voterID primitive.ObjectID, optionIndex int, accessKey string) (tally.Tally, error) {
	poll, err := s.polls.FindByID(ctx, pollID)
	if errors.Is(err, repository.ErrNotFound) {
		return tally.Tally{}, newError(KindPollNotFound, "poll %s not found", pollID.Hex())
	}
	if err != nil {
		return tally.Tally{}, err
	}

	// Access keys are re-validated per vote, not only at join time, so a
	// rotated key cuts off voters who joined under the old one.
	if poll.IsPrivate() && poll.AccessKey != accessKey {
		return tally.Tally{}, newError(KindInvalidAccessKey, "invalid access key for poll %s", pollID.Hex())
	}

	if poll.Expired(s.now()) {
		return tally.Tally{}, newError(KindPollExpired, "poll %s has expired", pollID.Hex())
	}

	if optionIndex < 0 || optionIndex >= len(poll.Options) {
		return tally.Tally{}, newError(KindInvalidOption, "option index %d out of range [0,%d)", optionIndex, len(poll.Options))
	}

	vote := &models.Vote{
		PollID:      pollID,
		VoterID:     voterID,
		OptionIndex: optionIndex,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.votes.Insert(ctx, vote); err != nil {
		if errors.Is(err, repository.ErrDuplicateVote) {
			return tally.Tally{}, newError(KindAlreadyVoted, "user has already voted on poll %s", pollID.Hex())
		}
		return tally.Tally{}, err
	}

	votes, err := s.votes.ListByPoll(ctx, pollID)
	if err != nil {
		return tally.Tally{}, err
	}
	result := tally.Project(poll.Options, votes)

	// Fan-out and publishing are asynchronous relative to the voter's
	// response; a slow viewer never blocks the confirmation.
	if s.broadcaster != nil {
		s.broadcaster.BroadcastVote(models.VoteEvent{
			PollID:           pollID.Hex(),
			Results:          result.Results(poll.Options),
			TotalVotes:       result.Total,
			VoterID:          voterID.Hex(),
			VoterOptionIndex: optionIndex,
		})
	}
	if s.publisher != nil {
		s.publisher.PublishVote(ctx, vote)
	}

	slog.Info("vote cast", "pollID", pollID.Hex(), "voterID", voterID.Hex(), "optionIndex", optionIndex, "total", result.Total)
	return result, nil
}

// ListVotes returns the raw vote rows of a poll, from which callers derive
// their own tally and their own-vote state. Private polls require the access
// key unless the caller owns the poll.
func (s *VoteService) ListVotes(ctx context.Context, pollID, viewerID primitive.ObjectID, accessKey string) ([]models.Vote, error) {
	poll, err := s.polls.FindByID(ctx, pollID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(KindPollNotFound, "poll %s not found", pollID.Hex())
	}
	if err != nil {
		return nil, err
	}
	if poll.IsPrivate() && poll.CreatedBy != viewerID && poll.AccessKey != accessKey {
		return nil, newError(KindInvalidAccessKey, "invalid access key for poll %s", pollID.Hex())
	}
	return s.votes.ListByPoll(ctx, pollID)
}

// CurrentTally projects the poll's tally from its full vote set. The live
// channel uses it for the snapshot sent to a newly joining viewer.
func (s *VoteService) CurrentTally(ctx context.Context, pollID primitive.ObjectID) (tally.Tally, []string, error) {
	poll, err := s.polls.FindByID(ctx, pollID)
	if errors.Is(err, repository.ErrNotFound) {
		return tally.Tally{}, nil, newError(KindPollNotFound, "poll %s not found", pollID.Hex())
	}
	if err != nil {
		return tally.Tally{}, nil, err
	}
	votes, err := s.votes.ListByPoll(ctx, pollID)
	if err != nil {
		return tally.Tally{}, nil, err
	}
	return tally.Project(poll.Options, votes), poll.Options, nil
}
