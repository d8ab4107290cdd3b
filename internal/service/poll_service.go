package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/DevOwais28/wepollin/internal/models"
	"github.com/DevOwais28/wepollin/internal/repository"
)

// Access keys are 16-character alphanumeric codes shared out of band by the
// poll owner.
const (
	accessKeyAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	accessKeyLength   = 16
)

const defaultExpiry = 24 * time.Hour

// expiryDurations maps the duration labels offered at creation time.
var expiryDurations = map[string]time.Duration{
	"1 hour":   time.Hour,
	"6 hours":  6 * time.Hour,
	"12 hours": 12 * time.Hour,
	"24 hours": 24 * time.Hour,
	"3 days":   72 * time.Hour,
	"1 week":   7 * 24 * time.Hour,
}

// PollService owns the poll lifecycle around the voting core.
type PollService struct {
	polls repository.PollStore
	votes repository.VoteStore
	now   func() time.Time
}

func NewPollService(polls repository.PollStore, votes repository.VoteStore) *PollService {
	return &PollService{
		polls: polls,
		votes: votes,
		now:   time.Now,
	}
}

// CreatePoll validates and persists a new poll. Private polls get a generated
// access key; ExpiresAt is fixed at creation and never changes afterwards.
func (s *PollService) CreatePoll(ctx context.Context, ownerID primitive.ObjectID, req models.CreatePollRequest) (*models.Poll, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, newError(KindValidation, "poll question must not be empty")
	}

	options := make([]string, 0, len(req.Options))
	for _, option := range req.Options {
		if trimmed := strings.TrimSpace(option); trimmed != "" {
			options = append(options, trimmed)
		}
	}
	if len(options) < models.MinPollOptions || len(options) > models.MaxPollOptions {
		return nil, newError(KindValidation, "polls need between %d and %d non-empty options, got %d",
			models.MinPollOptions, models.MaxPollOptions, len(options))
	}

	expiry := defaultExpiry
	if req.ExpiryDuration != "" {
		d, ok := expiryDurations[req.ExpiryDuration]
		if !ok {
			parsed, err := time.ParseDuration(req.ExpiryDuration)
			if err != nil || parsed <= 0 {
				return nil, newError(KindValidation, "unknown expiry duration %q", req.ExpiryDuration)
			}
			d = parsed
		}
		expiry = d
	}

	now := s.now().UTC()
	poll := &models.Poll{
		Description: strings.TrimSpace(req.Description),
		Options:     options,
		Visibility:  models.VisibilityPublic,
		CreatedBy:   ownerID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(expiry),
	}
	if req.IsPrivate {
		key, err := gonanoid.Generate(accessKeyAlphabet, accessKeyLength)
		if err != nil {
			return nil, err
		}
		poll.Visibility = models.VisibilityPrivate
		poll.AccessKey = key
	}

	if err := s.polls.Insert(ctx, poll); err != nil {
		return nil, err
	}
	slog.Info("poll created", "pollID", poll.ID.Hex(), "ownerID", ownerID.Hex(), "visibility", poll.Visibility)
	return poll, nil
}

// GetPoll fetches a poll. Private polls require the access key; the owner is
// exempt since they hold the key by construction.
func (s *PollService) GetPoll(ctx context.Context, id, viewerID primitive.ObjectID, accessKey string) (*models.Poll, error) {
	poll, err := s.polls.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(KindPollNotFound, "poll %s not found", id.Hex())
	}
	if err != nil {
		return nil, err
	}
	if poll.IsPrivate() && poll.CreatedBy != viewerID && poll.AccessKey != accessKey {
		return nil, newError(KindInvalidAccessKey, "invalid access key for poll %s", id.Hex())
	}
	return poll, nil
}

// ListPublic returns the discoverable feed: public, non-expired polls, newest
// first.
func (s *PollService) ListPublic(ctx context.Context) ([]models.Poll, error) {
	return s.polls.ListPublic(ctx, s.now())
}

// JoinPrivate resolves a private poll from its access key.
func (s *PollService) JoinPrivate(ctx context.Context, accessKey string) (*models.Poll, error) {
	poll, err := s.polls.FindByAccessKey(ctx, accessKey)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(KindInvalidAccessKey, "no poll matches that access key")
	}
	if err != nil {
		return nil, err
	}
	return poll, nil
}

// UpdatePoll edits a poll's question and, while no votes exist, its options.
// Option identity is positional, so once any vote references an index the
// option set is frozen. Expiry is immutable regardless.
func (s *PollService) UpdatePoll(ctx context.Context, id, callerID primitive.ObjectID, req models.UpdatePollRequest) (*models.Poll, error) {
	poll, err := s.polls.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(KindPollNotFound, "poll %s not found", id.Hex())
	}
	if err != nil {
		return nil, err
	}
	if poll.CreatedBy != callerID {
		return nil, newError(KindNotOwner, "only the poll owner can edit it")
	}

	if desc := strings.TrimSpace(req.Description); desc != "" {
		poll.Description = desc
	}

	if req.Options != nil && !slices.Equal(req.Options, poll.Options) {
		count, err := s.votes.CountByPoll(ctx, id)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, newError(KindPollHasVotes, "options cannot change once the poll has votes")
		}
		if len(req.Options) < models.MinPollOptions || len(req.Options) > models.MaxPollOptions {
			return nil, newError(KindValidation, "polls need between %d and %d options",
				models.MinPollOptions, models.MaxPollOptions)
		}
		for _, option := range req.Options {
			if strings.TrimSpace(option) == "" {
				return nil, newError(KindValidation, "options must not be empty")
			}
		}
		poll.Options = req.Options
	}

	if err := s.polls.Update(ctx, poll); err != nil {
		return nil, err
	}
	return poll, nil
}

// DeletePoll removes a poll and cascades its votes.
func (s *PollService) DeletePoll(ctx context.Context, id, callerID primitive.ObjectID) error {
	poll, err := s.polls.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return newError(KindPollNotFound, "poll %s not found", id.Hex())
	}
	if err != nil {
		return err
	}
	if poll.CreatedBy != callerID {
		return newError(KindNotOwner, "only the poll owner can delete it")
	}
	if err := s.polls.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.votes.DeleteByPoll(ctx, id); err != nil {
		slog.Error("vote cascade failed", "pollID", id.Hex(), "error", err)
		return err
	}
	slog.Info("poll deleted", "pollID", id.Hex())
	return nil
}
