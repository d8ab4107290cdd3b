// Package memory holds in-memory implementations of the repository
// interfaces. They back the test suites and honor the same contracts as the
// mongo implementations, including atomic duplicate-vote rejection.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/DevOwais28/wepollin/internal/models"
	"github.com/DevOwais28/wepollin/internal/repository"
)

// PollStore is a mutex-guarded in-memory repository.PollStore.
type PollStore struct {
	mu    sync.RWMutex
	polls map[primitive.ObjectID]models.Poll
}

func NewPollStore() *PollStore {
	return &PollStore{polls: make(map[primitive.ObjectID]models.Poll)}
}

func (s *PollStore) Insert(_ context.Context, poll *models.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if poll.ID.IsZero() {
		poll.ID = primitive.NewObjectID()
	}
	s.polls[poll.ID] = *poll
	return nil
}

func (s *PollStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	poll, ok := s.polls[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &poll, nil
}

func (s *PollStore) FindByAccessKey(_ context.Context, key string) (*models.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, poll := range s.polls {
		if poll.IsPrivate() && poll.AccessKey == key {
			p := poll
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *PollStore) ListPublic(_ context.Context, now time.Time) ([]models.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	polls := make([]models.Poll, 0)
	for _, poll := range s.polls {
		if !poll.IsPrivate() && !poll.Expired(now) {
			polls = append(polls, poll)
		}
	}
	sort.Slice(polls, func(i, j int) bool {
		return polls[i].CreatedAt.After(polls[j].CreatedAt)
	})
	return polls, nil
}

func (s *PollStore) Update(_ context.Context, poll *models.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.polls[poll.ID]; !ok {
		return repository.ErrNotFound
	}
	s.polls[poll.ID] = *poll
	return nil
}

func (s *PollStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.polls[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.polls, id)
	return nil
}

type voteKey struct {
	poll  primitive.ObjectID
	voter primitive.ObjectID
}

// VoteStore is a mutex-guarded in-memory repository.VoteStore. The uniqueness
// check and the insert happen under one lock, matching the atomicity the
// mongo implementation gets from its unique index.
type VoteStore struct {
	mu    sync.RWMutex
	votes map[voteKey]models.Vote
}

func NewVoteStore() *VoteStore {
	return &VoteStore{votes: make(map[voteKey]models.Vote)}
}

func (s *VoteStore) Insert(_ context.Context, vote *models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := voteKey{poll: vote.PollID, voter: vote.VoterID}
	if _, exists := s.votes[key]; exists {
		return repository.ErrDuplicateVote
	}
	if vote.ID.IsZero() {
		vote.ID = primitive.NewObjectID()
	}
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = time.Now().UTC()
	}
	s.votes[key] = *vote
	return nil
}

func (s *VoteStore) ListByPoll(_ context.Context, pollID primitive.ObjectID) ([]models.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	votes := make([]models.Vote, 0)
	for key, vote := range s.votes {
		if key.poll == pollID {
			votes = append(votes, vote)
		}
	}
	sort.Slice(votes, func(i, j int) bool {
		return votes[i].CreatedAt.Before(votes[j].CreatedAt)
	})
	return votes, nil
}

func (s *VoteStore) CountByPoll(_ context.Context, pollID primitive.ObjectID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for key := range s.votes {
		if key.poll == pollID {
			n++
		}
	}
	return n, nil
}

func (s *VoteStore) FindByPollAndVoter(_ context.Context, pollID, voterID primitive.ObjectID) (*models.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vote, ok := s.votes[voteKey{poll: pollID, voter: voterID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &vote, nil
}

func (s *VoteStore) DeleteByPoll(_ context.Context, pollID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.votes {
		if key.poll == pollID {
			delete(s.votes, key)
		}
	}
	return nil
}

// UserStore is a mutex-guarded in-memory repository.UserStore.
type UserStore struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[primitive.ObjectID]models.User)}
}

func (s *UserStore) Insert(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicateUser
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[user.ID] = *user
	return nil
}

func (s *UserStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *UserStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	s.users[user.ID] = *user
	return nil
}
