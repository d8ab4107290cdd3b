package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/DevOwais28/wepollin/internal/models"
	"github.com/DevOwais28/wepollin/internal/repository/memory"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []models.VoteEvent
}

func (b *recordingBroadcaster) BroadcastVote(event models.VoteEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBroadcaster) Events() []models.VoteEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.VoteEvent(nil), b.events...)
}

func newVoteFixture(t *testing.T) (*VoteService, *memory.PollStore, *recordingBroadcaster) {
	t.Helper()
	polls := memory.NewPollStore()
	votes := memory.NewVoteStore()
	svc := NewVoteService(polls, votes)
	broadcaster := &recordingBroadcaster{}
	svc.SetBroadcaster(broadcaster)
	return svc, polls, broadcaster
}

func seedPoll(t *testing.T, polls *memory.PollStore, mutate func(*models.Poll)) *models.Poll {
	t.Helper()
	now := time.Now().UTC()
	poll := &models.Poll{
		Description: "Tabs or spaces?",
		Options:     []string{"A", "B"},
		Visibility:  models.VisibilityPublic,
		CreatedBy:   primitive.NewObjectID(),
		CreatedAt:   now,
		ExpiresAt:   now.Add(24 * time.Hour),
	}
	if mutate != nil {
		mutate(poll)
	}
	require.NoError(t, polls.Insert(context.Background(), poll))
	return poll
}

func TestCastVoteHappyPath(t *testing.T) {
	svc, polls, broadcaster := newVoteFixture(t)
	poll := seedPoll(t, polls, nil)
	voter := primitive.NewObjectID()

	got, err := svc.CastVote(context.Background(), poll.ID, voter, 0, "")
	require.NoError(t, err)

	assert.Equal(t, []int{1, 0}, got.Counts)
	assert.Equal(t, 1, got.Total)
	assert.Equal(t, []float64{100, 0}, got.Percentages)

	events := broadcaster.Events()
	require.Len(t, events, 1)
	assert.Equal(t, poll.ID.Hex(), events[0].PollID)
	assert.Equal(t, voter.Hex(), events[0].VoterID)
	assert.Equal(t, 0, events[0].VoterOptionIndex)
	assert.Equal(t, 1, events[0].TotalVotes)
}

func TestCastVoteDoubleVote(t *testing.T) {
	svc, polls, _ := newVoteFixture(t)
	poll := seedPoll(t, polls, nil)
	voter := primitive.NewObjectID()

	_, err := svc.CastVote(context.Background(), poll.ID, voter, 0, "")
	require.NoError(t, err)

	// Second attempt, different option: rejected, tally unchanged.
	_, err = svc.CastVote(context.Background(), poll.ID, voter, 1, "")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindAlreadyVoted), "got kind %q", KindOf(err))

	got, _, err := svc.CurrentTally(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, got.Counts)
	assert.Equal(t, 1, got.Total)
}

// Two near-simultaneous attempts from the same voter must resolve to exactly
// one stored vote and one success; the store's atomic insert is the only
// synchronization in play.
func TestCastVoteConcurrentSameVoter(t *testing.T) {
	svc, polls, _ := newVoteFixture(t)
	poll := seedPoll(t, polls, nil)
	voter := primitive.NewObjectID()

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, idx := range []int{0, 1} {
		wg.Add(1)
		go func(optionIndex int) {
			defer wg.Done()
			_, err := svc.CastVote(context.Background(), poll.ID, voter, optionIndex, "")
			results <- err
		}(idx)
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case IsKind(err, KindAlreadyVoted):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)

	got, _, err := svc.CurrentTally(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Total)
}

func TestCastVoteConcurrentDistinctVoters(t *testing.T) {
	svc, polls, _ := newVoteFixture(t)
	poll := seedPoll(t, polls, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i, voter := range []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID()} {
		wg.Add(1)
		go func(voterID primitive.ObjectID, optionIndex int) {
			defer wg.Done()
			_, err := svc.CastVote(context.Background(), poll.ID, voterID, optionIndex, "")
			errs <- err
		}(voter, i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	got, _, err := svc.CurrentTally(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, got.Counts)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, []float64{50, 50}, got.Percentages)
}

func TestCastVoteExpiryBoundary(t *testing.T) {
	svc, polls, _ := newVoteFixture(t)
	expiresAt := time.Now().UTC().Add(time.Hour)
	poll := seedPoll(t, polls, func(p *models.Poll) {
		p.ExpiresAt = expiresAt
	})

	tests := []struct {
		name     string
		now      time.Time
		wantKind ErrorKind
	}{
		{name: "strictly before expiry", now: expiresAt.Add(-time.Second)},
		{name: "exactly at expiry", now: expiresAt, wantKind: KindPollExpired},
		{name: "after expiry", now: expiresAt.Add(time.Second), wantKind: KindPollExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc.now = func() time.Time { return tt.now }
			_, err := svc.CastVote(context.Background(), poll.ID, primitive.NewObjectID(), 0, "")
			if tt.wantKind == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsKind(err, tt.wantKind), "got kind %q", KindOf(err))
		})
	}
}

func TestCastVoteInvalidOption(t *testing.T) {
	svc, polls, broadcaster := newVoteFixture(t)
	poll := seedPoll(t, polls, nil)

	for _, idx := range []int{-1, 2, 99} {
		_, err := svc.CastVote(context.Background(), poll.ID, primitive.NewObjectID(), idx, "")
		require.Error(t, err, "optionIndex %d", idx)
		assert.True(t, IsKind(err, KindInvalidOption), "optionIndex %d: got kind %q", idx, KindOf(err))
	}

	// Nothing written, nothing broadcast.
	got, _, err := svc.CurrentTally(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Total)
	assert.Empty(t, broadcaster.Events())
}

func TestCastVotePollNotFound(t *testing.T) {
	svc, _, _ := newVoteFixture(t)

	_, err := svc.CastVote(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), 0, "")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindPollNotFound), "got kind %q", KindOf(err))
}

func TestCastVotePrivatePollAccessKey(t *testing.T) {
	svc, polls, _ := newVoteFixture(t)
	poll := seedPoll(t, polls, func(p *models.Poll) {
		p.Visibility = models.VisibilityPrivate
		p.AccessKey = "s3cretaccesskey1"
	})

	_, err := svc.CastVote(context.Background(), poll.ID, primitive.NewObjectID(), 0, "wrong-key")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidAccessKey), "got kind %q", KindOf(err))

	_, err = svc.CastVote(context.Background(), poll.ID, primitive.NewObjectID(), 0, "s3cretaccesskey1")
	require.NoError(t, err)
}

// A rotated access key blocks further votes from viewers who joined under
// the old key: the key is checked on every vote, not once at join.
func TestCastVoteAccessKeyRotation(t *testing.T) {
	svc, polls, _ := newVoteFixture(t)
	poll := seedPoll(t, polls, func(p *models.Poll) {
		p.Visibility = models.VisibilityPrivate
		p.AccessKey = "oldkey0000000000"
	})

	_, err := svc.CastVote(context.Background(), poll.ID, primitive.NewObjectID(), 0, "oldkey0000000000")
	require.NoError(t, err)

	poll.AccessKey = "newkey0000000000"
	require.NoError(t, polls.Update(context.Background(), poll))

	_, err = svc.CastVote(context.Background(), poll.ID, primitive.NewObjectID(), 1, "oldkey0000000000")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidAccessKey), "got kind %q", KindOf(err))
}

func TestListVotesPrivatePoll(t *testing.T) {
	svc, polls, _ := newVoteFixture(t)
	owner := primitive.NewObjectID()
	poll := seedPoll(t, polls, func(p *models.Poll) {
		p.Visibility = models.VisibilityPrivate
		p.AccessKey = "s3cretaccesskey1"
		p.CreatedBy = owner
	})

	_, err := svc.ListVotes(context.Background(), poll.ID, primitive.NewObjectID(), "")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidAccessKey))

	// Key holder and owner both read fine.
	_, err = svc.ListVotes(context.Background(), poll.ID, primitive.NewObjectID(), "s3cretaccesskey1")
	require.NoError(t, err)
	_, err = svc.ListVotes(context.Background(), poll.ID, owner, "")
	require.NoError(t, err)
}

// Tally conservation across an arbitrary vote sequence.
func TestTallyConservation(t *testing.T) {
	svc, polls, _ := newVoteFixture(t)
	poll := seedPoll(t, polls, func(p *models.Poll) {
		p.Options = []string{"A", "B", "C"}
	})

	for i := 0; i < 9; i++ {
		_, err := svc.CastVote(context.Background(), poll.ID, primitive.NewObjectID(), i%3, "")
		require.NoError(t, err)

		got, _, err := svc.CurrentTally(context.Background(), poll.ID)
		require.NoError(t, err)
		sum := 0
		for _, n := range got.Counts {
			sum += n
		}
		assert.Equal(t, got.Total, sum)
		assert.Equal(t, i+1, got.Total)
	}
}
