package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/DevOwais28/wepollin/internal/models"
	"github.com/DevOwais28/wepollin/internal/repository/memory"
	"github.com/DevOwais28/wepollin/internal/service"
)

func newHubFixture(t *testing.T) (*Hub, *memory.PollStore) {
	t.Helper()
	polls := memory.NewPollStore()
	votes := service.NewVoteService(polls, memory.NewVoteStore())
	hub := NewHub(votes, nil)
	votes.SetBroadcaster(hub)

	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub, polls
}

func newTestPoll(t *testing.T, polls *memory.PollStore) *models.Poll {
	t.Helper()
	now := time.Now().UTC()
	poll := &models.Poll{
		Description: "Tabs or spaces?",
		Options:     []string{"A", "B"},
		Visibility:  models.VisibilityPublic,
		CreatedBy:   primitive.NewObjectID(),
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}
	require.NoError(t, polls.Insert(context.Background(), poll))
	return poll
}

func joinViewer(t *testing.T, hub *Hub, pollID primitive.ObjectID, accessKey string) *Client {
	t.Helper()
	client := newClient(hub, nil, primitive.NewObjectID(), pollID, accessKey)
	hub.register <- client
	require.Eventually(t, func() bool {
		return hub.RoomSize(pollID.Hex()) > 0
	}, time.Second, 5*time.Millisecond)
	return client
}

func recvFrame(t *testing.T, client *Client) []byte {
	t.Helper()
	select {
	case payload := <-client.send:
		return payload
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func expectNoFrame(t *testing.T, client *Client) {
	t.Helper()
	select {
	case payload := <-client.send:
		t.Fatalf("unexpected frame: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestVoteFanOut(t *testing.T) {
	hub, polls := newHubFixture(t)
	poll := newTestPoll(t, polls)

	viewerA := joinViewer(t, hub, poll.ID, "")
	viewerB := joinViewer(t, hub, poll.ID, "")

	otherPoll := newTestPoll(t, polls)
	bystander := joinViewer(t, hub, otherPoll.ID, "")

	hub.handleVote(viewerA, 1)

	// Both room members get the event, including the voter.
	for _, viewer := range []*Client{viewerA, viewerB} {
		var frame VoteFrame
		require.NoError(t, json.Unmarshal(recvFrame(t, viewer), &frame))
		assert.Equal(t, FrameTypeVote, frame.Type)
		assert.Equal(t, poll.ID.Hex(), frame.PollID)
		assert.Equal(t, viewerA.userID.Hex(), frame.VoterID)
		assert.Equal(t, 1, frame.VoterOptionIndex)
		assert.Equal(t, 1, frame.TotalVotes)
		require.Len(t, frame.Results, 2)
		assert.Equal(t, 0, frame.Results[0].Votes)
		assert.Equal(t, 1, frame.Results[1].Votes)
		assert.Equal(t, float64(100), frame.Results[1].Percentage)
	}

	// A viewer of a different poll sees nothing.
	expectNoFrame(t, bystander)
}

func TestVoteErrorScopedToSubmitter(t *testing.T) {
	hub, polls := newHubFixture(t)
	poll := newTestPoll(t, polls)

	voter := joinViewer(t, hub, poll.ID, "")
	observer := joinViewer(t, hub, poll.ID, "")

	hub.handleVote(voter, 0)
	recvFrame(t, voter)
	recvFrame(t, observer)

	// Second vote by the same viewer: error to the submitter only.
	hub.handleVote(voter, 1)

	var frame ErrorFrame
	require.NoError(t, json.Unmarshal(recvFrame(t, voter), &frame))
	assert.Equal(t, FrameTypeError, frame.Type)
	assert.Equal(t, string(service.KindAlreadyVoted), frame.Code)

	expectNoFrame(t, observer)
}

func TestPrivatePollKeyCheckedPerVote(t *testing.T) {
	hub, polls := newHubFixture(t)
	now := time.Now().UTC()
	poll := &models.Poll{
		Description: "Secret?",
		Options:     []string{"A", "B"},
		Visibility:  models.VisibilityPrivate,
		AccessKey:   "k000000000000000",
		CreatedBy:   primitive.NewObjectID(),
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}
	require.NoError(t, polls.Insert(context.Background(), poll))

	intruder := joinViewer(t, hub, poll.ID, "stale-key")
	hub.handleVote(intruder, 0)

	var frame ErrorFrame
	require.NoError(t, json.Unmarshal(recvFrame(t, intruder), &frame))
	assert.Equal(t, string(service.KindInvalidAccessKey), frame.Code)
}

func TestSlowViewerDropped(t *testing.T) {
	hub, polls := newHubFixture(t)
	poll := newTestPoll(t, polls)

	slow := joinViewer(t, hub, poll.ID, "")
	// Saturate the send buffer so the next delivery cannot be queued.
	for i := 0; i < cap(slow.send); i++ {
		slow.send <- []byte("{}")
	}

	hub.BroadcastVote(models.VoteEvent{PollID: poll.ID.Hex()})

	require.Eventually(t, func() bool {
		return hub.RoomSize(poll.ID.Hex()) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestUnregisterLeavesRoom(t *testing.T) {
	hub, polls := newHubFixture(t)
	poll := newTestPoll(t, polls)

	viewer := joinViewer(t, hub, poll.ID, "")
	require.Equal(t, 1, hub.RoomSize(poll.ID.Hex()))

	hub.unregister <- viewer
	require.Eventually(t, func() bool {
		return hub.RoomSize(poll.ID.Hex()) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestSnapshotReflectsExistingVotes(t *testing.T) {
	hub, polls := newHubFixture(t)
	poll := newTestPoll(t, polls)

	early := joinViewer(t, hub, poll.ID, "")
	hub.handleVote(early, 0)
	recvFrame(t, early)

	late := newClient(hub, nil, primitive.NewObjectID(), poll.ID, "")
	payload, err := hub.snapshot(context.Background(), late)
	require.NoError(t, err)

	var frame TallyFrame
	require.NoError(t, json.Unmarshal(payload, &frame))
	assert.Equal(t, FrameTypeTally, frame.Type)
	assert.Equal(t, 1, frame.TotalVotes)
	require.Len(t, frame.Results, 2)
	assert.Equal(t, 1, frame.Results[0].Votes)
}
