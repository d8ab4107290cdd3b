// Package pollview keeps a client-side picture of one poll consistent with
// the server. It applies a vote optimistically for instant feedback, then
// reconciles against the authoritative answer: broadcast events replace local
// counts wholesale, and a rejected submission rolls the optimistic change
// back. Any Go client of the service (bots, load generators, terminal UIs)
// can embed it.
package pollview

import (
	"context"
	"errors"
	"sync"

	"github.com/DevOwais28/wepollin/internal/models"
	"github.com/DevOwais28/wepollin/internal/service"
	"github.com/DevOwais28/wepollin/internal/tally"
)

// State is the viewer's own-vote state for the poll.
type State int

const (
	// StateUnvoted means no vote by this viewer is known, locally or remotely.
	StateUnvoted State = iota
	// StatePending means a vote was applied locally and submitted, but the
	// server has not yet confirmed it.
	StatePending
	// StateConfirmed means the server holds this viewer's vote.
	StateConfirmed
)

// ErrAlreadyVoted is returned by Submit when a second local vote is attempted.
var ErrAlreadyVoted = errors.New("pollview: already voted")

// Backend is the server surface the view reconciles against. CastVote returns
// the authoritative tally from a success response; transports without a
// synchronous reply (a live connection, where the broadcast event is the
// confirmation) return nil instead.
type Backend interface {
	CastVote(ctx context.Context, pollID string, optionIndex int, accessKey string) (*tally.Tally, error)
	FetchVotes(ctx context.Context, pollID, accessKey string) ([]models.Vote, error)
}

// View is a thread-safe local projection of one poll's tally plus the
// viewer's own-vote state.
type View struct {
	mu        sync.Mutex
	backend   Backend
	pollID    string
	viewerID  string
	accessKey string
	options   []string

	counts   []int
	total    int
	state    State
	selected int
}

// New builds a view for one poll. The caller passes the option list from the
// poll document; counts start at zero until Load or the first event.
func New(backend Backend, pollID, viewerID, accessKey string, options []string) *View {
	return &View{
		backend:   backend,
		pollID:    pollID,
		viewerID:  viewerID,
		accessKey: accessKey,
		options:   options,
		counts:    make([]int, len(options)),
		selected:  -1,
	}
}

// Load pulls the poll's vote rows and rebuilds the local tally from them,
// including whether this viewer has already voted.
func (v *View) Load(ctx context.Context) error {
	votes, err := v.backend.FetchVotes(ctx, v.pollID, v.accessKey)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.applyRows(votes)
	return nil
}

// applyRows rebuilds counts and own-vote state from raw rows. Caller holds mu.
func (v *View) applyRows(votes []models.Vote) {
	result := tally.Project(v.options, votes)
	v.counts = result.Counts
	v.total = result.Total

	v.state = StateUnvoted
	v.selected = -1
	for _, vote := range votes {
		if vote.VoterID.Hex() == v.viewerID {
			v.state = StateConfirmed
			v.selected = vote.OptionIndex
			break
		}
	}
}

// Submit casts a vote through the backend. The selected count is bumped
// immediately so the UI reacts without waiting on the network; confirmation
// arrives either as the tally in a success response or as the broadcast event
// carrying this viewer's id, and either way the server's tally replaces the
// optimistic guess wholesale. If the server rejects the vote the bump is
// rolled back. The one exception is an ALREADY_VOTED rejection, which means
// the server already holds a vote for this viewer (cast from another tab, or
// a confirmation that outran this call): then the view refetches and settles
// on the server's answer.
func (v *View) Submit(ctx context.Context, optionIndex int) error {
	v.mu.Lock()
	if v.state != StateUnvoted {
		v.mu.Unlock()
		return ErrAlreadyVoted
	}
	if optionIndex < 0 || optionIndex >= len(v.options) {
		v.mu.Unlock()
		return errors.New("pollview: option index out of range")
	}

	v.state = StatePending
	v.selected = optionIndex
	v.counts[optionIndex]++
	v.total++
	v.mu.Unlock()

	confirmed, err := v.backend.CastVote(ctx, v.pollID, optionIndex, v.accessKey)
	if err == nil {
		if confirmed != nil {
			v.mu.Lock()
			v.replaceCounts(confirmed.Counts, confirmed.Total)
			v.state = StateConfirmed
			v.selected = optionIndex
			v.mu.Unlock()
		}
		return nil
	}

	if service.IsKind(err, service.KindAlreadyVoted) {
		votes, fetchErr := v.backend.FetchVotes(ctx, v.pollID, v.accessKey)
		if fetchErr != nil {
			return fetchErr
		}
		v.mu.Lock()
		v.applyRows(votes)
		v.mu.Unlock()
		return nil
	}

	v.mu.Lock()
	if v.state == StatePending && v.selected == optionIndex {
		v.counts[optionIndex]--
		v.total--
		v.state = StateUnvoted
		v.selected = -1
	}
	v.mu.Unlock()
	return err
}

// replaceCounts swaps in a server-authoritative tally wholesale. Caller
// holds mu.
func (v *View) replaceCounts(counts []int, total int) {
	next := make([]int, len(v.options))
	for i := range next {
		if i < len(counts) {
			next[i] = counts[i]
		}
	}
	v.counts = next
	v.total = total
}

// ApplyEvent ingests a broadcast vote event. Counts are replaced, never
// accumulated, so a missed or reordered event cannot cause drift. An event
// carrying this viewer's id is the confirmation of their pending vote.
func (v *View) ApplyEvent(event models.VoteEvent) {
	if event.PollID != v.pollID {
		return
	}

	counts := make([]int, len(event.Results))
	for i, result := range event.Results {
		counts[i] = result.Votes
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.replaceCounts(counts, event.TotalVotes)

	if event.VoterID == v.viewerID {
		v.state = StateConfirmed
		v.selected = event.VoterOptionIndex
	}
}

// State returns the viewer's own-vote state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// SelectedOption returns the option this viewer voted for, or -1.
func (v *View) SelectedOption() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected
}

// Counts returns a copy of the per-option counts.
func (v *View) Counts() []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]int, len(v.counts))
	copy(out, v.counts)
	return out
}

// Total returns the total vote count.
func (v *View) Total() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.total
}

// Percentages returns per-option shares of the total, zero when empty.
func (v *View) Percentages() []float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]float64, len(v.counts))
	if v.total == 0 {
		return out
	}
	for i, n := range v.counts {
		out[i] = float64(n) / float64(v.total) * 100
	}
	return out
}
