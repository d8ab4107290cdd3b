package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vote is a single vote document. At most one vote exists per (PollID, VoterID)
// pair; the votes collection carries a unique compound index on those two
// fields and that index, not any application-level check, is what enforces the
// invariant under concurrent requests.
type Vote struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PollID      primitive.ObjectID `bson:"poll_id" json:"pollId"`
	VoterID     primitive.ObjectID `bson:"voter_id" json:"userId"`
	OptionIndex int                `bson:"option_index" json:"optionIndex"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
}

// CastVoteRequest defines the input for casting a vote. AccessKey is required
// for private polls and is re-validated on every vote, not only at join time.
type CastVoteRequest struct {
	OptionIndex *int   `json:"optionIndex" binding:"required"`
	AccessKey   string `json:"accessKey"`
}

// OptionResult is the per-option slice of a broadcast tally.
type OptionResult struct {
	Option     string  `json:"option"`
	Votes      int     `json:"votes"`
	Percentage float64 `json:"percentage"`
}

// VoteEvent is the payload fanned out to every viewer of a poll after a
// successful vote. Receivers compare VoterID against their own id to tell a
// confirmation of their own pending vote from somebody else's vote.
type VoteEvent struct {
	PollID           string         `json:"pollId"`
	Results          []OptionResult `json:"results"`
	TotalVotes       int            `json:"totalVotes"`
	VoterID          string         `json:"voterId"`
	VoterOptionIndex int            `json:"voterOptionIndex"`
}
