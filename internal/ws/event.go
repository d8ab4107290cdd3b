package ws

import (
	"encoding/json"

	"github.com/DevOwais28/wepollin/internal/models"
	"github.com/DevOwais28/wepollin/internal/tally"
)

// FrameType tags every frame exchanged over a live connection.
type FrameType string

const (
	// FrameTypeVote carries a full tally after a successful vote, plus the
	// voter's identity so each receiver can recognize its own confirmation.
	FrameTypeVote FrameType = "vote"

	// FrameTypeTally is the snapshot sent to a viewer immediately on join.
	FrameTypeTally FrameType = "tally"

	// FrameTypeError is delivered to the submitting viewer only.
	FrameTypeError FrameType = "error"
)

// InboundFrame is what a connected viewer may send: a vote for an option.
type InboundFrame struct {
	Type        FrameType `json:"type"`
	OptionIndex int       `json:"optionIndex"`
}

// VoteFrame is the fan-out payload for FrameTypeVote.
type VoteFrame struct {
	Type             FrameType             `json:"type"`
	PollID           string                `json:"pollId"`
	Results          []models.OptionResult `json:"results"`
	TotalVotes       int                   `json:"totalVotes"`
	VoterID          string                `json:"voterId"`
	VoterOptionIndex int                   `json:"voterOptionIndex"`
}

// TallyFrame is the join-time snapshot.
type TallyFrame struct {
	Type       FrameType             `json:"type"`
	PollID     string                `json:"pollId"`
	Results    []models.OptionResult `json:"results"`
	TotalVotes int                   `json:"totalVotes"`
}

// ErrorFrame reports a failed vote attempt to its submitter.
type ErrorFrame struct {
	Type    FrameType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

func marshalVoteFrame(event models.VoteEvent) ([]byte, error) {
	return json.Marshal(VoteFrame{
		Type:             FrameTypeVote,
		PollID:           event.PollID,
		Results:          event.Results,
		TotalVotes:       event.TotalVotes,
		VoterID:          event.VoterID,
		VoterOptionIndex: event.VoterOptionIndex,
	})
}

func marshalTallyFrame(pollID string, t tally.Tally, options []string) ([]byte, error) {
	return json.Marshal(TallyFrame{
		Type:       FrameTypeTally,
		PollID:     pollID,
		Results:    t.Results(options),
		TotalVotes: t.Total,
	})
}

func marshalErrorFrame(code, message string) []byte {
	payload, _ := json.Marshal(ErrorFrame{
		Type:    FrameTypeError,
		Code:    code,
		Message: message,
	})
	return payload
}
