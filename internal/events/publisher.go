// Package events publishes successful votes onto the trending pipeline's
// input topic. Consumption of the topic is out of scope; this is only the
// producing side of that contract.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/DevOwais28/wepollin/internal/models"
)

const publishTimeout = 5 * time.Second

type voteMessage struct {
	PollID      string    `json:"pollId"`
	VoterID     string    `json:"voterId"`
	OptionIndex int       `json:"optionIndex"`
	CastAt      time.Time `json:"castAt"`
}

// KafkaVotePublisher writes vote events keyed by voter id, so one voter's
// votes land on one partition in order.
type KafkaVotePublisher struct {
	writer *kafka.Writer
}

func NewKafkaVotePublisher(brokers []string, topic string) *KafkaVotePublisher {
	return &KafkaVotePublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
			Async:    true,
		},
	}
}

// PublishVote emits the vote. Best effort: failures are logged and never
// propagate to the voting path.
func (p *KafkaVotePublisher) PublishVote(ctx context.Context, vote *models.Vote) {
	payload, err := json.Marshal(voteMessage{
		PollID:      vote.PollID.Hex(),
		VoterID:     vote.VoterID.Hex(),
		OptionIndex: vote.OptionIndex,
		CastAt:      vote.CreatedAt,
	})
	if err != nil {
		slog.Error("vote event marshal failed", "pollID", vote.PollID.Hex(), "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(vote.VoterID.Hex()),
		Value: payload,
	})
	if err != nil {
		slog.Error("vote event publish failed", "pollID", vote.PollID.Hex(), "error", err)
	}
}

func (p *KafkaVotePublisher) Close() error {
	return p.writer.Close()
}
