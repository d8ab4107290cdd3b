package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const viewerTTL = 24 * time.Hour

// PresenceService tracks which viewers currently hold a live connection to a
// poll, as a Redis set per poll. Presence is advisory: failures are logged
// and never surface to the voting path.
type PresenceService struct {
	client *redis.Client
}

func NewPresenceService(client *redis.Client) *PresenceService {
	return &PresenceService{client: client}
}

func viewerKey(pollID string) string {
	return fmt.Sprintf("poll:%s:viewers", pollID)
}

// AddViewer marks a user as viewing a poll.
func (s *PresenceService) AddViewer(ctx context.Context, pollID, userID string) {
	if s == nil || s.client == nil {
		return
	}
	key := viewerKey(pollID)
	if err := s.client.SAdd(ctx, key, userID).Err(); err != nil {
		slog.Warn("presence add failed", "pollID", pollID, "userID", userID, "error", err)
		return
	}
	s.client.Expire(ctx, key, viewerTTL)
}

// RemoveViewer clears a user's presence on a poll.
func (s *PresenceService) RemoveViewer(ctx context.Context, pollID, userID string) {
	if s == nil || s.client == nil {
		return
	}
	if err := s.client.SRem(ctx, viewerKey(pollID), userID).Err(); err != nil {
		slog.Warn("presence remove failed", "pollID", pollID, "userID", userID, "error", err)
	}
}

// ViewerCount returns the number of users currently viewing a poll.
func (s *PresenceService) ViewerCount(ctx context.Context, pollID string) (int64, error) {
	if s == nil || s.client == nil {
		return 0, nil
	}
	return s.client.SCard(ctx, viewerKey(pollID)).Result()
}
