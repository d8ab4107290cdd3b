package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Visibility of a poll. Private polls carry an access key and are never listed.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

const (
	MinPollOptions = 2
	MaxPollOptions = 4
)

// Poll is a poll document. Option identity is positional: a vote references
// options by index, so the order of Options is significant.
type Poll struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Description string             `bson:"description" json:"description"`
	Options     []string           `bson:"options" json:"options"`
	Visibility  Visibility         `bson:"visibility" json:"visibility"`
	AccessKey   string             `bson:"access_key,omitempty" json:"-"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"createdBy"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	ExpiresAt   time.Time          `bson:"expires_at" json:"expiresAt"`
}

// IsPrivate reports whether the poll requires an access key.
func (p *Poll) IsPrivate() bool {
	return p.Visibility == VisibilityPrivate
}

// Expired reports whether the poll no longer accepts votes at the given time.
// The boundary itself is closed: a vote at exactly ExpiresAt is rejected.
func (p *Poll) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// CreatePollRequest defines the input for creating a poll.
type CreatePollRequest struct {
	Description    string   `json:"description" binding:"required"`
	Options        []string `json:"options" binding:"required"`
	IsPrivate      bool     `json:"isPrivate"`
	ExpiryDuration string   `json:"expiryDuration"`
}

// UpdatePollRequest defines the input for editing a poll. Options may only
// change while the poll has no votes; expiry is immutable after creation.
type UpdatePollRequest struct {
	Description string   `json:"description"`
	Options     []string `json:"options"`
}

// JoinPrivateRequest defines the input for resolving a private poll by key.
type JoinPrivateRequest struct {
	PrivateKey string `json:"privateKey" binding:"required"`
}

// PollResponse wraps a poll for create/join responses. PrivateKey is only set
// on the create response so the owner can share it; it is never re-exposed.
type PollResponse struct {
	Poll       *Poll  `json:"poll"`
	PrivateKey string `json:"privateKey,omitempty"`
}
