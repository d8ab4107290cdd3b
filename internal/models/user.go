package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a user document. Identity is a collaborator concern; this carries
// just enough for authenticated voting.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Username  string             `bson:"username" json:"username"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	LastLogin time.Time          `bson:"last_login" json:"lastLogin"`
}

// AuthUser is the authenticated caller extracted from a verified JWT. It is
// passed through request context explicitly rather than held in any ambient
// session singleton.
type AuthUser struct {
	ID    primitive.ObjectID
	Email string
}

// RegisterRequest defines the input for user registration.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest defines the input for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued JWT.
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
