package model

import (
	"time"
)

// User is the subset of the account record the chat core reads.
type User struct {
	ID            string    `json:"userId" bson:"_id"`
	HasConsented  bool      `json:"hasConsented" bson:"hasConsented"`
	EncryptionKey string    `json:"-" bson:"encryptionKey,omitempty"`
	Email         string    `json:"email,omitempty" bson:"email,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

// CreateUserRequest is the request to get or create a user.
type CreateUserRequest struct {
	UserID string `json:"userId" validate:"required,max=128"`
	Email  string `json:"email,omitempty" validate:"omitempty,email"`
}

// ConsentRequest toggles assistant consent for a user.
type ConsentRequest struct {
	UserID       string `json:"userId" validate:"required,max=128"`
	HasConsented bool   `json:"hasConsented"`
}

// UserResponse wraps a user for the HTTP surface.
type UserResponse struct {
	User *User `json:"user"`
}
