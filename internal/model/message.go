package model

import (
	"time"
)

// GroupMessage is a message sent to a group. At rest Content holds the
// codec record (iv:ciphertext); it is replaced by plaintext only on copies
// built for delivery.
type GroupMessage struct {
	ID         string    `json:"id" bson:"_id"`
	GroupID    string    `json:"groupId" bson:"groupId"`
	SenderID   string    `json:"senderId" bson:"senderId"`
	SenderName string    `json:"senderName" bson:"senderName"`
	Content    string    `json:"content" bson:"content"`
	ImageURL   string    `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`

	// Redacted marks a delivery copy whose content could not be decrypted.
	Redacted bool `json:"redacted,omitempty" bson:"-"`
}

// SendGroupMessageRequest is the request to post to a group, shared by the
// HTTP route and the group:sendMessage channel event.
type SendGroupMessageRequest struct {
	GroupID    string `json:"groupId" validate:"required"`
	SenderID   string `json:"senderId" validate:"required"`
	SenderName string `json:"senderName" validate:"required,max=256"`
	Content    string `json:"content" validate:"max=100000"`
	ImageURL   string `json:"imageUrl,omitempty" validate:"omitempty,url"`
}

// GroupMessageResponse wraps a single delivered group message.
type GroupMessageResponse struct {
	Message *GroupMessage `json:"message"`
}

// ListGroupMessagesResponse is the response for a group's history.
type ListGroupMessagesResponse struct {
	Messages []GroupMessage `json:"messages"`
}
