// Package model defines data structures for the chat platform.
package model

import (
	"time"
)

// DirectMessage is one turn of a user's conversation with the assistant.
// Unlike group messages, content is stored in plaintext.
type DirectMessage struct {
	ID         string    `json:"id" bson:"_id"`
	SenderID   string    `json:"senderId" bson:"senderId"`
	ReceiverID string    `json:"receiverId" bson:"receiverId"`
	Content    string    `json:"content" bson:"content"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
}

// SendDirectMessageRequest is the request to message the assistant.
type SendDirectMessageRequest struct {
	SenderID string `json:"senderId" validate:"required"`
	Content  string `json:"content" validate:"required,max=100000"`
}

// GenerateResponseRequest is the legacy request shape for assistant replies.
type GenerateResponseRequest struct {
	Message string `json:"message" validate:"required,max=100000"`
	UserID  string `json:"userId" validate:"required"`
}

// SendDirectMessageResponse carries both sides of an assistant exchange.
type SendDirectMessageResponse struct {
	UserMessage *DirectMessage `json:"userMessage"`
	AIMessage   *DirectMessage `json:"aiMessage"`
	Tier        string         `json:"tier"`
}

// GenerateResponseResponse is the legacy response shape.
type GenerateResponseResponse struct {
	Reply  string `json:"reply"`
	UserID string `json:"userId"`
}

// ListDirectMessagesResponse is the response for an assistant conversation history.
type ListDirectMessagesResponse struct {
	Messages []DirectMessage `json:"messages"`
}
