package model

import (
	"encoding/json"
)

// EventName is the name of a real-time channel event.
type EventName string

// Client to server events.
const (
	EventConnect          EventName = "connect"
	EventGroupJoin        EventName = "group:join"
	EventGroupLeave       EventName = "group:leave"
	EventGroupTyping      EventName = "group:typing"
	EventGroupSendMessage EventName = "group:sendMessage"
)

// Server to client events.
const (
	EventAssistantMessage EventName = "assistant:message"
	EventGroupMessage     EventName = "group:message"
	EventError            EventName = "error"
	EventConnected        EventName = "connected"
	EventGroupJoined      EventName = "group:joined"
	EventGroupLeft        EventName = "group:left"
)

// Event is an outbound channel event.
type Event struct {
	Name EventName `json:"event"`
	Data any       `json:"data"`
}

// Envelope is an inbound channel frame; Data is decoded per event name.
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ConnectPayload binds a connection to a user.
type ConnectPayload struct {
	UserID string `json:"userId" validate:"required"`
}

// RoomPayload is used by group:join and group:leave.
type RoomPayload struct {
	GroupID string `json:"groupId" validate:"required"`
	UserID  string `json:"userId" validate:"required"`
}

// TypingPayload is both the inbound typing event and the broadcast notice.
type TypingPayload struct {
	GroupID  string `json:"groupId" validate:"required"`
	UserID   string `json:"userId" validate:"required"`
	UserName string `json:"userName"`
	IsTyping bool   `json:"isTyping"`
}

// GroupMessagePayload is the group:message broadcast.
type GroupMessagePayload struct {
	GroupID string        `json:"groupId"`
	Message *GroupMessage `json:"message"`
}

// AssistantMessagePayload is the assistant:message push.
type AssistantMessagePayload struct {
	Message *DirectMessage `json:"message"`
}

// ErrorPayload is the error event.
type ErrorPayload struct {
	Message string `json:"message"`
}

// ConnectedPayload acknowledges connect.
type ConnectedPayload struct {
	UserID string `json:"userId"`
}

// RoomAckPayload acknowledges group:join and group:leave.
type RoomAckPayload struct {
	GroupID string `json:"groupId"`
}

// NewTypingEvent builds a group:typing notice.
func NewTypingEvent(groupID, userID, userName string, isTyping bool) Event {
	return Event{Name: EventGroupTyping, Data: TypingPayload{
		GroupID:  groupID,
		UserID:   userID,
		UserName: userName,
		IsTyping: isTyping,
	}}
}

// NewErrorEvent builds an error event.
func NewErrorEvent(message string) Event {
	return Event{Name: EventError, Data: ErrorPayload{Message: message}}
}
