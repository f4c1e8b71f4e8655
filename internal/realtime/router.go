package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/capitalize-ai/realtime-chat/internal/model"
	"github.com/capitalize-ai/realtime-chat/pkg/logger"
)

var errNotBound = fmt.Errorf("%w: connection is not bound to this user", model.ErrForbidden)

// GroupActions are the group operations reachable from the channel.
type GroupActions interface {
	Join(ctx context.Context, groupID, userID string) error
	SendMessage(ctx context.Context, req *model.SendGroupMessageRequest) (*model.GroupMessage, error)
}

// Registry binds users to connections.
type Registry interface {
	Register(userID, connectionID string)
	RemoveByConnection(connectionID string) (string, bool)
}

// Typing records composing state.
type Typing interface {
	SetTyping(ctx context.Context, groupID, userID, userName string, isTyping bool)
	ClearUser(ctx context.Context, userID string)
}

// Router decodes inbound frames and runs the matching action.
type Router struct {
	hub      *Hub
	presence Registry
	typing   Typing
	groups   GroupActions
	validate *validator.Validate
	log      *logger.Logger
}

// NewRouter creates a Router and installs it as hub's frame handler.
func NewRouter(hub *Hub, presence Registry, typing Typing, groups GroupActions, log *logger.Logger) *Router {
	if log == nil {
		log = logger.Global()
	}
	r := &Router{
		hub:      hub,
		presence: presence,
		typing:   typing,
		groups:   groups,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
	hub.SetHandler(r)
	return r
}

// HandleFrame dispatches one inbound frame. Failures are reported to the
// originating connection as an error event.
func (r *Router) HandleFrame(ctx context.Context, c *Client, data []byte) {
	var env model.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		r.reply(c, model.NewErrorEvent("Invalid message format"))
		return
	}

	var err error
	switch env.Event {
	case model.EventConnect:
		err = r.connect(c, env.Data)
	case model.EventGroupJoin:
		err = r.join(ctx, c, env.Data)
	case model.EventGroupLeave:
		err = r.leave(c, env.Data)
	case model.EventGroupTyping:
		err = r.setTyping(ctx, c, env.Data)
	case model.EventGroupSendMessage:
		err = r.sendMessage(ctx, c, env.Data)
	default:
		r.reply(c, model.NewErrorEvent("Unknown event: "+string(env.Event)))
		return
	}

	if err != nil {
		c.log.Debug("event failed", zap.String("event", string(env.Event)), zap.Error(err))
		r.reply(c, model.NewErrorEvent(publicMessage(env.Event, err)))
	}
}

// Disconnect unbinds the connection and clears the user's typing state.
func (r *Router) Disconnect(ctx context.Context, c *Client) {
	userID, ok := r.presence.RemoveByConnection(c.ID())
	if !ok {
		return
	}
	r.typing.ClearUser(ctx, userID)
	c.log.Info("user disconnected", zap.String("user_id", userID))
}

func (r *Router) connect(c *Client, raw json.RawMessage) error {
	var p model.ConnectPayload
	if err := r.decode(raw, &p); err != nil {
		return err
	}
	r.presence.Register(p.UserID, c.ID())
	c.bind(p.UserID)
	r.reply(c, model.Event{Name: model.EventConnected, Data: model.ConnectedPayload{UserID: p.UserID}})
	return nil
}

// join checks membership and acknowledges. Delivery follows group
// membership and presence, not joined rooms.
func (r *Router) join(ctx context.Context, c *Client, raw json.RawMessage) error {
	var p model.RoomPayload
	if err := r.decode(raw, &p); err != nil {
		return err
	}
	if err := r.authorize(ctx, c, p.GroupID, p.UserID); err != nil {
		return err
	}
	r.reply(c, model.Event{Name: model.EventGroupJoined, Data: model.RoomAckPayload{GroupID: p.GroupID}})
	return nil
}

// leave only acknowledges; a member who left still receives group events.
func (r *Router) leave(c *Client, raw json.RawMessage) error {
	var p model.RoomPayload
	if err := r.decode(raw, &p); err != nil {
		return err
	}
	if err := bound(c, p.UserID); err != nil {
		return err
	}
	r.reply(c, model.Event{Name: model.EventGroupLeft, Data: model.RoomAckPayload{GroupID: p.GroupID}})
	return nil
}

func (r *Router) setTyping(ctx context.Context, c *Client, raw json.RawMessage) error {
	var p model.TypingPayload
	if err := r.decode(raw, &p); err != nil {
		return err
	}
	if err := r.authorize(ctx, c, p.GroupID, p.UserID); err != nil {
		return err
	}
	r.typing.SetTyping(ctx, p.GroupID, p.UserID, p.UserName, p.IsTyping)
	return nil
}

func (r *Router) sendMessage(ctx context.Context, c *Client, raw json.RawMessage) error {
	var p model.SendGroupMessageRequest
	if err := r.decode(raw, &p); err != nil {
		return err
	}
	if err := bound(c, p.SenderID); err != nil {
		return err
	}
	_, err := r.groups.SendMessage(ctx, &p)
	return err
}

// authorize checks that the connection speaks for userID and that userID
// belongs to groupID.
func (r *Router) authorize(ctx context.Context, c *Client, groupID, userID string) error {
	if err := bound(c, userID); err != nil {
		return err
	}
	return r.groups.Join(ctx, groupID, userID)
}

// bound rejects payloads naming a user other than the one the connection
// bound with connect.
func bound(c *Client, userID string) error {
	if c.UserID() != userID {
		return errNotBound
	}
	return nil
}

func (r *Router) decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return model.ErrValidation
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return model.ErrValidation
	}
	if err := r.validate.Struct(v); err != nil {
		return errors.Join(model.ErrValidation, err)
	}
	return nil
}

func (r *Router) reply(c *Client, evt model.Event) {
	r.hub.Send(c.ID(), evt)
}

func publicMessage(event model.EventName, err error) string {
	switch {
	case errors.Is(err, errNotBound):
		return "Connection is not bound to this user"
	case errors.Is(err, model.ErrForbidden):
		return "Not a member of this group"
	case errors.Is(err, model.ErrNotFound):
		return "Group not found"
	case errors.Is(err, model.ErrKeyUnavailable):
		return "Sender not found or encryption key missing"
	case errors.Is(err, model.ErrValidation):
		return "Invalid " + string(event) + " payload"
	default:
		return "Failed to process " + string(event)
	}
}
