package gateway

import (
	"context"
)

const defaultMessageText = "Hello world!"

// PongPayload answers a ping.
type PongPayload struct {
	Message string `json:"message"`
}

// MessageRequest is the body of a `message` event on /user.
type MessageRequest struct {
	Text string `json:"text" validate:"max=4096"`
}

// MessageResponse echoes a MessageRequest.
type MessageResponse struct {
	Text string `json:"text"`
}

func handlePing(_ context.Context, _ *Session, _ []any) (*Reply, error) {
	return &Reply{Event: EventPong, Payload: PongPayload{Message: "PONG"}}, nil
}

// handleEvents streams 1, 2 and 3 as separate `events` emits.
func handleEvents(_ context.Context, s *Session, _ []any) (*Reply, error) {
	for i := 1; i <= 3; i++ {
		if err := s.Emit(EventEvents, i); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func handleIdentity(_ context.Context, _ *Session, value float64) (*Reply, error) {
	return &Reply{Payload: value}, nil
}

func handleMessage(_ context.Context, _ *Session, args []any) (*Reply, error) {
	if len(args) == 0 || args[0] == nil {
		return &Reply{Payload: MessageResponse{Text: defaultMessageText}}, nil
	}
	req, err := Bind[MessageRequest](args)
	if err != nil {
		return nil, err
	}
	if req.Text == "" {
		req.Text = defaultMessageText
	}
	return &Reply{Payload: MessageResponse{Text: req.Text}}, nil
}

// CommonRoutes are served on every namespace.
func CommonRoutes() []Route {
	return []Route{
		{Event: EventPing, Handle: handlePing},
		{Event: EventEvents, Handle: handleEvents},
		{Event: EventIdentity, Handle: Typed(handleIdentity)},
	}
}

// DefaultNamespaces returns the root namespace and /user.
func DefaultNamespaces() []Namespace {
	return []Namespace{
		{Name: NamespaceRoot, Routes: CommonRoutes()},
		{Name: NamespaceUser, Routes: append(CommonRoutes(), Route{Event: EventMessage, Handle: handleMessage})},
	}
}
