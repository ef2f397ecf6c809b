package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mx-space/wsgateway/internal/modules/gateway/wserr"
	"go.uber.org/zap"
)

// Reply is what a handler sends back. With Event set it is emitted as that
// event; otherwise Payload answers the client's acknowledgement, if any.
type Reply struct {
	Event   string
	Payload any
}

// HandlerFunc answers one client event on an admitted session.
type HandlerFunc func(ctx context.Context, s *Session, args []any) (*Reply, error)

// Route binds an event name to its handler.
type Route struct {
	Event  string
	Handle HandlerFunc
}

// Namespace is one socket.io namespace with its own event table. All
// namespaces share the hub's admission pipeline and room registry.
type Namespace struct {
	Name   string
	Routes []Route
}

// ExceptionPayload is emitted as `exception` when an event handler fails.
type ExceptionPayload struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ErrBadPayload marks a payload that failed decoding or validation.
var ErrBadPayload = errors.New("invalid payload")

var reservedEvents = map[string]struct{}{
	"connect":        {},
	"connect_error":  {},
	"connection":     {},
	"disconnect":     {},
	"disconnecting":  {},
	"newListener":    {},
	"removeListener": {},
	EventError:       {},
}

// IsReservedEvent reports whether name belongs to socket.io or to the
// gateway's own rejection signal.
func IsReservedEvent(name string) bool {
	_, ok := reservedEvents[strings.TrimSpace(name)]
	return ok
}

type eventTable struct {
	handlers map[string]HandlerFunc
	order    []string
}

// newEventTable validates routes once; duplicates, reserved names and nil
// handlers are configuration errors.
func newEventTable(routes []Route) (*eventTable, error) {
	t := &eventTable{handlers: make(map[string]HandlerFunc, len(routes))}
	for _, r := range routes {
		name := strings.TrimSpace(r.Event)
		if name == "" {
			return nil, errors.New("route with empty event name")
		}
		if _, ok := reservedEvents[name]; ok {
			return nil, fmt.Errorf("event %q is reserved", name)
		}
		if r.Handle == nil {
			return nil, fmt.Errorf("event %q has no handler", name)
		}
		if _, dup := t.handlers[name]; dup {
			return nil, fmt.Errorf("event %q registered twice", name)
		}
		t.handlers[name] = r.Handle
		t.order = append(t.order, name)
	}
	return t, nil
}

func (t *eventTable) events() []string { return t.order }

// dispatch runs the handler for event. Events from sessions that are not yet
// Connected are dropped. The admission token is verified again before every
// handler, so a session whose token expired gets an exception instead.
func (h *Hub) dispatch(ctx context.Context, t *eventTable, s *Session, event string, args []any, ack func([]any)) {
	handle, ok := t.handlers[event]
	if !ok || s.State() != StateConnected {
		return
	}

	if _, err := h.verify(ctx, s.credentialToken()); err != nil {
		h.logger.Debug("gateway event refused",
			zap.String("sid", s.ID()),
			zap.String("event", event),
			zap.Error(err),
		)
		h.replyException(s, ack, ExceptionPayload{Status: "error", Message: wserr.FromVerifyError(err).Message()})
		return
	}

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("gateway event handler panic",
				zap.String("sid", s.ID()),
				zap.String("event", event),
				zap.Any("panic", r),
			)
		}
	}()

	reply, err := handle(ctx, s, args)
	if err != nil {
		payload := ExceptionPayload{Status: "error", Message: "Internal server error"}
		if errors.Is(err, ErrBadPayload) {
			payload.Message = ErrBadPayload.Error()
		}
		h.logger.Debug("gateway event failed", zap.String("sid", s.ID()), zap.String("event", event), zap.Error(err))
		h.replyException(s, ack, payload)
		return
	}
	if reply == nil {
		return
	}
	if reply.Event != "" {
		_ = s.Emit(reply.Event, reply.Payload)
		return
	}
	if ack != nil {
		ack([]any{reply.Payload})
	}
}

// replyException answers through the ack when the client asked for one,
// otherwise as an `exception` event.
func (h *Hub) replyException(s *Session, ack func([]any), payload ExceptionPayload) {
	if ack != nil {
		ack([]any{payload})
		return
	}
	_ = s.Emit(EventException, payload)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Bind decodes the first event argument into T and validates struct tags.
func Bind[T any](args []any) (T, error) {
	var out T
	if len(args) == 0 || args[0] == nil {
		return out, fmt.Errorf("%w: missing body", ErrBadPayload)
	}
	var raw []byte
	switch v := args[0].(type) {
	case string:
		if json.Valid([]byte(v)) {
			raw = []byte(v)
		}
	case []byte:
		raw = v
	}
	if raw == nil {
		data, err := json.Marshal(args[0])
		if err != nil {
			return out, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		raw = data
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if err := validateValue(out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return out, nil
}

func validateValue(v any) error {
	err := validate.Struct(v)
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		// not a struct; nothing to validate
		return nil
	}
	return err
}

// Typed adapts a handler taking a decoded request.
func Typed[Req any](fn func(ctx context.Context, s *Session, req Req) (*Reply, error)) HandlerFunc {
	return func(ctx context.Context, s *Session, args []any) (*Reply, error) {
		req, err := Bind[Req](args)
		if err != nil {
			return nil, err
		}
		return fn(ctx, s, req)
	}
}
