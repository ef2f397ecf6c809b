package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mx-space/wsgateway/internal/modules/gateway/ratelimit"
	"github.com/mx-space/wsgateway/internal/modules/gateway/room"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

// NewHub creates the gateway and mounts its namespaces on a socket.io server.
func NewHub(verifier TokenVerifier, opts Options) (*Hub, error) {
	h, err := newHub(verifier, opts)
	if err != nil {
		return nil, err
	}
	h.sio = socketio.NewServer(nil, nil)
	h.registerNamespaces()
	return h, nil
}

func newHub(verifier TokenVerifier, opts Options) (*Hub, error) {
	if verifier == nil {
		return nil, errors.New("gateway: verifier is nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.VerifyTimeout
	if timeout <= 0 {
		timeout = DefaultVerifyTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	namespaces := opts.Namespaces
	if len(namespaces) == 0 {
		namespaces = DefaultNamespaces()
	}

	tables := make(map[string]*eventTable, len(namespaces))
	for _, ns := range namespaces {
		if ns.Name == "" || ns.Name[0] != '/' {
			return nil, fmt.Errorf("gateway: namespace %q must start with /", ns.Name)
		}
		if _, dup := tables[ns.Name]; dup {
			return nil, fmt.Errorf("gateway: namespace %q registered twice", ns.Name)
		}
		table, err := newEventTable(ns.Routes)
		if err != nil {
			return nil, fmt.Errorf("gateway: namespace %q: %w", ns.Name, err)
		}
		tables[ns.Name] = table
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Hub{
		verifier:      verifier,
		limiter:       ratelimit.New(opts.MaxConnectionsPerAddress),
		rooms:         room.NewRegistry(),
		verifyTimeout: timeout,
		now:           now,
		namespaces:    namespaces,
		tables:        tables,
		baseCtx:       ctx,
		stop:          stop,
		outbound:      make(chan command, outboundBuffer),
		instanceID:    uuid.NewString(),
		rc:            opts.Redis,
		logger:        logger,
	}, nil
}

// Run relays commands to other instances until ctx is done, then closes
// every socket.
func (h *Hub) Run(ctx context.Context) {
	if h.rc != nil {
		go h.subscribeRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.Shutdown()
			return

		case cmd := <-h.outbound:
			if h.rc == nil {
				continue
			}
			data, err := json.Marshal(cmd)
			if err != nil {
				h.logger.Warn("gateway encode command failed", zap.String("kind", cmd.Kind), zap.Error(err))
				continue
			}
			if err := h.rc.Publish(ctx, redisChanCommands, string(data)); err != nil {
				h.logger.Warn("gateway publish failed", zap.String("channel", redisChanCommands), zap.Error(err))
			}
		}
	}
}

// Shutdown cancels in-flight admissions and closes the socket.io server.
func (h *Hub) Shutdown() {
	h.stop()
	if h.sio != nil {
		h.sio.Close(nil)
	}
}

// subscribeRedis applies commands published by other instances.
func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rc.Subscribe(ctx, redisChanCommands)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.applyPayload([]byte(msg.Payload))
		}
	}
}

func (h *Hub) applyPayload(data []byte) int {
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		h.logger.Debug("gateway drop malformed command", zap.Error(err))
		return 0
	}
	return h.apply(cmd)
}

func (h *Hub) apply(cmd command) int {
	if cmd.Origin == h.instanceID {
		return 0
	}
	switch cmd.Kind {
	case commandNotify:
		return h.rooms.Notify(cmd.Room, cmd.Event, cmd.Payload)
	case commandLogout:
		return h.rooms.ForceDisconnect(cmd.Room)
	}
	return 0
}

func (h *Hub) relay(cmd command) {
	if h.rc == nil {
		return
	}
	cmd.Origin = h.instanceID
	select {
	case h.outbound <- cmd:
	default:
		h.logger.Warn("gateway relay queue full, dropping command", zap.String("kind", cmd.Kind), zap.String("room", cmd.Room))
	}
}

// NotifyUser delivers payload under event to every local connection of the
// identity and relays the command to peers. Returns local deliveries.
func (h *Hub) NotifyUser(identityKey, event string, payload any) int {
	delivered := h.rooms.Notify(identityKey, event, payload)
	h.relay(command{Kind: commandNotify, Room: identityKey, Event: event, Payload: payload})
	return delivered
}

// LogoutUser disconnects every local connection of the identity and relays the
// command to peers. Returns local disconnects.
func (h *Hub) LogoutUser(identityKey string) int {
	n := h.rooms.ForceDisconnect(identityKey)
	h.relay(command{Kind: commandLogout, Room: identityKey})
	if n > 0 {
		h.logger.Info("gateway user forcibly disconnected", zap.String("room", identityKey), zap.Int("connections", n))
	}
	return n
}

// Stats reports current room, connection and limiter figures.
func (h *Hub) Stats() Stats {
	sessions := 0
	h.sessions.Range(func(_, _ any) bool {
		sessions++
		return true
	})
	return Stats{
		Rooms:       h.rooms.Rooms(),
		Connections: h.rooms.Count(),
		Sessions:    sessions,
		Addresses:   h.limiter.Addresses(),
	}
}

// Handler returns the socket.io HTTP handler mounted at /socket.io.
func (h *Hub) Handler() http.Handler {
	return h.sio.ServeHandler(nil)
}
