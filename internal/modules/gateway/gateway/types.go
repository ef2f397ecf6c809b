package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/mx-space/wsgateway/internal/modules/gateway/credential"
	"github.com/mx-space/wsgateway/internal/modules/gateway/ratelimit"
	"github.com/mx-space/wsgateway/internal/modules/gateway/room"
	"github.com/mx-space/wsgateway/internal/pkg/jwt"
	pkgredis "github.com/mx-space/wsgateway/internal/pkg/redis"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

const (
	NamespaceRoot = "/"
	NamespaceUser = "/user"

	EventError     = "error"
	EventException = "exception"
	EventPing      = "ping"
	EventPong      = "pong"
	EventEvents    = "events"
	EventIdentity  = "identity"
	EventMessage   = "message"

	redisChanCommands = "wsgateway:commands"

	DefaultVerifyTimeout = 5 * time.Second
	outboundBuffer       = 256
)

// Transport is one live socket as seen by the gateway.
type Transport interface {
	ID() string
	RemoteAddr() string
	Metadata() credential.Metadata
	Connected() bool
	Emit(event string, payload any) error
	Disconnect()
}

// TokenVerifier turns a bearer token into verified claims.
type TokenVerifier interface {
	Verify(token string) (*jwt.Claims, error)
}

// Options configures a Hub.
type Options struct {
	MaxConnectionsPerAddress int
	VerifyTimeout            time.Duration
	// Namespaces to mount. Defaults to the root and /user namespaces.
	Namespaces []Namespace
	// Redis enables cross-instance relay of notify/logout commands when non-nil.
	Redis  *pkgredis.Client
	Logger *zap.Logger
	// Now is the clock used for session timestamps.
	Now func() time.Time
}

// Stats is a point-in-time view of the gateway.
type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
	Sessions    int `json:"sessions"`
	Addresses   int `json:"addresses"`
}

// command is relayed between instances over Redis.
type command struct {
	Origin  string `json:"origin"`
	Kind    string `json:"kind"`
	Room    string `json:"room"`
	Event   string `json:"event,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

const (
	commandNotify = "notify"
	commandLogout = "logout"
)

// Hub admits connections into per-identity rooms and routes events to them.
// One Hub is shared by every namespace.
type Hub struct {
	verifier      TokenVerifier
	limiter       *ratelimit.Limiter
	rooms         *room.Registry
	verifyTimeout time.Duration
	now           func() time.Time

	sessions sync.Map // id -> *Session

	namespaces []Namespace
	tables     map[string]*eventTable

	baseCtx context.Context
	stop    context.CancelFunc

	outbound   chan command
	instanceID string

	rc     *pkgredis.Client
	logger *zap.Logger
	sio    *socketio.Server
}
