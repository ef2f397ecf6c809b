package gateway

import (
	"sync"
	"time"

	"github.com/mx-space/wsgateway/internal/modules/gateway/ratelimit"
	"github.com/mx-space/wsgateway/internal/modules/gateway/room"
	"github.com/mx-space/wsgateway/internal/pkg/jwt"
)

// State is a step of the admission state machine.
type State int

const (
	StateConnecting State = iota
	StateVerifying
	StateRateChecking
	StateJoining
	StateConnected
	StateRejected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateVerifying:
		return "verifying"
	case StateRateChecking:
		return "rate_checking"
	case StateJoining:
		return "joining"
	case StateConnected:
		return "connected"
	case StateRejected:
		return "rejected"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Session is a transport connection plus everything admission derived from it.
// Side effects (rate credit, room join) are only taken under mu while the
// session is alive, and terminate undoes them under the same lock, so a closed
// connection is never left counted or joined.
type Session struct {
	transport   Transport
	id          string
	address     string
	namespace   string
	connectedAt time.Time

	mu      sync.Mutex
	state   State
	token   string
	claims  *jwt.Claims
	roomKey string
	counted bool
	joined  bool
	closed  bool
}

func newSession(t Transport, namespace string, now time.Time) *Session {
	return &Session{
		transport:   t,
		id:          t.ID(),
		address:     originAddress(t.RemoteAddr()),
		namespace:   namespace,
		connectedAt: now,
		state:       StateConnecting,
	}
}

func (s *Session) ID() string             { return s.id }
func (s *Session) Address() string        { return s.address }
func (s *Session) Namespace() string      { return s.namespace }
func (s *Session) ConnectedAt() time.Time { return s.connectedAt }

// Emit sends an event to the client.
func (s *Session) Emit(event string, payload any) error {
	return s.transport.Emit(event, payload)
}

// Disconnect closes the underlying transport. Cleanup runs from the
// transport's disconnect callback.
func (s *Session) Disconnect() {
	s.transport.Disconnect()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Claims returns the verified claims, nil before verification succeeds.
func (s *Session) Claims() *jwt.Claims {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claims
}

// RoomKey returns the room the session joined, empty until Connected.
func (s *Session) RoomKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomKey
}

func (s *Session) aliveLocked() bool {
	return !s.closed && s.transport.Connected()
}

func (s *Session) alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aliveLocked()
}

// advance moves to next if the session is still alive.
func (s *Session) advance(next State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.aliveLocked() {
		return false
	}
	s.state = next
	return true
}

// credentialToken returns the token the session was admitted with.
func (s *Session) credentialToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) attachClaims(token string, claims *jwt.Claims) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.aliveLocked() {
		return false
	}
	s.token = token
	s.claims = claims
	s.state = StateRateChecking
	return true
}

// credit asks the limiter for a slot. alive is false when the session closed
// first, in which case the limiter is not touched.
func (s *Session) credit(l *ratelimit.Limiter) (admitted, alive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.aliveLocked() {
		return false, false
	}
	if !l.TryAdmit(s.address) {
		return false, true
	}
	s.counted = true
	s.state = StateJoining
	return true, true
}

func (s *Session) join(r *room.Registry, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.aliveLocked() {
		return false
	}
	r.Join(key, s)
	s.roomKey = key
	s.joined = true
	s.state = StateConnected
	return true
}

func (s *Session) markRejected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.state = StateRejected
	}
}

// close marks the session dead and hands back what must be undone.
// Only the first call returns anything.
func (s *Session) close() (first, counted bool, roomKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, false, ""
	}
	s.closed = true
	if s.state != StateRejected {
		s.state = StateDisconnected
	}
	counted = s.counted
	if s.joined {
		roomKey = s.roomKey
	}
	s.counted = false
	s.joined = false
	return true, counted, roomKey
}
