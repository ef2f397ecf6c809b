package gateway

import (
	"net"
	"strings"

	"github.com/mx-space/wsgateway/internal/modules/gateway/credential"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

// socketTransport adapts a socket.io socket to Transport.
type socketTransport struct {
	client *socketio.Socket
}

func (t socketTransport) ID() string { return string(t.client.Id()) }

func (t socketTransport) RemoteAddr() string {
	if hs := t.client.Handshake(); hs != nil {
		return hs.Address
	}
	return ""
}

func (t socketTransport) Metadata() credential.Metadata {
	hs := t.client.Handshake()
	if hs == nil {
		return credential.Metadata{}
	}
	return credential.Metadata{Query: hs.Query, Auth: hs.Auth, Headers: hs.Headers}
}

func (t socketTransport) Connected() bool { return t.client.Connected() }

func (t socketTransport) Emit(event string, payload any) error {
	return t.client.Emit(event, payload)
}

func (t socketTransport) Disconnect() { t.client.Disconnect(true) }

// originAddress reduces "host:port" to the host and unmaps IPv4-in-IPv6.
func originAddress(remote string) string {
	addr := strings.TrimSpace(remote)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	addr = strings.TrimPrefix(addr, "::ffff:")
	return addr
}

// splitAck separates a trailing acknowledgement callback from event args.
func splitAck(args []any) ([]any, func([]any)) {
	if len(args) == 0 {
		return args, nil
	}
	if ack, ok := args[len(args)-1].(func([]any, error)); ok {
		return args[:len(args)-1], func(reply []any) { ack(reply, nil) }
	}
	return args, nil
}

// Accept tracks a freshly opened transport. Admission is started separately.
func (h *Hub) Accept(namespace string, t Transport) *Session {
	s := newSession(t, namespace, h.now())
	h.sessions.Store(s.ID(), s)
	return s
}

// Disconnected runs when the transport for s is gone.
func (h *Hub) Disconnected(s *Session) {
	h.terminate(s)
	h.logger.Debug("gateway client disconnected",
		zap.String("sid", s.ID()),
		zap.String("namespace", s.Namespace()),
		zap.String("state", s.State().String()),
	)
}

func (h *Hub) registerNamespaces() {
	for _, ns := range h.namespaces {
		name := ns.Name
		table := h.tables[name]
		nsp := h.sio.Of(name, nil)
		_ = nsp.On("connection", func(args ...any) {
			if len(args) == 0 {
				return
			}
			client, ok := args[0].(*socketio.Socket)
			if !ok {
				return
			}
			s := h.Accept(name, socketTransport{client: client})

			_ = client.On("disconnect", func(_ ...any) {
				h.Disconnected(s)
			})
			for _, event := range table.events() {
				event := event
				_ = client.On(event, func(eventArgs ...any) {
					payload, ack := splitAck(eventArgs)
					h.dispatch(h.baseCtx, table, s, event, payload, ack)
				})
			}

			go func() { _ = h.Admit(h.baseCtx, s) }()
		})
	}
}
