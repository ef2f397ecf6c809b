package gateway

import (
	"context"
	"errors"

	"github.com/mx-space/wsgateway/internal/modules/gateway/credential"
	"github.com/mx-space/wsgateway/internal/modules/gateway/wserr"
	"github.com/mx-space/wsgateway/internal/pkg/jwt"
	"go.uber.org/zap"
)

var (
	errClosedDuringAdmission = errors.New("connection closed during admission")
	errNoIdentity            = errors.New("claims carry no identity key")
)

// Admit runs extract -> verify -> rate check -> join for one connection.
// It returns nil once the session is Connected. Rejections are reported to the
// client as a single `error` event followed by a disconnect; the returned
// error is for logging only.
func (h *Hub) Admit(ctx context.Context, s *Session) error {
	err := h.admit(ctx, s)
	switch {
	case err == nil:
		h.logger.Info("gateway client admitted",
			zap.String("sid", s.ID()),
			zap.String("namespace", s.Namespace()),
			zap.String("address", s.Address()),
			zap.String("room", s.RoomKey()),
		)
	case errors.Is(err, errClosedDuringAdmission):
		h.terminate(s)
		h.logger.Debug("gateway admission aborted", zap.String("sid", s.ID()), zap.String("state", s.State().String()))
	default:
		h.reject(s, err)
	}
	return err
}

func (h *Hub) admit(ctx context.Context, s *Session) error {
	if !s.alive() {
		return errClosedDuringAdmission
	}
	token, ok := credential.Extract(s.transport.Metadata())
	if !ok {
		return wserr.New(wserr.MissingToken, nil)
	}

	if !s.advance(StateVerifying) {
		return errClosedDuringAdmission
	}
	claims, err := h.verify(ctx, token)
	if err != nil {
		return wserr.New(wserr.FromVerifyError(err), err)
	}
	if !s.attachClaims(token, claims) {
		return errClosedDuringAdmission
	}

	admitted, alive := s.credit(h.limiter)
	if !alive {
		return errClosedDuringAdmission
	}
	if !admitted {
		return wserr.New(wserr.TooManyConnections, nil)
	}

	key := claims.IdentityKey()
	if key == "" {
		return wserr.New(wserr.Unauthorized, errNoIdentity)
	}
	if !s.join(h.rooms, key) {
		return errClosedDuringAdmission
	}
	return nil
}

// verify bounds verification by the hub's verify timeout.
func (h *Hub) verify(ctx context.Context, token string) (*jwt.Claims, error) {
	ctx, cancel := context.WithTimeout(ctx, h.verifyTimeout)
	defer cancel()

	type result struct {
		claims *jwt.Claims
		err    error
	}
	done := make(chan result, 1)
	go func() {
		claims, err := h.verifier.Verify(token)
		done <- result{claims: claims, err: err}
	}()

	select {
	case r := <-done:
		return r.claims, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) reject(s *Session, err error) {
	reason := wserr.ReasonOf(err)
	s.markRejected()
	if s.alive() {
		if emitErr := s.Emit(EventError, wserr.Render(err)); emitErr != nil {
			h.logger.Debug("gateway emit rejection failed", zap.String("sid", s.ID()), zap.Error(emitErr))
		}
	}
	s.Disconnect()
	h.terminate(s)

	h.logger.Info("gateway client rejected",
		zap.String("sid", s.ID()),
		zap.String("namespace", s.Namespace()),
		zap.String("address", s.Address()),
		zap.String("reason", reason.String()),
		zap.Error(err),
	)
}

// terminate undoes whatever admission took for s. Safe to call any number of
// times from any goroutine; only the first call releases anything.
func (h *Hub) terminate(s *Session) {
	first, counted, key := s.close()
	if !first {
		return
	}
	h.sessions.Delete(s.ID())
	if key != "" {
		h.rooms.Leave(key, s)
	}
	if counted {
		h.limiter.Release(s.Address())
	}
}
