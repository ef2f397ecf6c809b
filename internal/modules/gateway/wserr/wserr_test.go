package wserr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mx-space/wsgateway/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
)

func TestReason_Message(t *testing.T) {
	tests := []struct {
		reason Reason
		want   string
	}{
		{MissingToken, "Authentication token missing."},
		{ExpiredToken, "Authentication token expired."},
		{InvalidToken, "Invalid authentication token"},
		{Unauthorized, "Unauthorized"},
		{TooManyConnections, "Too many connections."},
		{Reason(0), "Unauthorized"},
		{Reason(99), "Unauthorized"},
	}
	for _, tt := range tests {
		t.Run(tt.reason.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.reason.Message())
		})
	}
}

func TestFromVerifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Reason
	}{
		{"expired", fmt.Errorf("%w: exp", jwt.ErrExpired), ExpiredToken},
		{"invalid", fmt.Errorf("%w: sig", jwt.ErrInvalid), InvalidToken},
		{"unverified", fmt.Errorf("%w: alg", jwt.ErrUnverified), Unauthorized},
		{"deadline", context.DeadlineExceeded, Unauthorized},
		{"unknown", errors.New("boom"), Unauthorized},
		{"nil", nil, Unauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromVerifyError(tt.err))
		})
	}
}

func TestRender_DoesNotLeakCause(t *testing.T) {
	err := New(InvalidToken, errors.New("signature mismatch for key s3cr3t"))

	payload := Render(err)
	assert.Equal(t, "Invalid authentication token", payload.Message)
	assert.NotContains(t, payload.Message, "s3cr3t")
	assert.Contains(t, err.Error(), "s3cr3t")
}

func TestReasonOf(t *testing.T) {
	wrapped := fmt.Errorf("admit: %w", New(TooManyConnections, nil))
	assert.Equal(t, TooManyConnections, ReasonOf(wrapped))
	assert.Equal(t, ExpiredToken, ReasonOf(jwt.ErrExpired))
	assert.Equal(t, "gateway: TooManyConnections", New(TooManyConnections, nil).Error())
}
