package user

import (
	"testing"
	"time"

	"github.com/mx-space/wsgateway/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) (*Service, *jwt.Verifier) {
	t.Helper()
	v := jwt.New("user-test-secret")
	svc := NewService(v, time.Hour)
	svc.cost = bcrypt.MinCost
	return svc, v
}

func TestCreateIssuesVerifiableToken(t *testing.T) {
	svc, v := newTestService(t)

	token, acc, err := svc.Create(&CreateUserDTO{Email: "  Alice@Example.com ", Password: "hunter22"})
	require.NoError(t, err)
	require.NotNil(t, acc)

	assert.Equal(t, "alice@example.com", acc.Email)
	assert.NotEmpty(t, acc.ID)
	assert.NotEqual(t, "hunter22", string(acc.PasswordHash))

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.IdentityKey())
	assert.Equal(t, acc.ID, claims.Subject)
	assert.Equal(t, acc.ID, claims.UserID)
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Create(&CreateUserDTO{Email: "bob@example.com", Password: "password1"})
	require.NoError(t, err)

	_, _, err = svc.Create(&CreateUserDTO{Email: "BOB@example.com", Password: "password2"})
	assert.ErrorIs(t, err, errEmailTaken)
}

func TestLogin(t *testing.T) {
	svc, v := newTestService(t)

	_, acc, err := svc.Create(&CreateUserDTO{Email: "carol@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	token, got, err := svc.Login("Carol@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", claims.Email)

	_, _, err = svc.Login("carol@example.com", "wrong")
	assert.ErrorIs(t, err, errInvalidCredentials)

	_, _, err = svc.Login("nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, errInvalidCredentials)
}

func TestGet(t *testing.T) {
	svc, _ := newTestService(t)
	assert.Nil(t, svc.Get("dave@example.com"))

	_, _, err := svc.Create(&CreateUserDTO{Email: "dave@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotNil(t, svc.Get(" DAVE@example.com"))
}
