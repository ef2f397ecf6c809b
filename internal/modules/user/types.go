package user

import (
	"errors"
	"time"
)

type CreateUserDTO struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type LoginDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type NotifyDTO struct {
	Event   string `json:"event" binding:"required,max=64"`
	Payload any    `json:"payload"`
}

// Account is a registered user. PasswordHash is a bcrypt hash.
type Account struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type tokenResponse struct {
	AccessToken string        `json:"access_token"`
	User        *userResponse `json:"user,omitempty"`
}

type notifyResponse struct {
	Delivered int `json:"delivered"`
}

type logoutResponse struct {
	Disconnected int `json:"disconnected"`
}

var (
	errEmailTaken         = errors.New("email already registered")
	errInvalidCredentials = errors.New("invalid email or password")
)

func toResponse(a *Account) *userResponse {
	return &userResponse{ID: a.ID, Email: a.Email, CreatedAt: a.CreatedAt}
}
