package user

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Signer issues access tokens accepted by the gateway.
type Signer interface {
	Sign(userID, email string, ttl time.Duration) (string, error)
}

// Service keeps accounts in memory and issues tokens for them.
type Service struct {
	signer Signer
	ttl    time.Duration
	cost   int
	now    func() time.Time

	mu      sync.RWMutex
	byEmail map[string]*Account

	// compared against for unknown emails
	dummyHash []byte
}

func NewService(signer Signer, ttl time.Duration) *Service {
	return &Service{
		signer:  signer,
		ttl:     ttl,
		cost:    bcrypt.DefaultCost,
		now:     time.Now,
		byEmail: make(map[string]*Account),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create registers an account and returns a token for it.
func (s *Service) Create(dto *CreateUserDTO) (string, *Account, error) {
	email := normalizeEmail(dto.Email)

	s.mu.RLock()
	_, exists := s.byEmail[email]
	s.mu.RUnlock()
	if exists {
		return "", nil, errEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.cost)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}
	acc := &Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}

	s.mu.Lock()
	if _, exists := s.byEmail[email]; exists {
		s.mu.Unlock()
		return "", nil, errEmailTaken
	}
	s.byEmail[email] = acc
	s.mu.Unlock()

	token, err := s.signer.Sign(acc.ID, acc.Email, s.ttl)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, acc, nil
}

// Login checks credentials and returns a fresh token.
func (s *Service) Login(email, password string) (string, *Account, error) {
	s.mu.RLock()
	acc := s.byEmail[normalizeEmail(email)]
	s.mu.RUnlock()

	if acc == nil {
		_ = bcrypt.CompareHashAndPassword(s.placeholderHash(), []byte(password))
		return "", nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", nil, errInvalidCredentials
		}
		return "", nil, err
	}

	token, err := s.signer.Sign(acc.ID, acc.Email, s.ttl)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, acc, nil
}

// Get returns the account for email, nil when unknown.
func (s *Service) Get(email string) *Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byEmail[normalizeEmail(email)]
}

func (s *Service) placeholderHash() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dummyHash == nil {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("placeholder-password"), s.cost)
	}
	return s.dummyHash
}
