package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/store"
	"github.com/abgdnv/storefront/internal/store/db"
	"github.com/google/uuid"
)

const apiKeyBytes = 32

// UserService registers users and resolves API keys to them.
type UserService interface {
	// Register creates a user and issues its API key.
	// Returns ErrInvalidInput for a bad username and ErrUsernameTaken if it is in use.
	Register(ctx context.Context, dto RegisterDto) (*UserDto, error)

	// Authenticate returns the owner of apiKey.
	// Returns ErrUnauthorized if the key is empty or unknown.
	Authenticate(ctx context.Context, apiKey string) (*UserDto, error)
}

// UserSvc implements UserService.
type UserSvc struct {
	users  store.UserStore
	keyGen func() (string, error)
}

// NewUserService creates a new instance of UserService backed by users.
func NewUserService(users store.UserStore) *UserSvc {
	return &UserSvc{users: users, keyGen: newAPIKey}
}

// RegisterDto is the registration request.
type RegisterDto struct {
	Username string `json:"username" validate:"required,max=100"`
}

// UserDto is a registered user. ApiKey is only populated on registration.
type UserDto struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	ApiKey    string    `json:"api_key,omitempty"`
	CreatedAt string    `json:"created_at,omitempty"`
}

func (s *UserSvc) Register(ctx context.Context, dto RegisterDto) (*UserDto, error) {
	dto.Username = strings.TrimSpace(dto.Username)
	if err := validateStruct(dto); err != nil {
		return nil, err
	}
	apiKey, err := s.keyGen()
	if err != nil {
		return nil, fmt.Errorf("failed to generate api key: %w", err)
	}
	user, err := s.users.CreateUser(ctx, dto.Username, apiKey)
	if err != nil {
		return nil, err
	}
	return toUserDto(user, true), nil
}

func (s *UserSvc) Authenticate(ctx context.Context, apiKey string) (*UserDto, error) {
	if apiKey == "" {
		return nil, sferrors.ErrUnauthorized
	}
	user, err := s.users.FindUserByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, sferrors.ErrUserNotFound) {
			return nil, sferrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	return toUserDto(user, false), nil
}

// newAPIKey returns a random URL-safe token.
func newAPIKey() (string, error) {
	b := make([]byte, apiKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func toUserDto(user *db.User, withKey bool) *UserDto {
	dto := &UserDto{
		ID:       user.ID,
		Username: user.Username,
	}
	if withKey {
		dto.ApiKey = user.ApiKey
	}
	if user.CreatedAt != nil {
		dto.CreatedAt = user.CreatedAt.Format(time.RFC3339)
	}
	return dto
}
