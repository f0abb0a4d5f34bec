package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxFullNameLen = 120

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// UpsertFromAuth persists the user identity from OAuth so documents can be
// attributed to a stable owner.
func (s *Service) UpsertFromAuth(ctx context.Context, user User) error {
	if s == nil || s.Repo == nil {
		return errors.New("users service not configured")
	}
	if strings.TrimSpace(user.ID) == "" || strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("%w: user id and email are required", ErrInvalidInput)
	}
	return s.Repo.Upsert(ctx, user)
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, userID)
}

// UpdateFullName changes the profile name shown to recipients.
func (s *Service) UpdateFullName(ctx context.Context, userID, fullName string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return User{}, fmt.Errorf("%w: fullName is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(fullName) > maxFullNameLen {
		return User{}, fmt.Errorf("%w: fullName must be at most %d characters", ErrInvalidInput, maxFullNameLen)
	}
	return s.Repo.UpdateFullName(ctx, userID, fullName)
}
