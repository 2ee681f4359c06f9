package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/pcprep/pcprep-api/internal/domain"
	"github.com/pcprep/pcprep-api/internal/repository"
)

type AuthUserRepository interface {
	FindByUsername(ctx context.Context, username string) (domain.User, error)
}

type AuthService struct {
	repo  AuthUserRepository
	audit AuditRecorder
}

func NewAuthService(repo AuthUserRepository, audit AuditRecorder) *AuthService {
	return &AuthService{
		repo:  repo,
		audit: audit,
	}
}

// Login checks the credentials of an active user. Unknown users, wrong
// passwords and deactivated accounts all yield ErrWrongCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.loginFailed(ctx, username)
			return domain.User{}, ErrWrongCredentials
		}

		return domain.User{}, fmt.Errorf("s.repo.FindByUsername -> %w", err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil || !user.Active {
		s.loginFailed(ctx, username)
		return domain.User{}, ErrWrongCredentials
	}

	recordAudit(ctx, s.audit, actorEntry(user, domain.AuditLogin))

	return user, nil
}

func (s *AuthService) loginFailed(ctx context.Context, username string) {
	recordAudit(ctx, s.audit, domain.AuditEntry{
		Actor:  username,
		Action: domain.AuditLoginFailed,
	})
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
