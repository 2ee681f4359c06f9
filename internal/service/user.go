package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pcprep/pcprep-api/internal/domain"
	"github.com/pcprep/pcprep-api/internal/repository"
)

type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	FindByID(ctx context.Context, id uint) (domain.User, error)
	FindByUsername(ctx context.Context, username string) (domain.User, error)
	FindAll(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, user domain.User) (domain.User, error)
}

type UserService struct {
	repo  UserRepository
	audit AuditRecorder
}

func NewUserService(repo UserRepository, audit AuditRecorder) *UserService {
	return &UserService{
		repo:  repo,
		audit: audit,
	}
}

func (s *UserService) GetUser(ctx context.Context, id uint) (domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindAll -> %w", err)
	}

	return users, nil
}

func (s *UserService) CreateUser(ctx context.Context, actor domain.User, user domain.User) (domain.User, error) {
	user.Username = strings.TrimSpace(user.Username)
	if !user.Role.Valid() {
		return domain.User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, user.Role)
	}

	hash, err := hashPassword(user.Password)
	if err != nil {
		return domain.User{}, err
	}
	user.Password = hash
	user.Active = true

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	entry := actorEntry(actor, domain.AuditUserCreated)
	entry.Details = fmt.Sprintf("%s (%s)", created.Username, created.Role)
	recordAudit(ctx, s.audit, entry)

	return created, nil
}

// UpdateUser applies patch to the user. Admins cannot demote or deactivate
// their own account.
func (s *UserService) UpdateUser(ctx context.Context, actor domain.User, id uint, patch domain.UserPatch) (domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	if actor.ID == user.ID {
		if patch.Role != nil && *patch.Role != user.Role {
			return domain.User{}, fmt.Errorf("%w: cannot change your own role", ErrPermissionDenied)
		}
		if patch.Active != nil && !*patch.Active {
			return domain.User{}, fmt.Errorf("%w: cannot deactivate your own account", ErrPermissionDenied)
		}
	}

	var changes []string
	if patch.Password != nil {
		hash, err := hashPassword(*patch.Password)
		if err != nil {
			return domain.User{}, err
		}
		user.Password = hash
		changes = append(changes, "password")
	}
	if patch.Role != nil {
		if !patch.Role.Valid() {
			return domain.User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, *patch.Role)
		}
		user.Role = *patch.Role
		changes = append(changes, "role="+string(user.Role))
	}
	if patch.Active != nil {
		user.Active = *patch.Active
		changes = append(changes, fmt.Sprintf("active=%t", user.Active))
	}

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.Update -> %w", err)
	}

	entry := actorEntry(actor, domain.AuditUserUpdated)
	entry.Details = fmt.Sprintf("%s: %s", updated.Username, strings.Join(changes, ", "))
	recordAudit(ctx, s.audit, entry)

	return updated, nil
}

// EnsureAdmin creates the seed administrator unless a user with that name
// already exists. It reports whether a user was created.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}

	_, err := s.repo.FindByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return false, fmt.Errorf("s.repo.FindByUsername -> %w", err)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return false, err
	}

	_, err = s.repo.Create(ctx, domain.User{
		Username: username,
		Password: hash,
		Role:     domain.RoleAdmin,
		Active:   true,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return false, nil
		}
		return false, fmt.Errorf("s.repo.Create -> %w", err)
	}

	zap.L().Info("seeded admin user", zap.String("username", username))

	return true, nil
}
