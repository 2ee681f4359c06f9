package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/pcprep/pcprep-api/internal/domain"
	"github.com/pcprep/pcprep-api/internal/repository"
)

var (
	ErrUserNotFound      = repository.ErrUserNotFound
	ErrUsernameExists    = repository.ErrUsernameExists
	ErrNodeNotFound      = repository.ErrNodeNotFound
	ErrEventNotFound     = repository.ErrEventNotFound
	ErrShareLinkNotFound = repository.ErrShareLinkNotFound
	ErrExpiryNotFound    = repository.ErrExpiryNotFound
	ErrReassortNotFound  = repository.ErrReassortItemNotFound
	ErrBatchNotFound     = repository.ErrBatchNotFound
	ErrBatchEmpty        = repository.ErrBatchEmpty

	ErrWrongCredentials       = errors.New("wrong credentials")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidTree            = errors.New("invalid tree")
	ErrEventClosed            = errors.New("event is closed")
	ErrShareLinkExpired       = errors.New("share link expired")
	ErrNodeNotInEvent         = errors.New("node is not part of the event")
	ErrNotAllChildrenVerified = errors.New("not all children verified")
	ErrParentHasNoItems       = errors.New("parent has no items")
	ErrNotAnItem              = errors.New("node is not an item")
)

type AuditRecorder interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
}

// recordAudit never fails the calling operation.
func recordAudit(ctx context.Context, rec AuditRecorder, entry domain.AuditEntry) {
	if rec == nil {
		return
	}

	if err := rec.Record(ctx, entry); err != nil {
		zap.L().Warn("failed to record audit entry",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}

func actorEntry(actor domain.User, action string) domain.AuditEntry {
	entry := domain.AuditEntry{
		Actor:  actor.Username,
		Action: action,
	}
	if actor.ID != 0 {
		id := actor.ID
		entry.UserID = &id
	}

	return entry
}
