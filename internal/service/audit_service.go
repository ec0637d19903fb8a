package service

import (
	"context"

	"minemechanics/internal/domain"
	"minemechanics/internal/logger"
	"minemechanics/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditService appends audit records. Writes are best-effort: a failed audit
// insert is logged but never fails the action it describes.
type AuditService struct {
	repo *repository.AuditRepository
}

// NewAuditService creates a new audit service
func NewAuditService(db *pgxpool.Pool) *AuditService {
	return &AuditService{
		repo: repository.NewAuditRepository(db),
	}
}

// Log creates a new audit log entry
func (s *AuditService) Log(ctx context.Context, tgID int64, action string, details map[string]interface{}) {
	entry := &domain.AuditLog{
		TgID:    tgID,
		Action:  action,
		Details: details,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		logger.Error("failed to create audit log", "error", err, "action", action, "tg_id", tgID)
	}
}
