package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mathwizard/internal/logging"
	"mathwizard/internal/metrics"
	"mathwizard/internal/models"
	"mathwizard/internal/repository"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 100
)

// AuditService records admin actions. Recording never fails the caller.
type AuditService struct {
	logRepo *repository.SystemLogRepository
}

// NewAuditService creates a new audit service
func NewAuditService(logRepo *repository.SystemLogRepository) *AuditService {
	return &AuditService{logRepo: logRepo}
}

// Record appends an audit entry and reports whether it was stored.
// Failures are logged, never returned.
func (s *AuditService) Record(
	ctx context.Context,
	logType models.LogType,
	message, adminEmail, targetID, targetType string,
	details map[string]any,
) bool {
	if !logType.Valid() {
		logging.Ctx(ctx).Error().Str("type", string(logType)).Msg("Rejected audit entry with unknown type")
		metrics.RecordAuditEntry(string(logType), false)
		return false
	}

	entry := &models.SystemLogEntry{
		ID:         uuid.NewString(),
		Type:       logType,
		Message:    message,
		AdminEmail: adminEmail,
		TargetID:   targetID,
		TargetType: targetType,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.logRepo.CreateEntry(ctx, entry); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("type", string(logType)).Str("message", message).Msg("Failed to record audit entry")
		metrics.RecordAuditEntry(string(logType), false)
		return false
	}

	metrics.RecordAuditEntry(string(logType), true)
	return true
}

// ListRecent returns the newest entries first. limit defaults to 100 and is capped at 100.
func (s *AuditService) ListRecent(ctx context.Context, limit int) ([]models.SystemLogEntry, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	return s.logRepo.GetRecentEntries(ctx, limit)
}
