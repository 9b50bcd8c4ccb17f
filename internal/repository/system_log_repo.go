package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"

	"mathwizard/internal/database"
	"mathwizard/internal/models"
)

// SystemLogRepository persists the admin audit trail
type SystemLogRepository struct {
	db *database.DB
}

// NewSystemLogRepository creates a new system log repository
func NewSystemLogRepository(db *database.DB) *SystemLogRepository {
	return &SystemLogRepository{db: db}
}

// CreateEntry appends an audit entry
func (r *SystemLogRepository) CreateEntry(ctx context.Context, e *models.SystemLogEntry) error {
	var details sql.NullString
	if len(e.Details) > 0 {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("failed to encode log details: %w", err)
		}
		details = sql.NullString{String: string(raw), Valid: true}
	}

	query := `INSERT INTO system_logs (id, type, message, admin_email, target_id, target_type, details, logged_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, string(e.Type), e.Message, e.AdminEmail,
		nullString(e.TargetID), nullString(e.TargetType), details, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to create system log: %w", err)
	}
	return nil
}

// GetRecentEntries returns up to limit entries, newest first
func (r *SystemLogRepository) GetRecentEntries(ctx context.Context, limit int) ([]models.SystemLogEntry, error) {
	return r.queryEntries(ctx, logSelect+" ORDER BY logged_at DESC LIMIT ?", limit)
}

// GetAllEntries returns every entry, oldest first
func (r *SystemLogRepository) GetAllEntries(ctx context.Context) ([]models.SystemLogEntry, error) {
	return r.queryEntries(ctx, logSelect+" ORDER BY logged_at ASC")
}

const logSelect = "SELECT id, type, message, admin_email, target_id, target_type, details, logged_at FROM system_logs"

func (r *SystemLogRepository) queryEntries(ctx context.Context, query string, args ...any) ([]models.SystemLogEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query system logs: %w", err)
	}
	defer rows.Close()

	entries := []models.SystemLogEntry{}
	for rows.Next() {
		var e models.SystemLogEntry
		var logType string
		var targetID, targetType, details sql.NullString
		if err := rows.Scan(&e.ID, &logType, &e.Message, &e.AdminEmail, &targetID, &targetType, &details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan system log: %w", err)
		}
		e.Type = models.LogType(logType)
		e.TargetID = targetID.String
		e.TargetType = targetType.String
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &e.Details); err != nil {
				return nil, fmt.Errorf("failed to decode log details: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
