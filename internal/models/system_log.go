package models

import "time"

// LogType classifies an audit entry
type LogType string

const (
	LogTypeError    LogType = "error"
	LogTypeDeletion LogType = "deletion"
	LogTypeEdit     LogType = "edit"
)

// Valid reports whether t is a known audit type
func (t LogType) Valid() bool {
	switch t {
	case LogTypeError, LogTypeDeletion, LogTypeEdit:
		return true
	}
	return false
}

// SystemLogEntry is an append-only record of an admin action
type SystemLogEntry struct {
	ID         string         `json:"id"`
	Type       LogType        `json:"type"`
	Message    string         `json:"message"`
	AdminEmail string         `json:"adminEmail"`
	TargetID   string         `json:"targetId,omitempty"`
	TargetType string         `json:"targetType,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}
