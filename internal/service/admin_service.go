package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mathwizard/internal/models"
	"mathwizard/internal/repository"
	"mathwizard/internal/validation"
)

// AdminService implements the administrator's account management operations.
// Every mutation is written to the audit trail.
type AdminService struct {
	parentRepo *repository.ParentRepository
	schoolRepo *repository.SchoolRepository
	audit      *AuditService
}

// NewAdminService creates a new admin service
func NewAdminService(parentRepo *repository.ParentRepository, schoolRepo *repository.SchoolRepository, audit *AuditService) *AdminService {
	return &AdminService{
		parentRepo: parentRepo,
		schoolRepo: schoolRepo,
		audit:      audit,
	}
}

// UserSummary is an admin listing row for a parent or school
type UserSummary struct {
	ID               string      `json:"id"`
	Email            string      `json:"email"`
	Name             string      `json:"name"`
	Role             models.Role `json:"role"`
	Verified         bool        `json:"verified"`
	Children         []string    `json:"children,omitempty"`
	MaxChildren      *int        `json:"maxChildren,omitempty"`
	NumberOfTeachers *int        `json:"numberOfTeachers,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
}

// ListUsers returns all parents followed by all schools
func (s *AdminService) ListUsers(ctx context.Context) ([]UserSummary, error) {
	parents, err := s.parentRepo.GetAllParents(ctx)
	if err != nil {
		return nil, err
	}
	schools, err := s.schoolRepo.GetAllSchools(ctx)
	if err != nil {
		return nil, err
	}

	users := make([]UserSummary, 0, len(parents)+len(schools))
	for _, p := range parents {
		maxChildren := p.MaxChildren
		users = append(users, UserSummary{
			ID:          p.ID,
			Email:       p.Email,
			Name:        p.Name,
			Role:        models.RoleParent,
			Verified:    p.Verified,
			Children:    p.Children,
			MaxChildren: &maxChildren,
			CreatedAt:   p.CreatedAt,
		})
	}
	for _, sc := range schools {
		teachers := sc.NumberOfTeachers
		users = append(users, UserSummary{
			ID:               sc.ID,
			Email:            sc.AdminEmail,
			Name:             sc.SchoolName,
			Role:             models.RoleSchool,
			Verified:         sc.Verified,
			NumberOfTeachers: &teachers,
			CreatedAt:        sc.CreatedAt,
		})
	}
	return users, nil
}

// DeleteUser removes the parent or school with id. Child accounts of a deleted
// parent are kept.
func (s *AdminService) DeleteUser(ctx context.Context, adminEmail, id string) (models.Role, error) {
	parent, err := s.parentRepo.GetParentByID(ctx, id)
	if err != nil {
		return "", s.recordFailure(ctx, adminEmail, "Error deleting user ID: "+id, id, "unknown", err)
	}
	if parent != nil {
		if _, err := s.parentRepo.DeleteParent(ctx, id); err != nil {
			return "", s.recordFailure(ctx, adminEmail, "Error deleting user ID: "+id, id, "parent", err)
		}
		s.audit.Record(ctx, models.LogTypeDeletion, "Parent account deleted: "+parent.Email, adminEmail, id, "parent",
			map[string]any{"email": parent.Email, "name": parent.Name})
		return models.RoleParent, nil
	}

	school, err := s.schoolRepo.GetSchoolByID(ctx, id)
	if err != nil {
		return "", s.recordFailure(ctx, adminEmail, "Error deleting user ID: "+id, id, "unknown", err)
	}
	if school != nil {
		if _, err := s.schoolRepo.DeleteSchool(ctx, id); err != nil {
			return "", s.recordFailure(ctx, adminEmail, "Error deleting user ID: "+id, id, "school", err)
		}
		s.audit.Record(ctx, models.LogTypeDeletion, "School account deleted: "+school.AdminEmail, adminEmail, id, "school",
			map[string]any{"email": school.AdminEmail, "name": school.SchoolName})
		return models.RoleSchool, nil
	}

	return "", ErrUserNotFound
}

// UpdateParent edits a parent's name, email and quota. A quota below the
// current child count is rejected and the record is left unchanged.
func (s *AdminService) UpdateParent(ctx context.Context, adminEmail, id, name, email string, maxChildren int) error {
	name = strings.TrimSpace(name)
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateName(name); err != nil {
		return ValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return ValidationError(err.Error())
	}
	if maxChildren < 0 {
		return ValidationError("maxChildren cannot be negative")
	}

	parent, err := s.parentRepo.GetParentByID(ctx, id)
	if err != nil {
		return s.recordFailure(ctx, adminEmail, "Error updating parent ID: "+id, id, "parent", err)
	}
	if parent == nil {
		return ErrParentNotFound
	}
	if maxChildren < len(parent.Children) {
		return ErrMaxChildrenBelowCount
	}
	if email != parent.Email {
		taken, err := s.schoolRepo.EmailExists(ctx, email)
		if err != nil {
			return s.recordFailure(ctx, adminEmail, "Error updating parent ID: "+id, id, "parent", err)
		}
		if taken {
			return ErrEmailTaken
		}
	}

	if err := s.parentRepo.UpdateParent(ctx, id, name, email, maxChildren); err != nil {
		switch {
		case errors.Is(err, repository.ErrMaxChildrenBelowCount):
			return ErrMaxChildrenBelowCount
		case errors.Is(err, repository.ErrParentNotFound):
			return ErrParentNotFound
		case errors.Is(err, repository.ErrEmailTaken):
			return ErrEmailTaken
		}
		return s.recordFailure(ctx, adminEmail, "Error updating parent ID: "+id, id, "parent", err)
	}

	s.audit.Record(ctx, models.LogTypeEdit, "Parent account updated: "+email, adminEmail, id, "parent", map[string]any{
		"before": map[string]any{"name": parent.Name, "email": parent.Email, "maxChildren": parent.MaxChildren},
		"after":  map[string]any{"name": name, "email": email, "maxChildren": maxChildren},
	})
	return nil
}

// UpdateSchool edits a school's name, admin email and teacher count
func (s *AdminService) UpdateSchool(ctx context.Context, adminEmail, id, name, email string, numberOfTeachers int) error {
	name = strings.TrimSpace(name)
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateName(name); err != nil {
		return ValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return ValidationError(err.Error())
	}
	if numberOfTeachers < 0 {
		return ValidationError("numberOfTeachers cannot be negative")
	}

	school, err := s.schoolRepo.GetSchoolByID(ctx, id)
	if err != nil {
		return s.recordFailure(ctx, adminEmail, "Error updating school ID: "+id, id, "school", err)
	}
	if school == nil {
		return ErrSchoolNotFound
	}
	if email != school.AdminEmail {
		taken, err := s.parentRepo.EmailExists(ctx, email)
		if err != nil {
			return s.recordFailure(ctx, adminEmail, "Error updating school ID: "+id, id, "school", err)
		}
		if taken {
			return ErrEmailTaken
		}
	}

	ok, err := s.schoolRepo.UpdateSchool(ctx, id, name, email, numberOfTeachers)
	if errors.Is(err, repository.ErrEmailTaken) {
		return ErrEmailTaken
	}
	if err != nil {
		return s.recordFailure(ctx, adminEmail, "Error updating school ID: "+id, id, "school", err)
	}
	if !ok {
		return ErrSchoolNotFound
	}

	s.audit.Record(ctx, models.LogTypeEdit, "School account updated: "+email, adminEmail, id, "school", map[string]any{
		"before": map[string]any{"name": school.SchoolName, "email": school.AdminEmail, "numberOfTeachers": school.NumberOfTeachers},
		"after":  map[string]any{"name": name, "email": email, "numberOfTeachers": numberOfTeachers},
	})
	return nil
}

// ListSystemLogs returns the most recent audit entries
func (s *AdminService) ListSystemLogs(ctx context.Context, limit int) ([]models.SystemLogEntry, error) {
	return s.audit.ListRecent(ctx, limit)
}

// recordFailure writes an error audit entry for an unexpected failure and returns it wrapped
func (s *AdminService) recordFailure(ctx context.Context, adminEmail, message, targetID, targetType string, err error) error {
	s.audit.Record(ctx, models.LogTypeError, message, adminEmail, targetID, targetType, map[string]any{"error": err.Error()})
	return fmt.Errorf("%s: %w", strings.ToLower(message), err)
}
