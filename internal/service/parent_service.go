package service

import (
	"context"
	"strings"

	"mathwizard/internal/models"
	"mathwizard/internal/repository"
	"mathwizard/internal/validation"
)

// ParentService handles self-service changes to a parent account
type ParentService struct {
	parentRepo *repository.ParentRepository
}

// NewParentService creates a new parent service
func NewParentService(parentRepo *repository.ParentRepository) *ParentService {
	return &ParentService{parentRepo: parentRepo}
}

// UpdateSettings changes the parent's display name and returns the updated account
func (s *ParentService) UpdateSettings(ctx context.Context, email, name string) (*models.ParentAccount, error) {
	email = validation.NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if err := validation.ValidateName(name); err != nil {
		return nil, ValidationError(err.Error())
	}

	ok, err := s.parentRepo.UpdateName(ctx, email, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrParentNotFound
	}

	parent, err := s.parentRepo.GetParentByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, ErrParentNotFound
	}
	return parent, nil
}
