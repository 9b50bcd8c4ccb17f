package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"mathwizard/internal/credentials"
	"mathwizard/internal/metrics"
	"mathwizard/internal/models"
	"mathwizard/internal/repository"
	"mathwizard/internal/validation"
)

// PartnerService manages the co-managers attached to a parent account
type PartnerService struct {
	parentRepo  *repository.ParentRepository
	partnerRepo *repository.PartnerRepository
	codec       *credentials.Codec
}

// NewPartnerService creates a new partner service
func NewPartnerService(parentRepo *repository.ParentRepository, partnerRepo *repository.PartnerRepository, codec *credentials.Codec) *PartnerService {
	return &PartnerService{
		parentRepo:  parentRepo,
		partnerRepo: partnerRepo,
		codec:       codec,
	}
}

// AddPartner attaches a partner and returns the resulting partner list
func (s *PartnerService) AddPartner(ctx context.Context, parentEmail, name, email, password string) ([]models.PartnerEntry, error) {
	parent, err := s.getParent(ctx, parentEmail)
	if err != nil {
		return nil, err
	}

	email = validation.NormalizeEmail(email)
	if len(parent.Partners) >= models.MaxPartners {
		return nil, ErrPartnerLimit
	}
	if parent.HasPartner(email) {
		return nil, ErrPartnerExists
	}
	if strings.TrimSpace(password) == "" {
		return nil, ErrPartnerPasswordNeeded
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, ValidationError(err.Error())
	}

	hashed, err := s.codec.Hash(password)
	if err != nil {
		return nil, err
	}

	partner := &models.PartnerEntry{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(name),
		Email:    email,
		Password: hashed.String(),
	}
	if err := s.partnerRepo.AddPartner(ctx, parent.Email, partner); err != nil {
		switch {
		case errors.Is(err, repository.ErrPartnerLimit):
			return nil, ErrPartnerLimit
		case errors.Is(err, repository.ErrPartnerExists):
			return nil, ErrPartnerExists
		case errors.Is(err, repository.ErrParentNotFound):
			return nil, ErrParentNotFound
		}
		return nil, err
	}
	metrics.Registrations.WithLabelValues("partner").Inc()

	return s.partnerRepo.GetPartners(ctx, parent.ID)
}

// RemovePartner detaches a partner by email. Removing an absent partner succeeds.
func (s *PartnerService) RemovePartner(ctx context.Context, parentEmail, partnerEmail string) ([]models.PartnerEntry, error) {
	parent, err := s.getParent(ctx, parentEmail)
	if err != nil {
		return nil, err
	}

	if err := s.partnerRepo.RemovePartner(ctx, parent.ID, validation.NormalizeEmail(partnerEmail)); err != nil {
		return nil, err
	}
	return s.partnerRepo.GetPartners(ctx, parent.ID)
}

// ListPartners returns a parent's partners. Passwords are never serialized.
func (s *PartnerService) ListPartners(ctx context.Context, parentEmail string) ([]models.PartnerEntry, error) {
	parent, err := s.getParent(ctx, parentEmail)
	if err != nil {
		return nil, err
	}
	return parent.Partners, nil
}

func (s *PartnerService) getParent(ctx context.Context, email string) (*models.ParentAccount, error) {
	parent, err := s.parentRepo.GetParentByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, ErrParentNotFound
	}
	return parent, nil
}
