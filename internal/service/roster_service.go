package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mathwizard/internal/credentials"
	"mathwizard/internal/logging"
	"mathwizard/internal/metrics"
	"mathwizard/internal/models"
	"mathwizard/internal/repository"
	"mathwizard/internal/validation"
)

// RosterService manages the children registered under a parent
type RosterService struct {
	parentRepo *repository.ParentRepository
	childRepo  *repository.ChildRepository
	codec      *credentials.Codec
}

// NewRosterService creates a new roster service
func NewRosterService(parentRepo *repository.ParentRepository, childRepo *repository.ChildRepository, codec *credentials.Codec) *RosterService {
	return &RosterService{
		parentRepo: parentRepo,
		childRepo:  childRepo,
		codec:      codec,
	}
}

// AddChildInput holds the fields for a new child. Password and Year are optional.
type AddChildInput struct {
	Name     string
	Username string
	Password string
	Year     string
}

// ChildCredentials is returned once, when a child is created
type ChildCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AddChild registers a child under a parent. Checks run in order: the parent must
// exist, the username must be unused, and a roster slot must be free. The child
// row and the roster entry are written together.
func (s *RosterService) AddChild(ctx context.Context, parentEmail string, in AddChildInput) (*ChildCredentials, error) {
	parentEmail = validation.NormalizeEmail(parentEmail)
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	if in.Name == "" {
		return nil, ValidationError("name is required")
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, ValidationError(err.Error())
	}

	parent, err := s.parentRepo.GetParentByEmail(ctx, parentEmail)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, ErrParentNotFound
	}

	taken, err := s.childRepo.UsernameTaken(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	if parent.AvailableSlots() <= 0 {
		return nil, ErrQuotaReached
	}

	password := in.Password
	if password == "" {
		if password, err = credentials.GenerateChildPassword(); err != nil {
			return nil, fmt.Errorf("failed to generate child password: %w", err)
		}
	}

	hashed, err := s.codec.Hash(password)
	if err != nil {
		return nil, err
	}

	year := models.NormalizeYear(in.Year)
	if year == "" {
		year = models.DefaultYear
	}

	child := &models.ChildAccount{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Username:  in.Username,
		Password:  hashed.String(),
		Year:      year,
		YearGroup: models.YearGroupFor(year),
	}
	if err := s.childRepo.CreateChildOnRoster(ctx, parent.Email, child); err != nil {
		return nil, mapRosterError(err)
	}

	metrics.Registrations.WithLabelValues("child").Inc()
	logging.Ctx(ctx).Info().Str("parent", parent.Email).Str("username", child.Username).Msg("Child added")

	return &ChildCredentials{Username: child.Username, Password: password}, nil
}

// RemoveChild deletes a child the parent owns. Nothing changes when the
// username is not on the parent's roster.
func (s *RosterService) RemoveChild(ctx context.Context, parentEmail, username string) error {
	parentEmail = validation.NormalizeEmail(parentEmail)

	parent, err := s.parentRepo.GetParentByEmail(ctx, parentEmail)
	if err != nil {
		return err
	}
	if parent == nil {
		return ErrParentNotFound
	}
	if !parent.HasChild(username) {
		return ErrNotParentsChild
	}

	if err := s.childRepo.RemoveChildFromRoster(ctx, parent.Email, username); err != nil {
		return mapRosterError(err)
	}

	logging.Ctx(ctx).Info().Str("parent", parent.Email).Str("username", username).Msg("Child removed")
	return nil
}

func mapRosterError(err error) error {
	switch {
	case errors.Is(err, repository.ErrParentNotFound):
		return ErrParentNotFound
	case errors.Is(err, repository.ErrUsernameTaken):
		return ErrUsernameTaken
	case errors.Is(err, repository.ErrQuotaReached):
		return ErrQuotaReached
	case errors.Is(err, repository.ErrNotOnRoster):
		return ErrNotParentsChild
	}
	return err
}

// GetChild retrieves a child with progress
func (s *RosterService) GetChild(ctx context.Context, username string) (*models.ChildAccount, error) {
	child, err := s.childRepo.GetChildByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, ErrChildNotFound
	}
	return child, nil
}

// ListChildren returns the usernames on a parent's roster in insertion order
func (s *RosterService) ListChildren(ctx context.Context, parentEmail string) ([]string, error) {
	parent, err := s.parentRepo.GetParentByEmail(ctx, validation.NormalizeEmail(parentEmail))
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, ErrParentNotFound
	}
	return parent.Children, nil
}

// RecordProgress appends a topic score to a child's history
func (s *RosterService) RecordProgress(ctx context.Context, username, topic string, score int) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ValidationError("topic is required")
	}
	if score < 0 || score > 100 {
		return ErrInvalidScore
	}

	child, err := s.childRepo.GetChildByUsername(ctx, username)
	if err != nil {
		return err
	}
	if child == nil {
		return ErrChildNotFound
	}

	return s.childRepo.AddProgress(ctx, child.ID, models.ProgressEntry{
		Topic:       topic,
		Score:       score,
		CompletedAt: time.Now().UTC(),
	})
}

// CanAccessChild checks whether p may read a child's record: admins always,
// a child only itself, a parent only children on its roster.
func (s *RosterService) CanAccessChild(ctx context.Context, p *models.Principal, username string) error {
	switch p.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleChild:
		if p.Username == username {
			return nil
		}
	case models.RoleParent:
		owner, err := s.childRepo.GetRosterOwner(ctx, username)
		if err != nil {
			return err
		}
		if owner != "" && owner == p.Email {
			return nil
		}
	}
	return ErrNotParentsChild
}

// OwnerOf returns the email of the parent whose roster holds username
func (s *RosterService) OwnerOf(ctx context.Context, username string) (string, error) {
	owner, err := s.childRepo.GetRosterOwner(ctx, username)
	if err != nil {
		return "", err
	}
	if owner == "" {
		return "", ErrChildNotFound
	}
	return owner, nil
}
