package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"mathwizard/internal/config"
	"mathwizard/internal/credentials"
	"mathwizard/internal/logging"
	"mathwizard/internal/metrics"
	"mathwizard/internal/models"
	"mathwizard/internal/repository"
	"mathwizard/internal/validation"
)

// VerificationSender delivers verification emails
type VerificationSender interface {
	SendVerificationEmail(ctx context.Context, toEmail, toName, token, code string) error
}

// AuthService handles login, registration and email verification
type AuthService struct {
	parentRepo       *repository.ParentRepository
	schoolRepo       *repository.SchoolRepository
	childRepo        *repository.ChildRepository
	codec            *credentials.Codec
	issuer           *credentials.Issuer
	mailer           VerificationSender
	adminEmail       string
	adminPassword    string
	legacyChildLogin bool
}

// NewAuthService creates a new auth service
func NewAuthService(
	parentRepo *repository.ParentRepository,
	schoolRepo *repository.SchoolRepository,
	childRepo *repository.ChildRepository,
	codec *credentials.Codec,
	issuer *credentials.Issuer,
	mailer VerificationSender,
	authCfg config.AuthConfig,
) *AuthService {
	s := &AuthService{
		parentRepo:       parentRepo,
		schoolRepo:       schoolRepo,
		childRepo:        childRepo,
		codec:            codec,
		issuer:           issuer,
		mailer:           mailer,
		legacyChildLogin: authCfg.LegacyChildLogin,
	}
	if authCfg.AdminEnabled() {
		s.adminEmail = validation.NormalizeEmail(authCfg.AdminEmail)
		s.adminPassword = authCfg.AdminPassword
	}
	return s
}

// RegisterParentInput holds the fields for a new parent account
type RegisterParentInput struct {
	Name        string
	Email       string
	Password    string
	MaxChildren int
}

// RegisterSchoolInput holds the fields for a new school account
type RegisterSchoolInput struct {
	SchoolName       string
	AdminEmail       string
	Password         string
	NumberOfTeachers int
}

// Login authenticates an adult account. The static admin credential is checked
// first, then parents, then schools.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Principal, error) {
	email = validation.NormalizeEmail(email)

	if s.isAdmin(email, password) {
		metrics.RecordLogin(string(models.RoleAdmin), "success")
		return &models.Principal{Role: models.RoleAdmin, Email: s.adminEmail, Name: "Administrator"}, nil
	}

	parent, err := s.parentRepo.GetParentByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up parent: %w", err)
	}
	if parent != nil {
		if err := s.checkPassword(ctx, "parent", parent.ID, parent.Password, password, s.parentRepo.UpdatePassword); err != nil {
			return nil, err
		}
		if !parent.Verified {
			metrics.RecordLogin(string(models.RoleParent), "unverified")
			return nil, ErrEmailNotVerified
		}
		metrics.RecordLogin(string(models.RoleParent), "success")
		return parentPrincipal(parent), nil
	}

	school, err := s.schoolRepo.GetSchoolByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up school: %w", err)
	}
	if school != nil {
		if err := s.checkPassword(ctx, "school", school.ID, school.Password, password, s.schoolRepo.UpdatePassword); err != nil {
			return nil, err
		}
		if !school.Verified {
			metrics.RecordLogin(string(models.RoleSchool), "unverified")
			return nil, ErrEmailNotVerified
		}
		metrics.RecordLogin(string(models.RoleSchool), "success")
		return &models.Principal{
			Role:  models.RoleSchool,
			ID:    school.ID,
			Email: school.AdminEmail,
			Name:  school.SchoolName,
		}, nil
	}

	metrics.RecordLogin("unknown", "invalid")
	return nil, ErrBadLogin
}

// checkPassword verifies a stored password and writes back a rehashed legacy value
func (s *AuthService) checkPassword(
	ctx context.Context,
	account, id, stored, password string,
	save func(ctx context.Context, id, password string) error,
) error {
	ok, upgraded, err := s.codec.Check(stored, password)
	if !ok {
		metrics.RecordLogin(account, "invalid")
		if account == "child" {
			return ErrBadChildLogin
		}
		return ErrBadLogin
	}
	if err != nil {
		return fmt.Errorf("failed to upgrade legacy password: %w", err)
	}
	if upgraded != "" {
		if err := save(ctx, id, upgraded); err != nil {
			return fmt.Errorf("failed to store upgraded password: %w", err)
		}
		metrics.LegacyPasswordUpgrades.WithLabelValues(account).Inc()
		logging.Ctx(ctx).Info().Str("account", account).Str("id", id).Msg("Upgraded legacy password")
	}
	return nil
}

func (s *AuthService) isAdmin(email, password string) bool {
	if s.adminEmail == "" {
		return false
	}
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.adminEmail)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) == 1
	return emailOK && passwordOK
}

func parentPrincipal(p *models.ParentAccount) *models.Principal {
	maxChildren := p.MaxChildren
	return &models.Principal{
		Role:        models.RoleParent,
		ID:          p.ID,
		Email:       p.Email,
		Name:        p.Name,
		Children:    p.Children,
		MaxChildren: &maxChildren,
	}
}

// LoginChild authenticates a child by username. When legacy roster logins are
// enabled, a username that appears only on a parent's roster is accepted with
// any password and the default year group.
func (s *AuthService) LoginChild(ctx context.Context, username, password string) (*models.Principal, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrBadChildLogin
	}

	child, err := s.childRepo.GetChildByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up child: %w", err)
	}
	if child != nil {
		if err := s.checkPassword(ctx, "child", child.ID, child.Password, password, s.childRepo.UpdatePassword); err != nil {
			return nil, err
		}
		metrics.RecordLogin(string(models.RoleChild), "success")
		yearGroup := child.YearGroup
		return &models.Principal{
			Role:      models.RoleChild,
			ID:        child.ID,
			Name:      child.Name,
			Username:  child.Username,
			Year:      child.Year,
			YearGroup: &yearGroup,
		}, nil
	}

	if s.legacyChildLogin {
		owner, err := s.childRepo.GetRosterOwner(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("failed to look up roster: %w", err)
		}
		if owner != "" {
			metrics.LegacyRosterLogins.Inc()
			metrics.RecordLogin(string(models.RoleChild), "success")
			logging.Ctx(ctx).Warn().Str("username", username).Str("parent", owner).Msg("Child login accepted through legacy roster entry")
			yearGroup := models.DefaultYearGroup
			return &models.Principal{
				Role:      models.RoleChild,
				Name:      username,
				Username:  username,
				Year:      models.DefaultYear,
				YearGroup: &yearGroup,
			}, nil
		}
	}

	metrics.RecordLogin(string(models.RoleChild), "invalid")
	return nil, ErrBadChildLogin
}

// CheckEmail reports which kind of account an email belongs to
func (s *AuthService) CheckEmail(ctx context.Context, email string) (models.Role, error) {
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return "", ValidationError(err.Error())
	}

	if s.adminEmail != "" && email == s.adminEmail {
		return models.RoleAdmin, nil
	}

	isParent, err := s.parentRepo.EmailExists(ctx, email)
	if err != nil {
		return "", err
	}
	if isParent {
		return models.RoleParent, nil
	}

	isSchool, err := s.schoolRepo.EmailExists(ctx, email)
	if err != nil {
		return "", err
	}
	if isSchool {
		return models.RoleSchool, nil
	}

	return "", ErrAccountNotFound
}

// emailInUse reports whether an adult account already owns email
func (s *AuthService) emailInUse(ctx context.Context, email string) (bool, error) {
	if s.adminEmail != "" && email == s.adminEmail {
		return true, nil
	}
	isParent, err := s.parentRepo.EmailExists(ctx, email)
	if err != nil || isParent {
		return isParent, err
	}
	return s.schoolRepo.EmailExists(ctx, email)
}

// RegisterParent creates an unverified parent and sends the verification email.
// A delivery failure is logged and does not fail registration.
func (s *AuthService) RegisterParent(ctx context.Context, in RegisterParentInput) (*models.ParentAccount, error) {
	in.Email = validation.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validateAccountFields(in.Name, in.Email, in.Password); err != nil {
		return nil, err
	}
	if in.MaxChildren < 0 {
		return nil, ValidationError("maxChildren cannot be negative")
	}

	taken, err := s.emailInUse(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hashed, err := s.codec.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	code, err := s.issuer.NewCode()
	if err != nil {
		return nil, err
	}

	parent := &models.ParentAccount{
		ID:                uuid.NewString(),
		Name:              in.Name,
		Email:             in.Email,
		Password:          hashed.String(),
		MaxChildren:       in.MaxChildren,
		VerificationToken: s.issuer.NewToken(),
		VerificationCode:  code,
		Children:          []string{},
		Partners:          []models.PartnerEntry{},
	}
	if err := s.parentRepo.CreateParent(ctx, parent); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	metrics.Registrations.WithLabelValues("parent").Inc()

	if err := s.mailer.SendVerificationEmail(ctx, parent.Email, parent.Name, parent.VerificationToken, parent.VerificationCode); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("email", parent.Email).Msg("Failed to send verification email")
	}

	return parent, nil
}

// RegisterSchool creates a school account. Schools are verified at registration.
func (s *AuthService) RegisterSchool(ctx context.Context, in RegisterSchoolInput) (*models.SchoolAccount, error) {
	in.AdminEmail = validation.NormalizeEmail(in.AdminEmail)
	in.SchoolName = strings.TrimSpace(in.SchoolName)
	if err := validateAccountFields(in.SchoolName, in.AdminEmail, in.Password); err != nil {
		return nil, err
	}
	if in.NumberOfTeachers <= 0 {
		in.NumberOfTeachers = 1
	}

	taken, err := s.emailInUse(ctx, in.AdminEmail)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hashed, err := s.codec.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	school := &models.SchoolAccount{
		ID:               uuid.NewString(),
		SchoolName:       in.SchoolName,
		AdminEmail:       in.AdminEmail,
		Password:         hashed.String(),
		NumberOfTeachers: in.NumberOfTeachers,
		Verified:         true,
	}
	if err := s.schoolRepo.CreateSchool(ctx, school); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	metrics.Registrations.WithLabelValues("school").Inc()
	return school, nil
}

func validateAccountFields(name, email, password string) error {
	if err := validation.ValidateName(name); err != nil {
		return ValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return ValidationError(err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return ValidationError(err.Error())
	}
	return nil
}

// VerifyToken consumes a verification token. Both secrets are cleared on success,
// so a second use of the same token fails.
func (s *AuthService) VerifyToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidVerification
	}

	parent, err := s.parentRepo.GetParentByVerificationToken(ctx, token)
	if err != nil {
		return err
	}
	if parent != nil {
		return s.parentRepo.MarkVerified(ctx, parent.ID)
	}

	school, err := s.schoolRepo.GetSchoolByVerificationToken(ctx, token)
	if err != nil {
		return err
	}
	if school != nil {
		return s.schoolRepo.MarkVerified(ctx, school.ID)
	}

	return ErrInvalidVerification
}

// VerifyCode consumes the 6-digit code sent to email
func (s *AuthService) VerifyCode(ctx context.Context, email, code string) error {
	email = validation.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return ErrInvalidVerification
	}

	parent, err := s.parentRepo.GetParentByEmail(ctx, email)
	if err != nil {
		return err
	}
	if parent != nil && codeMatches(parent.VerificationCode, code) {
		return s.parentRepo.MarkVerified(ctx, parent.ID)
	}

	school, err := s.schoolRepo.GetSchoolByEmail(ctx, email)
	if err != nil {
		return err
	}
	if school != nil && codeMatches(school.VerificationCode, code) {
		return s.schoolRepo.MarkVerified(ctx, school.ID)
	}

	return ErrInvalidVerification
}

func codeMatches(stored, supplied string) bool {
	return stored != "" && subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

// ResendVerification issues a fresh token and code to an unverified parent.
// Unknown or already verified emails are ignored.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	email = validation.NormalizeEmail(email)

	parent, err := s.parentRepo.GetParentByEmail(ctx, email)
	if err != nil {
		return err
	}
	if parent == nil || parent.Verified {
		return nil
	}

	token := s.issuer.NewToken()
	code, err := s.issuer.NewCode()
	if err != nil {
		return err
	}
	if err := s.parentRepo.SetVerification(ctx, parent.ID, token, code); err != nil {
		return err
	}

	if err := s.mailer.SendVerificationEmail(ctx, parent.Email, parent.Name, token, code); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("email", parent.Email).Msg("Failed to resend verification email")
	}
	return nil
}
