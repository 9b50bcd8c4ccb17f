package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"

	"mathwizard/internal/models"
	"mathwizard/internal/repository"
)

const backupVersion = "1"

// BackupData represents the complete export structure
type BackupData struct {
	Version      string                  `json:"version"`
	ExportedAt   time.Time               `json:"exported_at"`
	DatabaseType string                  `json:"database_type"`
	Parents      []ParentBackup          `json:"parents"`
	Schools      []SchoolBackup          `json:"schools"`
	Children     []ChildBackup           `json:"children"`
	SystemLogs   []models.SystemLogEntry `json:"system_logs"`
}

// ParentBackup represents a parent record for backup
type ParentBackup struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Password    string          `json:"password"`
	MaxChildren int             `json:"max_children"`
	Verified    bool            `json:"verified"`
	Children    []string        `json:"children"`
	Partners    []PartnerBackup `json:"partners"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PartnerBackup represents a partner record for backup
type PartnerBackup struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	AddedAt  time.Time `json:"added_at"`
}

// SchoolBackup represents a school record for backup
type SchoolBackup struct {
	ID               string    `json:"id"`
	SchoolName       string    `json:"school_name"`
	AdminEmail       string    `json:"admin_email"`
	Password         string    `json:"password"`
	NumberOfTeachers int       `json:"number_of_teachers"`
	Verified         bool      `json:"verified"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ChildBackup represents a child record for backup
type ChildBackup struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Username    string    `json:"username"`
	Password    string    `json:"password"`
	ParentEmail string    `json:"parent_email"`
	Year        string    `json:"year"`
	YearGroup   int       `json:"year_group"`
	CreatedAt   time.Time `json:"created_at"`
}

// BackupService exports accounts and the audit trail as JSON
type BackupService struct {
	parentRepo   *repository.ParentRepository
	partnerRepo  *repository.PartnerRepository
	schoolRepo   *repository.SchoolRepository
	childRepo    *repository.ChildRepository
	logRepo      *repository.SystemLogRepository
	databaseType string
}

// NewBackupService creates a new backup service
func NewBackupService(
	parentRepo *repository.ParentRepository,
	partnerRepo *repository.PartnerRepository,
	schoolRepo *repository.SchoolRepository,
	childRepo *repository.ChildRepository,
	logRepo *repository.SystemLogRepository,
	databaseType string,
) *BackupService {
	return &BackupService{
		parentRepo:   parentRepo,
		partnerRepo:  partnerRepo,
		schoolRepo:   schoolRepo,
		childRepo:    childRepo,
		logRepo:      logRepo,
		databaseType: databaseType,
	}
}

// Export writes a backup to outputPath
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(ctx, file); err != nil {
		return err
	}
	return file.Sync()
}

// ExportToWriter writes a backup as indented JSON
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	backup, err := s.collect(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	return nil
}

func (s *BackupService) collect(ctx context.Context) (*BackupData, error) {
	backup := &BackupData{
		Version:      backupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.databaseType,
		Parents:      []ParentBackup{},
		Schools:      []SchoolBackup{},
		Children:     []ChildBackup{},
	}

	if err := s.exportParents(ctx, backup); err != nil {
		return nil, err
	}
	if err := s.exportSchools(ctx, backup); err != nil {
		return nil, err
	}
	if err := s.exportChildren(ctx, backup); err != nil {
		return nil, err
	}

	logs, err := s.logRepo.GetAllEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export system logs: %w", err)
	}
	backup.SystemLogs = logs
	return backup, nil
}

func (s *BackupService) exportParents(ctx context.Context, backup *BackupData) error {
	parents, err := s.parentRepo.GetAllParents(ctx)
	if err != nil {
		return fmt.Errorf("failed to export parents: %w", err)
	}

	for _, p := range parents {
		partners, err := s.partnerRepo.GetPartners(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("failed to export partners of %s: %w", p.Email, err)
		}
		pb := ParentBackup{
			ID:          p.ID,
			Name:        p.Name,
			Email:       p.Email,
			Password:    p.Password,
			MaxChildren: p.MaxChildren,
			Verified:    p.Verified,
			Children:    p.Children,
			Partners:    make([]PartnerBackup, 0, len(partners)),
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		}
		for _, partner := range partners {
			pb.Partners = append(pb.Partners, PartnerBackup{
				Name:     partner.Name,
				Email:    partner.Email,
				Password: partner.Password,
				AddedAt:  partner.AddedAt,
			})
		}
		backup.Parents = append(backup.Parents, pb)
	}
	return nil
}

func (s *BackupService) exportSchools(ctx context.Context, backup *BackupData) error {
	schools, err := s.schoolRepo.GetAllSchools(ctx)
	if err != nil {
		return fmt.Errorf("failed to export schools: %w", err)
	}
	for _, sc := range schools {
		backup.Schools = append(backup.Schools, SchoolBackup{
			ID:               sc.ID,
			SchoolName:       sc.SchoolName,
			AdminEmail:       sc.AdminEmail,
			Password:         sc.Password,
			NumberOfTeachers: sc.NumberOfTeachers,
			Verified:         sc.Verified,
			CreatedAt:        sc.CreatedAt,
			UpdatedAt:        sc.UpdatedAt,
		})
	}
	return nil
}

func (s *BackupService) exportChildren(ctx context.Context, backup *BackupData) error {
	children, err := s.childRepo.GetAllChildren(ctx)
	if err != nil {
		return fmt.Errorf("failed to export children: %w", err)
	}
	for _, c := range children {
		backup.Children = append(backup.Children, ChildBackup{
			ID:          c.ID,
			Name:        c.Name,
			Username:    c.Username,
			Password:    c.Password,
			ParentEmail: c.ParentEmail,
			Year:        c.Year,
			YearGroup:   c.YearGroup,
			CreatedAt:   c.CreatedAt,
		})
	}
	return nil
}
