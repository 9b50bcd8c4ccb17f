package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mathwizard/internal/database"
	"mathwizard/internal/models"
)

// SchoolRepository handles database operations for school accounts
type SchoolRepository struct {
	db *database.DB
}

// NewSchoolRepository creates a new school repository
func NewSchoolRepository(db *database.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

const schoolColumns = `id, school_name, admin_email, password, number_of_teachers, verified,
	verification_token, verification_code, created_at, updated_at`

// CreateSchool inserts a new school account
func (r *SchoolRepository) CreateSchool(ctx context.Context, s *models.SchoolAccount) error {
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	query := `INSERT INTO schools (` + schoolColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.SchoolName, s.AdminEmail, s.Password, s.NumberOfTeachers, s.Verified,
		nullString(s.VerificationToken), nullString(s.VerificationCode), s.CreatedAt, s.UpdatedAt,
	)
	if r.db.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create school: %w", err)
	}
	return nil
}

// GetSchoolByEmail retrieves a school by its admin email
func (r *SchoolRepository) GetSchoolByEmail(ctx context.Context, email string) (*models.SchoolAccount, error) {
	return r.getSchool(ctx, "admin_email = ?", email)
}

// GetSchoolByID retrieves a school by ID
func (r *SchoolRepository) GetSchoolByID(ctx context.Context, id string) (*models.SchoolAccount, error) {
	return r.getSchool(ctx, "id = ?", id)
}

// GetSchoolByVerificationToken retrieves the school holding an outstanding verification token
func (r *SchoolRepository) GetSchoolByVerificationToken(ctx context.Context, token string) (*models.SchoolAccount, error) {
	return r.getSchool(ctx, "verification_token = ?", token)
}

func (r *SchoolRepository) getSchool(ctx context.Context, where string, arg any) (*models.SchoolAccount, error) {
	query := `SELECT ` + schoolColumns + ` FROM schools WHERE ` + where
	s, err := scanSchool(r.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get school: %w", err)
	}
	return s, nil
}

// GetAllSchools retrieves every school account
func (r *SchoolRepository) GetAllSchools(ctx context.Context) ([]models.SchoolAccount, error) {
	query := `SELECT ` + schoolColumns + ` FROM schools ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query schools: %w", err)
	}
	defer rows.Close()

	var schools []models.SchoolAccount
	for rows.Next() {
		s, err := scanSchool(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan school: %w", err)
		}
		schools = append(schools, *s)
	}
	return schools, rows.Err()
}

// UpdatePassword overwrites a school's stored password
func (r *SchoolRepository) UpdatePassword(ctx context.Context, id, password string) error {
	query := "UPDATE schools SET password = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, password, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to update school password: %w", err)
	}
	return nil
}

// MarkVerified sets verified and clears both verification secrets
func (r *SchoolRepository) MarkVerified(ctx context.Context, id string) error {
	query := `UPDATE schools SET verified = ?, verification_token = NULL, verification_code = NULL, updated_at = ?
		WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, true, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to mark school verified: %w", err)
	}
	return nil
}

// UpdateSchool applies an admin edit. It reports whether a row matched.
func (r *SchoolRepository) UpdateSchool(ctx context.Context, id, schoolName, adminEmail string, numberOfTeachers int) (bool, error) {
	query := `UPDATE schools SET school_name = ?, admin_email = ?, number_of_teachers = ?, updated_at = ?
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, schoolName, adminEmail, numberOfTeachers, time.Now().UTC(), id)
	if r.db.IsUniqueViolation(err) {
		return false, ErrEmailTaken
	}
	if err != nil {
		return false, fmt.Errorf("failed to update school: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// DeleteSchool removes a school. It reports whether a row was deleted.
func (r *SchoolRepository) DeleteSchool(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM schools WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete school: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// EmailExists reports whether email belongs to a school
func (r *SchoolRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schools WHERE admin_email = ?", email).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check school email: %w", err)
	}
	return n > 0, nil
}

func scanSchool(row rowScanner) (*models.SchoolAccount, error) {
	s := &models.SchoolAccount{}
	var token, code sql.NullString
	if err := row.Scan(
		&s.ID,
		&s.SchoolName,
		&s.AdminEmail,
		&s.Password,
		&s.NumberOfTeachers,
		&s.Verified,
		&token,
		&code,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.VerificationToken = token.String
	s.VerificationCode = code.String
	return s, nil
}
