package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mathwizard/internal/database"
	"mathwizard/internal/models"
)

// ParentRepository handles database operations for parent accounts
type ParentRepository struct {
	db *database.DB
}

// NewParentRepository creates a new parent repository
func NewParentRepository(db *database.DB) *ParentRepository {
	return &ParentRepository{db: db}
}

const parentColumns = `id, name, email, password, max_children, verified,
	verification_token, verification_code, created_at, updated_at`

// CreateParent inserts a new parent account
func (r *ParentRepository) CreateParent(ctx context.Context, p *models.ParentAccount) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `INSERT INTO parents (` + parentColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Email, p.Password, p.MaxChildren, p.Verified,
		nullString(p.VerificationToken), nullString(p.VerificationCode), p.CreatedAt, p.UpdatedAt,
	)
	if r.db.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create parent: %w", err)
	}
	return nil
}

// GetParentByEmail retrieves a parent with roster and partners
func (r *ParentRepository) GetParentByEmail(ctx context.Context, email string) (*models.ParentAccount, error) {
	return r.getParent(ctx, "email = ?", email)
}

// GetParentByID retrieves a parent with roster and partners
func (r *ParentRepository) GetParentByID(ctx context.Context, id string) (*models.ParentAccount, error) {
	return r.getParent(ctx, "id = ?", id)
}

// GetParentByVerificationToken retrieves the parent holding an outstanding verification token
func (r *ParentRepository) GetParentByVerificationToken(ctx context.Context, token string) (*models.ParentAccount, error) {
	return r.getParent(ctx, "verification_token = ?", token)
}

func (r *ParentRepository) getParent(ctx context.Context, where string, arg any) (*models.ParentAccount, error) {
	query := `SELECT ` + parentColumns + ` FROM parents WHERE ` + where
	p, err := scanParent(r.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get parent: %w", err)
	}

	if p.Children, err = listRoster(ctx, r.db, p.ID); err != nil {
		return nil, err
	}
	if p.Partners, err = listPartners(ctx, r.db, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

// GetAllParents retrieves every parent with its roster. Partners are not loaded.
func (r *ParentRepository) GetAllParents(ctx context.Context) ([]models.ParentAccount, error) {
	query := `SELECT ` + parentColumns + ` FROM parents ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query parents: %w", err)
	}

	var parents []models.ParentAccount
	for rows.Next() {
		p, err := scanParent(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan parent: %w", err)
		}
		parents = append(parents, *p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate parents: %w", err)
	}
	rows.Close()

	rosters, err := allRosters(ctx, r.db)
	if err != nil {
		return nil, err
	}
	for i := range parents {
		parents[i].Children = rosters[parents[i].ID]
		if parents[i].Children == nil {
			parents[i].Children = []string{}
		}
	}
	return parents, nil
}

// UpdatePassword overwrites a parent's stored password
func (r *ParentRepository) UpdatePassword(ctx context.Context, id, password string) error {
	query := "UPDATE parents SET password = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, password, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to update parent password: %w", err)
	}
	return nil
}

// SetVerification stores a fresh verification token and code
func (r *ParentRepository) SetVerification(ctx context.Context, id, token, code string) error {
	query := "UPDATE parents SET verification_token = ?, verification_code = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, token, code, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to set parent verification: %w", err)
	}
	return nil
}

// MarkVerified sets verified and clears both verification secrets
func (r *ParentRepository) MarkVerified(ctx context.Context, id string) error {
	query := `UPDATE parents SET verified = ?, verification_token = NULL, verification_code = NULL, updated_at = ?
		WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, true, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to mark parent verified: %w", err)
	}
	return nil
}

// UpdateName changes a parent's display name. It reports whether a row matched.
func (r *ParentRepository) UpdateName(ctx context.Context, email, name string) (bool, error) {
	query := "UPDATE parents SET name = ?, updated_at = ? WHERE email = ?"
	result, err := r.db.ExecContext(ctx, query, name, time.Now().UTC(), email)
	if err != nil {
		return false, fmt.Errorf("failed to update parent name: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// UpdateParent applies an admin edit. The quota check and the write are a single
// conditional UPDATE so a concurrent roster add cannot slip under the new limit.
// Children that reference the old email are repointed in the same transaction.
func (r *ParentRepository) UpdateParent(ctx context.Context, id, name, email string, maxChildren int) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		var oldEmail string
		err := tx.QueryRowContext(ctx, "SELECT email FROM parents WHERE id = ?", id).Scan(&oldEmail)
		if err == sql.ErrNoRows {
			return ErrParentNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get parent: %w", err)
		}

		query := `UPDATE parents SET name = ?, email = ?, max_children = ?, updated_at = ?
			WHERE id = ? AND (SELECT COUNT(*) FROM parent_children WHERE parent_id = ?) <= ?`
		result, err := tx.ExecContext(ctx, query, name, email, maxChildren, time.Now().UTC(), id, id, maxChildren)
		if database.IsUniqueViolation(tx, err) {
			return ErrEmailTaken
		}
		if err != nil {
			return fmt.Errorf("failed to update parent: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n == 0 {
			return ErrMaxChildrenBelowCount
		}

		if oldEmail != email {
			if _, err := tx.ExecContext(ctx, "UPDATE children SET parent_email = ? WHERE parent_email = ?", email, oldEmail); err != nil {
				return fmt.Errorf("failed to repoint children: %w", err)
			}
		}
		return nil
	})
}

// DeleteParent removes a parent with its roster and partner rows.
// Child accounts are left in place. It reports whether a row was deleted.
func (r *ParentRepository) DeleteParent(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM parent_children WHERE parent_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete roster: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM parent_partners WHERE parent_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete partners: %w", err)
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM parents WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete parent: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		deleted = n > 0
		return nil
	})
	return deleted, err
}

// EmailExists reports whether email belongs to a parent
func (r *ParentRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM parents WHERE email = ?", email).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check parent email: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParent(row rowScanner) (*models.ParentAccount, error) {
	p := &models.ParentAccount{}
	var token, code sql.NullString
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Password,
		&p.MaxChildren,
		&p.Verified,
		&token,
		&code,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.VerificationToken = token.String
	p.VerificationCode = code.String
	return p, nil
}

// lockParent takes a write lock on the parent row for the rest of the transaction
// and returns its id and quota.
func lockParent(ctx context.Context, tx *database.Tx, email string) (string, int, error) {
	result, err := tx.ExecContext(ctx, "UPDATE parents SET updated_at = ? WHERE email = ?", time.Now().UTC(), email)
	if err != nil {
		return "", 0, fmt.Errorf("failed to lock parent: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return "", 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return "", 0, ErrParentNotFound
	}

	var id string
	var maxChildren int
	err = tx.QueryRowContext(ctx, "SELECT id, max_children FROM parents WHERE email = ?", email).Scan(&id, &maxChildren)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read parent: %w", err)
	}
	return id, maxChildren, nil
}

func listRoster(ctx context.Context, q database.DBTX, parentID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT username FROM parent_children WHERE parent_id = ? ORDER BY position ASC", parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster: %w", err)
	}
	defer rows.Close()

	children := []string{}
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("failed to scan roster entry: %w", err)
		}
		children = append(children, username)
	}
	return children, rows.Err()
}

func allRosters(ctx context.Context, q database.DBTX) (map[string][]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT parent_id, username FROM parent_children ORDER BY parent_id, position ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query rosters: %w", err)
	}
	defer rows.Close()

	rosters := make(map[string][]string)
	for rows.Next() {
		var parentID, username string
		if err := rows.Scan(&parentID, &username); err != nil {
			return nil, fmt.Errorf("failed to scan roster entry: %w", err)
		}
		rosters[parentID] = append(rosters[parentID], username)
	}
	return rosters, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
