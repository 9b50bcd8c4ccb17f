package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mathwizard/internal/database"
	"mathwizard/internal/models"
)

// ChildRepository handles database operations for child accounts and parent rosters
type ChildRepository struct {
	db *database.DB
}

// NewChildRepository creates a new child repository
func NewChildRepository(db *database.DB) *ChildRepository {
	return &ChildRepository{db: db}
}

const childColumns = "id, name, username, password, parent_email, year, year_group, created_at"

// CreateChildOnRoster writes the child account and its roster entry in one transaction.
// The parent row is locked first, then username uniqueness and the quota are re-checked.
func (r *ChildRepository) CreateChildOnRoster(ctx context.Context, parentEmail string, child *models.ChildAccount) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		parentID, maxChildren, err := lockParent(ctx, tx, parentEmail)
		if err != nil {
			return err
		}

		taken, err := usernameTaken(ctx, tx, child.Username)
		if err != nil {
			return err
		}
		if taken {
			return ErrUsernameTaken
		}

		var count, lastPosition int
		err = tx.QueryRowContext(ctx,
			"SELECT COUNT(*), COALESCE(MAX(position), 0) FROM parent_children WHERE parent_id = ?", parentID,
		).Scan(&count, &lastPosition)
		if err != nil {
			return fmt.Errorf("failed to count roster: %w", err)
		}
		if count >= maxChildren {
			return ErrQuotaReached
		}

		child.ParentEmail = parentEmail
		child.CreatedAt = time.Now().UTC()
		query := `INSERT INTO children (` + childColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
		_, err = tx.ExecContext(ctx, query,
			child.ID, child.Name, child.Username, child.Password, child.ParentEmail,
			child.Year, child.YearGroup, child.CreatedAt,
		)
		if database.IsUniqueViolation(tx, err) {
			return ErrUsernameTaken
		}
		if err != nil {
			return fmt.Errorf("failed to create child: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO parent_children (parent_id, username, position) VALUES (?, ?, ?)",
			parentID, child.Username, lastPosition+1,
		)
		if database.IsUniqueViolation(tx, err) {
			return ErrUsernameTaken
		}
		if err != nil {
			return fmt.Errorf("failed to add roster entry: %w", err)
		}
		return nil
	})
}

// RemoveChildFromRoster deletes the roster entry and the child account in one transaction
func (r *ChildRepository) RemoveChildFromRoster(ctx context.Context, parentEmail, username string) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		parentID, _, err := lockParent(ctx, tx, parentEmail)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM parent_children WHERE parent_id = ? AND username = ?", parentID, username)
		if err != nil {
			return fmt.Errorf("failed to remove roster entry: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n == 0 {
			return ErrNotOnRoster
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM children WHERE username = ?", username); err != nil {
			return fmt.Errorf("failed to delete child: %w", err)
		}
		return nil
	})
}

// GetChildByUsername retrieves a child with its progress history
func (r *ChildRepository) GetChildByUsername(ctx context.Context, username string) (*models.ChildAccount, error) {
	query := `SELECT ` + childColumns + ` FROM children WHERE username = ?`
	child, err := scanChild(r.db.QueryRowContext(ctx, query, username))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}

	if child.Progress, err = r.getProgress(ctx, child.ID); err != nil {
		return nil, err
	}
	return child, nil
}

// GetAllChildren retrieves every child account without progress
func (r *ChildRepository) GetAllChildren(ctx context.Context) ([]models.ChildAccount, error) {
	query := `SELECT ` + childColumns + ` FROM children ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var children []models.ChildAccount
	for rows.Next() {
		child, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, *child)
	}
	return children, rows.Err()
}

// UpdatePassword overwrites a child's stored password
func (r *ChildRepository) UpdatePassword(ctx context.Context, id, password string) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE children SET password = ? WHERE id = ?", password, id); err != nil {
		return fmt.Errorf("failed to update child password: %w", err)
	}
	return nil
}

// AddProgress appends a progress entry for a child
func (r *ChildRepository) AddProgress(ctx context.Context, childID string, entry models.ProgressEntry) error {
	query := "INSERT INTO child_progress (id, child_id, topic, score, completed_at) VALUES (?, ?, ?, ?, ?)"
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), childID, entry.Topic, entry.Score, entry.CompletedAt); err != nil {
		return fmt.Errorf("failed to record progress: %w", err)
	}
	return nil
}

// GetRosterOwner returns the email of the parent whose roster lists username, or "" if none does
func (r *ChildRepository) GetRosterOwner(ctx context.Context, username string) (string, error) {
	query := `
		SELECT p.email
		FROM parent_children pc
		JOIN parents p ON p.id = pc.parent_id
		WHERE pc.username = ?
	`
	var email string
	err := r.db.QueryRowContext(ctx, query, username).Scan(&email)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get roster owner: %w", err)
	}
	return email, nil
}

// UsernameTaken reports whether username is used by a child account or any roster entry
func (r *ChildRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return usernameTaken(ctx, r.db, username)
}

func usernameTaken(ctx context.Context, q database.DBTX, username string) (bool, error) {
	query := `SELECT
		(SELECT COUNT(*) FROM children WHERE username = ?) +
		(SELECT COUNT(*) FROM parent_children WHERE username = ?)`
	var n int
	if err := q.QueryRowContext(ctx, query, username, username).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return n > 0, nil
}

func (r *ChildRepository) getProgress(ctx context.Context, childID string) ([]models.ProgressEntry, error) {
	query := "SELECT topic, score, completed_at FROM child_progress WHERE child_id = ? ORDER BY completed_at ASC"
	rows, err := r.db.QueryContext(ctx, query, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	progress := []models.ProgressEntry{}
	for rows.Next() {
		var e models.ProgressEntry
		if err := rows.Scan(&e.Topic, &e.Score, &e.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		progress = append(progress, e)
	}
	return progress, rows.Err()
}

func scanChild(row rowScanner) (*models.ChildAccount, error) {
	c := &models.ChildAccount{}
	if err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Username,
		&c.Password,
		&c.ParentEmail,
		&c.Year,
		&c.YearGroup,
		&c.CreatedAt,
	); err != nil {
		return nil, err
	}
	return c, nil
}
