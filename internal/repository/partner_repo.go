package repository

import (
	"context"
	"fmt"
	"time"

	"mathwizard/internal/database"
	"mathwizard/internal/models"
)

// PartnerRepository handles database operations for parent co-managers
type PartnerRepository struct {
	db *database.DB
}

// NewPartnerRepository creates a new partner repository
func NewPartnerRepository(db *database.DB) *PartnerRepository {
	return &PartnerRepository{db: db}
}

// AddPartner appends a partner to the parent identified by parentEmail.
// The parent row is locked so the partner limit holds under concurrent adds.
func (r *PartnerRepository) AddPartner(ctx context.Context, parentEmail string, partner *models.PartnerEntry) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		parentID, _, err := lockParent(ctx, tx, parentEmail)
		if err != nil {
			return err
		}

		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM parent_partners WHERE parent_id = ?", parentID).Scan(&count); err != nil {
			return fmt.Errorf("failed to count partners: %w", err)
		}
		if count >= models.MaxPartners {
			return ErrPartnerLimit
		}

		partner.AddedAt = time.Now().UTC()
		query := "INSERT INTO parent_partners (id, parent_id, name, email, password, added_at) VALUES (?, ?, ?, ?, ?, ?)"
		_, err = tx.ExecContext(ctx, query, partner.ID, parentID, partner.Name, partner.Email, partner.Password, partner.AddedAt)
		if database.IsUniqueViolation(tx, err) {
			return ErrPartnerExists
		}
		if err != nil {
			return fmt.Errorf("failed to add partner: %w", err)
		}
		return nil
	})
}

// RemovePartner deletes a partner by email. Removing an absent partner is not an error.
func (r *PartnerRepository) RemovePartner(ctx context.Context, parentID, email string) error {
	query := "DELETE FROM parent_partners WHERE parent_id = ? AND email = ?"
	if _, err := r.db.ExecContext(ctx, query, parentID, email); err != nil {
		return fmt.Errorf("failed to remove partner: %w", err)
	}
	return nil
}

// GetPartners lists a parent's partners in the order they were added
func (r *PartnerRepository) GetPartners(ctx context.Context, parentID string) ([]models.PartnerEntry, error) {
	return listPartners(ctx, r.db, parentID)
}

func listPartners(ctx context.Context, q database.DBTX, parentID string) ([]models.PartnerEntry, error) {
	query := `
		SELECT id, name, email, password, added_at
		FROM parent_partners
		WHERE parent_id = ?
		ORDER BY added_at ASC, email ASC
	`
	rows, err := q.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query partners: %w", err)
	}
	defer rows.Close()

	partners := []models.PartnerEntry{}
	for rows.Next() {
		var p models.PartnerEntry
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Password, &p.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan partner: %w", err)
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}
