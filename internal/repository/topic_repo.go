package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"mathwizard/internal/database"
	"mathwizard/internal/models"
)

// TopicRepository handles database operations for curriculum topics
type TopicRepository struct {
	db *database.DB
}

// NewTopicRepository creates a new topic repository
func NewTopicRepository(db *database.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

// GetTopicsByYear retrieves all topics for a curriculum year
func (r *TopicRepository) GetTopicsByYear(ctx context.Context, year string) ([]models.Topic, error) {
	query := `
		SELECT id, year, section, level, title, article, questions, created_at
		FROM topics
		WHERE year = ?
		ORDER BY section ASC, level ASC, title ASC
	`
	rows, err := r.db.QueryContext(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query topics: %w", err)
	}
	defer rows.Close()

	var topics []models.Topic
	for rows.Next() {
		var t models.Topic
		var level, questions string
		if err := rows.Scan(&t.ID, &t.Year, &t.Section, &level, &t.Title, &t.Article, &questions, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		t.Level = models.Level(level)
		if err := json.Unmarshal([]byte(questions), &t.Questions); err != nil {
			return nil, fmt.Errorf("failed to decode questions for topic %s: %w", t.ID, err)
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// UpsertTopic inserts a topic or replaces the article and questions of the
// topic with the same year, section, level and title. It reports whether a row was inserted.
func (r *TopicRepository) UpsertTopic(ctx context.Context, t *models.Topic) (bool, error) {
	if t.Questions == nil {
		t.Questions = []models.Question{}
	}
	questions, err := json.Marshal(t.Questions)
	if err != nil {
		return false, fmt.Errorf("failed to encode questions: %w", err)
	}

	var inserted bool
	err = r.db.WithTx(ctx, func(tx *database.Tx) error {
		update := `UPDATE topics SET article = ?, questions = ?
			WHERE year = ? AND section = ? AND level = ? AND title = ?`
		result, err := tx.ExecContext(ctx, update, t.Article, string(questions), t.Year, t.Section, string(t.Level), t.Title)
		if err != nil {
			return fmt.Errorf("failed to update topic: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n > 0 {
			return nil
		}

		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		t.CreatedAt = time.Now().UTC()
		insert := `INSERT INTO topics (id, year, section, level, title, article, questions, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, insert,
			t.ID, t.Year, t.Section, string(t.Level), t.Title, t.Article, string(questions), t.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert topic: %w", err)
		}
		inserted = true
		return nil
	})
	return inserted, err
}

// DeleteTopicsByYear removes every topic for a year and returns how many were deleted
func (r *TopicRepository) DeleteTopicsByYear(ctx context.Context, year string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM topics WHERE year = ?", year)
	if err != nil {
		return 0, fmt.Errorf("failed to delete topics: %w", err)
	}
	return result.RowsAffected()
}
