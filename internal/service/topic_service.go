package service

import (
	"context"
	"fmt"
	"strings"

	"mathwizard/internal/logging"
	"mathwizard/internal/models"
	"mathwizard/internal/repository"
)

// TopicService serves curriculum topics and loads them from seed files
type TopicService struct {
	topicRepo *repository.TopicRepository
}

// NewTopicService creates a new topic service
func NewTopicService(topicRepo *repository.TopicRepository) *TopicService {
	return &TopicService{topicRepo: topicRepo}
}

// TopicsBySection groups a year's topics as section -> level -> topics
type TopicsBySection map[string]map[models.Level][]models.Topic

// GetTopics returns the topics for a year grouped by section and level.
// An unknown year yields an empty grouping.
func (s *TopicService) GetTopics(ctx context.Context, year string) (TopicsBySection, error) {
	year = models.NormalizeYear(year)
	if year == "" {
		return nil, ValidationError("year is required")
	}

	topics, err := s.topicRepo.GetTopicsByYear(ctx, year)
	if err != nil {
		return nil, err
	}

	grouped := make(TopicsBySection)
	for _, t := range topics {
		levels, ok := grouped[t.Section]
		if !ok {
			levels = make(map[models.Level][]models.Topic)
			grouped[t.Section] = levels
		}
		levels[t.Level] = append(levels[t.Level], t)
	}
	return grouped, nil
}

// SeedResult summarizes a seeding run
type SeedResult struct {
	Inserted int
	Updated  int
	Deleted  int64
}

// Seed validates and upserts topics. With replace, each year present in the
// input has its existing topics removed first.
func (s *TopicService) Seed(ctx context.Context, topics []models.Topic, replace bool) (SeedResult, error) {
	var result SeedResult

	for i := range topics {
		if err := validateTopic(&topics[i]); err != nil {
			return result, fmt.Errorf("topic %d (%q): %w", i, topics[i].Title, err)
		}
	}

	if replace {
		seen := make(map[string]bool)
		for _, t := range topics {
			if seen[t.Year] {
				continue
			}
			seen[t.Year] = true
			n, err := s.topicRepo.DeleteTopicsByYear(ctx, t.Year)
			if err != nil {
				return result, err
			}
			result.Deleted += n
		}
	}

	for i := range topics {
		inserted, err := s.topicRepo.UpsertTopic(ctx, &topics[i])
		if err != nil {
			return result, err
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}

	logging.Info().
		Int("inserted", result.Inserted).
		Int("updated", result.Updated).
		Int64("deleted", result.Deleted).
		Msg("Topics seeded")
	return result, nil
}

func validateTopic(t *models.Topic) error {
	t.Year = models.NormalizeYear(t.Year)
	t.Section = strings.TrimSpace(t.Section)
	t.Title = strings.TrimSpace(t.Title)
	t.Level = models.Level(strings.ToLower(strings.TrimSpace(string(t.Level))))

	switch {
	case t.Year == "":
		return ValidationError("year is required")
	case t.Section == "":
		return ValidationError("section is required")
	case t.Title == "":
		return ValidationError("title is required")
	case !t.Level.Valid():
		return ValidationError(fmt.Sprintf("invalid level %q", t.Level))
	}

	for j, q := range t.Questions {
		if strings.TrimSpace(q.Question) == "" {
			return ValidationError(fmt.Sprintf("question %d has no text", j))
		}
		if !q.Type.Valid() {
			return ValidationError(fmt.Sprintf("question %d has invalid type %q", j, q.Type))
		}
		if q.Type == models.QuestionMultipleChoice && len(q.Options) < 2 {
			return ValidationError(fmt.Sprintf("question %d needs at least two options", j))
		}
	}
	return nil
}
