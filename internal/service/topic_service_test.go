package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mathwizard/internal/models"
)

func sampleTopics() []models.Topic {
	return []models.Topic{
		{
			Year: "Year 5", Section: "Number", Level: "Growing", Title: "Place value",
			Article: "Digits have a value based on their position.",
			Questions: []models.Question{
				{Question: "What is the value of 7 in 4,372?", Type: models.QuestionMultipleChoice, Options: []string{"7", "70", "700"}, Answer: "70"},
			},
		},
		{
			Year: "year5", Section: "Number", Level: models.LevelExcelling, Title: "Negative numbers",
			Questions: []models.Question{
				{Question: "-3 + 5 = ?", Type: models.QuestionShortAnswer, Answer: "2"},
			},
		},
		{
			Year: "year5", Section: "Geometry", Level: models.LevelGrowing, Title: "Angles",
			Questions: []models.Question{
				{Question: "A right angle is 90 degrees", Type: models.QuestionTrueFalse, Answer: "true"},
			},
		},
	}
}

func TestTopicSeedAndGrouping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.topic.Seed(ctx, sampleTopics(), false)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Inserted)
	assert.Equal(t, 0, result.Updated)

	grouped, err := env.topic.GetTopics(ctx, "Year 5")
	require.NoError(t, err)
	require.Len(t, grouped, 2)
	assert.Len(t, grouped["Number"][models.LevelGrowing], 1)
	assert.Len(t, grouped["Number"][models.LevelExcelling], 1)
	assert.Equal(t, "Angles", grouped["Geometry"][models.LevelGrowing][0].Title)
	require.Len(t, grouped["Number"][models.LevelGrowing][0].Questions, 1)
	assert.Equal(t, "70", grouped["Number"][models.LevelGrowing][0].Questions[0].Answer)

	result, err = env.topic.Seed(ctx, sampleTopics(), false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 3, result.Updated)

	result, err = env.topic.Seed(ctx, sampleTopics()[:1], true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Deleted)
	assert.Equal(t, 1, result.Inserted)

	empty, err := env.topic.GetTopics(ctx, "year6")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTopicSeedRejectsInvalid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		topic models.Topic
	}{
		{name: "missing year", topic: models.Topic{Section: "Number", Level: models.LevelGrowing, Title: "T"}},
		{name: "bad level", topic: models.Topic{Year: "year5", Section: "Number", Level: "expert", Title: "T"}},
		{name: "bad question type", topic: models.Topic{
			Year: "year5", Section: "Number", Level: models.LevelGrowing, Title: "T",
			Questions: []models.Question{{Question: "Q", Type: "essay"}},
		}},
		{name: "multiple choice without options", topic: models.Topic{
			Year: "year5", Section: "Number", Level: models.LevelGrowing, Title: "T",
			Questions: []models.Question{{Question: "Q", Type: models.QuestionMultipleChoice, Options: []string{"a"}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.topic.Seed(ctx, []models.Topic{tt.topic}, false)
			requireKind(t, err, ErrValidation)
		})
	}

	grouped, err := env.topic.GetTopics(ctx, "year5")
	require.NoError(t, err)
	assert.Empty(t, grouped)
}
