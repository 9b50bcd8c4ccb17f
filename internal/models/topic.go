package models

import "time"

// Level is the difficulty band of a topic
type Level string

const (
	LevelGrowing   Level = "growing"
	LevelExceeding Level = "exceeding"
	LevelExcelling Level = "excelling"
)

// Valid reports whether l is a known level
func (l Level) Valid() bool {
	switch l {
	case LevelGrowing, LevelExceeding, LevelExcelling:
		return true
	}
	return false
}

// QuestionType describes how a question is answered
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionShortAnswer    QuestionType = "short-answer"
	QuestionTrueFalse      QuestionType = "true-false"
)

// Valid reports whether q is a known question type
func (q QuestionType) Valid() bool {
	switch q {
	case QuestionMultipleChoice, QuestionShortAnswer, QuestionTrueFalse:
		return true
	}
	return false
}

// Topic is a unit of curriculum content for one year, section and level
type Topic struct {
	ID        string     `json:"id" koanf:"-"`
	Year      string     `json:"year" koanf:"year"`
	Section   string     `json:"section" koanf:"section"`
	Level     Level      `json:"level" koanf:"level"`
	Title     string     `json:"title" koanf:"title"`
	Article   string     `json:"article" koanf:"article"`
	Questions []Question `json:"questions" koanf:"questions"`
	CreatedAt time.Time  `json:"createdAt" koanf:"-"`
}

// Question is a single practice question within a topic
type Question struct {
	Question string       `json:"question" koanf:"question"`
	Type     QuestionType `json:"type" koanf:"type"`
	Options  []string     `json:"options,omitempty" koanf:"options"`
	Answer   string       `json:"answer" koanf:"answer"`
}
