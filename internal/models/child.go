package models

import (
	"strings"
	"time"
)

// DefaultYearGroup is used for unknown year labels and legacy roster logins
const DefaultYearGroup = 5

// DefaultYear is the label stored when no year is supplied
const DefaultYear = "year5"

// ChildAccount represents a child learner
type ChildAccount struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Username    string          `json:"username"`
	Password    string          `json:"-"`
	ParentEmail string          `json:"parentEmail"`
	Year        string          `json:"year"`
	YearGroup   int             `json:"yearGroup"`
	Progress    []ProgressEntry `json:"progress"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ProgressEntry records a score against a topic
type ProgressEntry struct {
	Topic       string    `json:"topic"`
	Score       int       `json:"score"`
	CompletedAt time.Time `json:"completedAt"`
}

var yearGroups = map[string]int{
	"reception": 0,
	"year1":     1,
	"year2":     2,
	"year3":     3,
	"year4":     4,
	"year5":     5,
	"year6":     6,
	"year7":     7,
	"year8":     8,
	"year9":     9,
	"year10":    10,
	"year11":    11,
}

// YearGroupFor maps a curriculum year label to its numeric group.
// Unknown labels map to DefaultYearGroup.
func YearGroupFor(year string) int {
	if group, ok := yearGroups[NormalizeYear(year)]; ok {
		return group
	}
	return DefaultYearGroup
}

// NormalizeYear lowercases a year label and strips spaces ("Year 5" -> "year5")
func NormalizeYear(year string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(year)), " ", "")
}
