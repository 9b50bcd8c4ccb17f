package models

import "time"

// SchoolAccount represents a school administrator account
type SchoolAccount struct {
	ID                string
	SchoolName        string
	AdminEmail        string
	Password          string
	NumberOfTeachers  int
	Verified          bool
	VerificationToken string
	VerificationCode  string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
