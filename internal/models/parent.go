package models

import "time"

// MaxPartners is the most co-managers a parent account may hold
const MaxPartners = 4

// ParentAccount represents a parent and the roster of children they manage
type ParentAccount struct {
	ID                string
	Name              string
	Email             string
	Password          string
	Children          []string
	MaxChildren       int
	Verified          bool
	VerificationToken string
	VerificationCode  string
	Partners          []PartnerEntry
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AvailableSlots returns how many more children the parent may add
func (p *ParentAccount) AvailableSlots() int {
	return p.MaxChildren - len(p.Children)
}

// HasChild reports whether username is on the parent's roster
func (p *ParentAccount) HasChild(username string) bool {
	for _, c := range p.Children {
		if c == username {
			return true
		}
	}
	return false
}

// HasPartner reports whether a partner with email already exists
func (p *ParentAccount) HasPartner(email string) bool {
	for _, partner := range p.Partners {
		if partner.Email == email {
			return true
		}
	}
	return false
}

// PartnerEntry is a co-manager attached to a parent account
type PartnerEntry struct {
	ID       string    `json:"-"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"-"`
	AddedAt  time.Time `json:"addedAt"`
}
