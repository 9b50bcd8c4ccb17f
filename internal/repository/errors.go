package repository

import "errors"

// Errors returned by write paths that enforce account invariants inside a transaction
var (
	ErrParentNotFound        = errors.New("parent not found")
	ErrEmailTaken            = errors.New("email already registered")
	ErrUsernameTaken         = errors.New("username already taken")
	ErrQuotaReached          = errors.New("child quota reached")
	ErrNotOnRoster           = errors.New("child not on parent roster")
	ErrPartnerLimit          = errors.New("partner limit reached")
	ErrPartnerExists         = errors.New("partner already exists")
	ErrMaxChildrenBelowCount = errors.New("max children below current child count")
)
