package service

import "errors"

// Error kinds. Every error a service returns on purpose wraps exactly one of these,
// so callers can branch with errors.Is(err, ErrNotFound). Anything else is internal.
var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("forbidden")
	ErrUnverified         = errors.New("unverified")
	ErrQuotaExceeded      = errors.New("quota exceeded")
	ErrLimitExceeded      = errors.New("limit exceeded")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnavailable        = errors.New("unavailable")
)

// kindError carries a user-facing message and classifies it under a kind
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// ValidationError builds a validation error with the given message
func ValidationError(msg string) error {
	return newError(ErrValidation, msg)
}

var (
	ErrBadLogin              = newError(ErrInvalidCredentials, "Invalid email or password")
	ErrBadChildLogin         = newError(ErrInvalidCredentials, "Invalid username or password")
	ErrEmailNotVerified      = newError(ErrUnverified, "Email not verified")
	ErrAccountNotFound       = newError(ErrNotFound, "No account found for this email")
	ErrEmailTaken            = newError(ErrConflict, "An account with this email already exists")
	ErrInvalidVerification   = newError(ErrValidation, "Invalid or expired verification token or code")
	ErrParentNotFound        = newError(ErrNotFound, "Parent not found")
	ErrChildNotFound         = newError(ErrNotFound, "Child not found")
	ErrUserNotFound          = newError(ErrNotFound, "User not found")
	ErrSchoolNotFound        = newError(ErrNotFound, "School not found")
	ErrUsernameTaken         = newError(ErrConflict, "Username already exists")
	ErrQuotaReached          = newError(ErrQuotaExceeded, "No available child slots")
	ErrNotParentsChild       = newError(ErrForbidden, "Child does not belong to this parent")
	ErrPartnerLimit          = newError(ErrLimitExceeded, "Maximum of 4 managing partners allowed")
	ErrPartnerExists         = newError(ErrConflict, "Partner with this email already exists")
	ErrPartnerPasswordNeeded = newError(ErrValidation, "Password is required for partner")
	ErrMaxChildrenBelowCount = newError(ErrValidation, "Cannot reduce maximum children below current number of children")
	ErrInvalidScore          = newError(ErrValidation, "Score must be between 0 and 100")
	ErrCheckoutDisabled      = newError(ErrUnavailable, "Checkout is not configured")
)
