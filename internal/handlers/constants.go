package handlers

const (
	ErrInvalidRequestBody  = "Invalid request body"
	ErrUnauthorized        = "Authentication required"
	ErrForbidden           = "You do not have permission to perform this action"
	ErrInternalServerError = "Internal server error"
	ErrTooManyRequests     = "Too many requests, please try again later"

	maxBodyBytes = 1 << 20
)
