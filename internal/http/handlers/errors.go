// Package handlers defines the stable error codes carried in the failure
// envelope. Codes are SCREAMING_SNAKE_CASE and clients are expected to
// branch on them rather than on the message text.
package handlers

const (
	// CodeValidationError: malformed client input (bad identifier shape).
	CodeValidationError = "VALIDATION_ERROR"

	// CodeRateLimitExceeded: the daily urge quota is exhausted. A policy
	// denial, not a fault.
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"

	// CodeDatabaseError: connectivity or transaction failure in the
	// persistence layer. The transaction guarantees no partial mutation.
	CodeDatabaseError = "DATABASE_ERROR"

	// CodeInternalError: unexpected fault caught at the handler boundary.
	CodeInternalError = "INTERNAL_ERROR"

	// CodeNotFound / CodeMethodNotAllowed: router-level fallbacks.
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)
