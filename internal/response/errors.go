package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrUnknownMajor   ErrCode = "UNKNOWN_MAJOR"
	ErrInvalidFormat  ErrCode = "INVALID_FORMAT"

	// ─── Share links ───────────────────────────────────────────────────
	ErrInvalidShareToken ErrCode = "INVALID_SHARE_TOKEN"

	// ─── Rendering ─────────────────────────────────────────────────────
	ErrRenderFailed ErrCode = "RENDER_FAILED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrUnknownMajor:
		return "The selected major does not exist in the dataset."
	case ErrInvalidFormat:
		return "Unsupported chart format."

	case ErrInvalidShareToken:
		return "The share link is invalid or has expired."

	case ErrRenderFailed:
		return "The chart could not be rendered."

	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	case ErrNotFound:
		return "Resource not found."
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
