// internal/errors/errors.go
package errors

import "strings"

// Kind classifies a failure for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindNotFound
	KindConflict
	KindQuota
	KindRateLimit
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindQuota:
		return "quota"
	case KindRateLimit:
		return "rate_limit"
	default:
		return "internal"
	}
}

// Error is the single error type returned by the service layer.
// Two errors are equal under errors.Is when their codes match, so callers
// compare against the sentinels below regardless of message or fields.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Fields lists offending input fields for validation failures.
	Fields []string
	err    error
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return e.Message + " (" + strings.Join(e.Fields, ", ") + ")"
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithFields returns a copy carrying the offending field names.
func (e *Error) WithFields(fields ...string) *Error {
	cp := *e
	cp.Fields = append([]string(nil), fields...)
	return &cp
}

// WithMessage returns a copy with a more specific message.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

// Wrap returns a copy that keeps cause reachable via errors.Unwrap.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.err = cause
	return &cp
}

func newErr(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	ErrValidation         = newErr(KindValidation, "VALIDATION_ERROR", "invalid input")
	ErrMissingFields      = newErr(KindValidation, "MISSING_FIELDS", "please fill in the required fields")
	ErrInvalidEmailFormat = newErr(KindValidation, "INVALID_EMAIL_FORMAT", "please enter a valid email address")
	ErrAgeOutOfRange      = newErr(KindValidation, "AGE_OUT_OF_RANGE", "age must be between 18 and 100")
	ErrInvalidDirection   = newErr(KindValidation, "INVALID_DIRECTION", "direction must be like or dislike")
	ErrSelfSwipe          = newErr(KindValidation, "SELF_SWIPE", "cannot swipe on yourself")
	ErrInvalidPlan        = newErr(KindValidation, "INVALID_PLAN", "invalid plan")
	ErrMissingMethod      = newErr(KindValidation, "MISSING_METHOD", "payment method is required")
	ErrInvalidMethod      = newErr(KindValidation, "INVALID_METHOD", "unsupported payment method")

	ErrNoSuchAccount   = newErr(KindAuth, "NO_SUCH_ACCOUNT", "no account found with this email address")
	ErrWrongCredential = newErr(KindAuth, "WRONG_CREDENTIAL", "incorrect password")
	ErrInvalidToken    = newErr(KindAuth, "INVALID_TOKEN", "invalid or missing session token")
	ErrSessionExpired  = newErr(KindAuth, "SESSION_EXPIRED", "session expired, please sign in again")

	ErrUserNotFound    = newErr(KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrSenderNotFound  = newErr(KindNotFound, "SENDER_NOT_FOUND", "sender not found")
	ErrPaymentNotFound = newErr(KindNotFound, "PAYMENT_NOT_FOUND", "payment not found")
	ErrNotFound        = newErr(KindNotFound, "NOT_FOUND", "record not found")

	ErrEmailAlreadyExists = newErr(KindConflict, "EMAIL_ALREADY_EXISTS", "an account with this email already exists")
	ErrPaymentFailed      = newErr(KindConflict, "PAYMENT_FAILED", "payment has already failed")
	ErrConflict           = newErr(KindConflict, "CONFLICT", "record already exists")

	ErrQuotaExceeded = newErr(KindQuota, "QUOTA_EXCEEDED", "message limit reached, upgrade to send more messages")
	ErrPlanRequired  = newErr(KindQuota, "PLAN_UPGRADE_REQUIRED", "this feature requires the pro plan")

	ErrRateLimited = newErr(KindRateLimit, "RATE_LIMITED", "too many requests, slow down")

	ErrInternal = newErr(KindInternal, "INTERNAL_ERROR", "internal server error")
)
