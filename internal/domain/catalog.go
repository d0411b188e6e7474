package domain

// Stable machine codes. Clients and tests match on these.
const (
	CodeInvalidJSON           = "invalid_json"
	CodeMissingField          = "missing_field"
	CodeInvalidField          = "invalid_field"
	CodeWeakPassword          = "weak_password"
	CodeInvalidOrExpiredToken = "invalid_or_expired_token"

	CodeInvalidCredentials = "invalid_credentials"
	CodeSessionMissing     = "session_missing"

	CodeForbidden        = "forbidden"
	CodeEmailNotVerified = "email_not_verified"
	CodeCSRFRejected     = "csrf_rejected"

	CodeMemberNotFound      = "member_not_found"
	CodeMemberAlreadyExists = "member_already_exists"
	CodeRateLimited         = "rate_limited"

	CodeDBUnavailable     = "db_unavailable"
	CodeRedisUnavailable  = "redis_unavailable"
	CodeRabbitUnavailable = "rabbit_unavailable"
	CodeMailUnavailable   = "mail_unavailable"
	CodeHashFailed        = "hash_failed"
	CodeRandomFailed      = "random_failed"
	CodeInternal          = "internal_error"
)

// 400

func ErrInvalidJSON(cause error) *Error {
	return Wrap(KindValidation, CodeInvalidJSON, "invalid JSON body", cause)
}

func ErrMissingField(field string) *Error {
	return withFields(New(KindValidation, CodeMissingField, "missing required field"), "field", field)
}

func ErrInvalidField(field, reason string) *Error {
	return withFields(New(KindValidation, CodeInvalidField, "invalid field"), "field", field, "reason", reason)
}

func ErrWeakPassword(reason string) *Error {
	return withFields(New(KindValidation, CodeWeakPassword, "password does not meet requirements"), "reason", reason)
}

// ErrInvalidOrExpiredToken covers unknown, consumed and expired
// verification or reset tokens alike.
func ErrInvalidOrExpiredToken() *Error {
	return New(KindValidation, CodeInvalidOrExpiredToken, "link is invalid or has expired")
}

// 401

// ErrInvalidCredentials is also returned for unknown ids so login does not
// reveal which members exist.
func ErrInvalidCredentials() *Error {
	return New(KindAuth, CodeInvalidCredentials, "invalid id or password")
}

func ErrSessionMissing() *Error {
	return New(KindAuth, CodeSessionMissing, "login required")
}

// 403

func ErrForbidden() *Error {
	return New(KindForbidden, CodeForbidden, "forbidden")
}

func ErrInsufficientRole(required Role) *Error {
	return withFields(New(KindForbidden, CodeForbidden, "insufficient role"), "required", string(required))
}

// ErrEmailNotVerified is kept distinguishable from bad credentials.
func ErrEmailNotVerified() *Error {
	return New(KindForbidden, CodeEmailNotVerified, "email address not verified; check your inbox for the activation link")
}

func ErrCSRFRejected() *Error {
	return New(KindForbidden, CodeCSRFRejected, "cross-site request rejected")
}

// 404, 409, 429

func ErrMemberNotFound() *Error {
	return New(KindNotFound, CodeMemberNotFound, "member not found")
}

func ErrMemberAlreadyExists() *Error {
	return New(KindConflict, CodeMemberAlreadyExists, "id already registered")
}

func ErrRateLimited(scope string) *Error {
	return withFields(New(KindRateLimited, CodeRateLimited, "too many requests"), "scope", scope)
}

// 5xx

func ErrDBUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, CodeDBUnavailable, "database unavailable", cause)
}

func ErrRedisUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, CodeRedisUnavailable, "cache unavailable", cause)
}

func ErrRabbitUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, CodeRabbitUnavailable, "message broker unavailable", cause)
}

func ErrMailUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, CodeMailUnavailable, "mail transport unavailable", cause)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, CodeHashFailed, "password hashing failed", cause)
}

func ErrRandomFailed(cause error) *Error {
	return Wrap(KindInternal, CodeRandomFailed, "random generation failed", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, CodeInternal, "internal error", cause)
}
