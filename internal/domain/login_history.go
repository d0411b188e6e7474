package domain

import "time"

type LoginOutcome string

const (
	LoginSuccess            LoginOutcome = "success"
	LoginInvalidCredentials LoginOutcome = "invalid_credentials"
	LoginNotVerified        LoginOutcome = "not_verified"
)

// LoginHistory is one login attempt against a named identifier.
type LoginHistory struct {
	ID        string
	MemberID  string
	UserAgent string
	ClientIP  string
	At        time.Time
	Outcome   LoginOutcome
}
