package member

import (
	"strings"

	"github.com/lmsworks/member-service/internal/domain"
)

const (
	minPasswordLen = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLen = 72
	maxIDLen       = 255
)

func validateID(id string) error {
	if id == "" {
		return domain.ErrMissingField("userId")
	}
	if len(id) > maxIDLen {
		return domain.ErrInvalidField("userId", "too long")
	}
	at := strings.LastIndex(id, "@")
	if at <= 0 || at == len(id)-1 || strings.ContainsAny(id, " \t\r\n") {
		return domain.ErrInvalidField("userId", "must be an email address")
	}
	return nil
}

func validatePassword(pw string) error {
	if pw == "" {
		return domain.ErrMissingField("password")
	}
	if len(pw) < minPasswordLen {
		return domain.ErrWeakPassword("min length 8")
	}
	if len(pw) > maxPasswordLen {
		return domain.ErrWeakPassword("max length 72 bytes")
	}
	return nil
}
