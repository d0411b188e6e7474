package postgres

import (
	"database/sql"
	"time"

	"github.com/lmsworks/member-service/internal/domain"
)

const memberColumns = `id, name, phone, password_hash, registered_at, updated_at, admin,
       email_verified, email_verified_at, email_auth_key_hash, email_auth_key_expires_at,
       reset_key_hash, reset_key_expires_at`

type memberRow struct {
	ID           string
	Name         string
	Phone        string
	PasswordHash string
	RegisteredAt time.Time
	UpdatedAt    time.Time
	Admin        bool

	EmailVerified         bool
	EmailVerifiedAt       sql.NullTime
	EmailAuthKeyHash      sql.NullString
	EmailAuthKeyExpiresAt sql.NullTime

	ResetKeyHash      sql.NullString
	ResetKeyExpiresAt sql.NullTime
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(s scanner) (memberRow, error) {
	var r memberRow
	err := s.Scan(
		&r.ID,
		&r.Name,
		&r.Phone,
		&r.PasswordHash,
		&r.RegisteredAt,
		&r.UpdatedAt,
		&r.Admin,
		&r.EmailVerified,
		&r.EmailVerifiedAt,
		&r.EmailAuthKeyHash,
		&r.EmailAuthKeyExpiresAt,
		&r.ResetKeyHash,
		&r.ResetKeyExpiresAt,
	)
	return r, err
}

func (r memberRow) toDomain() domain.Member {
	return domain.Member{
		ID:                    r.ID,
		Name:                  r.Name,
		Phone:                 r.Phone,
		PasswordHash:          r.PasswordHash,
		RegisteredAt:          r.RegisteredAt,
		UpdatedAt:             r.UpdatedAt,
		Admin:                 r.Admin,
		EmailVerified:         r.EmailVerified,
		EmailVerifiedAt:       timePtr(r.EmailVerifiedAt),
		EmailAuthKeyHash:      r.EmailAuthKeyHash.String,
		EmailAuthKeyExpiresAt: timePtr(r.EmailAuthKeyExpiresAt),
		ResetKeyHash:          r.ResetKeyHash.String,
		ResetKeyExpiresAt:     timePtr(r.ResetKeyExpiresAt),
	}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
