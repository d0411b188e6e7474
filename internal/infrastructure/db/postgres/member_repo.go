package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lmsworks/member-service/internal/domain"
)

// MemberRepo implements member.Repo. Token consumption is a single
// conditional UPDATE ... RETURNING, so concurrent callers race inside
// Postgres and at most one of them gets a row back.
type MemberRepo struct {
	db *sql.DB
}

func NewMemberRepo(db *sql.DB) *MemberRepo {
	return &MemberRepo{db: db}
}

func (r *MemberRepo) Create(ctx context.Context, m domain.Member) (domain.Member, error) {
	if strings.TrimSpace(m.ID) == "" {
		return domain.Member{}, domain.ErrMissingField("userId")
	}
	if m.PasswordHash == "" {
		return domain.Member{}, domain.ErrMissingField("password_hash")
	}

	const q = `
INSERT INTO members (id, name, phone, password_hash, registered_at, updated_at, admin,
                     email_verified, email_verified_at, email_auth_key_hash, email_auth_key_expires_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING ` + memberColumns + `;`

	row, err := scanMember(r.db.QueryRowContext(ctx, q,
		m.ID, m.Name, m.Phone, m.PasswordHash, m.RegisteredAt, m.UpdatedAt, m.Admin,
		m.EmailVerified, nullTime(m.EmailVerifiedAt), nullString(m.EmailAuthKeyHash), nullTime(m.EmailAuthKeyExpiresAt),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Member{}, domain.ErrMemberAlreadyExists()
		}
		return domain.Member{}, domain.ErrDBUnavailable(err)
	}
	return row.toDomain(), nil
}

func (r *MemberRepo) GetByID(ctx context.Context, id string) (domain.Member, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Member{}, domain.ErrMemberNotFound()
	}

	const q = `SELECT ` + memberColumns + ` FROM members WHERE id = $1 LIMIT 1;`

	row, err := scanMember(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Member{}, domain.ErrMemberNotFound()
		}
		return domain.Member{}, domain.ErrDBUnavailable(err)
	}
	return row.toDomain(), nil
}

func (r *MemberRepo) SetEmailAuthKey(ctx context.Context, id, keyHash string, expiresAt time.Time) error {
	const q = `
UPDATE members
SET email_auth_key_hash = $2, email_auth_key_expires_at = $3, updated_at = now()
WHERE id = $1;`
	return r.execOne(ctx, q, id, keyHash, expiresAt)
}

func (r *MemberRepo) ConsumeEmailAuthKey(ctx context.Context, keyHash string, now time.Time) (string, error) {
	const q = `
UPDATE members
SET email_verified = TRUE,
    email_verified_at = $2,
    email_auth_key_hash = NULL,
    email_auth_key_expires_at = NULL,
    updated_at = $2
WHERE email_auth_key_hash = $1
  AND email_auth_key_expires_at > $2
  AND email_verified = FALSE
RETURNING id;`
	return r.consume(ctx, q, keyHash, now)
}

func (r *MemberRepo) SetResetKey(ctx context.Context, id, keyHash string, expiresAt time.Time) error {
	const q = `
UPDATE members
SET reset_key_hash = $2, reset_key_expires_at = $3, updated_at = now()
WHERE id = $1;`
	return r.execOne(ctx, q, id, keyHash, expiresAt)
}

func (r *MemberRepo) PeekResetKey(ctx context.Context, keyHash string, now time.Time) (string, error) {
	const q = `
SELECT id FROM members
WHERE reset_key_hash = $1 AND reset_key_expires_at > $2
LIMIT 1;`
	return r.consume(ctx, q, keyHash, now)
}

func (r *MemberRepo) ConsumeResetKey(ctx context.Context, keyHash, newPasswordHash string, now time.Time) (string, error) {
	const q = `
UPDATE members
SET password_hash = $3,
    reset_key_hash = NULL,
    reset_key_expires_at = NULL,
    updated_at = $2
WHERE reset_key_hash = $1
  AND reset_key_expires_at > $2
RETURNING id;`
	return r.consume(ctx, q, keyHash, now, newPasswordHash)
}

// consume runs a single-row query returning id; no row means the token is
// unknown, expired or already used.
func (r *MemberRepo) consume(ctx context.Context, q, keyHash string, now time.Time, extra ...any) (string, error) {
	if keyHash == "" {
		return "", domain.ErrInvalidOrExpiredToken()
	}
	args := append([]any{keyHash, now}, extra...)

	var id string
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrInvalidOrExpiredToken()
		}
		return "", domain.ErrDBUnavailable(err)
	}
	return id, nil
}

func (r *MemberRepo) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	if n == 0 {
		return domain.ErrMemberNotFound()
	}
	return nil
}

func (r *MemberRepo) List(ctx context.Context, f domain.MemberFilter) (domain.MemberPage, error) {
	f = f.Normalize()
	where, args := searchClause(f)

	page := domain.MemberPage{Page: f.Page, PageSize: f.PageSize, Items: []domain.MemberSummary{}}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM members m`+where+`;`, args...).Scan(&page.Total); err != nil {
		return domain.MemberPage{}, domain.ErrDBUnavailable(err)
	}
	if page.Total == 0 || f.Offset() >= page.Total {
		return page, nil
	}

	q := `
SELECT m.id, m.name, m.phone, m.registered_at, m.email_verified, m.email_verified_at, m.admin,
       (SELECT MAX(h.at) FROM login_history h WHERE h.member_id = m.id AND h.outcome = 'success') AS last_login_at
FROM members m` + where + `
ORDER BY m.registered_at DESC, m.id
LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2) + `;`

	rows, err := r.db.QueryContext(ctx, q, append(args, f.PageSize, f.Offset())...)
	if err != nil {
		return domain.MemberPage{}, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			s          domain.MemberSummary
			verifiedAt sql.NullTime
			lastLogin  sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.Phone, &s.RegisteredAt, &s.EmailVerified, &verifiedAt, &s.Admin, &lastLogin); err != nil {
			return domain.MemberPage{}, domain.ErrDBUnavailable(err)
		}
		s.EmailVerifiedAt = timePtr(verifiedAt)
		s.LastLoginAt = timePtr(lastLogin)
		page.Items = append(page.Items, s)
	}
	if err := rows.Err(); err != nil {
		return domain.MemberPage{}, domain.ErrDBUnavailable(err)
	}
	return page, nil
}

func searchClause(f domain.MemberFilter) (string, []any) {
	var col string
	switch f.SearchType {
	case domain.SearchUserID:
		col = "m.id"
	case domain.SearchUserName:
		col = "m.name"
	case domain.SearchPhone:
		col = "m.phone"
	default:
		return "", nil
	}
	return " WHERE " + col + ` ILIKE $1 ESCAPE '\'`, []any{"%" + escapeLike(f.SearchValue) + "%"}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func placeholder(n int) string { return "$" + strconv.Itoa(n) }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
