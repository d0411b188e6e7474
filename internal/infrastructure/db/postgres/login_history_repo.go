package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/lmsworks/member-service/internal/domain"
)

type LoginHistoryRepo struct {
	db *sql.DB
}

func NewLoginHistoryRepo(db *sql.DB) *LoginHistoryRepo {
	return &LoginHistoryRepo{db: db}
}

func (r *LoginHistoryRepo) Append(ctx context.Context, h domain.LoginHistory) error {
	if h.MemberID == "" {
		return domain.ErrMissingField("member_id")
	}
	if h.ID == "" {
		h.ID = uuid.NewString()
	}

	const q = `
INSERT INTO login_history (id, member_id, user_agent, client_ip, outcome, at)
VALUES ($1,$2,$3,$4,$5,$6);`

	if _, err := r.db.ExecContext(ctx, q, h.ID, h.MemberID, h.UserAgent, h.ClientIP, string(h.Outcome), h.At); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (r *LoginHistoryRepo) ListByMember(ctx context.Context, memberID string, limit int) ([]domain.LoginHistory, error) {
	if limit <= 0 {
		limit = 20
	}

	const q = `
SELECT id, member_id, user_agent, client_ip, outcome, at
FROM login_history
WHERE member_id = $1
ORDER BY at DESC
LIMIT $2;`

	rows, err := r.db.QueryContext(ctx, q, memberID, limit)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	out := make([]domain.LoginHistory, 0, limit)
	for rows.Next() {
		var (
			h       domain.LoginHistory
			outcome string
		)
		if err := rows.Scan(&h.ID, &h.MemberID, &h.UserAgent, &h.ClientIP, &outcome, &h.At); err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		h.Outcome = domain.LoginOutcome(outcome)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return out, nil
}
