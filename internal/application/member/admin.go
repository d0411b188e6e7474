package member

import (
	"context"
	"strings"
	"time"

	"github.com/lmsworks/member-service/internal/domain"
)

// ListMembers returns one page of members for the admin list.
func (s *Service) ListMembers(ctx context.Context, f domain.MemberFilter) (domain.MemberPage, error) {
	if !f.SearchType.Valid() {
		return domain.MemberPage{}, domain.ErrInvalidField("searchType", "unknown search type")
	}
	f.SearchValue = strings.TrimSpace(f.SearchValue)
	f = f.Normalize()

	page, err := s.members.List(ctx, f)
	if err != nil {
		return domain.MemberPage{}, wrapRepoErr(err)
	}
	if page.Items == nil {
		page.Items = []domain.MemberSummary{}
	}
	page.Page = f.Page
	page.PageSize = f.PageSize
	return page, nil
}

type MemberDetail struct {
	Member  domain.MemberSummary
	History []domain.LoginHistory
}

// MemberDetail returns the summary of one member plus recent login attempts.
func (s *Service) MemberDetail(ctx context.Context, id string) (MemberDetail, error) {
	id = normalizeID(id)
	if id == "" {
		return MemberDetail{}, domain.ErrMissingField("userId")
	}

	m, err := s.members.GetByID(ctx, id)
	if err != nil {
		return MemberDetail{}, wrapRepoErr(err)
	}

	hist, err := s.history.ListByMember(ctx, m.ID, s.historyLimit)
	if err != nil {
		return MemberDetail{}, wrapRepoErr(err)
	}

	sum := m.Summary()
	sum.LastLoginAt = lastSuccess(hist)
	if hist == nil {
		hist = []domain.LoginHistory{}
	}
	return MemberDetail{Member: sum, History: hist}, nil
}

// lastSuccess expects hist newest first.
func lastSuccess(hist []domain.LoginHistory) *time.Time {
	for _, h := range hist {
		if h.Outcome == domain.LoginSuccess {
			at := h.At
			return &at
		}
	}
	return nil
}
