package dto

import (
	"time"

	"github.com/lmsworks/member-service/internal/application/authn"
	"github.com/lmsworks/member-service/internal/domain"
)

type MemberView struct {
	UserID          string     `json:"userId"`
	UserName        string     `json:"userName"`
	Phone           string     `json:"phone,omitempty"`
	RegisteredAt    time.Time  `json:"registeredAt"`
	EmailVerified   bool       `json:"emailVerified"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt,omitempty"`
	Admin           bool       `json:"admin"`
	LastLoginAt     *time.Time `json:"lastLoginAt,omitempty"`
}

func NewMemberView(s domain.MemberSummary) MemberView {
	return MemberView{
		UserID:          s.ID,
		UserName:        s.Name,
		Phone:           s.Phone,
		RegisteredAt:    s.RegisteredAt,
		EmailVerified:   s.EmailVerified,
		EmailVerifiedAt: s.EmailVerifiedAt,
		Admin:           s.Admin,
		LastLoginAt:     s.LastLoginAt,
	}
}

type RegisterData struct {
	Member MemberView `json:"member"`
	// MailSent is false when the activation mail could not be dispatched;
	// the account exists and a resend can be requested.
	MailSent bool `json:"mailSent"`
}

type SessionView struct {
	UserID    string    `json:"userId"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func NewSessionView(s authn.Session) SessionView {
	roles := make([]string, 0, len(s.Roles))
	for _, r := range s.Roles {
		roles = append(roles, string(r))
	}
	return SessionView{UserID: s.MemberID, Roles: roles, ExpiresAt: s.ExpiresAt}
}

type StatusData struct {
	Status string `json:"status"`
}

type MemberPageData struct {
	Items    []MemberView `json:"items"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"pageSize"`
}

func NewMemberPageData(p domain.MemberPage) MemberPageData {
	items := make([]MemberView, 0, len(p.Items))
	for _, s := range p.Items {
		items = append(items, NewMemberView(s))
	}
	return MemberPageData{Items: items, Total: p.Total, Page: p.Page, PageSize: p.PageSize}
}

type LoginHistoryView struct {
	At        time.Time `json:"at"`
	Outcome   string    `json:"outcome"`
	ClientIP  string    `json:"clientIp,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
}

type MemberDetailData struct {
	Member  MemberView         `json:"member"`
	History []LoginHistoryView `json:"loginHistory"`
}

func NewMemberDetailData(s domain.MemberSummary, history []domain.LoginHistory) MemberDetailData {
	return MemberDetailData{Member: NewMemberView(s), History: newLoginHistoryViews(history)}
}

type LoginHistoryData struct {
	Items []LoginHistoryView `json:"items"`
}

func NewLoginHistoryData(history []domain.LoginHistory) LoginHistoryData {
	return LoginHistoryData{Items: newLoginHistoryViews(history)}
}

func newLoginHistoryViews(history []domain.LoginHistory) []LoginHistoryView {
	views := make([]LoginHistoryView, 0, len(history))
	for _, h := range history {
		views = append(views, LoginHistoryView{At: h.At, Outcome: string(h.Outcome), ClientIP: h.ClientIP, UserAgent: h.UserAgent})
	}
	return views
}

// HomeData is served at "/"; Member is nil for anonymous visitors.
type HomeData struct {
	Service string       `json:"service"`
	Member  *SessionView `json:"member,omitempty"`
}
