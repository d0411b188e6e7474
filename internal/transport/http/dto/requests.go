package dto

import (
	"strings"

	"github.com/lmsworks/member-service/internal/domain"
)

// Password strength is checked by the member service; the tags here only
// reject obviously malformed input.

type RegisterRequest struct {
	UserID   string `json:"userId" validate:"required,email,max=255"`
	Name     string `json:"userName" validate:"required,max=100"`
	Phone    string `json:"phone" validate:"max=30"`
	Password string `json:"password" validate:"required"`
}

func (r *RegisterRequest) Normalize() {
	r.UserID = strings.TrimSpace(r.UserID)
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
}

type LoginRequest struct {
	UserID   string `json:"userId" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ResendVerificationRequest struct {
	UserID string `json:"userId" validate:"required,email"`
}

// FindPasswordRequest starts a reset; both fields must match the account.
type FindPasswordRequest struct {
	UserID string `json:"userId" validate:"required,email"`
	Name   string `json:"userName" validate:"required"`
}

type ResetPasswordRequest struct {
	Token    string `json:"id" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// MemberListQuery is bound from the query string of /admin/member/list.
type MemberListQuery struct {
	SearchType  string `json:"searchType" validate:"omitempty,oneof=userId userName phone"`
	SearchValue string `json:"searchValue" validate:"max=255"`
	Page        int    `json:"page" validate:"gte=0,lte=100000"`
	PageSize    int    `json:"pageSize" validate:"gte=0,lte=100"`
}

func (q MemberListQuery) Filter() domain.MemberFilter {
	return domain.MemberFilter{
		SearchType:  domain.SearchType(q.SearchType),
		SearchValue: strings.TrimSpace(q.SearchValue),
		Page:        q.Page,
		PageSize:    q.PageSize,
	}
}
