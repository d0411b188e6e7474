package domain

import "time"

// Member is one registered account. ID is the email address used as the
// login name and never changes after creation.
type Member struct {
	ID           string
	Name         string
	Phone        string
	PasswordHash string
	RegisteredAt time.Time
	UpdatedAt    time.Time
	Admin        bool

	EmailVerified         bool
	EmailVerifiedAt       *time.Time
	EmailAuthKeyHash      string
	EmailAuthKeyExpiresAt *time.Time

	ResetKeyHash      string
	ResetKeyExpiresAt *time.Time
}

// Summary drops every secret-bearing field.
func (m Member) Summary() MemberSummary {
	return MemberSummary{
		ID:              m.ID,
		Name:            m.Name,
		Phone:           m.Phone,
		RegisteredAt:    m.RegisteredAt,
		EmailVerified:   m.EmailVerified,
		EmailVerifiedAt: m.EmailVerifiedAt,
		Admin:           m.Admin,
	}
}

// MemberSummary is the read-only projection used by admin screens.
type MemberSummary struct {
	ID              string
	Name            string
	Phone           string
	RegisteredAt    time.Time
	EmailVerified   bool
	EmailVerifiedAt *time.Time
	Admin           bool
	LastLoginAt     *time.Time
}

type SearchType string

const (
	SearchNone     SearchType = ""
	SearchUserID   SearchType = "userId"
	SearchUserName SearchType = "userName"
	SearchPhone    SearchType = "phone"
)

func (s SearchType) Valid() bool {
	switch s {
	case SearchNone, SearchUserID, SearchUserName, SearchPhone:
		return true
	}
	return false
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage keeps Offset far from int overflow.
	MaxPage = 100_000
)

type MemberFilter struct {
	SearchType  SearchType
	SearchValue string
	Page        int
	PageSize    int
}

// Normalize clamps paging and drops a search value without a type.
func (f MemberFilter) Normalize() MemberFilter {
	f.Page = min(max(f.Page, 1), MaxPage)
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	if f.SearchType == SearchNone || f.SearchValue == "" {
		f.SearchType = SearchNone
		f.SearchValue = ""
	}
	return f
}

func (f MemberFilter) Offset() int { return (f.Page - 1) * f.PageSize }

type MemberPage struct {
	Items    []MemberSummary
	Total    int
	Page     int
	PageSize int
}
