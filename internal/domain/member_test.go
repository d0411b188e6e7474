package domain

import (
	"math"
	"testing"
)

func TestMemberZeroValueIsUnverified(t *testing.T) {
	var m Member
	if m.EmailVerified || m.EmailVerifiedAt != nil {
		t.Fatalf("expected zero member to be unverified")
	}
}

func TestMemberSummaryDropsSecrets(t *testing.T) {
	m := Member{ID: "a@x.com", Name: "A", PasswordHash: "h", EmailAuthKeyHash: "k", ResetKeyHash: "r"}
	s := m.Summary()
	if s.ID != m.ID || s.Name != m.Name {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestMemberFilterNormalize(t *testing.T) {
	f := MemberFilter{Page: 0, PageSize: 1000, SearchType: SearchUserName}.Normalize()
	if f.Page != 1 || f.PageSize != MaxPageSize {
		t.Fatalf("unexpected paging: %+v", f)
	}
	if f.SearchType != SearchNone {
		t.Fatalf("search type without value should be dropped")
	}

	f = MemberFilter{Page: 3, PageSize: 20, SearchType: SearchPhone, SearchValue: "010"}.Normalize()
	if f.Offset() != 40 || f.SearchType != SearchPhone {
		t.Fatalf("unexpected filter: %+v", f)
	}
}

func TestMemberFilterNormalize_HugePageStaysPositive(t *testing.T) {
	f := MemberFilter{Page: math.MaxInt, PageSize: 10}.Normalize()
	if f.Page != MaxPage {
		t.Fatalf("expected page clamped to %d, got %d", MaxPage, f.Page)
	}
	if f.Offset() <= 0 {
		t.Fatalf("offset overflowed: %d", f.Offset())
	}
}

func TestSearchTypeValid(t *testing.T) {
	if !SearchUserID.Valid() || SearchType("email").Valid() {
		t.Fatalf("unexpected search type validity")
	}
}
