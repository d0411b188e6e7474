package memory

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmsworks/member-service/internal/domain"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newMember(id string, registeredAt time.Time) domain.Member {
	return domain.Member{ID: id, Name: "name-" + id, Phone: "010-1234-0000", PasswordHash: "h", RegisteredAt: registeredAt}
}

func TestMemberRepo_CreateAndGet(t *testing.T) {
	r := NewMemberRepo()
	ctx := context.Background()

	_, err := r.Create(ctx, newMember("a@x.com", t0))
	require.NoError(t, err)

	_, err = r.Create(ctx, newMember("a@x.com", t0))
	assert.True(t, domain.Is(err, domain.CodeMemberAlreadyExists))

	got, err := r.GetByID(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "name-a@x.com", got.Name)

	_, err = r.GetByID(ctx, "nobody@x.com")
	assert.True(t, domain.Is(err, domain.CodeMemberNotFound))
}

func TestMemberRepo_ConsumeEmailAuthKey(t *testing.T) {
	r := NewMemberRepo()
	ctx := context.Background()
	_, _ = r.Create(ctx, newMember("a@x.com", t0))
	require.NoError(t, r.SetEmailAuthKey(ctx, "a@x.com", "digest", t0.Add(time.Hour)))

	_, err := r.ConsumeEmailAuthKey(ctx, "other", t0)
	assert.True(t, domain.Is(err, domain.CodeInvalidOrExpiredToken))

	_, err = r.ConsumeEmailAuthKey(ctx, "digest", t0.Add(2*time.Hour))
	assert.True(t, domain.Is(err, domain.CodeInvalidOrExpiredToken), "expired")

	id, err := r.ConsumeEmailAuthKey(ctx, "digest", t0)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", id)

	m, _ := r.GetByID(ctx, id)
	assert.True(t, m.EmailVerified)
	require.NotNil(t, m.EmailVerifiedAt)
	assert.Empty(t, m.EmailAuthKeyHash)

	_, err = r.ConsumeEmailAuthKey(ctx, "digest", t0)
	assert.True(t, domain.Is(err, domain.CodeInvalidOrExpiredToken), "single use")

	assert.True(t, domain.Is(r.SetEmailAuthKey(ctx, "nobody@x.com", "d", t0), domain.CodeMemberNotFound))
}

func TestMemberRepo_ConsumeResetKey_OnlyOneConcurrentWinner(t *testing.T) {
	r := NewMemberRepo()
	ctx := context.Background()
	_, _ = r.Create(ctx, newMember("a@x.com", t0))
	require.NoError(t, r.SetResetKey(ctx, "a@x.com", "digest", t0.Add(time.Hour)))

	id, err := r.PeekResetKey(ctx, "digest", t0)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", id)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := r.ConsumeResetKey(ctx, "digest", fmt.Sprintf("new-%d", i), t0); err == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	m, _ := r.GetByID(ctx, "a@x.com")
	assert.Contains(t, m.PasswordHash, "new-")
	assert.Empty(t, m.ResetKeyHash)
	assert.Nil(t, m.ResetKeyExpiresAt)

	_, err = r.PeekResetKey(ctx, "digest", t0)
	assert.True(t, domain.Is(err, domain.CodeInvalidOrExpiredToken))
}

func TestMemberRepo_List_SearchOrderAndPaging(t *testing.T) {
	h := NewLoginHistoryRepo()
	r := NewMemberRepo().WithLoginHistory(h)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		m := newMember(fmt.Sprintf("user%d@x.com", i), t0.Add(time.Duration(i)*time.Minute))
		if i == 3 {
			m.Name = "Kim Minsu"
			m.Phone = "010-9999-1111"
		}
		_, _ = r.Create(ctx, m)
	}
	require.NoError(t, h.Append(ctx, domain.LoginHistory{MemberID: "user4@x.com", At: t0, Outcome: domain.LoginSuccess}))

	page, err := r.List(ctx, domain.MemberFilter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "user4@x.com", page.Items[0].ID, "newest first")
	require.NotNil(t, page.Items[0].LastLoginAt)
	assert.Nil(t, page.Items[1].LastLoginAt)

	page, _ = r.List(ctx, domain.MemberFilter{Page: 3, PageSize: 2})
	require.Len(t, page.Items, 1)
	assert.Equal(t, "user0@x.com", page.Items[0].ID)

	page, _ = r.List(ctx, domain.MemberFilter{Page: 9, PageSize: 2})
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)

	require.NotPanics(t, func() {
		page, err = r.List(ctx, domain.MemberFilter{Page: math.MaxInt, PageSize: 10})
	})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, domain.MaxPage, page.Page)

	page, _ = r.List(ctx, domain.MemberFilter{SearchType: domain.SearchUserName, SearchValue: "minsu"})
	require.Len(t, page.Items, 1)
	assert.Equal(t, "user3@x.com", page.Items[0].ID)

	page, _ = r.List(ctx, domain.MemberFilter{SearchType: domain.SearchPhone, SearchValue: "9999"})
	assert.Equal(t, 1, page.Total)

	page, _ = r.List(ctx, domain.MemberFilter{SearchType: domain.SearchUserID, SearchValue: "USER1"})
	assert.Equal(t, 1, page.Total)
}
