package member

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lmsworks/member-service/internal/domain"
)

/*
Fakes for ports
*/

type fakeRepo struct {
	mu sync.Mutex

	byID map[string]domain.Member

	getErr    error
	createErr error
	listErr   error
	creates   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[string]domain.Member{}}
}

func (f *fakeRepo) Create(ctx context.Context, m domain.Member) (domain.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return domain.Member{}, f.createErr
	}
	if _, ok := f.byID[m.ID]; ok {
		return domain.Member{}, domain.ErrMemberAlreadyExists()
	}
	f.byID[m.ID] = m
	f.creates++
	return m, nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (domain.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return domain.Member{}, f.getErr
	}
	m, ok := f.byID[id]
	if !ok {
		return domain.Member{}, domain.ErrMemberNotFound()
	}
	return m, nil
}

func (f *fakeRepo) SetEmailAuthKey(ctx context.Context, id, keyHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.byID[id]
	if !ok {
		return domain.ErrMemberNotFound()
	}
	m.EmailAuthKeyHash = keyHash
	m.EmailAuthKeyExpiresAt = &expiresAt
	f.byID[id] = m
	return nil
}

func (f *fakeRepo) ConsumeEmailAuthKey(ctx context.Context, keyHash string, now time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, m := range f.byID {
		if m.EmailAuthKeyHash != keyHash || m.EmailVerified {
			continue
		}
		if m.EmailAuthKeyExpiresAt == nil || !m.EmailAuthKeyExpiresAt.After(now) {
			continue
		}
		m.EmailVerified = true
		m.EmailVerifiedAt = &now
		m.EmailAuthKeyHash = ""
		m.EmailAuthKeyExpiresAt = nil
		f.byID[id] = m
		return id, nil
	}
	return "", domain.ErrInvalidOrExpiredToken()
}

func (f *fakeRepo) SetResetKey(ctx context.Context, id, keyHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.byID[id]
	if !ok {
		return domain.ErrMemberNotFound()
	}
	m.ResetKeyHash = keyHash
	m.ResetKeyExpiresAt = &expiresAt
	f.byID[id] = m
	return nil
}

func (f *fakeRepo) findReset(keyHash string, now time.Time) (domain.Member, bool) {
	for _, m := range f.byID {
		if m.ResetKeyHash == keyHash && m.ResetKeyExpiresAt != nil && m.ResetKeyExpiresAt.After(now) {
			return m, true
		}
	}
	return domain.Member{}, false
}

func (f *fakeRepo) PeekResetKey(ctx context.Context, keyHash string, now time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.findReset(keyHash, now)
	if !ok {
		return "", domain.ErrInvalidOrExpiredToken()
	}
	return m.ID, nil
}

func (f *fakeRepo) ConsumeResetKey(ctx context.Context, keyHash, newHash string, now time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.findReset(keyHash, now)
	if !ok {
		return "", domain.ErrInvalidOrExpiredToken()
	}
	m.PasswordHash = newHash
	m.ResetKeyHash = ""
	m.ResetKeyExpiresAt = nil
	f.byID[m.ID] = m
	return m.ID, nil
}

func (f *fakeRepo) List(ctx context.Context, flt domain.MemberFilter) (domain.MemberPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return domain.MemberPage{}, f.listErr
	}
	var all []domain.MemberSummary
	for _, m := range f.byID {
		all = append(all, m.Summary())
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return domain.MemberPage{Items: all, Total: len(all)}, nil
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []domain.LoginHistory

	appendErr error
}

func (h *fakeHistory) Append(ctx context.Context, e domain.LoginHistory) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.appendErr != nil {
		return h.appendErr
	}
	h.entries = append(h.entries, e)
	return nil
}

func (h *fakeHistory) ListByMember(ctx context.Context, memberID string, limit int) ([]domain.LoginHistory, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []domain.LoginHistory
	for i := len(h.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if h.entries[i].MemberID == memberID {
			out = append(out, h.entries[i])
		}
	}
	return out, nil
}

type fakeHasher struct {
	hashFn func(pw string) (string, error)
	n      int
}

// Hash salts with a counter so two hashes of one password differ.
func (h *fakeHasher) Hash(password string) (string, error) {
	if h.hashFn != nil {
		return h.hashFn(password)
	}
	h.n++
	return "hash:" + string(rune('a'+h.n%26)) + ":" + password, nil
}

func (h *fakeHasher) Compare(hash string, password string) error {
	parts := strings.SplitN(hash, ":", 3)
	if len(parts) == 3 && parts[0] == "hash" && parts[2] == password {
		return nil
	}
	return errors.New("mismatch")
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []Mail
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) last(t *testing.T) Mail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatalf("expected a mail to be sent")
	}
	return m.sent[len(m.sent)-1]
}

type fakeRevoker struct {
	revoked []string
	err     error
}

func (r *fakeRevoker) DeleteAllForMember(ctx context.Context, memberID string) error {
	r.revoked = append(r.revoked, memberID)
	return r.err
}

type auditEntry struct {
	action string
	fields map[string]string
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

/*
Service factory for tests
*/

type testEnv struct {
	svc     *Service
	repo    *fakeRepo
	history *fakeHistory
	hasher  *fakeHasher
	mailer  *fakeMailer
	revoker *fakeRevoker
	clock   *clock
	audits  *[]auditEntry
}

func newSvcForTest(t *testing.T) testEnv {
	t.Helper()

	env := testEnv{
		repo:    newFakeRepo(),
		history: &fakeHistory{},
		hasher:  &fakeHasher{},
		mailer:  &fakeMailer{},
		revoker: &fakeRevoker{},
		clock:   &clock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		audits:  &[]auditEntry{},
	}

	env.svc = NewService(env.repo, env.history, env.hasher, env.mailer, Config{
		BaseURL:               "http://localhost:8080/",
		VerifyEmailTokenTTL:   24 * time.Hour,
		PasswordResetTokenTTL: time.Hour,
	}).
		WithClock(env.clock.now).
		WithSessionRevoker(env.revoker).
		WithAudit(func(action string, fields map[string]string) {
			cp := map[string]string{}
			for k, v := range fields {
				cp[k] = v
			}
			*env.audits = append(*env.audits, auditEntry{action: action, fields: cp})
		})

	return env
}

func (e testEnv) register(t *testing.T, id, pw string) string {
	t.Helper()
	_, err := e.svc.Register(context.Background(), RegisterInput{ID: id, Name: "Alice", Phone: "010-1234-5678", Password: pw})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return tokenFromMail(t, e.mailer.last(t))
}

/*
Small assertions
*/

var linkRe = regexp.MustCompile(`href="([^"]+)"`)

// tokenFromMail pulls the id query parameter out of the first link in a mail.
func tokenFromMail(t *testing.T, m Mail) string {
	t.Helper()
	match := linkRe.FindStringSubmatch(m.HTMLBody)
	if match == nil {
		t.Fatalf("no link in mail body: %s", m.HTMLBody)
	}
	u, err := url.Parse(strings.ReplaceAll(match[1], "&amp;", "&"))
	if err != nil {
		t.Fatalf("bad link %q: %v", match[1], err)
	}
	tok := u.Query().Get("id")
	if tok == "" {
		t.Fatalf("link has no id: %s", match[1])
	}
	return tok
}

func requireErrCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error code=%q, got nil", code)
	}
	if !domain.Is(err, code) {
		t.Fatalf("expected code=%q, got err=%v", code, err)
	}
}

func hasAudit(audits *[]auditEntry, action string) bool {
	for _, a := range *audits {
		if a.action == action {
			return true
		}
	}
	return false
}
