package member

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lmsworks/member-service/internal/domain"
)

func TestRegister_Success_PersistsUnverifiedMemberAndMailsLink(t *testing.T) {
	t.Parallel()
	env := newSvcForTest(t)

	res, err := env.svc.Register(context.Background(), RegisterInput{
		ID: "  Alice@X.com ", Name: "Alice", Phone: "010", Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if res.Member.ID != "alice@x.com" || res.Member.EmailVerified {
		t.Fatalf("unexpected member: %+v", res.Member)
	}
	if !res.MailSent {
		t.Fatalf("expected mail to be sent")
	}

	stored := env.repo.byID["alice@x.com"]
	if stored.PasswordHash == "" || stored.PasswordHash == "correct-horse" {
		t.Fatalf("password must be hashed, got %q", stored.PasswordHash)
	}
	if err := env.hasher.Compare(stored.PasswordHash, "correct-horse"); err != nil {
		t.Fatalf("hash should verify plaintext: %v", err)
	}
	if !stored.RegisteredAt.Equal(env.clock.t) {
		t.Fatalf("registeredAt not set: %v", stored.RegisteredAt)
	}

	m := env.mailer.last(t)
	if m.To != "alice@x.com" {
		t.Fatalf("unexpected recipient %q", m.To)
	}
	if !strings.Contains(m.HTMLBody, "http://localhost:8080/member/email-auth?id=") {
		t.Fatalf("activation link missing: %s", m.HTMLBody)
	}
	tok := tokenFromMail(t, m)
	if stored.EmailAuthKeyHash != HashToken(tok) {
		t.Fatalf("store must keep the token digest only")
	}
	if strings.Contains(m.HTMLBody, stored.EmailAuthKeyHash) {
		t.Fatalf("mail must not carry the digest")
	}
	if !hasAudit(env.audits, "member.registered") {
		t.Fatalf("expected registered audit")
	}
}

func TestRegister_Duplicate_SecondFails_OneRecord(t *testing.T) {
	t.Parallel()
	env := newSvcForTest(t)

	env.register(t, "alice@x.com", "password-1")

	_, err := env.svc.Register(context.Background(), RegisterInput{ID: "ALICE@x.com", Name: "Other", Password: "password-2"})
	requireErrCode(t, err, domain.CodeMemberAlreadyExists)

	if env.repo.creates != 1 || len(env.repo.byID) != 1 {
		t.Fatalf("expected exactly one member, got %d", len(env.repo.byID))
	}
	if env.hasher.Compare(env.repo.byID["alice@x.com"].PasswordHash, "password-1") != nil {
		t.Fatalf("original hash must be untouched")
	}
}

func TestRegister_StoreUniqueViolation_MapsToAlreadyExists(t *testing.T) {
	t.Parallel()
	env := newSvcForTest(t)
	env.repo.createErr = domain.ErrMemberAlreadyExists()

	_, err := env.svc.Register(context.Background(), RegisterInput{ID: "a@x.com", Name: "A", Password: "password-1"})
	requireErrCode(t, err, domain.CodeMemberAlreadyExists)
	if len(env.mailer.sent) != 0 {
		t.Fatalf("no mail on failed registration")
	}
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		in   RegisterInput
		code string
	}{
		{"missing id", RegisterInput{Name: "A", Password: "password-1"}, "missing_field"},
		{"not an email", RegisterInput{ID: "alice", Name: "A", Password: "password-1"}, "invalid_field"},
		{"missing name", RegisterInput{ID: "a@x.com", Password: "password-1"}, "missing_field"},
		{"short password", RegisterInput{ID: "a@x.com", Name: "A", Password: "short"}, "weak_password"},
		{"long password", RegisterInput{ID: "a@x.com", Name: "A", Password: strings.Repeat("p", 73)}, "weak_password"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			env := newSvcForTest(t)
			_, err := env.svc.Register(context.Background(), c.in)
			requireErrCode(t, err, c.code)
			if len(env.repo.byID) != 0 {
				t.Fatalf("nothing should be stored")
			}
		})
	}
}

func TestRegister_HashFail_ReturnsHashFailed(t *testing.T) {
	t.Parallel()
	env := newSvcForTest(t)
	env.hasher.hashFn = func(string) (string, error) { return "", errors.New("boom") }

	_, err := env.svc.Register(context.Background(), RegisterInput{ID: "a@x.com", Name: "A", Password: "password-1"})
	requireErrCode(t, err, "hash_failed")
}

func TestRegister_RepoDown_WrapsInternal(t *testing.T) {
	t.Parallel()
	env := newSvcForTest(t)
	env.repo.getErr = errors.New("conn refused")

	_, err := env.svc.Register(context.Background(), RegisterInput{ID: "a@x.com", Name: "A", Password: "password-1"})
	requireErrCode(t, err, "internal_error")
}

func TestRegister_MailFailure_DoesNotFailRegistration(t *testing.T) {
	t.Parallel()
	env := newSvcForTest(t)
	env.mailer.err = errors.New("smtp down")

	res, err := env.svc.Register(context.Background(), RegisterInput{ID: "a@x.com", Name: "A", Password: "password-1"})
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if res.MailSent {
		t.Fatalf("MailSent should be false")
	}
	if _, ok := env.repo.byID["a@x.com"]; !ok {
		t.Fatalf("member should still be stored")
	}
	if !hasAudit(env.audits, "mail.dispatch_failed") {
		t.Fatalf("expected dispatch failure audit")
	}
}
