package http_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/lmsworks/member-service/internal/application/authn"
	"github.com/lmsworks/member-service/internal/application/member"
	"github.com/lmsworks/member-service/internal/domain"
	"github.com/lmsworks/member-service/internal/transport/http/middleware"
)

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

// mustReadJSON decodes the {"data": ...} envelope from r into out.
func mustReadJSON(t *testing.T, r io.Reader, out any) {
	t.Helper()

	raw, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	wrapped := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(raw, &wrapped); err != nil || len(wrapped.Data) == 0 {
		t.Fatalf("decode json failed; body=%s", string(raw))
	}
	if err := json.Unmarshal(wrapped.Data, out); err != nil {
		t.Fatalf("decode wrapped.data failed; body=%s err=%v", string(raw), err)
	}
}

// mustErrorCode returns error.code from an error envelope.
func mustErrorCode(t *testing.T, r io.Reader) string {
	t.Helper()

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(r)
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode error body: %v; body=%s", err, string(raw))
	}
	return body.Error.Code
}

// readCookie finds cookie by name from response headers.
func readCookie(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// withSession injects a logged-in session the way LoadSession would.
func withSession(req *http.Request, memberID string, roles ...domain.Role) *http.Request {
	if len(roles) == 0 {
		roles = []domain.Role{domain.RoleUser}
	}
	s := authn.Session{
		MemberID:  memberID,
		Roles:     roles,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	return req.WithContext(middleware.WithSession(req.Context(), s, "tok-"+memberID))
}

// fakeMemberService records inputs and returns canned results.
type fakeMemberService struct {
	registerIn  member.RegisterInput
	registerRes member.RegisterResult
	registerErr error

	verifiedToken string
	verifyErr     error

	resentID  string
	resendErr error

	resetIn       member.SendResetPasswordInput
	sendResetErr  error
	checkedToken  string
	checkResetErr error
	resetToken    string
	resetPassword string
	resetErr      error

	listFilter domain.MemberFilter
	listPage   domain.MemberPage
	listErr    error

	detailID  string
	detail    member.MemberDetail
	detailErr error

	historyID    string
	historyLimit int
	history      []domain.LoginHistory
	historyErr   error
}

func (f *fakeMemberService) Register(_ context.Context, in member.RegisterInput) (member.RegisterResult, error) {
	f.registerIn = in
	return f.registerRes, f.registerErr
}

func (f *fakeMemberService) VerifyEmail(_ context.Context, token string) error {
	f.verifiedToken = token
	return f.verifyErr
}

func (f *fakeMemberService) ResendVerification(_ context.Context, id string) error {
	f.resentID = id
	return f.resendErr
}

func (f *fakeMemberService) SendResetPassword(_ context.Context, in member.SendResetPasswordInput) error {
	f.resetIn = in
	return f.sendResetErr
}

func (f *fakeMemberService) CheckResetPassword(_ context.Context, token string) error {
	f.checkedToken = token
	return f.checkResetErr
}

func (f *fakeMemberService) ResetPassword(_ context.Context, token, pw string) error {
	f.resetToken = token
	f.resetPassword = pw
	return f.resetErr
}

func (f *fakeMemberService) ListMembers(_ context.Context, filter domain.MemberFilter) (domain.MemberPage, error) {
	f.listFilter = filter
	return f.listPage, f.listErr
}

func (f *fakeMemberService) MemberDetail(_ context.Context, id string) (member.MemberDetail, error) {
	f.detailID = id
	return f.detail, f.detailErr
}

func (f *fakeMemberService) LoginHistory(_ context.Context, id string, limit int) ([]domain.LoginHistory, error) {
	f.historyID = id
	f.historyLimit = limit
	return f.history, f.historyErr
}

type fakeAuthenticator struct {
	loginIn  authn.LoginInput
	session  authn.Session
	loginErr error

	loggedOut []string
	logoutErr error
}

func (f *fakeAuthenticator) Login(_ context.Context, in authn.LoginInput) (authn.Session, error) {
	f.loginIn = in
	if f.loginErr != nil {
		return authn.Session{}, f.loginErr
	}
	return f.session, nil
}

func (f *fakeAuthenticator) Logout(_ context.Context, token string) error {
	f.loggedOut = append(f.loggedOut, token)
	return f.logoutErr
}

type auditCall struct {
	kind     string
	memberID string
	reason   string
}

type fakeAudit struct {
	calls []auditCall
}

func (a *fakeAudit) LoginSucceeded(_ context.Context, id string) {
	a.calls = append(a.calls, auditCall{kind: "login_succeeded", memberID: id})
}

func (a *fakeAudit) LoginFailed(_ context.Context, id, reason string) {
	a.calls = append(a.calls, auditCall{kind: "login_failed", memberID: id, reason: reason})
}

func (a *fakeAudit) Logout(_ context.Context, id string) {
	a.calls = append(a.calls, auditCall{kind: "logout", memberID: id})
}
