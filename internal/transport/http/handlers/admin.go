package http_handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lmsworks/member-service/internal/domain"
	"github.com/lmsworks/member-service/internal/transport/http/dto"
	"github.com/lmsworks/member-service/internal/transport/http/response"
)

type AdminHandler struct {
	svc MemberService
}

func NewAdminHandler(svc MemberService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// ListMembers handles GET /admin/member/list
func (h *AdminHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	q, err := bindMemberListQuery(r.URL.Query())
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(q); err != nil {
		response.WriteError(w, r, err)
		return
	}

	page, err := h.svc.ListMembers(r.Context(), q.Filter())
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewMemberPageData(page))
}

// MemberDetail handles GET /admin/member/detail?userId=
func (h *AdminHandler) MemberDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("userId"))
	if id == "" {
		response.WriteError(w, r, domain.ErrMissingField("userId"))
		return
	}

	d, err := h.svc.MemberDetail(r.Context(), id)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewMemberDetailData(d.Member, d.History))
}

// LoginHistory handles GET /admin/member/login-history?userId=&limit=
func (h *AdminHandler) LoginHistory(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	id := strings.TrimSpace(v.Get("userId"))
	if id == "" {
		response.WriteError(w, r, domain.ErrMissingField("userId"))
		return
	}
	limit, err := queryInt(v, "limit")
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	hist, err := h.svc.LoginHistory(r.Context(), id, limit)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewLoginHistoryData(hist))
}

func bindMemberListQuery(v url.Values) (dto.MemberListQuery, error) {
	q := dto.MemberListQuery{
		SearchType:  strings.TrimSpace(v.Get("searchType")),
		SearchValue: v.Get("searchValue"),
	}
	var err error
	if q.Page, err = queryInt(v, "page"); err != nil {
		return q, err
	}
	if q.PageSize, err = queryInt(v, "pageSize"); err != nil {
		return q, err
	}
	return q, nil
}

func queryInt(v url.Values, key string) (int, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ErrInvalidField(key, "must be an integer")
	}
	return n, nil
}
