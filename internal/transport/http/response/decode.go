package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/lmsworks/member-service/internal/domain"
)

// MaxBodyBytes caps member form payloads.
const MaxBodyBytes = 64 << 10

// DecodeJSON reads exactly one JSON object into dst. Unknown fields, an empty
// body, trailing values and oversized bodies are rejected as invalid_json.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return domain.ErrInvalidJSON(errors.New("empty body"))
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes+1))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.ErrInvalidJSON(err)
	}
	if dec.InputOffset() > MaxBodyBytes {
		return domain.ErrInvalidJSON(errors.New("body too large"))
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return domain.ErrInvalidJSON(errors.New("trailing data after JSON object"))
	}
	return nil
}
