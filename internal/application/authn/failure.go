package authn

import (
	"errors"

	"github.com/lmsworks/member-service/internal/domain"
)

// LoginFailure maps any login error to the error a client may see.
//
// Unknown ids and wrong passwords collapse to one message. Not-verified stays
// distinct so the user knows to look for the activation mail; this does tell
// a caller that the id exists.
func LoginFailure(err error) *domain.Error {
	var de *domain.Error
	if !errors.As(err, &de) {
		return domain.ErrInternal(err)
	}
	switch de.Code {
	case domain.CodeInvalidCredentials, domain.CodeMemberNotFound:
		return domain.ErrInvalidCredentials()
	case domain.CodeEmailNotVerified:
		return domain.ErrEmailNotVerified()
	case domain.CodeRateLimited:
		return de
	}
	if de.Kind == domain.KindValidation {
		return domain.ErrInvalidCredentials()
	}
	return domain.ErrInternal(err)
}
