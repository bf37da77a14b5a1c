// ABOUTME: Maps operation failures to HTTP status, machine code and caller-facing reason
// ABOUTME: Anything unrecognised is reported as an upstream failure

package gateway

import (
	"errors"
	"net/http"

	"github.com/2389/socialcore/internal/auth"
	"github.com/2389/socialcore/internal/identity"
	"github.com/2389/socialcore/internal/moderation"
	"github.com/2389/socialcore/internal/passcode"
	"github.com/2389/socialcore/internal/session"
	"github.com/2389/socialcore/internal/validate"
)

// Failure codes carried in the "code" field of error replies.
const (
	codeInvalidInput       = "invalid_input"
	codeSSODisabled        = "sso_disabled"
	codeInvalidToken       = "invalid_token"
	codeInvalidCredentials = "invalid_credentials"
	codeUnauthenticated    = "unauthenticated"
	codeDuplicate          = "duplicate"
	codeForbidden          = "forbidden"
	codeNotFound           = "not_found"
	codeNoActiveRequest    = "no_active_request"
	codeMismatched         = "mismatched"
	codeExpired            = "expired"
	codeUnknownEmail       = "unknown_email"
	codeUpstreamFailure    = "upstream_failure"
)

type failure struct {
	Status int
	Code   string
	Reason string
}

func classify(err error) failure {
	var ve *validate.Error
	switch {
	case errors.As(err, &ve):
		return failure{http.StatusBadRequest, codeInvalidInput, ve.Message}
	case errors.Is(err, identity.ErrSSODisabled):
		return failure{http.StatusForbidden, codeSSODisabled, err.Error()}
	case errors.Is(err, identity.ErrInvalidToken):
		return failure{http.StatusUnauthorized, codeInvalidToken, "Invalid token"}
	case errors.Is(err, identity.ErrInvalidCredentials):
		return failure{http.StatusUnauthorized, codeInvalidCredentials, "Information don't match records"}
	case errors.Is(err, session.ErrUnauthenticated):
		return failure{http.StatusUnauthorized, codeUnauthenticated, "No active session"}
	case errors.Is(err, identity.ErrDuplicateUsername), errors.Is(err, identity.ErrDuplicateEmail):
		return failure{http.StatusConflict, codeDuplicate, err.Error()}
	case errors.Is(err, auth.ErrForbidden):
		return failure{http.StatusForbidden, codeForbidden, "Invalid hash"}
	case errors.Is(err, identity.ErrNotFound):
		return failure{http.StatusNotFound, codeNotFound, "Invalid user"}
	case errors.Is(err, moderation.ErrNotFound):
		return failure{http.StatusNotFound, codeNotFound, "Invalid Comment ID."}
	case errors.Is(err, passcode.ErrNoActiveRequest):
		return failure{http.StatusBadRequest, codeNoActiveRequest, "No active reset request"}
	case errors.Is(err, passcode.ErrMismatched):
		return failure{http.StatusBadRequest, codeMismatched, "Code does not match."}
	case errors.Is(err, passcode.ErrExpired):
		return failure{http.StatusBadRequest, codeExpired, "Expired."}
	case errors.Is(err, passcode.ErrUnknownEmail):
		return failure{http.StatusNotFound, codeUnknownEmail, "This user is not registered"}
	default:
		return failure{http.StatusBadGateway, codeUpstreamFailure, "upstream failure"}
	}
}
