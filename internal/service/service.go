// ABOUTME: Facade exposing the identity, reset and moderation operations to transports
// ABOUTME: Validates input and authorizes administrative calls before touching any state

package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/2389/socialcore/internal/auth"
	"github.com/2389/socialcore/internal/identity"
	"github.com/2389/socialcore/internal/metrics"
	"github.com/2389/socialcore/internal/moderation"
	"github.com/2389/socialcore/internal/passcode"
	"github.com/2389/socialcore/internal/session"
	"github.com/2389/socialcore/internal/store"
	"github.com/2389/socialcore/internal/validate"
)

// Deps are the collaborators a Service is built from.
type Deps struct {
	Identity   *identity.Resolver
	Passcode   *passcode.Flow
	Moderation *moderation.Engine
	Gate       auth.Authorizer
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Service implements every exposed operation.
type Service struct {
	identity   *identity.Resolver
	passcode   *passcode.Flow
	moderation *moderation.Engine
	gate       auth.Authorizer
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New creates a Service.
func New(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default().With("component", "service")
	}
	return &Service{
		identity:   d.Identity,
		passcode:   d.Passcode,
		moderation: d.Moderation,
		gate:       d.Gate,
		metrics:    d.Metrics,
		logger:     logger,
	}
}

// Signup registers a new identity with a chosen password.
func (s *Service) Signup(ctx context.Context, scope session.Scope, username, email, password string) (*store.Identity, error) {
	ident, err := s.identity.Signup(ctx, scope, username, email, password)
	s.metrics.Auth("signup", outcome(err))
	return ident, err
}

// SignupViaToken registers a new identity vouched for by an SSO token.
func (s *Service) SignupViaToken(ctx context.Context, scope session.Scope, username, email, tok string) (*store.Identity, error) {
	ident, err := s.identity.SignupViaToken(ctx, scope, username, email, tok)
	s.metrics.Auth("signup_token", outcome(err))
	return ident, err
}

// Login authenticates with username and password.
func (s *Service) Login(ctx context.Context, scope session.Scope, username, password string) (*store.Identity, error) {
	ident, err := s.identity.Login(ctx, scope, username, password)
	s.metrics.Auth("login", outcome(err))
	return ident, err
}

// LoginViaToken authenticates with an SSO token.
func (s *Service) LoginViaToken(ctx context.Context, scope session.Scope, tok string) (*store.Identity, error) {
	ident, err := s.identity.LoginViaToken(ctx, scope, tok)
	s.metrics.Auth("login_token", outcome(err))
	return ident, err
}

// Logout clears the caller's session.
func (s *Service) Logout(scope session.Scope) {
	s.identity.Logout(scope)
}

// WhoAmI reports the caller's identity and editor status.
func (s *Service) WhoAmI(ctx context.Context, scope session.Scope) (*identity.Whoami, error) {
	return s.identity.WhoAmI(ctx, scope)
}

// RequestReset mails a passcode to email.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	if err := validate.Email(email); err != nil {
		return err
	}
	err := s.passcode.Request(ctx, email)
	s.metrics.PasscodeRequest(outcome(err))
	return err
}

// VerifyReset checks a passcode and binds the owning identity to scope.
func (s *Service) VerifyReset(ctx context.Context, scope session.Scope, email, code string) (string, error) {
	if err := validate.Email(email); err != nil {
		return "", err
	}
	if err := validate.Passcode(code); err != nil {
		return "", err
	}
	id, err := s.passcode.Verify(ctx, scope, email, code)
	s.metrics.PasscodeVerify(outcome(err))
	return id, err
}

// ListPendingComments returns comments awaiting approval.
func (s *Service) ListPendingComments(ctx context.Context, creds auth.Credentials) ([]*store.PendingComment, error) {
	if err := s.Authorize(ctx, creds); err != nil {
		return nil, err
	}
	return s.moderation.ListPending(ctx)
}

// ApproveComment publishes one pending comment.
func (s *Service) ApproveComment(ctx context.Context, creds auth.Credentials, commentID string) error {
	if err := s.Authorize(ctx, creds); err != nil {
		return err
	}
	if err := validate.ID("comment_id", commentID); err != nil {
		return err
	}
	err := s.moderation.Approve(ctx, commentID)
	if err == nil {
		s.metrics.Approval("single", "ok", 1)
	}
	return err
}

// SetModeration switches comment moderation on or off.
func (s *Service) SetModeration(ctx context.Context, creds auth.Credentials, enabled bool) (*moderation.BulkResult, error) {
	if err := s.Authorize(ctx, creds); err != nil {
		return nil, err
	}
	res, err := s.moderation.SetModeration(ctx, enabled)
	if res != nil {
		s.metrics.Approval("bulk", "ok", len(res.Approved))
		s.metrics.Approval("bulk", "failed", len(res.Failed))
	}
	return res, err
}

// GetModeration reports whether comment moderation is on.
func (s *Service) GetModeration(ctx context.Context, creds auth.Credentials) (bool, error) {
	if err := s.Authorize(ctx, creds); err != nil {
		return false, err
	}
	return s.moderation.Moderation(ctx)
}

// SubmitComment records a comment by the session identity.
func (s *Service) SubmitComment(ctx context.Context, scope session.Scope, pageURL, pageTitle, content string) (*store.Edge, error) {
	authorID, err := session.Current(scope)
	if err != nil {
		return nil, err
	}
	if err := validate.Required("url", pageURL); err != nil {
		return nil, err
	}
	if err := validate.Required("content", content); err != nil {
		return nil, err
	}
	return s.moderation.Submit(ctx, authorID, pageURL, pageTitle, content)
}

// Authorize runs the admin gate alone.
func (s *Service) Authorize(ctx context.Context, creds auth.Credentials) error {
	err := s.gate.Authorize(ctx, creds)
	if err != nil && !errors.Is(err, auth.ErrForbidden) {
		s.logger.Error("authorization check failed", "error", err)
	}
	return err
}

// outcome labels an error for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case validate.IsError(err):
		return "invalid_input"
	case errors.Is(err, identity.ErrSSODisabled):
		return "sso_disabled"
	case errors.Is(err, identity.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, identity.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, identity.ErrDuplicateUsername), errors.Is(err, identity.ErrDuplicateEmail):
		return "duplicate"
	case errors.Is(err, passcode.ErrNoActiveRequest):
		return "no_active_request"
	case errors.Is(err, passcode.ErrMismatched):
		return "mismatched"
	case errors.Is(err, passcode.ErrExpired):
		return "expired"
	case errors.Is(err, passcode.ErrUnknownEmail):
		return "unknown_email"
	default:
		return "error"
	}
}
