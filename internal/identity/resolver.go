// ABOUTME: Signup and login by password or SSO token, binding the identity to the session
// ABOUTME: SSO identities authenticate with a password derived from username and the shared key

package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/2389/socialcore/internal/auth"
	"github.com/2389/socialcore/internal/session"
	"github.com/2389/socialcore/internal/store"
	"github.com/2389/socialcore/internal/token"
	"github.com/2389/socialcore/internal/validate"
)

var (
	// ErrSSODisabled is returned by the token operations when no SSO key is configured.
	ErrSSODisabled = errors.New("single sign-on not allowed")
	// ErrInvalidCredentials covers unknown usernames, ambiguous matches and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateUsername is returned when signing up with a taken username.
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrDuplicateEmail is returned when signing up with an email already in use.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrNotFound is returned when the session names an identity that no longer exists.
	ErrNotFound = errors.New("invalid user")
)

// ErrInvalidToken is returned when an SSO token fails to decrypt or names another user.
var ErrInvalidToken = token.ErrInvalidToken

// TokenCodec is the SSO side of the resolver.
type TokenCodec interface {
	Decrypt(tok string) (string, error)
	DerivePassword(username string) string
}

// Options tune a Resolver.
type Options struct {
	// Codec enables the SSO operations. Nil disables them.
	Codec      TokenCodec
	BcryptCost int
	Logger     *slog.Logger
}

// Resolver authenticates callers and binds them to their session.
type Resolver struct {
	identities store.IdentityStore
	codec      TokenCodec
	cost       int
	logger     *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(identities store.IdentityStore, opts Options) *Resolver {
	r := &Resolver{
		identities: identities,
		codec:      opts.Codec,
		cost:       opts.BcryptCost,
		logger:     opts.Logger,
	}
	if r.cost == 0 {
		r.cost = bcrypt.DefaultCost
	}
	if r.logger == nil {
		r.logger = slog.Default().With("component", "identity")
	}
	return r
}

// SSOEnabled reports whether a shared key is configured.
func (r *Resolver) SSOEnabled() bool {
	return r.codec != nil
}

// Signup creates an identity with a user-chosen password and binds it to scope.
func (r *Resolver) Signup(ctx context.Context, scope session.Scope, username, email, password string) (*store.Identity, error) {
	if err := validate.Username(username); err != nil {
		return nil, err
	}
	if err := validate.Email(email); err != nil {
		return nil, err
	}
	if err := validate.Password(password); err != nil {
		return nil, err
	}
	return r.create(ctx, scope, username, email, password)
}

// SignupViaToken creates an identity vouched for by an SSO token. The token
// must decrypt to exactly username.
func (r *Resolver) SignupViaToken(ctx context.Context, scope session.Scope, username, email, tok string) (*store.Identity, error) {
	if r.codec == nil {
		return nil, ErrSSODisabled
	}
	if err := validate.Username(username); err != nil {
		return nil, err
	}
	if err := validate.Email(email); err != nil {
		return nil, err
	}

	vouched, err := r.codec.Decrypt(tok)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if vouched != username {
		r.logger.Warn("sso token username mismatch", "username", username)
		return nil, ErrInvalidToken
	}

	return r.create(ctx, scope, username, email, r.codec.DerivePassword(username))
}

func (r *Resolver) create(ctx context.Context, scope session.Scope, username, email, password string) (*store.Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	ident := &store.Identity{
		ID:           store.NewID(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := r.identities.CreateIdentity(ctx, ident); err != nil {
		switch {
		case errors.Is(err, store.ErrUsernameExists):
			return nil, ErrDuplicateUsername
		case errors.Is(err, store.ErrEmailExists):
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("creating identity: %w", err)
	}

	session.Bind(scope, ident.ID)
	r.logger.Info("identity signed up", "id", ident.ID, "username", username)
	return ident, nil
}

// Login authenticates by username and password and binds the identity to scope.
func (r *Resolver) Login(ctx context.Context, scope session.Scope, username, password string) (*store.Identity, error) {
	if err := validate.Username(username); err != nil {
		return nil, err
	}
	if err := validate.Password(password); err != nil {
		return nil, err
	}
	return r.login(ctx, scope, username, password)
}

// LoginViaToken authenticates the user an SSO token names.
func (r *Resolver) LoginViaToken(ctx context.Context, scope session.Scope, tok string) (*store.Identity, error) {
	if r.codec == nil {
		return nil, ErrSSODisabled
	}
	username, err := r.codec.Decrypt(tok)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return r.login(ctx, scope, username, r.codec.DerivePassword(username))
}

func (r *Resolver) login(ctx context.Context, scope session.Scope, username, password string) (*store.Identity, error) {
	matches, err := r.identities.FindIdentitiesByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("looking up identity: %w", err)
	}
	if len(matches) != 1 {
		if len(matches) > 1 {
			r.logger.Error("ambiguous username", "username", username, "matches", len(matches))
		}
		return nil, ErrInvalidCredentials
	}

	ident := matches[0]
	if err := bcrypt.CompareHashAndPassword([]byte(ident.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	session.Bind(scope, ident.ID)
	r.logger.Info("identity logged in", "id", ident.ID)
	return ident, nil
}

// Logout clears the session binding.
func (r *Resolver) Logout(scope session.Scope) {
	session.Clear(scope)
}

// Whoami is the caller's identity as seen by clients.
type Whoami struct {
	ID     string `json:"id"`
	Editor bool   `json:"editor"`
}

// WhoAmI returns the identity bound to scope.
func (r *Resolver) WhoAmI(ctx context.Context, scope session.Scope) (*Whoami, error) {
	id, err := session.Current(scope)
	if err != nil {
		return nil, err
	}
	if _, err := r.identities.GetIdentity(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading identity: %w", err)
	}

	editor, err := auth.IsEditor(ctx, r.identities, id)
	if err != nil {
		return nil, err
	}
	return &Whoami{ID: id, Editor: editor}, nil
}
