// ABOUTME: Authorization gate for administrative operations
// ABOUTME: Legacy founder-hash check plus a role check on the session identity

package auth

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/2389/socialcore/internal/session"
	"github.com/2389/socialcore/internal/store"
)

// ErrForbidden is returned when a caller may not perform an administrative operation.
var ErrForbidden = errors.New("forbidden")

// Credentials are what an administrative request presents.
type Credentials struct {
	// Hash is the legacy founder hash supplied with the request, if any.
	Hash string
	// Scope is the caller's session, if any.
	Scope session.Scope
}

// Authorizer decides whether a request may administer the service.
// Implementations return nil or ErrForbidden.
type Authorizer interface {
	Authorize(ctx context.Context, creds Credentials) error
}

// Digest computes the legacy founder hash: md5 hex of lowercase(email:password).
func Digest(email, password string) string {
	sum := md5.Sum([]byte(strings.ToLower(email + ":" + password)))
	return hex.EncodeToString(sum[:])
}

// Authorize reports whether suppliedHash equals Digest(founderEmail, founderPassword).
func Authorize(suppliedHash, founderEmail, founderPassword string) bool {
	want := Digest(founderEmail, founderPassword)
	return subtle.ConstantTimeCompare([]byte(suppliedHash), []byte(want)) == 1
}

// HashGate is the static shared-secret check. Anyone who has seen the hash
// can use it indefinitely; keep it only where existing clients depend on it.
type HashGate struct {
	FounderEmail    string
	FounderPassword string
}

func (g HashGate) Authorize(_ context.Context, creds Credentials) error {
	if g.FounderEmail == "" || g.FounderPassword == "" || creds.Hash == "" {
		return ErrForbidden
	}
	if !Authorize(creds.Hash, g.FounderEmail, g.FounderPassword) {
		return ErrForbidden
	}
	return nil
}

// RoleGate admits a session identity that is the founder or holds the editor role.
type RoleGate struct {
	Identities store.IdentityStore
}

func (g RoleGate) Authorize(ctx context.Context, creds Credentials) error {
	id, err := session.Current(creds.Scope)
	if err != nil {
		return ErrForbidden
	}
	ok, err := IsEditor(ctx, g.Identities, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// IsEditor reports whether id is the founder or has the editor role.
// An id with no identity behind it is not an editor.
func IsEditor(ctx context.Context, identities store.IdentityStore, id string) (bool, error) {
	ident, err := identities.GetIdentity(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading identity: %w", err)
	}
	if ident.Editor {
		return true, nil
	}

	founder, err := identities.Founder(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading founder: %w", err)
	}
	return founder.ID == ident.ID, nil
}

// AnyOf admits a request if any of its gates does.
type AnyOf []Authorizer

func (a AnyOf) Authorize(ctx context.Context, creds Credentials) error {
	var lastErr error = ErrForbidden
	for _, g := range a {
		err := g.Authorize(ctx, creds)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrForbidden) {
			lastErr = err
		}
	}
	return lastErr
}

// Mode selects which gates New assembles.
type Mode string

const (
	ModeHash   Mode = "hash"
	ModeRole   Mode = "role"
	ModeEither Mode = "either"
)

// New builds the Authorizer for mode.
func New(mode Mode, founderEmail, founderPassword string, identities store.IdentityStore) (Authorizer, error) {
	hash := HashGate{FounderEmail: founderEmail, FounderPassword: founderPassword}
	role := RoleGate{Identities: identities}

	switch mode {
	case ModeHash, "":
		return hash, nil
	case ModeRole:
		return role, nil
	case ModeEither:
		return AnyOf{hash, role}, nil
	default:
		return nil, fmt.Errorf("unknown admin mode %q", mode)
	}
}
