// ABOUTME: Founder bootstrap: creates the distinguished identity and records it on the graph root
// ABOUTME: Idempotent; an existing founder or an identity with the founder email is reused

package identity

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/2389/socialcore/internal/store"
	"github.com/2389/socialcore/internal/validate"
)

// EnsureFounder makes sure the graph root names a founder. It returns the
// founder and whether this call created or assigned it.
func (r *Resolver) EnsureFounder(ctx context.Context, graph store.GraphStore, username, email, password string) (*store.Identity, bool, error) {
	founder, err := r.identities.Founder(ctx)
	if err == nil {
		return founder, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("loading founder: %w", err)
	}

	founder, err = r.identities.GetIdentityByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		founder, err = r.createFounder(ctx, username, email, password)
	}
	if err != nil {
		return nil, false, err
	}

	root, err := graph.GraphRoot(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("loading graph root: %w", err)
	}
	root.FounderID = founder.ID
	if err := graph.SaveGraphRoot(ctx, root); err != nil {
		return nil, false, fmt.Errorf("recording founder: %w", err)
	}

	r.logger.Info("founder recorded", "id", founder.ID, "email", founder.Email)
	return founder, true, nil
}

func (r *Resolver) createFounder(ctx context.Context, username, email, password string) (*store.Identity, error) {
	if err := validate.Username(username); err != nil {
		return nil, err
	}
	if err := validate.Email(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, &validate.Error{Field: "password", Message: "password is required"}
	}

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
		return nil, fmt.Errorf("creating founder: %w", err)
	}
	return ident, nil
}
