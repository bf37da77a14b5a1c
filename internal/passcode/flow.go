// ABOUTME: Passcode reset state machine: issue a six digit code by mail, verify it within a window
// ABOUTME: A successful verify binds the identity owning the email to the caller's session

package passcode

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/2389/socialcore/internal/mail"
	"github.com/2389/socialcore/internal/session"
	"github.com/2389/socialcore/internal/store"
)

// DefaultValidity is how long an issued code can be verified.
const DefaultValidity = 7 * time.Minute

// DefaultRetention is how long stores keep a record. Records outlive the
// validity window so a late verify reports ErrExpired, not ErrNoActiveRequest.
const DefaultRetention = 24 * time.Hour

const (
	codeMin = 100000
	codeMax = 999999

	mailSubject = "Password Reminder"
	mailBody    = "You may enter this 6 digit passcode: %s"
)

// Verify failures, in the order they are checked.
var (
	ErrNoActiveRequest = errors.New("no active reset request")
	ErrMismatched      = errors.New("code does not match")
	ErrExpired         = errors.New("code expired")
	ErrUnknownEmail    = errors.New("this user is not registered")
)

// IdentityLookup resolves an email to its identity.
type IdentityLookup interface {
	GetIdentityByEmail(ctx context.Context, email string) (*store.Identity, error)
}

// Options tune a Flow. Zero values select defaults.
type Options struct {
	Validity time.Duration
	// SingleUse deletes the record after a successful verify. Off by default,
	// so a code stays usable until it expires or is replaced.
	SingleUse bool
	Clock     func() time.Time
	Logger    *slog.Logger
}

// Flow issues and verifies reset passcodes.
type Flow struct {
	records    Store
	identities IdentityLookup
	mailer     mail.Mailer
	validity   time.Duration
	singleUse  bool
	now        func() time.Time
	logger     *slog.Logger
}

// NewFlow wires a Flow.
func NewFlow(records Store, identities IdentityLookup, mailer mail.Mailer, opts Options) *Flow {
	f := &Flow{
		records:    records,
		identities: identities,
		mailer:     mailer,
		validity:   opts.Validity,
		singleUse:  opts.SingleUse,
		now:        opts.Clock,
		logger:     opts.Logger,
	}
	if f.validity <= 0 {
		f.validity = DefaultValidity
	}
	if f.now == nil {
		f.now = time.Now
	}
	if f.logger == nil {
		f.logger = slog.Default().With("component", "passcode")
	}
	return f
}

// Validity returns the configured verification window.
func (f *Flow) Validity() time.Duration {
	return f.validity
}

// Request issues a fresh code for email, replacing any earlier one, and mails it.
// The code is issued whether or not the email belongs to an identity.
func (f *Flow) Request(ctx context.Context, email string) error {
	code, err := generateCode()
	if err != nil {
		return err
	}

	rec := Record{Code: code, IssuedAt: f.now()}
	if err := f.records.Put(ctx, Key(email), rec); err != nil {
		return fmt.Errorf("storing passcode: %w", err)
	}

	if err := f.mailer.Send(ctx, email, mailSubject, fmt.Sprintf(mailBody, code)); err != nil {
		return fmt.Errorf("delivering passcode: %w", err)
	}

	f.logger.Info("passcode issued", "key", Key(email))
	return nil
}

// Verify checks code against the latest record for email and, on success,
// binds the owning identity to scope. It returns the bound identity id.
func (f *Flow) Verify(ctx context.Context, scope session.Scope, email, code string) (string, error) {
	key := Key(email)

	rec, err := f.records.Get(ctx, key)
	if errors.Is(err, ErrNoRecord) {
		return "", ErrNoActiveRequest
	}
	if err != nil {
		return "", fmt.Errorf("loading passcode: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
		return "", ErrMismatched
	}

	if f.elapsed(rec) > f.validity {
		return "", ErrExpired
	}

	ident, err := f.identities.GetIdentityByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrUnknownEmail
	}
	if err != nil {
		return "", fmt.Errorf("resolving identity: %w", err)
	}

	if f.singleUse {
		if err := f.records.Delete(ctx, key); err != nil {
			return "", fmt.Errorf("consuming passcode: %w", err)
		}
	}

	session.Bind(scope, ident.ID)
	f.logger.Info("passcode verified", "identity_id", ident.ID)
	return ident.ID, nil
}

// elapsed measures the age of rec in whole seconds, the resolution the
// encoded record form keeps, so every backend closes the window together.
func (f *Flow) elapsed(rec Record) time.Duration {
	return time.Duration(f.now().Unix()-rec.IssuedAt.Unix()) * time.Second
}

// generateCode returns a uniformly random code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", fmt.Errorf("generating passcode: %w", err)
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}
