// ABOUTME: Identity node persistence for SQLiteStore
// ABOUTME: Username/email uniqueness, lookups used by login and passcode reset, founder resolution

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const identityColumns = `id, username, email, password_hash, is_editor, created_at`

// CreateIdentity inserts a new identity.
// Returns ErrUsernameExists or ErrEmailExists on a uniqueness conflict.
func (s *SQLiteStore) CreateIdentity(ctx context.Context, identity *Identity) error {
	if identity.ID == "" {
		identity.ID = NewID()
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identities (id, username, email, password_hash, is_editor, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, identity.ID, identity.Username, identity.Email, identity.PasswordHash,
		boolToInt(identity.Editor), formatTime(identity.CreatedAt))
	if err != nil {
		switch {
		case isUniqueConstraintError(err, "identities.username"):
			return ErrUsernameExists
		case isUniqueConstraintError(err, "identities.email"):
			return ErrEmailExists
		}
		return fmt.Errorf("inserting identity: %w", err)
	}

	s.logger.Info("created identity", "id", identity.ID, "username", identity.Username)
	return nil
}

// GetIdentity retrieves an identity by ID.
func (s *SQLiteStore) GetIdentity(ctx context.Context, id string) (*Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = ?`, id)
	return scanIdentity(row)
}

// FindIdentitiesByUsername returns every identity with the exact username.
func (s *SQLiteStore) FindIdentitiesByUsername(ctx context.Context, username string) ([]*Identity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE username = ?`, username)
	if err != nil {
		return nil, fmt.Errorf("querying identities: %w", err)
	}
	defer rows.Close()

	var result []*Identity
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating identities: %w", err)
	}
	return result, nil
}

// GetIdentityByEmail retrieves an identity by email, ignoring case.
func (s *SQLiteStore) GetIdentityByEmail(ctx context.Context, email string) (*Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email = ? COLLATE NOCASE`, email)
	return scanIdentity(row)
}

// SetEditor grants or revokes the editor role.
func (s *SQLiteStore) SetEditor(ctx context.Context, id string, editor bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE identities SET is_editor = ? WHERE id = ?`, boolToInt(editor), id)
	if err != nil {
		return fmt.Errorf("updating identity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Founder returns the identity recorded as founder on the graph root.
func (s *SQLiteStore) Founder(ctx context.Context) (*Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT i.id, i.username, i.email, i.password_hash, i.is_editor, i.created_at
		FROM graph_root r JOIN identities i ON i.id = r.founder_id
		WHERE r.id = 1
	`)
	return scanIdentity(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*Identity, error) {
	var (
		ident     Identity
		editor    int
		createdAt string
	)
	err := row.Scan(&ident.ID, &ident.Username, &ident.Email, &ident.PasswordHash, &editor, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning identity: %w", err)
	}
	ident.Editor = editor != 0
	ident.CreatedAt = parseTime(createdAt)
	return &ident, nil
}
