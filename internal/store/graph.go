// ABOUTME: Page, edge and graph-root persistence for SQLiteStore
// ABOUTME: Pending-comment listing joins author and page; the root row carries moderation and founder

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// FindOrCreatePage returns the page at url, creating it with title if absent.
func (s *SQLiteStore) FindOrCreatePage(ctx context.Context, url, title string) (*Page, error) {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pages (id, url, title, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING
	`, NewID(), url, title, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("inserting page: %w", err)
	}

	var (
		p         Page
		createdAt string
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT id, url, title, created_at FROM pages WHERE url = ?`, url,
	).Scan(&p.ID, &p.URL, &p.Title, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("querying page: %w", err)
	}
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

// CreateEdge inserts a new edge between an author and a page.
func (s *SQLiteStore) CreateEdge(ctx context.Context, edge *Edge) error {
	if edge.ID == "" {
		edge.ID = NewID()
	}
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO edges (id, kind, author_id, page_id, content, pending, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, edge.ID, string(edge.Kind), edge.AuthorID, edge.PageID, edge.Content,
		boolToInt(edge.Pending), formatTime(edge.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting edge: %w", err)
	}

	s.logger.Debug("created edge", "id", edge.ID, "kind", edge.Kind, "pending", edge.Pending)
	return nil
}

// GetEdge retrieves an edge by ID.
func (s *SQLiteStore) GetEdge(ctx context.Context, id string) (*Edge, error) {
	var (
		e         Edge
		kind      string
		pending   int
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, kind, author_id, page_id, content, pending, created_at
		FROM edges WHERE id = ?
	`, id).Scan(&e.ID, &kind, &e.AuthorID, &e.PageID, &e.Content, &pending, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying edge: %w", err)
	}
	e.Kind = EdgeKind(kind)
	e.Pending = pending != 0
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}

// SetEdgePending sets the pending flag on an edge. Setting the current value is not an error.
func (s *SQLiteStore) SetEdgePending(ctx context.Context, id string, pending bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE edges SET pending = ? WHERE id = ?`, boolToInt(pending), id)
	if err != nil {
		return fmt.Errorf("updating edge: %w", err)
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

// ListPendingComments returns every pending comment, oldest first.
func (s *SQLiteStore) ListPendingComments(ctx context.Context) ([]*PendingComment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.author_id, i.email, p.id, p.url, p.title, e.content, e.created_at
		FROM edges e
		JOIN identities i ON i.id = e.author_id
		JOIN pages p ON p.id = e.page_id
		WHERE e.kind = 'comment' AND e.pending = 1
		ORDER BY e.created_at, e.rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("querying pending comments: %w", err)
	}
	defer rows.Close()

	var result []*PendingComment
	for rows.Next() {
		var (
			c         PendingComment
			createdAt string
		)
		if err := rows.Scan(&c.CommentID, &c.AuthorID, &c.AuthorEmail, &c.PageID,
			&c.PageURL, &c.PageTitle, &c.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning pending comment: %w", err)
		}
		c.CreatedAt = parseTime(createdAt)
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pending comments: %w", err)
	}
	return result, nil
}

// GraphRoot reads the graph-root settings.
func (s *SQLiteStore) GraphRoot(ctx context.Context) (*GraphRoot, error) {
	var (
		root      GraphRoot
		moderated int
		founderID sql.NullString
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT comments_moderated, founder_id, updated_at FROM graph_root WHERE id = 1`,
	).Scan(&moderated, &founderID, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying graph root: %w", err)
	}
	root.CommentsModerated = moderated != 0
	root.FounderID = founderID.String
	root.UpdatedAt = parseTime(updatedAt)
	return &root, nil
}

// SaveGraphRoot persists the graph-root settings.
func (s *SQLiteStore) SaveGraphRoot(ctx context.Context, root *GraphRoot) error {
	root.UpdatedAt = time.Now()
	var founderID any
	if root.FounderID != "" {
		founderID = root.FounderID
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE graph_root SET comments_moderated = ?, founder_id = ?, updated_at = ? WHERE id = 1
	`, boolToInt(root.CommentsModerated), founderID, formatTime(root.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving graph root: %w", err)
	}

	s.logger.Info("saved graph root", "comments_moderated", root.CommentsModerated, "founder_id", root.FounderID)
	return nil
}
