// ABOUTME: Comment moderation: pending listing, approval, and the service-wide moderation switch
// ABOUTME: Turning moderation off approves every pending comment best-effort and reports partial failure

package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/socialcore/internal/store"
)

// ErrNotFound is returned when a comment id does not name a comment edge.
var ErrNotFound = errors.New("comment not found")

// Failure is one comment the bulk approval could not approve.
type Failure struct {
	CommentID string
	Err       error
}

// BulkResult reports the outcome of approving all pending comments.
type BulkResult struct {
	Approved []string
	Failed   []Failure
}

// Engine owns comment pending state and the moderation setting on the graph root.
type Engine struct {
	graph  store.GraphStore
	logger *slog.Logger
}

// NewEngine creates an Engine over graph.
func NewEngine(graph store.GraphStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default().With("component", "moderation")
	}
	return &Engine{graph: graph, logger: logger}
}

// ListPending returns pending comments oldest first, read fresh from the store.
func (e *Engine) ListPending(ctx context.Context) ([]*store.PendingComment, error) {
	comments, err := e.graph.ListPendingComments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing pending comments: %w", err)
	}
	return comments, nil
}

// Approve clears the pending flag on a comment. Approving an approved comment succeeds.
func (e *Engine) Approve(ctx context.Context, commentID string) error {
	edge, err := e.graph.GetEdge(ctx, commentID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("loading comment: %w", err)
	}
	if edge.Kind != store.EdgeKindComment {
		return ErrNotFound
	}
	if !edge.Pending {
		return nil
	}

	if err := e.graph.SetEdgePending(ctx, commentID, false); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("approving comment: %w", err)
	}
	e.logger.Info("comment approved", "comment_id", commentID)
	return nil
}

// Moderation reports whether new comments start out pending.
func (e *Engine) Moderation(ctx context.Context) (bool, error) {
	root, err := e.graph.GraphRoot(ctx)
	if err != nil {
		return false, fmt.Errorf("loading graph root: %w", err)
	}
	return root.CommentsModerated, nil
}

// SetModeration switches comment moderation. Disabling it first approves
// every pending comment; individual failures are logged and collected in
// the result, and the setting is persisted regardless of them. Enabling
// only persists the setting.
func (e *Engine) SetModeration(ctx context.Context, enabled bool) (*BulkResult, error) {
	result := &BulkResult{}

	if !enabled {
		pending, err := e.graph.ListPendingComments(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing pending comments: %w", err)
		}
		for _, c := range pending {
			if err := e.Approve(ctx, c.CommentID); err != nil {
				e.logger.Error("can't approve pending comment", "comment_id", c.CommentID, "error", err)
				result.Failed = append(result.Failed, Failure{CommentID: c.CommentID, Err: err})
				continue
			}
			result.Approved = append(result.Approved, c.CommentID)
		}
	}

	root, err := e.graph.GraphRoot(ctx)
	if err != nil {
		return result, fmt.Errorf("loading graph root: %w", err)
	}
	root.CommentsModerated = enabled
	if err := e.graph.SaveGraphRoot(ctx, root); err != nil {
		return result, fmt.Errorf("saving moderation setting: %w", err)
	}

	e.logger.Info("comment moderation set",
		"enabled", enabled,
		"approved", len(result.Approved),
		"failed", len(result.Failed),
	)
	return result, nil
}

// Submit records a comment by authorID on the page at pageURL. It starts
// pending when moderation is on at the time of submission.
func (e *Engine) Submit(ctx context.Context, authorID, pageURL, pageTitle, content string) (*store.Edge, error) {
	moderated, err := e.Moderation(ctx)
	if err != nil {
		return nil, err
	}

	page, err := e.graph.FindOrCreatePage(ctx, pageURL, pageTitle)
	if err != nil {
		return nil, fmt.Errorf("resolving page: %w", err)
	}

	edge := &store.Edge{
		Kind:     store.EdgeKindComment,
		AuthorID: authorID,
		PageID:   page.ID,
		Content:  content,
		Pending:  moderated,
	}
	if err := e.graph.CreateEdge(ctx, edge); err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}
	return edge, nil
}
