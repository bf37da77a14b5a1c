// ABOUTME: HTTP handlers exposing signup, login, reset and moderation operations
// ABOUTME: Inputs come from query or form values; every reply uses the success/reason envelope

package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"

	"github.com/2389/socialcore/internal/auth"
	"github.com/2389/socialcore/internal/metrics"
	"github.com/2389/socialcore/internal/service"
	"github.com/2389/socialcore/internal/session"
	"github.com/2389/socialcore/internal/store"
	"github.com/2389/socialcore/internal/validate"
)

// SignupRequest is decoded from POST /signup.
type SignupRequest struct {
	Username string `schema:"username"`
	Email    string `schema:"email"`
	Password string `schema:"password"`
}

// SignupViaTokenRequest is decoded from POST /signupViaToken.
type SignupViaTokenRequest struct {
	Username string `schema:"username"`
	Email    string `schema:"email"`
	Token    string `schema:"token"`
}

// LoginRequest is decoded from POST /login.
type LoginRequest struct {
	Username string `schema:"username"`
	Password string `schema:"password"`
}

// LoginViaTokenRequest is decoded from POST /loginViaToken.
type LoginViaTokenRequest struct {
	Token string `schema:"token"`
}

// ResetRequest is decoded from POST /resetPassword.
type ResetRequest struct {
	Email string `schema:"email"`
}

// VerifyResetRequest is decoded from POST /verifyReset.
type VerifyResetRequest struct {
	Email string `schema:"email"`
	Code  string `schema:"code"`
}

// AdminRequest carries the legacy founder hash accepted by every admin route.
type AdminRequest struct {
	Hash string `schema:"hash"`
}

// ApproveRequest is decoded from POST /approvePendingComment.
type ApproveRequest struct {
	Hash      string `schema:"hash"`
	CommentID string `schema:"comment_id"`
}

// ModerationRequest is decoded from POST /setCommentModeration. Moderated
// stays a string so a missing value can be told apart from false.
type ModerationRequest struct {
	Hash      string `schema:"hash"`
	Moderated string `schema:"moderated"`
}

// CommentRequest is decoded from POST /addComment.
type CommentRequest struct {
	URL     string `schema:"url"`
	Title   string `schema:"title"`
	Content string `schema:"content"`
}

// PendingCommentResponse describes one comment awaiting approval.
type PendingCommentResponse struct {
	CommentID   string `json:"comment_id"`
	AuthorID    string `json:"author_id"`
	AuthorEmail string `json:"author_email"`
	PageID      string `json:"page_id"`
	PageURL     string `json:"page_url"`
	PageTitle   string `json:"page_title"`
	Comment     string `json:"comment"`
	CreatedAt   string `json:"created_at"`
}

// FailureResponse describes a comment the bulk approval could not publish.
type FailureResponse struct {
	CommentID string `json:"comment_id"`
	Reason    string `json:"reason"`
}

// API serves the HTTP surface over a service.Service.
type API struct {
	svc      *service.Service
	sessions session.Provider
	metrics  *metrics.Metrics
	decoder  *schema.Decoder
	logger   *slog.Logger
}

// NewAPI creates an API.
func NewAPI(svc *service.Service, sessions session.Provider, m *metrics.Metrics, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default().With("component", "api")
	}
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	return &API{svc: svc, sessions: sessions, metrics: m, decoder: decoder, logger: logger}
}

// Routes registers every operation on r.
func (a *API) Routes(r *mux.Router) {
	r.HandleFunc("/signup", a.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/signupViaToken", a.handleSignupViaToken).Methods(http.MethodPost)
	r.HandleFunc("/login", a.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/loginViaToken", a.handleLoginViaToken).Methods(http.MethodPost)
	r.HandleFunc("/logout", a.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/whoami", a.handleWhoAmI).Methods(http.MethodGet)
	r.HandleFunc("/resetPassword", a.handleResetPassword).Methods(http.MethodPost)
	r.HandleFunc("/verifyReset", a.handleVerifyReset).Methods(http.MethodPost)
	r.HandleFunc("/getPendingComments", a.handleGetPendingComments).Methods(http.MethodGet)
	r.HandleFunc("/approvePendingComment", a.handleApprovePendingComment).Methods(http.MethodPost)
	r.HandleFunc("/setCommentModeration", a.handleSetCommentModeration).Methods(http.MethodPost)
	r.HandleFunc("/getCommentModeration", a.handleGetCommentModeration).Methods(http.MethodGet)
	r.HandleFunc("/addComment", a.handleAddComment).Methods(http.MethodPost)
}

// decode fills dst from the request's query and form values.
func (a *API) decode(r *http.Request, dst interface{}) error {
	if err := r.ParseForm(); err != nil {
		return &validate.Error{Field: "request", Message: "malformed request"}
	}
	if err := a.decoder.Decode(dst, r.Form); err != nil {
		return &validate.Error{Field: "request", Message: "malformed request"}
	}
	return nil
}

// open loads the caller's session, replying with an error when it cannot.
func (a *API) open(w http.ResponseWriter, r *http.Request) (session.RequestScope, bool) {
	scope, err := a.sessions.Open(r)
	if err != nil {
		a.sendError(w, err)
		return nil, false
	}
	return scope, true
}

// succeed flushes scope, when given, and writes a success envelope with fields.
func (a *API) succeed(w http.ResponseWriter, scope session.RequestScope, fields map[string]interface{}) {
	if scope != nil {
		if err := scope.Save(w); err != nil {
			a.sendError(w, err)
			return
		}
	}
	body := map[string]interface{}{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

// sendError writes a failure envelope for err.
func (a *API) sendError(w http.ResponseWriter, err error) {
	f := classify(err)
	if f.Code == codeUpstreamFailure {
		a.logger.Error("request failed", "error", err)
	}
	writeJSON(w, f.Status, map[string]interface{}{
		"success": false,
		"reason":  f.Reason,
		"code":    f.Code,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := a.decode(r, &req); err != nil {
		a.sendError(w, err)
		return
	}
	scope, ok := a.open(w, r)
	if !ok {
		return
	}
	ident, err := a.svc.Signup(r.Context(), scope, req.Username, req.Email, req.Password)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.succeed(w, scope, map[string]interface{}{"id": ident.ID})
}

func (a *API) handleSignupViaToken(w http.ResponseWriter, r *http.Request) {
	var req SignupViaTokenRequest
	if err := a.decode(r, &req); err != nil {
		a.sendError(w, err)
		return
	}
	scope, ok := a.open(w, r)
	if !ok {
		return
	}
	ident, err := a.svc.SignupViaToken(r.Context(), scope, req.Username, req.Email, req.Token)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.succeed(w, scope, map[string]interface{}{"id": ident.ID})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := a.decode(r, &req); err != nil {
		a.sendError(w, err)
		return
	}
	scope, ok := a.open(w, r)
	if !ok {
		return
	}
	ident, err := a.svc.Login(r.Context(), scope, req.Username, req.Password)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.succeed(w, scope, map[string]interface{}{"id": ident.ID})
}

func (a *API) handleLoginViaToken(w http.ResponseWriter, r *http.Request) {
	var req LoginViaTokenRequest
	if err := a.decode(r, &req); err != nil {
		a.sendError(w, err)
		return
	}
	scope, ok := a.open(w, r)
	if !ok {
		return
	}
	ident, err := a.svc.LoginViaToken(r.Context(), scope, req.Token)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.succeed(w, scope, map[string]interface{}{"id": ident.ID})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	scope, ok := a.open(w, r)
	if !ok {
		return
	}
	a.svc.Logout(scope)
	a.succeed(w, scope, nil)
}

func (a *API) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	scope, ok := a.open(w, r)
	if !ok {
		return
	}
	who, err := a.svc.WhoAmI(r.Context(), scope)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.succeed(w, nil, map[string]interface{}{"id": who.ID, "editor": who.Editor})
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := a.decode(r, &req); err != nil {
		a.sendError(w, err)
		return
	}
	if err := a.svc.RequestReset(r.Context(), req.Email); err != nil {
		a.sendError(w, err)
		return
	}
	a.succeed(w, nil, nil)
}

func (a *API) handleVerifyReset(w http.ResponseWriter, r *http.Request) {
	var req VerifyResetRequest
	if err := a.decode(r, &req); err != nil {
		a.sendError(w, err)
		return
	}
	scope, ok := a.open(w, r)
	if !ok {
		return
	}
	id, err := a.svc.VerifyReset(r.Context(), scope, req.Email, req.Code)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.succeed(w, scope, map[string]interface{}{"id": id})
}

// credentials gathers both the legacy hash and the session for the admin gate.
func (a *API) credentials(w http.ResponseWriter, r *http.Request, hash string) (auth.Credentials, bool) {
	scope, ok := a.open(w, r)
	if !ok {
		return auth.Credentials{}, false
	}
	return auth.Credentials{Hash: hash, Scope: scope}, true
}

func (a *API) handleGetPendingComments(w http.ResponseWriter, r *http.Request) {
	var req AdminRequest
	if err := a.decode(r, &req); err != nil {
		a.sendError(w, err)
		return
	}
	creds, ok := a.credentials(w, r, req.Hash)
	if !ok {
		return
	}
	pending, err := a.svc.ListPendingComments(r.Context(), creds)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.succeed(w, nil, map[string]interface{}{"pending_comments": pendingResponses(pending)})
}

func pendingResponses(pending []*store.PendingComment) []PendingCommentResponse {
	out := make([]PendingCommentResponse, 0, len(pending))
	for _, c := range pending {
		out = append(out, PendingCommentResponse{
			CommentID:   c.CommentID,
			AuthorID:    c.AuthorID,
			AuthorEmail: c.AuthorEmail,
			PageID:      c.PageID,
			PageURL:     c.PageURL,
			PageTitle:   c.PageTitle,
			Comment:     c.Content,
			CreatedAt:   c.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func (a *API) handleApprovePendingComment(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if err := a.decode(r, &req); err != nil {
		a.sendError(w, err)
		return
	}
	creds, ok := a.credentials(w, r, req.Hash)
	if !ok {
		return
	}
	if err := a.svc.ApproveComment(r.Context(), creds, req.CommentID); err != nil {
		a.sendError(w, err)
		return
	}
	a.succeed(w, nil, nil)
}

// parseModerated accepts the boolean spellings strconv understands.
func parseModerated(s string) (bool, error) {
	if s == "" {
		return false, &validate.Error{Field: "moderated", Message: "A boolean 'moderated' field is required"}
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, &validate.Error{Field: "moderated", Message: "A boolean 'moderated' field is required"}
	}
	return v, nil
}

func (a *API) handleSetCommentModeration(w http.ResponseWriter, r *http.Request) {
	var req ModerationRequest
	if err := a.decode(r, &req); err != nil {
		a.sendError(w, err)
		return
	}
	creds, ok := a.credentials(w, r, req.Hash)
	if !ok {
		return
	}
	// authorize before complaining about the flag
	if err := a.svc.Authorize(r.Context(), creds); err != nil {
		a.sendError(w, err)
		return
	}
	moderated, err := parseModerated(req.Moderated)
	if err != nil {
		a.sendError(w, err)
		return
	}

	res, err := a.svc.SetModeration(r.Context(), creds, moderated)
	if err != nil {
		a.sendError(w, err)
		return
	}

	failed := make([]FailureResponse, 0, len(res.Failed))
	for _, f := range res.Failed {
		failed = append(failed, FailureResponse{CommentID: f.CommentID, Reason: f.Err.Error()})
	}
	approved := res.Approved
	if approved == nil {
		approved = []string{}
	}
	a.succeed(w, nil, map[string]interface{}{"approved": approved, "failed": failed})
}

func (a *API) handleGetCommentModeration(w http.ResponseWriter, r *http.Request) {
	var req AdminRequest
	if err := a.decode(r, &req); err != nil {
		a.sendError(w, err)
		return
	}
	creds, ok := a.credentials(w, r, req.Hash)
	if !ok {
		return
	}
	moderated, err := a.svc.GetModeration(r.Context(), creds)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.succeed(w, nil, map[string]interface{}{"is_moderated": moderated})
}

func (a *API) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if err := a.decode(r, &req); err != nil {
		a.sendError(w, err)
		return
	}
	scope, ok := a.open(w, r)
	if !ok {
		return
	}
	edge, err := a.svc.SubmitComment(r.Context(), scope, req.URL, req.Title, req.Content)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.succeed(w, nil, map[string]interface{}{"comment_id": edge.ID, "pending": edge.Pending})
}
