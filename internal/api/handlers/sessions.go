package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alphamind/gateway/internal/api/ctxkeys"
	"github.com/alphamind/gateway/internal/domain/chat"
	"github.com/alphamind/gateway/internal/domain/files"
	"github.com/alphamind/gateway/internal/infra/llm"
)

// HistoryService is the session-store capability the handler needs.
type HistoryService interface {
	CreateSession(ctx context.Context, userID, title string) (*chat.Session, error)
	GetSession(ctx context.Context, id string) (*chat.Session, error)
	ListSessions(ctx context.Context, userID string) ([]chat.Session, error)
	AppendMessage(ctx context.Context, sessionID string, msg llm.Message, model string) (*chat.StoredMessage, error)
	ListMessages(ctx context.Context, sessionID string) ([]chat.StoredMessage, error)
}

// SessionsHandler serves the authenticated chat-history endpoints.
type SessionsHandler struct {
	history   HistoryService
	extractor files.Extractor
}

func NewSessionsHandler(history HistoryService, extractor files.Extractor) *SessionsHandler {
	return &SessionsHandler{history: history, extractor: extractor}
}

type createSessionRequest struct {
	Title string `json:"title"`
}

// CreateSession handles POST /api/v1/sessions.
func (h *SessionsHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.Value(r.Context(), ctxkeys.UserID)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.history.CreateSession(r.Context(), userID, req.Title)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, sess)
}

// ListSessions handles GET /api/v1/sessions.
func (h *SessionsHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.Value(r.Context(), ctxkeys.UserID)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	sessions, err := h.history.ListSessions(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	writeJSON(w, http.StatusOK, sessions)
}

// ownedSession loads the session and verifies it belongs to the caller.
// Another user's session answers 404, not 403 — existence is not leaked.
func (h *SessionsHandler) ownedSession(r *http.Request) (*chat.Session, int, string) {
	userID := ctxkeys.Value(r.Context(), ctxkeys.UserID)
	if userID == "" {
		return nil, http.StatusUnauthorized, "missing user context"
	}

	sess, err := h.history.GetSession(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, chat.ErrSessionNotFound) {
		return nil, http.StatusNotFound, "session not found"
	}
	if err != nil {
		return nil, http.StatusInternalServerError, "failed to load session"
	}
	if sess.UserID != userID {
		return nil, http.StatusNotFound, "session not found"
	}
	return sess, 0, ""
}

// ListMessages handles GET /api/v1/sessions/{id}/messages.
func (h *SessionsHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	sess, status, msg := h.ownedSession(r)
	if sess == nil {
		writeError(w, status, msg)
		return
	}

	messages, err := h.history.ListMessages(r.Context(), sess.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

type appendMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

// AppendMessage handles POST /api/v1/sessions/{id}/messages.
//
// Two content types are accepted: application/json with {role, content},
// and multipart/form-data with role/content fields plus an optional file
// attachment whose extracted text is appended to the content.
func (h *SessionsHandler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	sess, status, msg := h.ownedSession(r)
	if sess == nil {
		writeError(w, status, msg)
		return
	}

	req, err := h.decodeAppendRequest(r)
	if err != nil {
		if errors.Is(err, files.ErrUnsupportedFormat) || errors.Is(err, files.ErrFileTooLarge) {
			writeError(w, http.StatusUnsupportedMediaType, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	switch req.Role {
	case llm.RoleSystem, llm.RoleUser, llm.RoleAssistant:
	default:
		writeError(w, http.StatusBadRequest, "unknown role")
		return
	}

	stored, err := h.history.AppendMessage(r.Context(), sess.ID, llm.Message{Role: req.Role, Content: req.Content}, req.Model)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to append message")
		return
	}

	writeJSON(w, http.StatusCreated, stored)
}

func (h *SessionsHandler) decodeAppendRequest(r *http.Request) (appendMessageRequest, error) {
	if !strings.HasPrefix(r.Header.Get(headerContentType), "multipart/form-data") {
		var req appendMessageRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}

	if err := r.ParseMultipartForm(4 << 20); err != nil {
		return appendMessageRequest{}, err
	}
	req := appendMessageRequest{
		Role:    r.FormValue("role"),
		Content: r.FormValue("content"),
		Model:   r.FormValue("model"),
	}

	file, header, err := r.FormFile("file")
	if err == http.ErrMissingFile {
		return req, nil
	}
	if err != nil {
		return appendMessageRequest{}, err
	}
	defer file.Close() //nolint:errcheck

	text, err := h.extractor.Extract(header.Filename, file)
	if err != nil {
		return appendMessageRequest{}, err
	}
	if req.Content != "" {
		req.Content += "\n\n"
	}
	req.Content += text
	return req, nil
}
