// Chat history persistence — sessions and their messages.
// This is the persistence collaborator of the completion core: callers
// load a session's history to build a request and append both sides of
// the exchange afterwards. The completion service itself never touches
// conversation state.
package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/alphamind/gateway/internal/infra/llm"
)

// Session is one stored conversation.
type Session struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

// StoredMessage is one persisted conversation turn.
type StoredMessage struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Model     string `json:"model,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ErrSessionNotFound is returned for lookups of unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

// HistoryStore persists sessions and messages in SQLite.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore creates a store over an open database.
func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// CreateSession starts a new conversation for userID.
func (s *HistoryStore) CreateSession(ctx context.Context, userID, title string) (*Session, error) {
	sess := &Session{
		ID:     uuid.NewString(),
		UserID: userID,
		Title:  title,
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO chat_sessions (id, user_id, title) VALUES (?, ?, ?) RETURNING created_at`,
		sess.ID, sess.UserID, sess.Title,
	).Scan(&sess.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// GetSession returns the session with id, or ErrSessionNotFound.
func (s *HistoryStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, created_at FROM chat_sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.UserID, &sess.Title, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

// ListSessions returns userID's sessions, newest first.
func (s *HistoryStore) ListSessions(ctx context.Context, userID string) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, created_at FROM chat_sessions WHERE user_id = ? ORDER BY rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Title, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// AppendMessage stores one turn at the end of a session.
func (s *HistoryStore) AppendMessage(ctx context.Context, sessionID string, msg llm.Message, model string) (*StoredMessage, error) {
	stored := &StoredMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      msg.Role,
		Content:   msg.Content,
		Model:     model,
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, model) VALUES (?, ?, ?, ?, ?) RETURNING created_at`,
		stored.ID, stored.SessionID, stored.Role, stored.Content, stored.Model,
	).Scan(&stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return stored, nil
}

// LoadHistory returns a session's messages oldest first, ready to be used
// as the message sequence of a ChatRequest.
func (s *HistoryStore) LoadHistory(ctx context.Context, sessionID string) ([]llm.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM chat_messages WHERE session_id = ? ORDER BY rowid ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	messages := []llm.Message{}
	for rows.Next() {
		var m llm.Message
		if err := rows.Scan(&m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// ListMessages returns a session's stored messages with full metadata,
// oldest first.
func (s *HistoryStore) ListMessages(ctx context.Context, sessionID string) ([]StoredMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, model, created_at FROM chat_messages WHERE session_id = ? ORDER BY rowid ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	messages := []StoredMessage{}
	for rows.Next() {
		var m StoredMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.Model, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
