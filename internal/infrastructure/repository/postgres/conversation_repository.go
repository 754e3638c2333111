package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
)

// ConversationRepository persists query sessions and their message
// history. FormatHistory renders the transcript the generation engine
// prepends to its system prompt.
type ConversationRepository struct {
	db *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082903)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS session_messages (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_messages_session ON session_messages(session_id, created_at);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ConversationRepository) EnsureSession(ctx context.Context, sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		sessionID = uuid.NewString()
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sessions (id, created_at, updated_at)
VALUES ($1, $2, $2)
ON CONFLICT (id) DO NOTHING
`, sessionID, now)
	if err != nil {
		return "", fmt.Errorf("ensure session: %w", err)
	}
	return sessionID, nil
}

// FormatHistory returns the last maxExchanges question/answer pairs as
// "User:"/"Assistant:" lines in chronological order, or "" for a fresh
// session.
func (r *ConversationRepository) FormatHistory(ctx context.Context, sessionID string, maxExchanges int) (string, error) {
	if maxExchanges <= 0 {
		return "", nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT role, content
FROM session_messages
WHERE session_id = $1
ORDER BY created_at DESC
LIMIT $2
`, sessionID, maxExchanges*2)
	if err != nil {
		return "", fmt.Errorf("list session messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.ConversationMessage
	for rows.Next() {
		var msg domain.ConversationMessage
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return "", fmt.Errorf("scan session message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate session messages: %w", err)
	}

	// Returned in descending order from SQL; reverse to keep chronological order.
	lines := make([]string, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		lines = append(lines, fmt.Sprintf("%s: %s", roleLabel(messages[i].Role), messages[i].Content))
	}
	return strings.Join(lines, "\n"), nil
}

func (r *ConversationRepository) AppendExchange(ctx context.Context, sessionID, userMessage, assistantMessage string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin exchange tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	const insert = `
INSERT INTO session_messages (id, session_id, role, content, created_at)
VALUES ($1,$2,$3,$4,$5)
`
	if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), sessionID, "user", userMessage, now); err != nil {
		return fmt.Errorf("append user message: %w", err)
	}
	// Strictly after the user message so FormatHistory keeps pair order.
	if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), sessionID, "assistant", assistantMessage, now.Add(time.Microsecond)); err != nil {
		return fmt.Errorf("append assistant message: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET updated_at = $2 WHERE id = $1`, sessionID, now); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit exchange tx: %w", err)
	}
	return nil
}

func roleLabel(role string) string {
	switch role {
	case "user":
		return "User"
	case "assistant":
		return "Assistant"
	default:
		return role
	}
}
