package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"botchat/pkg/chat"
	"botchat/pkg/logx"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	sender     TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS processed_messages (
	bot_id     TEXT NOT NULL,
	message_id TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (bot_id, message_id)
);

CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);
`

// SQLiteStore is a Store backed by a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *logx.Logger
}

// OpenSQLite opens (and migrates) the conversation database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	// WAL mode and a busy timeout keep the single-writer model responsive.
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000",
		path,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	logger := logx.NewLogger("store")
	logger.Info("📦 Conversation store opened: %s", path)

	return &SQLiteStore{db: db, logger: logger}, nil
}

// SaveMessage appends a message to the conversation history.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *chat.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO messages (id, role, content, sender, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, string(msg.Role), msg.Content, msg.Sender, msg.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save message %s: %w", msg.ID, err)
	}
	return nil
}

// History returns up to limit most recent messages in chronological order.
func (s *SQLiteStore) History(ctx context.Context, limit int) ([]chat.Message, error) {
	query := `SELECT id, role, content, sender, created_at FROM messages ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []chat.Message
	for rows.Next() {
		var msg chat.Message
		var role string
		var createdAt int64
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &msg.Sender, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		msg.Role = chat.Role(role)
		msg.Timestamp = time.UnixMilli(createdAt)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history row iteration failed: %w", err)
	}

	// Query returned newest-first; flip to chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkProcessed records that a message id was handled for a bot.
func (s *SQLiteStore) MarkProcessed(ctx context.Context, botID, messageID, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO processed_messages (bot_id, message_id, content, created_at) VALUES (?, ?, ?, ?)`,
		botID, messageID, content, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark message %s processed: %w", messageID, err)
	}
	return nil
}

// Processed reports whether the bot already handled the message id.
func (s *SQLiteStore) Processed(ctx context.Context, botID, messageID string) (string, bool, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM processed_messages WHERE bot_id = ? AND message_id = ?`,
		botID, messageID,
	).Scan(&content)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query processed message: %w", err)
	}
	return content, true, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
