// Package repository implements the durable chat gateway on SQLite.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/techbuddy/realtime/internal/domain"
)

var ErrNotFound = errors.New("not found")

type ChatRepository struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and ensures the
// schema exists.
func Open(ctx context.Context, path string) (*ChatRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	r := &ChatRepository{db: db}
	if err := r.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func NewChatRepository(db *sql.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Close() error {
	return r.db.Close()
}

func (r *ChatRepository) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			id             TEXT PRIMARY KEY,
			participant_lo TEXT NOT NULL,
			participant_hi TEXT NOT NULL,
			created_at     TIMESTAMP NOT NULL,
			UNIQUE (participant_lo, participant_hi)
		);
		CREATE TABLE IF NOT EXISTS messages (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(id),
			sender_id       TEXT NOT NULL,
			body            TEXT NOT NULL,
			created_at      TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// FindOrCreateConversation returns the single conversation for an
// unordered user pair, creating it if absent. The UNIQUE index on the
// canonical pair plus INSERT OR IGNORE keeps concurrent first-message
// races from producing duplicates.
func (r *ChatRepository) FindOrCreateConversation(ctx context.Context, a, b domain.UserID) (domain.Conversation, error) {
	lo, hi := domain.ParticipantPair(a, b)

	insert := `
		INSERT OR IGNORE INTO conversations (id, participant_lo, participant_hi, created_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, insert, uuid.NewString(), lo, hi, time.Now().UTC()); err != nil {
		return domain.Conversation{}, fmt.Errorf("insert conversation: %w", err)
	}

	query := `
		SELECT id, created_at FROM conversations
		WHERE participant_lo = ? AND participant_hi = ?
	`
	var conv domain.Conversation
	conv.ParticipantLo, conv.ParticipantHi = lo, hi
	if err := r.db.QueryRowContext(ctx, query, lo, hi).Scan(&conv.ID, &conv.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Conversation{}, ErrNotFound
		}
		return domain.Conversation{}, fmt.Errorf("query conversation: %w", err)
	}
	return conv, nil
}

// AppendMessage stores one message and returns it with its ULID and
// server-assigned timestamp.
func (r *ChatRepository) AppendMessage(ctx context.Context, conv domain.Conversation, sender domain.UserID, text string) (domain.Message, error) {
	msg := domain.Message{
		ID:        ulid.Make().String(),
		SenderID:  sender,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, msg.ID, conv.ID, msg.SenderID, msg.Text, msg.CreatedAt); err != nil {
		return domain.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// FetchMessages returns the conversation's messages in insertion order.
func (r *ChatRepository) FetchMessages(ctx context.Context, conv domain.Conversation) ([]domain.Message, error) {
	query := `
		SELECT id, sender_id, body, created_at FROM messages
		WHERE conversation_id = ?
		ORDER BY rowid
	`
	rows, err := r.db.QueryContext(ctx, query, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}
