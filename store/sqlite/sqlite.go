// Package sqlite persists committed turns in an embedded SQLite database:
// append-only messages, one snapshot row per committed version, and
// escalation tickets. It implements core.DurableStore.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/angiesanchezm/genai-music/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id            TEXT PRIMARY KEY,
	conversation  TEXT NOT NULL,
	role          TEXT NOT NULL,
	text          TEXT NOT NULL,
	agent_at_time TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation, created_at);

CREATE TABLE IF NOT EXISTS snapshots (
	conversation  TEXT NOT NULL,
	version       INTEGER NOT NULL,
	current_agent TEXT NOT NULL,
	payload       TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL,
	PRIMARY KEY (conversation, version)
);

CREATE TABLE IF NOT EXISTS tickets (
	id            TEXT PRIMARY KEY,
	conversation  TEXT NOT NULL,
	reason        TEXT NOT NULL,
	summary       TEXT NOT NULL,
	score         TEXT NOT NULL,
	state         TEXT,
	status        TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tickets_conversation ON tickets(conversation);
`

// Store is a DurableStore backed by an embedded SQLite database.
// Safe for concurrent use; database/sql serializes access per connection.
type Store struct {
	db *sql.DB
}

// Open creates (or opens) the database at path and ensures the schema.
// Use ":memory:" for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// modernc.org/sqlite is single-writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// AppendMessage records one committed message. Appends are idempotent on the
// message id so replayed commits do not duplicate rows.
func (s *Store) AppendMessage(ctx context.Context, conversationKey string, msg core.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO messages (id, conversation, role, text, agent_at_time, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, conversationKey, string(msg.Role), msg.Text, string(msg.AgentAtTime), msg.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("sqlite: append message: %w", err)
	}
	return nil
}

// SaveSnapshot stores the conversation state at a committed version. Writing
// the same (conversation, version) twice replaces the row, keeping checkpoint
// persistence idempotent.
func (s *Store) SaveSnapshot(ctx context.Context, snap core.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("sqlite: encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshots (conversation, version, current_agent, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		snap.Key, snap.Version, string(snap.CurrentAgent), string(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save snapshot: %w", err)
	}
	return nil
}

// CreateTicket persists an escalation ticket and returns its id.
func (s *Store) CreateTicket(ctx context.Context, t core.Ticket) (string, error) {
	if t.ID == "" {
		t.ID = core.NewID()
	}
	if t.Status == "" {
		t.Status = core.TicketOpen
	}
	if t.Created.IsZero() {
		t.Created = time.Now().UTC()
	}
	score, err := json.Marshal(t.Score)
	if err != nil {
		return "", fmt.Errorf("sqlite: encode ticket score: %w", err)
	}
	var state []byte
	if len(t.State) > 0 {
		if state, err = json.Marshal(t.State); err != nil {
			return "", fmt.Errorf("sqlite: encode ticket state: %w", err)
		}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tickets (id, conversation, reason, summary, score, state, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ConversationKey, t.Reason, t.Summary, string(score), nullable(state), string(t.Status), t.Created,
	)
	if err != nil {
		return "", fmt.Errorf("sqlite: create ticket: %w", err)
	}
	return t.ID, nil
}

// GetTicket loads one ticket by id.
func (s *Store) GetTicket(ctx context.Context, id string) (core.Ticket, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, conversation, reason, summary, score, state, status, created_at FROM tickets WHERE id = ?`, id)

	var (
		t     core.Ticket
		score string
		state sql.NullString
	)
	if err := row.Scan(&t.ID, &t.ConversationKey, &t.Reason, &t.Summary, &score, &state, &t.Status, &t.Created); err != nil {
		return core.Ticket{}, fmt.Errorf("sqlite: get ticket %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(score), &t.Score); err != nil {
		return core.Ticket{}, fmt.Errorf("sqlite: decode ticket score: %w", err)
	}
	if state.Valid && state.String != "" {
		if err := json.Unmarshal([]byte(state.String), &t.State); err != nil {
			return core.Ticket{}, fmt.Errorf("sqlite: decode ticket state: %w", err)
		}
	}
	return t, nil
}

// ListTickets returns the tickets for a conversation in creation order.
func (s *Store) ListTickets(ctx context.Context, conversationKey string) ([]core.Ticket, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM tickets WHERE conversation = ? ORDER BY created_at, id`, conversationKey)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list tickets: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: list tickets: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list tickets: %w", err)
	}

	tickets := make([]core.Ticket, 0, len(ids))
	for _, id := range ids {
		t, err := s.GetTicket(ctx, id)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

// Messages returns the persisted messages of a conversation in append order.
func (s *Store) Messages(ctx context.Context, conversationKey string) ([]core.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, text, agent_at_time, created_at FROM messages
		 WHERE conversation = ? ORDER BY created_at, id`, conversationKey)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load messages: %w", err)
	}
	defer rows.Close()

	var msgs []core.Message
	for rows.Next() {
		var m core.Message
		if err := rows.Scan(&m.ID, &m.Role, &m.Text, &m.AgentAtTime, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("sqlite: load messages: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: load messages: %w", err)
	}
	return msgs, nil
}

// LatestSnapshot loads the highest-version snapshot for a conversation.
func (s *Store) LatestSnapshot(ctx context.Context, conversationKey string) (core.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE conversation = ? ORDER BY version DESC LIMIT 1`, conversationKey)

	var payload string
	if err := row.Scan(&payload); err != nil {
		return core.Snapshot{}, fmt.Errorf("sqlite: latest snapshot %s: %w", conversationKey, err)
	}
	var snap core.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return core.Snapshot{}, fmt.Errorf("sqlite: decode snapshot: %w", err)
	}
	return snap, nil
}

func nullable(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

var _ core.DurableStore = (*Store)(nil)
