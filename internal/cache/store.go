// Package cache keeps a local SQLite transcript of the history pages the
// client has fetched, so rooms can be read offline.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/thousandtech/chatroom/internal/chat"
	"github.com/thousandtech/chatroom/internal/paging"
	"github.com/thousandtech/chatroom/internal/timeline"
)

// ErrUnavailable is returned by a nil or closed store.
var ErrUnavailable = errors.New("transcript cache unavailable")

// Store is the transcript database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("cache path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to cache database: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id TEXT NOT NULL,
			username TEXT NOT NULL,
			body TEXT NOT NULL,
			sent_at INTEGER NOT NULL,
			time_view TEXT NOT NULL,
			cached_at TEXT NOT NULL,
			UNIQUE (room_id, sent_at, username, body)
		)`,
		`CREATE INDEX IF NOT EXISTS messages_room_time_idx ON messages(room_id, sent_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize cache schema: %w", err)
		}
	}
	return nil
}

// Save stores normalized messages of room. Messages already cached are skipped;
// the number of new rows is returned.
func (s *Store) Save(ctx context.Context, room string, msgs []timeline.Message) (int, error) {
	if s == nil || s.db == nil {
		return 0, ErrUnavailable
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin cache write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO messages (room_id, username, body, sent_at, time_view, cached_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare cache insert: %w", err)
	}
	defer stmt.Close()

	cachedAt := time.Now().UTC().Format(time.RFC3339Nano)
	inserted := 0
	for _, msg := range msgs {
		view, err := json.Marshal(msg.Time)
		if err != nil {
			return 0, fmt.Errorf("failed to encode time view: %w", err)
		}
		res, err := stmt.ExecContext(ctx, room, msg.Author, msg.Body, msg.SentAt, string(view), cachedAt)
		if err != nil {
			return 0, fmt.Errorf("failed to cache message: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit cache write: %w", err)
	}
	return inserted, nil
}

// FetchPage serves a history page from the cache with the same offset
// semantics as the server: offset counts back from the newest message.
// It implements paging.Fetcher.
func (s *Store) FetchPage(ctx context.Context, req paging.Request) (chat.HistoryPage, error) {
	if s == nil || s.db == nil {
		return chat.HistoryPage{}, ErrUnavailable
	}
	limit := req.Limit
	if limit <= 0 {
		limit = paging.DefaultPageSize
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT username, body, time_view FROM messages
		WHERE room_id = ?
		ORDER BY sent_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, req.RoomID, limit, req.Offset)
	if err != nil {
		return chat.HistoryPage{}, fmt.Errorf("failed to query cache: %w", err)
	}
	defer rows.Close()

	var newestFirst []chat.RawMessage
	for rows.Next() {
		var (
			username, body, viewJSON string
			view                     chat.TimeView
		)
		if err := rows.Scan(&username, &body, &viewJSON); err != nil {
			return chat.HistoryPage{}, fmt.Errorf("failed to scan cached message: %w", err)
		}
		if err := json.Unmarshal([]byte(viewJSON), &view); err != nil {
			return chat.HistoryPage{}, fmt.Errorf("failed to decode cached time view: %w", err)
		}
		newestFirst = append(newestFirst, chat.RawMessage{
			RoomID:        req.RoomID,
			Username:      username,
			Msg:           body,
			TimestampData: &view,
		})
	}
	if err := rows.Err(); err != nil {
		return chat.HistoryPage{}, fmt.Errorf("failed to read cache: %w", err)
	}

	total, err := s.Count(ctx, req.RoomID)
	if err != nil {
		return chat.HistoryPage{}, err
	}

	page := chat.HistoryPage{
		Messages: make([]chat.RawMessage, 0, len(newestFirst)),
		HasMore:  req.Offset+len(newestFirst) < total,
	}
	for i := len(newestFirst) - 1; i >= 0; i-- {
		page.Messages = append(page.Messages, newestFirst[i])
	}
	return page, nil
}

// Count returns the number of cached messages of room.
func (s *Store) Count(ctx context.Context, room string) (int, error) {
	if s == nil || s.db == nil {
		return 0, ErrUnavailable
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE room_id = ?`, room).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cached messages: %w", err)
	}
	return n, nil
}

// Rooms lists the cached rooms with their message counts.
func (s *Store) Rooms(ctx context.Context) ([]chat.RoomInfo, error) {
	if s == nil || s.db == nil {
		return nil, ErrUnavailable
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT room_id, COUNT(*) FROM messages GROUP BY room_id ORDER BY room_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached rooms: %w", err)
	}
	defer rows.Close()

	var rooms []chat.RoomInfo
	for rows.Next() {
		var info chat.RoomInfo
		if err := rows.Scan(&info.RoomID, &info.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan cached room: %w", err)
		}
		rooms = append(rooms, info)
	}
	return rooms, rows.Err()
}

// Purge deletes every cached message, or only those of room when room is set.
func (s *Store) Purge(ctx context.Context, room string) error {
	if s == nil || s.db == nil {
		return ErrUnavailable
	}
	var err error
	if strings.TrimSpace(room) == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM messages`)
	} else {
		_, err = s.db.ExecContext(ctx, `DELETE FROM messages WHERE room_id = ?`, room)
	}
	if err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}
	return nil
}
