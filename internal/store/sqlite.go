package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/zhouzirui/voice-twin/backend/internal/model/journal"
	"github.com/zhouzirui/voice-twin/backend/internal/model/voice"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER,
	timestamp INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id INTEGER NOT NULL,
	is_user INTEGER NOT NULL,
	text TEXT NOT NULL,
	voice_analysis TEXT,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, timestamp, id);
CREATE TABLE IF NOT EXISTS voice_profiles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL UNIQUE,
	speech_patterns TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database at path. ":memory:" keeps it in process.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps :memory: databases shared and serialises writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *SQLiteStore) CreateConversation(ctx context.Context, userID *int64) (journal.Conversation, error) {
	ts := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (user_id, timestamp) VALUES (?, ?)`,
		nullableID(userID), ts.UnixNano())
	if err != nil {
		return journal.Conversation{}, fmt.Errorf("insert conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return journal.Conversation{}, fmt.Errorf("insert conversation: %w", err)
	}
	return journal.Conversation{ID: id, UserID: copyID(userID), Timestamp: ts}, nil
}

func (s *SQLiteStore) GetConversation(ctx context.Context, id int64) (journal.Conversation, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, user_id, timestamp FROM conversations WHERE id = ?`, id)
	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return journal.Conversation{}, false, nil
	}
	if err != nil {
		return journal.Conversation{}, false, fmt.Errorf("get conversation %d: %w", id, err)
	}
	return conv, true, nil
}

func (s *SQLiteStore) ListConversations(ctx context.Context, userID *int64) ([]journal.Conversation, error) {
	query := `SELECT id, user_id, timestamp FROM conversations`
	var args []any
	if userID != nil {
		query += ` WHERE user_id = ?`
		args = append(args, *userID)
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	result := make([]journal.Conversation, 0)
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		result = append(result, conv)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) CreateMessage(ctx context.Context, in NewMessage) (journal.Message, error) {
	if in.ConversationID <= 0 {
		return journal.Message{}, ErrConversationRequired
	}
	in = sanitize(in)

	var analysis sql.NullString
	if in.StyleAnalysis != nil {
		raw, err := json.Marshal(in.StyleAnalysis)
		if err != nil {
			return journal.Message{}, fmt.Errorf("encode voice analysis: %w", err)
		}
		analysis = sql.NullString{String: string(raw), Valid: true}
	}

	ts := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, is_user, text, voice_analysis, timestamp) VALUES (?, ?, ?, ?, ?)`,
		in.ConversationID, boolToInt(in.IsUser), in.Text, analysis, ts.UnixNano())
	if err != nil {
		return journal.Message{}, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return journal.Message{}, fmt.Errorf("insert message: %w", err)
	}

	return journal.Message{
		ID:             id,
		ConversationID: in.ConversationID,
		IsUser:         in.IsUser,
		Text:           in.Text,
		StyleAnalysis:  in.StyleAnalysis,
		Timestamp:      ts,
	}, nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID int64) ([]journal.Message, error) {
	return s.queryMessages(ctx,
		`SELECT id, conversation_id, is_user, text, voice_analysis, timestamp FROM messages
		 WHERE conversation_id = ? ORDER BY timestamp ASC, id ASC`, conversationID)
}

func (s *SQLiteStore) RecentMessages(ctx context.Context, limit int) ([]journal.Message, error) {
	if limit < 0 {
		limit = -1
	}
	return s.queryMessages(ctx,
		`SELECT id, conversation_id, is_user, text, voice_analysis, timestamp FROM messages
		 ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
}

func (s *SQLiteStore) GetVoiceProfile(ctx context.Context, userID int64) (voice.Profile, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, speech_patterns, created_at, updated_at FROM voice_profiles WHERE user_id = ?`, userID)

	var (
		p                    voice.Profile
		raw                  string
		createdAt, updatedAt int64
	)
	err := row.Scan(&p.ID, &p.UserID, &raw, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return voice.Profile{}, false, nil
	}
	if err != nil {
		return voice.Profile{}, false, fmt.Errorf("get voice profile for user %d: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(raw), &p.SpeechPatterns); err != nil {
		return voice.Profile{}, false, fmt.Errorf("decode speech patterns: %w", err)
	}
	if p.SpeechPatterns.CommonPhrases == nil {
		p.SpeechPatterns.CommonPhrases = []string{}
	}
	p.CreatedAt = time.Unix(0, createdAt).UTC()
	p.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return p, true, nil
}

func (s *SQLiteStore) CreateVoiceProfile(ctx context.Context, userID int64, patterns voice.SpeechPatterns) (voice.Profile, error) {
	raw, err := json.Marshal(patterns)
	if err != nil {
		return voice.Profile{}, fmt.Errorf("encode speech patterns: %w", err)
	}

	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO voice_profiles (user_id, speech_patterns, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		userID, string(raw), now.UnixNano(), now.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return voice.Profile{}, ErrProfileExists
		}
		return voice.Profile{}, fmt.Errorf("insert voice profile: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return voice.Profile{}, fmt.Errorf("insert voice profile: %w", err)
	}

	return voice.Profile{ID: id, UserID: userID, SpeechPatterns: patterns, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *SQLiteStore) UpdateVoiceProfile(ctx context.Context, userID int64, patterns voice.SpeechPatterns) (voice.Profile, bool, error) {
	raw, err := json.Marshal(patterns)
	if err != nil {
		return voice.Profile{}, false, fmt.Errorf("encode speech patterns: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE voice_profiles SET speech_patterns = ?, updated_at = ? WHERE user_id = ?`,
		string(raw), s.now().UnixNano(), userID)
	if err != nil {
		return voice.Profile{}, false, fmt.Errorf("update voice profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return voice.Profile{}, false, nil
	}
	return s.GetVoiceProfile(ctx, userID)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]journal.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	result := make([]journal.Message, 0)
	for rows.Next() {
		var (
			msg      journal.Message
			isUser   int
			analysis sql.NullString
			ts       int64
		)
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &isUser, &msg.Text, &analysis, &ts); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.IsUser = isUser != 0
		msg.Timestamp = time.Unix(0, ts).UTC()
		if analysis.Valid && msg.IsUser {
			var decoded voice.StyleAnalysis
			if err := json.Unmarshal([]byte(analysis.String), &decoded); err != nil {
				return nil, fmt.Errorf("decode voice analysis for message %d: %w", msg.ID, err)
			}
			msg.StyleAnalysis = &decoded
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (journal.Conversation, error) {
	var (
		conv   journal.Conversation
		userID sql.NullInt64
		ts     int64
	)
	if err := row.Scan(&conv.ID, &userID, &ts); err != nil {
		return journal.Conversation{}, err
	}
	if userID.Valid {
		v := userID.Int64
		conv.UserID = &v
	}
	conv.Timestamp = time.Unix(0, ts).UTC()
	return conv, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code&0xff == sqlite3.SQLITE_CONSTRAINT
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
