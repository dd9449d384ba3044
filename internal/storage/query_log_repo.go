package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// QueryLogStore defines the interface for the append-only search log.
type QueryLogStore interface {
	// Append records one search. Empty ID and zero CreatedAt are filled in.
	Append(ctx context.Context, entry *QueryLogEntry) error
	// Count returns the number of logged searches.
	Count(ctx context.Context) (int, error)
	// ListRecent returns up to limit entries, newest first.
	ListRecent(ctx context.Context, limit int) ([]QueryLogEntry, error)
}

// QueryLogRepo provides methods for query log operations.
// It implements the QueryLogStore interface.
type QueryLogRepo struct {
	db *sql.DB
}

// NewQueryLogRepo creates a new QueryLogRepo.
func NewQueryLogRepo(db *sql.DB) *QueryLogRepo {
	return &QueryLogRepo{db: db}
}

// Append inserts a query log row.
func (r *QueryLogRepo) Append(ctx context.Context, entry *QueryLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Chunks == nil {
		entry.Chunks = []RetrievedChunk{}
	}

	retrieved, err := encodeJSON(entry.Chunks, "[]")
	if err != nil {
		return storeErr("append query log", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO query_log (id, query_text, results_count, chunks_retrieved, user_id, conversation_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.QueryText, entry.ResultsCount, retrieved,
		nullString(entry.UserID), nullString(entry.ConversationID), entry.CreatedAt,
	)
	return storeErr("append query log", err)
}

// Count returns the number of logged searches.
func (r *QueryLogRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM query_log").Scan(&n); err != nil {
		return 0, storeErr("count query log", err)
	}
	return n, nil
}

// ListRecent returns the most recent entries.
func (r *QueryLogRepo) ListRecent(ctx context.Context, limit int) ([]QueryLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, query_text, results_count, chunks_retrieved, user_id, conversation_id, created_at
		FROM query_log ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, storeErr("query query log", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := []QueryLogEntry{}
	for rows.Next() {
		var e QueryLogEntry
		var retrieved string
		var userID, conversationID sql.NullString
		if err := rows.Scan(&e.ID, &e.QueryText, &e.ResultsCount, &retrieved, &userID, &conversationID, &e.CreatedAt); err != nil {
			return nil, storeErr("scan query log", err)
		}
		if err := json.Unmarshal([]byte(retrieved), &e.Chunks); err != nil {
			return nil, storeErr("decode query log chunks", err)
		}
		e.UserID = userID.String
		e.ConversationID = conversationID.String
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate query log", err)
	}
	return entries, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
