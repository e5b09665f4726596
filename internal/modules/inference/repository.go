package inference

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Repository handles inference log database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new inference log repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "inference").Logger(),
	}
}

// Create stores one record. CreatedAt defaults to now.
func (r *Repository) Create(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO inference_logs (
			id, request_id, provider, model, operation, tool_name,
			prompt_tokens, completion_tokens, total_tokens, cost_usd,
			latency_ms, status, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.RequestID,
		rec.Provider,
		rec.Model,
		rec.Operation,
		nullString(rec.ToolName),
		rec.PromptTokens,
		rec.CompletionTokens,
		rec.TotalTokens,
		rec.CostUSD,
		rec.LatencyMs,
		rec.Status,
		nullString(rec.ErrorMessage),
		rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert inference log: %w", err)
	}
	return nil
}

// List returns records newest first
func (r *Repository) List(ctx context.Context, q Query) ([]Record, error) {
	query := `
		SELECT id, request_id, provider, model, operation, tool_name,
		       prompt_tokens, completion_tokens, total_tokens, cost_usd,
		       latency_ms, status, error_message, created_at
		FROM inference_logs
		WHERE 1=1
	`
	var args []interface{}

	if q.RequestID != "" {
		query += " AND request_id = ?"
		args = append(args, q.RequestID)
	}
	if q.Operation != "" {
		query += " AND operation = ?"
		args = append(args, q.Operation)
	}
	if q.Status != "" {
		query += " AND status = ?"
		args = append(args, q.Status)
	}
	if q.Since != nil {
		query += " AND created_at >= ?"
		args = append(args, q.Since.UnixMilli())
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	query += " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, limit, max(q.Offset, 0))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query inference logs: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			rec       Record
			toolName  sql.NullString
			errMsg    sql.NullString
			createdAt int64
		)
		err := rows.Scan(
			&rec.ID,
			&rec.RequestID,
			&rec.Provider,
			&rec.Model,
			&rec.Operation,
			&toolName,
			&rec.PromptTokens,
			&rec.CompletionTokens,
			&rec.TotalTokens,
			&rec.CostUSD,
			&rec.LatencyMs,
			&rec.Status,
			&errMsg,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inference log: %w", err)
		}
		rec.ToolName = toolName.String
		rec.ErrorMessage = errMsg.String
		rec.CreatedAt = time.UnixMilli(createdAt)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inference logs: %w", err)
	}
	return records, nil
}

// Stats aggregates records created at or after since (all records when nil)
func (r *Repository) Stats(ctx context.Context, since *time.Time) (*Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(total_tokens), 0),
			COALESCE(SUM(cost_usd), 0),
			COALESCE(AVG(latency_ms), 0)
		FROM inference_logs
	`
	var args []interface{}
	if since != nil {
		query += " WHERE created_at >= ?"
		args = append(args, since.UnixMilli())
	}

	var stats Stats
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalCalls,
		&stats.SuccessfulCalls,
		&stats.FailedCalls,
		&stats.TotalTokens,
		&stats.TotalCostUSD,
		&stats.AvgLatencyMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get inference stats: %w", err)
	}
	return &stats, nil
}

// DeleteOlderThan removes records created before cutoff and returns how
// many were deleted
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM inference_logs WHERE created_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old inference logs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted inference logs: %w", err)
	}
	return deleted, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
