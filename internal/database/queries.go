package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"teleaiposter/internal/domain"
	"time"
)

const defaultListLimit = 20

func (d *Database) RecordPost(ctx context.Context, entry domain.JournalEntry) (int64, error) {
	if strings.TrimSpace(entry.Body) == "" {
		return 0, errors.New("post body is empty")
	}

	if entry.Status == "" {
		return 0, errors.New("post status is empty")
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	sourceURL := strings.TrimSpace(entry.SourceURL)

	sourceKey := strings.TrimSpace(entry.SourceKey)
	if sourceKey == "" {
		sourceKey = sourceURL
	}

	query := `insert into posts
		(prompt, body, chat_id, source_url, source_key, message_id, status, error_detail, created_at)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := d.db.ExecContext(ctx, query,
		entry.Prompt,
		entry.Body,
		entry.ChatID,
		sourceURL,
		sourceKey,
		entry.MessageID,
		string(entry.Status),
		entry.ErrorDetail,
		createdAt.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert ID: %w", err)
	}

	return id, nil
}

func (d *Database) ListRecent(ctx context.Context, limit int) ([]domain.JournalEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `select id, prompt, body, chat_id, source_url, source_key, message_id, status, error_detail, created_at
		from posts order by created_at desc, id desc limit ?`

	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", closeErr)
		}
	}()

	var entries []domain.JournalEntry

	for rows.Next() {
		var (
			entry     domain.JournalEntry
			status    string
			createdAt int64
		)

		if err = rows.Scan(
			&entry.ID,
			&entry.Prompt,
			&entry.Body,
			&entry.ChatID,
			&entry.SourceURL,
			&entry.SourceKey,
			&entry.MessageID,
			&status,
			&entry.ErrorDetail,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		entry.Status = domain.PostStatus(status)
		entry.CreatedAt = time.Unix(createdAt, 0).UTC()
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return entries, nil
}

// HasSourceKey reports whether a post built from the source item with this
// key was already published successfully.
func (d *Database) HasSourceKey(ctx context.Context, sourceKey string) (bool, error) {
	sourceKey = strings.TrimSpace(sourceKey)
	if sourceKey == "" {
		return false, nil
	}

	query := "select exists(select 1 from posts where source_key = ? and status = ?)"

	var exists bool
	if err := d.db.QueryRowContext(ctx, query, sourceKey, string(domain.PostStatusPublished)).Scan(&exists); err != nil {
		return false, fmt.Errorf("execute query: %w", err)
	}

	return exists, nil
}
