package webhook

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	txcontext "formgate/pkg/platform/tx"
)

// PostgresRegistry stores webhook destinations in the webhook_urls table.
// Event subscriptions are a jsonb array filtered with the containment
// operator so lookups use the gin index.
type PostgresRegistry struct {
	db *sql.DB
}

func NewPostgresRegistry(db *sql.DB) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

type dbQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *PostgresRegistry) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return r.db
}

func (r *PostgresRegistry) Create(ctx context.Context, url *URL) error {
	events, err := json.Marshal(url.Events)
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}

	now := time.Now()
	row := r.querier(ctx).QueryRowContext(ctx, `
		INSERT INTO webhook_urls (account_id, url, events, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id
	`, url.AccountID, url.URL, events, now)
	if err := row.Scan(&url.ID); err != nil {
		return fmt.Errorf("insert webhook url: %w", err)
	}
	url.CreatedAt = now
	url.UpdatedAt = now
	return nil
}

func (r *PostgresRegistry) ForAccount(ctx context.Context, accountID int64, event string) ([]*URL, error) {
	eventJSON, err := json.Marshal([]string{event})
	if err != nil {
		return nil, fmt.Errorf("encode event filter: %w", err)
	}

	rows, err := r.querier(ctx).QueryContext(ctx, `
		SELECT id, account_id, url, events, created_at, updated_at
		FROM webhook_urls
		WHERE account_id = $1 AND events @> $2
		ORDER BY id
	`, accountID, eventJSON)
	if err != nil {
		return nil, fmt.Errorf("query webhook urls: %w", err)
	}
	defer rows.Close()
	return scanURLs(rows)
}

func (r *PostgresRegistry) ListByAccount(ctx context.Context, accountID int64) ([]*URL, error) {
	rows, err := r.querier(ctx).QueryContext(ctx, `
		SELECT id, account_id, url, events, created_at, updated_at
		FROM webhook_urls
		WHERE account_id = $1
		ORDER BY id
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query webhook urls: %w", err)
	}
	defer rows.Close()
	return scanURLs(rows)
}

func scanURLs(rows *sql.Rows) ([]*URL, error) {
	var out []*URL
	for rows.Next() {
		var (
			u         URL
			eventsRaw []byte
		)
		if err := rows.Scan(&u.ID, &u.AccountID, &u.URL, &eventsRaw, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan webhook url: %w", err)
		}
		if err := json.Unmarshal(eventsRaw, &u.Events); err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}
