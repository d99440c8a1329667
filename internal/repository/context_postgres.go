// Package repository persists conversation contexts in Postgres.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/state"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ContextRepository stores one JSONB document per user in user_contexts.
type ContextRepository struct {
	db *pgxpool.Pool
}

// NewContextRepository creates a new context repository.
func NewContextRepository(db *pgxpool.Pool) *ContextRepository {
	return &ContextRepository{db: db}
}

// Get implements state.Store.
func (r *ContextRepository) Get(ctx context.Context, userID string) (*state.Context, error) {
	var raw []byte
	err := r.db.QueryRow(ctx,
		`SELECT context FROM user_contexts WHERE user_id = $1`, userID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrContextNotFound
		}
		return nil, fmt.Errorf("query user context: %w", err)
	}

	var c state.Context
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode stored context: %w", err)
	}
	return &c, nil
}

// Save implements state.Store.
func (r *ContextRepository) Save(ctx context.Context, c *state.Context) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode context: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO user_contexts (user_id, context, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET context = EXCLUDED.context, updated_at = EXCLUDED.updated_at`,
		c.UserID, raw, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert user context: %w", err)
	}
	return nil
}

// Delete implements state.Store.
func (r *ContextRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM user_contexts WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user context: %w", err)
	}
	return nil
}

// List implements state.Store. A row whose document no longer decodes is
// logged and skipped so one corrupt record cannot starve the scan.
func (r *ContextRepository) List(ctx context.Context) ([]*state.Context, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id, context FROM user_contexts ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query user contexts: %w", err)
	}
	defer rows.Close()

	var out []*state.Context
	for rows.Next() {
		var userID string
		var raw []byte
		if err := rows.Scan(&userID, &raw); err != nil {
			return nil, fmt.Errorf("scan user context row: %w", err)
		}

		var c state.Context
		if err := json.Unmarshal(raw, &c); err != nil {
			ctxzap.Warn(ctx, "skipping undecodable stored context",
				zap.Error(err),
				zap.String("user_id", userID),
			)
			continue
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user contexts: %w", err)
	}
	return out, nil
}
