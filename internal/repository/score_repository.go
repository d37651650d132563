package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/sat-explorer/internal/model"
)

// ScoreRepository reads and replaces the sat_scores table.
type ScoreRepository struct {
	pool *pgxpool.Pool
}

func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{pool: pool}
}

// List returns every score row in insertion order.
func (r *ScoreRepository) List(ctx context.Context) ([]model.Record, error) {
	query := `SELECT score_erw, score_math, intended_major FROM sat_scores ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		var rec model.Record
		if err := rows.Scan(&rec.ERW, &rec.Math, &rec.Major); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ReplaceAll truncates the table and bulk-inserts records in one transaction.
func (r *ScoreRepository) ReplaceAll(ctx context.Context, records []model.Record) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE sat_scores RESTART IDENTITY`); err != nil {
		return 0, fmt.Errorf("truncate: %w", err)
	}

	n, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"sat_scores"},
		[]string{"score_erw", "score_math", "intended_major"},
		pgx.CopyFromSlice(len(records), func(i int) ([]interface{}, error) {
			rec := records[i]
			return []interface{}{rec.ERW, rec.Math, rec.Major}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}
