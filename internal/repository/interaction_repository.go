package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/sat-explorer/internal/model"
)

// InteractionRepository persists the interaction log.
type InteractionRepository struct {
	pool *pgxpool.Pool
}

func NewInteractionRepository(pool *pgxpool.Pool) *InteractionRepository {
	return &InteractionRepository{pool: pool}
}

// InsertBatch bulk-inserts interactions. Rows with a malformed session id are
// skipped.
func (r *InteractionRepository) InsertBatch(ctx context.Context, batch []model.Interaction) (int64, error) {
	rows := make([][]interface{}, 0, len(batch))
	for _, it := range batch {
		sid, err := uuid.Parse(it.SessionID)
		if err != nil {
			continue
		}
		rows = append(rows, []interface{}{
			sid, it.MinScore, it.MaxScore, it.Major,
			it.ERWCount, it.MathCount, it.RenderMS, it.At,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	return r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"interaction_events"},
		[]string{"session_id", "min_score", "max_score", "major", "erw_count", "math_count", "render_ms", "occurred_at"},
		pgx.CopyFromRows(rows),
	)
}
