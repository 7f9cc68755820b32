package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatbubble/internal/logger"
	"github.com/chatbubble/internal/model"
)

type DMRepository struct {
	pool *pgxpool.Pool
}

func NewDMRepository(pool *pgxpool.Pool) *DMRepository {
	return &DMRepository{pool: pool}
}

// GetOrCreate создаёт тред a/b, если его нет. Идемпотентно: id — model.DMKey(a, b).
func (r *DMRepository) GetOrCreate(ctx context.Context, a, b string) (*model.DMThread, bool, error) {
	defer logger.DeferLogDuration("dm.GetOrCreate", time.Now())()
	id := model.DMKey(a, b)
	participants, _ := model.MergeIDs(nil, []string{a, b})
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO dm_threads (id, participants, created_at) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
		id, participants, time.Now().UTC(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("dmRepo.GetOrCreate: %w", err)
	}
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return t, tag.RowsAffected() == 1, nil
}

func (r *DMRepository) GetByID(ctx context.Context, id string) (*model.DMThread, error) {
	defer logger.DeferLogDuration("dm.GetByID", time.Now())()
	t := &model.DMThread{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, participants, created_at FROM dm_threads WHERE id = $1`, id,
	).Scan(&t.ID, &t.Participants, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dmRepo.GetByID: %w", err)
	}
	return t, nil
}

// ListForUser — треды пользователя, свежие сверху (по последнему сообщению, иначе по созданию).
func (r *DMRepository) ListForUser(ctx context.Context, userID string) ([]model.DMThread, error) {
	defer logger.DeferLogDuration("dm.ListForUser", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.participants, t.created_at
		 FROM dm_threads t
		 LEFT JOIN LATERAL (SELECT MAX(ts) AS last_ts FROM dm_messages m WHERE m.thread_id = t.id) lm ON true
		 WHERE t.participants @> ARRAY[$1]::text[]
		 ORDER BY COALESCE(lm.last_ts, EXTRACT(EPOCH FROM t.created_at)::bigint) DESC, t.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("dmRepo.ListForUser query: %w", err)
	}
	defer rows.Close()
	threads := make([]model.DMThread, 0, 8)
	for rows.Next() {
		var t model.DMThread
		if err := rows.Scan(&t.ID, &t.Participants, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("dmRepo.ListForUser scan: %w", err)
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dmRepo.ListForUser rows: %w", err)
	}
	return threads, nil
}
