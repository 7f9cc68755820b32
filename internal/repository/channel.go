package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatbubble/internal/logger"
	"github.com/chatbubble/internal/model"
)

const channelCols = `id, name, description, created_by, participants, created_at`

type ChannelRepository struct {
	pool *pgxpool.Pool
}

func NewChannelRepository(pool *pgxpool.Pool) *ChannelRepository {
	return &ChannelRepository{pool: pool}
}

func scanChannel(s rowScanner, c *model.Channel) error {
	return s.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedBy, &c.Participants, &c.CreatedAt)
}

func (r *ChannelRepository) Create(ctx context.Context, c *model.Channel) error {
	defer logger.DeferLogDuration("channel.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO channels (id, name, description, created_by, participants, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Name, c.Description, c.CreatedBy, c.Participants, c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("channelRepo.Create: %w", err)
	}
	return nil
}

func (r *ChannelRepository) GetByID(ctx context.Context, id string) (*model.Channel, error) {
	defer logger.DeferLogDuration("channel.GetByID", time.Now())()
	c := &model.Channel{}
	err := scanChannel(r.pool.QueryRow(ctx, `SELECT `+channelCols+` FROM channels WHERE id = $1`, id), c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("channelRepo.GetByID: %w", err)
	}
	return c, nil
}

// GetByName — поиск без учёта регистра (имена каналов уникальны в нижнем регистре).
func (r *ChannelRepository) GetByName(ctx context.Context, name string) (*model.Channel, error) {
	defer logger.DeferLogDuration("channel.GetByName", time.Now())()
	c := &model.Channel{}
	err := scanChannel(r.pool.QueryRow(ctx, `SELECT `+channelCols+` FROM channels WHERE LOWER(name) = $1`, strings.ToLower(name)), c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("channelRepo.GetByName: %w", err)
	}
	return c, nil
}

// ListForUser — каналы, где userID участник, по имени.
func (r *ChannelRepository) ListForUser(ctx context.Context, userID string) ([]model.Channel, error) {
	defer logger.DeferLogDuration("channel.ListForUser", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+channelCols+` FROM channels WHERE participants @> ARRAY[$1]::text[] ORDER BY LOWER(name)`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("channelRepo.ListForUser query: %w", err)
	}
	defer rows.Close()
	channels := make([]model.Channel, 0, 8)
	for rows.Next() {
		var c model.Channel
		if err := scanChannel(rows, &c); err != nil {
			return nil, fmt.Errorf("channelRepo.ListForUser scan: %w", err)
		}
		channels = append(channels, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("channelRepo.ListForUser rows: %w", err)
	}
	return channels, nil
}

func (r *ChannelRepository) UpdateMeta(ctx context.Context, id, name, description string) error {
	defer logger.DeferLogDuration("channel.UpdateMeta", time.Now())()
	tag, err := r.pool.Exec(ctx, `UPDATE channels SET name = $1, description = $2 WHERE id = $3`, name, description, id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("channelRepo.UpdateMeta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddParticipants добавляет id, которых ещё нет, и возвращает добавленных.
func (r *ChannelRepository) AddParticipants(ctx context.Context, id string, userIDs []string) ([]string, error) {
	defer logger.DeferLogDuration("channel.AddParticipants", time.Now())()
	var added []string
	err := r.updateParticipants(ctx, id, func(cur []string) []string {
		next, diff := model.MergeIDs(cur, userIDs)
		added = diff
		return next
	})
	if err != nil {
		return nil, fmt.Errorf("channelRepo.AddParticipants: %w", err)
	}
	return added, nil
}

// RemoveParticipant убирает userID; removed=false, если его и не было.
func (r *ChannelRepository) RemoveParticipant(ctx context.Context, id, userID string) (removed bool, err error) {
	defer logger.DeferLogDuration("channel.RemoveParticipant", time.Now())()
	err = r.updateParticipants(ctx, id, func(cur []string) []string {
		next := make([]string, 0, len(cur))
		for _, p := range cur {
			if p == userID {
				removed = true
				continue
			}
			next = append(next, p)
		}
		return next
	})
	if err != nil {
		return false, fmt.Errorf("channelRepo.RemoveParticipant: %w", err)
	}
	return removed, nil
}

// updateParticipants — read-modify-write массива участников под блокировкой строки.
func (r *ChannelRepository) updateParticipants(ctx context.Context, id string, fn func([]string) []string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var cur []string
		err := tx.QueryRow(ctx, `SELECT participants FROM channels WHERE id = $1 FOR UPDATE`, id).Scan(&cur)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE channels SET participants = $1 WHERE id = $2`, fn(cur), id)
		return err
	})
}
