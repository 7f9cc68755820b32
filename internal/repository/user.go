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

const userCols = `id, name, email, avatar_url, presence, last_seen_at, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(s rowScanner, u *model.User) error {
	return s.Scan(&u.ID, &u.Name, &u.Email, &u.AvatarURL, &u.Presence, &u.LastSeenAt, &u.CreatedAt, &u.UpdatedAt)
}

func collectUsers(rows pgx.Rows, op string) ([]model.User, error) {
	defer rows.Close()
	users := make([]model.User, 0, 16)
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("userRepo.%s scan: %w", op, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("userRepo.%s rows: %w", op, err)
	}
	return users, nil
}

// Ensure создаёт профиль, если его нет, и возвращает актуальную запись. created — профиль новый.
func (r *UserRepository) Ensure(ctx context.Context, u *model.User) (created bool, err error) {
	defer logger.DeferLogDuration("user.Ensure", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, avatar_url, presence, last_seen_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6, $6)
		 ON CONFLICT (id) DO NOTHING`,
		u.ID, u.Name, u.Email, u.AvatarURL, u.Presence, u.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("userRepo.Ensure: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	defer logger.DeferLogDuration("user.GetByID", time.Now())()
	u := &model.User{}
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id)
	if err := scanUser(row, u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("userRepo.GetByID: %w", err)
	}
	return u, nil
}

// GetByIDs возвращает найденных пользователей; отсутствующие id просто пропускаются.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	defer logger.DeferLogDuration("user.GetByIDs", time.Now())()
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userCols+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("userRepo.GetByIDs: %w", err)
	}
	return collectUsers(rows, "GetByIDs")
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	defer logger.DeferLogDuration("user.GetByEmail", time.Now())()
	u := &model.User{}
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE LOWER(email) = $1 LIMIT 1`, strings.ToLower(email))
	if err := scanUser(row, u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("userRepo.GetByEmail: %w", err)
	}
	return u, nil
}

// FindByName ищет по отображаемому имени без учёта регистра; имена не уникальны.
func (r *UserRepository) FindByName(ctx context.Context, name string) ([]model.User, error) {
	defer logger.DeferLogDuration("user.FindByName", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+userCols+` FROM users WHERE LOWER(name) = $1 ORDER BY created_at`,
		strings.ToLower(name),
	)
	if err != nil {
		return nil, fmt.Errorf("userRepo.FindByName: %w", err)
	}
	return collectUsers(rows, "FindByName")
}

func (r *UserRepository) ListAll(ctx context.Context, limit int) ([]model.User, error) {
	defer logger.DeferLogDuration("user.ListAll", time.Now())()
	rows, err := r.pool.Query(ctx, `SELECT `+userCols+` FROM users ORDER BY LOWER(name), id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("userRepo.ListAll: %w", err)
	}
	return collectUsers(rows, "ListAll")
}

func (r *UserRepository) UpdateProfile(ctx context.Context, userID, name, avatarURL string) error {
	defer logger.DeferLogDuration("user.UpdateProfile", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $1, avatar_url = $2, updated_at = NOW() WHERE id = $3`,
		name, avatarURL, userID,
	)
	if err != nil {
		return fmt.Errorf("userRepo.UpdateProfile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetPresence(ctx context.Context, userID string, p model.Presence) error {
	defer logger.DeferLogDuration("user.SetPresence", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET presence = $1, last_seen_at = $2 WHERE id = $3`,
		p, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("userRepo.SetPresence: %w", err)
	}
	return nil
}

// ResetPresence переводит всех в offline (при старте: соединений ещё нет).
func (r *UserRepository) ResetPresence(ctx context.Context) error {
	defer logger.DeferLogDuration("user.ResetPresence", time.Now())()
	if _, err := r.pool.Exec(ctx, `UPDATE users SET presence = 'offline' WHERE presence <> 'offline'`); err != nil {
		return fmt.Errorf("userRepo.ResetPresence: %w", err)
	}
	return nil
}
