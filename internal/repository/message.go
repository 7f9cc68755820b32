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
	"github.com/chatbubble/internal/reaction"
)

// messageTable описывает коллекцию сообщений: таблицу и колонку родителя.
type messageTable struct {
	name      string
	parentCol string
	op        string // префикс для логов и ошибок
}

var (
	channelChatsTable = messageTable{name: "channel_chats", parentCol: "channel_id", op: "chatRepo"}
	answersTable      = messageTable{name: "chat_answers", parentCol: "chat_id", op: "answerRepo"}
	dmMessagesTable   = messageTable{name: "dm_messages", parentCol: "thread_id", op: "dmMsgRepo"}
)

// MessageRepository хранит сообщения одной коллекции. Все три коллекции
// (сообщения канала, ответы в треде, личные сообщения) имеют одну форму.
type MessageRepository struct {
	pool *pgxpool.Pool
	t    messageTable
}

// NewChannelChatRepository — channels/{id}/chats, ParentID = id канала.
func NewChannelChatRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool, t: channelChatsTable}
}

// NewAnswerRepository — channels/{id}/chats/{id}/answers, ParentID = id сообщения канала.
func NewAnswerRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool, t: answersTable}
}

// NewDMMessageRepository — dmChats/{id}/messages, ParentID = ключ DM.
func NewDMMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool, t: dmMessagesTable}
}

func (r *MessageRepository) cols() string {
	return `id, ` + r.t.parentCol + `, author_id, text, ts, edited_at, reactions`
}

func scanMessage(s rowScanner, m *model.Message) error {
	if err := s.Scan(&m.ID, &m.ParentID, &m.AuthorID, &m.Text, &m.Timestamp, &m.EditedAt, &m.Reactions); err != nil {
		return err
	}
	if m.Reactions == nil {
		m.Reactions = model.ReactionMap{}
	}
	return nil
}

func (r *MessageRepository) Create(ctx context.Context, m *model.Message) error {
	defer logger.DeferLogDuration(r.t.op+".Create", time.Now())()
	if m.Reactions == nil {
		m.Reactions = model.ReactionMap{}
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO `+r.t.name+` (`+r.cols()+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.ParentID, m.AuthorID, m.Text, m.Timestamp, m.EditedAt, m.Reactions,
	)
	if err != nil {
		return fmt.Errorf("%s.Create: %w", r.t.op, err)
	}
	return nil
}

// GetByID ищет сообщение внутри родителя: id из чужого канала/треда даёт ErrNotFound.
func (r *MessageRepository) GetByID(ctx context.Context, parentID, id string) (*model.Message, error) {
	defer logger.DeferLogDuration(r.t.op+".GetByID", time.Now())()
	m := &model.Message{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+r.cols()+` FROM `+r.t.name+` WHERE id = $1 AND `+r.t.parentCol+` = $2`,
		id, parentID,
	)
	if err := scanMessage(row, m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s.GetByID: %w", r.t.op, err)
	}
	return m, nil
}

// List возвращает последние limit сообщений старше курсора по возрастанию (ts, id).
// Курсор сравнивается парой (ts, id), поэтому сообщения одной секунды не теряются на границе страницы.
func (r *MessageRepository) List(ctx context.Context, parentID string, limit int, cur model.Cursor) ([]model.Message, error) {
	defer logger.DeferLogDuration(r.t.op+".List", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT * FROM (
		   SELECT `+r.cols()+` FROM `+r.t.name+`
		   WHERE `+r.t.parentCol+` = $1
		     AND ($2::bigint = 0
		          OR ts < $2::bigint
		          OR ($3::text <> '' AND ts = $2::bigint AND id < $3::text))
		   ORDER BY ts DESC, id DESC
		   LIMIT $4
		 ) page ORDER BY ts, id`,
		parentID, cur.Before, cur.BeforeID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s.List query: %w", r.t.op, err)
	}
	defer rows.Close()

	messages := make([]model.Message, 0, limit)
	for rows.Next() {
		var m model.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, fmt.Errorf("%s.List scan: %w", r.t.op, err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s.List rows: %w", r.t.op, err)
	}
	return messages, nil
}

// UpdateText заменяет текст и ставит edited_at. Автора проверяет сервис.
func (r *MessageRepository) UpdateText(ctx context.Context, parentID, id, text string, editedAt int64) error {
	defer logger.DeferLogDuration(r.t.op+".UpdateText", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE `+r.t.name+` SET text = $1, edited_at = $2 WHERE id = $3 AND `+r.t.parentCol+` = $4`,
		text, editedAt, id, parentID,
	)
	if err != nil {
		return fmt.Errorf("%s.UpdateText: %w", r.t.op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleReaction переключает реакцию userID под блокировкой строки и возвращает новую карту.
// Параллельные переключения разных пользователей не теряют друг друга.
func (r *MessageRepository) ToggleReaction(ctx context.Context, parentID, id, reactionType, userID string) (model.ReactionMap, error) {
	defer logger.DeferLogDuration(r.t.op+".ToggleReaction", time.Now())()
	var next model.ReactionMap
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var cur model.ReactionMap
		err := tx.QueryRow(ctx,
			`SELECT reactions FROM `+r.t.name+` WHERE id = $1 AND `+r.t.parentCol+` = $2 FOR UPDATE`,
			id, parentID,
		).Scan(&cur)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		next = reaction.Toggle(cur, reactionType, userID)
		_, err = tx.Exec(ctx, `UPDATE `+r.t.name+` SET reactions = $1 WHERE id = $2`, next, id)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s.ToggleReaction: %w", r.t.op, err)
	}
	return next, nil
}

// Stats — число сообщений и время последнего по каждому родителю. Для ответов это answer_count/last_answer_at.
func (r *MessageRepository) Stats(ctx context.Context, parentIDs []string) (map[string]model.ThreadStats, error) {
	defer logger.DeferLogDuration(r.t.op+".Stats", time.Now())()
	out := make(map[string]model.ThreadStats, len(parentIDs))
	if len(parentIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+r.t.parentCol+`, COUNT(*), MAX(ts) FROM `+r.t.name+`
		 WHERE `+r.t.parentCol+` = ANY($1) GROUP BY `+r.t.parentCol,
		parentIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("%s.Stats query: %w", r.t.op, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			parent string
			st     model.ThreadStats
		)
		if err := rows.Scan(&parent, &st.Count, &st.LastAnswerAt); err != nil {
			return nil, fmt.Errorf("%s.Stats scan: %w", r.t.op, err)
		}
		out[parent] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s.Stats rows: %w", r.t.op, err)
	}
	return out, nil
}
