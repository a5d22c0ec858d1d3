package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/babelchat/server/internal/types"
)

func (db *PgChatRepository) IsMember(ctx context.Context, roomId, userId string) (bool, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM room_members WHERE room_id = $1 AND account_id = $2)",
		roomId, userId,
	)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("is member: %w", err)
	}

	return exists, nil
}

func (db *PgChatRepository) ListMembers(ctx context.Context, roomId string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT account_id FROM room_members WHERE room_id = $1",
		roomId,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		members = append(members, id)
	}

	return members, rows.Err()
}

func (db *PgChatRepository) ListRooms(ctx context.Context, userId string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT room_id FROM room_members WHERE account_id = $1",
		userId,
	)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		rooms = append(rooms, id)
	}

	return rooms, rows.Err()
}

func (db *PgChatRepository) SaveMessage(ctx context.Context, msg types.Message) (string, error) {
	translations, err := json.Marshal(msg.Translations)
	if err != nil {
		return "", fmt.Errorf("marshal translations: %w", err)
	}

	id := msg.Id
	if id == "" {
		id = uuid.NewString()
	}

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = db.conn.ExecContext(ctx,
		"INSERT INTO messages (id, room_id, sender_id, content, original_language, translations, read_by, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		id,
		msg.RoomId,
		msg.SenderId,
		msg.Content,
		string(msg.OriginalLanguage),
		translations,
		pq.Array(msg.ReadBy),
		createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("save message: %w", err)
	}

	return id, nil
}

func (db *PgChatRepository) AppendReader(ctx context.Context, messageId, userId string) (bool, error) {
	// Check-and-append in one statement so concurrent read marks for the
	// same message cannot double-insert the user.
	res, err := db.conn.ExecContext(ctx,
		"UPDATE messages SET read_by = array_append(read_by, $2) "+
			"WHERE id = $1 AND NOT (read_by @> ARRAY[$2])",
		messageId, userId,
	)
	if err != nil {
		return false, fmt.Errorf("append reader: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return true, nil
	}

	// Nothing updated: either the user already read it, or the message
	// doesn't exist.
	exists, err := db.MessageExists(ctx, messageId)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, ErrMessageNotFound
	}

	return false, nil
}

func (db *PgChatRepository) MessageExists(ctx context.Context, messageId string) (bool, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM messages WHERE id = $1)",
		messageId,
	)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("message exists: %w", err)
	}

	return exists, nil
}

func (db *PgChatRepository) GetMessages(ctx context.Context, roomId string, limit int) ([]types.Message, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, room_id, sender_id, content, original_language, translations, read_by, created_at "+
			"FROM messages WHERE room_id = $1 ORDER BY created_at DESC LIMIT $2",
		roomId, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer rows.Close()

	var messages []types.Message
	for rows.Next() {
		var (
			msg          types.Message
			lang         string
			translations []byte
			readBy       pq.StringArray
		)
		if err := rows.Scan(
			&msg.Id,
			&msg.RoomId,
			&msg.SenderId,
			&msg.Content,
			&lang,
			&translations,
			&readBy,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}

		msg.OriginalLanguage = types.Language(lang)
		msg.ReadBy = readBy
		if len(translations) > 0 {
			if err := json.Unmarshal(translations, &msg.Translations); err != nil {
				return nil, fmt.Errorf("unmarshal translations: %w", err)
			}
		}

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}
