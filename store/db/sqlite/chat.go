package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hrygo/divinecanvas/store"
)

func (d *DB) CreateChatSession(ctx context.Context, create *store.ChatSession) (*store.ChatSession, error) {
	fields := []string{"title", "created_ts", "updated_ts"}
	args := []any{create.Title, create.CreatedTs, create.UpdatedTs}

	stmt := `INSERT INTO chat_session (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create chat_session: %w", err)
	}
	return create, nil
}

func (d *DB) ListChatSessions(ctx context.Context, find *store.FindChatSession) ([]*store.ChatSession, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}

	query := `SELECT id, title, created_ts, updated_ts FROM chat_session WHERE ` + strings.Join(where, " AND ") + ` ORDER BY updated_ts DESC, id DESC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat_sessions: %w", err)
	}
	defer rows.Close()

	list := make([]*store.ChatSession, 0)
	for rows.Next() {
		s := &store.ChatSession{}
		if err := rows.Scan(&s.ID, &s.Title, &s.CreatedTs, &s.UpdatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan chat_session: %w", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat_sessions: %w", err)
	}
	return list, nil
}

func (d *DB) UpdateChatSession(ctx context.Context, update *store.UpdateChatSession) error {
	set, args := []string{}, []any{}
	if update.Title != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *update.Title)
	}
	if update.UpdatedTs != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *update.UpdatedTs)
	}
	if len(set) == 0 {
		return fmt.Errorf("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE chat_session SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("failed to update chat_session: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

func (d *DB) DeleteChatSession(ctx context.Context, delete *store.DeleteChatSession) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_message WHERE session_id = `+placeholder(1), delete.ID); err != nil {
		return fmt.Errorf("failed to delete chat_messages: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM chat_session WHERE id = `+placeholder(1), delete.ID)
	if err != nil {
		return fmt.Errorf("failed to delete chat_session: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return store.ErrSessionNotFound
	}
	return tx.Commit()
}

func (d *DB) CreateChatMessage(ctx context.Context, create *store.ChatMessage) (*store.ChatMessage, error) {
	images, err := marshalJSON(create.Images)
	if err != nil {
		return nil, err
	}
	steps, err := marshalJSON(create.Steps)
	if err != nil {
		return nil, err
	}

	fields := []string{"session_id", "parent_id", "role", "content", "images", "steps", "agent", "created_ts"}
	args := []any{create.SessionID, create.ParentID, string(create.Role), create.Content, images, steps, create.Agent, create.CreatedTs}

	stmt := `INSERT INTO chat_message (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create chat_message: %w", err)
	}
	return create, nil
}

func (d *DB) ListChatMessages(ctx context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.SessionID != nil {
		where, args = append(where, "session_id = "+placeholder(len(args)+1)), append(args, *find.SessionID)
	}

	query := `SELECT id, session_id, parent_id, role, content, images, steps, agent, created_ts FROM chat_message WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat_messages: %w", err)
	}
	defer rows.Close()

	list := make([]*store.ChatMessage, 0)
	for rows.Next() {
		m := &store.ChatMessage{}
		var (
			parentID      sql.NullInt64
			role          string
			images, steps string
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &parentID, &role, &m.Content, &images, &steps, &m.Agent, &m.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan chat_message: %w", err)
		}
		if parentID.Valid {
			m.ParentID = &parentID.Int64
		}
		if m.Role, err = store.ParseMessageRole(role); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(images, &m.Images); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(steps, &m.Steps); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat_messages: %w", err)
	}
	return list, nil
}
