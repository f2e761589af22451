package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/tripweaver/tripweaver/store"
)

func (d *DB) CreateChatSession(ctx context.Context, create *store.ChatSession) (*store.ChatSession, error) {
	stmt := `INSERT INTO chat_session (uid, title) VALUES (?, ?)`
	if _, err := d.db.ExecContext(ctx, stmt, create.UID, create.Title); err != nil {
		return nil, err
	}
	return d.getChatSession(ctx, create.UID)
}

func (d *DB) ListChatSessions(ctx context.Context, find *store.FindChatSession) ([]*store.ChatSession, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.UID; v != nil {
		where, args = append(where, "uid = ?"), append(args, *v)
	}
	query := fmt.Sprintf(
		`SELECT id, uid, title, summary, created_ts, updated_ts
		 FROM chat_session WHERE %s ORDER BY updated_ts DESC`,
		strings.Join(where, " AND "),
	)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*store.ChatSession
	for rows.Next() {
		s := &store.ChatSession{}
		if err := rows.Scan(&s.ID, &s.UID, &s.Title, &s.Summary, &s.CreatedTs, &s.UpdatedTs); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (d *DB) getChatSession(ctx context.Context, uid string) (*store.ChatSession, error) {
	list, err := d.ListChatSessions(ctx, &store.FindChatSession{UID: &uid})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (d *DB) UpdateChatSession(ctx context.Context, update *store.UpdateChatSession) (*store.ChatSession, error) {
	set, args := []string{}, []any{}
	if v := update.Title; v != nil {
		set, args = append(set, "title = ?"), append(args, *v)
	}
	if v := update.Summary; v != nil {
		set, args = append(set, "summary = ?"), append(args, *v)
	}
	if len(set) == 0 {
		return d.getChatSession(ctx, update.UID)
	}
	set = append(set, "updated_ts = strftime('%s', 'now')")
	args = append(args, update.UID)

	stmt := fmt.Sprintf(`UPDATE chat_session SET %s WHERE uid = ?`, strings.Join(set, ", "))
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, err
	}
	return d.getChatSession(ctx, update.UID)
}

func (d *DB) DeleteChatSession(ctx context.Context, uid string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM chat_session WHERE uid = ?`, uid)
	return err
}

func (d *DB) CreateChatMessage(ctx context.Context, create *store.CreateChatMessage) (*store.ChatMessage, error) {
	stmt := `INSERT INTO chat_message (session_id, role, content) VALUES (?, ?, ?)`
	result, err := d.db.ExecContext(ctx, stmt, create.SessionID, create.Role, create.Content)
	if err != nil {
		return nil, err
	}
	rawID, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	m := &store.ChatMessage{
		ID:        int32(rawID),
		SessionID: create.SessionID,
		Role:      create.Role,
		Content:   create.Content,
	}
	_ = d.db.QueryRowContext(ctx, `SELECT created_ts FROM chat_message WHERE id = ?`, m.ID).Scan(&m.CreatedTs)
	return m, nil
}

func (d *DB) ListChatMessages(ctx context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error) {
	query := `SELECT id, session_id, role, content, created_ts
	          FROM chat_message WHERE session_id = ? ORDER BY id ASC`
	rows, err := d.db.QueryContext(ctx, query, find.SessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*store.ChatMessage
	for rows.Next() {
		m := &store.ChatMessage{}
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedTs); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (d *DB) DeleteChatMessages(ctx context.Context, sessionID int32) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM chat_message WHERE session_id = ?`, sessionID)
	return err
}
