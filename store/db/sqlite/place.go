package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/tripweaver/tripweaver/store"
)

func (d *DB) UpsertPlace(ctx context.Context, place *store.Place) error {
	tags, err := json.Marshal(place.Tags)
	if err != nil {
		return errors.Wrap(err, "marshal tags")
	}
	connections, err := json.Marshal(place.Connections)
	if err != nil {
		return errors.Wrap(err, "marshal connections")
	}
	stmt := `INSERT INTO place (id, type, name, description, tags, connections, semantic_text)
	         VALUES (?, ?, ?, ?, ?, ?, ?)
	         ON CONFLICT (id) DO UPDATE SET
	           type = excluded.type,
	           name = excluded.name,
	           description = excluded.description,
	           tags = excluded.tags,
	           connections = excluded.connections,
	           semantic_text = excluded.semantic_text`
	_, err = d.db.ExecContext(ctx, stmt,
		place.ID, place.Type, place.Name, place.Description, string(tags), string(connections), place.SemanticText)
	return errors.Wrapf(err, "upsert place %q", place.ID)
}

func (d *DB) ListPlaces(ctx context.Context, find *store.FindPlace) ([]*store.Place, error) {
	where, args := []string{"1 = 1"}, []any{}
	if len(find.IDs) > 0 {
		placeholders := make([]string, len(find.IDs))
		for i, id := range find.IDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		where = append(where, fmt.Sprintf("id IN (%s)", strings.Join(placeholders, ", ")))
	}
	if v := find.Type; v != nil {
		where, args = append(where, "type = ?"), append(args, *v)
	}
	query := fmt.Sprintf(
		`SELECT id, type, name, description, tags, connections, semantic_text
		 FROM place WHERE %s ORDER BY id ASC`,
		strings.Join(where, " AND "),
	)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*store.Place
	for rows.Next() {
		p := &store.Place{}
		var tags, connections string
		if err := rows.Scan(&p.ID, &p.Type, &p.Name, &p.Description, &tags, &connections, &p.SemanticText); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
			return nil, errors.Wrapf(err, "unmarshal tags of place %q", p.ID)
		}
		if err := json.Unmarshal([]byte(connections), &p.Connections); err != nil {
			return nil, errors.Wrapf(err, "unmarshal connections of place %q", p.ID)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (d *DB) CountPlaces(ctx context.Context) (int64, error) {
	var count int64
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM place`).Scan(&count)
	return count, err
}

func (d *DB) DeleteAllPlaces(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM place`)
	return err
}
