package repository

import (
	"context"
	"database/sql"
)

// EventRepo handles calendar events.
type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

func (r *EventRepo) Create(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO events(id, title, date, start_time, end_time)
	VALUES (?, ?, ?, ?, ?);
	`, e.ID, e.Title, e.Date, e.StartTime, e.EndTime)
	return err
}

func (r *EventRepo) ListByDate(ctx context.Context, date string) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, title, date, start_time, end_time, created_at
	FROM events WHERE date = ? ORDER BY start_time, title`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Date, &e.StartTime, &e.EndTime, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EventRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	return err
}
