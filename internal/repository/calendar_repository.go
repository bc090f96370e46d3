package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/ubs-backend/internal/model"
)

// CalendarRepo persists unit calendar entries.
type CalendarRepo struct{ DB *sql.DB }

func NewCalendarRepo(db *sql.DB) *CalendarRepo { return &CalendarRepo{DB: db} }

const calendarColumns = `id, ubs_id, title, kind, location, starts_at, ends_at, all_day, recurrence,
recurrence_interval, recurrence_until, notes, created_by, created_at, updated_at`

func scanCalendarEvent(row interface{ Scan(...any) error }) (model.CalendarEvent, error) {
	var (
		e          model.CalendarEvent
		kind, recu string
	)
	err := row.Scan(&e.ID, &e.UBSID, &e.Title, &kind, &e.Location, &e.StartsAt, &e.EndsAt, &e.AllDay,
		&recu, &e.RecurrenceInterval, &e.RecurrenceUntil, &e.Notes, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	e.Kind = model.EventKind(kind)
	e.Recurrence = model.Recurrence(recu)
	return e, err
}

// Create inserts e and reloads it.
func (r *CalendarRepo) Create(ctx context.Context, e *model.CalendarEvent) error {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO calendar_events
(ubs_id, title, kind, location, starts_at, ends_at, all_day, recurrence, recurrence_interval, recurrence_until, notes, created_by)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.UBSID, e.Title, string(e.Kind), e.Location, e.StartsAt.UTC(), e.EndsAt, e.AllDay,
		string(e.Recurrence), e.RecurrenceInterval, e.RecurrenceUntil, e.Notes, e.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*e = created
	return nil
}

// GetByID fetches one entry.
func (r *CalendarRepo) GetByID(ctx context.Context, id uint64) (model.CalendarEvent, error) {
	e, err := scanCalendarEvent(r.DB.QueryRowContext(ctx,
		"SELECT "+calendarColumns+" FROM calendar_events WHERE id=? LIMIT 1", id))
	return e, notFound(err)
}

// List returns a unit's entries ordered by start.  Nil bounds are open;
// both compare against starts_at.
func (r *CalendarRepo) List(ctx context.Context, ubsID uint64, from, to *time.Time) ([]model.CalendarEvent, error) {
	q := "SELECT " + calendarColumns + " FROM calendar_events WHERE ubs_id=?"
	args := []any{ubsID}
	if from != nil {
		q += " AND starts_at >= ?"
		args = append(args, from.UTC())
	}
	if to != nil {
		q += " AND starts_at <= ?"
		args = append(args, to.UTC())
	}
	q += " ORDER BY starts_at, id"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.CalendarEvent{}
	for rows.Next() {
		e, err := scanCalendarEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update writes the mutable columns of e.
func (r *CalendarRepo) Update(ctx context.Context, e *model.CalendarEvent) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE calendar_events SET
title=?, kind=?, location=?, starts_at=?, ends_at=?, all_day=?, recurrence=?, recurrence_interval=?,
recurrence_until=?, notes=? WHERE id=?`,
		e.Title, string(e.Kind), e.Location, e.StartsAt.UTC(), e.EndsAt, e.AllDay, string(e.Recurrence),
		e.RecurrenceInterval, e.RecurrenceUntil, e.Notes, e.ID)
	if err != nil {
		return err
	}
	return affected(res)
}

// Delete removes one entry.
func (r *CalendarRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM calendar_events WHERE id=?", id)
	if err != nil {
		return err
	}
	return affected(res)
}
