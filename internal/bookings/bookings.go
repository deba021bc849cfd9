package bookings

import (
	"context"
	"time"

	"github.com/example/teetime-scheduler/internal/db"
	"github.com/example/teetime-scheduler/internal/teetime"
)

// Booking statuses. Rows are append-only; this code never updates or deletes
// individual rows after insert.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

type Record struct {
	ID        int64     `json:"id"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Players   int       `json:"players"`
	Holes     int       `json:"holes"`
	CartType  string    `json:"cartType"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

// Insert writes one booking row. A single INSERT, so it is atomic: a
// concurrent reader sees the whole row or nothing.
func (r *Repo) Insert(ctx context.Context, b teetime.Booking, status string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
INSERT INTO bookings(date, time, players, holes, cart_type, status)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id`,
		b.Date, b.Time, b.Players, b.Holes, b.CartType, status,
	).Scan(&id)
	return id, db.WrapNotFound(err)
}

func (r *Repo) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, date, time, players, holes, cart_type, status, created_at
FROM bookings
ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Date, &rec.Time, &rec.Players, &rec.Holes, &rec.CartType, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repo) Latest(ctx context.Context) (Record, error) {
	var rec Record
	err := r.db.QueryRow(ctx, `
SELECT id, date, time, players, holes, cart_type, status, created_at
FROM bookings
ORDER BY created_at DESC
LIMIT 1`).Scan(&rec.ID, &rec.Date, &rec.Time, &rec.Players, &rec.Holes, &rec.CartType, &rec.Status, &rec.CreatedAt)
	if err != nil {
		return Record{}, db.WrapNotFound(err)
	}
	return rec, nil
}

// ExistsForDate reports whether any row was persisted for a target date. The
// absence of a row is the signal that no booking happened for that date.
func (r *Repo) ExistsForDate(ctx context.Context, date string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE date=$1)`, date).Scan(&exists)
	return exists, db.WrapNotFound(err)
}

// Clear truncates the table. Diagnostics only; normal operation never deletes.
func (r *Repo) Clear(ctx context.Context) error {
	return r.db.Exec(ctx, `TRUNCATE bookings RESTART IDENTITY`)
}

// Seed inserts the demo rows the dashboard expects on a fresh install.
func (r *Repo) Seed(ctx context.Context) (int, error) {
	demo := []struct {
		rec     Record
		daysAgo int
	}{
		{Record{Date: "2025-06-11", Time: "4:30 PM", Players: 4, Holes: 9, CartType: "Any", Status: StatusConfirmed}, 0},
		{Record{Date: "2025-06-04", Time: "5:15 PM", Players: 4, Holes: 9, CartType: "Any", Status: StatusConfirmed}, 7},
		{Record{Date: "2025-05-28", Time: "4:45 PM", Players: 4, Holes: 9, CartType: "Any", Status: StatusCompleted}, 14},
	}

	n := 0
	for _, d := range demo {
		err := r.db.Exec(ctx, `
INSERT INTO bookings(date, time, players, holes, cart_type, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6, now() - make_interval(days => $7))`,
			d.rec.Date, d.rec.Time, d.rec.Players, d.rec.Holes, d.rec.CartType, d.rec.Status, d.daysAgo)
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
