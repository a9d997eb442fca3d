package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promed/promed/internal/platform/apperr"
	"github.com/promed/promed/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type entryRepoPG struct{ pool *pgxpool.Pool }

func NewEntryRepoPG(pool *pgxpool.Pool) EntryRepository {
	return &entryRepoPG{pool: pool}
}

func (r *entryRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const entryCols = `id, station, service_id, employee_id, number, priority, status,
	enqueued_at, called_at, started_at, finished_at`

func scanEntry(row pgx.Row) (*QueueEntry, error) {
	var e QueueEntry
	err := row.Scan(&e.ID, &e.Station, &e.ServiceID, &e.EmployeeID, &e.Number,
		&e.Priority, &e.Status, &e.EnqueuedAt, &e.CalledAt, &e.StartedAt, &e.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// nextNumber bumps the per-station per-day counter. The upsert keeps numbers
// monotonic and never reused regardless of entry cancellations.
func (r *entryRepoPG) nextNumber(ctx context.Context, station string, day time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO station_counter (station, day, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (station, day)
		DO UPDATE SET last_number = station_counter.last_number + 1
		RETURNING last_number`, station, day).Scan(&n)
	return n, err
}

func (r *entryRepoPG) Create(ctx context.Context, e *QueueEntry) error {
	return db.InTx(ctx, r.pool, func(ctx context.Context) error {
		day := e.EnqueuedAt.Truncate(24 * time.Hour)
		n, err := r.nextNumber(ctx, e.Station, day)
		if err != nil {
			return err
		}
		e.Number = n
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		_, err = r.conn(ctx).Exec(ctx, `
			INSERT INTO queue_entry (id, station, service_id, employee_id, number, priority, status, enqueued_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			e.ID, e.Station, e.ServiceID, e.EmployeeID, e.Number, e.Priority, e.Status, e.EnqueuedAt)
		return err
	})
}

func (r *entryRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*QueueEntry, error) {
	e, err := scanEntry(r.conn(ctx).QueryRow(ctx,
		`SELECT `+entryCols+` FROM queue_entry WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("queue entry", id.String())
	}
	return e, err
}

// timestampColumn maps a target status to the column its transition stamps.
func timestampColumn(to EntryStatus) string {
	switch to {
	case StatusCalled:
		return "called_at"
	case StatusInProgress:
		return "started_at"
	case StatusCompleted, StatusSkipped, StatusCancelled:
		return "finished_at"
	}
	return ""
}

func (r *entryRepoPG) Transition(ctx context.Context, id uuid.UUID, expected, to EntryStatus, ts time.Time) (*QueueEntry, error) {
	query := `UPDATE queue_entry SET status = $3`
	args := []interface{}{id, expected, to}
	if col := timestampColumn(to); col != "" {
		query += `, ` + col + ` = $4`
		args = append(args, ts)
	}
	query += ` WHERE id = $1 AND status = $2 RETURNING ` + entryCols

	e, err := scanEntry(r.conn(ctx).QueryRow(ctx, query, args...))
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// Zero rows: either the entry is gone or someone moved it first.
	fresh, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, apperr.StateConflict("queue entry", id.String(), string(fresh.Status), string(to))
}

func (r *entryRepoPG) ListByStation(ctx context.Context, station string, day time.Time) ([]*QueueEntry, error) {
	from := day.Truncate(24 * time.Hour)
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+entryCols+` FROM queue_entry
		WHERE station = $1 AND enqueued_at >= $2 AND enqueued_at < $3
		ORDER BY
			CASE status WHEN 'waiting' THEN 0 WHEN 'called' THEN 0 WHEN 'in_progress' THEN 0 ELSE 1 END,
			CASE priority WHEN 'vip' THEN 0 WHEN 'urgent' THEN 1 ELSE 2 END,
			number`,
		station, from, from.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*QueueEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *entryRepoPG) FindActiveByService(ctx context.Context, serviceID uuid.UUID) (*QueueEntry, error) {
	e, err := scanEntry(r.conn(ctx).QueryRow(ctx, `
		SELECT `+entryCols+` FROM queue_entry
		WHERE service_id = $1 AND status IN ('waiting','called','in_progress')
		LIMIT 1`, serviceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("queue entry", serviceID.String())
	}
	return e, err
}

func (r *entryRepoPG) CountActive(ctx context.Context, station string) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM queue_entry
		WHERE station = $1 AND status IN ('waiting','called')`, station).Scan(&n)
	return n, err
}
