package calendarplan

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

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

type planRepoPG struct{ pool *pgxpool.Pool }

func NewPlanRepoPG(pool *pgxpool.Pool) PlanRepository {
	return &planRepoPG{pool: pool}
}

func (r *planRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const planCols = `id, scopes, hazard_factors, specialists, status,
	rejection_reason, history, created_at, updated_at`

// Scopes and history live in JSONB columns: sub-scopes are owned wholesale by
// the plan and are always read and written together with it.
func scanPlan(row pgx.Row) (*CalendarPlan, error) {
	var p CalendarPlan
	var scopes, history []byte
	err := row.Scan(&p.ID, &scopes, &p.HazardFactors, &p.Specialists, &p.Status,
		&p.RejectionReason, &history, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(scopes, &p.Scopes); err != nil {
		return nil, err
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &p.History); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (r *planRepoPG) Create(ctx context.Context, p *CalendarPlan) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	scopes, err := json.Marshal(p.Scopes)
	if err != nil {
		return err
	}
	history, err := json.Marshal(p.History)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO calendar_plan (id, scopes, hazard_factors, specialists, status, history)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, scopes, p.HazardFactors, p.Specialists, p.Status, history)
	return err
}

func (r *planRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*CalendarPlan, error) {
	p, err := scanPlan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+planCols+` FROM calendar_plan WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("calendar plan", id.String())
	}
	return p, err
}

func (r *planRepoPG) Update(ctx context.Context, p *CalendarPlan) error {
	scopes, err := json.Marshal(p.Scopes)
	if err != nil {
		return err
	}
	history, err := json.Marshal(p.History)
	if err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE calendar_plan SET scopes=$2, hazard_factors=$3, specialists=$4,
			status=$5, rejection_reason=$6, history=$7, updated_at=NOW()
		WHERE id = $1`,
		p.ID, scopes, p.HazardFactors, p.Specialists, p.Status, p.RejectionReason, history)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("calendar plan", p.ID.String())
	}
	return nil
}

func (r *planRepoPG) List(ctx context.Context, status Status, limit, offset int) ([]*CalendarPlan, int, error) {
	where := ``
	args := []interface{}{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM calendar_plan`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + planCols + ` FROM calendar_plan` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) +
		` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*CalendarPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *planRepoPG) ListApproved(ctx context.Context) ([]*CalendarPlan, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+planCols+` FROM calendar_plan WHERE status = $1 OR status = $2`,
		StatusApproved, StatusSentToAuthority)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*CalendarPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
