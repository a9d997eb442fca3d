package expertise

import (
	"context"
	"encoding/json"
	"errors"

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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

type conclusionRepoPG struct{ pool *pgxpool.Pool }

func NewConclusionRepoPG(pool *pgxpool.Pool) ConclusionRepository {
	return &conclusionRepoPG{pool: pool}
}

func (r *conclusionRepoPG) Upsert(ctx context.Context, c *DoctorConclusion) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	codes, err := json.Marshal(c.Codes)
	if err != nil {
		return err
	}
	_, err = conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO doctor_conclusion (id, employee_id, specialization, outcome, codes, note, doctor_name, submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (employee_id, specialization)
		DO UPDATE SET outcome = EXCLUDED.outcome, codes = EXCLUDED.codes,
			note = EXCLUDED.note, doctor_name = EXCLUDED.doctor_name,
			submitted_at = EXCLUDED.submitted_at`,
		c.ID, c.EmployeeID, c.Specialization, c.Outcome, codes, c.Note, c.DoctorName, c.SubmittedAt)
	return err
}

func (r *conclusionRepoPG) ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]DoctorConclusion, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, employee_id, specialization, outcome, codes, note, doctor_name, submitted_at
		FROM doctor_conclusion WHERE employee_id = $1 ORDER BY specialization`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DoctorConclusion
	for rows.Next() {
		var c DoctorConclusion
		var codes []byte
		if err := rows.Scan(&c.ID, &c.EmployeeID, &c.Specialization, &c.Outcome,
			&codes, &c.Note, &c.DoctorName, &c.SubmittedAt); err != nil {
			return nil, err
		}
		if len(codes) > 0 {
			if err := json.Unmarshal(codes, &c.Codes); err != nil {
				return nil, err
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type expertiseRepoPG struct{ pool *pgxpool.Pool }

func NewExpertiseRepoPG(pool *pgxpool.Pool) ExpertiseRepository {
	return &expertiseRepoPG{pool: pool}
}

const expertiseCols = `id, employee_id, sheet_id, health_group, fitness, reason, temporary_until, issued_by, issued_at`

func scanExpertise(row pgx.Row) (*Expertise, error) {
	var e Expertise
	err := row.Scan(&e.ID, &e.EmployeeID, &e.SheetID, &e.HealthGroup, &e.Fitness,
		&e.Reason, &e.TemporaryUntil, &e.IssuedBy, &e.IssuedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *expertiseRepoPG) Replace(ctx context.Context, e *Expertise) error {
	return db.InTx(ctx, r.pool, func(ctx context.Context) error {
		c := conn(ctx, r.pool)
		if _, err := c.Exec(ctx,
			`DELETE FROM expertise WHERE employee_id = $1`, e.EmployeeID); err != nil {
			return err
		}
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		_, err := c.Exec(ctx, `
			INSERT INTO expertise (id, employee_id, sheet_id, health_group, fitness, reason, temporary_until, issued_by, issued_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			e.ID, e.EmployeeID, e.SheetID, e.HealthGroup, e.Fitness, e.Reason, e.TemporaryUntil, e.IssuedBy, e.IssuedAt)
		return err
	})
}

func (r *expertiseRepoPG) GetByEmployee(ctx context.Context, employeeID uuid.UUID) (*Expertise, error) {
	e, err := scanExpertise(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+expertiseCols+` FROM expertise WHERE employee_id = $1`, employeeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("expertise", employeeID.String())
	}
	return e, err
}

func (r *expertiseRepoPG) List(ctx context.Context, limit, offset int) ([]*Expertise, int, error) {
	c := conn(ctx, r.pool)
	var total int
	if err := c.QueryRow(ctx, `SELECT COUNT(*) FROM expertise`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := c.Query(ctx, `SELECT `+expertiseCols+` FROM expertise
		ORDER BY issued_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Expertise
	for rows.Next() {
		e, err := scanExpertise(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

type referralRepoPG struct{ pool *pgxpool.Pool }

func NewReferralRepoPG(pool *pgxpool.Pool) ReferralRepository {
	return &referralRepoPG{pool: pool}
}

const referralCols = `id, employee_id, expertise_id, type, status, institution, created_at, updated_at`

func scanReferral(row pgx.Row) (*Referral, error) {
	var ref Referral
	err := row.Scan(&ref.ID, &ref.EmployeeID, &ref.ExpertiseID, &ref.Type,
		&ref.Status, &ref.Institution, &ref.CreatedAt, &ref.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *referralRepoPG) Create(ctx context.Context, ref *Referral) error {
	if ref.ID == uuid.Nil {
		ref.ID = uuid.New()
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO referral (id, employee_id, expertise_id, type, status, institution)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		ref.ID, ref.EmployeeID, ref.ExpertiseID, ref.Type, ref.Status, ref.Institution)
	return err
}

func (r *referralRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Referral, error) {
	ref, err := scanReferral(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+referralCols+` FROM referral WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("referral", id.String())
	}
	return ref, err
}

func (r *referralRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, expected, to ReferralStatus) (*Referral, error) {
	ref, err := scanReferral(conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE referral SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+referralCols, id, expected, to))
	if err == nil {
		return ref, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	fresh, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, apperr.StateConflict("referral", id.String(), string(fresh.Status), string(to))
}

func (r *referralRepoPG) ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]*Referral, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+referralCols+` FROM referral WHERE employee_id = $1 ORDER BY created_at DESC`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Referral
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, ref)
	}
	return items, rows.Err()
}
