package contingent

import (
	"context"
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

type employeeRepoPG struct{ pool *pgxpool.Pool }

func NewEmployeeRepoPG(pool *pgxpool.Pool) EmployeeRepository {
	return &employeeRepoPG{pool: pool}
}

func (r *employeeRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const employeeCols = `id, full_name, job_title, department, hazard_factors,
	birth_date, last_exam_date, next_exam_date, archived, created_at, updated_at`

func scanEmployee(row pgx.Row) (*Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.FullName, &e.JobTitle, &e.Department, &e.HazardFactors,
		&e.BirthDate, &e.LastExamDate, &e.NextExamDate, &e.Archived, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *employeeRepoPG) Create(ctx context.Context, e *Employee) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO employee (id, full_name, job_title, department, hazard_factors,
			birth_date, last_exam_date, next_exam_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.FullName, e.JobTitle, e.Department, e.HazardFactors,
		e.BirthDate, e.LastExamDate, e.NextExamDate)
	return err
}

func (r *employeeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Employee, error) {
	e, err := scanEmployee(r.conn(ctx).QueryRow(ctx,
		`SELECT `+employeeCols+` FROM employee WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("employee", id.String())
	}
	return e, err
}

func (r *employeeRepoPG) Update(ctx context.Context, e *Employee) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE employee SET full_name=$2, job_title=$3, department=$4, hazard_factors=$5,
			birth_date=$6, last_exam_date=$7, next_exam_date=$8, updated_at=NOW()
		WHERE id = $1`,
		e.ID, e.FullName, e.JobTitle, e.Department, e.HazardFactors,
		e.BirthDate, e.LastExamDate, e.NextExamDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("employee", e.ID.String())
	}
	return nil
}

func (r *employeeRepoPG) Archive(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE employee SET archived = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("employee", id.String())
	}
	return nil
}

func (r *employeeRepoPG) List(ctx context.Context, department string, limit, offset int) ([]*Employee, int, error) {
	where := `WHERE archived = FALSE`
	args := []interface{}{}
	if department != "" {
		where += ` AND department = $1`
		args = append(args, department)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM employee `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + employeeCols + ` FROM employee ` + where +
		` ORDER BY full_name LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
