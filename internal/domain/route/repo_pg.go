package route

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

type sheetRepoPG struct{ pool *pgxpool.Pool }

func NewSheetRepoPG(pool *pgxpool.Pool) SheetRepository {
	return &sheetRepoPG{pool: pool}
}

func (r *sheetRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const sheetCols = `id, employee_id, job_title, visit_date, status, created_at, updated_at`
const serviceCols = `id, route_sheet_id, position, code, name, specialization, station, status, completed_at`

func scanSheet(row pgx.Row) (*RouteSheet, error) {
	var s RouteSheet
	err := row.Scan(&s.ID, &s.EmployeeID, &s.JobTitle, &s.VisitDate, &s.Status,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanService(row pgx.Row) (*ExaminationService, error) {
	var e ExaminationService
	err := row.Scan(&e.ID, &e.RouteSheetID, &e.Position, &e.Code, &e.Name, &e.Specialization,
		&e.Station, &e.Status, &e.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *sheetRepoPG) Create(ctx context.Context, s *RouteSheet) error {
	return db.InTx(ctx, r.pool, func(ctx context.Context) error {
		conn := r.conn(ctx)
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		_, err := conn.Exec(ctx, `
			INSERT INTO route_sheet (id, employee_id, job_title, visit_date, status)
			VALUES ($1,$2,$3,$4,$5)`,
			s.ID, s.EmployeeID, s.JobTitle, s.VisitDate, s.Status)
		if err != nil {
			return err
		}
		for i := range s.Services {
			svc := &s.Services[i]
			if svc.ID == uuid.Nil {
				svc.ID = uuid.New()
			}
			svc.RouteSheetID = s.ID
			_, err := conn.Exec(ctx, `
				INSERT INTO examination_service (id, route_sheet_id, position, code, name, specialization, station, status)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				svc.ID, svc.RouteSheetID, svc.Position, svc.Code, svc.Name, svc.Specialization, svc.Station, svc.Status)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *sheetRepoPG) loadServices(ctx context.Context, s *RouteSheet) error {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+serviceCols+` FROM examination_service WHERE route_sheet_id = $1 ORDER BY position`, s.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return err
		}
		s.Services = append(s.Services, *svc)
	}
	return rows.Err()
}

func (r *sheetRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*RouteSheet, error) {
	s, err := scanSheet(r.conn(ctx).QueryRow(ctx,
		`SELECT `+sheetCols+` FROM route_sheet WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("route sheet", id.String())
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadServices(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *sheetRepoPG) GetOpenByEmployee(ctx context.Context, employeeID uuid.UUID) (*RouteSheet, error) {
	s, err := scanSheet(r.conn(ctx).QueryRow(ctx,
		`SELECT `+sheetCols+` FROM route_sheet WHERE employee_id = $1 AND status = $2
		 ORDER BY created_at DESC LIMIT 1`, employeeID, SheetOpen))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("open route sheet", employeeID.String())
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadServices(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *sheetRepoPG) GetLatestByEmployee(ctx context.Context, employeeID uuid.UUID) (*RouteSheet, error) {
	s, err := scanSheet(r.conn(ctx).QueryRow(ctx,
		`SELECT `+sheetCols+` FROM route_sheet WHERE employee_id = $1
		 ORDER BY created_at DESC LIMIT 1`, employeeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("route sheet", employeeID.String())
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadServices(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *sheetRepoPG) List(ctx context.Context, status SheetStatus, limit, offset int) ([]*RouteSheet, int, error) {
	where := ``
	args := []interface{}{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM route_sheet`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + sheetCols + ` FROM route_sheet` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) +
		` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*RouteSheet
	for rows.Next() {
		s, err := scanSheet(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for _, s := range items {
		if err := r.loadServices(ctx, s); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

func (r *sheetRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status SheetStatus) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE route_sheet SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("route sheet", id.String())
	}
	return nil
}

func (r *sheetRepoPG) GetService(ctx context.Context, serviceID uuid.UUID) (*ExaminationService, error) {
	e, err := scanService(r.conn(ctx).QueryRow(ctx,
		`SELECT `+serviceCols+` FROM examination_service WHERE id = $1`, serviceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("examination service", serviceID.String())
	}
	return e, err
}

func (r *sheetRepoPG) CompleteService(ctx context.Context, serviceID uuid.UUID) (*ExaminationService, error) {
	e, err := scanService(r.conn(ctx).QueryRow(ctx, `
		UPDATE examination_service
		SET status = $2, completed_at = COALESCE(completed_at, NOW())
		WHERE id = $1
		RETURNING `+serviceCols, serviceID, ServiceCompleted))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("examination service", serviceID.String())
	}
	return e, err
}
