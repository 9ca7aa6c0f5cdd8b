package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/worklog-review/internal/core/employment"
	pgdb "github.com/ogurasousui/worklog-review/internal/platform/db/postgres"
)

const findRelationshipQuery = `
        SELECT employee_id, organization_id, status, hired_at, terminated_at, updated_at
          FROM employment_relationships
         WHERE employee_id = $1 AND organization_id = $2
         LIMIT 1
    `

// EmploymentRepository は雇用関係を参照する PostgreSQL 実装です。
type EmploymentRepository struct {
	pool pgdb.Queryer
}

// NewEmploymentRepository は EmploymentRepository を生成します。
func NewEmploymentRepository(pool pgdb.Queryer) *EmploymentRepository {
	return &EmploymentRepository{pool: pool}
}

// FindRelationship は社員と組織の雇用関係を取得します。
func (r *EmploymentRepository) FindRelationship(ctx context.Context, employeeID, organizationID string) (*employment.Relationship, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	found, err := scanRelationship(exec.QueryRow(ctx, findRelationshipQuery, employeeID, organizationID))
	if err != nil {
		return nil, errors.Wrap(err, "find employment relationship")
	}
	return found, nil
}

func scanRelationship(row pgx.Row) (*employment.Relationship, error) {
	var (
		rel          employment.Relationship
		status       string
		hiredAt      sql.NullTime
		terminatedAt sql.NullTime
		updatedAt    time.Time
	)

	if err := row.Scan(&rel.EmployeeID, &rel.OrganizationID, &status, &hiredAt, &terminatedAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employment.ErrRelationshipNotFound
		}
		return nil, err
	}

	rel.Status = employment.Status(status)
	rel.HiredAt = dateFromNull(hiredAt)
	rel.TerminatedAt = dateFromNull(terminatedAt)
	rel.UpdatedAt = updatedAt.UTC()
	return &rel, nil
}
