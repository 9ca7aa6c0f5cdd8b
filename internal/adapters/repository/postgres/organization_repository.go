package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/worklog-review/internal/core/verification"
	pgdb "github.com/ogurasousui/worklog-review/internal/platform/db/postgres"
)

const findVerificationStatusQuery = `
        SELECT verification_status
          FROM organizations
         WHERE id = $1
         LIMIT 1
    `

// OrganizationRepository は組織の本人確認状態を参照する PostgreSQL 実装です。
type OrganizationRepository struct {
	pool pgdb.Queryer
}

// NewOrganizationRepository は OrganizationRepository を生成します。
func NewOrganizationRepository(pool pgdb.Queryer) *OrganizationRepository {
	return &OrganizationRepository{pool: pool}
}

// FindVerificationStatus は組織の本人確認状態を取得します。
func (r *OrganizationRepository) FindVerificationStatus(ctx context.Context, organizationID string) (verification.Status, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)

	var status string
	if err := exec.QueryRow(ctx, findVerificationStatusQuery, organizationID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", verification.ErrOrganizationNotFound
		}
		return "", errors.Wrap(err, "find organization verification status")
	}
	return verification.Status(status), nil
}
