package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/worklog-review/internal/core/hierarchy"
	pgdb "github.com/ogurasousui/worklog-review/internal/platform/db/postgres"
)

const findActiveGrantsQuery = `
        SELECT id, reviewer_id, organization_id, scope, COALESCE(team_id, ''), role, created_at, revoked_at
          FROM reviewer_grants
         WHERE reviewer_id = $1
           AND organization_id = $2
           AND revoked_at IS NULL
         ORDER BY created_at ASC, id ASC
    `

// ReviewerGrantRepository はレビュー権限を参照する PostgreSQL 実装です。
// 呼び出しのたびにデータベースを参照し、取り消しは次回の判定から反映されます。
type ReviewerGrantRepository struct {
	pool pgdb.Queryer
}

// NewReviewerGrantRepository は ReviewerGrantRepository を生成します。
func NewReviewerGrantRepository(pool pgdb.Queryer) *ReviewerGrantRepository {
	return &ReviewerGrantRepository{pool: pool}
}

// FindActiveGrants は取り消されていない権限を取得します。
func (r *ReviewerGrantRepository) FindActiveGrants(ctx context.Context, reviewerID, organizationID string) ([]*hierarchy.Grant, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, findActiveGrantsQuery, reviewerID, organizationID)
	if err != nil {
		return nil, errors.Wrap(err, "find reviewer grants")
	}
	defer rows.Close()

	grants := make([]*hierarchy.Grant, 0)
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan reviewer grant")
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "find reviewer grants")
	}
	return grants, nil
}

func scanGrant(row pgx.Row) (*hierarchy.Grant, error) {
	var (
		g           hierarchy.Grant
		scope, role string
		createdAt   time.Time
		revokedAt   sql.NullTime
	)

	if err := row.Scan(&g.ID, &g.ReviewerID, &g.OrganizationID, &scope, &g.TeamID, &role, &createdAt, &revokedAt); err != nil {
		return nil, err
	}

	g.Scope = hierarchy.Scope(scope)
	g.Role = hierarchy.Role(role)
	g.CreatedAt = createdAt.UTC()
	if revokedAt.Valid {
		t := revokedAt.Time.UTC()
		g.RevokedAt = &t
	}
	return &g, nil
}
