package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/worklog-review/internal/core/hierarchy"
	"github.com/ogurasousui/worklog-review/internal/core/workentry"
	pgdb "github.com/ogurasousui/worklog-review/internal/platform/db/postgres"
	"github.com/shopspring/decimal"
)

const (
	restrictViolationCode   = "23001"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	numericOutOfRangeCode   = "22003"
)

const workEntryColumns = `id, employee_id, organization_id, team_id, title, description, start_date, end_date, work_type,
               estimated_hours::text, actual_hours::text, billable, tags, achievements, challenges, learnings, attachments,
               task_status, review_status, approved_by, approver_role, rating, approval_feedback, approved_at,
               change_requested_by, change_requester_role, change_feedback, change_requested_at,
               version, created_at, updated_at`

const insertWorkEntryQuery = `
        INSERT INTO work_entries (id, employee_id, organization_id, team_id, title, description, start_date, end_date, work_type,
                                  estimated_hours, actual_hours, billable, tags, achievements, challenges, learnings, attachments,
                                  task_status, review_status, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::numeric, $11::numeric, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
        RETURNING ` + workEntryColumns

const findWorkEntryQuery = `
        SELECT ` + workEntryColumns + `
          FROM work_entries
         WHERE id = $1
         LIMIT 1
    `

// updateWorkEntryQuery は version が一致し、かつ未承認の行のみを更新します。
const updateWorkEntryQuery = `
        UPDATE work_entries
           SET title = $1,
               description = $2,
               start_date = $3,
               end_date = $4,
               work_type = $5,
               estimated_hours = $6::numeric,
               actual_hours = $7::numeric,
               billable = $8,
               tags = $9,
               achievements = $10,
               challenges = $11,
               learnings = $12,
               attachments = $13,
               task_status = $14,
               review_status = $15,
               approved_by = $16,
               approver_role = $17,
               rating = $18,
               approval_feedback = $19,
               approved_at = $20,
               change_requested_by = $21,
               change_requester_role = $22,
               change_feedback = $23,
               change_requested_at = $24,
               version = version + 1,
               updated_at = $25
         WHERE id = $26
           AND version = $27
           AND review_status <> 'approved'
        RETURNING ` + workEntryColumns

const workEntryExistsQuery = `SELECT EXISTS (SELECT 1 FROM work_entries WHERE id = $1)`

const insertReviewEventQuery = `
        INSERT INTO work_entry_review_events (id, work_entry_id, action, actor_id, actor_role, from_status, to_status, rating, feedback, occurred_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `

const listReviewEventsQuery = `
        SELECT id, work_entry_id, action, actor_id, actor_role, from_status, to_status, rating, feedback, occurred_at
          FROM work_entry_review_events
         WHERE work_entry_id = $1
         ORDER BY occurred_at ASC, id ASC
    `

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// WorkEntryRepository は PostgreSQL を利用した作業記録永続化の実装です。
type WorkEntryRepository struct {
	pool pgdb.Queryer
}

// NewWorkEntryRepository は WorkEntryRepository を生成します。
func NewWorkEntryRepository(pool pgdb.Queryer) *WorkEntryRepository {
	return &WorkEntryRepository{pool: pool}
}

// Create は作業記録を新規作成します。
func (r *WorkEntryRepository) Create(ctx context.Context, e *workentry.WorkEntry) (*workentry.WorkEntry, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	c := e.Content
	row := exec.QueryRow(ctx, insertWorkEntryQuery,
		e.ID,
		e.EmployeeID,
		e.OrganizationID,
		e.TeamID,
		c.Title,
		c.Description,
		nullableDate(c.StartDate),
		nullableDate(c.EndDate),
		string(c.WorkType),
		nullableDecimal(c.EstimatedHours),
		nullableDecimal(c.ActualHours),
		c.Billable,
		nonNilStrings(c.Tags),
		c.Achievements,
		c.Challenges,
		c.Learnings,
		nonNilStrings(c.Attachments),
		string(e.TaskStatus),
		string(e.ReviewStatus),
		e.Version,
		e.CreatedAt,
		e.UpdatedAt,
	)

	created, err := scanWorkEntry(row)
	if err != nil {
		return nil, errors.Wrap(translateWorkEntryPgError(err), "insert work entry")
	}
	return created, nil
}

// FindByID は ID で作業記録を取得します。
func (r *WorkEntryRepository) FindByID(ctx context.Context, id string) (*workentry.WorkEntry, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	found, err := scanWorkEntry(exec.QueryRow(ctx, findWorkEntryQuery, id))
	if err != nil {
		return nil, errors.Wrap(translateWorkEntryPgError(err), "find work entry")
	}
	return found, nil
}

// UpdateIfVersion は expectedVersion と一致する未承認の行のみを更新します。
// 一致する行がなければ、行が存在する限り workentry.ErrVersionConflict を返却します。
func (r *WorkEntryRepository) UpdateIfVersion(ctx context.Context, e *workentry.WorkEntry, expectedVersion int64) (*workentry.WorkEntry, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	c := e.Content
	approvedBy, approverRole, rating, approvalFeedback, approvedAt := approvalArgs(e.Approval)
	changeBy, changeRole, changeFeedback, changeAt := changeRequestArgs(e.ChangeRequest)

	row := exec.QueryRow(ctx, updateWorkEntryQuery,
		c.Title,
		c.Description,
		nullableDate(c.StartDate),
		nullableDate(c.EndDate),
		string(c.WorkType),
		nullableDecimal(c.EstimatedHours),
		nullableDecimal(c.ActualHours),
		c.Billable,
		nonNilStrings(c.Tags),
		c.Achievements,
		c.Challenges,
		c.Learnings,
		nonNilStrings(c.Attachments),
		string(e.TaskStatus),
		string(e.ReviewStatus),
		approvedBy,
		approverRole,
		rating,
		approvalFeedback,
		approvedAt,
		changeBy,
		changeRole,
		changeFeedback,
		changeAt,
		e.UpdatedAt,
		e.ID,
		expectedVersion,
	)

	updated, err := scanWorkEntry(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrap(translateWorkEntryPgError(err), "update work entry")
	}

	var exists bool
	if err := exec.QueryRow(ctx, workEntryExistsQuery, e.ID).Scan(&exists); err != nil {
		return nil, errors.Wrap(translateWorkEntryPgError(err), "check work entry")
	}
	if !exists {
		return nil, workentry.ErrWorkEntryNotFound
	}
	return nil, workentry.ErrVersionConflict
}

// List は作業記録の一覧を作成日時の古い順に取得します。
func (r *WorkEntryRepository) List(ctx context.Context, filter workentry.ListFilter) ([]*workentry.WorkEntry, string, error) {
	if strings.TrimSpace(filter.OrganizationID) == "" {
		return nil, "", errors.Wrap(workentry.ErrValidation, "organization_id is required")
	}
	if filter.Limit <= 0 || filter.Offset < 0 {
		return nil, "", errors.Wrap(workentry.ErrValidation, "invalid page")
	}

	limitWithBuffer := filter.Limit + 1

	args := make([]any, 0, 6)
	conditions := make([]string, 0, 4)

	args = append(args, filter.OrganizationID)
	conditions = append(conditions, "organization_id = $"+strconv.Itoa(len(args)))

	if filter.ReviewStatus != nil {
		args = append(args, string(*filter.ReviewStatus))
		conditions = append(conditions, "review_status = $"+strconv.Itoa(len(args)))
	}

	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		conditions = append(conditions, "employee_id = $"+strconv.Itoa(len(args)))
	}

	if filter.Search != "" {
		args = append(args, "%"+likeEscaper.Replace(filter.Search)+"%")
		placeholder := "$" + strconv.Itoa(len(args))
		conditions = append(conditions, "(title ILIKE "+placeholder+" OR description ILIKE "+placeholder+")")
	}

	args = append(args, limitWithBuffer)
	limitPlaceholder := "$" + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	offsetPlaceholder := "$" + strconv.Itoa(len(args))

	query := `
        SELECT ` + workEntryColumns + `
          FROM work_entries WHERE ` + strings.Join(conditions, " AND ") + `
         ORDER BY created_at ASC, id ASC
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder + `
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, "", errors.Wrap(translateWorkEntryPgError(err), "list work entries")
	}
	defer rows.Close()

	entries := make([]*workentry.WorkEntry, 0, filter.Limit)
	for rows.Next() {
		e, err := scanWorkEntry(rows)
		if err != nil {
			return nil, "", errors.Wrap(translateWorkEntryPgError(err), "scan work entry")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, "", errors.Wrap(translateWorkEntryPgError(err), "list work entries")
	}

	var nextToken string
	if len(entries) == limitWithBuffer {
		entries = entries[:filter.Limit]
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
	}

	return entries, nextToken, nil
}

// AppendEvent はレビュー履歴を追記します。
func (r *WorkEntryRepository) AppendEvent(ctx context.Context, ev *workentry.ReviewEvent) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	_, err := exec.Exec(ctx, insertReviewEventQuery,
		ev.ID,
		ev.WorkEntryID,
		string(ev.Action),
		ev.ActorID,
		ev.ActorRole,
		nullableString(string(ev.FromStatus)),
		string(ev.ToStatus),
		nullableRating(ev.Rating),
		ev.Feedback,
		ev.OccurredAt,
	)
	if err != nil {
		return errors.Wrap(translateWorkEntryPgError(err), "append review event")
	}
	return nil
}

// ListEvents は作業記録のレビュー履歴を古い順に取得します。
func (r *WorkEntryRepository) ListEvents(ctx context.Context, workEntryID string) ([]*workentry.ReviewEvent, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, listReviewEventsQuery, workEntryID)
	if err != nil {
		return nil, errors.Wrap(translateWorkEntryPgError(err), "list review events")
	}
	defer rows.Close()

	events := make([]*workentry.ReviewEvent, 0)
	for rows.Next() {
		ev, err := scanReviewEvent(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan review event")
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(translateWorkEntryPgError(err), "list review events")
	}
	return events, nil
}

func scanWorkEntry(row pgx.Row) (*workentry.WorkEntry, error) {
	var (
		e                                          workentry.WorkEntry
		workType, taskStatus, reviewStatus         string
		startDate, endDate                         sql.NullTime
		estimated, actual                          sql.NullString
		tags, attachments                          []string
		approvedBy, approverRole, approvalFeedback sql.NullString
		rating                                     sql.NullInt32
		approvedAt                                 sql.NullTime
		changeBy, changeRole, changeFeedback       sql.NullString
		changeAt                                   sql.NullTime
	)

	if err := row.Scan(
		&e.ID,
		&e.EmployeeID,
		&e.OrganizationID,
		&e.TeamID,
		&e.Content.Title,
		&e.Content.Description,
		&startDate,
		&endDate,
		&workType,
		&estimated,
		&actual,
		&e.Content.Billable,
		&tags,
		&e.Content.Achievements,
		&e.Content.Challenges,
		&e.Content.Learnings,
		&attachments,
		&taskStatus,
		&reviewStatus,
		&approvedBy,
		&approverRole,
		&rating,
		&approvalFeedback,
		&approvedAt,
		&changeBy,
		&changeRole,
		&changeFeedback,
		&changeAt,
		&e.Version,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return nil, err
	}

	estimatedHours, err := parseNullDecimal(estimated)
	if err != nil {
		return nil, errors.Wrap(err, "parse estimated_hours")
	}
	actualHours, err := parseNullDecimal(actual)
	if err != nil {
		return nil, errors.Wrap(err, "parse actual_hours")
	}

	e.Content.StartDate = dateFromNull(startDate)
	e.Content.EndDate = dateFromNull(endDate)
	e.Content.WorkType = workentry.WorkType(workType)
	e.Content.EstimatedHours = estimatedHours
	e.Content.ActualHours = actualHours
	e.Content.Tags = nilIfEmpty(tags)
	e.Content.Attachments = nilIfEmpty(attachments)
	e.TaskStatus = workentry.TaskStatus(taskStatus)
	e.ReviewStatus = workentry.ReviewStatus(reviewStatus)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()

	if approvedBy.Valid {
		r, err := ratingFromNull(rating)
		if err != nil {
			return nil, err
		}
		e.Approval = &workentry.Approval{
			ReviewerID:   approvedBy.String,
			ReviewerRole: hierarchy.Role(approverRole.String),
			Rating:       r,
			Feedback:     approvalFeedback.String,
			ApprovedAt:   approvedAt.Time.UTC(),
		}
	}

	if changeBy.Valid {
		e.ChangeRequest = &workentry.ChangeRequest{
			ReviewerID:   changeBy.String,
			ReviewerRole: hierarchy.Role(changeRole.String),
			Feedback:     changeFeedback.String,
			RequestedAt:  changeAt.Time.UTC(),
		}
	}

	return &e, nil
}

func scanReviewEvent(row pgx.Row) (*workentry.ReviewEvent, error) {
	var (
		ev               workentry.ReviewEvent
		action, toStatus string
		fromStatus       sql.NullString
		rating           sql.NullInt32
		occurredAt       time.Time
	)

	if err := row.Scan(
		&ev.ID,
		&ev.WorkEntryID,
		&action,
		&ev.ActorID,
		&ev.ActorRole,
		&fromStatus,
		&toStatus,
		&rating,
		&ev.Feedback,
		&occurredAt,
	); err != nil {
		return nil, err
	}

	r, err := ratingFromNull(rating)
	if err != nil {
		return nil, err
	}

	ev.Action = workentry.Action(action)
	ev.FromStatus = workentry.ReviewStatus(fromStatus.String)
	ev.ToStatus = workentry.ReviewStatus(toStatus)
	ev.Rating = r
	ev.OccurredAt = occurredAt.UTC()
	return &ev, nil
}

func translateWorkEntryPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return workentry.ErrWorkEntryNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case restrictViolationCode:
			return workentry.ErrImmutableRecord
		case foreignKeyViolationCode:
			if pgErr.ConstraintName == "work_entry_review_events_work_entry_id_fkey" {
				return workentry.ErrWorkEntryNotFound
			}
		case checkViolationCode:
			return errors.Wrap(workentry.ErrValidation, pgErr.ConstraintName)
		case numericOutOfRangeCode:
			return errors.Wrap(workentry.ErrValidation, "numeric value out of range")
		}
	}

	return err
}

func approvalArgs(a *workentry.Approval) (reviewerID, role, rating, feedback, approvedAt any) {
	if a == nil {
		return nil, nil, nil, nil, nil
	}
	return a.ReviewerID, string(a.ReviewerRole), nullableRating(a.Rating), a.Feedback, a.ApprovedAt
}

func changeRequestArgs(cr *workentry.ChangeRequest) (reviewerID, role, feedback, requestedAt any) {
	if cr == nil {
		return nil, nil, nil, nil
	}
	return cr.ReviewerID, string(cr.ReviewerRole), cr.Feedback, cr.RequestedAt
}

func nullableRating(r workentry.Rating) any {
	v, ok := r.Value()
	if !ok {
		return nil
	}
	return v
}

func ratingFromNull(v sql.NullInt32) (workentry.Rating, error) {
	if !v.Valid {
		return workentry.NoRating, nil
	}
	n := int(v.Int32)
	r, err := workentry.RatingFromPtr(&n)
	if err != nil {
		return workentry.NoRating, errors.Wrap(err, "stored rating")
	}
	return r, nil
}

func parseNullDecimal(v sql.NullString) (decimal.NullDecimal, error) {
	if !v.Valid {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func nullableDecimal(v decimal.NullDecimal) any {
	if !v.Valid {
		return nil
	}
	return v.Decimal.String()
}

func nullableDate(value *time.Time) any {
	if value == nil {
		return nil
	}
	u := value.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func dateFromNull(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &date
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nilIfEmpty(v []string) []string {
	if len(v) == 0 {
		return nil
	}
	return v
}
