package workentry

import (
	"time"

	"github.com/ogurasousui/worklog-review/internal/core/hierarchy"
	"github.com/shopspring/decimal"
)

// ReviewStatus は組織側が管理する承認ステータスです。
type ReviewStatus string

const (
	ReviewStatusPendingReview ReviewStatus = "pending_review"
	ReviewStatusApproved      ReviewStatus = "approved"
	ReviewStatusNeedsChanges  ReviewStatus = "needs_changes"
)

// IsValid は既知のステータスかどうかを返します。
func (s ReviewStatus) IsValid() bool {
	switch s {
	case ReviewStatusPendingReview, ReviewStatusApproved, ReviewStatusNeedsChanges:
		return true
	default:
		return false
	}
}

// TaskStatus は社員自身が管理するタスクの進捗です。承認ステータスとは独立しています。
type TaskStatus string

const (
	TaskStatusNotStarted TaskStatus = "not_started"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusPaused     TaskStatus = "paused"
	TaskStatusAbandoned  TaskStatus = "abandoned"
)

// IsValid は既知の進捗かどうかを返します。
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusNotStarted, TaskStatusInProgress, TaskStatusDone, TaskStatusPaused, TaskStatusAbandoned:
		return true
	default:
		return false
	}
}

// WorkType は作業の分類です。
type WorkType string

const (
	WorkTypeDevelopment   WorkType = "development"
	WorkTypeDesign        WorkType = "design"
	WorkTypeTesting       WorkType = "testing"
	WorkTypeDocumentation WorkType = "documentation"
	WorkTypeMeeting       WorkType = "meeting"
	WorkTypeResearch      WorkType = "research"
	WorkTypeSupport       WorkType = "support"
	WorkTypeOther         WorkType = "other"
)

// Content は社員が記述する作業内容です。承認前のみ変更できます。
type Content struct {
	Title          string `validate:"required,max=200"`
	Description    string `validate:"max=10000"`
	StartDate      *time.Time
	EndDate        *time.Time
	WorkType       WorkType `validate:"required,oneof=development design testing documentation meeting research support other"`
	EstimatedHours decimal.NullDecimal
	ActualHours    decimal.NullDecimal
	Billable       bool
	Tags           []string `validate:"max=20,dive,required,max=50"`
	Achievements   string   `validate:"max=5000"`
	Challenges     string   `validate:"max=5000"`
	Learnings      string   `validate:"max=5000"`
	Attachments    []string `validate:"max=20,dive,required,max=500"`
}

// Approval は承認時に一度だけ書き込まれる監査情報です。
type Approval struct {
	ReviewerID   string
	ReviewerRole hierarchy.Role
	Rating       Rating
	Feedback     string
	ApprovedAt   time.Time
}

// ChangeRequest は直近の差し戻し内容です。差し戻しのたびに上書きされます。
type ChangeRequest struct {
	ReviewerID   string
	ReviewerRole hierarchy.Role
	Feedback     string
	RequestedAt  time.Time
}

// WorkEntry はレビュー対象となる作業記録です。
type WorkEntry struct {
	ID             string
	EmployeeID     string
	OrganizationID string
	TeamID         string
	Content        Content
	TaskStatus     TaskStatus
	ReviewStatus   ReviewStatus
	Approval       *Approval
	ChangeRequest  *ChangeRequest
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsFrozen は承認済みで以後の変更が許可されないかどうかを返します。
func (e *WorkEntry) IsFrozen() bool {
	return e != nil && e.ReviewStatus == ReviewStatusApproved
}

// Clone は WorkEntry のディープコピーを返します。
func (e *WorkEntry) Clone() *WorkEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.Content = e.Content.clone()
	if e.Approval != nil {
		a := *e.Approval
		c.Approval = &a
	}
	if e.ChangeRequest != nil {
		cr := *e.ChangeRequest
		c.ChangeRequest = &cr
	}
	return &c
}

func (c Content) clone() Content {
	out := c
	out.StartDate = cloneTime(c.StartDate)
	out.EndDate = cloneTime(c.EndDate)
	if c.Tags != nil {
		out.Tags = append([]string(nil), c.Tags...)
	}
	if c.Attachments != nil {
		out.Attachments = append([]string(nil), c.Attachments...)
	}
	return out
}

// Action はライフサイクル上の操作です。
type Action string

const (
	ActionCreate         Action = "create"
	ActionEdit           Action = "edit"
	ActionResubmit       Action = "resubmit"
	ActionApprove        Action = "approve"
	ActionRequestChanges Action = "request_changes"
)

// ActorRoleEmployee は社員本人による操作を履歴に記録する際のロールです。
const ActorRoleEmployee = "employee"

// ReviewEvent はライフサイクル操作の追記専用の履歴です。
type ReviewEvent struct {
	ID          string
	WorkEntryID string
	Action      Action
	ActorID     string
	ActorRole   string
	FromStatus  ReviewStatus
	ToStatus    ReviewStatus
	Rating      Rating
	Feedback    string
	OccurredAt  time.Time
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}
