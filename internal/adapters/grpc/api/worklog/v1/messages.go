package worklogv1

import "time"

// WorkEntryContent は作業記録の内容です。日付は YYYY-MM-DD、時間は十進数の文字列で表現します。
type WorkEntryContent struct {
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	StartDate      string   `json:"start_date,omitempty"`
	EndDate        string   `json:"end_date,omitempty"`
	WorkType       string   `json:"work_type,omitempty"`
	EstimatedHours string   `json:"estimated_hours,omitempty"`
	ActualHours    string   `json:"actual_hours,omitempty"`
	Billable       bool     `json:"billable,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Achievements   string   `json:"achievements,omitempty"`
	Challenges     string   `json:"challenges,omitempty"`
	Learnings      string   `json:"learnings,omitempty"`
	Attachments    []string `json:"attachments,omitempty"`
}

// WorkEntryPatch は部分更新です。nil のフィールドは変更しません。
// 日付と時間に空文字を指定した場合は値を消去します。
type WorkEntryPatch struct {
	Title          *string   `json:"title,omitempty"`
	Description    *string   `json:"description,omitempty"`
	StartDate      *string   `json:"start_date,omitempty"`
	EndDate        *string   `json:"end_date,omitempty"`
	WorkType       *string   `json:"work_type,omitempty"`
	EstimatedHours *string   `json:"estimated_hours,omitempty"`
	ActualHours    *string   `json:"actual_hours,omitempty"`
	Billable       *bool     `json:"billable,omitempty"`
	Tags           *[]string `json:"tags,omitempty"`
	Achievements   *string   `json:"achievements,omitempty"`
	Challenges     *string   `json:"challenges,omitempty"`
	Learnings      *string   `json:"learnings,omitempty"`
	Attachments    *[]string `json:"attachments,omitempty"`
	TaskStatus     *string   `json:"task_status,omitempty"`
}

// Approval は承認情報です。
type Approval struct {
	ReviewerID   string    `json:"reviewer_id"`
	ReviewerRole string    `json:"reviewer_role"`
	Rating       *int      `json:"rating,omitempty"`
	Feedback     string    `json:"feedback,omitempty"`
	ApprovedAt   time.Time `json:"approved_at"`
}

// ChangeRequest は差し戻し情報です。
type ChangeRequest struct {
	ReviewerID   string    `json:"reviewer_id"`
	ReviewerRole string    `json:"reviewer_role"`
	Feedback     string    `json:"feedback"`
	RequestedAt  time.Time `json:"requested_at"`
}

// WorkEntry は作業記録です。
type WorkEntry struct {
	ID             string           `json:"id"`
	EmployeeID     string           `json:"employee_id"`
	OrganizationID string           `json:"organization_id"`
	TeamID         string           `json:"team_id,omitempty"`
	Content        WorkEntryContent `json:"content"`
	TaskStatus     string           `json:"task_status"`
	ReviewStatus   string           `json:"review_status"`
	Approval       *Approval        `json:"approval,omitempty"`
	ChangeRequest  *ChangeRequest   `json:"change_request,omitempty"`
	Version        int64            `json:"version"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// ReviewEvent はレビュー履歴の 1 件です。
type ReviewEvent struct {
	ID          string    `json:"id"`
	WorkEntryID string    `json:"work_entry_id"`
	Action      string    `json:"action"`
	ActorID     string    `json:"actor_id"`
	ActorRole   string    `json:"actor_role"`
	FromStatus  string    `json:"from_status,omitempty"`
	ToStatus    string    `json:"to_status"`
	Rating      *int      `json:"rating,omitempty"`
	Feedback    string    `json:"feedback,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type CreateWorkEntryRequest struct {
	EmployeeID     string           `json:"employee_id"`
	OrganizationID string           `json:"organization_id"`
	TeamID         string           `json:"team_id,omitempty"`
	TaskStatus     string           `json:"task_status,omitempty"`
	Content        WorkEntryContent `json:"content"`
}

type EditWorkEntryRequest struct {
	ActorID string         `json:"actor_id"`
	ID      string         `json:"id"`
	Patch   WorkEntryPatch `json:"patch"`
}

type ResubmitWorkEntryRequest struct {
	ActorID string         `json:"actor_id"`
	ID      string         `json:"id"`
	Patch   WorkEntryPatch `json:"patch"`
}

// ApproveDecision は承認の判断です。
type ApproveDecision struct {
	Rating   *int   `json:"rating,omitempty"`
	Feedback string `json:"feedback,omitempty"`
}

// RequestChangesDecision は差し戻しの判断です。
type RequestChangesDecision struct {
	Feedback string `json:"feedback"`
}

// ReviewWorkEntryRequest は Approve と RequestChanges のどちらか一方だけを指定します。
type ReviewWorkEntryRequest struct {
	ReviewerID     string                  `json:"reviewer_id"`
	ID             string                  `json:"id"`
	Approve        *ApproveDecision        `json:"approve,omitempty"`
	RequestChanges *RequestChangesDecision `json:"request_changes,omitempty"`
}

type GetWorkEntryRequest struct {
	ID string `json:"id"`
}

type WorkEntryResponse struct {
	WorkEntry *WorkEntry `json:"work_entry"`
}

type ListPendingReviewsRequest struct {
	OrganizationID string `json:"organization_id"`
	PageSize       int32  `json:"page_size,omitempty"`
	PageToken      string `json:"page_token,omitempty"`
}

type ListReviewsRequest struct {
	OrganizationID string `json:"organization_id"`
	EmployeeID     string `json:"employee_id,omitempty"`
	ReviewStatus   string `json:"review_status,omitempty"`
	Search         string `json:"search,omitempty"`
	PageSize       int32  `json:"page_size,omitempty"`
	PageToken      string `json:"page_token,omitempty"`
}

type ListWorkEntriesResponse struct {
	WorkEntries   []*WorkEntry `json:"work_entries"`
	NextPageToken string       `json:"next_page_token,omitempty"`
}

type ListReviewHistoryRequest struct {
	ID string `json:"id"`
}

type ListReviewHistoryResponse struct {
	Events []*ReviewEvent `json:"events"`
}
