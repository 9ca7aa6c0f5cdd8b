package workentry

import (
	"context"
	"time"
)

// ApprovedEvent は承認完了時に外部通知向けに発行されるイベントです。
type ApprovedEvent struct {
	EventID        string    `json:"event_id"`
	WorkEntryID    string    `json:"work_entry_id"`
	EmployeeID     string    `json:"employee_id"`
	OrganizationID string    `json:"organization_id"`
	TeamID         string    `json:"team_id,omitempty"`
	ReviewerID     string    `json:"reviewer_id"`
	ReviewerRole   string    `json:"reviewer_role"`
	Rating         *int      `json:"rating,omitempty"`
	Feedback       string    `json:"feedback,omitempty"`
	ApprovedAt     time.Time `json:"approved_at"`
}

// EventPublisher は承認完了イベントを発行します。発行はコミット後に行われます。
type EventPublisher interface {
	PublishApproved(ctx context.Context, event ApprovedEvent) error
}

type noopPublisher struct{}

func (noopPublisher) PublishApproved(context.Context, ApprovedEvent) error {
	return nil
}

// Recorder は遷移結果の計測を行います。
type Recorder interface {
	ObserveTransition(action Action, code Code, elapsed time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) ObserveTransition(Action, Code, time.Duration) {}
