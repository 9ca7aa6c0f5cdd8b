package employment

import "time"

// Status は雇用関係の状態を表します。
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Relationship は社員と組織の雇用関係です。
type Relationship struct {
	EmployeeID     string
	OrganizationID string
	Status         Status
	HiredAt        *time.Time
	TerminatedAt   *time.Time
	UpdatedAt      time.Time
}

// ActiveAt は指定時刻において雇用関係が有効かどうかを返します。
// 退職日が設定されている場合、その日以降は inactive として扱います。
func (r *Relationship) ActiveAt(now time.Time) bool {
	if r == nil || r.Status != StatusActive {
		return false
	}
	if r.TerminatedAt != nil && !now.Before(*r.TerminatedAt) {
		return false
	}
	return true
}
