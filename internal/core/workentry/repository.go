package workentry

import "context"

// Repository は作業記録の永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, entry *WorkEntry) (*WorkEntry, error)
	FindByID(ctx context.Context, id string) (*WorkEntry, error)
	// UpdateIfVersion は保存済みの Version が expectedVersion と一致し、かつ承認済みでない場合のみ更新します。
	// 一致しない場合は ErrVersionConflict を返します。成功時の Version は expectedVersion+1 です。
	UpdateIfVersion(ctx context.Context, entry *WorkEntry, expectedVersion int64) (*WorkEntry, error)
	List(ctx context.Context, filter ListFilter) ([]*WorkEntry, string, error)
	AppendEvent(ctx context.Context, event *ReviewEvent) error
	ListEvents(ctx context.Context, workEntryID string) ([]*ReviewEvent, error)
}

// ListFilter は一覧取得用フィルタです。
type ListFilter struct {
	OrganizationID string
	EmployeeID     string
	ReviewStatus   *ReviewStatus
	Search         string
	Limit          int
	Offset         int
}
