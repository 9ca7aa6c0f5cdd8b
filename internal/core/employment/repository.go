package employment

import "context"

// Lookup は雇用関係の参照を行う抽象です。
// 実装はキャッシュせず、呼び出しごとに最新の状態を返す必要があります。
type Lookup interface {
	FindRelationship(ctx context.Context, employeeID, organizationID string) (*Relationship, error)
}
