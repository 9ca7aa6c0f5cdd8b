package hierarchy

import "context"

// GrantLookup はレビュアー権限を参照します。
// 権限は随時取り消されるため、実装は呼び出しごとに最新の有効な権限のみを返します。
type GrantLookup interface {
	FindActiveGrants(ctx context.Context, reviewerID, organizationID string) ([]*Grant, error)
}
