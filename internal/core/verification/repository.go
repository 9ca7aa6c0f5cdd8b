package verification

import "context"

// Lookup は組織の本人確認ステータスを参照します。
type Lookup interface {
	FindVerificationStatus(ctx context.Context, organizationID string) (Status, error)
}
