package verification

// Status は組織の本人確認ステータスを表します。
type Status string

const (
	StatusUnverified Status = "unverified"
	StatusPending    Status = "pending"
	StatusVerified   Status = "verified"
	StatusRejected   Status = "rejected"
)

// IsValid は既知のステータスかどうかを返します。
func (s Status) IsValid() bool {
	switch s {
	case StatusUnverified, StatusPending, StatusVerified, StatusRejected:
		return true
	default:
		return false
	}
}
