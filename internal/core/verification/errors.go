package verification

import (
	"errors"
	"fmt"
)

var (
	// ErrVerificationRequired は組織が verified でない場合に返却されます。
	ErrVerificationRequired = errors.New("verification: organization is not verified")
	// ErrOrganizationNotFound は組織が存在しない場合に返却されます。
	ErrOrganizationNotFound  = errors.New("verification: organization not found")
	ErrInvalidOrganizationID = errors.New("verification: invalid organization id")
)

// Error は Gate が拒否した際の詳細です。errors.Is(err, ErrVerificationRequired) を満たします。
type Error struct {
	OrganizationID string
	Observed       Status
}

func (e *Error) Error() string {
	return fmt.Sprintf("verification: organization %s is %s, verified required", e.OrganizationID, e.Observed)
}

func (e *Error) Is(target error) bool {
	return target == ErrVerificationRequired
}
