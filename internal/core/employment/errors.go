package employment

import "errors"

var (
	// ErrEmploymentInactive は社員の雇用関係が無効な場合に返却されます。
	ErrEmploymentInactive = errors.New("employment: relationship is inactive")
	// ErrRelationshipNotFound は雇用関係が存在しない場合に返却されます。
	ErrRelationshipNotFound  = errors.New("employment: relationship not found")
	ErrInvalidEmployeeID     = errors.New("employment: invalid employee id")
	ErrInvalidOrganizationID = errors.New("employment: invalid organization id")
)
