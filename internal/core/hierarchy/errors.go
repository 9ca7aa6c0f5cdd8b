package hierarchy

import "errors"

var (
	// ErrNotAuthorized はレビュアーが対象の作業記録に対する権限を持たない場合に返却されます。
	ErrNotAuthorized     = errors.New("hierarchy: reviewer is not authorized")
	ErrInvalidReviewerID = errors.New("hierarchy: invalid reviewer id")
	ErrInvalidTarget     = errors.New("hierarchy: invalid target organization")
)
