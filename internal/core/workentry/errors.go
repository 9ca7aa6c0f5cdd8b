package workentry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ogurasousui/worklog-review/internal/core/employment"
	"github.com/ogurasousui/worklog-review/internal/core/hierarchy"
	"github.com/ogurasousui/worklog-review/internal/core/verification"
)

var (
	// ErrWorkEntryNotFound は作業記録が存在しない場合に返却されます。
	ErrWorkEntryNotFound = errors.New("workentry: not found")
	// ErrImmutableRecord は承認済みの作業記録への書き込みで返却されます。
	ErrImmutableRecord = errors.New("workentry: record is approved and immutable")
	// ErrInvalidTransition は現在のステータスから要求された遷移が定義されていない場合に返却されます。
	ErrInvalidTransition = errors.New("workentry: invalid transition")
	// ErrValidation は入力値が不正な場合に返却されます。
	ErrValidation = errors.New("workentry: validation failed")
	// ErrVersionConflict は条件付き更新で他の書き込みに先行された場合にリポジトリが返却します。
	ErrVersionConflict = errors.New("workentry: version conflict")

	ErrEmploymentInactive   = employment.ErrEmploymentInactive
	ErrNotAuthorized        = hierarchy.ErrNotAuthorized
	ErrVerificationRequired = verification.ErrVerificationRequired
)

// ValidationError はフィールド単位の検証エラーです。errors.Is(err, ErrValidation) を満たします。
type ValidationError struct {
	Fields map[string]string
}

func newValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "workentry: validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// TransitionError は定義されていない遷移の要求です。
// 承認済みの記録に対する要求は ErrImmutableRecord と ErrInvalidTransition の両方に一致します。
type TransitionError struct {
	ID         string
	From       ReviewStatus
	Action     Action
	Concurrent bool
}

func (e *TransitionError) Error() string {
	if e.Concurrent {
		return fmt.Sprintf("workentry: cannot %s work entry %s: modified concurrently, now %s", e.Action, e.ID, e.From)
	}
	return fmt.Sprintf("workentry: cannot %s work entry %s in status %s", e.Action, e.ID, e.From)
}

func (e *TransitionError) Is(target error) bool {
	switch target {
	case ErrInvalidTransition:
		return true
	case ErrImmutableRecord:
		return e.From == ReviewStatusApproved
	default:
		return false
	}
}

// Code は呼び出し元へ公開するエラー分類です。
type Code string

const (
	CodeOK                   Code = "ok"
	CodeValidation           Code = "validation_failed"
	CodeNotFound             Code = "not_found"
	CodeEmploymentInactive   Code = "employment_inactive"
	CodeNotAuthorized        Code = "not_authorized"
	CodeVerificationRequired Code = "verification_required"
	CodeImmutableRecord      Code = "immutable_record"
	CodeInvalidTransition    Code = "invalid_transition"
	CodeInternal             Code = "internal"
)

// CodeOf はエラーを分類します。ErrImmutableRecord は ErrInvalidTransition より優先されます。
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrValidation),
		errors.Is(err, employment.ErrInvalidEmployeeID),
		errors.Is(err, employment.ErrInvalidOrganizationID),
		errors.Is(err, hierarchy.ErrInvalidReviewerID),
		errors.Is(err, hierarchy.ErrInvalidTarget),
		errors.Is(err, verification.ErrInvalidOrganizationID):
		return CodeValidation
	case errors.Is(err, ErrWorkEntryNotFound):
		return CodeNotFound
	case errors.Is(err, ErrImmutableRecord):
		return CodeImmutableRecord
	case errors.Is(err, ErrEmploymentInactive):
		return CodeEmploymentInactive
	case errors.Is(err, ErrNotAuthorized):
		return CodeNotAuthorized
	case errors.Is(err, ErrVerificationRequired):
		return CodeVerificationRequired
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	default:
		return CodeInternal
	}
}
