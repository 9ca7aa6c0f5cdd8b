package workentry

import "strings"

const maxFeedbackLength = 5000

// Decision はレビュー操作の種別を表すタグ付き共用体です。
// Approve と RequestChanges のみが実装します。
type Decision interface {
	Action() Action
	Validate() error
	isDecision()
}

// Approve は承認の決定です。Rating が nil の場合は評価なしで承認します。
type Approve struct {
	Rating   *int
	Feedback string
}

// RequestChanges は差し戻しの決定です。Feedback は必須です。
type RequestChanges struct {
	Feedback string
}

func (Approve) Action() Action        { return ActionApprove }
func (RequestChanges) Action() Action { return ActionRequestChanges }

func (Approve) isDecision()        {}
func (RequestChanges) isDecision() {}

// Validate は評価値とフィードバック長を検証します。
func (d Approve) Validate() error {
	if d.Rating != nil {
		if _, err := NewRating(*d.Rating); err != nil {
			return err
		}
	}
	if len([]rune(strings.TrimSpace(d.Feedback))) > maxFeedbackLength {
		return newValidationError("feedback", "too long")
	}
	return nil
}

// Validate はフィードバックが空でないことを検証します。
func (d RequestChanges) Validate() error {
	feedback := strings.TrimSpace(d.Feedback)
	if feedback == "" {
		return newValidationError("feedback", "required")
	}
	if len([]rune(feedback)) > maxFeedbackLength {
		return newValidationError("feedback", "too long")
	}
	return nil
}

func (d Approve) rating() Rating {
	if d.Rating == nil {
		return NoRating
	}
	// Validate 済みの前提
	r, _ := NewRating(*d.Rating)
	return r
}
