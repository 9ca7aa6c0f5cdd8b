package workentry

import "fmt"

const (
	MinRating = 1
	MaxRating = 5
)

// Rating は 1〜5 の評価値です。ゼロ値は未設定を表し、0 点という評価は存在しません。
type Rating struct {
	value int
}

// NoRating は未設定の評価です。
var NoRating = Rating{}

// NewRating は範囲を検証して Rating を生成します。
func NewRating(v int) (Rating, error) {
	if v < MinRating || v > MaxRating {
		return NoRating, newValidationError("rating", fmt.Sprintf("must be between %d and %d", MinRating, MaxRating))
	}
	return Rating{value: v}, nil
}

// Value は評価値と設定有無を返します。
func (r Rating) Value() (int, bool) {
	return r.value, r.value != 0
}

// IsSet は評価が設定されているかどうかを返します。
func (r Rating) IsSet() bool {
	return r.value != 0
}

// Ptr は未設定の場合 nil を返します。永続化やレスポンス変換用です。
func (r Rating) Ptr() *int {
	if !r.IsSet() {
		return nil
	}
	v := r.value
	return &v
}

// RatingFromPtr は永続化層の値から Rating を復元します。
func RatingFromPtr(v *int) (Rating, error) {
	if v == nil {
		return NoRating, nil
	}
	return NewRating(*v)
}
