package workentry

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// ContentPatch は作業内容の部分更新です。nil のフィールドは変更しません。
// 日付と工数は *Set が true の場合のみ反映し、値が nil/無効ならクリアします。
type ContentPatch struct {
	Title             *string
	Description       *string
	StartDate         *time.Time
	StartDateSet      bool
	EndDate           *time.Time
	EndDateSet        bool
	WorkType          *WorkType
	EstimatedHours    decimal.NullDecimal
	EstimatedHoursSet bool
	ActualHours       decimal.NullDecimal
	ActualHoursSet    bool
	Billable          *bool
	Tags              *[]string
	Achievements      *string
	Challenges        *string
	Learnings         *string
	Attachments       *[]string
	TaskStatus        *TaskStatus
}

// IsEmpty は変更対象が一つもないかどうかを返します。
func (p ContentPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && !p.StartDateSet && !p.EndDateSet &&
		p.WorkType == nil && !p.EstimatedHoursSet && !p.ActualHoursSet && p.Billable == nil &&
		p.Tags == nil && p.Achievements == nil && p.Challenges == nil && p.Learnings == nil &&
		p.Attachments == nil && p.TaskStatus == nil
}

func (p ContentPatch) applyTo(e *WorkEntry) {
	c := &e.Content
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.StartDateSet {
		c.StartDate = cloneTime(p.StartDate)
	}
	if p.EndDateSet {
		c.EndDate = cloneTime(p.EndDate)
	}
	if p.WorkType != nil {
		c.WorkType = *p.WorkType
	}
	if p.EstimatedHoursSet {
		c.EstimatedHours = p.EstimatedHours
	}
	if p.ActualHoursSet {
		c.ActualHours = p.ActualHours
	}
	if p.Billable != nil {
		c.Billable = *p.Billable
	}
	if p.Tags != nil {
		c.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.Achievements != nil {
		c.Achievements = *p.Achievements
	}
	if p.Challenges != nil {
		c.Challenges = *p.Challenges
	}
	if p.Learnings != nil {
		c.Learnings = *p.Learnings
	}
	if p.Attachments != nil {
		c.Attachments = append([]string(nil), (*p.Attachments)...)
	}
	if p.TaskStatus != nil {
		e.TaskStatus = *p.TaskStatus
	}
}

// normalizeContent は前後の空白除去、日付の丸め、タグの重複排除を行います。
func normalizeContent(c Content) Content {
	out := c.clone()
	out.Title = strings.TrimSpace(out.Title)
	out.Description = strings.TrimSpace(out.Description)
	out.Achievements = strings.TrimSpace(out.Achievements)
	out.Challenges = strings.TrimSpace(out.Challenges)
	out.Learnings = strings.TrimSpace(out.Learnings)
	out.StartDate = normalizeDate(out.StartDate)
	out.EndDate = normalizeDate(out.EndDate)
	if strings.TrimSpace(string(out.WorkType)) == "" {
		out.WorkType = WorkTypeOther
	} else {
		out.WorkType = WorkType(strings.ToLower(strings.TrimSpace(string(out.WorkType))))
	}
	out.Tags = normalizeTags(out.Tags)
	out.Attachments = normalizeAttachments(out.Attachments)
	return out
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func normalizeAttachments(refs []string) []string {
	if len(refs) == 0 {
		return nil
	}
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if r := strings.TrimSpace(ref); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	normalized := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return &normalized
}

// validateContent は構造タグによる検証に加え、期間と工数の整合性を検証します。
func validateContent(c Content) error {
	verr := &ValidationError{Fields: map[string]string{}}

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			verr.Fields[fieldName(fe.Field())] = fe.Tag()
		}
	}

	if c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(*c.StartDate) {
		verr.Fields["end_date"] = "before start_date"
	}
	validateHours(verr, "estimated_hours", c.EstimatedHours)
	validateHours(verr, "actual_hours", c.ActualHours)

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// 工数は NUMERIC(8, 2) 列に収まる値のみ受け付けます。
var maxHoursExclusive = decimal.NewFromInt(1_000_000)

const hoursScale = 2

func validateHours(verr *ValidationError, field string, hours decimal.NullDecimal) {
	if !hours.Valid {
		return
	}
	d := hours.Decimal
	switch {
	case d.IsNegative():
		verr.Fields[field] = "negative"
	case d.GreaterThanOrEqual(maxHoursExclusive):
		verr.Fields[field] = "too large"
	case !d.Equal(d.Truncate(hoursScale)):
		verr.Fields[field] = "at most 2 decimal places"
	}
}

func validateTaskStatus(s TaskStatus) error {
	if !s.IsValid() {
		return newValidationError("task_status", "unknown value")
	}
	return nil
}

// fieldName は構造体のフィールド名を snake_case に変換します。
func fieldName(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
