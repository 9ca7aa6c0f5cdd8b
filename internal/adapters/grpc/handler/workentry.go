package handler

import (
	"context"
	"strings"
	"time"

	worklogv1 "github.com/ogurasousui/worklog-review/internal/adapters/grpc/api/worklog/v1"
	"github.com/ogurasousui/worklog-review/internal/core/workentry"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const dateLayout = "2006-01-02"

// WorkEntryGrpcHandler は WorkEntryService の gRPC 実装です。
type WorkEntryGrpcHandler struct {
	svc workentry.UseCase
	worklogv1.UnimplementedWorkEntryServiceServer
}

// NewWorkEntryGrpcHandler は WorkEntryGrpcHandler を生成します。
func NewWorkEntryGrpcHandler(svc workentry.UseCase) *WorkEntryGrpcHandler {
	return &WorkEntryGrpcHandler{svc: svc}
}

// CreateWorkEntry は作業記録を提出します。
func (h *WorkEntryGrpcHandler) CreateWorkEntry(ctx context.Context, req *worklogv1.CreateWorkEntryRequest) (*worklogv1.WorkEntryResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	content, err := toDomainContent(req.Content)
	if err != nil {
		return nil, toStatusError(err)
	}

	var taskStatus *workentry.TaskStatus
	if s := strings.TrimSpace(req.TaskStatus); s != "" {
		ts := workentry.TaskStatus(strings.ToLower(s))
		taskStatus = &ts
	}

	created, err := h.svc.CreateWorkEntry(ctx, workentry.CreateWorkEntryInput{
		EmployeeID:     req.EmployeeID,
		OrganizationID: req.OrganizationID,
		TeamID:         req.TeamID,
		Content:        content,
		TaskStatus:     taskStatus,
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return &worklogv1.WorkEntryResponse{WorkEntry: toAPIWorkEntry(created)}, nil
}

// EditWorkEntry は提出者による内容の編集です。
func (h *WorkEntryGrpcHandler) EditWorkEntry(ctx context.Context, req *worklogv1.EditWorkEntryRequest) (*worklogv1.WorkEntryResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	patch, err := toDomainPatch(req.Patch)
	if err != nil {
		return nil, toStatusError(err)
	}

	updated, err := h.svc.EditWorkEntry(ctx, workentry.EditWorkEntryInput{
		ActorID: req.ActorID,
		ID:      req.ID,
		Patch:   patch,
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return &worklogv1.WorkEntryResponse{WorkEntry: toAPIWorkEntry(updated)}, nil
}

// ResubmitWorkEntry は差し戻された作業記録を再提出します。
func (h *WorkEntryGrpcHandler) ResubmitWorkEntry(ctx context.Context, req *worklogv1.ResubmitWorkEntryRequest) (*worklogv1.WorkEntryResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	patch, err := toDomainPatch(req.Patch)
	if err != nil {
		return nil, toStatusError(err)
	}

	resubmitted, err := h.svc.ResubmitWorkEntry(ctx, workentry.ResubmitWorkEntryInput{
		ActorID: req.ActorID,
		ID:      req.ID,
		Patch:   patch,
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return &worklogv1.WorkEntryResponse{WorkEntry: toAPIWorkEntry(resubmitted)}, nil
}

// ReviewWorkEntry は承認または差し戻しを行います。
func (h *WorkEntryGrpcHandler) ReviewWorkEntry(ctx context.Context, req *worklogv1.ReviewWorkEntryRequest) (*worklogv1.WorkEntryResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	decision, err := toDomainDecision(req)
	if err != nil {
		return nil, toStatusError(err)
	}

	reviewed, err := h.svc.ReviewWorkEntry(ctx, workentry.ReviewWorkEntryInput{
		ReviewerID: req.ReviewerID,
		ID:         req.ID,
		Decision:   decision,
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return &worklogv1.WorkEntryResponse{WorkEntry: toAPIWorkEntry(reviewed)}, nil
}

// GetWorkEntry は作業記録を取得します。
func (h *WorkEntryGrpcHandler) GetWorkEntry(ctx context.Context, req *worklogv1.GetWorkEntryRequest) (*worklogv1.WorkEntryResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	found, err := h.svc.GetWorkEntry(ctx, workentry.GetWorkEntryInput{ID: req.ID})
	if err != nil {
		return nil, toStatusError(err)
	}

	return &worklogv1.WorkEntryResponse{WorkEntry: toAPIWorkEntry(found)}, nil
}

// ListPendingReviews はレビュー待ちの作業記録を一覧します。
func (h *WorkEntryGrpcHandler) ListPendingReviews(ctx context.Context, req *worklogv1.ListPendingReviewsRequest) (*worklogv1.ListWorkEntriesResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	result, err := h.svc.ListPendingReviews(ctx, workentry.ListPendingReviewsInput{
		OrganizationID: req.OrganizationID,
		PageSize:       int(req.PageSize),
		PageToken:      req.PageToken,
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toAPIList(result), nil
}

// ListReviews は絞り込み条件付きで作業記録を一覧します。
func (h *WorkEntryGrpcHandler) ListReviews(ctx context.Context, req *worklogv1.ListReviewsRequest) (*worklogv1.ListWorkEntriesResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	var reviewStatus *workentry.ReviewStatus
	if s := strings.TrimSpace(req.ReviewStatus); s != "" {
		rs := workentry.ReviewStatus(strings.ToLower(s))
		reviewStatus = &rs
	}

	result, err := h.svc.ListReviews(ctx, workentry.ListReviewsInput{
		OrganizationID: req.OrganizationID,
		EmployeeID:     req.EmployeeID,
		ReviewStatus:   reviewStatus,
		Search:         req.Search,
		PageSize:       int(req.PageSize),
		PageToken:      req.PageToken,
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toAPIList(result), nil
}

// ListReviewHistory は作業記録のレビュー履歴を返します。
func (h *WorkEntryGrpcHandler) ListReviewHistory(ctx context.Context, req *worklogv1.ListReviewHistoryRequest) (*worklogv1.ListReviewHistoryResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	events, err := h.svc.ListReviewHistory(ctx, workentry.ListReviewHistoryInput{ID: req.ID})
	if err != nil {
		return nil, toStatusError(err)
	}

	out := make([]*worklogv1.ReviewEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, toAPIReviewEvent(ev))
	}
	return &worklogv1.ListReviewHistoryResponse{Events: out}, nil
}

func toDomainDecision(req *worklogv1.ReviewWorkEntryRequest) (workentry.Decision, error) {
	switch {
	case req.Approve != nil && req.RequestChanges != nil:
		return nil, invalidField("decision", "exactly one of approve or request_changes")
	case req.Approve != nil:
		return workentry.Approve{Rating: req.Approve.Rating, Feedback: req.Approve.Feedback}, nil
	case req.RequestChanges != nil:
		return workentry.RequestChanges{Feedback: req.RequestChanges.Feedback}, nil
	default:
		return nil, invalidField("decision", "required")
	}
}

func toDomainContent(c worklogv1.WorkEntryContent) (workentry.Content, error) {
	startDate, err := parseDate("start_date", c.StartDate)
	if err != nil {
		return workentry.Content{}, err
	}
	endDate, err := parseDate("end_date", c.EndDate)
	if err != nil {
		return workentry.Content{}, err
	}
	estimated, err := parseHours("estimated_hours", c.EstimatedHours)
	if err != nil {
		return workentry.Content{}, err
	}
	actual, err := parseHours("actual_hours", c.ActualHours)
	if err != nil {
		return workentry.Content{}, err
	}

	return workentry.Content{
		Title:          c.Title,
		Description:    c.Description,
		StartDate:      startDate,
		EndDate:        endDate,
		WorkType:       workentry.WorkType(c.WorkType),
		EstimatedHours: estimated,
		ActualHours:    actual,
		Billable:       c.Billable,
		Tags:           c.Tags,
		Achievements:   c.Achievements,
		Challenges:     c.Challenges,
		Learnings:      c.Learnings,
		Attachments:    c.Attachments,
	}, nil
}

func toDomainPatch(p worklogv1.WorkEntryPatch) (workentry.ContentPatch, error) {
	patch := workentry.ContentPatch{
		Title:        p.Title,
		Description:  p.Description,
		Billable:     p.Billable,
		Tags:         p.Tags,
		Achievements: p.Achievements,
		Challenges:   p.Challenges,
		Learnings:    p.Learnings,
		Attachments:  p.Attachments,
	}

	if p.WorkType != nil {
		wt := workentry.WorkType(*p.WorkType)
		patch.WorkType = &wt
	}
	if p.TaskStatus != nil {
		ts := workentry.TaskStatus(strings.ToLower(strings.TrimSpace(*p.TaskStatus)))
		patch.TaskStatus = &ts
	}

	var err error
	if p.StartDate != nil {
		if patch.StartDate, err = parseDate("start_date", *p.StartDate); err != nil {
			return workentry.ContentPatch{}, err
		}
		patch.StartDateSet = true
	}
	if p.EndDate != nil {
		if patch.EndDate, err = parseDate("end_date", *p.EndDate); err != nil {
			return workentry.ContentPatch{}, err
		}
		patch.EndDateSet = true
	}
	if p.EstimatedHours != nil {
		if patch.EstimatedHours, err = parseHours("estimated_hours", *p.EstimatedHours); err != nil {
			return workentry.ContentPatch{}, err
		}
		patch.EstimatedHoursSet = true
	}
	if p.ActualHours != nil {
		if patch.ActualHours, err = parseHours("actual_hours", *p.ActualHours); err != nil {
			return workentry.ContentPatch{}, err
		}
		patch.ActualHoursSet = true
	}

	return patch, nil
}

func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, invalidField(field, "must be YYYY-MM-DD")
	}
	return &t, nil
}

func parseHours(field, raw string) (decimal.NullDecimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, invalidField(field, "must be a decimal number")
	}
	return decimal.NewNullDecimal(d), nil
}

func toAPIList(result *workentry.ListResult) *worklogv1.ListWorkEntriesResponse {
	entries := make([]*worklogv1.WorkEntry, 0, len(result.Entries))
	for _, e := range result.Entries {
		entries = append(entries, toAPIWorkEntry(e))
	}
	return &worklogv1.ListWorkEntriesResponse{
		WorkEntries:   entries,
		NextPageToken: result.NextPageToken,
	}
}

func toAPIWorkEntry(e *workentry.WorkEntry) *worklogv1.WorkEntry {
	if e == nil {
		return nil
	}

	out := &worklogv1.WorkEntry{
		ID:             e.ID,
		EmployeeID:     e.EmployeeID,
		OrganizationID: e.OrganizationID,
		TeamID:         e.TeamID,
		Content:        toAPIContent(e.Content),
		TaskStatus:     string(e.TaskStatus),
		ReviewStatus:   string(e.ReviewStatus),
		Version:        e.Version,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
	if a := e.Approval; a != nil {
		out.Approval = &worklogv1.Approval{
			ReviewerID:   a.ReviewerID,
			ReviewerRole: string(a.ReviewerRole),
			Rating:       a.Rating.Ptr(),
			Feedback:     a.Feedback,
			ApprovedAt:   a.ApprovedAt,
		}
	}
	if cr := e.ChangeRequest; cr != nil {
		out.ChangeRequest = &worklogv1.ChangeRequest{
			ReviewerID:   cr.ReviewerID,
			ReviewerRole: string(cr.ReviewerRole),
			Feedback:     cr.Feedback,
			RequestedAt:  cr.RequestedAt,
		}
	}
	return out
}

func toAPIContent(c workentry.Content) worklogv1.WorkEntryContent {
	return worklogv1.WorkEntryContent{
		Title:          c.Title,
		Description:    c.Description,
		StartDate:      formatDate(c.StartDate),
		EndDate:        formatDate(c.EndDate),
		WorkType:       string(c.WorkType),
		EstimatedHours: formatHours(c.EstimatedHours),
		ActualHours:    formatHours(c.ActualHours),
		Billable:       c.Billable,
		Tags:           c.Tags,
		Achievements:   c.Achievements,
		Challenges:     c.Challenges,
		Learnings:      c.Learnings,
		Attachments:    c.Attachments,
	}
}

func toAPIReviewEvent(ev *workentry.ReviewEvent) *worklogv1.ReviewEvent {
	return &worklogv1.ReviewEvent{
		ID:          ev.ID,
		WorkEntryID: ev.WorkEntryID,
		Action:      string(ev.Action),
		ActorID:     ev.ActorID,
		ActorRole:   ev.ActorRole,
		FromStatus:  string(ev.FromStatus),
		ToStatus:    string(ev.ToStatus),
		Rating:      ev.Rating.Ptr(),
		Feedback:    ev.Feedback,
		OccurredAt:  ev.OccurredAt,
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func formatHours(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
