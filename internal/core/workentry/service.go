package workentry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ogurasousui/worklog-review/internal/core/hierarchy"
	"github.com/sirupsen/logrus"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// IDGenerator は作業記録と履歴の ID を生成します。
type IDGenerator interface {
	NewID() string
}

type uuidGenerator struct{}

func (uuidGenerator) NewID() string {
	return uuid.NewString()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// EmploymentGate は社員の雇用関係が有効かどうかを検査します。
type EmploymentGate interface {
	Check(ctx context.Context, employeeID, organizationID string) error
}

// Authorizer はレビュアーの権限を判定します。
type Authorizer interface {
	Authorize(ctx context.Context, reviewerID string, target hierarchy.Target) (hierarchy.Decision, error)
}

// VerificationGate は組織の本人確認状態を検査します。
type VerificationGate interface {
	Check(ctx context.Context, organizationID string) error
}

const (
	defaultListPageSize = 50
	maxListPageSize     = 200
)

// Service は作業記録のライフサイクルに関するユースケースをまとめます。
type Service struct {
	repo         Repository
	employment   EmploymentGate
	authorizer   Authorizer
	verification VerificationGate
	clock        Clock
	tx           TransactionManager
	ids          IDGenerator
	publisher    EventPublisher
	recorder     Recorder
	logger       *logrus.Entry
}

// UseCase は作業記録ユースケースの公開インターフェースです。
type UseCase interface {
	CreateWorkEntry(ctx context.Context, in CreateWorkEntryInput) (*WorkEntry, error)
	EditWorkEntry(ctx context.Context, in EditWorkEntryInput) (*WorkEntry, error)
	ResubmitWorkEntry(ctx context.Context, in ResubmitWorkEntryInput) (*WorkEntry, error)
	ReviewWorkEntry(ctx context.Context, in ReviewWorkEntryInput) (*WorkEntry, error)
	GetWorkEntry(ctx context.Context, in GetWorkEntryInput) (*WorkEntry, error)
	ListPendingReviews(ctx context.Context, in ListPendingReviewsInput) (*ListResult, error)
	ListReviews(ctx context.Context, in ListReviewsInput) (*ListResult, error)
	ListReviewHistory(ctx context.Context, in ListReviewHistoryInput) ([]*ReviewEvent, error)
}

// Option は Service の任意の依存を設定します。
type Option func(*Service)

// WithClock は時刻の取得元を差し替えます。
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithTransactionManager はトランザクション制御を設定します。
func WithTransactionManager(tx TransactionManager) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

// WithIDGenerator は ID 生成器を差し替えます。
func WithIDGenerator(ids IDGenerator) Option {
	return func(s *Service) {
		if ids != nil {
			s.ids = ids
		}
	}
}

// WithPublisher は承認完了イベントの発行先を設定します。
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithRecorder はメトリクスの記録先を設定します。
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(l *logrus.Entry) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService は Service を生成します。
func NewService(repo Repository, employment EmploymentGate, authorizer Authorizer, verification VerificationGate, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		employment:   employment,
		authorizer:   authorizer,
		verification: verification,
		clock:        realClock{},
		tx:           noopTransactionManager{},
		ids:          uuidGenerator{},
		publisher:    noopPublisher{},
		recorder:     noopRecorder{},
		logger:       logrus.WithField("component", "workentry"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CreateWorkEntryInput は作業記録作成時の入力です。
type CreateWorkEntryInput struct {
	EmployeeID     string
	OrganizationID string
	TeamID         string
	Content        Content
	TaskStatus     *TaskStatus
}

// EditWorkEntryInput は作業内容編集時の入力です。
type EditWorkEntryInput struct {
	ActorID string
	ID      string
	Patch   ContentPatch
}

// ResubmitWorkEntryInput は差し戻し後の再提出の入力です。
type ResubmitWorkEntryInput struct {
	ActorID string
	ID      string
	Patch   ContentPatch
}

// ReviewWorkEntryInput はレビュー操作の入力です。
type ReviewWorkEntryInput struct {
	ReviewerID string
	ID         string
	Decision   Decision
}

// GetWorkEntryInput は作業記録取得時の入力です。
type GetWorkEntryInput struct {
	ID string
}

// ListPendingReviewsInput はレビュー待ち一覧の入力です。
type ListPendingReviewsInput struct {
	OrganizationID string
	PageSize       int
	PageToken      string
}

// ListReviewsInput は作業記録一覧の入力です。EmployeeID と Search は表示用の絞り込みです。
type ListReviewsInput struct {
	OrganizationID string
	EmployeeID     string
	ReviewStatus   *ReviewStatus
	Search         string
	PageSize       int
	PageToken      string
}

// ListReviewHistoryInput は履歴取得時の入力です。
type ListReviewHistoryInput struct {
	ID string
}

// ListResult は一覧取得結果を表します。
type ListResult struct {
	Entries       []*WorkEntry
	NextPageToken string
}

// CreateWorkEntry は pending_review の作業記録を作成します。
func (s *Service) CreateWorkEntry(ctx context.Context, in CreateWorkEntryInput) (entry *WorkEntry, err error) {
	defer s.observe(ActionCreate, time.Now(), &err)

	employeeID, err := requireID("employee_id", in.EmployeeID)
	if err != nil {
		return nil, err
	}
	organizationID, err := requireID("organization_id", in.OrganizationID)
	if err != nil {
		return nil, err
	}

	content := normalizeContent(in.Content)
	if err := validateContent(content); err != nil {
		return nil, err
	}

	taskStatus := TaskStatusNotStarted
	if in.TaskStatus != nil {
		taskStatus = *in.TaskStatus
	}
	if err := validateTaskStatus(taskStatus); err != nil {
		return nil, err
	}

	var created *WorkEntry
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.employment.Check(txCtx, employeeID, organizationID); err != nil {
			return err
		}

		now := s.clock.Now()
		result, err := s.repo.Create(txCtx, &WorkEntry{
			ID:             s.ids.NewID(),
			EmployeeID:     employeeID,
			OrganizationID: organizationID,
			TeamID:         strings.TrimSpace(in.TeamID),
			Content:        content,
			TaskStatus:     taskStatus,
			ReviewStatus:   ReviewStatusPendingReview,
			Version:        1,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			return err
		}

		if err := s.repo.AppendEvent(txCtx, &ReviewEvent{
			ID:          s.ids.NewID(),
			WorkEntryID: result.ID,
			Action:      ActionCreate,
			ActorID:     employeeID,
			ActorRole:   ActorRoleEmployee,
			ToStatus:    ReviewStatusPendingReview,
			OccurredAt:  now,
		}); err != nil {
			return err
		}

		created = result
		return nil
	}); err != nil {
		s.logDenied(ActionCreate, "", employeeID, err)
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"work_entry_id":   created.ID,
		"employee_id":     created.EmployeeID,
		"organization_id": created.OrganizationID,
	}).Info("work entry created")

	return created, nil
}

// EditWorkEntry は所有者による作業内容の編集です。承認ステータスは変更しません。
func (s *Service) EditWorkEntry(ctx context.Context, in EditWorkEntryInput) (entry *WorkEntry, err error) {
	defer s.observe(ActionEdit, time.Now(), &err)

	if in.Patch.IsEmpty() {
		return nil, newValidationError("patch", "required")
	}
	return s.mutateAsOwner(ctx, ActionEdit, in.ActorID, in.ID, in.Patch)
}

// ResubmitWorkEntry は needs_changes の作業記録を修正して pending_review に戻します。
// 差し戻し時のフィードバックは参照用に保持されます。
func (s *Service) ResubmitWorkEntry(ctx context.Context, in ResubmitWorkEntryInput) (entry *WorkEntry, err error) {
	defer s.observe(ActionResubmit, time.Now(), &err)

	return s.mutateAsOwner(ctx, ActionResubmit, in.ActorID, in.ID, in.Patch)
}

func (s *Service) mutateAsOwner(ctx context.Context, action Action, actorID, id string, patch ContentPatch) (*WorkEntry, error) {
	actorID, err := requireID("actor_id", actorID)
	if err != nil {
		return nil, err
	}
	id, err = requireID("id", id)
	if err != nil {
		return nil, err
	}

	var saved *WorkEntry
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		if existing.EmployeeID != actorID {
			if existing.IsFrozen() {
				return &TransitionError{ID: id, From: existing.ReviewStatus, Action: action}
			}
			return fmt.Errorf("actor %s is not the owner of work entry %s: %w", actorID, id, ErrNotAuthorized)
		}

		if err := s.employment.Check(txCtx, existing.EmployeeID, existing.OrganizationID); err != nil {
			if existing.IsFrozen() {
				return errors.Join(err, &TransitionError{ID: id, From: existing.ReviewStatus, Action: action})
			}
			return err
		}

		next, err := nextStatus(id, existing.ReviewStatus, action)
		if err != nil {
			return err
		}

		updated := existing.Clone()
		patch.applyTo(updated)
		updated.Content = normalizeContent(updated.Content)
		if err := validateContent(updated.Content); err != nil {
			return err
		}
		if err := validateTaskStatus(updated.TaskStatus); err != nil {
			return err
		}

		now := s.clock.Now()
		updated.ReviewStatus = next
		updated.UpdatedAt = now

		result, err := s.repo.UpdateIfVersion(txCtx, updated, existing.Version)
		if err != nil {
			if errors.Is(err, ErrVersionConflict) {
				return s.conflictError(txCtx, id, action)
			}
			return err
		}

		if err := s.repo.AppendEvent(txCtx, &ReviewEvent{
			ID:          s.ids.NewID(),
			WorkEntryID: id,
			Action:      action,
			ActorID:     actorID,
			ActorRole:   ActorRoleEmployee,
			FromStatus:  existing.ReviewStatus,
			ToStatus:    next,
			OccurredAt:  now,
		}); err != nil {
			return err
		}

		saved = result
		return nil
	}); err != nil {
		s.logDenied(action, id, actorID, err)
		return nil, err
	}

	return saved, nil
}

// ReviewWorkEntry はレビュアーによる承認または差し戻しを行います。
// 遷移前に状態、階層権限、組織の本人確認の順で検査し、状態と監査情報を一度に書き込みます。
func (s *Service) ReviewWorkEntry(ctx context.Context, in ReviewWorkEntryInput) (entry *WorkEntry, err error) {
	action := ActionApprove
	if in.Decision != nil {
		action = in.Decision.Action()
	}
	defer s.observe(action, time.Now(), &err)

	if in.Decision == nil {
		return nil, newValidationError("decision", "required")
	}
	if err := in.Decision.Validate(); err != nil {
		return nil, err
	}

	reviewerID, err := requireID("reviewer_id", in.ReviewerID)
	if err != nil {
		return nil, err
	}
	id, err := requireID("id", in.ID)
	if err != nil {
		return nil, err
	}

	var (
		saved    *WorkEntry
		approved *ApprovedEvent
	)
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		next, err := nextStatus(id, existing.ReviewStatus, action)
		if err != nil {
			return err
		}

		decision, err := s.authorizer.Authorize(txCtx, reviewerID, hierarchy.Target{
			OrganizationID: existing.OrganizationID,
			TeamID:         existing.TeamID,
		})
		if err != nil {
			return err
		}
		if !decision.Allowed {
			return fmt.Errorf("reviewer %s on work entry %s (%s): %w", reviewerID, id, decision.Reason, ErrNotAuthorized)
		}

		if err := s.verification.Check(txCtx, existing.OrganizationID); err != nil {
			return err
		}

		now := s.clock.Now()
		updated := existing.Clone()
		updated.ReviewStatus = next
		updated.UpdatedAt = now

		event := &ReviewEvent{
			ID:          s.ids.NewID(),
			WorkEntryID: id,
			Action:      action,
			ActorID:     reviewerID,
			ActorRole:   string(decision.Role),
			FromStatus:  existing.ReviewStatus,
			ToStatus:    next,
			OccurredAt:  now,
		}

		switch d := in.Decision.(type) {
		case Approve:
			updated.Approval = &Approval{
				ReviewerID:   reviewerID,
				ReviewerRole: decision.Role,
				Rating:       d.rating(),
				Feedback:     strings.TrimSpace(d.Feedback),
				ApprovedAt:   now,
			}
			event.Rating = updated.Approval.Rating
			event.Feedback = updated.Approval.Feedback
		case RequestChanges:
			updated.ChangeRequest = &ChangeRequest{
				ReviewerID:   reviewerID,
				ReviewerRole: decision.Role,
				Feedback:     strings.TrimSpace(d.Feedback),
				RequestedAt:  now,
			}
			event.Feedback = updated.ChangeRequest.Feedback
		default:
			return newValidationError("decision", "unsupported")
		}

		result, err := s.repo.UpdateIfVersion(txCtx, updated, existing.Version)
		if err != nil {
			if errors.Is(err, ErrVersionConflict) {
				return s.conflictError(txCtx, id, action)
			}
			return err
		}

		if err := s.repo.AppendEvent(txCtx, event); err != nil {
			return err
		}

		saved = result
		if result.Approval != nil && action == ActionApprove {
			approved = &ApprovedEvent{
				EventID:        event.ID,
				WorkEntryID:    result.ID,
				EmployeeID:     result.EmployeeID,
				OrganizationID: result.OrganizationID,
				TeamID:         result.TeamID,
				ReviewerID:     reviewerID,
				ReviewerRole:   string(result.Approval.ReviewerRole),
				Rating:         result.Approval.Rating.Ptr(),
				Feedback:       result.Approval.Feedback,
				ApprovedAt:     result.Approval.ApprovedAt,
			}
		}
		return nil
	}); err != nil {
		s.logDenied(action, id, reviewerID, err)
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"work_entry_id": saved.ID,
		"reviewer_id":   reviewerID,
		"action":        action,
		"review_status": saved.ReviewStatus,
	}).Info("work entry reviewed")

	if approved != nil {
		if err := s.publisher.PublishApproved(ctx, *approved); err != nil {
			s.logger.WithError(err).WithField("work_entry_id", saved.ID).Error("failed to publish approval event")
		}
	}

	return saved, nil
}

// GetWorkEntry は作業記録を取得します。
func (s *Service) GetWorkEntry(ctx context.Context, in GetWorkEntryInput) (*WorkEntry, error) {
	id, err := requireID("id", in.ID)
	if err != nil {
		return nil, err
	}

	var result *WorkEntry
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListPendingReviews は組織内のレビュー待ちの作業記録を取得します。
func (s *Service) ListPendingReviews(ctx context.Context, in ListPendingReviewsInput) (*ListResult, error) {
	pending := ReviewStatusPendingReview
	return s.ListReviews(ctx, ListReviewsInput{
		OrganizationID: in.OrganizationID,
		ReviewStatus:   &pending,
		PageSize:       in.PageSize,
		PageToken:      in.PageToken,
	})
}

// ListReviews は組織内の作業記録を取得します。
func (s *Service) ListReviews(ctx context.Context, in ListReviewsInput) (*ListResult, error) {
	organizationID, err := requireID("organization_id", in.OrganizationID)
	if err != nil {
		return nil, err
	}

	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	var statusPtr *ReviewStatus
	if in.ReviewStatus != nil {
		if !in.ReviewStatus.IsValid() {
			return nil, newValidationError("review_status", "unknown value")
		}
		status := *in.ReviewStatus
		statusPtr = &status
	}

	var result ListResult
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		entries, token, err := s.repo.List(txCtx, ListFilter{
			OrganizationID: organizationID,
			EmployeeID:     strings.TrimSpace(in.EmployeeID),
			ReviewStatus:   statusPtr,
			Search:         strings.TrimSpace(in.Search),
			Limit:          limit,
			Offset:         offset,
		})
		if err != nil {
			return err
		}
		result.Entries = entries
		result.NextPageToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &result, nil
}

// ListReviewHistory は作業記録の遷移履歴を古い順に取得します。
func (s *Service) ListReviewHistory(ctx context.Context, in ListReviewHistoryInput) ([]*ReviewEvent, error) {
	id, err := requireID("id", in.ID)
	if err != nil {
		return nil, err
	}

	var events []*ReviewEvent
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.FindByID(txCtx, id); err != nil {
			return err
		}
		found, err := s.repo.ListEvents(txCtx, id)
		if err != nil {
			return err
		}
		events = found
		return nil
	}); err != nil {
		return nil, err
	}

	return events, nil
}

// conflictError は条件付き更新に敗れた場合に最新の状態を読み直して遷移エラーを組み立てます。
func (s *Service) conflictError(ctx context.Context, id string, action Action) error {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return &TransitionError{ID: id, From: current.ReviewStatus, Action: action, Concurrent: true}
}

func (s *Service) observe(action Action, started time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	s.recorder.ObserveTransition(action, CodeOf(err), time.Since(started))
}

func (s *Service) logDenied(action Action, id, actorID string, err error) {
	code := CodeOf(err)
	entry := s.logger.WithFields(logrus.Fields{
		"action":        action,
		"work_entry_id": id,
		"actor_id":      actorID,
		"code":          code,
	})
	if code == CodeInternal {
		entry.WithError(err).Error("work entry operation failed")
		return
	}
	entry.WithError(err).Warn("work entry operation rejected")
}

func requireID(field, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", newValidationError(field, "required")
	}
	return trimmed, nil
}

func normalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return defaultListPageSize, nil
	}
	if pageSize > maxListPageSize {
		return 0, newValidationError("page_size", fmt.Sprintf("must be at most %d", maxListPageSize))
	}
	return pageSize, nil
}

func parsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, newValidationError("page_token", "invalid")
	}

	return offset, nil
}
