package workentry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ogurasousui/worklog-review/internal/core/employment"
	"github.com/ogurasousui/worklog-review/internal/core/hierarchy"
	"github.com/ogurasousui/worklog-review/internal/core/verification"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func (s *stubClock) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *stubClock) advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
}

type sequenceIDs struct {
	mu  sync.Mutex
	seq int
}

func (g *sequenceIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("id-%d", g.seq)
}

type fakeRepo struct {
	mu      sync.Mutex
	entries map[string]*WorkEntry
	order   []string
	events  []*ReviewEvent

	// beforeUpdate は条件付き更新の直前に呼ばれ、競合を再現するために使います。
	beforeUpdate func(id string)
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{entries: make(map[string]*WorkEntry)}
}

func (r *fakeRepo) Create(_ context.Context, e *WorkEntry) (*WorkEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := e.Clone()
	r.entries[clone.ID] = clone
	r.order = append(r.order, clone.ID)
	return clone.Clone(), nil
}

func (r *fakeRepo) FindByID(_ context.Context, id string) (*WorkEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, ErrWorkEntryNotFound
	}
	return e.Clone(), nil
}

func (r *fakeRepo) UpdateIfVersion(_ context.Context, e *WorkEntry, expectedVersion int64) (*WorkEntry, error) {
	if r.beforeUpdate != nil {
		r.beforeUpdate(e.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.entries[e.ID]
	if !ok {
		return nil, ErrWorkEntryNotFound
	}
	if current.Version != expectedVersion || current.ReviewStatus == ReviewStatusApproved {
		return nil, ErrVersionConflict
	}
	clone := e.Clone()
	clone.Version = expectedVersion + 1
	r.entries[e.ID] = clone
	return clone.Clone(), nil
}

func (r *fakeRepo) List(_ context.Context, filter ListFilter) ([]*WorkEntry, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var filtered []*WorkEntry
	for _, id := range r.order {
		e := r.entries[id]
		if e.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.ReviewStatus != nil && e.ReviewStatus != *filter.ReviewStatus {
			continue
		}
		if filter.EmployeeID != "" && e.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(e.Content.Title), strings.ToLower(filter.Search)) {
			continue
		}
		filtered = append(filtered, e.Clone())
	}

	if filter.Offset > len(filtered) {
		return []*WorkEntry{}, "", nil
	}
	end := filter.Offset + filter.Limit
	if end > len(filtered) {
		end = len(filtered)
	}
	next := ""
	if end < len(filtered) {
		next = strconv.Itoa(end)
	}
	return filtered[filter.Offset:end], next, nil
}

func (r *fakeRepo) AppendEvent(_ context.Context, ev *ReviewEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *ev
	r.events = append(r.events, &clone)
	return nil
}

func (r *fakeRepo) ListEvents(_ context.Context, id string) ([]*ReviewEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*ReviewEvent
	for _, ev := range r.events {
		if ev.WorkEntryID == id {
			clone := *ev
			out = append(out, &clone)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

type fakeEmployment struct {
	mu     sync.Mutex
	status map[string]employment.Status
}

func (f *fakeEmployment) FindRelationship(_ context.Context, employeeID, organizationID string) (*employment.Relationship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.status[employeeID+"/"+organizationID]
	if !ok {
		return nil, employment.ErrRelationshipNotFound
	}
	return &employment.Relationship{EmployeeID: employeeID, OrganizationID: organizationID, Status: status}, nil
}

func (f *fakeEmployment) set(employeeID, organizationID string, status employment.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[employeeID+"/"+organizationID] = status
}

type fakeGrants struct {
	mu     sync.Mutex
	grants []*hierarchy.Grant
}

func (f *fakeGrants) FindActiveGrants(_ context.Context, reviewerID, organizationID string) ([]*hierarchy.Grant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*hierarchy.Grant
	for _, g := range f.grants {
		if g.ReviewerID == reviewerID && g.OrganizationID == organizationID && g.RevokedAt == nil {
			clone := *g
			out = append(out, &clone)
		}
	}
	return out, nil
}

type fakeVerification struct {
	mu       sync.Mutex
	statuses map[string]verification.Status
}

func (f *fakeVerification) FindVerificationStatus(_ context.Context, organizationID string) (verification.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.statuses[organizationID]
	if !ok {
		return "", verification.ErrOrganizationNotFound
	}
	return status, nil
}

func (f *fakeVerification) set(organizationID string, status verification.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[organizationID] = status
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ApprovedEvent
	err    error
}

func (p *recordingPublisher) PublishApproved(_ context.Context, ev ApprovedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type recordingRecorder struct {
	mu    sync.Mutex
	codes map[Action][]Code
}

func (r *recordingRecorder) ObserveTransition(action Action, code Code, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.codes == nil {
		r.codes = make(map[Action][]Code)
	}
	r.codes[action] = append(r.codes[action], code)
}

const (
	orgID      = "org-1"
	teamID     = "team-1"
	employeeID = "emp-1"
	adminID    = "admin-1"
	managerID  = "mgr-1"
)

type fixture struct {
	svc          *Service
	repo         *fakeRepo
	clock        *stubClock
	employment   *fakeEmployment
	grants       *fakeGrants
	verification *fakeVerification
	publisher    *recordingPublisher
	recorder     *recordingRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	f := &fixture{
		repo:  newFakeRepo(),
		clock: &stubClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
		employment: &fakeEmployment{status: map[string]employment.Status{
			employeeID + "/" + orgID: employment.StatusActive,
		}},
		grants: &fakeGrants{grants: []*hierarchy.Grant{
			{ID: "g-admin", ReviewerID: adminID, OrganizationID: orgID, Scope: hierarchy.ScopeOrganization, Role: hierarchy.RoleOrganizationAdmin},
			{ID: "g-mgr", ReviewerID: managerID, OrganizationID: orgID, Scope: hierarchy.ScopeTeam, TeamID: teamID, Role: hierarchy.RoleAssignedManager},
		}},
		verification: &fakeVerification{statuses: map[string]verification.Status{orgID: verification.StatusVerified}},
		publisher:    &recordingPublisher{},
		recorder:     &recordingRecorder{},
	}

	f.svc = NewService(
		f.repo,
		employment.NewGate(f.employment, f.clock),
		hierarchy.NewAuthorizer(f.grants),
		verification.NewGate(f.verification),
		WithClock(f.clock),
		WithIDGenerator(&sequenceIDs{}),
		WithPublisher(f.publisher),
		WithRecorder(f.recorder),
		WithLogger(logrus.NewEntry(logger)),
	)
	return f
}

func (f *fixture) create(t *testing.T, team string) *WorkEntry {
	t.Helper()
	created, err := f.svc.CreateWorkEntry(context.Background(), CreateWorkEntryInput{
		EmployeeID:     employeeID,
		OrganizationID: orgID,
		TeamID:         team,
		Content: Content{
			Title:       "Implement login",
			Description: "OAuth based login",
			WorkType:    WorkTypeDevelopment,
		},
	})
	require.NoError(t, err)
	return created
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func TestService_CreateWorkEntry_Success(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	start := time.Date(2025, 2, 1, 15, 30, 0, 0, time.UTC)
	end := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	progress := TaskStatusInProgress

	created, err := f.svc.CreateWorkEntry(context.Background(), CreateWorkEntryInput{
		EmployeeID:     " emp-1 ",
		OrganizationID: "org-1",
		TeamID:         " team-1 ",
		TaskStatus:     &progress,
		Content: Content{
			Title:          "  Implement login  ",
			StartDate:      &start,
			EndDate:        &end,
			EstimatedHours: decimal.NewNullDecimal(decimal.RequireFromString("7.5")),
			Tags:           []string{"Auth", "auth ", " backend"},
			Attachments:    []string{" s3://bucket/design.pdf "},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "id-1", created.ID)
	assert.Equal(t, employeeID, created.EmployeeID)
	assert.Equal(t, teamID, created.TeamID)
	assert.Equal(t, ReviewStatusPendingReview, created.ReviewStatus)
	assert.Equal(t, TaskStatusInProgress, created.TaskStatus)
	assert.Equal(t, "Implement login", created.Content.Title)
	assert.Equal(t, WorkTypeOther, created.Content.WorkType)
	assert.Equal(t, []string{"auth", "backend"}, created.Content.Tags)
	assert.Equal(t, []string{"s3://bucket/design.pdf"}, created.Content.Attachments)
	assert.True(t, created.Content.StartDate.Equal(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, int64(1), created.Version)
	assert.Nil(t, created.Approval)

	history, err := f.svc.ListReviewHistory(context.Background(), ListReviewHistoryInput{ID: created.ID})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, ActionCreate, history[0].Action)
	assert.Equal(t, ReviewStatusPendingReview, history[0].ToStatus)
}

func TestService_CreateWorkEntry_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	start := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.CreateWorkEntry(context.Background(), CreateWorkEntryInput{
		EmployeeID:     employeeID,
		OrganizationID: orgID,
		Content: Content{
			Title:       " ",
			StartDate:   &start,
			EndDate:     &end,
			WorkType:    WorkType("gardening"),
			ActualHours: decimal.NewNullDecimal(decimal.NewFromInt(-1)),
		},
	})
	require.ErrorIs(t, err, ErrValidation)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Fields["title"])
	assert.Equal(t, "oneof", verr.Fields["work_type"])
	assert.Equal(t, "before start_date", verr.Fields["end_date"])
	assert.Equal(t, "negative", verr.Fields["actual_hours"])

	_, err = f.svc.CreateWorkEntry(context.Background(), CreateWorkEntryInput{OrganizationID: orgID, Content: Content{Title: "x"}})
	require.ErrorIs(t, err, ErrValidation)

	unknown := TaskStatus("sleeping")
	_, err = f.svc.CreateWorkEntry(context.Background(), CreateWorkEntryInput{
		EmployeeID: employeeID, OrganizationID: orgID, Content: Content{Title: "x"}, TaskStatus: &unknown,
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestService_CreateWorkEntry_InactiveEmployee(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.employment.set(employeeID, orgID, employment.StatusInactive)

	_, err := f.svc.CreateWorkEntry(context.Background(), CreateWorkEntryInput{
		EmployeeID: employeeID, OrganizationID: orgID, Content: Content{Title: "Report"},
	})
	require.ErrorIs(t, err, ErrEmploymentInactive)
	assert.Empty(t, f.repo.entries)

	_, err = f.svc.CreateWorkEntry(context.Background(), CreateWorkEntryInput{
		EmployeeID: "stranger", OrganizationID: orgID, Content: Content{Title: "Report"},
	})
	require.ErrorIs(t, err, ErrEmploymentInactive)
}

func TestService_Scenario_RequestChangesResubmitApprove(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	entry := f.create(t, teamID)
	require.Equal(t, ReviewStatusPendingReview, entry.ReviewStatus)

	f.clock.advance(time.Hour)
	changed, err := f.svc.ReviewWorkEntry(ctx, ReviewWorkEntryInput{
		ReviewerID: managerID,
		ID:         entry.ID,
		Decision:   RequestChanges{Feedback: "Add test coverage"},
	})
	require.NoError(t, err)
	assert.Equal(t, ReviewStatusNeedsChanges, changed.ReviewStatus)
	require.NotNil(t, changed.ChangeRequest)
	assert.Equal(t, "Add test coverage", changed.ChangeRequest.Feedback)
	assert.Equal(t, hierarchy.RoleAssignedManager, changed.ChangeRequest.ReviewerRole)
	assert.Nil(t, changed.Approval)

	f.clock.advance(time.Hour)
	resubmitted, err := f.svc.ResubmitWorkEntry(ctx, ResubmitWorkEntryInput{
		ActorID: employeeID,
		ID:      entry.ID,
		Patch:   ContentPatch{Description: strPtr("OAuth login with unit and integration tests")},
	})
	require.NoError(t, err)
	assert.Equal(t, ReviewStatusPendingReview, resubmitted.ReviewStatus)
	assert.Equal(t, "OAuth login with unit and integration tests", resubmitted.Content.Description)
	require.NotNil(t, resubmitted.ChangeRequest, "feedback is retained for reference")

	f.clock.advance(time.Hour)
	approved, err := f.svc.ReviewWorkEntry(ctx, ReviewWorkEntryInput{
		ReviewerID: adminID,
		ID:         entry.ID,
		Decision:   Approve{Rating: intPtr(4), Feedback: "Solid work"},
	})
	require.NoError(t, err)
	assert.Equal(t, ReviewStatusApproved, approved.ReviewStatus)
	require.NotNil(t, approved.Approval)
	assert.Equal(t, adminID, approved.Approval.ReviewerID)
	assert.Equal(t, hierarchy.RoleOrganizationAdmin, approved.Approval.ReviewerRole)
	rating, ok := approved.Approval.Rating.Value()
	assert.True(t, ok)
	assert.Equal(t, 4, rating)
	assert.Equal(t, "Solid work", approved.Approval.Feedback)
	assert.True(t, approved.Approval.ApprovedAt.Equal(f.clock.Now()))

	_, err = f.svc.EditWorkEntry(ctx, EditWorkEntryInput{
		ActorID: employeeID,
		ID:      entry.ID,
		Patch:   ContentPatch{Title: strPtr("Sneaky edit")},
	})
	require.ErrorIs(t, err, ErrImmutableRecord)

	history, err := f.svc.ListReviewHistory(ctx, ListReviewHistoryInput{ID: entry.ID})
	require.NoError(t, err)
	actions := make([]Action, 0, len(history))
	for _, ev := range history {
		actions = append(actions, ev.Action)
	}
	assert.Equal(t, []Action{ActionCreate, ActionRequestChanges, ActionResubmit, ActionApprove}, actions)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, entry.ID, f.publisher.events[0].WorkEntryID)
	assert.Equal(t, 4, *f.publisher.events[0].Rating)
	assert.Equal(t, string(hierarchy.RoleOrganizationAdmin), f.publisher.events[0].ReviewerRole)
}

func TestService_ApprovedRecordIsImmutable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	entry := f.create(t, teamID)

	_, err := f.svc.ReviewWorkEntry(ctx, ReviewWorkEntryInput{ReviewerID: adminID, ID: entry.ID, Decision: Approve{Rating: intPtr(5)}})
	require.NoError(t, err)

	before, err := f.repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)

	attempts := []func() error{
		func() error {
			_, err := f.svc.EditWorkEntry(ctx, EditWorkEntryInput{ActorID: employeeID, ID: entry.ID, Patch: ContentPatch{Title: strPtr("changed")}})
			return err
		},
		func() error {
			_, err := f.svc.ResubmitWorkEntry(ctx, ResubmitWorkEntryInput{ActorID: employeeID, ID: entry.ID})
			return err
		},
		func() error {
			_, err := f.svc.EditWorkEntry(ctx, EditWorkEntryInput{ActorID: "emp-2", ID: entry.ID, Patch: ContentPatch{Title: strPtr("hijack")}})
			return err
		},
		func() error {
			_, err := f.svc.ReviewWorkEntry(ctx, ReviewWorkEntryInput{ReviewerID: adminID, ID: entry.ID, Decision: Approve{Rating: intPtr(1)}})
			return err
		},
		func() error {
			_, err := f.svc.ReviewWorkEntry(ctx, ReviewWorkEntryInput{ReviewerID: managerID, ID: entry.ID, Decision: RequestChanges{Feedback: "redo"}})
			return err
		},
		func() error {
			_, err := f.svc.ReviewWorkEntry(ctx, ReviewWorkEntryInput{ReviewerID: "nobody", ID: entry.ID, Decision: Approve{}})
			return err
		},
	}

	for i, attempt := range attempts {
		err := attempt()
		require.ErrorIs(t, err, ErrImmutableRecord, "attempt %d", i)
		assert.Equal(t, CodeImmutableRecord, CodeOf(err))
	}

	after, err := f.repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, f.publisher.events, 1, "repeated approve must not publish again")
}

func TestService_DecisionValidatedBeforeLoad(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	entry := f.create(t, teamID)

	_, err := f.svc.ReviewWorkEntry(ctx, ReviewWorkEntryInput{ReviewerID: adminID, ID: entry.ID, Decision: Approve{Rating: intPtr(4)}})
	require.NoError(t, err)
	before, err := f.repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)

	// 判断の形式が不正な場合は記録の状態より先に検証エラーになります。
	_, err = f.svc.ReviewWorkEntry(ctx, ReviewWorkEntryInput{ReviewerID: adminID, ID: entry.ID, Decision: Approve{Rating: intPtr(0)}})
	require.ErrorIs(t, err, ErrValidation)
	require.NotErrorIs(t, err, ErrImmutableRecord)
	assert.Equal(t, CodeValidation, CodeOf(err))

	_, err = f.svc.ReviewWorkEntry(ctx, ReviewWorkEntryInput{ReviewerID: adminID, ID: "missing", Decision: RequestChanges{}})
	require.ErrorIs(t, err, ErrValidation)

	after, err := f.repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestService_RepeatedApproveFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	entry := f.create(t, teamID)

	_, err := f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{ReviewerID: adminID, ID: entry.ID, Decision: Approve{Rating: intPtr(3)}})
	require.NoError(t, err)

	_, err = f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{ReviewerID: adminID, ID: entry.ID, Decision: Approve{Rating: intPtr(5)}})
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.ErrorIs(t, err, ErrImmutableRecord)

	stored, err := f.repo.FindByID(context.Background(), entry.ID)
	require.NoError(t, err)
	rating, _ := stored.Approval.Rating.Value()
	assert.Equal(t, 3, rating)
}

func TestService_ConcurrentApproveSingleWinner(t *testing.T) {
	t.Parallel()

	for round := 0; round < 20; round++ {
		f := newFixture(t)
		entry := f.create(t, teamID)

		type outcome struct {
			reviewer string
			rating   int
			entry    *WorkEntry
			err      error
		}

		reviewers := []struct {
			id     string
			rating int
		}{{adminID, 2}, {managerID, 5}}

		var (
			wg      sync.WaitGroup
			start   = make(chan struct{})
			results = make([]outcome, len(reviewers))
		)
		for i, r := range reviewers {
			wg.Add(1)
			go func(i int, reviewerID string, rating int) {
				defer wg.Done()
				<-start
				e, err := f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{
					ReviewerID: reviewerID,
					ID:         entry.ID,
					Decision:   Approve{Rating: intPtr(rating), Feedback: "by " + reviewerID},
				})
				results[i] = outcome{reviewer: reviewerID, rating: rating, entry: e, err: err}
			}(i, r.id, r.rating)
		}
		close(start)
		wg.Wait()

		var winners, losers []outcome
		for _, res := range results {
			if res.err == nil {
				winners = append(winners, res)
				continue
			}
			require.ErrorIs(t, res.err, ErrInvalidTransition)
			losers = append(losers, res)
		}
		require.Len(t, winners, 1, "round %d", round)
		require.Len(t, losers, 1, "round %d", round)

		stored, err := f.repo.FindByID(context.Background(), entry.ID)
		require.NoError(t, err)
		rating, _ := stored.Approval.Rating.Value()
		assert.Equal(t, winners[0].rating, rating)
		assert.Equal(t, "by "+winners[0].reviewer, stored.Approval.Feedback)
		assert.Equal(t, winners[0].reviewer, stored.Approval.ReviewerID)
	}
}

func TestService_ReviewLosesConditionalWrite(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	entry := f.create(t, teamID)

	// 同時に別のレビュアーが承認したことを条件付き更新の直前に再現します。
	var once sync.Once
	f.repo.beforeUpdate = func(id string) {
		once.Do(func() {
			f.repo.mu.Lock()
			defer f.repo.mu.Unlock()
			winner := f.repo.entries[id].Clone()
			winner.ReviewStatus = ReviewStatusApproved
			winner.Approval = &Approval{ReviewerID: "other-admin", ReviewerRole: hierarchy.RoleOrganizationAdmin, Rating: mustRating(t, 1)}
			winner.Version++
			f.repo.entries[id] = winner
		})
	}

	_, err := f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{ReviewerID: managerID, ID: entry.ID, Decision: Approve{Rating: intPtr(5)}})
	require.ErrorIs(t, err, ErrInvalidTransition)

	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	assert.True(t, terr.Concurrent)
	assert.Equal(t, ReviewStatusApproved, terr.From)

	stored, err := f.repo.FindByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "other-admin", stored.Approval.ReviewerID)
	assert.Empty(t, f.publisher.events)
}

func TestService_EditLosesToConcurrentApproval(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	entry := f.create(t, teamID)

	var once sync.Once
	f.repo.beforeUpdate = func(id string) {
		once.Do(func() {
			f.repo.mu.Lock()
			defer f.repo.mu.Unlock()
			winner := f.repo.entries[id].Clone()
			winner.ReviewStatus = ReviewStatusApproved
			winner.Approval = &Approval{ReviewerID: adminID, ReviewerRole: hierarchy.RoleOrganizationAdmin}
			winner.Version++
			f.repo.entries[id] = winner
		})
	}

	_, err := f.svc.EditWorkEntry(context.Background(), EditWorkEntryInput{ActorID: employeeID, ID: entry.ID, Patch: ContentPatch{Title: strPtr("late edit")}})
	require.ErrorIs(t, err, ErrImmutableRecord)

	stored, err := f.repo.FindByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Implement login", stored.Content.Title)
}

func TestService_VerificationGateBlocksAdmin(t *testing.T) {
	t.Parallel()

	for _, status := range []verification.Status{verification.StatusPending, verification.StatusRejected, verification.StatusUnverified} {
		status := status
		t.Run(string(status), func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			entry := f.create(t, teamID)
			f.verification.set(orgID, status)

			_, err := f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{ReviewerID: adminID, ID: entry.ID, Decision: Approve{Rating: intPtr(4)}})
			require.ErrorIs(t, err, ErrVerificationRequired)
			assert.Equal(t, CodeVerificationRequired, CodeOf(err))

			_, err = f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{ReviewerID: adminID, ID: entry.ID, Decision: RequestChanges{Feedback: "more detail"}})
			require.ErrorIs(t, err, ErrVerificationRequired)

			stored, err := f.repo.FindByID(context.Background(), entry.ID)
			require.NoError(t, err)
			assert.Equal(t, ReviewStatusPendingReview, stored.ReviewStatus)
			assert.Nil(t, stored.Approval)
			assert.Nil(t, stored.ChangeRequest)
		})
	}
}

func TestService_VerificationIsReadPerAttempt(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	entry := f.create(t, teamID)
	f.verification.set(orgID, verification.StatusPending)

	_, err := f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{ReviewerID: adminID, ID: entry.ID, Decision: Approve{}})
	require.ErrorIs(t, err, ErrVerificationRequired)

	f.verification.set(orgID, verification.StatusVerified)

	approved, err := f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{ReviewerID: adminID, ID: entry.ID, Decision: Approve{}})
	require.NoError(t, err)
	assert.False(t, approved.Approval.Rating.IsSet())
}

func TestService_TeamScopeIsolation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	entry := f.create(t, "team-2")

	_, err := f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{ReviewerID: managerID, ID: entry.ID, Decision: Approve{Rating: intPtr(3)}})
	require.ErrorIs(t, err, ErrNotAuthorized)
	assert.Equal(t, CodeNotAuthorized, CodeOf(err))

	_, err = f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{ReviewerID: managerID, ID: entry.ID, Decision: RequestChanges{Feedback: "no"}})
	require.ErrorIs(t, err, ErrNotAuthorized)

	stored, err := f.repo.FindByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, ReviewStatusPendingReview, stored.ReviewStatus)
}

func TestService_RevokedGrantDeniesNextReview(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	first := f.create(t, teamID)
	second := f.create(t, teamID)

	_, err := f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{ReviewerID: managerID, ID: first.ID, Decision: Approve{}})
	require.NoError(t, err)

	f.grants.mu.Lock()
	revokedAt := f.clock.Now()
	f.grants.grants[1].RevokedAt = &revokedAt
	f.grants.mu.Unlock()

	_, err = f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{ReviewerID: managerID, ID: second.ID, Decision: Approve{}})
	require.ErrorIs(t, err, ErrNotAuthorized)
}

func TestService_ResubmitOwnership(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	entry := f.create(t, teamID)

	_, err := f.svc.ReviewWorkEntry(ctx, ReviewWorkEntryInput{ReviewerID: managerID, ID: entry.ID, Decision: RequestChanges{Feedback: "Split into smaller entries"}})
	require.NoError(t, err)

	for _, actor := range []string{managerID, adminID, "emp-2"} {
		_, err := f.svc.ResubmitWorkEntry(ctx, ResubmitWorkEntryInput{ActorID: actor, ID: entry.ID, Patch: ContentPatch{Title: strPtr("hijack")}})
		require.ErrorIs(t, err, ErrNotAuthorized, "actor %s", actor)
	}

	stored, err := f.repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, ReviewStatusNeedsChanges, stored.ReviewStatus)

	resubmitted, err := f.svc.ResubmitWorkEntry(ctx, ResubmitWorkEntryInput{ActorID: employeeID, ID: entry.ID, Patch: ContentPatch{Title: strPtr("Implement login (part 1)")}})
	require.NoError(t, err)
	assert.Equal(t, ReviewStatusPendingReview, resubmitted.ReviewStatus)
	assert.Equal(t, "Implement login (part 1)", resubmitted.Content.Title)
}

func TestService_ResubmitRequiresNeedsChanges(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	entry := f.create(t, teamID)

	_, err := f.svc.ResubmitWorkEntry(context.Background(), ResubmitWorkEntryInput{ActorID: employeeID, ID: entry.ID})
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.NotErrorIs(t, err, ErrImmutableRecord)
}

func TestService_ReviewRequiresPendingReview(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	entry := f.create(t, teamID)

	_, err := f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{ReviewerID: managerID, ID: entry.ID, Decision: RequestChanges{Feedback: "first"}})
	require.NoError(t, err)

	_, err = f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{ReviewerID: adminID, ID: entry.ID, Decision: Approve{Rating: intPtr(5)}})
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, CodeInvalidTransition, CodeOf(err))

	_, err = f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{ReviewerID: adminID, ID: entry.ID, Decision: RequestChanges{Feedback: "second"}})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestService_RequestChangesFeedbackIsOverwritten(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	entry := f.create(t, teamID)

	_, err := f.svc.ReviewWorkEntry(ctx, ReviewWorkEntryInput{ReviewerID: managerID, ID: entry.ID, Decision: RequestChanges{Feedback: "first round"}})
	require.NoError(t, err)
	_, err = f.svc.ResubmitWorkEntry(ctx, ResubmitWorkEntryInput{ActorID: employeeID, ID: entry.ID})
	require.NoError(t, err)
	second, err := f.svc.ReviewWorkEntry(ctx, ReviewWorkEntryInput{ReviewerID: adminID, ID: entry.ID, Decision: RequestChanges{Feedback: "second round"}})
	require.NoError(t, err)

	assert.Equal(t, "second round", second.ChangeRequest.Feedback)
	assert.Equal(t, hierarchy.RoleOrganizationAdmin, second.ChangeRequest.ReviewerRole)

	history, err := f.svc.ListReviewHistory(ctx, ListReviewHistoryInput{ID: entry.ID})
	require.NoError(t, err)
	var feedback []string
	for _, ev := range history {
		if ev.Action == ActionRequestChanges {
			feedback = append(feedback, ev.Feedback)
		}
	}
	assert.Equal(t, []string{"first round", "second round"}, feedback)
}

func TestService_RatingBounds(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		rating int
		ok     bool
	}{{0, false}, {6, false}, {-1, false}, {1, true}, {5, true}} {
		tc := tc
		t.Run(strconv.Itoa(tc.rating), func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			entry := f.create(t, teamID)

			approved, err := f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{ReviewerID: adminID, ID: entry.ID, Decision: Approve{Rating: intPtr(tc.rating)}})
			if !tc.ok {
				require.ErrorIs(t, err, ErrValidation)
				stored, ferr := f.repo.FindByID(context.Background(), entry.ID)
				require.NoError(t, ferr)
				assert.Equal(t, ReviewStatusPendingReview, stored.ReviewStatus)
				return
			}
			require.NoError(t, err)
			got, set := approved.Approval.Rating.Value()
			assert.True(t, set)
			assert.Equal(t, tc.rating, got)
		})
	}
}

func TestService_RequestChangesRequiresFeedback(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	entry := f.create(t, teamID)

	_, err := f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{ReviewerID: managerID, ID: entry.ID, Decision: RequestChanges{Feedback: "   "}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{ReviewerID: managerID, ID: entry.ID})
	require.ErrorIs(t, err, ErrValidation)
}

func TestService_InactiveEmployeeLockout(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	pending := f.create(t, teamID)
	changes := f.create(t, teamID)
	approved := f.create(t, teamID)

	_, err := f.svc.ReviewWorkEntry(ctx, ReviewWorkEntryInput{ReviewerID: managerID, ID: changes.ID, Decision: RequestChanges{Feedback: "fix"}})
	require.NoError(t, err)
	_, err = f.svc.ReviewWorkEntry(ctx, ReviewWorkEntryInput{ReviewerID: managerID, ID: approved.ID, Decision: Approve{}})
	require.NoError(t, err)

	f.employment.set(employeeID, orgID, employment.StatusInactive)

	_, err = f.svc.CreateWorkEntry(ctx, CreateWorkEntryInput{EmployeeID: employeeID, OrganizationID: orgID, Content: Content{Title: "new"}})
	require.ErrorIs(t, err, ErrEmploymentInactive)

	for _, id := range []string{pending.ID, changes.ID, approved.ID} {
		_, err := f.svc.EditWorkEntry(ctx, EditWorkEntryInput{ActorID: employeeID, ID: id, Patch: ContentPatch{Title: strPtr("edit")}})
		require.ErrorIs(t, err, ErrEmploymentInactive, "entry %s", id)
	}

	_, err = f.svc.EditWorkEntry(ctx, EditWorkEntryInput{ActorID: employeeID, ID: approved.ID, Patch: ContentPatch{Title: strPtr("edit")}})
	require.ErrorIs(t, err, ErrImmutableRecord, "approved entry stays immutable for an inactive owner")
	_, err = f.svc.EditWorkEntry(ctx, EditWorkEntryInput{ActorID: employeeID, ID: pending.ID, Patch: ContentPatch{Title: strPtr("edit")}})
	require.NotErrorIs(t, err, ErrImmutableRecord)

	_, err = f.svc.ResubmitWorkEntry(ctx, ResubmitWorkEntryInput{ActorID: employeeID, ID: changes.ID})
	require.ErrorIs(t, err, ErrEmploymentInactive)

	// 既存の記録の参照は影響を受けません。
	found, err := f.svc.GetWorkEntry(ctx, GetWorkEntryInput{ID: pending.ID})
	require.NoError(t, err)
	assert.Equal(t, "Implement login", found.Content.Title)
}

func TestService_EditWorkEntry(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	entry := f.create(t, teamID)
	f.clock.advance(time.Minute)

	done := TaskStatusDone
	billable := true
	tags := []string{"Release"}
	edited, err := f.svc.EditWorkEntry(ctx, EditWorkEntryInput{
		ActorID: employeeID,
		ID:      entry.ID,
		Patch: ContentPatch{
			Achievements:   strPtr("Shipped"),
			Billable:       &billable,
			Tags:           &tags,
			TaskStatus:     &done,
			ActualHours:    decimal.NewNullDecimal(decimal.RequireFromString("3.25")),
			ActualHoursSet: true,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, ReviewStatusPendingReview, edited.ReviewStatus, "task status does not drive review status")
	assert.Equal(t, TaskStatusDone, edited.TaskStatus)
	assert.Equal(t, "Shipped", edited.Content.Achievements)
	assert.True(t, edited.Content.Billable)
	assert.Equal(t, []string{"release"}, edited.Content.Tags)
	assert.True(t, edited.Content.ActualHours.Decimal.Equal(decimal.RequireFromString("3.25")))
	assert.Equal(t, int64(2), edited.Version)
	assert.True(t, edited.UpdatedAt.Equal(f.clock.Now()))

	_, err = f.svc.EditWorkEntry(ctx, EditWorkEntryInput{ActorID: managerID, ID: entry.ID, Patch: ContentPatch{Title: strPtr("reviewer edit")}})
	require.ErrorIs(t, err, ErrNotAuthorized)

	_, err = f.svc.EditWorkEntry(ctx, EditWorkEntryInput{ActorID: employeeID, ID: entry.ID})
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.EditWorkEntry(ctx, EditWorkEntryInput{ActorID: employeeID, ID: entry.ID, Patch: ContentPatch{Title: strPtr("")}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.EditWorkEntry(ctx, EditWorkEntryInput{ActorID: employeeID, ID: "missing", Patch: ContentPatch{Title: strPtr("x")}})
	require.ErrorIs(t, err, ErrWorkEntryNotFound)
}

func TestService_EditInNeedsChangesKeepsStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	entry := f.create(t, teamID)

	_, err := f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{ReviewerID: managerID, ID: entry.ID, Decision: RequestChanges{Feedback: "fix"}})
	require.NoError(t, err)

	edited, err := f.svc.EditWorkEntry(context.Background(), EditWorkEntryInput{ActorID: employeeID, ID: entry.ID, Patch: ContentPatch{Learnings: strPtr("write tests first")}})
	require.NoError(t, err)
	assert.Equal(t, ReviewStatusNeedsChanges, edited.ReviewStatus)
}

func TestService_PublishFailureDoesNotRollBack(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.publisher.err = errors.New("nats unavailable")
	entry := f.create(t, teamID)

	approved, err := f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{ReviewerID: adminID, ID: entry.ID, Decision: Approve{Rating: intPtr(2)}})
	require.NoError(t, err)
	assert.Equal(t, ReviewStatusApproved, approved.ReviewStatus)
}

func TestService_ReviewNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{ReviewerID: adminID, ID: "missing", Decision: Approve{}})
	require.ErrorIs(t, err, ErrWorkEntryNotFound)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestService_ListReviews(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.employment.set("emp-2", orgID, employment.StatusActive)

	a := f.create(t, teamID)
	b := f.create(t, teamID)
	_, err := f.svc.CreateWorkEntry(ctx, CreateWorkEntryInput{EmployeeID: "emp-2", OrganizationID: orgID, Content: Content{Title: "Write onboarding docs"}})
	require.NoError(t, err)

	_, err = f.svc.ReviewWorkEntry(ctx, ReviewWorkEntryInput{ReviewerID: adminID, ID: a.ID, Decision: Approve{}})
	require.NoError(t, err)

	pending, err := f.svc.ListPendingReviews(ctx, ListPendingReviewsInput{OrganizationID: orgID})
	require.NoError(t, err)
	require.Len(t, pending.Entries, 2)
	assert.Equal(t, b.ID, pending.Entries[0].ID)

	page1, err := f.svc.ListReviews(ctx, ListReviewsInput{OrganizationID: orgID, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page1.Entries, 2)
	require.NotEmpty(t, page1.NextPageToken)

	page2, err := f.svc.ListReviews(ctx, ListReviewsInput{OrganizationID: orgID, PageSize: 2, PageToken: page1.NextPageToken})
	require.NoError(t, err)
	require.Len(t, page2.Entries, 1)
	assert.Empty(t, page2.NextPageToken)

	byEmployee, err := f.svc.ListReviews(ctx, ListReviewsInput{OrganizationID: orgID, EmployeeID: "emp-2"})
	require.NoError(t, err)
	require.Len(t, byEmployee.Entries, 1)

	search, err := f.svc.ListReviews(ctx, ListReviewsInput{OrganizationID: orgID, Search: "onboarding"})
	require.NoError(t, err)
	require.Len(t, search.Entries, 1)

	approved := ReviewStatusApproved
	onlyApproved, err := f.svc.ListReviews(ctx, ListReviewsInput{OrganizationID: orgID, ReviewStatus: &approved})
	require.NoError(t, err)
	require.Len(t, onlyApproved.Entries, 1)
	assert.Equal(t, a.ID, onlyApproved.Entries[0].ID)

	_, err = f.svc.ListReviews(ctx, ListReviewsInput{})
	require.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.ListReviews(ctx, ListReviewsInput{OrganizationID: orgID, PageSize: maxListPageSize + 1})
	require.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.ListReviews(ctx, ListReviewsInput{OrganizationID: orgID, PageToken: "abc"})
	require.ErrorIs(t, err, ErrValidation)
	unknown := ReviewStatus("archived")
	_, err = f.svc.ListReviews(ctx, ListReviewsInput{OrganizationID: orgID, ReviewStatus: &unknown})
	require.ErrorIs(t, err, ErrValidation)
}

func TestService_RecordsOutcomes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	entry := f.create(t, "team-2")

	_, err := f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{ReviewerID: managerID, ID: entry.ID, Decision: Approve{}})
	require.Error(t, err)
	_, err = f.svc.ReviewWorkEntry(context.Background(), ReviewWorkEntryInput{ReviewerID: adminID, ID: entry.ID, Decision: Approve{}})
	require.NoError(t, err)

	assert.Equal(t, []Code{CodeOK}, f.recorder.codes[ActionCreate])
	assert.Equal(t, []Code{CodeNotAuthorized, CodeOK}, f.recorder.codes[ActionApprove])
}

func mustRating(t *testing.T, v int) Rating {
	t.Helper()
	r, err := NewRating(v)
	require.NoError(t, err)
	return r
}
