package dates

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	bob   = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
	carol = "cccccccc-cccc-cccc-cccc-cccccccccccc"
)

// fakeDatesRepo is an in-memory Repository
type fakeDatesRepo struct {
	nextID   int64
	dates    map[int64]*DateProposal
	feedback map[string]*DateFeedback // key dateID|userID
}

func newFakeDatesRepo() *fakeDatesRepo {
	return &fakeDatesRepo{
		nextID:   1,
		dates:    make(map[int64]*DateProposal),
		feedback: make(map[string]*DateFeedback),
	}
}

func (f *fakeDatesRepo) snapshot() map[int64]DateProposal {
	s := make(map[int64]DateProposal, len(f.dates))
	for id, d := range f.dates {
		s[id] = *d
	}
	return s
}

func (f *fakeDatesRepo) restore(s map[int64]DateProposal) {
	f.dates = make(map[int64]*DateProposal, len(s))
	for id, d := range s {
		copied := d
		f.dates[id] = &copied
	}
}

func (f *fakeDatesRepo) CreateDateEntry(_ context.Context, d *DateProposal) error {
	d.DateID = f.nextID
	d.CreatedAt = time.Now()
	f.nextID++
	copied := *d
	f.dates[d.DateID] = &copied
	return nil
}

func (f *fakeDatesRepo) GetDateEntryByID(_ context.Context, dateID int64) (*DateProposal, error) {
	d, ok := f.dates[dateID]
	if !ok {
		return nil, nil
	}
	copied := *d
	return &copied, nil
}

// Mirrors the production query: only user1 and the date filter.
func (f *fakeDatesRepo) GetDateEntryByUsersAndDate(_ context.Context, user1, _, date string) (*DateProposal, error) {
	for _, d := range f.dates {
		if (d.UserFrom == user1 || d.UserTo == user1) && d.Date == date {
			copied := *d
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeDatesRepo) GetDateEntryByIDWithUserDetails(ctx context.Context, dateID int64) (*DateWithUsers, error) {
	d, err := f.GetDateEntryByID(ctx, dateID)
	if err != nil || d == nil {
		return nil, err
	}
	return &DateWithUsers{
		DateProposal:    *d,
		UserFromDetails: ParticipantDetails{UserID: d.UserFrom},
		UserToDetails:   ParticipantDetails{UserID: d.UserTo},
	}, nil
}

func (f *fakeDatesRepo) GetUpcomingDatesByUserID(_ context.Context, userID string) ([]UpcomingDate, error) {
	var out []UpcomingDate
	for _, d := range f.dates {
		if !d.IsParticipant(userID) || !d.IsOpen() {
			continue
		}
		out = append(out, UpcomingDate{
			DateID: d.DateID, Date: d.Date, Time: d.Time, Status: d.Status,
			UserFrom: d.UserFrom, UserTo: d.UserTo,
		})
	}
	return out, nil
}

func (f *fakeDatesRepo) UpdateDateEntry(_ context.Context, dateID int64, patch *ProposalPatch) (*DateProposal, error) {
	d, ok := f.dates[dateID]
	if !ok {
		return nil, nil
	}
	if patch.Date != nil {
		d.Date = *patch.Date
	}
	if patch.Time != nil {
		d.Time = patch.Time
	}
	if patch.LocationMetadata != nil {
		d.LocationMetadata = patch.LocationMetadata
	}
	if patch.Status != nil {
		d.Status = *patch.Status
	}
	if patch.UserFromApproved != nil {
		d.UserFromApproved = *patch.UserFromApproved
	}
	if patch.UserToApproved != nil {
		d.UserToApproved = *patch.UserToApproved
	}
	now := time.Now()
	d.UpdatedAt = &now
	copied := *d
	return &copied, nil
}

func (f *fakeDatesRepo) UpsertFeedback(_ context.Context, fb *DateFeedback) error {
	fb.CreatedAt = time.Now()
	copied := *fb
	f.feedback[fmt.Sprintf("%d|%s", fb.DateID, fb.UserID)] = &copied
	return nil
}

// rollbackTxManager restores the repo snapshot when the function fails,
// mimicking transactional rollback.
type rollbackTxManager struct {
	repo *fakeDatesRepo
}

func (m *rollbackTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := m.repo.snapshot()
	nextID := m.repo.nextID
	if err := fn(ctx); err != nil {
		m.repo.restore(snap)
		m.repo.nextID = nextID
		return err
	}
	return nil
}

// fakeAttractions answers mutual-match checks from a fixed set
type fakeAttractions struct {
	mutual map[string]bool // key pair|date, both orders stored
}

func newFakeAttractions() *fakeAttractions {
	return &fakeAttractions{mutual: make(map[string]bool)}
}

func (f *fakeAttractions) setMutual(u1, u2, date string) {
	f.mutual[u1+"|"+u2+"|"+date] = true
	f.mutual[u2+"|"+u1+"|"+date] = true
}

func (f *fakeAttractions) CheckMutualMatch(_ context.Context, user1, user2, date string) (bool, error) {
	return f.mutual[user1+"|"+user2+"|"+date], nil
}

// recordingNotifier captures dispatches and can fail on demand
type recordingNotifier struct {
	proposalErr error
	otherErr    error

	proposals   []ProposalDetails
	responses   []bool
	reschedules []int64
	cancels     []int64
}

func (n *recordingNotifier) SendDateProposalNotification(_ context.Context, _, _ string, d ProposalDetails) error {
	if n.proposalErr != nil {
		return n.proposalErr
	}
	n.proposals = append(n.proposals, d)
	return nil
}

func (n *recordingNotifier) SendDateResponseNotification(_ context.Context, _, _ string, accepted bool, _ int64) error {
	if n.otherErr != nil {
		return n.otherErr
	}
	n.responses = append(n.responses, accepted)
	return nil
}

func (n *recordingNotifier) SendDateRescheduledNotification(_ context.Context, _, _ string, dateID int64) error {
	if n.otherErr != nil {
		return n.otherErr
	}
	n.reschedules = append(n.reschedules, dateID)
	return nil
}

func (n *recordingNotifier) SendDateCancelledNotification(_ context.Context, _, _ string, dateID int64) error {
	if n.otherErr != nil {
		return n.otherErr
	}
	n.cancels = append(n.cancels, dateID)
	return nil
}

type fixture struct {
	repo        *fakeDatesRepo
	attractions *fakeAttractions
	notifier    *recordingNotifier
	svc         Service
}

func newFixture() *fixture {
	repo := newFakeDatesRepo()
	attractions := newFakeAttractions()
	notifier := &recordingNotifier{}
	svc := NewService(repo, &rollbackTxManager{repo: repo}, attractions, notifier)
	return &fixture{repo: repo, attractions: attractions, notifier: notifier, svc: svc}
}

func createRequest(userTo, date string) *CreateDateRequest {
	return &CreateDateRequest{
		UserTo:           userTo,
		Date:             date,
		Time:             "19:00",
		LocationMetadata: &LocationMetadata{Name: "Blue Bottle"},
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	de, ok := AsError(err)
	require.True(t, ok, "expected a domain error, got %v", err)
	assert.Equal(t, code, de.Code)
}

func TestCreateProposal_RequiresMutualMatch(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateFullDateProposal(context.Background(), alice, createRequest(bob, "2025-08-01"))
	assertCode(t, err, CodeNotAMatch)
	assert.Empty(t, f.repo.dates)

	// One-sided interest is not enough either
	f.attractions.mutual[alice+"|"+bob+"|2025-08-01"] = true
	_, err = f.svc.CreateFullDateProposal(context.Background(), bob, createRequest(alice, "2025-08-01"))
	assertCode(t, err, CodeNotAMatch)
}

func TestCreateProposal_Succeeds(t *testing.T) {
	f := newFixture()
	f.attractions.setMutual(alice, bob, "2025-08-01")

	created, err := f.svc.CreateFullDateProposal(context.Background(), alice, createRequest(bob, "2025-08-01"))
	require.NoError(t, err)

	assert.Equal(t, StatusPending, created.Status)
	assert.True(t, created.UserFromApproved)
	assert.False(t, created.UserToApproved)
	assert.Equal(t, alice, created.UserFrom)
	assert.Equal(t, bob, created.UserTo)

	require.Len(t, f.notifier.proposals, 1)
	assert.Equal(t, "Blue Bottle", f.notifier.proposals[0].Venue)
}

func TestCreateProposal_NotificationFailureRollsBack(t *testing.T) {
	f := newFixture()
	f.attractions.setMutual(alice, bob, "2025-08-01")
	f.notifier.proposalErr = errors.New("notification insert failed")

	_, err := f.svc.CreateFullDateProposal(context.Background(), alice, createRequest(bob, "2025-08-01"))
	require.Error(t, err)
	assert.Empty(t, f.repo.dates, "a failed proposal must leave no row behind")
}

func TestCreateProposal_ConflictWithOpenProposal(t *testing.T) {
	f := newFixture()
	f.attractions.setMutual(alice, bob, "2025-08-01")

	first, err := f.svc.CreateFullDateProposal(context.Background(), alice, createRequest(bob, "2025-08-01"))
	require.NoError(t, err)

	_, err = f.svc.CreateFullDateProposal(context.Background(), alice, createRequest(bob, "2025-08-01"))
	assertCode(t, err, CodeSchedulingConflict)
	de, _ := AsError(err)
	require.NotNil(t, de.Conflicting)
	assert.Equal(t, first.DateID, de.Conflicting.DateID)

	// A closed proposal no longer blocks the day
	_, err = f.svc.CancelProposal(context.Background(), first.DateID, alice)
	require.NoError(t, err)
	_, err = f.svc.CreateFullDateProposal(context.Background(), alice, createRequest(bob, "2025-08-01"))
	assert.NoError(t, err)
}

func TestCreateProposal_ConflictSeesThirdPartyProposal(t *testing.T) {
	f := newFixture()
	f.attractions.setMutual(alice, bob, "2025-08-01")
	f.attractions.setMutual(alice, carol, "2025-08-01")

	_, err := f.svc.CreateFullDateProposal(context.Background(), alice, createRequest(bob, "2025-08-01"))
	require.NoError(t, err)

	// The day-level check blocks alice's proposal to carol too
	_, err = f.svc.CreateFullDateProposal(context.Background(), alice, createRequest(carol, "2025-08-01"))
	assertCode(t, err, CodeSchedulingConflict)
}

func TestRespond_TurnTaking(t *testing.T) {
	f := newFixture()
	f.attractions.setMutual(alice, bob, "2025-08-01")
	created, err := f.svc.CreateFullDateProposal(context.Background(), alice, createRequest(bob, "2025-08-01"))
	require.NoError(t, err)

	// The proposer already approved; it is not their turn
	_, err = f.svc.RespondToProposal(context.Background(), created.DateID, alice, true)
	assertCode(t, err, CodeForbiddenTurn)

	// An outsider is not a participant
	_, err = f.svc.RespondToProposal(context.Background(), created.DateID, carol, true)
	assertCode(t, err, CodeForbidden)
}

func TestRespond_ApproveCompletesHandshake(t *testing.T) {
	f := newFixture()
	f.attractions.setMutual(alice, bob, "2025-08-01")
	created, err := f.svc.CreateFullDateProposal(context.Background(), alice, createRequest(bob, "2025-08-01"))
	require.NoError(t, err)

	updated, err := f.svc.RespondToProposal(context.Background(), created.DateID, bob, true)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, updated.Status)
	assert.True(t, updated.UserFromApproved)
	assert.True(t, updated.UserToApproved)

	require.Len(t, f.notifier.responses, 1)
	assert.True(t, f.notifier.responses[0])

	// No further responses once settled
	_, err = f.svc.RespondToProposal(context.Background(), created.DateID, alice, true)
	assertCode(t, err, CodeInvalidTransition)
}

func TestRespond_Decline(t *testing.T) {
	f := newFixture()
	f.attractions.setMutual(alice, bob, "2025-08-01")
	created, err := f.svc.CreateFullDateProposal(context.Background(), alice, createRequest(bob, "2025-08-01"))
	require.NoError(t, err)

	updated, err := f.svc.RespondToProposal(context.Background(), created.DateID, bob, false)
	require.NoError(t, err)
	assert.Equal(t, StatusDeclined, updated.Status)

	require.Len(t, f.notifier.responses, 1)
	assert.False(t, f.notifier.responses[0])
}

func TestRespond_NotificationFailureIsBestEffort(t *testing.T) {
	f := newFixture()
	f.attractions.setMutual(alice, bob, "2025-08-01")
	created, err := f.svc.CreateFullDateProposal(context.Background(), alice, createRequest(bob, "2025-08-01"))
	require.NoError(t, err)

	f.notifier.otherErr = errors.New("fcm down")
	updated, err := f.svc.RespondToProposal(context.Background(), created.DateID, bob, true)
	require.NoError(t, err, "a response must land even when its notification fails")
	assert.Equal(t, StatusApproved, updated.Status)
}

func TestReschedule_ResetsHandshake(t *testing.T) {
	f := newFixture()
	f.attractions.setMutual(alice, bob, "2025-08-01")
	created, err := f.svc.CreateFullDateProposal(context.Background(), alice, createRequest(bob, "2025-08-01"))
	require.NoError(t, err)

	_, err = f.svc.RespondToProposal(context.Background(), created.DateID, bob, true)
	require.NoError(t, err)

	// Bob moves the approved date; the handshake restarts with bob holding
	// the approved side.
	newTime := "20:30"
	updated, err := f.svc.RescheduleProposal(context.Background(), created.DateID, bob, &UpdateDateRequest{Time: &newTime})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, updated.Status)
	assert.True(t, updated.UserToApproved)
	assert.False(t, updated.UserFromApproved)
	require.NotNil(t, updated.Time)
	assert.Equal(t, "20:30", *updated.Time)
	assert.Len(t, f.notifier.reschedules, 1)

	// Now it is alice's turn
	final, err := f.svc.RespondToProposal(context.Background(), created.DateID, alice, true)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, final.Status)
}

func TestReschedule_RejectedWhenTerminal(t *testing.T) {
	f := newFixture()
	f.attractions.setMutual(alice, bob, "2025-08-01")
	created, err := f.svc.CreateFullDateProposal(context.Background(), alice, createRequest(bob, "2025-08-01"))
	require.NoError(t, err)

	_, err = f.svc.RespondToProposal(context.Background(), created.DateID, bob, false)
	require.NoError(t, err)

	newTime := "20:30"
	_, err = f.svc.RescheduleProposal(context.Background(), created.DateID, alice, &UpdateDateRequest{Time: &newTime})
	assertCode(t, err, CodeInvalidTransition)
}

func TestCancel_IsTerminal(t *testing.T) {
	f := newFixture()
	f.attractions.setMutual(alice, bob, "2025-08-01")
	created, err := f.svc.CreateFullDateProposal(context.Background(), alice, createRequest(bob, "2025-08-01"))
	require.NoError(t, err)

	updated, err := f.svc.CancelProposal(context.Background(), created.DateID, bob)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, updated.Status)
	assert.Len(t, f.notifier.cancels, 1)

	_, err = f.svc.CancelProposal(context.Background(), created.DateID, alice)
	assertCode(t, err, CodeInvalidTransition)

	_, err = f.svc.RespondToProposal(context.Background(), created.DateID, bob, true)
	assertCode(t, err, CodeInvalidTransition)
}

func TestAddFeedback_UpsertsAndGates(t *testing.T) {
	f := newFixture()
	f.attractions.setMutual(alice, bob, "2025-08-01")
	created, err := f.svc.CreateFullDateProposal(context.Background(), alice, createRequest(bob, "2025-08-01"))
	require.NoError(t, err)

	_, err = f.svc.AddFeedback(context.Background(), created.DateID, carol, &FeedbackRequest{Outcome: OutcomeAmazing})
	assertCode(t, err, CodeForbidden)

	fb, err := f.svc.AddFeedback(context.Background(), created.DateID, alice, &FeedbackRequest{Outcome: OutcomeAmazing})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAmazing, fb.Outcome)

	// A second submission replaces the first
	notes := "rain check"
	fb, err = f.svc.AddFeedback(context.Background(), created.DateID, alice, &FeedbackRequest{Outcome: OutcomeOther, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, OutcomeOther, fb.Outcome)

	stored := f.repo.feedback[fmt.Sprintf("%d|%s", created.DateID, alice)]
	require.NotNil(t, stored)
	assert.Equal(t, OutcomeOther, stored.Outcome)
}

func TestGetDateWithUserDetails_HidesFromOutsiders(t *testing.T) {
	f := newFixture()
	f.attractions.setMutual(alice, bob, "2025-08-01")
	created, err := f.svc.CreateFullDateProposal(context.Background(), alice, createRequest(bob, "2025-08-01"))
	require.NoError(t, err)

	_, err = f.svc.GetDateWithUserDetails(context.Background(), created.DateID, carol)
	assertCode(t, err, CodeNotFound)

	d, err := f.svc.GetDateWithUserDetails(context.Background(), created.DateID, bob)
	require.NoError(t, err)
	assert.Equal(t, created.DateID, d.DateID)
}

func TestProposalLifecycle_EndToEnd(t *testing.T) {
	f := newFixture()
	f.attractions.setMutual(alice, bob, "2025-08-01")

	created, err := f.svc.CreateFullDateProposal(context.Background(), alice, createRequest(bob, "2025-08-01"))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, created.Status)

	approved, err := f.svc.RespondToProposal(context.Background(), created.DateID, bob, true)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)

	newDate := "2025-08-01"
	newTime := "21:00"
	rescheduled, err := f.svc.RescheduleProposal(context.Background(), created.DateID, alice, &UpdateDateRequest{
		Date: &newDate, Time: &newTime,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, rescheduled.Status)
	assert.True(t, rescheduled.UserFromApproved)
	assert.False(t, rescheduled.UserToApproved)

	final, err := f.svc.RespondToProposal(context.Background(), created.DateID, bob, true)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, final.Status)

	upcoming, err := f.svc.GetUpcomingDates(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, created.DateID, upcoming[0].DateID)
}
