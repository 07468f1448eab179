package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daymatch/daymatch-backend/internal/users"
)

type fakeRepo struct {
	created   []*Notification
	createErr error
}

func (f *fakeRepo) CreateNotification(_ context.Context, n *Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	if n.Status == "" {
		n.Status = StatusUnread
	}
	n.NotificationID = int64(len(f.created) + 1)
	f.created = append(f.created, n)
	return nil
}

func (f *fakeRepo) GetUserNotifications(_ context.Context, userID string, _, _ int) ([]Notification, error) {
	var out []Notification
	for _, n := range f.created {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (f *fakeRepo) MarkAllAsRead(_ context.Context, userID string) (int64, error) {
	var count int64
	for _, n := range f.created {
		if n.UserID == userID && n.Status == StatusUnread {
			n.Status = StatusRead
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) UnreadCount(_ context.Context, userID string) (int, error) {
	count := 0
	for _, n := range f.created {
		if n.UserID == userID && n.Status == StatusUnread {
			count++
		}
	}
	return count, nil
}

type fakeDirectory struct {
	users map[string]*users.User
}

func (f *fakeDirectory) GetUserByID(_ context.Context, userID string) (*users.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return u, nil
}

type failingPush struct{}

func (failingPush) SendPush(context.Context, *PushNotification) error {
	return errors.New("fcm unavailable")
}

func token(s string) *string { return &s }

func twoUsers() *fakeDirectory {
	return &fakeDirectory{users: map[string]*users.User{
		"sender": {UserID: "sender", FirstName: "Rory", EnableNotifications: true, FCMToken: token("sender-device")},
		"receiver": {UserID: "receiver", FirstName: "Amy", EnableNotifications: true, FCMToken: token("receiver-device")},
	}}
}

func TestSendDateProposalNotification_WritesRowAndPushes(t *testing.T) {
	repo := &fakeRepo{}
	push := NewMockPushService()
	svc := NewService(repo, twoUsers(), push, nil)

	err := svc.SendDateProposalNotification(context.Background(), "sender", "receiver", DateProposalDetails{
		DateID: 42, Date: "2025-08-01", Time: "19:00", Venue: "Blue Bottle",
	})
	require.NoError(t, err)

	require.Len(t, repo.created, 1)
	n := repo.created[0]
	assert.Equal(t, "receiver", n.UserID)
	assert.Equal(t, TypeDateProposal, n.Type)
	assert.Equal(t, StatusUnread, n.Status)
	assert.Equal(t, "Rory proposed a date at Blue Bottle. Tap to see details!", n.Message)
	require.NotNil(t, n.RelatedEntityID)
	assert.Equal(t, "42", *n.RelatedEntityID)

	require.Len(t, push.Sent, 1)
	assert.Equal(t, "receiver-device", push.Sent[0].Token)
	assert.Equal(t, "42", push.Sent[0].Data["dateId"])
}

func TestSendDateProposalNotification_RowWriteErrorPropagates(t *testing.T) {
	repo := &fakeRepo{createErr: errors.New("insert failed")}
	svc := NewService(repo, twoUsers(), NewMockPushService(), nil)

	err := svc.SendDateProposalNotification(context.Background(), "sender", "receiver", DateProposalDetails{DateID: 1})
	assert.Error(t, err)
}

func TestTryPush_SkipsWhenNoToken(t *testing.T) {
	repo := &fakeRepo{}
	dir := twoUsers()
	dir.users["receiver"].FCMToken = nil
	push := NewMockPushService()
	svc := NewService(repo, dir, push, nil)

	err := svc.SendDateCancelledNotification(context.Background(), "sender", "receiver", 7)
	require.NoError(t, err)
	assert.Len(t, repo.created, 1)
	assert.Empty(t, push.Sent)
}

func TestTryPush_SkipsWhenNotificationsDisabled(t *testing.T) {
	repo := &fakeRepo{}
	dir := twoUsers()
	dir.users["receiver"].EnableNotifications = false
	push := NewMockPushService()
	svc := NewService(repo, dir, push, nil)

	err := svc.SendDateRescheduledNotification(context.Background(), "sender", "receiver", 7)
	require.NoError(t, err)
	assert.Len(t, repo.created, 1)
	assert.Empty(t, push.Sent)
}

func TestPushFailureDoesNotPropagate(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, twoUsers(), failingPush{}, nil)

	err := svc.SendDateResponseNotification(context.Background(), "sender", "receiver", true, 9)
	require.NoError(t, err)
	assert.Len(t, repo.created, 1)
	assert.Equal(t, TypeDateApproved, repo.created[0].Type)
}

func TestFriendlyDate(t *testing.T) {
	assert.Equal(t, "August 1st", friendlyDate("2025-08-01"))
	assert.Equal(t, "August 2nd", friendlyDate("2025-08-02"))
	assert.Equal(t, "August 3rd", friendlyDate("2025-08-03"))
	assert.Equal(t, "August 11th", friendlyDate("2025-08-11"))
	assert.Equal(t, "August 21st", friendlyDate("2025-08-21"))
	assert.Equal(t, "not-a-date", friendlyDate("not-a-date"))
}

func TestMarkAllAsRead_UnreadCount(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, twoUsers(), NewMockPushService(), nil)

	require.NoError(t, svc.SendDateCancelledNotification(context.Background(), "sender", "receiver", 1))
	require.NoError(t, svc.SendDateCancelledNotification(context.Background(), "sender", "receiver", 2))

	count, err := svc.UnreadCount(context.Background(), "receiver")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	marked, err := svc.MarkAllAsRead(context.Background(), "receiver")
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	count, err = svc.UnreadCount(context.Background(), "receiver")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
