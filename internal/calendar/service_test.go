package calendar

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daymatch/daymatch-backend/internal/users"
)

type fakeCalendarRepo struct {
	nextID int64
	days   map[int64]*CalendarDay
}

func newFakeCalendarRepo() *fakeCalendarRepo {
	return &fakeCalendarRepo{nextID: 1, days: make(map[int64]*CalendarDay)}
}

func (f *fakeCalendarRepo) CreateCalendarDay(_ context.Context, cd *CalendarDay) error {
	for _, existing := range f.days {
		if existing.UserID == cd.UserID && existing.Date == cd.Date {
			return ErrDayExists
		}
	}
	cd.CalendarID = f.nextID
	cd.CreatedAt = time.Now()
	f.nextID++
	copied := *cd
	f.days[cd.CalendarID] = &copied
	return nil
}

func (f *fakeCalendarRepo) GetCalendarDayByID(_ context.Context, id int64) (*CalendarDay, error) {
	cd, ok := f.days[id]
	if !ok {
		return nil, nil
	}
	copied := *cd
	return &copied, nil
}

func (f *fakeCalendarRepo) GetCalendarDaysByUserID(_ context.Context, userID string) ([]CalendarDay, error) {
	var out []CalendarDay
	for _, cd := range f.days {
		if cd.UserID == userID {
			out = append(out, *cd)
		}
	}
	return out, nil
}

func (f *fakeCalendarRepo) GetCalendarDayByUserIDAndDate(_ context.Context, userID, date string) (*CalendarDay, error) {
	for _, cd := range f.days {
		if cd.UserID == userID && cd.Date == date {
			copied := *cd
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeCalendarRepo) UpdateCalendarDay(_ context.Context, id int64, patch *CalendarDayPatch) (*CalendarDay, error) {
	cd, ok := f.days[id]
	if !ok {
		return nil, nil
	}
	if patch.UserVideoURL != nil {
		cd.UserVideoURL = patch.UserVideoURL
	}
	if patch.VideoURI != nil {
		cd.VideoURI = patch.VideoURI
	}
	if patch.ProcessingStatus != nil {
		cd.ProcessingStatus = *patch.ProcessingStatus
	}
	copied := *cd
	return &copied, nil
}

func (f *fakeCalendarRepo) DeleteCalendarDay(_ context.Context, id int64) error {
	delete(f.days, id)
	return nil
}

func (f *fakeCalendarRepo) FindStoriesByDate(_ context.Context, date, viewerID string) ([]Story, error) {
	var out []Story
	for _, cd := range f.days {
		if cd.Date == date && cd.UserID != viewerID && cd.ProcessingStatus == StatusComplete && cd.VideoURI != nil {
			out = append(out, Story{
				CalendarID: cd.CalendarID, UserID: cd.UserID, Date: cd.Date,
				VideoURI: cd.VideoURI, ProcessingStatus: cd.ProcessingStatus,
			})
		}
	}
	return out, nil
}

func (f *fakeCalendarRepo) FindStoriesByDateAndZipcodes(ctx context.Context, date string, _ []string, viewerID, _ string) ([]Story, error) {
	return f.FindStoriesByDate(ctx, date, viewerID)
}

type fakeViewerDirectory struct {
	users map[string]*users.User
}

func (f *fakeViewerDirectory) GetUserByID(_ context.Context, id string) (*users.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return u, nil
}

func newCalendarFixture() (*fakeCalendarRepo, *MockVideoService, Service) {
	repo := newFakeCalendarRepo()
	video := &MockVideoService{BaseURL: "https://cdn.example.com"}
	zip := "94107"
	dir := &fakeViewerDirectory{users: map[string]*users.User{
		"viewer": {UserID: "viewer", Zipcode: &zip},
	}}
	svc := NewService(repo, video, &StaticZipcodeService{}, dir)
	return repo, video, svc
}

func TestUploadStory_CreatesThenReplaces(t *testing.T) {
	repo, video, svc := newCalendarFixture()

	cd, err := svc.UploadStory(context.Background(), "owner", "2025-08-01", strings.NewReader("video-bytes"), "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, cd.ProcessingStatus)
	require.NotNil(t, cd.VideoURI)
	assert.Equal(t, 1, video.Uploads)

	// A second upload for the same day replaces the video, not the row
	again, err := svc.UploadStory(context.Background(), "owner", "2025-08-01", strings.NewReader("new-bytes"), "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, cd.CalendarID, again.CalendarID)
	assert.NotEqual(t, *cd.VideoURI, *again.VideoURI)
	assert.Len(t, repo.days, 1)
}

func TestUploadStory_UploadFailureCreatesNothing(t *testing.T) {
	repo, video, svc := newCalendarFixture()
	video.UploadErr = errors.New("s3 unavailable")

	_, err := svc.UploadStory(context.Background(), "owner", "2025-08-01", strings.NewReader("x"), "video/mp4")
	require.Error(t, err)
	assert.Empty(t, repo.days)
}

func TestGetStoriesForDate_ResolvesURLs(t *testing.T) {
	_, _, svc := newCalendarFixture()

	_, err := svc.UploadStory(context.Background(), "owner", "2025-08-01", strings.NewReader("v"), "video/mp4")
	require.NoError(t, err)

	stories, err := svc.GetStoriesForDate(context.Background(), "2025-08-01", "viewer", false)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	require.NotNil(t, stories[0].PlayableURL)
	assert.True(t, strings.HasPrefix(*stories[0].PlayableURL, "https://cdn.example.com/"))
}

func TestGetStoriesForDate_URLFailureKeepsStory(t *testing.T) {
	_, video, svc := newCalendarFixture()

	_, err := svc.UploadStory(context.Background(), "owner", "2025-08-01", strings.NewReader("v"), "video/mp4")
	require.NoError(t, err)

	video.URLErr = errors.New("presign failed")
	stories, err := svc.GetStoriesForDate(context.Background(), "2025-08-01", "viewer", false)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Nil(t, stories[0].PlayableURL)
}

func TestGetStoriesForDate_ExcludesOwnStory(t *testing.T) {
	_, _, svc := newCalendarFixture()

	_, err := svc.UploadStory(context.Background(), "viewer", "2025-08-01", strings.NewReader("v"), "video/mp4")
	require.NoError(t, err)

	stories, err := svc.GetStoriesForDate(context.Background(), "2025-08-01", "viewer", false)
	require.NoError(t, err)
	assert.Empty(t, stories)
}

func TestDeleteCalendarDay_OwnerGated(t *testing.T) {
	_, _, svc := newCalendarFixture()

	cd, err := svc.UploadStory(context.Background(), "owner", "2025-08-01", strings.NewReader("v"), "video/mp4")
	require.NoError(t, err)

	err = svc.DeleteCalendarDay(context.Background(), cd.CalendarID, "someone-else")
	assert.ErrorIs(t, err, ErrNotOwner)

	err = svc.DeleteCalendarDay(context.Background(), cd.CalendarID, "owner")
	assert.NoError(t, err)

	err = svc.DeleteCalendarDay(context.Background(), cd.CalendarID, "owner")
	assert.ErrorIs(t, err, ErrDayNotFound)
}

func TestStaticZipcodeFallback(t *testing.T) {
	svc := &StaticZipcodeService{Nearby: map[string][]string{"94107": {"94107", "94110"}}}

	zips, err := svc.FindNearbyZipcodes(context.Background(), "94107")
	require.NoError(t, err)
	assert.Equal(t, []string{"94107", "94110"}, zips)

	// Unknown zipcodes fall back to themselves
	zips, err = svc.FindNearbyZipcodes(context.Background(), "00000")
	require.NoError(t, err)
	assert.Equal(t, []string{"00000"}, zips)
}
