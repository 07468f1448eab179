// internal/calendar/service.go
// Story feed and calendar-day lifecycle

package calendar

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/daymatch/daymatch-backend/internal/users"
)

var (
	// ErrNotOwner rejects operations on another user's calendar day
	ErrNotOwner = errors.New("not the owner of this calendar day")
	// ErrDayNotFound is returned when the calendar day does not exist
	ErrDayNotFound = errors.New("calendar day not found")
)

// UserDirectory resolves the viewer's profile (for their zipcode)
type UserDirectory interface {
	GetUserByID(ctx context.Context, userID string) (*users.User, error)
}

// Service defines calendar operations
type Service interface {
	UploadStory(ctx context.Context, userID, date string, video io.Reader, contentType string) (*CalendarDay, error)
	GetMyCalendarDays(ctx context.Context, userID string) ([]CalendarDay, error)
	GetCalendarDay(ctx context.Context, calendarID int64) (*CalendarDay, error)
	DeleteCalendarDay(ctx context.Context, calendarID int64, userID string) error

	// GetStoriesForDate returns the day's feed. With nearby set, the feed is
	// narrowed to the viewer's zipcode radius when the viewer has a zipcode.
	GetStoriesForDate(ctx context.Context, date, viewerID string, nearby bool) ([]Story, error)
}

type service struct {
	repo     Repository
	video    VideoService
	zipcodes ZipcodeService
	dir      UserDirectory
}

// NewService creates a new calendar service
func NewService(repo Repository, video VideoService, zipcodes ZipcodeService, dir UserDirectory) Service {
	return &service{repo: repo, video: video, zipcodes: zipcodes, dir: dir}
}

// UploadStory stores the video and records the day. A user gets one story
// per calendar day; re-uploading replaces the video on the existing row.
func (s *service) UploadStory(ctx context.Context, userID, date string, video io.Reader, contentType string) (*CalendarDay, error) {
	uri, err := s.video.Upload(ctx, video, contentType)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetCalendarDayByUserIDAndDate(ctx, userID, date)
	if err != nil {
		return nil, err
	}

	complete := StatusComplete
	if existing != nil {
		updated, err := s.repo.UpdateCalendarDay(ctx, existing.CalendarID, &CalendarDayPatch{
			VideoURI:         &uri,
			ProcessingStatus: &complete,
		})
		if err != nil {
			return nil, err
		}
		if updated == nil {
			return nil, ErrDayNotFound
		}
		return updated, nil
	}

	cd := &CalendarDay{
		UserID:           userID,
		Date:             date,
		VideoURI:         &uri,
		ProcessingStatus: complete,
	}
	if err := s.repo.CreateCalendarDay(ctx, cd); err != nil {
		return nil, err
	}
	log.Printf("[Calendar] Story created for %s on %s", userID, date)
	return cd, nil
}

func (s *service) GetMyCalendarDays(ctx context.Context, userID string) ([]CalendarDay, error) {
	return s.repo.GetCalendarDaysByUserID(ctx, userID)
}

func (s *service) GetCalendarDay(ctx context.Context, calendarID int64) (*CalendarDay, error) {
	cd, err := s.repo.GetCalendarDayByID(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	if cd == nil {
		return nil, ErrDayNotFound
	}
	return cd, nil
}

func (s *service) DeleteCalendarDay(ctx context.Context, calendarID int64, userID string) error {
	cd, err := s.repo.GetCalendarDayByID(ctx, calendarID)
	if err != nil {
		return err
	}
	if cd == nil {
		return ErrDayNotFound
	}
	if cd.UserID != userID {
		return ErrNotOwner
	}
	return s.repo.DeleteCalendarDay(ctx, calendarID)
}

func (s *service) GetStoriesForDate(ctx context.Context, date, viewerID string, nearby bool) ([]Story, error) {
	var (
		stories []Story
		err     error
	)

	viewerZip := ""
	if nearby {
		viewer, dirErr := s.dir.GetUserByID(ctx, viewerID)
		if dirErr == nil && viewer.Zipcode != nil {
			viewerZip = *viewer.Zipcode
		}
	}

	if viewerZip != "" {
		zips, zipErr := s.zipcodes.FindNearbyZipcodes(ctx, viewerZip)
		if zipErr != nil || len(zips) == 0 {
			zips = []string{viewerZip}
		}
		stories, err = s.repo.FindStoriesByDateAndZipcodes(ctx, date, zips, viewerID, viewerZip)
	} else {
		stories, err = s.repo.FindStoriesByDate(ctx, date, viewerID)
	}
	if err != nil {
		return nil, err
	}

	// Resolve a fresh playable URL per story; a resolution failure leaves
	// the URL empty rather than dropping the story.
	for i := range stories {
		story := &stories[i]
		if story.ProcessingStatus != StatusComplete || story.VideoURI == nil {
			continue
		}
		url, urlErr := s.video.ResolvePlayableURL(ctx, *story.VideoURI)
		if urlErr != nil {
			log.Printf("[Calendar] URL resolution for %s failed: %v", *story.VideoURI, urlErr)
			continue
		}
		story.PlayableURL = &url
	}

	return stories, nil
}
