// internal/calendar/models.go
// Calendar-day video stories

package calendar

import "time"

// Processing statuses for a story video
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusComplete   = "complete"
	StatusFailed     = "failed"
)

// CalendarDay is a user's story slot for one calendar day
type CalendarDay struct {
	CalendarID       int64      `db:"calendar_id" json:"calendarId"`
	UserID           string     `db:"user_id" json:"userId"`
	Date             string     `db:"date" json:"date"` // YYYY-MM-DD
	UserVideoURL     *string    `db:"user_video_url" json:"userVideoUrl,omitempty"`
	VideoURI         *string    `db:"video_uri" json:"videoUri,omitempty"`
	ProcessingStatus string     `db:"processing_status" json:"processingStatus"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        *time.Time `db:"updated_at" json:"updatedAt,omitempty"`
}

// Story is a calendar day joined with its owner, shaped for the feed.
// IsBlocked flags stories from users the viewer has blocked; the client
// decides how to render them.
type Story struct {
	CalendarID        int64   `db:"calendar_id" json:"calendarId"`
	UserID            string  `db:"user_id" json:"userId"`
	Date              string  `db:"date" json:"date"`
	UserVideoURL      *string `db:"user_video_url" json:"userVideoUrl,omitempty"`
	VideoURI          *string `db:"video_uri" json:"videoUri,omitempty"`
	ProcessingStatus  string  `db:"processing_status" json:"processingStatus"`
	UserName          string  `db:"user_name" json:"userName"`
	ProfilePictureURL *string `db:"profile_picture_url" json:"profilePictureUrl,omitempty"`
	Zipcode           *string `db:"zipcode" json:"zipcode,omitempty"`
	IsBlocked         bool    `db:"is_blocked" json:"isBlocked"`
	PlayableURL       *string `db:"-" json:"playableUrl,omitempty"`
}

// CalendarDayPatch is a sparse update; nil fields are untouched
type CalendarDayPatch struct {
	UserVideoURL     *string
	VideoURI         *string
	ProcessingStatus *string
}

// IsEmpty reports whether the patch contains no changes
func (p *CalendarDayPatch) IsEmpty() bool {
	return p.UserVideoURL == nil && p.VideoURI == nil && p.ProcessingStatus == nil
}
