// internal/dates/models.go
// Date proposal, feedback and read models

package dates

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Proposal statuses
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusDeclined  = "declined"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Feedback outcomes
const (
	OutcomeAmazing         = "amazing"
	OutcomeNoShowCancelled = "no_show_cancelled"
	OutcomeOther           = "other"
)

// LocationMetadata is the opaque venue blob attached to a proposal
type LocationMetadata struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	PlaceID string `json:"placeId,omitempty"`
}

// Value implements driver.Valuer for JSONB storage
func (l LocationMetadata) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB retrieval
func (l *LocationMetadata) Scan(value interface{}) error {
	if value == nil {
		*l = LocationMetadata{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("location metadata: expected []byte from database")
	}
	return json.Unmarshal(b, l)
}

// DateProposal is a row of the dates table
type DateProposal struct {
	DateID           int64             `db:"date_id" json:"dateId"`
	Date             string            `db:"date" json:"date"` // YYYY-MM-DD
	Time             *string           `db:"time" json:"time,omitempty"`
	UserFrom         string            `db:"user_from" json:"userFrom"`
	UserTo           string            `db:"user_to" json:"userTo"`
	UserFromApproved bool              `db:"user_from_approved" json:"userFromApproved"`
	UserToApproved   bool              `db:"user_to_approved" json:"userToApproved"`
	LocationMetadata *LocationMetadata `db:"location_metadata" json:"locationMetadata,omitempty"`
	Status           string            `db:"status" json:"status"`
	CreatedAt        time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt        *time.Time        `db:"updated_at" json:"updatedAt,omitempty"`
}

// IsParticipant reports whether the user is a side of the proposal
func (d *DateProposal) IsParticipant(userID string) bool {
	return d.UserFrom == userID || d.UserTo == userID
}

// OtherParticipant returns the counterpart of the given user
func (d *DateProposal) OtherParticipant(userID string) string {
	if d.UserFrom == userID {
		return d.UserTo
	}
	return d.UserFrom
}

// IsOpen reports whether the proposal still blocks the day for the pair
func (d *DateProposal) IsOpen() bool {
	return d.Status == StatusPending || d.Status == StatusApproved
}

// DateFeedback is a participant's private feedback on a date
type DateFeedback struct {
	DateID    int64     `db:"date_id" json:"dateId"`
	UserID    string    `db:"user_id" json:"userId"`
	Outcome   string    `db:"outcome" json:"outcome"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ParticipantDetails is the slim profile embedded in date read models
type ParticipantDetails struct {
	UserID            string  `json:"userId"`
	FirstName         string  `json:"firstName"`
	ProfilePictureURL *string `json:"profilePictureUrl,omitempty"`
	VideoURL          *string `json:"videoUrl,omitempty"`
}

// Value implements driver.Valuer so details can round-trip through json_build_object
func (p ParticipantDetails) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for json_build_object columns
func (p *ParticipantDetails) Scan(value interface{}) error {
	if value == nil {
		*p = ParticipantDetails{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("participant details: expected []byte from database")
	}
	return json.Unmarshal(b, p)
}

// DateWithUsers is a proposal joined with both participants' details
type DateWithUsers struct {
	DateProposal
	UserFromDetails ParticipantDetails `db:"user_from_details" json:"userFromDetails"`
	UserToDetails   ParticipantDetails `db:"user_to_details" json:"userToDetails"`
}

// UpcomingDate is a proposal row shaped for the caller's upcoming list
type UpcomingDate struct {
	DateID           int64              `db:"date_id" json:"dateId"`
	Date             string             `db:"date" json:"date"`
	Time             *string            `db:"time" json:"time,omitempty"`
	Status           string             `db:"status" json:"status"`
	UpdatedAt        *time.Time         `db:"updated_at" json:"updatedAt,omitempty"`
	LocationMetadata *LocationMetadata  `db:"location_metadata" json:"locationMetadata,omitempty"`
	UserFrom         string             `db:"user_from" json:"userFrom"`
	UserTo           string             `db:"user_to" json:"userTo"`
	MyOutcome        *string            `db:"my_outcome" json:"myOutcome,omitempty"`
	MyNotes          *string            `db:"my_notes" json:"myNotes,omitempty"`
	OtherUser        ParticipantDetails `db:"other_user" json:"otherUser"`
}

// CreateDateRequest is the proposal creation payload
type CreateDateRequest struct {
	UserTo           string            `json:"userTo" validate:"required,uuid"`
	Date             string            `json:"date" validate:"required,datetime=2006-01-02"`
	Time             string            `json:"time" validate:"required"`
	LocationMetadata *LocationMetadata `json:"locationMetadata,omitempty"`
}

// UpdateDateRequest reschedules or responds to a proposal
type UpdateDateRequest struct {
	Status           *string           `json:"status,omitempty" validate:"omitempty,oneof=approved declined"`
	Date             *string           `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Time             *string           `json:"time,omitempty"`
	LocationMetadata *LocationMetadata `json:"locationMetadata,omitempty"`
}

// FeedbackRequest is the payload for date feedback
type FeedbackRequest struct {
	Outcome string  `json:"outcome" validate:"required,oneof=amazing no_show_cancelled other"`
	Notes   *string `json:"notes,omitempty"`
}

// ProposalPatch is a sparse update of a dates row; nil fields are untouched
type ProposalPatch struct {
	Date             *string
	Time             *string
	LocationMetadata *LocationMetadata
	Status           *string
	UserFromApproved *bool
	UserToApproved   *bool
}

// IsEmpty reports whether the patch contains no changes
func (p *ProposalPatch) IsEmpty() bool {
	return p.Date == nil && p.Time == nil && p.LocationMetadata == nil &&
		p.Status == nil && p.UserFromApproved == nil && p.UserToApproved == nil
}
