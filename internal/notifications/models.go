// internal/notifications/models.go

package notifications

import "time"

// Notification types
const (
	TypeAttractionProposal = "ATTRACTION_PROPOSAL"
	TypeMatchProposal      = "MATCH_PROPOSAL"
	TypeDateProposal       = "DATE_PROPOSAL"
	TypeDateApproved       = "DATE_APPROVED"
	TypeDateDeclined       = "DATE_DECLINED"
	TypeDateRescheduled    = "DATE_RESCHEDULED"
	TypeDateCancelled      = "DATE_CANCELLED"
)

// Notification statuses
const (
	StatusUnread = "unread"
	StatusRead   = "read"
)

// Notification is an append-only in-app notification row
type Notification struct {
	NotificationID  int64     `db:"notification_id" json:"notificationId"`
	UserID          string    `db:"user_id" json:"userId"`
	Message         string    `db:"message" json:"message"`
	Type            string    `db:"type" json:"type"`
	Status          string    `db:"status" json:"status"`
	RelatedEntityID *string   `db:"related_entity_id" json:"relatedEntityId,omitempty"`
	ProposingUserID *string   `db:"proposing_user_id" json:"proposingUserId,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// PushNotification is the payload handed to the push transport
type PushNotification struct {
	Token    string
	Title    string
	Body     string
	ImageURL string
	Data     map[string]string
}

// DateProposalDetails carries the bits of a proposal a notification mentions
type DateProposalDetails struct {
	DateID int64
	Date   string
	Time   string
	Venue  string
}
