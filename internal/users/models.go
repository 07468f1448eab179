// internal/users/models.go
// User account, token balance and block models

package users

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Stickers is an opaque JSON blob of profile stickers chosen by the user.
type Stickers map[string]interface{}

// Value implements driver.Valuer for JSONB storage
func (s Stickers) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB retrieval
func (s *Stickers) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("stickers: expected []byte from database")
	}
	return json.Unmarshal(b, s)
}

// User represents a registered account
type User struct {
	UserID              string     `db:"user_id" json:"userId"`
	Email               string     `db:"email" json:"email"`
	FirstName           string     `db:"first_name" json:"firstName"`
	LastName            string     `db:"last_name" json:"lastName"`
	ProfilePictureURL   *string    `db:"profile_picture_url" json:"profilePictureUrl,omitempty"`
	VideoURL            *string    `db:"video_url" json:"videoUrl,omitempty"`
	Zipcode             *string    `db:"zipcode" json:"zipcode,omitempty"`
	Stickers            Stickers   `db:"stickers" json:"stickers,omitempty"`
	Tokens              int        `db:"tokens" json:"tokens"`
	EnableNotifications bool       `db:"enable_notifications" json:"enableNotifications"`
	IsProfileComplete   bool       `db:"is_profile_complete" json:"isProfileComplete"`
	FCMToken            *string    `db:"fcm_token" json:"-"`
	ReferralSource      *string    `db:"referral_source" json:"referralSource,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt           *time.Time `db:"updated_at" json:"updatedAt,omitempty"`
}

// PublicProfile is the subset of User exposed to other users
type PublicProfile struct {
	UserID            string   `db:"user_id" json:"userId"`
	FirstName         string   `db:"first_name" json:"firstName"`
	LastName          string   `db:"last_name" json:"lastName"`
	ProfilePictureURL *string  `db:"profile_picture_url" json:"profilePictureUrl,omitempty"`
	Zipcode           *string  `db:"zipcode" json:"zipcode,omitempty"`
	Stickers          Stickers `db:"stickers" json:"stickers,omitempty"`
}

// PublicProfile returns the externally visible view of the user
func (u *User) PublicProfile() PublicProfile {
	return PublicProfile{
		UserID:            u.UserID,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		ProfilePictureURL: u.ProfilePictureURL,
		Zipcode:           u.Zipcode,
		Stickers:          u.Stickers,
	}
}

// UserPatch carries a sparse profile update; nil fields are left untouched
type UserPatch struct {
	FirstName           *string   `json:"firstName,omitempty"`
	LastName            *string   `json:"lastName,omitempty"`
	ProfilePictureURL   *string   `json:"profilePictureUrl,omitempty"`
	VideoURL            *string   `json:"videoUrl,omitempty"`
	Zipcode             *string   `json:"zipcode,omitempty"`
	Stickers            *Stickers `json:"stickers,omitempty"`
	EnableNotifications *bool     `json:"enableNotifications,omitempty"`
	IsProfileComplete   *bool     `json:"isProfileComplete,omitempty"`
	ReferralSource      *string   `json:"referralSource,omitempty"`
}

// IsEmpty reports whether the patch contains no changes
func (p *UserPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.ProfilePictureURL == nil &&
		p.VideoURL == nil && p.Zipcode == nil && p.Stickers == nil &&
		p.EnableNotifications == nil && p.IsProfileComplete == nil &&
		p.ReferralSource == nil
}

// CreateUserRequest is the payload for account creation
type CreateUserRequest struct {
	UserID    string `json:"userId" validate:"required,uuid"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Zipcode   string `json:"zipcode,omitempty" validate:"omitempty,len=5,numeric"`
}

// RegisterPushTokenRequest is the payload for FCM token registration
type RegisterPushTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// BlockRequest is the payload for blocking a user
type BlockRequest struct {
	BlockedUserID string `json:"blockedUserId" validate:"required,uuid"`
}
