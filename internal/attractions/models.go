// internal/attractions/models.go

package attractions

import "time"

// Attraction is one user's reaction to another user's story for a day.
// result marks positive interest; the ratings break down why.
type Attraction struct {
	AttractionID     int64      `db:"attraction_id" json:"attractionId"`
	UserFrom         string     `db:"user_from" json:"userFrom"`
	UserTo           string     `db:"user_to" json:"userTo"`
	Date             string     `db:"date" json:"date"` // YYYY-MM-DD
	RomanticRating   int        `db:"romantic_rating" json:"romanticRating"`
	SexualRating     int        `db:"sexual_rating" json:"sexualRating"`
	FriendshipRating int        `db:"friendship_rating" json:"friendshipRating"`
	Result           bool       `db:"result" json:"result"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        *time.Time `db:"updated_at" json:"updatedAt,omitempty"`
}

// TotalScore sums the three ratings; the mutual-match notification goes to
// the side with the lower total.
func (a *Attraction) TotalScore() int {
	return a.RomanticRating + a.SexualRating + a.FriendshipRating
}

// ExpressAttractionRequest is the payload for expressing attraction
type ExpressAttractionRequest struct {
	UserTo           string `json:"userTo" validate:"required,uuid"`
	Date             string `json:"date" validate:"required,datetime=2006-01-02"`
	RomanticRating   int    `json:"romanticRating" validate:"min=0,max=10"`
	SexualRating     int    `json:"sexualRating" validate:"min=0,max=10"`
	FriendshipRating int    `json:"friendshipRating" validate:"min=0,max=10"`
	Result           bool   `json:"result"`
}

// ExpressAttractionResult is returned to the caller; Matched reports whether
// this expression completed a mutual match.
type ExpressAttractionResult struct {
	Attraction *Attraction `json:"attraction"`
	Matched    bool        `json:"matched"`
	Tokens     int         `json:"tokens"`
}
