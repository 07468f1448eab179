// internal/notifications/service.go
// Notification dispatcher: writes the in-app row, then attempts the push.
//
// The in-app write for a date proposal runs inside the caller's transaction
// and its failure propagates; every other dispatch is best-effort. Push
// delivery is always best-effort.

package notifications

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/daymatch/daymatch-backend/internal/users"
)

const unreadCacheTTL = 5 * time.Minute

// UserDirectory looks up recipients and senders
type UserDirectory interface {
	GetUserByID(ctx context.Context, userID string) (*users.User, error)
}

// Service defines notification operations
type Service interface {
	GetUserNotifications(ctx context.Context, userID string, limit, offset int) ([]Notification, error)
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int, error)

	SendAttractionProposalNotification(ctx context.Context, senderID, receiverID, storyDate string) error
	SendNewMatchProposalNotification(ctx context.Context, recipientID, senderID, date string) error
	SendDateProposalNotification(ctx context.Context, senderID, receiverID string, details DateProposalDetails) error
	SendDateResponseNotification(ctx context.Context, responderID, receiverID string, accepted bool, dateID int64) error
	SendDateRescheduledNotification(ctx context.Context, updaterID, receiverID string, dateID int64) error
	SendDateCancelledNotification(ctx context.Context, cancellerID, receiverID string, dateID int64) error
}

type service struct {
	repo  Repository
	dir   UserDirectory
	push  PushService
	cache *redis.Client // optional; nil disables caching
}

// NewService creates a new notifications service. cache may be nil.
func NewService(repo Repository, dir UserDirectory, push PushService, cache *redis.Client) Service {
	return &service{repo: repo, dir: dir, push: push, cache: cache}
}

func (s *service) GetUserNotifications(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.GetUserNotifications(ctx, userID, limit, offset)
}

func (s *service) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.MarkAllAsRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.invalidateUnread(ctx, userID)
	return count, nil
}

// UnreadCount serves from Redis when possible and falls back to the database
// silently on any cache problem.
func (s *service) UnreadCount(ctx context.Context, userID string) (int, error) {
	key := unreadCacheKey(userID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
			if count, convErr := strconv.Atoi(cached); convErr == nil {
				return count, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Printf("[Notifications] unread cache read failed for %s: %v", userID, err)
		}
	}

	count, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, count, unreadCacheTTL).Err(); err != nil {
			log.Printf("[Notifications] unread cache write failed for %s: %v", userID, err)
		}
	}
	return count, nil
}

// SendAttractionProposalNotification tells the receiver someone is interested
// in their story for the day.
func (s *service) SendAttractionProposalNotification(ctx context.Context, senderID, receiverID, storyDate string) error {
	sender, err := s.dir.GetUserByID(ctx, senderID)
	if err != nil {
		return err
	}

	formatted := friendlyDate(storyDate)
	title := fmt.Sprintf("Interest for your %s story", formatted)
	body := fmt.Sprintf("Someone wants to meet you on %s. Did you see anyone on that date you want to meet?", formatted)

	n := &Notification{
		UserID:          receiverID,
		Message:         body,
		Type:            TypeAttractionProposal,
		RelatedEntityID: strPtr(storyDate),
		ProposingUserID: &senderID,
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return err
	}
	s.invalidateUnread(ctx, receiverID)

	s.tryPush(ctx, receiverID, title, body, profileImage(sender), map[string]string{
		"type":         TypeAttractionProposal,
		"storyDate":    storyDate,
		"senderUserId": senderID,
	})
	return nil
}

// SendNewMatchProposalNotification tells one side of a fresh mutual match.
func (s *service) SendNewMatchProposalNotification(ctx context.Context, recipientID, senderID, date string) error {
	sender, err := s.dir.GetUserByID(ctx, senderID)
	if err != nil {
		return err
	}

	title := "It's a Match! 🎉"
	body := "They feel the same. Does their Plan work for you to meet in real life?"

	n := &Notification{
		UserID:          recipientID,
		Message:         body,
		Type:            TypeMatchProposal,
		RelatedEntityID: strPtr(date),
		ProposingUserID: &senderID,
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return err
	}
	s.invalidateUnread(ctx, recipientID)

	s.tryPush(ctx, recipientID, title, body, profileImage(sender), map[string]string{
		"type":            TypeMatchProposal,
		"dateForProposal": date,
		"userToId":        senderID,
	})
	log.Printf("[Notifications] Sent MATCH_PROPOSAL to %s for story date %s", recipientID, date)
	return nil
}

// SendDateProposalNotification writes the proposal notification. It runs
// inside the proposal's transaction; an error here rolls the proposal back.
func (s *service) SendDateProposalNotification(ctx context.Context, senderID, receiverID string, details DateProposalDetails) error {
	sender, err := s.dir.GetUserByID(ctx, senderID)
	if err != nil {
		return err
	}

	body := fmt.Sprintf("%s proposed a date at %s. Tap to see details!", firstNameOr(sender, "Someone"), details.Venue)

	n := &Notification{
		UserID:          receiverID,
		Message:         body,
		Type:            TypeDateProposal,
		RelatedEntityID: strPtr(strconv.FormatInt(details.DateID, 10)),
		ProposingUserID: &senderID,
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return err
	}
	s.invalidateUnread(ctx, receiverID)

	s.tryPush(ctx, receiverID, "New Date Proposal! ✨", body, profileImage(sender), map[string]string{
		"type":   TypeDateProposal,
		"dateId": strconv.FormatInt(details.DateID, 10),
	})
	return nil
}

func (s *service) SendDateResponseNotification(ctx context.Context, responderID, receiverID string, accepted bool, dateID int64) error {
	responder, err := s.dir.GetUserByID(ctx, responderID)
	if err != nil {
		return err
	}

	actionText := "declined"
	title := "Date Update"
	notifType := TypeDateDeclined
	if accepted {
		actionText = "accepted"
		title = "Date Accepted! ✅"
		notifType = TypeDateApproved
	}
	body := fmt.Sprintf("%s has %s your date proposal.", firstNameOr(responder, "Someone"), actionText)

	n := &Notification{
		UserID:          receiverID,
		Message:         body,
		Type:            notifType,
		RelatedEntityID: strPtr(strconv.FormatInt(dateID, 10)),
		ProposingUserID: &responderID,
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return err
	}
	s.invalidateUnread(ctx, receiverID)

	s.tryPush(ctx, receiverID, title, body, profileImage(responder), map[string]string{
		"type":   notifType,
		"dateId": strconv.FormatInt(dateID, 10),
	})
	return nil
}

func (s *service) SendDateRescheduledNotification(ctx context.Context, updaterID, receiverID string, dateID int64) error {
	updater, err := s.dir.GetUserByID(ctx, updaterID)
	if err != nil {
		return err
	}

	body := fmt.Sprintf("%s has rescheduled your date. Tap to see the new details.", firstNameOr(updater, "Someone"))

	n := &Notification{
		UserID:          receiverID,
		Message:         body,
		Type:            TypeDateRescheduled,
		RelatedEntityID: strPtr(strconv.FormatInt(dateID, 10)),
		ProposingUserID: &updaterID,
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return err
	}
	s.invalidateUnread(ctx, receiverID)

	s.tryPush(ctx, receiverID, "🗓️ Date Rescheduled", body, profileImage(updater), map[string]string{
		"type":   TypeDateRescheduled,
		"dateId": strconv.FormatInt(dateID, 10),
	})
	return nil
}

func (s *service) SendDateCancelledNotification(ctx context.Context, cancellerID, receiverID string, dateID int64) error {
	canceller, err := s.dir.GetUserByID(ctx, cancellerID)
	if err != nil {
		return err
	}

	body := fmt.Sprintf("%s has cancelled your upcoming date.", firstNameOr(canceller, "Someone"))

	n := &Notification{
		UserID:          receiverID,
		Message:         body,
		Type:            TypeDateCancelled,
		RelatedEntityID: strPtr(strconv.FormatInt(dateID, 10)),
		ProposingUserID: &cancellerID,
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return err
	}
	s.invalidateUnread(ctx, receiverID)

	s.tryPush(ctx, receiverID, "😟 Date Cancelled", body, profileImage(canceller), map[string]string{
		"type":   TypeDateCancelled,
		"dateId": strconv.FormatInt(dateID, 10),
	})
	return nil
}

// tryPush looks up the recipient's device token and attempts delivery.
// Missing tokens, disabled notifications and transport errors are logged,
// never returned.
func (s *service) tryPush(ctx context.Context, receiverID, title, body, imageURL string, data map[string]string) {
	receiver, err := s.dir.GetUserByID(ctx, receiverID)
	if err != nil {
		log.Printf("[Notifications] recipient lookup failed for push %q: %v", title, err)
		return
	}
	if !receiver.EnableNotifications {
		return
	}
	if receiver.FCMToken == nil || *receiver.FCMToken == "" {
		log.Printf("[Notifications] No token found for notification %q. Skipping send.", title)
		return
	}

	err = s.push.SendPush(ctx, &PushNotification{
		Token:    *receiver.FCMToken,
		Title:    title,
		Body:     body,
		ImageURL: imageURL,
		Data:     data,
	})
	if err != nil {
		log.Printf("[Notifications] Error sending push %q: %v", title, err)
		return
	}
	log.Printf("[Notifications] Push %q sent successfully", title)
}

func (s *service) invalidateUnread(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, unreadCacheKey(userID)).Err(); err != nil {
		log.Printf("[Notifications] unread cache invalidation failed for %s: %v", userID, err)
	}
}

func unreadCacheKey(userID string) string {
	return "notifications:unread:" + userID
}

// friendlyDate turns "2025-08-01" into "August 1st". Unparseable input is
// returned unchanged.
func friendlyDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%s %s", t.Month().String(), ordinal(t.Day()))
}

func ordinal(day int) string {
	suffix := "th"
	switch {
	case day%100 >= 11 && day%100 <= 13:
		// 11th, 12th, 13th
	case day%10 == 1:
		suffix = "st"
	case day%10 == 2:
		suffix = "nd"
	case day%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", day, suffix)
}

func firstNameOr(u *users.User, fallback string) string {
	if u != nil && u.FirstName != "" {
		return u.FirstName
	}
	return fallback
}

func profileImage(u *users.User) string {
	if u != nil && u.ProfilePictureURL != nil {
		return *u.ProfilePictureURL
	}
	return ""
}

func strPtr(s string) *string {
	return &s
}
