// internal/dates/service.go
// Date proposal lifecycle: creation under the mutual-match precondition,
// the approve/decline/reschedule/cancel state machine, and feedback.

package dates

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/lib/pq"

	"github.com/daymatch/daymatch-backend/internal/common/database"
)

// AttractionChecker verifies the mutual-match precondition. The lookups run
// inside the proposal's transaction via the context.
type AttractionChecker interface {
	CheckMutualMatch(ctx context.Context, user1, user2, date string) (bool, error)
}

// Notifier dispatches lifecycle notifications. SendDateProposalNotification
// runs inside the creation transaction; the rest are best-effort.
type Notifier interface {
	SendDateProposalNotification(ctx context.Context, senderID, receiverID string, details ProposalDetails) error
	SendDateResponseNotification(ctx context.Context, responderID, receiverID string, accepted bool, dateID int64) error
	SendDateRescheduledNotification(ctx context.Context, updaterID, receiverID string, dateID int64) error
	SendDateCancelledNotification(ctx context.Context, cancellerID, receiverID string, dateID int64) error
}

// ProposalDetails is the proposal summary handed to the Notifier
type ProposalDetails struct {
	DateID int64
	Date   string
	Time   string
	Venue  string
}

// Service defines date proposal operations
type Service interface {
	CreateFullDateProposal(ctx context.Context, proposerID string, req *CreateDateRequest) (*DateProposal, error)
	RespondToProposal(ctx context.Context, dateID int64, responderID string, approve bool) (*DateProposal, error)
	RescheduleProposal(ctx context.Context, dateID int64, editorID string, req *UpdateDateRequest) (*DateProposal, error)
	CancelProposal(ctx context.Context, dateID int64, cancellerID string) (*DateProposal, error)
	AddFeedback(ctx context.Context, dateID int64, userID string, req *FeedbackRequest) (*DateFeedback, error)

	GetDateWithUserDetails(ctx context.Context, dateID int64, callerID string) (*DateWithUsers, error)
	GetDateEntryByUsersAndDate(ctx context.Context, callerID, userFrom, userTo, date string) (*DateProposal, error)
	GetUpcomingDates(ctx context.Context, userID string) ([]UpcomingDate, error)
}

type service struct {
	repo        Repository
	txManager   database.TxManager
	attractions AttractionChecker
	notifier    Notifier
}

// NewService creates a new dates service
func NewService(repo Repository, txManager database.TxManager, attractions AttractionChecker, notifier Notifier) Service {
	return &service{
		repo:        repo,
		txManager:   txManager,
		attractions: attractions,
		notifier:    notifier,
	}
}

// CreateFullDateProposal runs the whole creation flow in one transaction:
// mutual-match precondition, open-proposal conflict check, insert, and the
// proposal notification. Any failure rolls everything back.
func (s *service) CreateFullDateProposal(ctx context.Context, proposerID string, req *CreateDateRequest) (*DateProposal, error) {
	var created *DateProposal

	err := s.txManager.RunInTx(ctx, func(ctx context.Context) error {
		mutual, err := s.attractions.CheckMutualMatch(ctx, proposerID, req.UserTo, req.Date)
		if err != nil {
			return fmt.Errorf("failed to check mutual match: %w", err)
		}
		if !mutual {
			return ErrNotAMatch()
		}

		existing, err := s.repo.GetDateEntryByUsersAndDate(ctx, proposerID, req.UserTo, req.Date)
		if err != nil {
			return err
		}
		if existing != nil && existing.IsOpen() {
			return ErrSchedulingConflict(existing)
		}

		entry := &DateProposal{
			Date:             req.Date,
			Time:             &req.Time,
			UserFrom:         proposerID,
			UserTo:           req.UserTo,
			UserFromApproved: true,
			UserToApproved:   false,
			LocationMetadata: req.LocationMetadata,
			Status:           StatusPending,
		}
		if err := s.repo.CreateDateEntry(ctx, entry); err != nil {
			// The partial unique index closes the race between the conflict
			// check and the insert.
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return ErrSchedulingConflict(nil)
			}
			return err
		}

		venue := "A new spot!"
		if entry.LocationMetadata != nil && entry.LocationMetadata.Name != "" {
			venue = entry.LocationMetadata.Name
		}
		if err := s.notifier.SendDateProposalNotification(ctx, proposerID, req.UserTo, ProposalDetails{
			DateID: entry.DateID,
			Date:   entry.Date,
			Time:   req.Time,
			Venue:  venue,
		}); err != nil {
			return fmt.Errorf("failed to send proposal notification: %w", err)
		}

		created = entry
		return nil
	})
	if err != nil {
		if de, ok := AsError(err); ok {
			RecordProposalRejection(de.Code)
		}
		log.Printf("[Dates] Proposal creation by %s rolled back: %v", proposerID, err)
		return nil, err
	}

	RecordProposalCreated()
	log.Printf("[Dates] Proposal %d committed between %s and %s", created.DateID, proposerID, req.UserTo)
	return created, nil
}

// RespondToProposal applies an approve or decline from the side whose turn
// it is. The date becomes approved once both flags are set.
func (s *service) RespondToProposal(ctx context.Context, dateID int64, responderID string, approve bool) (*DateProposal, error) {
	entry, err := s.repo.GetDateEntryByID(ctx, dateID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotFound()
	}
	if !entry.IsParticipant(responderID) {
		return nil, ErrNotParticipant()
	}
	if entry.Status != StatusPending {
		return nil, ErrInvalidTransition("This date is no longer pending a response.")
	}

	myFlag := entry.UserFromApproved
	otherFlag := entry.UserToApproved
	if responderID == entry.UserTo {
		myFlag, otherFlag = otherFlag, myFlag
	}
	if myFlag {
		return nil, ErrNotYourTurn()
	}

	patch := &ProposalPatch{}
	if !approve {
		declined := StatusDeclined
		patch.Status = &declined
	} else {
		approvedFlag := true
		if responderID == entry.UserFrom {
			patch.UserFromApproved = &approvedFlag
		} else {
			patch.UserToApproved = &approvedFlag
		}
		status := StatusPending
		if otherFlag {
			status = StatusApproved
		}
		patch.Status = &status
	}

	updated, err := s.repo.UpdateDateEntry(ctx, dateID, patch)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound()
	}
	RecordTransition(updated.Status)

	otherID := entry.OtherParticipant(responderID)
	accepted := updated.Status == StatusApproved
	if err := s.notifier.SendDateResponseNotification(ctx, responderID, otherID, accepted, dateID); err != nil {
		log.Printf("[Dates] Response notification for date %d failed: %v", dateID, err)
	}

	return updated, nil
}

// RescheduleProposal changes date, time or venue. Any change resets the
// handshake: the editor's flag is set, the other side's cleared, and the
// proposal returns to pending.
func (s *service) RescheduleProposal(ctx context.Context, dateID int64, editorID string, req *UpdateDateRequest) (*DateProposal, error) {
	entry, err := s.repo.GetDateEntryByID(ctx, dateID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotFound()
	}
	if !entry.IsParticipant(editorID) {
		return nil, ErrNotParticipant()
	}
	if entry.Status != StatusApproved && entry.Status != StatusPending {
		return nil, ErrInvalidTransition("Only approved or pending dates can be modified.")
	}
	if req.Date == nil && req.Time == nil && req.LocationMetadata == nil {
		return nil, ErrInvalidTransition("No valid update data provided.")
	}

	pending := StatusPending
	editorApproved := true
	otherApproved := false
	patch := &ProposalPatch{
		Date:             req.Date,
		Time:             req.Time,
		LocationMetadata: req.LocationMetadata,
		Status:           &pending,
	}
	if editorID == entry.UserFrom {
		patch.UserFromApproved = &editorApproved
		patch.UserToApproved = &otherApproved
	} else {
		patch.UserToApproved = &editorApproved
		patch.UserFromApproved = &otherApproved
	}

	updated, err := s.repo.UpdateDateEntry(ctx, dateID, patch)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound()
	}
	RecordTransition(StatusPending)

	otherID := entry.OtherParticipant(editorID)
	if err := s.notifier.SendDateRescheduledNotification(ctx, editorID, otherID, dateID); err != nil {
		log.Printf("[Dates] Reschedule notification for date %d failed: %v", dateID, err)
	}

	return updated, nil
}

// CancelProposal moves the date to the terminal cancelled status. Either
// participant may cancel at any non-terminal point.
func (s *service) CancelProposal(ctx context.Context, dateID int64, cancellerID string) (*DateProposal, error) {
	entry, err := s.repo.GetDateEntryByID(ctx, dateID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotFound()
	}
	if !entry.IsParticipant(cancellerID) {
		return nil, ErrNotParticipant()
	}
	if entry.Status == StatusCancelled || entry.Status == StatusCompleted {
		return nil, ErrInvalidTransition(fmt.Sprintf("Cannot cancel a date that is already %s.", entry.Status))
	}

	cancelled := StatusCancelled
	updated, err := s.repo.UpdateDateEntry(ctx, dateID, &ProposalPatch{Status: &cancelled})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound()
	}
	RecordTransition(StatusCancelled)

	otherID := entry.OtherParticipant(cancellerID)
	if err := s.notifier.SendDateCancelledNotification(ctx, cancellerID, otherID, dateID); err != nil {
		log.Printf("[Dates] Cancellation notification for date %d failed: %v", dateID, err)
	}

	return updated, nil
}

// AddFeedback upserts the caller's private feedback, regardless of status.
func (s *service) AddFeedback(ctx context.Context, dateID int64, userID string, req *FeedbackRequest) (*DateFeedback, error) {
	entry, err := s.repo.GetDateEntryByID(ctx, dateID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotFound()
	}
	if !entry.IsParticipant(userID) {
		return nil, ErrNotParticipant()
	}

	fb := &DateFeedback{
		DateID:  dateID,
		UserID:  userID,
		Outcome: req.Outcome,
		Notes:   req.Notes,
	}
	if err := s.repo.UpsertFeedback(ctx, fb); err != nil {
		return nil, err
	}
	RecordFeedback(req.Outcome)
	return fb, nil
}

// GetDateWithUserDetails hides the proposal's existence from non-participants.
func (s *service) GetDateWithUserDetails(ctx context.Context, dateID int64, callerID string) (*DateWithUsers, error) {
	d, err := s.repo.GetDateEntryByIDWithUserDetails(ctx, dateID)
	if err != nil {
		return nil, err
	}
	if d == nil || !d.IsParticipant(callerID) {
		return nil, ErrNotFound()
	}
	return d, nil
}

func (s *service) GetDateEntryByUsersAndDate(ctx context.Context, callerID, userFrom, userTo, date string) (*DateProposal, error) {
	if callerID != userFrom && callerID != userTo {
		return nil, ErrNotParticipant()
	}
	d, err := s.repo.GetDateEntryByUsersAndDate(ctx, userFrom, userTo, date)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNotFound()
	}
	return d, nil
}

func (s *service) GetUpcomingDates(ctx context.Context, userID string) ([]UpcomingDate, error) {
	return s.repo.GetUpcomingDatesByUserID(ctx, userID)
}
