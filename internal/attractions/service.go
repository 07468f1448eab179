// internal/attractions/service.go
// Expressing attraction: the token spend, the expression upsert and the
// reciprocal lookup share one transaction. Notifications go out after the
// commit, best-effort.

package attractions

import (
	"context"
	"errors"
	"log"
	"math/rand"

	"github.com/daymatch/daymatch-backend/internal/common/database"
)

// ErrSelfAttraction rejects expressing attraction to yourself
var ErrSelfAttraction = errors.New("cannot express attraction to yourself")

// TokenLedger spends tokens under a row lock; implemented by the users
// repository.
type TokenLedger interface {
	SpendTokens(ctx context.Context, userID string, amount int) (int, error)
}

// Notifier dispatches attraction and match notifications
type Notifier interface {
	SendAttractionProposalNotification(ctx context.Context, senderID, receiverID, storyDate string) error
	SendNewMatchProposalNotification(ctx context.Context, recipientID, senderID, date string) error
}

// Service defines attraction operations
type Service interface {
	ExpressAttraction(ctx context.Context, userFrom string, req *ExpressAttractionRequest) (*ExpressAttractionResult, error)
	GetAttraction(ctx context.Context, userFrom, userTo, date string) (*Attraction, error)

	// CheckMutualMatch reports whether both sides expressed positive
	// interest for the day. Serves the date proposal precondition.
	CheckMutualMatch(ctx context.Context, user1, user2, date string) (bool, error)
}

type service struct {
	repo      Repository
	txManager database.TxManager
	ledger    TokenLedger
	notifier  Notifier
	tokenCost int
}

// NewService creates a new attractions service
func NewService(repo Repository, txManager database.TxManager, ledger TokenLedger, notifier Notifier, tokenCost int) Service {
	return &service{
		repo:      repo,
		txManager: txManager,
		ledger:    ledger,
		notifier:  notifier,
		tokenCost: tokenCost,
	}
}

// ExpressAttraction records the expression. A positive expression costs
// tokens; the spend, the upsert and the reciprocal lookup commit together,
// so a failed spend leaves no expression behind.
func (s *service) ExpressAttraction(ctx context.Context, userFrom string, req *ExpressAttractionRequest) (*ExpressAttractionResult, error) {
	if userFrom == req.UserTo {
		return nil, ErrSelfAttraction
	}

	attraction := &Attraction{
		UserFrom:         userFrom,
		UserTo:           req.UserTo,
		Date:             req.Date,
		RomanticRating:   req.RomanticRating,
		SexualRating:     req.SexualRating,
		FriendshipRating: req.FriendshipRating,
		Result:           req.Result,
	}

	var (
		reciprocal *Attraction
		balance    int
	)

	err := s.txManager.RunInTx(ctx, func(ctx context.Context) error {
		if req.Result {
			var err error
			balance, err = s.ledger.SpendTokens(ctx, userFrom, s.tokenCost)
			if err != nil {
				return err
			}
		}

		if err := s.repo.UpsertAttraction(ctx, attraction); err != nil {
			return err
		}

		var err error
		reciprocal, err = s.repo.GetAttraction(ctx, req.UserTo, userFrom, req.Date)
		return err
	})
	if err != nil {
		log.Printf("[Attractions] Expression by %s for %s rolled back: %v", userFrom, req.UserTo, err)
		return nil, err
	}

	matched := req.Result && reciprocal != nil && reciprocal.Result
	if matched {
		s.notifyMatch(ctx, attraction, reciprocal)
	} else if req.Result {
		if err := s.notifier.SendAttractionProposalNotification(ctx, userFrom, req.UserTo, req.Date); err != nil {
			log.Printf("[Attractions] Attraction notification to %s failed: %v", req.UserTo, err)
		}
	}

	return &ExpressAttractionResult{
		Attraction: attraction,
		Matched:    matched,
		Tokens:     balance,
	}, nil
}

// notifyMatch tells the side with the lower total score; a tie picks one at
// random. The other side proposed last and already knows.
func (s *service) notifyMatch(ctx context.Context, a1, a2 *Attraction) {
	var recipientID, senderID string
	switch {
	case a1.TotalScore() < a2.TotalScore():
		recipientID, senderID = a1.UserFrom, a2.UserFrom
	case a2.TotalScore() < a1.TotalScore():
		recipientID, senderID = a2.UserFrom, a1.UserFrom
	case rand.Intn(2) == 0:
		recipientID, senderID = a1.UserFrom, a2.UserFrom
	default:
		recipientID, senderID = a2.UserFrom, a1.UserFrom
	}

	if err := s.notifier.SendNewMatchProposalNotification(ctx, recipientID, senderID, a1.Date); err != nil {
		log.Printf("[Attractions] Match notification to %s failed: %v", recipientID, err)
	}
}

func (s *service) GetAttraction(ctx context.Context, userFrom, userTo, date string) (*Attraction, error) {
	return s.repo.GetAttraction(ctx, userFrom, userTo, date)
}

// CheckMutualMatch runs both lookups sequentially; inside a transaction they
// share the caller's connection.
func (s *service) CheckMutualMatch(ctx context.Context, user1, user2, date string) (bool, error) {
	first, err := s.repo.GetAttraction(ctx, user1, user2, date)
	if err != nil {
		return false, err
	}
	if first == nil || !first.Result {
		return false, nil
	}

	second, err := s.repo.GetAttraction(ctx, user2, user1, date)
	if err != nil {
		return false, err
	}
	return second != nil && second.Result, nil
}
