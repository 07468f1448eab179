// internal/users/service.go
// Business logic for accounts, the token ledger and blocks

package users

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/daymatch/daymatch-backend/internal/common/database"
)

var (
	// ErrCannotBlockSelf is returned when a user tries to block themselves
	ErrCannotBlockSelf = errors.New("cannot block yourself")
	// ErrEmailTaken is returned when the email is already registered
	ErrEmailTaken = errors.New("email already registered")
)

// Service defines user business operations
type Service interface {
	CreateUser(ctx context.Context, req *CreateUserRequest) (*User, error)
	GetUser(ctx context.Context, userID string) (*User, error)
	GetPublicProfile(ctx context.Context, userID string) (*PublicProfile, error)
	UpdateProfile(ctx context.Context, userID string, patch *UserPatch) (*User, error)
	DeleteAccount(ctx context.Context, userID string) error

	RegisterPushToken(ctx context.Context, userID, token string) error

	BlockUser(ctx context.Context, blockerID, blockedID string) error
	UnblockUser(ctx context.Context, blockerID, blockedID string) error
	GetBlockedProfiles(ctx context.Context, userID string) ([]PublicProfile, error)

	ReplenishAllTokens(ctx context.Context) error
}

type service struct {
	repo            Repository
	txManager       database.TxManager
	initialTokens   int
	referralBonus   int
	replenishAmount int
}

// NewService creates a new users service
func NewService(repo Repository, txManager database.TxManager, initialTokens, referralBonus, replenishAmount int) Service {
	return &service{
		repo:            repo,
		txManager:       txManager,
		initialTokens:   initialTokens,
		referralBonus:   referralBonus,
		replenishAmount: replenishAmount,
	}
}

func (s *service) CreateUser(ctx context.Context, req *CreateUserRequest) (*User, error) {
	if existing, err := s.repo.GetUserByEmail(ctx, req.Email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	} else if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	user := &User{
		UserID:              req.UserID,
		Email:               req.Email,
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		Tokens:              s.initialTokens,
		EnableNotifications: true,
	}
	if req.Zipcode != "" {
		user.Zipcode = &req.Zipcode
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	log.Printf("[Users] Created user %s with %d tokens", user.UserID, user.Tokens)
	return user, nil
}

func (s *service) GetUser(ctx context.Context, userID string) (*User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

func (s *service) GetPublicProfile(ctx context.Context, userID string) (*PublicProfile, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := user.PublicProfile()
	return &profile, nil
}

// UpdateProfile applies a sparse patch. Setting the referral source for the
// first time earns a one-time token bonus; both writes share a transaction.
func (s *service) UpdateProfile(ctx context.Context, userID string, patch *UserPatch) (*User, error) {
	var updated *User

	err := s.txManager.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}

		firstReferral := patch.ReferralSource != nil && *patch.ReferralSource != "" &&
			current.ReferralSource == nil

		updated, err = s.repo.UpdateUser(ctx, userID, patch)
		if err != nil {
			return err
		}

		if firstReferral {
			balance, err := s.repo.GrantTokens(ctx, userID, s.referralBonus)
			if err != nil {
				return fmt.Errorf("failed to grant referral bonus: %w", err)
			}
			updated.Tokens = balance
			log.Printf("[Users] Referral bonus of %d tokens granted to %s", s.referralBonus, userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.repo.DeleteUser(ctx, userID); err != nil {
		return err
	}
	log.Printf("[Users] Deleted user %s", userID)
	return nil
}

// RegisterPushToken binds the FCM token to the user. The token is removed
// from any other account in the same transaction so a shared device never
// double-delivers.
func (s *service) RegisterPushToken(ctx context.Context, userID, token string) error {
	return s.txManager.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.ClearPushTokenFromOthers(ctx, userID, token); err != nil {
			return err
		}
		return s.repo.SetPushToken(ctx, userID, token)
	})
}

func (s *service) BlockUser(ctx context.Context, blockerID, blockedID string) error {
	if blockerID == blockedID {
		return ErrCannotBlockSelf
	}
	if _, err := s.repo.GetUserByID(ctx, blockedID); err != nil {
		return err
	}
	return s.repo.BlockUser(ctx, blockerID, blockedID)
}

func (s *service) UnblockUser(ctx context.Context, blockerID, blockedID string) error {
	return s.repo.UnblockUser(ctx, blockerID, blockedID)
}

func (s *service) GetBlockedProfiles(ctx context.Context, userID string) ([]PublicProfile, error) {
	return s.repo.GetBlockedProfiles(ctx, userID)
}

// ReplenishAllTokens tops every balance back up to the monthly amount.
func (s *service) ReplenishAllTokens(ctx context.Context) error {
	touched, err := s.repo.ReplenishAllTokens(ctx, s.replenishAmount)
	if err != nil {
		return err
	}
	log.Printf("[Users] Monthly token replenish: %d users topped up to %d", touched, s.replenishAmount)
	return nil
}
