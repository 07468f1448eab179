package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// passthroughTxManager runs the function directly; transactional behavior is
// exercised against a real database, not here.
type passthroughTxManager struct{}

func (passthroughTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRepository struct {
	users  map[string]*User
	blocks map[string]map[string]bool
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:  make(map[string]*User),
		blocks: make(map[string]map[string]bool),
	}
}

func (f *fakeRepository) CreateUser(_ context.Context, user *User) error {
	f.users[user.UserID] = user
	return nil
}

func (f *fakeRepository) GetUserByID(_ context.Context, userID string) (*User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeRepository) GetUserByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrUserNotFound
}

func (f *fakeRepository) UpdateUser(_ context.Context, userID string, patch *UserPatch) (*User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	if patch.FirstName != nil {
		u.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		u.LastName = *patch.LastName
	}
	if patch.Zipcode != nil {
		u.Zipcode = patch.Zipcode
	}
	if patch.ReferralSource != nil {
		u.ReferralSource = patch.ReferralSource
	}
	if patch.EnableNotifications != nil {
		u.EnableNotifications = *patch.EnableNotifications
	}
	copied := *u
	return &copied, nil
}

func (f *fakeRepository) DeleteUser(_ context.Context, userID string) error {
	if _, ok := f.users[userID]; !ok {
		return ErrUserNotFound
	}
	delete(f.users, userID)
	return nil
}

func (f *fakeRepository) SpendTokens(_ context.Context, userID string, amount int) (int, error) {
	u, ok := f.users[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	if u.Tokens < amount {
		return u.Tokens, ErrInsufficientTokens
	}
	u.Tokens -= amount
	return u.Tokens, nil
}

func (f *fakeRepository) GrantTokens(_ context.Context, userID string, amount int) (int, error) {
	u, ok := f.users[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	u.Tokens += amount
	return u.Tokens, nil
}

func (f *fakeRepository) ReplenishAllTokens(_ context.Context, amount int) (int64, error) {
	var touched int64
	for _, u := range f.users {
		if u.Tokens < amount {
			u.Tokens = amount
			touched++
		}
	}
	return touched, nil
}

func (f *fakeRepository) SetPushToken(_ context.Context, userID, token string) error {
	u, ok := f.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.FCMToken = &token
	return nil
}

func (f *fakeRepository) ClearPushTokenFromOthers(_ context.Context, userID, token string) error {
	for id, u := range f.users {
		if id != userID && u.FCMToken != nil && *u.FCMToken == token {
			u.FCMToken = nil
		}
	}
	return nil
}

func (f *fakeRepository) BlockUser(_ context.Context, blockerID, blockedID string) error {
	if f.blocks[blockerID] == nil {
		f.blocks[blockerID] = make(map[string]bool)
	}
	f.blocks[blockerID][blockedID] = true
	return nil
}

func (f *fakeRepository) UnblockUser(_ context.Context, blockerID, blockedID string) error {
	delete(f.blocks[blockerID], blockedID)
	return nil
}

func (f *fakeRepository) GetBlockedUserIDs(_ context.Context, userID string) ([]string, error) {
	var ids []string
	for id := range f.blocks[userID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeRepository) GetBlockedProfiles(_ context.Context, userID string) ([]PublicProfile, error) {
	var profiles []PublicProfile
	for id := range f.blocks[userID] {
		if u, ok := f.users[id]; ok {
			profiles = append(profiles, u.PublicProfile())
		}
	}
	return profiles, nil
}

func newTestService(repo Repository) Service {
	return NewService(repo, passthroughTxManager{}, 100, 10, 100)
}

func TestCreateUser_Defaults(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo)

	user, err := svc.CreateUser(context.Background(), &CreateUserRequest{
		UserID:    "11111111-1111-1111-1111-111111111111",
		Email:     "amy@example.com",
		FirstName: "Amy",
		LastName:  "Pond",
	})
	require.NoError(t, err)
	assert.Equal(t, 100, user.Tokens)
	assert.True(t, user.EnableNotifications)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo)

	_, err := svc.CreateUser(context.Background(), &CreateUserRequest{
		UserID: "11111111-1111-1111-1111-111111111111", Email: "amy@example.com",
		FirstName: "Amy", LastName: "Pond",
	})
	require.NoError(t, err)

	_, err = svc.CreateUser(context.Background(), &CreateUserRequest{
		UserID: "22222222-2222-2222-2222-222222222222", Email: "amy@example.com",
		FirstName: "Amelia", LastName: "Pond",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUpdateProfile_FirstReferralEarnsBonus(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo)

	user, err := svc.CreateUser(context.Background(), &CreateUserRequest{
		UserID: "11111111-1111-1111-1111-111111111111", Email: "amy@example.com",
		FirstName: "Amy", LastName: "Pond",
	})
	require.NoError(t, err)

	source := "friend"
	updated, err := svc.UpdateProfile(context.Background(), user.UserID, &UserPatch{ReferralSource: &source})
	require.NoError(t, err)
	assert.Equal(t, 110, updated.Tokens)

	// Changing it again earns nothing
	other := "ad"
	updated, err = svc.UpdateProfile(context.Background(), user.UserID, &UserPatch{ReferralSource: &other})
	require.NoError(t, err)
	assert.Equal(t, 110, updated.Tokens)
}

func TestBlockUser_Self(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo)

	err := svc.BlockUser(context.Background(), "same-id", "same-id")
	assert.ErrorIs(t, err, ErrCannotBlockSelf)
}

func TestRegisterPushToken_StealsFromOtherAccount(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo)

	for _, id := range []string{"user-a", "user-b"} {
		repo.users[id] = &User{UserID: id, Email: id + "@example.com"}
	}

	require.NoError(t, svc.RegisterPushToken(context.Background(), "user-a", "device-token"))
	require.NoError(t, svc.RegisterPushToken(context.Background(), "user-b", "device-token"))

	assert.Nil(t, repo.users["user-a"].FCMToken)
	require.NotNil(t, repo.users["user-b"].FCMToken)
	assert.Equal(t, "device-token", *repo.users["user-b"].FCMToken)
}

func TestReplenishAllTokens(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo)

	repo.users["low"] = &User{UserID: "low", Tokens: 20}
	repo.users["high"] = &User{UserID: "high", Tokens: 250}

	require.NoError(t, svc.ReplenishAllTokens(context.Background()))
	assert.Equal(t, 100, repo.users["low"].Tokens)
	assert.Equal(t, 250, repo.users["high"].Tokens)
}
