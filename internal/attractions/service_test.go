package attractions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daymatch/daymatch-backend/internal/users"
)

type fakeAttractionRepo struct {
	rows map[string]*Attraction // key from|to|date
}

func newFakeAttractionRepo() *fakeAttractionRepo {
	return &fakeAttractionRepo{rows: make(map[string]*Attraction)}
}

func key(from, to, date string) string { return from + "|" + to + "|" + date }

func (f *fakeAttractionRepo) GetAttraction(_ context.Context, userFrom, userTo, date string) (*Attraction, error) {
	a, ok := f.rows[key(userFrom, userTo, date)]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (f *fakeAttractionRepo) UpsertAttraction(_ context.Context, a *Attraction) error {
	a.AttractionID = int64(len(f.rows) + 1)
	copied := *a
	f.rows[key(a.UserFrom, a.UserTo, a.Date)] = &copied
	return nil
}

type fakeLedger struct {
	balances map[string]int
	spends   int
}

func (f *fakeLedger) SpendTokens(_ context.Context, userID string, amount int) (int, error) {
	balance, ok := f.balances[userID]
	if !ok {
		return 0, users.ErrUserNotFound
	}
	if balance < amount {
		return balance, users.ErrInsufficientTokens
	}
	f.balances[userID] = balance - amount
	f.spends++
	return f.balances[userID], nil
}

type fakeNotifier struct {
	attractionNotices []string // receiver ids
	matchRecipients   []string
}

func (f *fakeNotifier) SendAttractionProposalNotification(_ context.Context, _, receiverID, _ string) error {
	f.attractionNotices = append(f.attractionNotices, receiverID)
	return nil
}

func (f *fakeNotifier) SendNewMatchProposalNotification(_ context.Context, recipientID, _, _ string) error {
	f.matchRecipients = append(f.matchRecipients, recipientID)
	return nil
}

type passTx struct{}

func (passTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func positiveRequest(userTo string, romantic, sexual, friendship int) *ExpressAttractionRequest {
	return &ExpressAttractionRequest{
		UserTo: userTo, Date: "2025-08-01",
		RomanticRating: romantic, SexualRating: sexual, FriendshipRating: friendship,
		Result: true,
	}
}

func TestExpressAttraction_SpendsTokensAndNotifies(t *testing.T) {
	repo := newFakeAttractionRepo()
	ledger := &fakeLedger{balances: map[string]int{"alice": 100}}
	notifier := &fakeNotifier{}
	svc := NewService(repo, passTx{}, ledger, notifier, 10)

	result, err := svc.ExpressAttraction(context.Background(), "alice", positiveRequest("bob", 5, 3, 4))
	require.NoError(t, err)

	assert.Equal(t, 90, result.Tokens)
	assert.False(t, result.Matched)
	assert.Equal(t, []string{"bob"}, notifier.attractionNotices)
	assert.Empty(t, notifier.matchRecipients)
	assert.NotNil(t, repo.rows[key("alice", "bob", "2025-08-01")])
}

func TestExpressAttraction_InsufficientTokens(t *testing.T) {
	repo := newFakeAttractionRepo()
	ledger := &fakeLedger{balances: map[string]int{"alice": 5}}
	svc := NewService(repo, passTx{}, ledger, &fakeNotifier{}, 10)

	_, err := svc.ExpressAttraction(context.Background(), "alice", positiveRequest("bob", 5, 3, 4))
	assert.ErrorIs(t, err, users.ErrInsufficientTokens)
}

func TestExpressAttraction_NegativeCostsNothing(t *testing.T) {
	repo := newFakeAttractionRepo()
	ledger := &fakeLedger{balances: map[string]int{"alice": 100}}
	notifier := &fakeNotifier{}
	svc := NewService(repo, passTx{}, ledger, notifier, 10)

	req := positiveRequest("bob", 0, 0, 0)
	req.Result = false
	result, err := svc.ExpressAttraction(context.Background(), "alice", req)
	require.NoError(t, err)

	assert.Equal(t, 0, ledger.spends)
	assert.False(t, result.Matched)
	assert.Empty(t, notifier.attractionNotices, "a pass sends nothing")
}

func TestExpressAttraction_Self(t *testing.T) {
	svc := NewService(newFakeAttractionRepo(), passTx{}, &fakeLedger{balances: map[string]int{}}, &fakeNotifier{}, 10)

	_, err := svc.ExpressAttraction(context.Background(), "alice", positiveRequest("alice", 1, 1, 1))
	assert.ErrorIs(t, err, ErrSelfAttraction)
}

func TestExpressAttraction_MutualMatchNotifiesLowerScore(t *testing.T) {
	repo := newFakeAttractionRepo()
	ledger := &fakeLedger{balances: map[string]int{"alice": 100, "bob": 100}}
	notifier := &fakeNotifier{}
	svc := NewService(repo, passTx{}, ledger, notifier, 10)

	// Bob expressed first with a high total
	_, err := svc.ExpressAttraction(context.Background(), "bob", positiveRequest("alice", 9, 9, 9))
	require.NoError(t, err)

	// Alice reciprocates with a lower total and completes the match
	result, err := svc.ExpressAttraction(context.Background(), "alice", positiveRequest("bob", 2, 2, 2))
	require.NoError(t, err)

	assert.True(t, result.Matched)
	// Alice has the lower total, so she receives the match proposal
	assert.Equal(t, []string{"alice"}, notifier.matchRecipients)
	// The plain attraction notice from bob's first expression is the only one
	assert.Equal(t, []string{"alice"}, notifier.attractionNotices)
}

func TestExpressAttraction_NoMatchWhenReciprocalNegative(t *testing.T) {
	repo := newFakeAttractionRepo()
	ledger := &fakeLedger{balances: map[string]int{"alice": 100, "bob": 100}}
	notifier := &fakeNotifier{}
	svc := NewService(repo, passTx{}, ledger, notifier, 10)

	req := positiveRequest("alice", 0, 0, 0)
	req.Result = false
	_, err := svc.ExpressAttraction(context.Background(), "bob", req)
	require.NoError(t, err)

	result, err := svc.ExpressAttraction(context.Background(), "alice", positiveRequest("bob", 5, 5, 5))
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Empty(t, notifier.matchRecipients)
}

func TestCheckMutualMatch(t *testing.T) {
	repo := newFakeAttractionRepo()
	ledger := &fakeLedger{balances: map[string]int{"alice": 100, "bob": 100}}
	svc := NewService(repo, passTx{}, ledger, &fakeNotifier{}, 10)

	mutual, err := svc.CheckMutualMatch(context.Background(), "alice", "bob", "2025-08-01")
	require.NoError(t, err)
	assert.False(t, mutual)

	_, err = svc.ExpressAttraction(context.Background(), "alice", positiveRequest("bob", 1, 1, 1))
	require.NoError(t, err)
	mutual, err = svc.CheckMutualMatch(context.Background(), "alice", "bob", "2025-08-01")
	require.NoError(t, err)
	assert.False(t, mutual, "one-sided interest is not a match")

	_, err = svc.ExpressAttraction(context.Background(), "bob", positiveRequest("alice", 1, 1, 1))
	require.NoError(t, err)
	mutual, err = svc.CheckMutualMatch(context.Background(), "alice", "bob", "2025-08-01")
	require.NoError(t, err)
	assert.True(t, mutual)
}
