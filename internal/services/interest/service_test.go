package interest

import (
	"context"
	"sync"
	"testing"

	apperrors "estatehub/internal/errors"
	"estatehub/internal/models"
	"estatehub/internal/repositories/memory"
	"estatehub/internal/services/notification"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu    sync.Mutex
	items []notification.Input
}

func (n *recordingNotifier) Send(_ context.Context, in notification.Input) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, in)
}

func (n *recordingNotifier) sent() []notification.Input {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification.Input(nil), n.items...)
}

type countingMetrics struct {
	mu      sync.Mutex
	unlocks map[string]int
}

func (m *countingMetrics) RecordUnlock(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unlocks == nil {
		m.unlocks = map[string]int{}
	}
	m.unlocks[result]++
}

func (m *countingMetrics) RecordInterest(string) {}

type fixture struct {
	store    *memory.Store
	svc      Service
	notifier *recordingNotifier
	metrics  *countingMetrics
	agent    *models.User
	seeker   *models.User
	property *models.Property
	interest *models.Interest
}

// newFixture seeds an agent holding credits (backed by a completed purchase
// row), a property of theirs and one pending interest from a seeker.
func newFixture(t *testing.T, credits int) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	agent := &models.User{Email: "agent@example.com", Name: "Agent", Role: models.RoleAgent}
	seeker := &models.User{Email: "seeker@example.com", Name: "Ada Seeker", Phone: "+2348000000000", Role: models.RoleSeeker}
	require.NoError(t, store.Users().Create(ctx, agent))
	require.NoError(t, store.Users().Create(ctx, seeker))

	if credits > 0 {
		require.NoError(t, store.Ledger().Create(ctx, &models.Transaction{
			UserID:    agent.ID,
			Type:      models.TransactionTypeCreditPurchase,
			Credits:   credits,
			Status:    models.TransactionStatusCompleted,
			Gateway:   "paystack",
			Reference: "CRD-seed",
		}))
		_, err := store.Users().AdjustCredits(ctx, agent.ID, credits)
		require.NoError(t, err)
	}

	property := &models.Property{AgentID: agent.ID, Title: "2 bed flat", Location: "Lekki", Price: decimal.NewFromInt(2500000)}
	require.NoError(t, store.Properties().Create(ctx, property))

	notifier := &recordingNotifier{}
	metrics := &countingMetrics{}
	svc := NewService(store, nil, notifier, metrics, nil)

	in, err := svc.Express(ctx, seeker.ID, property.ID, "  Is it still available?  ")
	require.NoError(t, err)

	return &fixture{
		store:    store,
		svc:      svc,
		notifier: notifier,
		metrics:  metrics,
		agent:    agent,
		seeker:   seeker,
		property: property,
		interest: in,
	}
}

func (f *fixture) credits(t *testing.T) int {
	t.Helper()
	c, err := f.store.Users().GetCredits(context.Background(), f.agent.ID)
	require.NoError(t, err)
	return c
}

func (f *fixture) reload(t *testing.T) *models.Interest {
	t.Helper()
	in, err := f.store.Interests().GetByID(context.Background(), f.interest.ID)
	require.NoError(t, err)
	return in
}

func TestExpress(t *testing.T) {
	f := newFixture(t, 0)

	assert.Equal(t, "Is it still available?", f.interest.Message)
	assert.Equal(t, models.InterestStatusPending, f.interest.Status)
	assert.False(t, f.interest.Unlocked)

	sent := f.notifier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, f.agent.ID, sent[0].UserID)
	assert.Equal(t, models.NotificationInterestNew, sent[0].Type)

	tests := []struct {
		name       string
		seekerID   uint
		propertyID uint
		message    string
		want       error
	}{
		{"duplicate", f.seeker.ID, f.property.ID, "again", apperrors.ErrDuplicateInterest},
		{"missing property", f.seeker.ID, 9999, "", apperrors.ErrPropertyNotFound},
		{"own property", f.agent.ID, f.property.ID, "", apperrors.ErrInvalidInput},
		{"message too long", f.seeker.ID, f.property.ID, string(make([]byte, maxMessageLength+1)), apperrors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Express(context.Background(), tt.seekerID, tt.propertyID, tt.message)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUnlock_SpendsCreditsOnce(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	res, err := f.svc.Unlock(ctx, f.interest.ID, f.agent.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, res.CreditsRemaining)
	assert.Equal(t, UnlockCost, res.CreditsSpent)
	assert.True(t, res.Interest.Unlocked)
	assert.False(t, res.Interest.Masked)
	require.NotNil(t, res.Interest.Contact)
	assert.Equal(t, "seeker@example.com", res.Interest.Contact.Email)
	assert.Equal(t, "+2348000000000", res.Interest.Contact.Phone)

	stored := f.reload(t)
	assert.True(t, stored.Unlocked)
	assert.Equal(t, models.InterestStatusContacted, stored.Status)
	assert.NotNil(t, stored.UnlockedAt)
	assert.Equal(t, 5, f.credits(t))

	_, err = f.svc.Unlock(ctx, f.interest.ID, f.agent.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyUnlocked)
	assert.Equal(t, 5, f.credits(t))

	spent, total, err := f.store.Ledger().ListByUser(ctx, f.agent.ID, models.TransactionTypeCreditSpent, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, models.TransactionStatusCompleted, spent[0].Status)
	assert.Equal(t, UnlockCost, spent[0].Credits)
	require.NotNil(t, spent[0].InterestID)
	assert.Equal(t, f.interest.ID, *spent[0].InterestID)

	ledger, err := f.store.Ledger().CreditBalance(ctx, f.agent.ID)
	require.NoError(t, err)
	assert.Equal(t, f.credits(t), ledger)

	sent := f.notifier.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, f.seeker.ID, sent[1].UserID)
	assert.Equal(t, models.NotificationInterestUnlock, sent[1].Type)

	assert.Equal(t, 1, f.metrics.unlocks[ResultUnlocked])
	assert.Equal(t, 1, f.metrics.unlocks[ResultAlreadyDone])
}

func TestUnlock_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		credits int
		agent   func(f *fixture) uint
		id      func(f *fixture) uint
		want    error
		result  string
	}{
		{
			name:    "insufficient credits",
			credits: 4,
			agent:   func(f *fixture) uint { return f.agent.ID },
			id:      func(f *fixture) uint { return f.interest.ID },
			want:    apperrors.ErrInsufficientCredits,
			result:  ResultInsufficient,
		},
		{
			name:    "not the property owner",
			credits: 10,
			agent:   func(f *fixture) uint { return f.seeker.ID },
			id:      func(f *fixture) uint { return f.interest.ID },
			want:    apperrors.ErrNotPropertyOwner,
			result:  ResultNotOwner,
		},
		{
			name:    "unknown interest",
			credits: 10,
			agent:   func(f *fixture) uint { return f.agent.ID },
			id:      func(f *fixture) uint { return 4242 },
			want:    apperrors.ErrInterestNotFound,
			result:  ResultNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.credits)

			_, err := f.svc.Unlock(context.Background(), tt.id(f), tt.agent(f))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.credits, f.credits(t))
			assert.False(t, f.reload(t).Unlocked)
			assert.Equal(t, 1, f.metrics.unlocks[tt.result])

			_, total, err := f.store.Ledger().ListByUser(context.Background(), f.agent.ID, models.TransactionTypeCreditSpent, 10, 0)
			require.NoError(t, err)
			assert.Zero(t, total)
		})
	}
}

func TestUnlock_InsufficientCreditsMessage(t *testing.T) {
	f := newFixture(t, 2)

	_, err := f.svc.Unlock(context.Background(), f.interest.ID, f.agent.ID)
	de, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "unlocking requires 5 credits, you have 2", de.Message)
}

func TestUnlock_ConcurrentCallsSpendOnce(t *testing.T) {
	f := newFixture(t, 10)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Unlock(context.Background(), f.interest.ID, f.agent.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrAlreadyUnlocked)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 5, f.credits(t))
}

func TestListingsMaskContactUntilUnlocked(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	views, err := f.svc.ListForAgent(ctx, f.agent.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].Masked)
	assert.Nil(t, views[0].Contact)
	assert.Nil(t, views[0].Seeker)

	_, err = f.svc.Unlock(ctx, f.interest.ID, f.agent.ID)
	require.NoError(t, err)

	views, err = f.svc.ListForAgent(ctx, f.agent.ID)
	require.NoError(t, err)
	require.NotNil(t, views[0].Contact)
	assert.Equal(t, "Ada Seeker", views[0].Contact.Name)

	mine, err := f.svc.ListForSeeker(ctx, f.seeker.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Nil(t, mine[0].Contact)
	require.NotNil(t, mine[0].Property)
	assert.Equal(t, "2 bed flat", mine[0].Property.Title)
}

func TestGet(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	v, err := f.svc.Get(ctx, f.interest.ID, f.seeker.ID)
	require.NoError(t, err)
	assert.False(t, v.Masked)

	v, err = f.svc.Get(ctx, f.interest.ID, f.agent.ID)
	require.NoError(t, err)
	assert.True(t, v.Masked)

	_, err = f.svc.Get(ctx, f.interest.ID, 999)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.svc.Get(ctx, 999, f.agent.ID)
	assert.ErrorIs(t, err, apperrors.ErrInterestNotFound)
}
