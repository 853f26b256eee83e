package credit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "estatehub/internal/errors"
	"estatehub/internal/models"
	"estatehub/internal/repositories"
	"estatehub/internal/repositories/memory"
	"estatehub/internal/services/notification"
	"estatehub/internal/services/payment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu        sync.Mutex
	status    string
	statuses  map[string]string
	amount    int64
	verifyErr error
	initErr   error
	delay     time.Duration

	verifyCalls int32
}

func (g *fakeGateway) Name() string { return payment.GatewayPaystack }

func (g *fakeGateway) Initialize(_ context.Context, req payment.InitializeRequest) (*payment.InitializeResult, error) {
	if g.initErr != nil {
		return nil, g.initErr
	}
	return &payment.InitializeResult{
		AuthorizationURL: "https://checkout.test/" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func (g *fakeGateway) Verify(_ context.Context, reference string) (*payment.VerifyResult, error) {
	atomic.AddInt32(&g.verifyCalls, 1)
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	g.mu.Lock()
	status, ok := g.statuses[reference]
	g.mu.Unlock()
	if !ok {
		status = g.status
	}
	return &payment.VerifyResult{
		Status:    status,
		Amount:    g.amount,
		Currency:  "NGN",
		Reference: reference,
		GatewayID: "9001",
		Channel:   "card",
	}, nil
}

func (g *fakeGateway) ParseWebhook([]byte, string) (*payment.WebhookEvent, error) {
	return nil, payment.ErrInvalidSignature
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []notification.Input
}

func (n *recordingNotifier) Send(_ context.Context, in notification.Input) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, in)
}

func (n *recordingNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, in := range n.items {
		if in.Type == kind {
			c++
		}
	}
	return c
}

type fixture struct {
	store    *memory.Store
	gateway  *fakeGateway
	notifier *recordingNotifier
	svc      Service
	user     *models.User
	bundle   *models.CreditBundle
}

// newFixture seeds a seeker with no credits and a 20+5 credit bundle priced 50.00.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	user := &models.User{Email: "seeker@example.com", Name: "Seeker", Role: models.RoleSeeker}
	require.NoError(t, store.Users().Create(ctx, user))
	bundle := &models.CreditBundle{Name: "Starter", Credits: 20, Bonus: 5, Price: decimal.NewFromInt(50), Currency: "NGN", Active: true}
	require.NoError(t, store.Bundles().Create(ctx, bundle))

	gw := &fakeGateway{status: payment.StatusSuccess, amount: bundle.MinorAmount()}
	notifier := &recordingNotifier{}
	return &fixture{
		store:    store,
		gateway:  gw,
		notifier: notifier,
		svc:      newTestService(store, gw, notifier),
		user:     user,
		bundle:   bundle,
	}
}

func newTestService(store repositories.Store, gw payment.Gateway, notifier Notifier) Service {
	return NewService(store, payment.NewRegistry(payment.GatewayPaystack, gw), nil, notifier,
		Config{FrontendURL: "http://front", CallbackURL: "http://api/api/credits/callback"}, nil, nil)
}

func (f *fixture) purchase(t *testing.T) string {
	t.Helper()
	res, err := f.svc.Purchase(context.Background(), f.user.ID, f.bundle.ID, "")
	require.NoError(t, err)
	return res.Reference
}

func (f *fixture) balance(t *testing.T) int {
	t.Helper()
	credits, err := f.store.Users().GetCredits(context.Background(), f.user.ID)
	require.NoError(t, err)
	return credits
}

func TestPurchase_CreatesPendingTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Purchase(ctx, f.user.ID, f.bundle.ID, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Reference, "CRD-"))
	assert.Equal(t, "https://checkout.test/"+res.Reference, res.AuthorizationURL)
	assert.EqualValues(t, 5000, res.Amount)
	assert.Equal(t, 25, res.Credits)

	tx, err := f.store.Ledger().GetByReference(ctx, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusPending, tx.Status)
	assert.Equal(t, models.TransactionTypeCreditPurchase, tx.Type)
	assert.Equal(t, 0, f.balance(t))
}

func TestPurchase_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*fixture) (userID, bundleID uint, gateway string)
		wantErr error
	}{
		{
			name:    "unknown bundle",
			setup:   func(f *fixture) (uint, uint, string) { return f.user.ID, 999, "" },
			wantErr: apperrors.ErrBundleNotFound,
		},
		{
			name: "inactive bundle",
			setup: func(f *fixture) (uint, uint, string) {
				f.bundle.Active = false
				require.NoError(t, f.store.Bundles().Update(context.Background(), f.bundle))
				return f.user.ID, f.bundle.ID, ""
			},
			wantErr: apperrors.ErrBundleInactive,
		},
		{
			name:    "unknown gateway",
			setup:   func(f *fixture) (uint, uint, string) { return f.user.ID, f.bundle.ID, "bitcoin" },
			wantErr: apperrors.ErrUnknownGateway,
		},
		{
			name:    "unknown user",
			setup:   func(f *fixture) (uint, uint, string) { return 404, f.bundle.ID, "" },
			wantErr: apperrors.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			userID, bundleID, gw := tt.setup(f)
			_, err := f.svc.Purchase(context.Background(), userID, bundleID, gw)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPurchase_GatewayFailureMarksTransactionFailed(t *testing.T) {
	f := newFixture(t)
	f.gateway.initErr = errors.New("connection refused")

	_, err := f.svc.Purchase(context.Background(), f.user.ID, f.bundle.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrGatewayUnavailable)

	page, err := f.svc.Transactions(context.Background(), f.user.ID, "", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, models.TransactionStatusFailed, page.Items[0].Status)
}

func TestSettle_CreditsBalanceOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ref := f.purchase(t)

	res, err := f.svc.Verify(ctx, f.user.ID, ref)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSettled, res.Outcome)
	assert.Equal(t, 25, res.Balance)
	assert.Equal(t, 25, res.Credits)
	assert.Equal(t, models.TransactionStatusCompleted, res.Transaction.Status)
	assert.Equal(t, "9001", res.Transaction.Metadata["gateway_id"])
	assert.Equal(t, 1, f.notifier.count(models.NotificationCreditsAdded))

	res, err = f.svc.Verify(ctx, f.user.ID, ref)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadySettled, res.Outcome)
	assert.Equal(t, 25, res.Balance)
	assert.EqualValues(t, 1, atomic.LoadInt32(&f.gateway.verifyCalls), "completed purchases must not hit the gateway again")
	assert.Equal(t, 1, f.notifier.count(models.NotificationCreditsAdded))
	assert.Equal(t, 25, f.balance(t))
}

func TestSettle_ConcurrentCallsCreditOnce(t *testing.T) {
	f := newFixture(t)
	f.gateway.delay = 20 * time.Millisecond
	ref := f.purchase(t)

	// A second instance over the same store stands in for another server.
	other := newTestService(f.store, f.gateway, f.notifier)
	services := []Service{f.svc, other}

	var wg sync.WaitGroup
	outcomes := make(chan Outcome, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(svc Service, source Source) {
			defer wg.Done()
			res, err := svc.Settle(context.Background(), ref, source)
			if assert.NoError(t, err) {
				outcomes <- res.Outcome
			}
		}(services[i%2], []Source{SourceVerify, SourceWebhook}[i%2])
	}
	wg.Wait()
	close(outcomes)

	// Callers collapsed onto the winning run share its Settled outcome.
	settled := 0
	for o := range outcomes {
		assert.Contains(t, []Outcome{OutcomeSettled, OutcomeAlreadySettled}, o)
		if o == OutcomeSettled {
			settled++
		}
	}
	assert.GreaterOrEqual(t, settled, 1)
	assert.Equal(t, 25, f.balance(t))
	assert.Equal(t, 1, f.notifier.count(models.NotificationCreditsAdded))

	ledger, err := f.svc.LedgerBalance(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, ledger)
}

func TestSettle_JoinedCallerUnaffectedByFirstCallerCancel(t *testing.T) {
	f := newFixture(t)
	f.gateway.delay = 100 * time.Millisecond
	ref := f.purchase(t)

	firstCtx, cancel := context.WithCancel(context.Background())
	first := make(chan struct{})
	go func() {
		defer close(first)
		_, _ = f.svc.Settle(firstCtx, ref, SourceCallback)
	}()
	time.Sleep(20 * time.Millisecond)

	second := make(chan *SettlementResult, 1)
	go func() {
		res, err := f.svc.Settle(context.Background(), ref, SourceVerify)
		assert.NoError(t, err)
		second <- res
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	res := <-second
	<-first
	require.NotNil(t, res)
	assert.Contains(t, []Outcome{OutcomeSettled, OutcomeAlreadySettled}, res.Outcome)
	assert.Equal(t, 25, f.balance(t))
}

func TestSettle_ProviderOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		configure   func(*fakeGateway)
		wantOutcome Outcome
		wantErr     error
		wantStatus  string
	}{
		{
			name:        "abandoned payment fails the purchase",
			configure:   func(g *fakeGateway) { g.status = payment.StatusAbandoned },
			wantOutcome: OutcomePaymentFailed,
			wantErr:     apperrors.ErrTransactionFailed,
			wantStatus:  models.TransactionStatusFailed,
		},
		{
			name:        "amount mismatch fails the purchase",
			configure:   func(g *fakeGateway) { g.amount = 100 },
			wantOutcome: OutcomePaymentFailed,
			wantErr:     apperrors.ErrAmountMismatch,
			wantStatus:  models.TransactionStatusFailed,
		},
		{
			name:        "pending payment is left alone",
			configure:   func(g *fakeGateway) { g.status = payment.StatusPending },
			wantOutcome: OutcomeUpstreamFailure,
			wantErr:     apperrors.ErrPaymentPending,
			wantStatus:  models.TransactionStatusPending,
		},
		{
			name:        "gateway outage is an upstream failure",
			configure:   func(g *fakeGateway) { g.verifyErr = payment.ErrUpstream },
			wantOutcome: OutcomeUpstreamFailure,
			wantErr:     apperrors.ErrGatewayUnavailable,
			wantStatus:  models.TransactionStatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ref := f.purchase(t)
			tt.configure(f.gateway)

			res, err := f.svc.Settle(context.Background(), ref, SourceVerify)
			assert.ErrorIs(t, err, tt.wantErr)
			require.NotNil(t, res)
			assert.Equal(t, tt.wantOutcome, res.Outcome)
			assert.Equal(t, 0, f.balance(t))

			tx, err := f.store.Ledger().GetByReference(context.Background(), ref)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, tx.Status)
		})
	}
}

func TestSettle_FailedPurchaseStaysFailed(t *testing.T) {
	f := newFixture(t)
	ref := f.purchase(t)
	f.gateway.amount = 1

	_, err := f.svc.Settle(context.Background(), ref, SourceVerify)
	require.ErrorIs(t, err, apperrors.ErrAmountMismatch)
	assert.Equal(t, 1, f.notifier.count(models.NotificationPaymentFailed))

	f.gateway.amount = f.bundle.MinorAmount()
	res, err := f.svc.Settle(context.Background(), ref, SourceWebhook)
	assert.ErrorIs(t, err, apperrors.ErrTransactionFailed)
	assert.Equal(t, OutcomePaymentFailed, res.Outcome)
	assert.Equal(t, 0, f.balance(t))
}

func TestSettle_UnknownReference(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Settle(context.Background(), "CRD-nope", SourceCallback)
	assert.ErrorIs(t, err, apperrors.ErrTransactionNotFound)
	assert.Equal(t, OutcomeNotFound, res.Outcome)

	_, err = f.svc.Settle(context.Background(), "  ", SourceCallback)
	assert.ErrorIs(t, err, apperrors.ErrMissingRef)
}

func TestVerify_RejectsOtherUsersReference(t *testing.T) {
	f := newFixture(t)
	ref := f.purchase(t)

	_, err := f.svc.Verify(context.Background(), f.user.ID+100, ref)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.EqualValues(t, 0, atomic.LoadInt32(&f.gateway.verifyCalls))
}

func TestHandleCallback_Redirects(t *testing.T) {
	f := newFixture(t)
	ref := f.purchase(t)

	target, res, err := f.svc.HandleCallback(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSettled, res.Outcome)
	assert.Equal(t, "http://front/credits?reference="+ref+"&status=success", target)

	target, _, err = f.svc.HandleCallback(context.Background(), "CRD-missing")
	assert.Error(t, err)
	assert.Equal(t, "http://front/credits?reference=CRD-missing&status=error", target)
}

func TestHandleWebhook_Paystack(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	user := &models.User{Email: "buyer@example.com", Name: "Buyer"}
	require.NoError(t, store.Users().Create(ctx, user))
	bundle := &models.CreditBundle{Name: "Pro", Credits: 25, Price: decimal.NewFromInt(50), Active: true}
	require.NoError(t, store.Bundles().Create(ctx, bundle))

	var verifyCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/transaction/initialize":
			w.Write([]byte(`{"status":true,"data":{"authorization_url":"https://paystack.test/x","access_code":"x"}}`))
		case strings.HasPrefix(r.URL.Path, "/transaction/verify/"):
			atomic.AddInt32(&verifyCalls, 1)
			ref := strings.TrimPrefix(r.URL.Path, "/transaction/verify/")
			w.Write([]byte(`{"status":true,"data":{"id":1,"status":"success","reference":"` + ref + `","amount":5000,"currency":"NGN","channel":"card"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	paystack := payment.NewPaystack(payment.PaystackConfig{SecretKey: "sk_test", BaseURL: srv.URL})
	svc := newTestService(store, paystack, nil)

	purchase, err := svc.Purchase(ctx, user.ID, bundle.ID, payment.GatewayPaystack)
	require.NoError(t, err)
	payload := []byte(`{"event":"charge.success","data":{"reference":"` + purchase.Reference + `","amount":5000}}`)

	t.Run("bad signature changes nothing", func(t *testing.T) {
		_, err := svc.HandleWebhook(ctx, payment.GatewayPaystack, payload, strings.Repeat("ab", 64))
		assert.ErrorIs(t, err, apperrors.ErrInvalidSignature)

		tx, err := store.Ledger().GetByReference(ctx, purchase.Reference)
		require.NoError(t, err)
		assert.Equal(t, models.TransactionStatusPending, tx.Status)
		credits, _ := store.Users().GetCredits(ctx, user.ID)
		assert.Equal(t, 0, credits)
		assert.EqualValues(t, 0, atomic.LoadInt32(&verifyCalls))
	})

	t.Run("ignored event", func(t *testing.T) {
		other := []byte(`{"event":"transfer.success","data":{"reference":"x"}}`)
		res, err := svc.HandleWebhook(ctx, payment.GatewayPaystack, other, paystack.Sign(other))
		assert.NoError(t, err)
		assert.Nil(t, res)
	})

	t.Run("valid signature settles", func(t *testing.T) {
		res, err := svc.HandleWebhook(ctx, payment.GatewayPaystack, payload, paystack.Sign(payload))
		require.NoError(t, err)
		assert.Equal(t, OutcomeSettled, res.Outcome)
		assert.Equal(t, 25, res.Balance)
	})

	t.Run("redelivery is idempotent", func(t *testing.T) {
		res, err := svc.HandleWebhook(ctx, payment.GatewayPaystack, payload, paystack.Sign(payload))
		require.NoError(t, err)
		assert.Equal(t, OutcomeAlreadySettled, res.Outcome)
		assert.Equal(t, 25, res.Balance)
		assert.EqualValues(t, 1, atomic.LoadInt32(&verifyCalls))
	})
}

func TestBalanceAndTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ref := f.purchase(t)
	_, err := f.svc.Settle(ctx, ref, SourceVerify)
	require.NoError(t, err)

	balance, err := f.svc.Balance(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, balance)

	page, err := f.svc.Transactions(ctx, f.user.ID, models.TransactionTypeCreditPurchase, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	_, err = f.svc.Transactions(ctx, f.user.ID, "refund", 1, 10)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestBundles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateBundle(ctx, BundleInput{Name: "Agency", Credits: 100, Bonus: 20, Price: decimal.RequireFromString("199.99")})
	require.NoError(t, err)
	assert.Equal(t, "NGN", created.Currency)
	assert.EqualValues(t, 19999, created.MinorAmount())

	_, err = f.svc.CreateBundle(ctx, BundleInput{Name: "Free", Credits: 10})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	inactive := false
	_, err = f.svc.UpdateBundle(ctx, f.bundle.ID, BundleUpdate{Active: &inactive})
	require.NoError(t, err)

	bundles, err := f.svc.ListBundles(ctx)
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	assert.Equal(t, "Agency", bundles[0].Name)

	_, err = f.svc.UpdateBundle(ctx, 999, BundleUpdate{})
	assert.ErrorIs(t, err, apperrors.ErrBundleNotFound)
}
