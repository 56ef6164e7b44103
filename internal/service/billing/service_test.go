package billing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/tembichat/internal/db"
	svcErr "github.com/oggyb/tembichat/internal/errors"
	"github.com/oggyb/tembichat/internal/notify"
	"github.com/oggyb/tembichat/internal/service/billing"
	"github.com/oggyb/tembichat/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (r *recorder) Notify(_ context.Context, ev notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func setupService(t *testing.T) (*billing.Service, *testutil.Env, *recorder) {
	t.Helper()
	env := testutil.New(t)
	rec := &recorder{}
	return billing.NewService(env.App, rec), env, rec
}

func TestPlansCatalog(t *testing.T) {
	svc, _, _ := setupService(t)

	plans := svc.Plans()
	require.Len(t, plans, 3)
	prices := map[db.Plan]int{}
	for _, p := range plans {
		prices[p.ID] = p.Price
		assert.Equal(t, "ZAR", p.Currency)
	}
	assert.Equal(t, map[db.Plan]int{db.PlanBasic: 50, db.PlanPlus: 100, db.PlanPro: 300}, prices)

	_, ok := billing.LookupPlan(db.PlanFree)
	assert.False(t, ok)

	opts := svc.PaymentOptions()
	require.Len(t, opts, 3)
	assert.Nil(t, opts[0].BankDetails)
	require.NotNil(t, opts[2].BankDetails)
	assert.Equal(t, db.MethodBankTransfer, opts[2].ID)
}

func TestInitiate(t *testing.T) {
	svc, env, _ := setupService(t)
	ctx := context.Background()
	u := env.CreateUser(t, "Buyer")

	intent, err := svc.Initiate(ctx, u.ID, "plus", "fastpay")
	require.NoError(t, err)
	assert.Equal(t, 100, intent.Amount)
	assert.Equal(t, db.PaymentPending, intent.Status)
	assert.Equal(t, "https://fastpay.test/pay?amount=100&reference="+intent.TransactionID, intent.PaymentURL)

	bank, err := svc.Initiate(ctx, u.ID, "basic", "bank_transfer")
	require.NoError(t, err)
	assert.Empty(t, bank.PaymentURL)
	require.NotNil(t, bank.BankDetails)
	assert.NotEqual(t, intent.TransactionID, bank.TransactionID)

	_, err = svc.Initiate(ctx, u.ID, "platinum", "ozow")
	assert.ErrorIs(t, err, svcErr.ErrInvalidPlan)
	_, err = svc.Initiate(ctx, u.ID, "free", "ozow")
	assert.ErrorIs(t, err, svcErr.ErrInvalidPlan)
	_, err = svc.Initiate(ctx, u.ID, "pro", "")
	assert.ErrorIs(t, err, svcErr.ErrMissingMethod)
	_, err = svc.Initiate(ctx, u.ID, "pro", "bitcoin")
	assert.ErrorIs(t, err, svcErr.ErrInvalidMethod)

	history, err := svc.History(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2, "rejected initiations write nothing")
}

func TestConfirm_ProGrantsUnlimited(t *testing.T) {
	svc, env, rec := setupService(t)
	ctx := context.Background()
	u := env.CreateUser(t, "Buyer", testutil.WithPlan(db.PlanFree, 0))

	intent, err := svc.Initiate(ctx, u.ID, "pro", "ozow")
	require.NoError(t, err)

	env.Clock.Advance(time.Minute)
	res, err := svc.Confirm(ctx, u.ID, intent.PaymentID, "OZOW-REF-1")
	require.NoError(t, err)
	assert.False(t, res.AlreadyCompleted)
	assert.Equal(t, db.PlanPro, res.NewPlan)
	assert.Equal(t, db.PaymentCompleted, res.Payment.Status)
	assert.Equal(t, "OZOW-REF-1", res.Payment.ConfirmedReference)

	got, err := env.App.Store.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, db.PlanPro, got.Plan)
	assert.True(t, got.IsPremium)
	assert.Equal(t, db.Unlimited, got.MessageCount)
	assert.Equal(t, db.Unlimited, got.ImageUploadCount)

	require.Len(t, rec.events, 1)
	assert.Equal(t, notify.EventPaymentCompleted, rec.events[0].Type)
	assert.Equal(t, "pro", rec.events[0].Data["plan"])
}

func TestConfirm_SecondCallIsNoOp(t *testing.T) {
	svc, env, rec := setupService(t)
	ctx := context.Background()
	u := env.CreateUser(t, "Buyer")

	intent, err := svc.Initiate(ctx, u.ID, "basic", "fastpay")
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, u.ID, intent.PaymentID, intent.TransactionID)
	require.NoError(t, err)

	// spend some of the grant, then confirm again
	require.NoError(t, env.App.Store.Users.ApplyPlan(ctx, u.ID, db.PlanBasic, 42, 20))
	res, err := svc.Confirm(ctx, u.ID, intent.PaymentID, intent.TransactionID)
	require.NoError(t, err)
	assert.True(t, res.AlreadyCompleted)

	got, err := env.App.Store.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 42, got.MessageCount, "grant is not re-applied")
	assert.Len(t, rec.events, 1)
}

func TestConfirm_ConcurrentAppliesOnce(t *testing.T) {
	svc, env, rec := setupService(t)
	ctx := context.Background()
	u := env.CreateUser(t, "Buyer")

	intent, err := svc.Initiate(ctx, u.ID, "plus", "ozow")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	fresh := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Confirm(ctx, u.ID, intent.PaymentID, "REF")
			if assert.NoError(t, err) && !res.AlreadyCompleted {
				mu.Lock()
				fresh++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fresh)
	assert.Len(t, rec.events, 1)
}

func TestConfirm_Errors(t *testing.T) {
	svc, env, _ := setupService(t)
	ctx := context.Background()
	owner := env.CreateUser(t, "Owner")
	thief := env.CreateUser(t, "Thief")

	intent, err := svc.Initiate(ctx, owner.ID, "basic", "ozow")
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, owner.ID, "", "")
	require.ErrorIs(t, err, svcErr.ErrMissingFields)
	assert.Equal(t, []string{"paymentId", "transactionId"}, svcErr.Map(err).Fields)

	_, err = svc.Confirm(ctx, thief.ID, intent.PaymentID, "REF")
	assert.ErrorIs(t, err, svcErr.ErrPaymentNotFound)

	_, err = svc.Confirm(ctx, owner.ID, "nope", "REF")
	assert.ErrorIs(t, err, svcErr.ErrPaymentNotFound)

	// failed payments stay failed
	p, err := env.App.Store.Payments.GetForUser(ctx, intent.PaymentID, owner.ID)
	require.NoError(t, err)
	p.Status = db.PaymentFailed
	require.NoError(t, env.App.Store.Payments.Save(ctx, p))
	_, err = svc.Confirm(ctx, owner.ID, intent.PaymentID, "REF")
	assert.ErrorIs(t, err, svcErr.ErrPaymentFailed)
}

func TestConfirm_NotifierFailureDoesNotRollBack(t *testing.T) {
	svc, env, rec := setupService(t)
	rec.err = errors.New("whatsapp down")
	ctx := context.Background()
	u := env.CreateUser(t, "Buyer")

	intent, err := svc.Initiate(ctx, u.ID, "basic", "fastpay")
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, u.ID, intent.PaymentID, "REF")
	require.NoError(t, err)

	got, err := env.App.Store.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, db.PlanBasic, got.Plan)
	assert.Equal(t, 100, got.MessageCount)
}

func TestHistory_NewestFirst(t *testing.T) {
	svc, env, _ := setupService(t)
	ctx := context.Background()
	u := env.CreateUser(t, "Buyer")

	first, err := svc.Initiate(ctx, u.ID, "basic", "ozow")
	require.NoError(t, err)
	env.Clock.Advance(time.Minute)
	second, err := svc.Initiate(ctx, u.ID, "pro", "ozow")
	require.NoError(t, err)

	history, err := svc.History(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.PaymentID, history[0].ID)
	assert.Equal(t, first.PaymentID, history[1].ID)
}
