package billing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oggyb/tembichat/internal/app"
	"github.com/oggyb/tembichat/internal/db"
	svcErr "github.com/oggyb/tembichat/internal/errors"
	"github.com/oggyb/tembichat/internal/lock"
	"github.com/oggyb/tembichat/internal/metrics"
	"github.com/oggyb/tembichat/internal/notify"
	"github.com/oggyb/tembichat/internal/repository"
)

const notifyTimeout = 3 * time.Second

// Intent is returned by Initiate: where to pay and which reference to quote.
type Intent struct {
	PaymentID     string           `json:"paymentId"`
	TransactionID string           `json:"transactionId"`
	Plan          db.Plan          `json:"plan"`
	Amount        int              `json:"amount"`
	Currency      string           `json:"currency"`
	Method        db.PaymentMethod `json:"paymentMethod"`
	Status        db.PaymentStatus `json:"status"`
	PaymentURL    string           `json:"paymentUrl,omitempty"`
	BankDetails   *BankDetails     `json:"bankDetails,omitempty"`
}

// Confirmation is returned by Confirm.
type Confirmation struct {
	Payment *db.Payment `json:"payment"`
	NewPlan db.Plan     `json:"newPlan"`
	// AlreadyCompleted is set when the payment had been confirmed before;
	// nothing was re-applied.
	AlreadyCompleted bool `json:"alreadyCompleted"`
}

// Service runs the pending → completed payment lifecycle and applies
// plan grants. No payment gateway is contacted.
type Service struct {
	appCtx   *app.AppContext
	notifier notify.Notifier
}

// NewService creates the billing service. notifier may be nil.
func NewService(appCtx *app.AppContext, notifier notify.Notifier) *Service {
	return &Service{appCtx: appCtx, notifier: notifier}
}

func (s *Service) Plans() []Plan {
	out := make([]Plan, len(catalog))
	copy(out, catalog)
	return out
}

func (s *Service) PaymentOptions() []PaymentOption {
	return []PaymentOption{
		{
			ID: db.MethodFastPay, Name: "FastPay",
			Description: "Instant payment via FastPay", ProcessingTime: "Instant",
		},
		{
			ID: db.MethodOzow, Name: "Ozow Pay",
			Description: "Secure EFT payment", ProcessingTime: "1-2 minutes",
		},
		{
			ID: db.MethodBankTransfer, Name: "Direct Bank Transfer",
			Description: "Transfer directly to our bank account", ProcessingTime: "Manual verification required",
			BankDetails: s.bankDetails(),
		},
	}
}

// Initiate records a pending payment for plan and tells the caller how to pay.
func (s *Service) Initiate(ctx context.Context, userID, plan, method string) (*Intent, error) {
	s.appCtx.Logger.Debug("Initiate called", "user_id", userID, "plan", plan, "method", method)

	p, ok := LookupPlan(db.Plan(strings.ToLower(strings.TrimSpace(plan))))
	if !ok {
		return nil, svcErr.ErrInvalidPlan.WithFields("plan")
	}
	m := db.PaymentMethod(strings.ToLower(strings.TrimSpace(method)))
	switch m {
	case "":
		return nil, svcErr.ErrMissingMethod.WithFields("paymentMethod")
	case db.MethodFastPay, db.MethodOzow, db.MethodBankTransfer:
	default:
		return nil, svcErr.ErrInvalidMethod.WithFields("paymentMethod")
	}

	payment := &db.Payment{
		ID:            uuid.NewString(),
		UserID:        userID,
		Plan:          p.ID,
		Amount:        p.Price,
		Currency:      p.Currency,
		Status:        db.PaymentPending,
		Method:        m,
		TransactionID: "TXN_" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")),
		CreatedAt:     s.appCtx.Now(),
	}
	if err := s.appCtx.Store.Payments.Create(ctx, payment); err != nil {
		s.appCtx.Logger.Error("create payment failed", "user_id", userID, "err", err)
		return nil, svcErr.Map(err)
	}
	metrics.RecordPayment(string(p.ID), string(db.PaymentPending))

	intent := &Intent{
		PaymentID:     payment.ID,
		TransactionID: payment.TransactionID,
		Plan:          payment.Plan,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		Method:        payment.Method,
		Status:        payment.Status,
	}
	switch m {
	case db.MethodFastPay:
		intent.PaymentURL = redirectURL(s.appCtx.Config.Payments.FastPayURL, payment)
	case db.MethodOzow:
		intent.PaymentURL = redirectURL(s.appCtx.Config.Payments.OzowURL, payment)
	case db.MethodBankTransfer:
		intent.BankDetails = s.bankDetails()
	}
	return intent, nil
}

// Confirm completes a pending payment owned by userID and applies the plan.
//
// Behavior:
//   - paymentID and transactionID are required → ErrMissingFields.
//   - Payment must exist and belong to userID → ErrPaymentNotFound.
//   - Already completed → no-op, the stored state is returned and the grant
//     is not applied again.
//   - Failed → ErrPaymentFailed.
//   - Otherwise: status completed, plan + quota grant written to the user,
//     isPremium set, all in one transaction under the payment's lock.
//
// A payment.completed notification follows the commit; its failure is
// logged and does not affect the result.
func (s *Service) Confirm(ctx context.Context, userID, paymentID, transactionID string) (*Confirmation, error) {
	s.appCtx.Logger.Debug("Confirm called", "user_id", userID, "payment_id", paymentID)

	var missing []string
	if paymentID == "" {
		missing = append(missing, "paymentId")
	}
	if strings.TrimSpace(transactionID) == "" {
		missing = append(missing, "transactionId")
	}
	if len(missing) > 0 {
		return nil, svcErr.ErrMissingFields.WithFields(missing...)
	}

	// the user lock keeps profile saves from overwriting the new plan
	unlock := s.appCtx.Locks.Lock(lock.PaymentKey(paymentID), lock.UserKey(userID))
	defer unlock()

	res := &Confirmation{}
	err := s.appCtx.Store.Transaction(ctx, func(tx *repository.Store) error {
		payment, err := tx.Payments.GetForUser(ctx, paymentID, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return svcErr.ErrPaymentNotFound
		}
		if err != nil {
			return err
		}
		res.Payment = payment
		res.NewPlan = payment.Plan

		switch payment.Status {
		case db.PaymentCompleted:
			res.AlreadyCompleted = true
			return nil
		case db.PaymentFailed:
			return svcErr.ErrPaymentFailed
		}

		plan, ok := LookupPlan(payment.Plan)
		if !ok {
			return fmt.Errorf("payment %s carries unknown plan %q", payment.ID, payment.Plan)
		}

		now := s.appCtx.Now()
		payment.Status = db.PaymentCompleted
		payment.CompletedAt = &now
		payment.ConfirmedReference = strings.TrimSpace(transactionID)
		if err := tx.Payments.Save(ctx, payment); err != nil {
			return err
		}
		return tx.Users.ApplyPlan(ctx, userID, plan.ID, plan.MessageGrant, plan.UploadGrant)
	})
	if err != nil {
		var se *svcErr.Error
		if !errors.As(err, &se) {
			s.appCtx.Logger.Error("confirm payment failed", "payment_id", paymentID, "err", err)
		}
		return nil, svcErr.Map(err)
	}

	if res.AlreadyCompleted {
		s.appCtx.Logger.Info("payment already completed", "payment_id", paymentID)
		return res, nil
	}

	metrics.RecordPayment(string(res.NewPlan), string(db.PaymentCompleted))
	s.appCtx.Logger.Info("payment completed", "payment_id", paymentID, "user_id", userID, "plan", res.NewPlan)
	s.notifyCompleted(ctx, res.Payment)
	return res, nil
}

// History returns the user's payments, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]db.Payment, error) {
	payments, err := s.appCtx.Store.Payments.ListForUser(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if payments == nil {
		payments = []db.Payment{}
	}
	return payments, nil
}

func (s *Service) notifyCompleted(ctx context.Context, p *db.Payment) {
	if s.notifier == nil {
		return
	}
	// the request may already be gone; delivery gets its own deadline
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	name := p.UserID
	if u, err := s.appCtx.Store.Users.GetByID(nctx, p.UserID); err == nil {
		name = u.Name
	}

	ev := notify.Event{
		Type:       notify.EventPaymentCompleted,
		UserID:     p.UserID,
		OccurredAt: s.appCtx.Now(),
		Data: map[string]any{
			"paymentId":     p.ID,
			"transactionId": p.TransactionID,
			"plan":          string(p.Plan),
			"amount":        p.Amount,
			"currency":      p.Currency,
			"message": fmt.Sprintf("Payment received for %s by %s. TembiChat access updated.",
				p.Plan, name),
		},
	}
	if err := s.notifier.Notify(nctx, ev); err != nil {
		s.appCtx.Logger.Warn("payment notification failed", "payment_id", p.ID, "err", err)
	}
}

func (s *Service) bankDetails() *BankDetails {
	cfg := s.appCtx.Config.Payments
	return &BankDetails{
		BankName:      cfg.BankName,
		AccountNumber: cfg.BankAccountNumber,
		BranchCode:    cfg.BankBranchCode,
	}
}

func redirectURL(base string, p *db.Payment) string {
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("amount", fmt.Sprint(p.Amount))
	q.Set("reference", p.TransactionID)
	u.RawQuery = q.Encode()
	return u.String()
}
