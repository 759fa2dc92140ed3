package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"lendcore-backend/internal/domain/ledger"
	"lendcore-backend/internal/domain/lending"
	domainPayment "lendcore-backend/internal/domain/payment"
	"lendcore-backend/internal/domain/product"
	"lendcore-backend/internal/domain/uow"
	"lendcore-backend/internal/gateway/daraja"
	"lendcore-backend/internal/interest"
	"lendcore-backend/internal/usecase/recorder"
	"lendcore-backend/pkg/id"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// confirmRetries bounds retries of the confirmation transaction when
// the fund balance compare-and-swap loses a race.
const confirmRetries = 3

// Gateway is the slice of the mobile-money client this usecase needs.
type Gateway interface {
	STKPush(ctx context.Context, msisdn string, amount decimal.Decimal, ref string) (*daraja.STKPushResponse, error)
	B2CPayment(ctx context.Context, phone string, amount decimal.Decimal, ref string) (*daraja.B2CResponse, error)
}

type Usecase struct {
	uow      uow.UnitOfWork
	gw       Gateway
	products *product.Catalog
	now      func() time.Time
	log      *slog.Logger
}

func NewUsecase(u uow.UnitOfWork, gw Gateway, products *product.Catalog, log *slog.Logger) *Usecase {
	return &Usecase{uow: u, gw: gw, products: products, now: time.Now, log: log}
}

type CheckoutInput struct {
	MSISDN string          `json:"msisdn"`
	Amount decimal.Decimal `json:"amount"`
}

// InitiateCheckout pushes a collection request to the client's phone
// and persists the pending checkout awaiting the gateway callback.
func (u *Usecase) InitiateCheckout(ctx context.Context, in CheckoutInput) (*domainPayment.Checkout, error) {
	if in.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", lending.ErrValidation)
	}
	if in.MSISDN == "" {
		return nil, fmt.Errorf("%w: msisdn required", lending.ErrValidation)
	}

	ref := id.NewID32()
	if _, err := u.gw.STKPush(ctx, in.MSISDN, in.Amount, ref); err != nil {
		return nil, err
	}

	co := &domainPayment.Checkout{
		Amount: in.Amount,
		RefNo:  ref,
		MSISDN: in.MSISDN,
		Status: domainPayment.CheckoutPending,
	}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		return r.Payments.CreateCheckout(ctx, co)
	})
	if err != nil {
		return nil, err
	}
	u.log.Info("checkout initiated", "ref_no", ref, "amount", in.Amount)
	return co, nil
}

type CallbackInput struct {
	RefNo           string
	GatewayCode     string
	ClientID        uint64
	LoanCode        int64
	Amount          decimal.Decimal
	TransactionDate time.Time
	Raw             string
}

// ConfirmPayIn reconciles an inbound payment callback against its
// checkout: the checkout completes, a PayIn is recorded, the fund is
// credited with a paired repayment ledger entry, and the loan clears
// once fully repaid. Replaying the same callback is a no-op.
func (u *Usecase) ConfirmPayIn(ctx context.Context, in CallbackInput) error {
	if in.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: callback amount must be positive", lending.ErrValidation)
	}
	if in.RefNo == "" {
		return fmt.Errorf("%w: callback ref required", lending.ErrValidation)
	}
	var err error
	for attempt := 0; attempt < confirmRetries; attempt++ {
		err = u.apply(ctx, in)
		if !errors.Is(err, lending.ErrConcurrencyConflict) {
			return err
		}
	}
	return err
}

func (u *Usecase) apply(ctx context.Context, in CallbackInput) error {
	return u.uow.WithinTx(ctx, func(r uow.Repos) error {
		co, err := r.Payments.GetCheckoutByRefForUpdate(ctx, in.RefNo)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainPayment.ErrCheckoutNotFound
			}
			return err
		}
		if co.Status == domainPayment.CheckoutCompleted {
			// duplicate callback
			return nil
		}
		co.Status = domainPayment.CheckoutCompleted
		if err := r.Payments.SaveCheckout(ctx, co); err != nil {
			return err
		}

		payin := &domainPayment.PayIn{
			ClientID:        in.ClientID,
			Amount:          in.Amount,
			GatewayCode:     in.GatewayCode,
			BillRefNo:       strconv.FormatInt(in.LoanCode, 10),
			TransactionDate: in.TransactionDate,
			Status:          domainPayment.PayInReceived,
			Raw:             in.Raw,
		}

		a, err := r.Applications.GetByCodeForUpdate(ctx, in.LoanCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				payin.Status = domainPayment.PayInOrphaned
				payin.Notes = "no matching application"
				return r.Payments.CreatePayIn(ctx, payin)
			}
			return err
		}
		l, err := r.Loans.GetByApplicationID(ctx, a.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				payin.Status = domainPayment.PayInOrphaned
				payin.Notes = "application not disbursed"
				return r.Payments.CreatePayIn(ctx, payin)
			}
			return err
		}
		p, ok := u.products.Get(a.ProductID)
		if !ok {
			return fmt.Errorf("%w: unknown product %d", lending.ErrValidation, a.ProductID)
		}

		// credit the fund and write the paired repayment entry in the
		// same transaction
		f, err := r.Funds.Get(ctx, p.FundID)
		if err != nil {
			return err
		}
		applied, err := r.Funds.UpdateBalance(ctx, p.FundID, f.Balance.Add(in.Amount), f.Balance)
		if err != nil {
			return err
		}
		if !applied {
			return lending.ErrConcurrencyConflict
		}
		if _, err := recorder.New(r.Ledger, u.now).Record(ctx, recorder.Input{
			ClientID:       a.ClientID,
			Type:           ledger.TypeRepayment,
			ProductID:      a.ProductID,
			Subject:        ledger.FundSubject(p.FundID),
			InitialBalance: f.Balance,
			Amount:         in.Amount,
			Ref:            in.RefNo,
		}); err != nil {
			return err
		}

		l.RepaidAmount = l.RepaidAmount.Add(in.Amount)
		interestDue := interest.Amount(l.Amount, p.InterestRate, a.Duration)
		if l.Outstanding(interestDue).IsZero() {
			now := u.now().UTC()
			l.IsCleared = true
			l.ClearedOn = &now
			if err := r.Profiles.SetActive(ctx, a.ClientID, a.ProductID, false); err != nil {
				return err
			}
			u.log.Info("loan cleared", "code", a.Code)
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}

		payin.Status = domainPayment.PayInApplied
		return r.Payments.CreatePayIn(ctx, payin)
	})
}

// InitiatePayOut pushes a disbursed loan's principal to the client's
// phone and records the pay-out.
func (u *Usecase) InitiatePayOut(ctx context.Context, code int64, phone string) (*domainPayment.PayOut, error) {
	if phone == "" {
		return nil, fmt.Errorf("%w: recipient phone required", lending.ErrValidation)
	}

	var loan *lending.Loan
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		a, err := r.Applications.GetByCode(ctx, code)
		if err != nil {
			return err
		}
		if a.Status != lending.StatusDisbursed {
			return lending.ErrInvalidTransition
		}
		loan, err = r.Loans.GetByApplicationID(ctx, a.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lending.ErrNotFound
		}
		return nil, err
	}

	ref := id.NewID32()
	resp, err := u.gw.B2CPayment(ctx, phone, loan.Amount, ref)
	if err != nil {
		return nil, err
	}

	po := &domainPayment.PayOut{
		LoanID:         loan.ID,
		Amount:         loan.Amount,
		RecipientPhone: phone,
		Status:         domainPayment.PayOutInitiated,
		Notes:          resp.ConversationID,
	}
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		return r.Payments.CreatePayOut(ctx, po)
	})
	if err != nil {
		return nil, err
	}
	u.log.Info("payout initiated", "code", code, "phone", phone)
	return po, nil
}
