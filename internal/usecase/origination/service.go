package origination

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lendcore-backend/internal/domain/fund"
	"lendcore-backend/internal/domain/ledger"
	"lendcore-backend/internal/domain/lending"
	"lendcore-backend/internal/domain/product"
	"lendcore-backend/internal/domain/uow"
	"lendcore-backend/internal/interest"
	"lendcore-backend/internal/usecase/fundguard"
	"lendcore-backend/internal/usecase/recorder"
	"lendcore-backend/pkg/id"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// submitRetries bounds retries of the whole submit transaction when the
// day's sequence row is created concurrently.
const submitRetries = 3

// errRacedToDisbursed signals that a concurrent disburse won the row
// lock; the loser releases its reservation and reports success.
var errRacedToDisbursed = errors.New("application disbursed concurrently")

type Service struct {
	uow       uow.UnitOfWork
	sequencer *CodeSequencer
	decision  *DecisionEngine
	guard     *fundguard.Guard
	products  *product.Catalog
	now       func() time.Time
	log       *slog.Logger
}

func NewService(u uow.UnitOfWork, seq *CodeSequencer, dec *DecisionEngine, g *fundguard.Guard, products *product.Catalog, log *slog.Logger) *Service {
	return &Service{
		uow:       u,
		sequencer: seq,
		decision:  dec,
		guard:     g,
		products:  products,
		now:       time.Now,
		log:       log,
	}
}

type SubmitInput struct {
	ClientID  uint64          `json:"client_id"`
	ProductID uint64          `json:"product_id"`
	Amount    decimal.Decimal `json:"amount"`
	Duration  int             `json:"duration"`
}

type ApplicationDTO struct {
	Code      int64           `json:"code"`
	ClientID  uint64          `json:"client_id"`
	ProductID uint64          `json:"product_id"`
	Amount    decimal.Decimal `json:"amount"`
	Duration  int             `json:"duration"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

type DisbursementDTO struct {
	Code        int64           `json:"code"`
	Amount      decimal.Decimal `json:"amount"`
	Interest    decimal.Decimal `json:"interest"`
	DisbursedOn time.Time       `json:"disbursed_on"`
	DateDue     time.Time       `json:"date_due"`
	Ref         string          `json:"ref,omitempty"`
}

// Submit validates the request, reserves the next application code and
// persists the application with its initial decision, all in one
// transaction. One open application per (client, product) at a time.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*ApplicationDTO, error) {
	p, ok := s.products.Get(in.ProductID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown product %d", lending.ErrValidation, in.ProductID)
	}
	if in.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", lending.ErrValidation)
	}
	if in.Duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", lending.ErrValidation)
	}
	if in.Duration > p.MaxDuration {
		return nil, fmt.Errorf("%w: duration exceeds product maximum of %d", lending.ErrValidation, p.MaxDuration)
	}

	var app *lending.Application
	var err error
	for attempt := 0; attempt < submitRetries; attempt++ {
		err = s.uow.WithinTx(ctx, func(r uow.Repos) error {
			// Ensure holds the profile row lock for the pair, so the
			// open-application lookup below cannot race a concurrent submit
			if _, err := r.Profiles.Ensure(ctx, in.ClientID, in.ProductID); err != nil {
				return err
			}

			existing, lookupErr := r.Applications.GetOpenByClientProduct(ctx, in.ClientID, in.ProductID)
			switch {
			case lookupErr == nil:
				return fmt.Errorf("%w: application %d", lending.ErrOpenApplication, existing.Code)
			case !errors.Is(lookupErr, gorm.ErrRecordNotFound):
				return lookupErr
			}

			code, err := s.sequencer.Next(ctx, r.Sequences)
			if err != nil {
				return err
			}

			now := s.now().UTC()
			app = &lending.Application{
				Code:            code,
				ClientID:        in.ClientID,
				ProductID:       in.ProductID,
				Amount:          in.Amount,
				Duration:        in.Duration,
				Status:          s.decision.Decide(in.Amount),
				StatusUpdatedAt: now,
			}
			return r.Applications.Create(ctx, app)
		})
		if !errors.Is(err, lending.ErrConcurrencyConflict) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("application submitted",
		"code", app.Code, "client_id", app.ClientID, "status", app.Status)
	return applicationDTO(app), nil
}

// Approve moves a pending application to approved. Pending only;
// anything else is an invalid transition.
func (s *Service) Approve(ctx context.Context, code int64) (*ApplicationDTO, error) {
	return s.review(ctx, code, lending.StatusApproved)
}

// Reject moves a pending application to rejected.
func (s *Service) Reject(ctx context.Context, code int64) (*ApplicationDTO, error) {
	return s.review(ctx, code, lending.StatusRejected)
}

func (s *Service) review(ctx context.Context, code int64, to lending.ApplicationStatus) (*ApplicationDTO, error) {
	var dto *ApplicationDTO
	err := s.uow.WithinApplicationTx(ctx, code, func(r uow.Repos, a *lending.Application) error {
		if a.Status != lending.StatusPending {
			return lending.ErrInvalidTransition
		}
		if err := a.Transition(to, s.now().UTC()); err != nil {
			return err
		}
		if err := r.Applications.Save(ctx, a); err != nil {
			return err
		}
		dto = applicationDTO(a)
		return nil
	})
	if err != nil {
		return nil, mapNotFound(err)
	}
	s.log.Info("application reviewed", "code", code, "status", to)
	return dto, nil
}

// Get returns the application for a code.
func (s *Service) Get(ctx context.Context, code int64) (*ApplicationDTO, error) {
	var dto *ApplicationDTO
	err := s.uow.WithinTx(ctx, func(r uow.Repos) error {
		a, err := r.Applications.GetByCode(ctx, code)
		if err != nil {
			return err
		}
		dto = applicationDTO(a)
		return nil
	})
	if err != nil {
		return nil, mapNotFound(err)
	}
	return dto, nil
}

// Disburse turns an approved application into a loan. All-or-nothing:
// the fund is debited through a reservation first; the loan row, the
// disbursement ledger entry and the state change then commit in one
// transaction. Any failure after the reservation triggers the
// compensating release and the application stays approved, so the call
// is retryable. Disbursing an already-disbursed application is a no-op
// returning the existing loan.
func (s *Service) Disburse(ctx context.Context, code int64) (*DisbursementDTO, error) {
	pre, preLoan, err := s.loadForDisbursement(ctx, code)
	if err != nil {
		return nil, err
	}
	p, ok := s.products.Get(pre.ProductID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown product %d", lending.ErrValidation, pre.ProductID)
	}
	interestDue := interest.Amount(pre.Amount, p.InterestRate, pre.Duration)
	if preLoan != nil {
		return disbursementDTO(pre, preLoan, interestDue, ""), nil
	}
	if pre.Status != lending.StatusApproved {
		return nil, lending.ErrInvalidTransition
	}

	res, err := s.guard.Reserve(ctx, p.FundID, pre.Amount)
	if err != nil {
		if errors.Is(err, fund.ErrInsufficientFunds) {
			s.log.Warn("disbursement blocked, fund insufficient",
				"code", code, "fund_id", p.FundID, "amount", pre.Amount)
		}
		return nil, err
	}

	var dto *DisbursementDTO
	err = s.uow.WithinApplicationTx(ctx, code, func(r uow.Repos, a *lending.Application) error {
		switch a.Status {
		case lending.StatusDisbursed:
			return errRacedToDisbursed
		case lending.StatusApproved:
		default:
			return lending.ErrInvalidTransition
		}

		now := s.now().UTC()
		l := &lending.Loan{
			ApplicationID: a.ID,
			ClientID:      a.ClientID,
			ProductID:     a.ProductID,
			Amount:        a.Amount,
			DisbursedOn:   now,
			DateDue:       now.AddDate(0, a.Duration, 0),
			RepaidAmount:  decimal.Zero,
			WaivedAmount:  decimal.Zero,
		}
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}

		txn, err := s.guard.Commit(ctx, recorder.New(r.Ledger, s.now), res, fundguard.CommitInput{
			ClientID:  a.ClientID,
			Type:      ledger.TypeDisbursement,
			ProductID: a.ProductID,
			Ref:       id.NewID32(),
		})
		if err != nil {
			return err
		}

		if err := a.Transition(lending.StatusDisbursed, now); err != nil {
			return err
		}
		if err := r.Applications.Save(ctx, a); err != nil {
			return err
		}
		if err := r.Profiles.SetActive(ctx, a.ClientID, a.ProductID, true); err != nil {
			return err
		}

		dto = disbursementDTO(a, l, interestDue, txn.Ref)
		return nil
	})
	if err != nil {
		if relErr := s.guard.Release(ctx, res); relErr != nil {
			s.log.Error("reservation release failed",
				"code", code, "fund_id", p.FundID, "error", relErr)
		}
		if errors.Is(err, errRacedToDisbursed) {
			_, racedLoan, loadErr := s.loadForDisbursement(ctx, code)
			if loadErr != nil || racedLoan == nil {
				return nil, lending.ErrInvalidTransition
			}
			return disbursementDTO(pre, racedLoan, interestDue, ""), nil
		}
		return nil, mapNotFound(err)
	}

	s.log.Info("loan disbursed", "code", code, "amount", pre.Amount, "interest", interestDue)
	return dto, nil
}

// Waive forgives part of the outstanding balance on a disbursed loan
// and records a waiver ledger entry against the loan subject.
func (s *Service) Waive(ctx context.Context, code int64, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: waiver amount must be positive", lending.ErrValidation)
	}
	err := s.uow.WithinApplicationTx(ctx, code, func(r uow.Repos, a *lending.Application) error {
		if a.Status != lending.StatusDisbursed {
			return lending.ErrInvalidTransition
		}
		p, ok := s.products.Get(a.ProductID)
		if !ok {
			return fmt.Errorf("%w: unknown product %d", lending.ErrValidation, a.ProductID)
		}
		l, err := r.Loans.GetByApplicationID(ctx, a.ID)
		if err != nil {
			return err
		}
		interestDue := interest.Amount(l.Amount, p.InterestRate, a.Duration)
		outstanding := l.Outstanding(interestDue)
		if amount.GreaterThan(outstanding) {
			return fmt.Errorf("%w: waiver %s exceeds outstanding %s", lending.ErrValidation, amount, outstanding)
		}

		if _, err := recorder.New(r.Ledger, s.now).Record(ctx, recorder.Input{
			ClientID:       a.ClientID,
			Type:           ledger.TypeWaiver,
			ProductID:      a.ProductID,
			Subject:        fmt.Sprintf("loan:%d", a.Code),
			InitialBalance: outstanding,
			Amount:         amount.Neg(),
			Ref:            id.NewID32(),
		}); err != nil {
			return err
		}

		l.WaivedAmount = l.WaivedAmount.Add(amount)
		l.IsWaived = true
		if l.Outstanding(interestDue).IsZero() {
			now := s.now().UTC()
			l.IsCleared = true
			l.ClearedOn = &now
			if err := r.Profiles.SetActive(ctx, a.ClientID, a.ProductID, false); err != nil {
				return err
			}
		}
		return r.Loans.Save(ctx, l)
	})
	return mapNotFound(err)
}

// Extend pushes the due date of a disbursed, uncleared loan.
func (s *Service) Extend(ctx context.Context, code int64, days int) error {
	if days <= 0 {
		return fmt.Errorf("%w: extension days must be positive", lending.ErrValidation)
	}
	err := s.uow.WithinApplicationTx(ctx, code, func(r uow.Repos, a *lending.Application) error {
		if a.Status != lending.StatusDisbursed {
			return lending.ErrInvalidTransition
		}
		l, err := r.Loans.GetByApplicationID(ctx, a.ID)
		if err != nil {
			return err
		}
		if l.IsCleared {
			return lending.ErrInvalidTransition
		}
		now := s.now().UTC()
		l.Extended = true
		l.ExtendedOn = &now
		l.ExtendedDays += days
		l.DateDue = l.DateDue.AddDate(0, 0, days)
		return r.Loans.Save(ctx, l)
	})
	return mapNotFound(err)
}

func (s *Service) loadForDisbursement(ctx context.Context, code int64) (*lending.Application, *lending.Loan, error) {
	var app *lending.Application
	var loan *lending.Loan
	err := s.uow.WithinTx(ctx, func(r uow.Repos) error {
		a, err := r.Applications.GetByCode(ctx, code)
		if err != nil {
			return err
		}
		app = a
		if a.Status == lending.StatusDisbursed {
			l, err := r.Loans.GetByApplicationID(ctx, a.ID)
			if err != nil {
				return err
			}
			loan = l
		}
		return nil
	})
	if err != nil {
		return nil, nil, mapNotFound(err)
	}
	return app, loan, nil
}

func applicationDTO(a *lending.Application) *ApplicationDTO {
	return &ApplicationDTO{
		Code:      a.Code,
		ClientID:  a.ClientID,
		ProductID: a.ProductID,
		Amount:    a.Amount,
		Duration:  a.Duration,
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt,
	}
}

func disbursementDTO(a *lending.Application, l *lending.Loan, interestDue decimal.Decimal, ref string) *DisbursementDTO {
	return &DisbursementDTO{
		Code:        a.Code,
		Amount:      l.Amount,
		Interest:    interestDue,
		DisbursedOn: l.DisbursedOn,
		DateDue:     l.DateDue,
		Ref:         ref,
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return lending.ErrNotFound
	}
	return err
}
