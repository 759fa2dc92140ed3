// Package memstore is a mutex-guarded, in-memory implementation of the
// repository and unit-of-work contracts, used to exercise concurrency
// properties in tests without a database. Transactions snapshot the
// whole store and restore it on error; writers racing a *failing*
// transaction from outside are not isolated, which is fine for tests.
package memstore

import (
	"context"
	"sync"

	"lendcore-backend/internal/domain/fund"
	"lendcore-backend/internal/domain/ledger"
	"lendcore-backend/internal/domain/lending"
	"lendcore-backend/internal/domain/payment"
	"lendcore-backend/internal/domain/uow"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type clientProduct struct{ client, product uint64 }

type Store struct {
	mu   sync.Mutex // guards all state below
	txMu sync.Mutex // serializes transactions

	nextID uint64

	apps       map[uint64]lending.Application
	appsByCode map[int64]uint64
	loans      map[uint64]lending.Loan
	loansByApp map[uint64]uint64
	profiles   map[clientProduct]lending.LoanProfile
	seqs       map[int64]int64
	funds      map[uint64]fund.Fund
	entries    []ledger.Transaction
	checkouts  map[string]payment.Checkout
	payIns     []payment.PayIn
	payOuts    []payment.PayOut

	// fault injection, nil by default
	LedgerAppendErr func() error
	LoanCreateErr   func() error
}

func New() *Store {
	return &Store{
		apps:       map[uint64]lending.Application{},
		appsByCode: map[int64]uint64{},
		loans:      map[uint64]lending.Loan{},
		loansByApp: map[uint64]uint64{},
		profiles:   map[clientProduct]lending.LoanProfile{},
		seqs:       map[int64]int64{},
		funds:      map[uint64]fund.Fund{},
		checkouts:  map[string]payment.Checkout{},
	}
}

func (s *Store) id() uint64 { s.nextID++; return s.nextID }

type snapshot struct {
	nextID     uint64
	apps       map[uint64]lending.Application
	appsByCode map[int64]uint64
	loans      map[uint64]lending.Loan
	loansByApp map[uint64]uint64
	profiles   map[clientProduct]lending.LoanProfile
	seqs       map[int64]int64
	funds      map[uint64]fund.Fund
	entries    []ledger.Transaction
	checkouts  map[string]payment.Checkout
	payIns     []payment.PayIn
	payOuts    []payment.PayOut
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		nextID:     s.nextID,
		apps:       cloneMap(s.apps),
		appsByCode: cloneMap(s.appsByCode),
		loans:      cloneMap(s.loans),
		loansByApp: cloneMap(s.loansByApp),
		profiles:   cloneMap(s.profiles),
		seqs:       cloneMap(s.seqs),
		funds:      cloneMap(s.funds),
		entries:    append([]ledger.Transaction(nil), s.entries...),
		checkouts:  cloneMap(s.checkouts),
		payIns:     append([]payment.PayIn(nil), s.payIns...),
		payOuts:    append([]payment.PayOut(nil), s.payOuts...),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = snap.nextID
	s.apps = snap.apps
	s.appsByCode = snap.appsByCode
	s.loans = snap.loans
	s.loansByApp = snap.loansByApp
	s.profiles = snap.profiles
	s.seqs = snap.seqs
	s.funds = snap.funds
	s.entries = snap.entries
	s.checkouts = snap.checkouts
	s.payIns = snap.payIns
	s.payOuts = snap.payOuts
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *Store) repos() uow.Repos {
	return uow.Repos{
		Applications: &appRepo{s},
		Loans:        &loanRepo{s},
		Profiles:     &profileRepo{s},
		Sequences:    &seqRepo{s},
		Funds:        &fundRepo{s},
		Ledger:       &ledgerRepo{s},
		Payments:     &paymentRepo{s},
	}
}

// Funds exposes the fund repository outside a transaction, the way the
// guard uses the real store.
func (s *Store) Funds() fund.Repository { return &fundRepo{s} }

// Ledger exposes the append-only transaction log for assertions.
func (s *Store) Ledger() ledger.Repository { return &ledgerRepo{s} }

func (s *Store) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	snap := s.snapshot()
	if err := fn(s.repos()); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) WithinApplicationTx(ctx context.Context, code int64, fn func(r uow.Repos, a *lending.Application) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	snap := s.snapshot()
	a, err := (&appRepo{s}).GetByCodeForUpdate(ctx, code)
	if err != nil {
		return err
	}
	if err := fn(s.repos(), a); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// ---- applications ----

type appRepo struct{ s *Store }

func (r *appRepo) Create(ctx context.Context, a *lending.Application) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, dup := r.s.appsByCode[a.Code]; dup {
		return gorm.ErrDuplicatedKey
	}
	a.ID = r.s.id()
	r.s.apps[a.ID] = *a
	r.s.appsByCode[a.Code] = a.ID
	return nil
}

func (r *appRepo) Save(ctx context.Context, a *lending.Application) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.apps[a.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.s.apps[a.ID] = *a
	return nil
}

func (r *appRepo) GetByCode(ctx context.Context, code int64) (*lending.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.appsByCode[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	a := r.s.apps[id]
	return &a, nil
}

func (r *appRepo) GetByCodeForUpdate(ctx context.Context, code int64) (*lending.Application, error) {
	return r.GetByCode(ctx, code)
}

func (r *appRepo) GetOpenByClientProduct(ctx context.Context, clientID, productID uint64) (*lending.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.apps {
		if a.ClientID == clientID && a.ProductID == productID &&
			(a.Status == lending.StatusPending || a.Status == lending.StatusApproved) {
			out := a
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ---- loans ----

type loanRepo struct{ s *Store }

func (r *loanRepo) Create(ctx context.Context, l *lending.Loan) error {
	if r.s.LoanCreateErr != nil {
		if err := r.s.LoanCreateErr(); err != nil {
			return err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, dup := r.s.loansByApp[l.ApplicationID]; dup {
		return gorm.ErrDuplicatedKey
	}
	l.ID = r.s.id()
	r.s.loans[l.ID] = *l
	r.s.loansByApp[l.ApplicationID] = l.ID
	return nil
}

func (r *loanRepo) Save(ctx context.Context, l *lending.Loan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.loans[l.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.s.loans[l.ID] = *l
	return nil
}

func (r *loanRepo) GetByApplicationID(ctx context.Context, applicationID uint64) (*lending.Loan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.loansByApp[applicationID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	l := r.s.loans[id]
	return &l, nil
}

// ---- profiles ----

type profileRepo struct{ s *Store }

func (r *profileRepo) Ensure(ctx context.Context, clientID, productID uint64) (*lending.LoanProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := clientProduct{clientID, productID}
	if p, ok := r.s.profiles[k]; ok {
		return &p, nil
	}
	p := lending.LoanProfile{ID: r.s.id(), ClientID: clientID, ProductID: productID}
	r.s.profiles[k] = p
	return &p, nil
}

func (r *profileRepo) SetActive(ctx context.Context, clientID, productID uint64, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := clientProduct{clientID, productID}
	p, ok := r.s.profiles[k]
	if !ok {
		return nil
	}
	p.IsActive = active
	r.s.profiles[k] = p
	return nil
}

// ---- sequences ----

type seqRepo struct{ s *Store }

func (r *seqRepo) Next(ctx context.Context, dayKey int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	last, ok := r.s.seqs[dayKey]
	if !ok {
		last = dayKey * 10
	}
	last++
	r.s.seqs[dayKey] = last
	return last, nil
}

// ---- funds ----

type fundRepo struct{ s *Store }

func (r *fundRepo) Get(ctx context.Context, id uint64) (*fund.Fund, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.funds[id]
	if !ok {
		return nil, fund.ErrNotFound
	}
	return &f, nil
}

func (r *fundRepo) Create(ctx context.Context, f *fund.Fund) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if f.ID == 0 {
		f.ID = r.s.id()
	}
	r.s.funds[f.ID] = *f
	return nil
}

func (r *fundRepo) UpdateBalance(ctx context.Context, id uint64, newBalance, expectedOld decimal.Decimal) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.funds[id]
	if !ok {
		return false, fund.ErrNotFound
	}
	if !f.Balance.Equal(expectedOld) {
		return false, nil
	}
	f.Balance = newBalance
	r.s.funds[id] = f
	return true, nil
}

// ---- ledger ----

type ledgerRepo struct{ s *Store }

func (r *ledgerRepo) Append(ctx context.Context, t *ledger.Transaction) error {
	if r.s.LedgerAppendErr != nil {
		if err := r.s.LedgerAppendErr(); err != nil {
			return err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.id()
	r.s.entries = append(r.s.entries, *t)
	return nil
}

func (r *ledgerRepo) ListBySubject(ctx context.Context, subject string) ([]ledger.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []ledger.Transaction
	for _, t := range r.s.entries {
		if t.Subject == subject {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *ledgerRepo) ListByRef(ctx context.Context, ref string) ([]ledger.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []ledger.Transaction
	for _, t := range r.s.entries {
		if t.Ref == ref {
			out = append(out, t)
		}
	}
	return out, nil
}

// ---- payments ----

type paymentRepo struct{ s *Store }

func (r *paymentRepo) CreateCheckout(ctx context.Context, c *payment.Checkout) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, dup := r.s.checkouts[c.RefNo]; dup {
		return gorm.ErrDuplicatedKey
	}
	c.ID = r.s.id()
	r.s.checkouts[c.RefNo] = *c
	return nil
}

func (r *paymentRepo) SaveCheckout(ctx context.Context, c *payment.Checkout) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.checkouts[c.RefNo]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.s.checkouts[c.RefNo] = *c
	return nil
}

func (r *paymentRepo) GetCheckoutByRefForUpdate(ctx context.Context, refNo string) (*payment.Checkout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.checkouts[refNo]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *paymentRepo) CreatePayIn(ctx context.Context, p *payment.PayIn) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = r.s.id()
	r.s.payIns = append(r.s.payIns, *p)
	return nil
}

func (r *paymentRepo) CreatePayOut(ctx context.Context, p *payment.PayOut) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = r.s.id()
	r.s.payOuts = append(r.s.payOuts, *p)
	return nil
}

// PayIns returns a copy of the recorded pay-ins for assertions.
func (s *Store) PayIns() []payment.PayIn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]payment.PayIn(nil), s.payIns...)
}

// PayOuts returns a copy of the recorded pay-outs for assertions.
func (s *Store) PayOuts() []payment.PayOut {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]payment.PayOut(nil), s.payOuts...)
}
