package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeDisbursement Type = "disbursement"
	TypeRepayment    Type = "repayment"
	TypeFee          Type = "fee"
	TypeWaiver       Type = "waiver"
)

// Transaction is an immutable record of a balance-affecting event.
// Rows are append-only: there is deliberately no soft-delete column and
// no Save path in the repository.
type Transaction struct {
	ID             uint64          `gorm:"primaryKey;column:id" json:"-"`
	ClientID       uint64          `gorm:"index:idx_transactions_client" json:"client_id"`
	Type           Type            `gorm:"size:16" json:"type"`
	ProductID      uint64          `json:"product_id"`
	Subject        string          `gorm:"size:32;index:idx_transactions_subject" json:"subject"`
	InitialBalance decimal.Decimal `gorm:"type:decimal(14,2)" json:"initial_balance"`
	Amount         decimal.Decimal `gorm:"type:decimal(14,2)" json:"amount"`
	Ref            string          `gorm:"size:32;index:idx_transactions_ref" json:"ref"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Transaction) TableName() string { return "transactions" }

// BalanceAfter is the subject's balance once this entry is applied.
// Amount is signed: debits are negative, credits positive.
func (t *Transaction) BalanceAfter() decimal.Decimal {
	return t.InitialBalance.Add(t.Amount)
}

// FundSubject names a fund as the subject of a ledger entry.
func FundSubject(fundID uint64) string { return fmt.Sprintf("fund:%d", fundID) }
