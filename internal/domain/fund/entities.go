package fund

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("fund not found")

	// ErrInsufficientFunds is a business outcome, not a system fault:
	// the application stays approved and the caller may retry once the
	// fund has been topped up.
	ErrInsufficientFunds = errors.New("insufficient fund balance")
)

// Fund is the capital pool backing a product. Balance never goes
// negative; every debit is paired with a ledger transaction of equal
// magnitude.
type Fund struct {
	ID        uint64          `gorm:"primaryKey;column:id"`
	Name      string          `gorm:"size:64"`
	Balance   decimal.Decimal `gorm:"type:decimal(14,2)"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime"`
}

func (Fund) TableName() string { return "funds" }
