package lending

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ApplicationStatus string

const (
	StatusPending   ApplicationStatus = "pending"
	StatusApproved  ApplicationStatus = "approved"
	StatusRejected  ApplicationStatus = "rejected"
	StatusDisbursed ApplicationStatus = "disbursed"
)

// Application is a loan request. Code is the public day-keyed identifier
// (YYMMDD + sequence digit(s)), unique across all applications.
type Application struct {
	ID              uint64            `gorm:"primaryKey;column:id" json:"-"`
	Code            int64             `gorm:"uniqueIndex:ux_applications_code" json:"code"`
	ClientID        uint64            `gorm:"index:idx_applications_client" json:"client_id"`
	ProductID       uint64            `gorm:"index:idx_applications_product" json:"product_id"`
	Amount          decimal.Decimal   `gorm:"type:decimal(12,2)" json:"amount"`
	Duration        int               `json:"duration"`
	Status          ApplicationStatus `gorm:"size:16;default:'pending'" json:"status"`
	StatusUpdatedAt time.Time         `json:"status_updated_at"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt    `gorm:"index" json:"-"`
}

func (Application) TableName() string { return "applications" }

// Transition moves the application to the given status, enforcing the
// forward-only state machine: pending → approved|rejected, approved → disbursed.
func (a *Application) Transition(to ApplicationStatus, at time.Time) error {
	allowed := false
	switch a.Status {
	case StatusPending:
		allowed = to == StatusApproved || to == StatusRejected
	case StatusApproved:
		allowed = to == StatusDisbursed
	}
	if !allowed {
		return ErrInvalidTransition
	}
	a.Status = to
	a.StatusUpdatedAt = at
	return nil
}

// Loan is a disbursed application. Amount is fixed at creation; later
// mutations are limited to clearing, waiving and extension.
type Loan struct {
	ID            uint64          `gorm:"primaryKey;column:id" json:"-"`
	ApplicationID uint64          `gorm:"uniqueIndex:ux_loans_application" json:"-"`
	ClientID      uint64          `gorm:"index:idx_loans_client" json:"client_id"`
	ProductID     uint64          `json:"product_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	DisbursedOn   time.Time       `json:"disbursed_on"`
	DateDue       time.Time       `json:"date_due"`
	RepaidAmount  decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"repaid_amount"`
	WaivedAmount  decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"waived_amount"`
	IsWaived      bool            `json:"is_waived"`
	Extended      bool            `json:"extended"`
	ExtendedOn    *time.Time      `json:"extended_on,omitempty"`
	ExtendedDays  int             `json:"extended_days"`
	IsCleared     bool            `json:"is_cleared"`
	ClearedOn     *time.Time      `json:"cleared_on,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Loan) TableName() string { return "loans" }

// Outstanding is what the client still owes given the interest due on
// the loan: principal + interest - repaid - waived, floored at zero.
func (l *Loan) Outstanding(interestDue decimal.Decimal) decimal.Decimal {
	out := l.Amount.Add(interestDue).Sub(l.RepaidAmount).Sub(l.WaivedAmount)
	if out.Sign() < 0 {
		return decimal.Zero
	}
	return out
}

// LoanProfile summarises the relationship between a client and a product.
// The (client, product) pair is unique at the database level.
type LoanProfile struct {
	ID        uint64    `gorm:"primaryKey;column:id"`
	ClientID  uint64    `gorm:"uniqueIndex:ux_profiles_client_product"`
	ProductID uint64    `gorm:"uniqueIndex:ux_profiles_client_product"`
	IsActive  bool      `gorm:"default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (LoanProfile) TableName() string { return "loan_profiles" }

// CodeSequence tracks the last issued application code per day key.
// The row is locked for update while the next code is computed.
type CodeSequence struct {
	DayKey   int64 `gorm:"primaryKey;column:day_key;autoIncrement:false"`
	LastCode int64 `gorm:"column:last_code"`
}

func (CodeSequence) TableName() string { return "application_sequences" }
