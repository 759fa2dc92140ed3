package payment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrCheckoutNotFound = errors.New("checkout not found")
)

type CheckoutStatus string

const (
	CheckoutPending   CheckoutStatus = "pending"
	CheckoutCompleted CheckoutStatus = "completed"
	CheckoutFailed    CheckoutStatus = "failed"
)

// Checkout is an initiated mobile-money collection request awaiting
// confirmation from the gateway callback.
type Checkout struct {
	ID        uint64          `gorm:"primaryKey;column:id" json:"-"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	RefNo     string          `gorm:"size:32;uniqueIndex:ux_checkouts_ref" json:"ref_no"`
	MSISDN    string          `gorm:"size:13;column:msisdn" json:"msisdn"`
	Status    CheckoutStatus  `gorm:"size:16;default:'pending'" json:"status"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Checkout) TableName() string { return "checkouts" }

type PayInStatus string

const (
	PayInReceived PayInStatus = "received"
	PayInApplied  PayInStatus = "applied"
	PayInOrphaned PayInStatus = "orphaned"
)

// PayIn is a confirmed inbound payment, reconciled against a Checkout.
type PayIn struct {
	ID              uint64          `gorm:"primaryKey;column:id" json:"-"`
	ClientID        uint64          `gorm:"index:idx_payins_client" json:"client_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	GatewayCode     string          `gorm:"size:10" json:"gateway_code"`
	BillRefNo       string          `gorm:"size:32" json:"bill_ref_no"`
	TransactionDate time.Time       `json:"transaction_date"`
	Status          PayInStatus     `gorm:"size:16;default:'received'" json:"status"`
	Notes           string          `gorm:"size:50" json:"notes"`
	Raw             string          `gorm:"type:text" json:"-"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (PayIn) TableName() string { return "pay_ins" }

type PayOutStatus string

const (
	PayOutInitiated PayOutStatus = "initiated"
	PayOutSettled   PayOutStatus = "settled"
	PayOutFailed    PayOutStatus = "failed"
)

// PayOut records a disbursement pushed to the gateway for a loan.
type PayOut struct {
	ID             uint64          `gorm:"primaryKey;column:id" json:"-"`
	LoanID         uint64          `gorm:"uniqueIndex:ux_payouts_loan" json:"-"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	RecipientPhone string          `gorm:"size:13" json:"recipient_phone"`
	Status         PayOutStatus    `gorm:"size:16;default:'initiated'" json:"status"`
	GatewayCode    string          `gorm:"size:10" json:"gateway_code"`
	Notes          string          `gorm:"size:50" json:"notes"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PayOut) TableName() string { return "pay_outs" }
