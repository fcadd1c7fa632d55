package withdrawal

import (
	"time"
)

const (
	StatusPending   = "PENDING"
	StatusPaid      = "PAID"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
)

// Request is one seller payout request. Status moves PENDING to exactly one
// of PAID, REJECTED or CANCELLED; terminal states never transition again.
type Request struct {
	ID              string     `gorm:"column:id;primaryKey" json:"id"`
	WalletID        string     `gorm:"column:wallet_id;index" json:"wallet_id"`
	SellerID        string     `gorm:"column:seller_id;index" json:"seller_id"`
	Amount          int64      `gorm:"column:amount" json:"amount"`
	Status          string     `gorm:"column:status;index" json:"status"`
	PaymentMethodID string     `gorm:"column:payment_method_id" json:"payment_method_id"`
	AdminNotes      string     `gorm:"column:admin_notes" json:"admin_notes,omitempty"`
	GatewayDetails  string     `gorm:"column:gateway_details" json:"gateway_details,omitempty"`
	ProcessedAt     *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`
	ProcessedBy     string     `gorm:"column:processed_by" json:"processed_by,omitempty"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Request) TableName() string { return "withdrawal_requests" }

// PaymentMethod is a seller's registered payout destination.
type PaymentMethod struct {
	ID            string    `gorm:"column:id;primaryKey" json:"id"`
	SellerID      string    `gorm:"column:seller_id;index" json:"seller_id"`
	BankName      string    `gorm:"column:bank_name" json:"bank_name"`
	AccountNumber string    `gorm:"column:account_number" json:"account_number"`
	AccountName   string    `gorm:"column:account_name" json:"account_name"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (PaymentMethod) TableName() string { return "payment_methods" }

const KycApproved = "APPROVED"

// KycRecord gates withdrawal creation; only sellers with an APPROVED record
// may request a payout.
type KycRecord struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	SellerID  string    `gorm:"column:seller_id;uniqueIndex" json:"seller_id"`
	Status    string    `gorm:"column:status" json:"status"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (KycRecord) TableName() string { return "kyc_records" }
