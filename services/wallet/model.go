package wallet

import (
	"math"
	"time"
)

// Wallet holds one seller's monetary balances, in minor currency units.
// TotalBalance counts funds not reserved for withdrawal; PendingBalance
// carries amounts reserved by an open withdrawal request until its terminal
// transition moves them to TotalWithdrawn or back.
type Wallet struct {
	ID                  string    `gorm:"column:id;primaryKey"`
	SellerID            string    `gorm:"column:seller_id;uniqueIndex"`
	TotalBalance        int64     `gorm:"column:total_balance"`
	WithdrawableBalance int64     `gorm:"column:withdrawable_balance"`
	PendingBalance      int64     `gorm:"column:pending_balance"`
	TotalEarnings       int64     `gorm:"column:total_earnings"`
	TotalCharges        int64     `gorm:"column:total_charges"`
	TotalWithdrawn      int64     `gorm:"column:total_withdrawn"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Wallet) TableName() string { return "wallets" }

// ReleaseDestination selects where reserved funds go on a terminal
// withdrawal transition.
type ReleaseDestination string

const (
	ReleaseWithdrawn ReleaseDestination = "withdrawn"
	ReleaseReturned  ReleaseDestination = "returned"
)

// SplitFee divides a gross amount into the platform fee and the seller's
// net. The fee is rounded half away from zero so fee + net == gross always
// holds.
func SplitFee(gross int64, pct float64) (fee, net int64) {
	fee = int64(math.Round(float64(gross) * pct / 100))
	return fee, gross - fee
}
