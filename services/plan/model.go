package plan

import (
	"time"
)

// Plan is a platform subscription tier. The fee percentage of the seller's
// active plan is applied to every settled order. Exactly one plan is marked
// default platform-wide and acts as the fallback fee tier.
type Plan struct {
	ID           string    `gorm:"column:id;primaryKey"`
	Name         string    `gorm:"column:name"`
	Description  string    `gorm:"column:description"`
	Price        int64     `gorm:"column:price"`
	IntervalDays int       `gorm:"column:interval_days"`
	FeePercent   float64   `gorm:"column:fee_percent"`
	IsDefault    bool      `gorm:"column:is_default;index"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Plan) TableName() string { return "platform_plans" }

const SubscriptionActive = "ACTIVE"

// Subscription is one seller's membership on a platform plan. A custom fee
// override, when set, takes precedence over the plan's fee percentage.
type Subscription struct {
	ID          string    `gorm:"column:id;primaryKey"`
	SellerID    string    `gorm:"column:seller_id;index"`
	PlanID      string    `gorm:"column:plan_id;index"`
	FeeOverride *float64  `gorm:"column:fee_override"`
	Status      string    `gorm:"column:status;index"`
	StartsAt    time.Time `gorm:"column:starts_at"`
	EndsAt      time.Time `gorm:"column:ends_at;index"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Subscription) TableName() string { return "platform_subscriptions" }

// EffectiveFee resolves the fee percentage this subscription grants.
func (s *Subscription) EffectiveFee(p *Plan) float64 {
	if s.FeeOverride != nil {
		return *s.FeeOverride
	}
	return p.FeePercent
}
