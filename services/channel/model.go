package channel

import (
	"time"
)

// Channel is a messaging-platform channel a seller monetizes. ExternalID is
// the platform-side identifier used to locate the channel among the owner
// account's chats.
type Channel struct {
	ID         string    `gorm:"column:id;primaryKey" json:"id"`
	SellerID   string    `gorm:"column:seller_id;index" json:"seller_id"`
	ExternalID string    `gorm:"column:external_id;index" json:"external_id"`
	Title      string    `gorm:"column:title" json:"title"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Channel) TableName() string { return "channels" }

// Plan is a paid access tier on a channel.
type Plan struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	ChannelID    string    `gorm:"column:channel_id;index" json:"channel_id"`
	Name         string    `gorm:"column:name" json:"name"`
	Price        int64     `gorm:"column:price" json:"price"`
	DurationDays int       `gorm:"column:duration_days" json:"duration_days"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Plan) TableName() string { return "channel_plans" }

const (
	SubscriptionActive  = "ACTIVE"
	SubscriptionExpired = "EXPIRED"
)

const (
	InviteIssued  = "ISSUED"
	InvitePending = "PENDING"
	InviteFailed  = "FAILED"
)

// Subscription is one buyer's paid access to a channel plan. The plan name,
// price and duration are snapshotted at purchase time so later plan edits do
// not rewrite history. InviteStatus tracks the best-effort invite link:
// PENDING until minted, ISSUED on success, FAILED when the messaging
// platform could not be reached (a degraded success, not an error).
type Subscription struct {
	ID               string     `gorm:"column:id;primaryKey" json:"id"`
	BuyerID          string     `gorm:"column:buyer_id;index" json:"buyer_id"`
	BuyerExternalID  string     `gorm:"column:buyer_external_id" json:"buyer_external_id,omitempty"`
	ChannelID        string     `gorm:"column:channel_id;index" json:"channel_id"`
	PlanID           string     `gorm:"column:plan_id;index" json:"plan_id"`
	PlanName         string     `gorm:"column:plan_name" json:"plan_name"`
	PlanPrice        int64      `gorm:"column:plan_price" json:"plan_price"`
	PlanDurationDays int        `gorm:"column:plan_duration_days" json:"plan_duration_days"`
	Status           string     `gorm:"column:status;index" json:"status"`
	ExpiresAt        time.Time  `gorm:"column:expires_at;index" json:"expires_at"`
	InviteLink       string     `gorm:"column:invite_link" json:"invite_link,omitempty"`
	InviteStatus     string     `gorm:"column:invite_status" json:"invite_status"`
	ExpiredAt        *time.Time `gorm:"column:expired_at" json:"expired_at,omitempty"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Subscription) TableName() string { return "channel_subscriptions" }
