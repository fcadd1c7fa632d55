package order

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusPending = "PENDING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Order is one purchase attempt. Status moves PENDING to exactly one of
// SUCCESS or FAILED, driven solely by the gateway callback. Exactly one of
// ProductID and ChannelPlanID is set, matching ProductType.
type Order struct {
	ID              string    `gorm:"column:id;primaryKey" json:"id"`
	BuyerID         string    `gorm:"column:buyer_id;index" json:"buyer_id"`
	BuyerExternalID string    `gorm:"column:buyer_external_id" json:"buyer_external_id,omitempty"`
	ProductType     string    `gorm:"column:product_type" json:"product_type"`
	ProductID       string    `gorm:"column:product_id;index" json:"product_id,omitempty"`
	ChannelPlanID   string    `gorm:"column:channel_plan_id;index" json:"channel_plan_id,omitempty"`
	Amount          int64     `gorm:"column:amount" json:"amount"`
	Currency        string    `gorm:"column:currency" json:"currency"`
	Status          string    `gorm:"column:status;index" json:"status"`
	GatewayOrderID  string    `gorm:"column:gateway_order_id;index" json:"gateway_order_id,omitempty"`
	SessionID       string    `gorm:"column:session_id" json:"session_id,omitempty"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) Terminal() bool {
	return o.Status == StatusSuccess || o.Status == StatusFailed
}

// Transaction is the immutable record of one gateway settlement attempt,
// tied 1:1 to its order. The unique index on OrderID backs the callback
// idempotency guard at the storage layer.
type Transaction struct {
	ID               string         `gorm:"column:id;primaryKey" json:"id"`
	OrderID          string         `gorm:"column:order_id;uniqueIndex" json:"order_id"`
	GatewayOrderID   string         `gorm:"column:gateway_order_id" json:"gateway_order_id,omitempty"`
	GatewayPaymentID string         `gorm:"column:gateway_payment_id" json:"gateway_payment_id,omitempty"`
	Status           string         `gorm:"column:status" json:"status"`
	Amount           int64          `gorm:"column:amount" json:"amount"`
	Method           string         `gorm:"column:method" json:"method,omitempty"`
	Metadata         datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Transaction) TableName() string { return "transactions" }
