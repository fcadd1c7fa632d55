package product

import (
	"time"
)

// DigitalProduct is a downloadable or deliverable item sold by a seller.
// When QuantityLimited is set, QuantityLeft counts the remaining stock and
// purchases are refused once it reaches zero.
type DigitalProduct struct {
	ID              string    `gorm:"column:id;primaryKey" json:"id"`
	SellerID        string    `gorm:"column:seller_id;index" json:"seller_id"`
	Name            string    `gorm:"column:name" json:"name"`
	Description     string    `gorm:"column:description" json:"description"`
	Price           int64     `gorm:"column:price" json:"price"`
	FileRef         string    `gorm:"column:file_ref" json:"file_ref"`
	QuantityLimited bool      `gorm:"column:quantity_limited" json:"quantity_limited"`
	QuantityLeft    int64     `gorm:"column:quantity_left" json:"quantity_left"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (DigitalProduct) TableName() string { return "digital_products" }

const PurchaseActive = "ACTIVE"

// Purchase records one buyer's settled digital-product order.
type Purchase struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	BuyerID   string    `gorm:"column:buyer_id;index" json:"buyer_id"`
	ProductID string    `gorm:"column:product_id;index" json:"product_id"`
	OrderID   string    `gorm:"column:order_id;index" json:"order_id"`
	PricePaid int64     `gorm:"column:price_paid" json:"price_paid"`
	Status    string    `gorm:"column:status" json:"status"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Purchase) TableName() string { return "digital_product_purchases" }
