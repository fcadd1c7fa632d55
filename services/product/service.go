package product

import (
	"context"
	"errors"

	"creatorpay-platform/pkg/errutil"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
	}
}

func (s *Service) Get(ctx context.Context, productID string) (*DigitalProduct, error) {
	var record DigitalProduct
	err := s.db.WithContext(ctx).Where("id = ?", productID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.NotFound("digital product not found")
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// RegisterPurchaseTx creates the purchase record for a settled order inside
// the caller's transaction, decrementing stock on quantity-limited products.
// The guarded decrement keeps concurrent settlements from overselling.
func (s *Service) RegisterPurchaseTx(ctx context.Context, tx *gorm.DB, buyerID, productID, orderID string, pricePaid int64) (*Purchase, error) {
	var record DigitalProduct
	err := tx.WithContext(ctx).Where("id = ?", productID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.NotFound("digital product not found")
	}
	if err != nil {
		return nil, err
	}

	if record.QuantityLimited {
		res := tx.Model(&DigitalProduct{}).
			Where("id = ? AND quantity_left > 0", productID).
			Update("quantity_left", gorm.Expr("quantity_left - ?", 1))
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, errutil.Conflict("product is sold out")
		}
	}

	purchase := &Purchase{
		ID:        s.node.Generate().String(),
		BuyerID:   buyerID,
		ProductID: productID,
		OrderID:   orderID,
		PricePaid: pricePaid,
		Status:    PurchaseActive,
	}
	if err := tx.Create(purchase).Error; err != nil {
		return nil, err
	}

	return purchase, nil
}
