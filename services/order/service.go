package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"creatorpay-platform/pkg/config"
	pkgdb "creatorpay-platform/pkg/db"
	"creatorpay-platform/pkg/errutil"
	"creatorpay-platform/pkg/gateway"
	"creatorpay-platform/services/channel"
	"creatorpay-platform/services/fulfillment"
	"creatorpay-platform/services/product"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db         *gorm.DB
	node       *snowflake.Node
	cfg        *config.Config
	gateway    gateway.Client
	dispatcher *fulfillment.Dispatcher
	products   *product.Service
	channels   *channel.Service
}

type ServiceParams struct {
	fx.In
	DB         *gorm.DB
	Node       *snowflake.Node
	Config     *config.Config
	Gateway    gateway.Client
	Dispatcher *fulfillment.Dispatcher
	Products   *product.Service
	Channels   *channel.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:         p.DB,
		node:       p.Node,
		cfg:        p.Config,
		gateway:    p.Gateway,
		dispatcher: p.Dispatcher,
		products:   p.Products,
		channels:   p.Channels,
	}
}

type CreateInput struct {
	ProductType   string `json:"product_type" binding:"required"`
	ProductID     string `json:"product_id"`
	ChannelPlanID string `json:"channel_plan_id"`
	// The buyer's messaging-platform id, required for channel orders so the
	// expiry sweep can later revoke access.
	BuyerExternalID string `json:"buyer_external_id"`
}

type CreateResult struct {
	Status     string `json:"status"`
	OrderID    string `json:"order_id"`
	SessionID  string `json:"payment_session_id"`
	PaymentURL string `json:"payment_url"`
}

// Create validates the product reference, opens the order in PENDING and
// starts a gateway payment session for it. The amount is always the
// server-side price of the referenced product, never caller input.
func (s *Service) Create(ctx context.Context, buyerID string, input CreateInput) (*CreateResult, error) {
	if !fulfillment.ValidProductType(input.ProductType) {
		return nil, errutil.ValidationFailed("invalid product type")
	}

	var (
		amount    int64
		productID string
		planID    string
	)
	switch input.ProductType {
	case fulfillment.ProductTypeDigital:
		if input.ProductID == "" || input.ChannelPlanID != "" {
			return nil, errutil.ValidationFailed("digital orders take exactly a product id")
		}
		record, err := s.products.Get(ctx, input.ProductID)
		if err != nil {
			return nil, err
		}
		amount = record.Price
		productID = record.ID
	case fulfillment.ProductTypeChannelPlan:
		if input.ChannelPlanID == "" || input.ProductID != "" {
			return nil, errutil.ValidationFailed("channel orders take exactly a plan id")
		}
		plan, err := s.channels.GetPlan(ctx, input.ChannelPlanID)
		if err != nil {
			return nil, err
		}
		amount = plan.Price
		planID = plan.ID
	}

	record := &Order{
		ID:              s.node.Generate().String(),
		BuyerID:         buyerID,
		BuyerExternalID: input.BuyerExternalID,
		ProductType:     input.ProductType,
		ProductID:       productID,
		ChannelPlanID:   planID,
		Amount:          amount,
		Currency:        s.cfg.Gateway.Currency,
		Status:          StatusPending,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, errutil.Internal("failed to create order", errutil.WithErr(err))
	}

	session, err := s.gateway.CreateSession(ctx, gateway.CreateSessionRequest{
		OrderID:    record.ID,
		Amount:     record.Amount,
		Currency:   record.Currency,
		CustomerID: buyerID,
		ReturnURL:  fmt.Sprintf("%s?orderId=%s&productType=%s", s.cfg.Gateway.CallbackURL, record.ID, record.ProductType),
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&Order{}).Where("id = ?", record.ID).Updates(map[string]any{
		"gateway_order_id": session.OrderID,
		"session_id":       session.ID,
	}).Error; err != nil {
		return nil, errutil.Internal("failed to attach gateway session", errutil.WithErr(err))
	}

	zap.L().Info("order created",
		zap.String("order_id", record.ID),
		zap.String("buyer_id", buyerID),
		zap.String("product_type", record.ProductType),
		zap.Int64("amount", amount),
	)

	return &CreateResult{
		Status:     StatusPending,
		OrderID:    record.ID,
		SessionID:  session.ID,
		PaymentURL: session.PaymentURL,
	}, nil
}

type CallbackResult struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	InviteLink string `json:"invite_link,omitempty"`
}

// HandleCallback settles an order after the gateway redirects the buyer
// back. The caller-visible query parameters are never trusted: the payment
// status is re-fetched from the gateway. The terminal-state check, repeated
// under a row lock inside the settlement transaction, keeps a replayed
// callback from crediting the wallet or creating fulfillment rows twice.
func (s *Service) HandleCallback(ctx context.Context, orderID string) (*CallbackResult, error) {
	var record Order
	err := s.db.WithContext(ctx).Where("id = ?", orderID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.NotFound("order not found")
	}
	if err != nil {
		return nil, err
	}

	// Fast path: already settled, report the recorded outcome.
	if record.Terminal() {
		return s.recordedOutcome(&record), nil
	}

	gatewayOrderID := record.GatewayOrderID
	if gatewayOrderID == "" {
		gatewayOrderID = record.ID
	}
	payments, err := s.gateway.FetchPayments(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}

	captured := capturedPayment(payments)
	if captured == nil {
		if err := s.settleFailed(ctx, &record, payments); err != nil {
			return nil, err
		}
		return &CallbackResult{Status: "error", Message: "payment was not completed"}, nil
	}

	res, err := s.settleSuccess(ctx, &record, captured)
	if err != nil {
		return nil, err
	}
	if res == nil {
		// A concurrent callback settled the order first.
		if err := s.db.WithContext(ctx).Where("id = ?", orderID).First(&record).Error; err != nil {
			return nil, err
		}
		return s.recordedOutcome(&record), nil
	}

	link, degraded := s.dispatcher.FinishChannelFulfillment(ctx, res)
	out := &CallbackResult{Status: "success", Message: "payment completed", InviteLink: link}
	if degraded {
		out.Message = "payment completed, invite link will follow"
	}

	return out, nil
}

// settleSuccess writes the terminal status, the transaction row and the
// fulfillment inside one transaction. Returns (nil, nil) when the order was
// already terminal by the time the row lock was taken.
func (s *Service) settleSuccess(ctx context.Context, record *Order, payment *gateway.Payment) (*fulfillment.Result, error) {
	var res *fulfillment.Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked Order
		if err := tx.Scopes(pkgdb.LockingUpdate).Where("id = ?", record.ID).First(&locked).Error; err != nil {
			return err
		}
		if locked.Terminal() {
			return nil
		}

		if err := tx.Model(&Order{}).Where("id = ?", record.ID).Update("status", StatusSuccess).Error; err != nil {
			return err
		}

		if err := s.createTransaction(tx, record, payment, StatusSuccess); err != nil {
			return err
		}

		var err error
		res, err = s.dispatcher.DispatchTx(ctx, tx, fulfillment.Input{
			OrderID:         record.ID,
			BuyerID:         record.BuyerID,
			BuyerExternalID: record.BuyerExternalID,
			ProductType:     record.ProductType,
			ProductID:       record.ProductID,
			ChannelPlanID:   record.ChannelPlanID,
			Amount:          record.Amount,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if res != nil {
		zap.L().Info("order settled",
			zap.String("order_id", record.ID),
			zap.String("product_type", record.ProductType),
			zap.Int64("amount", record.Amount),
			zap.Bool("credited", res.Credited),
		)
	}

	return res, nil
}

func (s *Service) settleFailed(ctx context.Context, record *Order, payments []gateway.Payment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked Order
		if err := tx.Scopes(pkgdb.LockingUpdate).Where("id = ?", record.ID).First(&locked).Error; err != nil {
			return err
		}
		if locked.Terminal() {
			return nil
		}

		if err := tx.Model(&Order{}).Where("id = ?", record.ID).Update("status", StatusFailed).Error; err != nil {
			return err
		}

		var last *gateway.Payment
		if len(payments) > 0 {
			last = &payments[len(payments)-1]
		}
		return s.createTransaction(tx, record, last, StatusFailed)
	})
}

func (s *Service) createTransaction(tx *gorm.DB, record *Order, payment *gateway.Payment, status string) error {
	trx := &Transaction{
		ID:             s.node.Generate().String(),
		OrderID:        record.ID,
		GatewayOrderID: record.GatewayOrderID,
		Status:         status,
		Amount:         record.Amount,
	}
	if payment != nil {
		trx.GatewayPaymentID = payment.ID
		trx.Method = payment.Method
		meta, err := json.Marshal(payment)
		if err == nil {
			trx.Metadata = meta
		}
	}
	return tx.Create(trx).Error
}

func (s *Service) recordedOutcome(record *Order) *CallbackResult {
	if record.Status == StatusSuccess {
		out := &CallbackResult{Status: "success", Message: "payment already processed"}
		if record.ProductType == fulfillment.ProductTypeChannelPlan {
			// Replays still deserve the invite link that was minted the
			// first time around.
			var sub channel.Subscription
			err := s.db.
				Where("buyer_id = ? AND plan_id = ? AND invite_status = ?",
					record.BuyerID, record.ChannelPlanID, channel.InviteIssued).
				Order("created_at DESC").
				First(&sub).Error
			if err == nil {
				out.InviteLink = sub.InviteLink
			}
		}
		return out
	}
	return &CallbackResult{Status: "error", Message: "payment was not completed"}
}

func capturedPayment(payments []gateway.Payment) *gateway.Payment {
	for i := range payments {
		if payments[i].Captured() {
			return &payments[i]
		}
	}
	return nil
}
