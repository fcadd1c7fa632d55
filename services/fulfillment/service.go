package fulfillment

import (
	"context"

	"creatorpay-platform/pkg/errutil"
	"creatorpay-platform/services/channel"
	"creatorpay-platform/services/product"
	"creatorpay-platform/services/wallet"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ProductTypeDigital     = "DIGITAL_PRODUCT"
	ProductTypeChannelPlan = "CHANNEL_PLAN"
)

// ValidProductType reports whether t names a fulfillable product type.
func ValidProductType(t string) bool {
	return t == ProductTypeDigital || t == ProductTypeChannelPlan
}

// Input is a successfully-paid order ready to be fulfilled. Exactly one of
// ProductID and ChannelPlanID is set, matching ProductType.
// BuyerExternalID is the buyer's messaging-platform id, recorded on channel
// subscriptions so expired access can be revoked later.
type Input struct {
	OrderID         string
	BuyerID         string
	BuyerExternalID string
	ProductType     string
	ProductID       string
	ChannelPlanID   string
	Amount          int64
}

// Result is what the dispatch produced inside the settlement transaction.
// Subscription is set only for the channel branch; the invite link is minted
// afterwards, outside the transaction.
type Result struct {
	Purchase     *product.Purchase
	Subscription *channel.Subscription
	Channel      *channel.Channel
	Credited     bool
}

// Dispatcher grants the purchased product and credits the seller. One branch
// runs per order, selected by product type.
type Dispatcher struct {
	wallets  *wallet.Service
	products *product.Service
	channels *channel.Service
	access   *channel.AccessService
}

type DispatcherParams struct {
	fx.In
	Wallets  *wallet.Service
	Products *product.Service
	Channels *channel.Service
	Access   *channel.AccessService
}

func NewDispatcher(p DispatcherParams) *Dispatcher {
	return &Dispatcher{
		wallets:  p.Wallets,
		products: p.Products,
		channels: p.Channels,
		access:   p.Access,
	}
}

// DispatchTx runs the product-type branch inside the caller's transaction:
// the purchase or subscription row plus the seller's wallet credit commit or
// roll back together.
func (d *Dispatcher) DispatchTx(ctx context.Context, tx *gorm.DB, in Input) (*Result, error) {
	switch in.ProductType {
	case ProductTypeDigital:
		return d.dispatchDigital(ctx, tx, in)
	case ProductTypeChannelPlan:
		return d.dispatchChannelPlan(ctx, tx, in)
	default:
		return nil, errutil.ValidationFailed("unsupported product type")
	}
}

func (d *Dispatcher) dispatchDigital(ctx context.Context, tx *gorm.DB, in Input) (*Result, error) {
	record, err := d.products.Get(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	purchase, err := d.products.RegisterPurchaseTx(ctx, tx, in.BuyerID, record.ID, in.OrderID, in.Amount)
	if err != nil {
		return nil, err
	}

	credited, err := d.wallets.CreditTx(ctx, tx, record.SellerID, in.Amount)
	if err != nil {
		return nil, err
	}

	return &Result{Purchase: purchase, Credited: credited}, nil
}

func (d *Dispatcher) dispatchChannelPlan(ctx context.Context, tx *gorm.DB, in Input) (*Result, error) {
	plan, err := d.channels.GetPlan(ctx, in.ChannelPlanID)
	if err != nil {
		return nil, err
	}
	ch, err := d.channels.GetChannel(ctx, plan.ChannelID)
	if err != nil {
		return nil, err
	}

	sub, err := d.channels.UpsertSubscriptionTx(ctx, tx, in.BuyerID, in.BuyerExternalID, plan)
	if err != nil {
		return nil, err
	}

	credited, err := d.wallets.CreditTx(ctx, tx, ch.SellerID, in.Amount)
	if err != nil {
		return nil, err
	}

	return &Result{Subscription: sub, Channel: ch, Credited: credited}, nil
}

// FinishChannelFulfillment mints the invite link for a freshly dispatched
// channel subscription. It runs after the settlement transaction commits:
// failure here degrades the response but never unwinds the fulfillment.
func (d *Dispatcher) FinishChannelFulfillment(ctx context.Context, res *Result) (string, bool) {
	if res.Subscription == nil || res.Channel == nil {
		return "", false
	}

	link, err := d.access.IssueInvite(ctx, res.Channel.ExternalID)
	if err != nil {
		zap.L().Warn("invite link could not be minted",
			zap.String("subscription_id", res.Subscription.ID),
			zap.String("channel_external_id", res.Channel.ExternalID),
			zap.Error(err),
		)
		if err := d.channels.MarkInviteFailed(ctx, res.Subscription.ID); err != nil {
			zap.L().Error("failed to record invite failure",
				zap.String("subscription_id", res.Subscription.ID),
				zap.Error(err),
			)
		}
		return "", true
	}

	if err := d.channels.SetInvite(ctx, res.Subscription.ID, link); err != nil {
		zap.L().Error("failed to attach invite link",
			zap.String("subscription_id", res.Subscription.ID),
			zap.Error(err),
		)
	}

	return link, false
}
