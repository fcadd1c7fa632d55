package order

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"creatorpay-platform/pkg/config"
	"creatorpay-platform/pkg/gateway"
	"creatorpay-platform/pkg/messenger"
	"creatorpay-platform/services/channel"
	"creatorpay-platform/services/fulfillment"
	"creatorpay-platform/services/product"
	"creatorpay-platform/services/testutil"
	"creatorpay-platform/services/wallet"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type tenPercent struct{}

func (tenPercent) ResolveFee(context.Context, string, time.Time) (float64, bool, error) {
	return 10, true, nil
}

type gatewayMock struct {
	createSessionFn func(ctx context.Context, req gateway.CreateSessionRequest) (*gateway.Session, error)
	fetchPaymentsFn func(ctx context.Context, gatewayOrderID string) ([]gateway.Payment, error)
}

func (m *gatewayMock) CreateSession(ctx context.Context, req gateway.CreateSessionRequest) (*gateway.Session, error) {
	if m.createSessionFn != nil {
		return m.createSessionFn(ctx, req)
	}
	return &gateway.Session{ID: "sess-1", OrderID: req.OrderID, PaymentURL: "https://pay/sess-1"}, nil
}

func (m *gatewayMock) FetchPayments(ctx context.Context, gatewayOrderID string) ([]gateway.Payment, error) {
	if m.fetchPaymentsFn != nil {
		return m.fetchPaymentsFn(ctx, gatewayOrderID)
	}
	return nil, nil
}

type sessionStub struct {
	chats []messenger.Chat
	link  string
}

func (s *sessionStub) ListChats(context.Context) ([]messenger.Chat, error) { return s.chats, nil }
func (s *sessionStub) CreateInviteLink(context.Context, string, messenger.InviteOptions) (string, error) {
	return s.link, nil
}
func (s *sessionStub) BanMember(context.Context, string, string) error { return nil }
func (s *sessionStub) Close() error                                    { return nil }

type dialerStub struct{ session *sessionStub }

func (d *dialerStub) Dial(context.Context) (messenger.Session, error) { return d.session, nil }

type fixture struct {
	svc     *Service
	wallets *wallet.Service
	db      *gorm.DB
	gateway *gatewayMock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t,
		&Order{}, &Transaction{},
		&wallet.Wallet{},
		&product.DigitalProduct{}, &product.Purchase{},
		&channel.Channel{}, &channel.Plan{}, &channel.Subscription{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Gateway.Currency = "USD"
	cfg.Gateway.CallbackURL = "https://platform/orders/payment-callback"

	wallets := wallet.NewService(wallet.ServiceParams{DB: db, Node: node, Fees: tenPercent{}})
	products := product.NewService(product.ServiceParams{DB: db, Node: node})
	channels := channel.NewService(channel.ServiceParams{DB: db, Node: node})
	access := channel.NewAccessService(channel.AccessServiceParams{
		Dialer: &dialerStub{session: &sessionStub{
			chats: []messenger.Chat{{ID: "12345"}},
			link:  "https://invite/abc",
		}},
	})
	dispatcher := fulfillment.NewDispatcher(fulfillment.DispatcherParams{
		Wallets:  wallets,
		Products: products,
		Channels: channels,
		Access:   access,
	})

	gw := &gatewayMock{}
	svc := NewService(ServiceParams{
		DB:         db,
		Node:       node,
		Config:     cfg,
		Gateway:    gw,
		Dispatcher: dispatcher,
		Products:   products,
		Channels:   channels,
	})

	return &fixture{svc: svc, wallets: wallets, db: db, gateway: gw}
}

func (f *fixture) seedDigitalProduct(t *testing.T, price int64) {
	t.Helper()
	require.NoError(t, f.db.Create(&product.DigitalProduct{ID: "prod-1", SellerID: "seller-1", Price: price}).Error)
}

func (f *fixture) seedChannelPlan(t *testing.T, price int64, durationDays int) {
	t.Helper()
	require.NoError(t, f.db.Create(&channel.Channel{ID: "chan-1", SellerID: "seller-1", ExternalID: "12345"}).Error)
	require.NoError(t, f.db.Create(&channel.Plan{ID: "plan-1", ChannelID: "chan-1", Name: "monthly", Price: price, DurationDays: durationDays}).Error)
}

func capturedPayments(amount int64) []gateway.Payment {
	return []gateway.Payment{{
		ID:     "pay-1",
		Status: gateway.PaymentCaptured,
		Amount: amount,
		Method: "card",
	}}
}

func TestCreateUsesServerSidePrice(t *testing.T) {
	f := newFixture(t)
	f.seedDigitalProduct(t, 500)

	var sessionReq gateway.CreateSessionRequest
	f.gateway.createSessionFn = func(_ context.Context, req gateway.CreateSessionRequest) (*gateway.Session, error) {
		sessionReq = req
		return &gateway.Session{ID: "sess-1", OrderID: req.OrderID, PaymentURL: "https://pay/sess-1"}, nil
	}

	result, err := f.svc.Create(context.Background(), "buyer-1", CreateInput{
		ProductType: fulfillment.ProductTypeDigital,
		ProductID:   "prod-1",
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, result.Status)
	require.Equal(t, "sess-1", result.SessionID)
	require.Equal(t, int64(500), sessionReq.Amount)
	require.Equal(t, "USD", sessionReq.Currency)

	var record Order
	require.NoError(t, f.db.Where("id = ?", result.OrderID).First(&record).Error)
	require.Equal(t, StatusPending, record.Status)
	require.Equal(t, int64(500), record.Amount)
}

func TestCreateRejectsInvalidType(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), "buyer-1", CreateInput{ProductType: "GIFT_CARD"})
	require.Error(t, err)
}

func TestCreateRejectsAmbiguousReference(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), "buyer-1", CreateInput{
		ProductType:   fulfillment.ProductTypeDigital,
		ProductID:     "prod-1",
		ChannelPlanID: "plan-1",
	})
	require.Error(t, err)
}

func TestCallbackSettlesDigitalOrder(t *testing.T) {
	f := newFixture(t)
	f.seedDigitalProduct(t, 500)

	result, err := f.svc.Create(context.Background(), "buyer-1", CreateInput{
		ProductType: fulfillment.ProductTypeDigital,
		ProductID:   "prod-1",
	})
	require.NoError(t, err)

	f.gateway.fetchPaymentsFn = func(context.Context, string) ([]gateway.Payment, error) {
		return capturedPayments(500), nil
	}

	out, err := f.svc.HandleCallback(context.Background(), result.OrderID)
	require.NoError(t, err)
	require.Equal(t, "success", out.Status)

	var record Order
	require.NoError(t, f.db.Where("id = ?", result.OrderID).First(&record).Error)
	require.Equal(t, StatusSuccess, record.Status)

	var trx Transaction
	require.NoError(t, f.db.Where("order_id = ?", result.OrderID).First(&trx).Error)
	require.Equal(t, StatusSuccess, trx.Status)
	require.Equal(t, record.GatewayOrderID, trx.GatewayOrderID)
	require.NotEmpty(t, trx.GatewayOrderID)
	require.Equal(t, "pay-1", trx.GatewayPaymentID)

	w, err := f.wallets.GetBySeller(context.Background(), "seller-1")
	require.NoError(t, err)
	require.Equal(t, int64(450), w.TotalEarnings)
	require.Equal(t, int64(50), w.TotalCharges)
}

func TestCallbackIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seedDigitalProduct(t, 500)

	result, err := f.svc.Create(context.Background(), "buyer-1", CreateInput{
		ProductType: fulfillment.ProductTypeDigital,
		ProductID:   "prod-1",
	})
	require.NoError(t, err)

	f.gateway.fetchPaymentsFn = func(context.Context, string) ([]gateway.Payment, error) {
		return capturedPayments(500), nil
	}

	_, err = f.svc.HandleCallback(context.Background(), result.OrderID)
	require.NoError(t, err)

	out, err := f.svc.HandleCallback(context.Background(), result.OrderID)
	require.NoError(t, err)
	require.Equal(t, "success", out.Status)

	// Replaying the callback must not double anything.
	var trxCount int64
	require.NoError(t, f.db.Model(&Transaction{}).Count(&trxCount).Error)
	require.Equal(t, int64(1), trxCount)

	var purchaseCount int64
	require.NoError(t, f.db.Model(&product.Purchase{}).Count(&purchaseCount).Error)
	require.Equal(t, int64(1), purchaseCount)

	w, err := f.wallets.GetBySeller(context.Background(), "seller-1")
	require.NoError(t, err)
	require.Equal(t, int64(450), w.TotalEarnings)
}

func TestCallbackChannelPlanReturnsInvite(t *testing.T) {
	f := newFixture(t)
	f.seedChannelPlan(t, 500, 30)

	result, err := f.svc.Create(context.Background(), "buyer-1", CreateInput{
		ProductType:     fulfillment.ProductTypeChannelPlan,
		ChannelPlanID:   "plan-1",
		BuyerExternalID: "777",
	})
	require.NoError(t, err)

	f.gateway.fetchPaymentsFn = func(context.Context, string) ([]gateway.Payment, error) {
		return capturedPayments(500), nil
	}

	out, err := f.svc.HandleCallback(context.Background(), result.OrderID)
	require.NoError(t, err)
	require.Equal(t, "success", out.Status)
	require.Equal(t, "https://invite/abc", out.InviteLink)

	var sub channel.Subscription
	require.NoError(t, f.db.Where("buyer_id = ?", "buyer-1").First(&sub).Error)
	require.Equal(t, channel.SubscriptionActive, sub.Status)
	// The buyer's messaging id lands on the subscription for the sweep.
	require.Equal(t, "777", sub.BuyerExternalID)
	require.WithinDuration(t, time.Now().Add(30*24*time.Hour), sub.ExpiresAt, time.Minute)

	// The replay hands back the already-minted link.
	replay, err := f.svc.HandleCallback(context.Background(), result.OrderID)
	require.NoError(t, err)
	require.Equal(t, "https://invite/abc", replay.InviteLink)
}

func TestCallbackFailedPayment(t *testing.T) {
	f := newFixture(t)
	f.seedDigitalProduct(t, 500)

	result, err := f.svc.Create(context.Background(), "buyer-1", CreateInput{
		ProductType: fulfillment.ProductTypeDigital,
		ProductID:   "prod-1",
	})
	require.NoError(t, err)

	f.gateway.fetchPaymentsFn = func(context.Context, string) ([]gateway.Payment, error) {
		return []gateway.Payment{{ID: "pay-1", Status: gateway.PaymentFailed, Amount: 500}}, nil
	}

	out, err := f.svc.HandleCallback(context.Background(), result.OrderID)
	require.NoError(t, err)
	require.Equal(t, "error", out.Status)

	var record Order
	require.NoError(t, f.db.Where("id = ?", result.OrderID).First(&record).Error)
	require.Equal(t, StatusFailed, record.Status)

	// No wallet, no purchase.
	w, err := f.wallets.GetBySeller(context.Background(), "seller-1")
	require.NoError(t, err)
	require.Nil(t, w)
}

func TestCallbackUnknownOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.HandleCallback(context.Background(), "missing")
	require.Error(t, err)

	var trxCount int64
	require.NoError(t, f.db.Model(&Transaction{}).Count(&trxCount).Error)
	require.Zero(t, trxCount)
}
