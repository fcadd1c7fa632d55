package withdrawal

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"creatorpay-platform/pkg/auth"
	"creatorpay-platform/services/testutil"
	"creatorpay-platform/services/wallet"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type zeroFee struct{}

func (zeroFee) ResolveFee(context.Context, string, time.Time) (float64, bool, error) {
	return 0, true, nil
}

type fixture struct {
	svc     *Service
	wallets *wallet.Service
	db      *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t, &wallet.Wallet{}, &Request{}, &PaymentMethod{}, &KycRecord{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	wallets := wallet.NewService(wallet.ServiceParams{DB: db, Node: node, Fees: zeroFee{}})
	svc := NewService(ServiceParams{DB: db, Node: node, Wallets: wallets})

	return &fixture{svc: svc, wallets: wallets, db: db}
}

func (f *fixture) approveKyc(t *testing.T, sellerID string) {
	t.Helper()
	require.NoError(t, f.db.Create(&KycRecord{ID: "kyc-" + sellerID, SellerID: sellerID, Status: KycApproved}).Error)
}

func (f *fixture) fund(t *testing.T, sellerID string, amount int64) *wallet.Wallet {
	t.Helper()

	credited, err := f.wallets.Credit(context.Background(), sellerID, amount)
	require.NoError(t, err)
	require.True(t, credited)

	w, err := f.wallets.GetBySeller(context.Background(), sellerID)
	require.NoError(t, err)
	return w
}

func TestCreateRequiresKyc(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "seller-1", 1000)

	_, err := f.svc.Create(context.Background(), "seller-1", 400, "")
	require.Error(t, err)
}

func TestCreateReservesAmount(t *testing.T) {
	f := newFixture(t)
	f.approveKyc(t, "seller-1")
	f.fund(t, "seller-1", 1000)

	record, err := f.svc.Create(context.Background(), "seller-1", 400, "")
	require.NoError(t, err)
	require.Equal(t, StatusPending, record.Status)

	w, err := f.wallets.GetBySeller(context.Background(), "seller-1")
	require.NoError(t, err)
	require.Equal(t, int64(600), w.WithdrawableBalance)
	require.Equal(t, int64(400), w.PendingBalance)
}

func TestCreateExceedingBalance(t *testing.T) {
	f := newFixture(t)
	f.approveKyc(t, "seller-1")
	f.fund(t, "seller-1", 100)

	_, err := f.svc.Create(context.Background(), "seller-1", 400, "")
	require.Error(t, err)

	// Nothing may be reserved when the create fails.
	w, err := f.wallets.GetBySeller(context.Background(), "seller-1")
	require.NoError(t, err)
	require.Equal(t, int64(100), w.WithdrawableBalance)
	require.Equal(t, int64(0), w.PendingBalance)

	var count int64
	require.NoError(t, f.db.Model(&Request{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestApprovePaysOut(t *testing.T) {
	f := newFixture(t)
	f.approveKyc(t, "seller-1")
	f.fund(t, "seller-1", 1000)

	record, err := f.svc.Create(context.Background(), "seller-1", 400, "")
	require.NoError(t, err)

	approved, err := f.svc.Approve(context.Background(), record.ID, "admin-1", "ref-123")
	require.NoError(t, err)
	require.Equal(t, StatusPaid, approved.Status)
	require.NotNil(t, approved.ProcessedAt)

	w, err := f.wallets.GetBySeller(context.Background(), "seller-1")
	require.NoError(t, err)
	require.Equal(t, int64(0), w.PendingBalance)
	require.Equal(t, int64(400), w.TotalWithdrawn)
	require.Equal(t, int64(600), w.WithdrawableBalance)
}

func TestApproveTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	f.approveKyc(t, "seller-1")
	f.fund(t, "seller-1", 1000)

	record, err := f.svc.Create(context.Background(), "seller-1", 400, "")
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), record.ID, "admin-1", "")
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), record.ID, "admin-1", "")
	require.Error(t, err)

	// Balances stay untouched by the refused transition.
	w, err := f.wallets.GetBySeller(context.Background(), "seller-1")
	require.NoError(t, err)
	require.Equal(t, int64(400), w.TotalWithdrawn)
	require.Equal(t, int64(0), w.PendingBalance)
}

func TestRejectRestoresBalance(t *testing.T) {
	f := newFixture(t)
	f.approveKyc(t, "seller-1")
	f.fund(t, "seller-1", 1000)

	record, err := f.svc.Create(context.Background(), "seller-1", 400, "")
	require.NoError(t, err)

	rejected, err := f.svc.Reject(context.Background(), record.ID, "admin-1", "missing bank details")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)
	require.Equal(t, "missing bank details", rejected.AdminNotes)

	w, err := f.wallets.GetBySeller(context.Background(), "seller-1")
	require.NoError(t, err)
	require.Equal(t, int64(1000), w.WithdrawableBalance)
	require.Equal(t, int64(0), w.PendingBalance)
	require.Equal(t, int64(0), w.TotalWithdrawn)
}

func TestCancelOnlyByOwner(t *testing.T) {
	f := newFixture(t)
	f.approveKyc(t, "seller-1")
	f.fund(t, "seller-1", 1000)

	record, err := f.svc.Create(context.Background(), "seller-1", 400, "")
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), record.ID, auth.Caller{UserID: "seller-2"})
	require.Error(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), record.ID, auth.Caller{UserID: "seller-1"})
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)

	w, err := f.wallets.GetBySeller(context.Background(), "seller-1")
	require.NoError(t, err)
	require.Equal(t, int64(1000), w.WithdrawableBalance)
}

func TestListScopedToSeller(t *testing.T) {
	f := newFixture(t)
	f.approveKyc(t, "seller-1")
	f.approveKyc(t, "seller-2")
	f.fund(t, "seller-1", 1000)
	f.fund(t, "seller-2", 1000)

	_, err := f.svc.Create(context.Background(), "seller-1", 100, "")
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), "seller-2", 200, "")
	require.NoError(t, err)

	mine, err := f.svc.List(context.Background(), "seller-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "seller-1", mine[0].SellerID)

	all, err := f.svc.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
}
