package channel

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"creatorpay-platform/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t, &Channel{}, &Plan{}, &Subscription{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParams{DB: db, Node: node}), db
}

func seedPlan(t *testing.T, db *gorm.DB, durationDays int) *Plan {
	t.Helper()

	require.NoError(t, db.Create(&Channel{ID: "chan-1", SellerID: "seller-1", ExternalID: "12345"}).Error)
	plan := &Plan{ID: "plan-1", ChannelID: "chan-1", Name: "monthly", Price: 500, DurationDays: durationDays}
	require.NoError(t, db.Create(plan).Error)
	return plan
}

func TestUpsertSubscriptionCreates(t *testing.T) {
	svc, db := newTestService(t)
	plan := seedPlan(t, db, 30)

	var sub *Subscription
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		sub, err = svc.UpsertSubscriptionTx(context.Background(), tx, "buyer-1", "777", plan)
		return err
	})
	require.NoError(t, err)

	require.Equal(t, SubscriptionActive, sub.Status)
	require.Equal(t, InvitePending, sub.InviteStatus)
	require.Equal(t, "777", sub.BuyerExternalID)
	require.Equal(t, "monthly", sub.PlanName)
	require.Equal(t, int64(500), sub.PlanPrice)
	require.WithinDuration(t, time.Now().Add(30*24*time.Hour), sub.ExpiresAt, time.Minute)
}

func TestUpsertSubscriptionExtends(t *testing.T) {
	svc, db := newTestService(t)
	plan := seedPlan(t, db, 30)

	var first, second *Subscription
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		first, err = svc.UpsertSubscriptionTx(context.Background(), tx, "buyer-1", "", plan)
		return err
	}))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		second, err = svc.UpsertSubscriptionTx(context.Background(), tx, "buyer-1", "777", plan)
		return err
	}))

	// A renewal extends the same row instead of creating a duplicate.
	require.Equal(t, first.ID, second.ID)
	require.WithinDuration(t, time.Now().Add(60*24*time.Hour), second.ExpiresAt, time.Minute)

	var count int64
	require.NoError(t, db.Model(&Subscription{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	// A renewal may backfill the buyer's messaging id.
	var got Subscription
	require.NoError(t, db.Where("id = ?", first.ID).First(&got).Error)
	require.Equal(t, "777", got.BuyerExternalID)
}

func TestSetInviteAndMarkFailed(t *testing.T) {
	svc, db := newTestService(t)
	plan := seedPlan(t, db, 30)

	var sub *Subscription
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		sub, err = svc.UpsertSubscriptionTx(context.Background(), tx, "buyer-1", "", plan)
		return err
	}))

	require.NoError(t, svc.SetInvite(context.Background(), sub.ID, "https://invite/abc"))

	var got Subscription
	require.NoError(t, db.Where("id = ?", sub.ID).First(&got).Error)
	require.Equal(t, InviteIssued, got.InviteStatus)
	require.Equal(t, "https://invite/abc", got.InviteLink)

	require.NoError(t, svc.MarkInviteFailed(context.Background(), sub.ID))
	require.NoError(t, db.Where("id = ?", sub.ID).First(&got).Error)
	require.Equal(t, InviteFailed, got.InviteStatus)
}

func TestMarkExpiredIsIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	plan := seedPlan(t, db, 30)

	var sub *Subscription
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		sub, err = svc.UpsertSubscriptionTx(context.Background(), tx, "buyer-1", "", plan)
		return err
	}))

	now := time.Now()
	flipped, err := svc.MarkExpired(context.Background(), sub.ID, now)
	require.NoError(t, err)
	require.True(t, flipped)

	// A second pass finds nothing to do.
	flipped, err = svc.MarkExpired(context.Background(), sub.ID, now)
	require.NoError(t, err)
	require.False(t, flipped)

	var got Subscription
	require.NoError(t, db.Where("id = ?", sub.ID).First(&got).Error)
	require.Equal(t, SubscriptionExpired, got.Status)
}

func TestListExpired(t *testing.T) {
	svc, db := newTestService(t)
	seedPlan(t, db, 30)

	require.NoError(t, db.Create(&Subscription{
		ID: "sub-live", BuyerID: "buyer-1", ChannelID: "chan-1", PlanID: "plan-1",
		Status: SubscriptionActive, ExpiresAt: time.Now().Add(time.Hour),
	}).Error)
	require.NoError(t, db.Create(&Subscription{
		ID: "sub-dead", BuyerID: "buyer-2", ChannelID: "chan-1", PlanID: "plan-1",
		Status: SubscriptionActive, ExpiresAt: time.Now().Add(-time.Hour),
	}).Error)

	expired, err := svc.ListExpired(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.Equal(t, "sub-dead", expired[0].ID)
}
