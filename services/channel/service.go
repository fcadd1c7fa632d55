package channel

import (
	"context"
	"errors"
	"time"

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

func (s *Service) GetPlan(ctx context.Context, planID string) (*Plan, error) {
	var record Plan
	err := s.db.WithContext(ctx).Where("id = ?", planID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.NotFound("channel plan not found")
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *Service) GetChannel(ctx context.Context, channelID string) (*Channel, error) {
	var record Channel
	err := s.db.WithContext(ctx).Where("id = ?", channelID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.NotFound("channel not found")
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// UpsertSubscriptionTx grants or extends the buyer's access to a plan inside
// the caller's transaction. An active, non-expired subscription for the same
// plan is extended by the plan duration instead of creating a duplicate row;
// otherwise a fresh subscription runs from now. buyerExternalID is the
// buyer's messaging-platform id, kept so the expiry sweep can revoke access.
func (s *Service) UpsertSubscriptionTx(ctx context.Context, tx *gorm.DB, buyerID, buyerExternalID string, plan *Plan) (*Subscription, error) {
	now := time.Now()
	duration := time.Duration(plan.DurationDays) * 24 * time.Hour

	var existing Subscription
	err := tx.WithContext(ctx).
		Where("buyer_id = ? AND plan_id = ? AND status = ? AND expires_at > ?",
			buyerID, plan.ID, SubscriptionActive, now).
		First(&existing).Error
	if err == nil {
		extended := existing.ExpiresAt.Add(duration)
		updates := map[string]any{
			"expires_at": extended,
			"updated_at": now,
		}
		if buyerExternalID != "" {
			updates["buyer_external_id"] = buyerExternalID
			existing.BuyerExternalID = buyerExternalID
		}
		if err := tx.Model(&Subscription{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
			return nil, err
		}
		existing.ExpiresAt = extended
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub := &Subscription{
		ID:               s.node.Generate().String(),
		BuyerID:          buyerID,
		BuyerExternalID:  buyerExternalID,
		ChannelID:        plan.ChannelID,
		PlanID:           plan.ID,
		PlanName:         plan.Name,
		PlanPrice:        plan.Price,
		PlanDurationDays: plan.DurationDays,
		Status:           SubscriptionActive,
		ExpiresAt:        now.Add(duration),
		InviteStatus:     InvitePending,
	}
	if err := tx.Create(sub).Error; err != nil {
		return nil, err
	}

	return sub, nil
}

// SetInvite attaches a minted invite link to the subscription.
func (s *Service) SetInvite(ctx context.Context, subscriptionID, link string) error {
	return s.db.WithContext(ctx).Model(&Subscription{}).
		Where("id = ?", subscriptionID).
		Updates(map[string]any{
			"invite_link":   link,
			"invite_status": InviteIssued,
			"updated_at":    time.Now(),
		}).Error
}

// MarkInviteFailed records that the invite link could not be minted. The
// subscription itself stays active.
func (s *Service) MarkInviteFailed(ctx context.Context, subscriptionID string) error {
	return s.db.WithContext(ctx).Model(&Subscription{}).
		Where("id = ?", subscriptionID).
		Updates(map[string]any{
			"invite_status": InviteFailed,
			"updated_at":    time.Now(),
		}).Error
}

// ListExpired returns active subscriptions whose expiry has passed.
func (s *Service) ListExpired(ctx context.Context, now time.Time) ([]Subscription, error) {
	var subs []Subscription
	err := s.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", SubscriptionActive, now).
		Find(&subs).Error
	return subs, err
}

// MarkExpired flips an active subscription to EXPIRED. The status guard
// makes the sweep idempotent: a row already expired is not touched again.
func (s *Service) MarkExpired(ctx context.Context, subscriptionID string, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&Subscription{}).
		Where("id = ? AND status = ?", subscriptionID, SubscriptionActive).
		Updates(map[string]any{
			"status":     SubscriptionExpired,
			"expired_at": now,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
