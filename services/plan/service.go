package plan

import (
	"context"
	"time"

	"creatorpay-platform/pkg/errutil"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
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

type CreatePlanInput struct {
	Name         string  `json:"name" binding:"required"`
	Description  string  `json:"description"`
	Price        int64   `json:"price"`
	IntervalDays int     `json:"interval_days"`
	FeePercent   float64 `json:"fee_percent"`
	IsDefault    bool    `json:"is_default"`
}

func (s *Service) CreatePlan(ctx context.Context, input CreatePlanInput) (*Plan, error) {
	if input.FeePercent < 0 || input.FeePercent > 100 {
		return nil, errutil.ValidationFailed("fee percent must be between 0 and 100")
	}

	record := &Plan{
		ID:           s.node.Generate().String(),
		Name:         input.Name,
		Description:  input.Description,
		Price:        input.Price,
		IntervalDays: input.IntervalDays,
		FeePercent:   input.FeePercent,
		IsDefault:    input.IsDefault,
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.IsDefault {
			if err := clearDefault(tx); err != nil {
				return err
			}
		}
		return tx.Create(record).Error
	}); err != nil {
		zap.L().Error("failed to create plan", zap.Error(err))
		return nil, errutil.Internal("failed to create plan", errutil.WithErr(err))
	}

	return record, nil
}

type UpdatePlanInput struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Price        *int64   `json:"price"`
	IntervalDays *int     `json:"interval_days"`
	FeePercent   *float64 `json:"fee_percent"`
}

// UpdatePlan applies the provided fields to an existing plan. Default-plan
// changes go through SetDefault.
func (s *Service) UpdatePlan(ctx context.Context, planID string, input UpdatePlanInput) (*Plan, error) {
	if input.FeePercent != nil && (*input.FeePercent < 0 || *input.FeePercent > 100) {
		return nil, errutil.ValidationFailed("fee percent must be between 0 and 100")
	}

	updates := map[string]any{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Price != nil {
		updates["price"] = *input.Price
	}
	if input.IntervalDays != nil {
		updates["interval_days"] = *input.IntervalDays
	}
	if input.FeePercent != nil {
		updates["fee_percent"] = *input.FeePercent
	}
	if len(updates) == 0 {
		return nil, errutil.BadRequest("nothing to update")
	}

	var record Plan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", planID).First(&record).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errutil.NotFound("plan not found")
			}
			return err
		}
		if err := tx.Model(&Plan{}).Where("id = ?", planID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", planID).First(&record).Error
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// SetDefault marks a plan as the platform default, clearing any previous
// default inside the same transaction.
func (s *Service) SetDefault(ctx context.Context, planID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record Plan
		if err := tx.Where("id = ?", planID).First(&record).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errutil.NotFound("plan not found")
			}
			return err
		}

		if record.IsDefault {
			return errutil.Conflict("plan is already the default")
		}

		if err := clearDefault(tx); err != nil {
			return err
		}

		return tx.Model(&Plan{}).Where("id = ?", planID).Update("is_default", true).Error
	})
}

func clearDefault(tx *gorm.DB) error {
	return tx.Model(&Plan{}).Where("is_default = ?", true).Update("is_default", false).Error
}

type SubscribeInput struct {
	PlanID      string   `json:"plan_id" binding:"required"`
	EndsAt      string   `json:"ends_at" binding:"required"`
	FeeOverride *float64 `json:"fee_override"`
}

// Subscribe records a seller's membership on a plan until the given date.
func (s *Service) Subscribe(ctx context.Context, sellerID, planID string, endsAt time.Time, feeOverride *float64) (*Subscription, error) {
	var record Plan
	if err := s.db.WithContext(ctx).Where("id = ?", planID).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errutil.NotFound("plan not found")
		}
		return nil, err
	}

	if feeOverride != nil && (*feeOverride < 0 || *feeOverride > 100) {
		return nil, errutil.ValidationFailed("fee override must be between 0 and 100")
	}

	sub := &Subscription{
		ID:          s.node.Generate().String(),
		SellerID:    sellerID,
		PlanID:      planID,
		FeeOverride: feeOverride,
		Status:      SubscriptionActive,
		StartsAt:    time.Now(),
		EndsAt:      endsAt,
	}
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		return nil, errutil.Internal("failed to create subscription", errutil.WithErr(err))
	}

	return sub, nil
}

// ResolveFee determines the fee percentage applicable to a seller at the
// reference time. Non-default subscriptions win over the default plan; when
// several are active the lowest effective fee is chosen. ok is false when no
// active subscription of any kind exists, in which case no credit may be
// performed.
func (s *Service) ResolveFee(ctx context.Context, sellerID string, now time.Time) (float64, bool, error) {
	var subs []Subscription
	if err := s.db.WithContext(ctx).
		Where("seller_id = ? AND status = ? AND ends_at >= ?", sellerID, SubscriptionActive, now).
		Find(&subs).Error; err != nil {
		return 0, false, err
	}

	if len(subs) == 0 {
		return 0, false, nil
	}

	planIDs := make([]string, 0, len(subs))
	for _, sub := range subs {
		planIDs = append(planIDs, sub.PlanID)
	}

	var plans []Plan
	if err := s.db.WithContext(ctx).Where("id IN ?", planIDs).Find(&plans).Error; err != nil {
		return 0, false, err
	}

	byID := make(map[string]*Plan, len(plans))
	for i := range plans {
		byID[plans[i].ID] = &plans[i]
	}

	var (
		best       float64
		bestPlanID string
		found      bool
		defaultFee float64
		hasDefault bool
	)
	for i := range subs {
		record, ok := byID[subs[i].PlanID]
		if !ok {
			continue
		}

		fee := subs[i].EffectiveFee(record)
		if record.IsDefault {
			if !hasDefault {
				defaultFee = fee
				hasDefault = true
			}
			continue
		}

		// Observed tie-break: prefer the lowest fee, then the smaller plan id
		// for determinism.
		if !found || fee < best || (fee == best && record.ID < bestPlanID) {
			best = fee
			bestPlanID = record.ID
			found = true
		}
	}

	if found {
		return best, true, nil
	}
	if hasDefault {
		return defaultFee, true, nil
	}

	return 0, false, nil
}
