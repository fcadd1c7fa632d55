package wallet

import (
	"context"
	"errors"
	"time"

	pkgdb "creatorpay-platform/pkg/db"
	"creatorpay-platform/pkg/errutil"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FeeResolver yields the transaction-fee percentage applicable to a seller.
// ok is false when no fee tier resolves; the credit must then be skipped.
type FeeResolver interface {
	ResolveFee(ctx context.Context, sellerID string, now time.Time) (pct float64, ok bool, err error)
}

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	fees FeeResolver
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
	Fees FeeResolver
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
		fees: p.Fees,
	}
}

// Credit applies a gross settlement amount to the seller's wallet in its
// own transaction. See CreditTx.
func (s *Service) Credit(ctx context.Context, sellerID string, gross int64) (bool, error) {
	var credited bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		credited, err = s.CreditTx(ctx, tx, sellerID, gross)
		return err
	})
	return credited, err
}

// CreditTx resolves the seller's fee tier, splits the gross amount and
// increments the wallet inside the caller's transaction, creating the
// wallet first if the seller has none. When no fee tier resolves the gross
// amount is not credited and (false, nil) is returned: there is no free
// fallback tier.
func (s *Service) CreditTx(ctx context.Context, tx *gorm.DB, sellerID string, gross int64) (bool, error) {
	if gross <= 0 {
		return false, errutil.ValidationFailed("credit amount must be positive")
	}

	pct, ok, err := s.fees.ResolveFee(ctx, sellerID, time.Now())
	if err != nil {
		return false, err
	}
	if !ok {
		zap.L().Warn("no fee tier resolved, skipping wallet credit",
			zap.String("seller_id", sellerID),
			zap.Int64("gross", gross),
		)
		return false, nil
	}

	fee, net := SplitFee(gross, pct)

	w, err := s.lockBySeller(ctx, tx, sellerID)
	if err != nil {
		return false, err
	}
	if w == nil {
		w = &Wallet{
			ID:       s.node.Generate().String(),
			SellerID: sellerID,
		}
		if err := tx.Create(w).Error; err != nil {
			return false, err
		}
	}

	if err := tx.Model(&Wallet{}).Where("id = ?", w.ID).Updates(map[string]any{
		"total_balance":        gorm.Expr("total_balance + ?", net),
		"withdrawable_balance": gorm.Expr("withdrawable_balance + ?", net),
		"total_earnings":       gorm.Expr("total_earnings + ?", net),
		"total_charges":        gorm.Expr("total_charges + ?", fee),
		"updated_at":           time.Now(),
	}).Error; err != nil {
		return false, err
	}

	zap.L().Info("wallet credited",
		zap.String("wallet_id", w.ID),
		zap.String("seller_id", sellerID),
		zap.Int64("gross", gross),
		zap.Int64("net", net),
		zap.Int64("fee", fee),
		zap.Float64("fee_percent", pct),
	)

	return true, nil
}

// Reserve moves an amount from the withdrawable balance into the pending
// balance ahead of a withdrawal. The guard on withdrawable_balance makes
// the check-and-decrement a single statement.
func (s *Service) Reserve(ctx context.Context, tx *gorm.DB, walletID string, amount int64) error {
	if amount <= 0 {
		return errutil.ValidationFailed("reserve amount must be positive")
	}

	res := tx.WithContext(ctx).Model(&Wallet{}).
		Where("id = ? AND withdrawable_balance >= ?", walletID, amount).
		Updates(map[string]any{
			"total_balance":        gorm.Expr("total_balance - ?", amount),
			"withdrawable_balance": gorm.Expr("withdrawable_balance - ?", amount),
			"pending_balance":      gorm.Expr("pending_balance + ?", amount),
			"updated_at":           time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errutil.ValidationFailed("amount exceeds withdrawable balance")
	}

	return nil
}

// Release settles a previously reserved amount: to totalWithdrawn when the
// withdrawal was paid out, or back onto the balances when it was rejected
// or cancelled.
func (s *Service) Release(ctx context.Context, tx *gorm.DB, walletID string, amount int64, dest ReleaseDestination) error {
	if amount <= 0 {
		return errutil.ValidationFailed("release amount must be positive")
	}

	var updates map[string]any
	switch dest {
	case ReleaseWithdrawn:
		updates = map[string]any{
			"pending_balance": gorm.Expr("pending_balance - ?", amount),
			"total_withdrawn": gorm.Expr("total_withdrawn + ?", amount),
			"updated_at":      time.Now(),
		}
	case ReleaseReturned:
		updates = map[string]any{
			"pending_balance":      gorm.Expr("pending_balance - ?", amount),
			"total_balance":        gorm.Expr("total_balance + ?", amount),
			"withdrawable_balance": gorm.Expr("withdrawable_balance + ?", amount),
			"updated_at":           time.Now(),
		}
	default:
		return errutil.BadRequest("unsupported release destination")
	}

	res := tx.WithContext(ctx).Model(&Wallet{}).
		Where("id = ? AND pending_balance >= ?", walletID, amount).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errutil.Conflict("pending balance does not cover the release")
	}

	return nil
}

// GetBySeller returns the seller's wallet, or nil when none exists yet.
func (s *Service) GetBySeller(ctx context.Context, sellerID string) (*Wallet, error) {
	var w Wallet
	err := s.db.WithContext(ctx).Where("seller_id = ?", sellerID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// LockBySeller loads and row-locks the seller's wallet inside tx, or
// returns nil when absent.
func (s *Service) LockBySeller(ctx context.Context, tx *gorm.DB, sellerID string) (*Wallet, error) {
	return s.lockBySeller(ctx, tx, sellerID)
}

func (s *Service) lockBySeller(ctx context.Context, tx *gorm.DB, sellerID string) (*Wallet, error) {
	var w Wallet
	err := tx.WithContext(ctx).Scopes(pkgdb.LockingUpdate).
		Where("seller_id = ?", sellerID).
		First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}
