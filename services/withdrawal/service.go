package withdrawal

import (
	"context"
	"errors"
	"time"

	"creatorpay-platform/pkg/auth"
	pkgdb "creatorpay-platform/pkg/db"
	"creatorpay-platform/pkg/errutil"
	"creatorpay-platform/pkg/task"
	"creatorpay-platform/services/wallet"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	wallets  *wallet.Service
	enqueuer task.Enqueuer
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Wallets  *wallet.Service
	Enqueuer task.Enqueuer `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		wallets:  p.Wallets,
		enqueuer: p.Enqueuer,
	}
}

// Create opens a payout request for the seller and moves the amount from the
// withdrawable balance into pending, both within one transaction. The seller
// must have an approved KYC record and the amount must not exceed the
// withdrawable balance.
func (s *Service) Create(ctx context.Context, sellerID string, amount int64, paymentMethodID string) (*Request, error) {
	if amount <= 0 {
		return nil, errutil.ValidationFailed("withdrawal amount must be positive")
	}

	var kyc KycRecord
	err := s.db.WithContext(ctx).
		Where("seller_id = ? AND status = ?", sellerID, KycApproved).
		First(&kyc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.ValidationFailed("withdrawal requires an approved KYC record")
	}
	if err != nil {
		return nil, err
	}

	if paymentMethodID != "" {
		var method PaymentMethod
		err := s.db.WithContext(ctx).
			Where("id = ? AND seller_id = ?", paymentMethodID, sellerID).
			First(&method).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("payment method not found")
		}
		if err != nil {
			return nil, err
		}
	}

	record := &Request{
		ID:              s.node.Generate().String(),
		SellerID:        sellerID,
		Amount:          amount,
		Status:          StatusPending,
		PaymentMethodID: paymentMethodID,
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := s.wallets.LockBySeller(ctx, tx, sellerID)
		if err != nil {
			return err
		}
		if w == nil {
			return errutil.NotFound("wallet not found")
		}
		if amount > w.WithdrawableBalance {
			return errutil.ValidationFailed("amount exceeds withdrawable balance")
		}

		record.WalletID = w.ID
		if err := tx.Create(record).Error; err != nil {
			return err
		}

		return s.wallets.Reserve(ctx, tx, w.ID, amount)
	}); err != nil {
		return nil, err
	}

	zap.L().Info("withdrawal requested",
		zap.String("request_id", record.ID),
		zap.String("seller_id", sellerID),
		zap.Int64("amount", amount),
	)

	return record, nil
}

// Approve pays out a pending request: the reserved amount leaves the pending
// balance for totalWithdrawn. Conflict when the request is already terminal.
func (s *Service) Approve(ctx context.Context, requestID, adminID, gatewayDetails string) (*Request, error) {
	record, err := s.transition(ctx, requestID, StatusPaid, func(tx *gorm.DB, r *Request) error {
		r.GatewayDetails = gatewayDetails
		return s.wallets.Release(ctx, tx, r.WalletID, r.Amount, wallet.ReleaseWithdrawn)
	}, adminID, "")
	if err != nil {
		return nil, err
	}

	s.notify(record)
	return record, nil
}

// Reject returns the reserved amount to the seller's balances.
func (s *Service) Reject(ctx context.Context, requestID, adminID, notes string) (*Request, error) {
	record, err := s.transition(ctx, requestID, StatusRejected, func(tx *gorm.DB, r *Request) error {
		return s.wallets.Release(ctx, tx, r.WalletID, r.Amount, wallet.ReleaseReturned)
	}, adminID, notes)
	if err != nil {
		return nil, err
	}

	s.notify(record)
	return record, nil
}

// Cancel lets the owning seller withdraw a pending request; the reserved
// amount is returned like a rejection.
func (s *Service) Cancel(ctx context.Context, requestID string, caller auth.Caller) (*Request, error) {
	return s.transition(ctx, requestID, StatusCancelled, func(tx *gorm.DB, r *Request) error {
		if r.SellerID != caller.UserID {
			return errutil.Forbidden("withdrawal belongs to another seller")
		}
		return s.wallets.Release(ctx, tx, r.WalletID, r.Amount, wallet.ReleaseReturned)
	}, caller.UserID, "cancelled by seller")
}

// transition locks the request row, verifies it is still PENDING and applies
// the status change plus the balance release in one transaction.
func (s *Service) transition(ctx context.Context, requestID, target string, apply func(tx *gorm.DB, r *Request) error, actorID, notes string) (*Request, error) {
	var record Request
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Scopes(pkgdb.LockingUpdate).
			Where("id = ?", requestID).
			First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errutil.NotFound("withdrawal request not found")
		}
		if err != nil {
			return err
		}

		if record.Status != StatusPending {
			return errutil.Conflict("withdrawal is not pending")
		}

		if err := apply(tx, &record); err != nil {
			return err
		}

		now := time.Now()
		record.Status = target
		record.ProcessedAt = &now
		record.ProcessedBy = actorID
		if notes != "" {
			record.AdminNotes = notes
		}

		return tx.Model(&Request{}).Where("id = ?", record.ID).Updates(map[string]any{
			"status":          record.Status,
			"admin_notes":     record.AdminNotes,
			"gateway_details": record.GatewayDetails,
			"processed_at":    record.ProcessedAt,
			"processed_by":    record.ProcessedBy,
			"updated_at":      now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("withdrawal transitioned",
		zap.String("request_id", record.ID),
		zap.String("status", record.Status),
		zap.Int64("amount", record.Amount),
	)

	return &record, nil
}

// List returns the seller's request history, newest first.
func (s *Service) List(ctx context.Context, sellerID string) ([]Request, error) {
	var records []Request
	err := s.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// ListAll returns every request, for admin review.
func (s *Service) ListAll(ctx context.Context) ([]Request, error) {
	var records []Request
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

func (s *Service) notify(record *Request) {
	if s.enqueuer == nil {
		return
	}

	t, err := NewNotifyTask(record)
	if err != nil {
		zap.L().Error("failed to build withdrawal notification task", zap.Error(err))
		return
	}
	if _, err := s.enqueuer.Enqueue(t); err != nil {
		zap.L().Error("failed to enqueue withdrawal notification",
			zap.String("request_id", record.ID),
			zap.Error(err),
		)
	}
}
