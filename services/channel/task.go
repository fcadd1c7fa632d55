package channel

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const TypeExpireSubscriptions = "channel:expire_subscriptions"

func NewExpireTask() *asynq.Task {
	return asynq.NewTask(TypeExpireSubscriptions, nil, asynq.Queue("low"))
}

// Sweeper expires channel subscriptions whose paid period has ended. Status
// flips happen first; the access revocation is best-effort and never undoes
// an already-recorded expiry.
type Sweeper struct {
	service *Service
	access  *AccessService
}

type SweeperParams struct {
	fx.In
	Service *Service
	Access  *AccessService
}

func NewSweeper(p SweeperParams) *Sweeper {
	return &Sweeper{
		service: p.Service,
		access:  p.Access,
	}
}

func (s *Sweeper) HandleExpireTask(ctx context.Context, t *asynq.Task) error {
	return s.Run(ctx)
}

func (s *Sweeper) Run(ctx context.Context) error {
	now := time.Now()
	subs, err := s.service.ListExpired(ctx, now)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return nil
	}

	var expired int
	for i := range subs {
		sub := &subs[i]

		flipped, err := s.service.MarkExpired(ctx, sub.ID, now)
		if err != nil {
			zap.L().Error("failed to expire channel subscription",
				zap.String("subscription_id", sub.ID),
				zap.Error(err),
			)
			continue
		}
		if !flipped {
			// Another run already handled this row.
			continue
		}
		expired++

		if sub.BuyerExternalID == "" {
			continue
		}

		ch, err := s.service.GetChannel(ctx, sub.ChannelID)
		if err != nil {
			zap.L().Warn("channel lookup failed during revoke",
				zap.String("subscription_id", sub.ID),
				zap.String("channel_id", sub.ChannelID),
				zap.Error(err),
			)
			continue
		}

		if err := s.access.RevokeAccess(ctx, ch.ExternalID, sub.BuyerExternalID); err != nil {
			zap.L().Warn("failed to revoke channel access",
				zap.String("subscription_id", sub.ID),
				zap.String("channel_external_id", ch.ExternalID),
				zap.Error(err),
			)
		}
	}

	zap.L().Info("channel subscription sweep finished",
		zap.Int("scanned", len(subs)),
		zap.Int("expired", expired),
	)

	return nil
}

// TaskModule wires the sweep handler into the asynq worker.
var TaskModule = fx.Module("channel.task",
	fx.Provide(NewSweeper),
	fx.Invoke(registerTaskHandlers),
)

func registerTaskHandlers(mux *asynq.ServeMux, sweeper *Sweeper) {
	mux.HandleFunc(TypeExpireSubscriptions, sweeper.HandleExpireTask)
}
