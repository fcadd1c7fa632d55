package plan

import (
	"creatorpay-platform/services/wallet"

	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	fx.Provide(
		NewService,
		provideFeeResolver,
	),
	fx.Invoke(registerRoutes),
)

func provideFeeResolver(s *Service) wallet.FeeResolver {
	return s
}
