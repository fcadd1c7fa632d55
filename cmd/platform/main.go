package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"creatorpay-platform/pkg/config"
	"creatorpay-platform/pkg/db"
	"creatorpay-platform/pkg/gateway"
	"creatorpay-platform/pkg/gen"
	"creatorpay-platform/pkg/health"
	"creatorpay-platform/pkg/logger"
	"creatorpay-platform/pkg/messenger"
	"creatorpay-platform/pkg/redis"
	"creatorpay-platform/pkg/server"
	"creatorpay-platform/pkg/task"
	"creatorpay-platform/services/channel"
	"creatorpay-platform/services/fulfillment"
	"creatorpay-platform/services/order"
	"creatorpay-platform/services/plan"
	"creatorpay-platform/services/product"
	"creatorpay-platform/services/wallet"
	"creatorpay-platform/services/withdrawal"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		gen.Module,
		gateway.Module,
		messenger.Module,
		server.ProvideHTTPServer,
		health.Module,
		plan.Module,
		wallet.Module,
		withdrawal.Module,
		product.Module,
		channel.Module,
		fulfillment.Module,
		order.Module,
		fx.Invoke(migrate),
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&plan.Plan{},
		&plan.Subscription{},
		&wallet.Wallet{},
		&withdrawal.Request{},
		&withdrawal.PaymentMethod{},
		&withdrawal.KycRecord{},
		&product.DigitalProduct{},
		&product.Purchase{},
		&channel.Channel{},
		&channel.Plan{},
		&channel.Subscription{},
		&order.Order{},
		&order.Transaction{},
	)
}
