package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"creatorpay-platform/pkg/config"
	"creatorpay-platform/pkg/db"
	"creatorpay-platform/pkg/gen"
	"creatorpay-platform/pkg/logger"
	"creatorpay-platform/pkg/messenger"
	"creatorpay-platform/pkg/redis"
	"creatorpay-platform/pkg/task"
	"creatorpay-platform/services/channel"
	"creatorpay-platform/services/withdrawal"
)

// The worker runs the asynq handlers and the daily expiry scheduler,
// separate from the HTTP-facing process.
func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		task.Server,
		gen.Module,
		messenger.Module,
		channel.Module,
		channel.TaskModule,
		channel.SchedulerModule,
		withdrawal.TaskModule,
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
