package withdrawal

import (
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("withdrawal.service",
	fx.Provide(NewService),
	fx.Invoke(registerRoutes),
)

// TaskModule wires the notification handler into the asynq worker.
var TaskModule = fx.Module("withdrawal.task",
	fx.Invoke(registerTaskHandlers),
)

func registerTaskHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeNotify, HandleNotifyTask)
}
