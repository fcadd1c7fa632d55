package withdrawal

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeNotify = "withdrawal:notify"

type NotifyPayload struct {
	RequestID string `json:"request_id"`
	SellerID  string `json:"seller_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

func NewNotifyTask(record *Request) (*asynq.Task, error) {
	payload, err := json.Marshal(NotifyPayload{
		RequestID: record.ID,
		SellerID:  record.SellerID,
		Amount:    record.Amount,
		Status:    record.Status,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeNotify, payload, asynq.Queue("default")), nil
}

// HandleNotifyTask fans a withdrawal outcome out to the seller. Delivery
// channels (email, in-app) are external collaborators; here the event is
// recorded for them to pick up.
func HandleNotifyTask(ctx context.Context, t *asynq.Task) error {
	var payload NotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}

	zap.L().Info("withdrawal notification dispatched",
		zap.String("request_id", payload.RequestID),
		zap.String("seller_id", payload.SellerID),
		zap.String("status", payload.Status),
		zap.Int64("amount", payload.Amount),
	)

	return nil
}
