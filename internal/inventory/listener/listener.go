package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-boutique-service/internal/inventory"
	"github.com/fekuna/omnipos-boutique-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-boutique-service/pkg/broker"
	"github.com/fekuna/omnipos-boutique-service/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventCheckoutRequested carries a checkout queued by a terminal while offline.
const EventCheckoutRequested = "checkout.requested"

// MessageReader is satisfied by *broker.KafkaConsumer.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type CheckoutListener struct {
	consumer MessageReader
	uc       inventory.UseCase
	logger   logger.ZapLogger
}

func NewCheckoutListener(consumer MessageReader, uc inventory.UseCase, logger logger.ZapLogger) *CheckoutListener {
	return &CheckoutListener{
		consumer: consumer,
		uc:       uc,
		logger:   logger,
	}
}

func (l *CheckoutListener) Start(ctx context.Context) {
	l.logger.Info("Starting checkout Kafka listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping checkout Kafka listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				// Don't log context canceled error as error
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

func (l *CheckoutListener) processMessage(ctx context.Context, value []byte) {
	var event broker.Event
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != EventCheckoutRequested {
		return
	}

	var input dto.CheckoutInput
	if err := json.Unmarshal(event.Payload, &input); err != nil {
		l.logger.Error("Failed to unmarshal checkout payload", zap.String("event_id", event.EventID), zap.Error(err))
		return
	}
	// Offline sales keep the time they happened at the till.
	if input.SoldAt == nil && !event.Timestamp.IsZero() {
		soldAt := event.Timestamp
		input.SoldAt = &soldAt
	}

	l.logger.Info("Replaying offline checkout", zap.String("event_id", event.EventID), zap.Int("items", len(input.Items)))

	res, err := l.uc.Checkout(ctx, &input)
	if err != nil {
		fields := []zap.Field{zap.String("event_id", event.EventID), zap.Error(err)}
		if res != nil {
			fields = append(fields, zap.Strings("item_errors", res.Errors))
		}
		l.logger.Error("Failed to replay checkout", fields...)
		return
	}
	if len(res.Errors) > 0 {
		l.logger.Warn("Checkout replayed with rejected items",
			zap.String("event_id", event.EventID),
			zap.String("sale_id", res.SaleID),
			zap.Strings("item_errors", res.Errors),
		)
	}
}
