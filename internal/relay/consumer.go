package relay

import (
	"context"
	"encoding/json"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/akira-syou/computeproof/internal/api/dto"
	"github.com/akira-syou/computeproof/internal/event"
)

// dispatch reads RabbitMQ deliveries, decodes and validates them, and hands
// them to the worker pool. Undecodable or unrecognized messages are nacked
// without requeue so they cannot loop forever.
func (r *Relay) dispatch(ctx context.Context, deliveries <-chan amqp.Delivery) {
	r.logger.Info("Message dispatcher started",
		slog.String("relay_id", r.relayID),
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Message dispatcher stopped - context canceled")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				r.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			var msg dto.TransitionMessage
			if err := json.Unmarshal(delivery.Body, &msg); err != nil {
				r.logger.Error("Failed to parse message JSON",
					slog.String("error", err.Error()),
					slog.String("body", string(delivery.Body)),
				)
				r.nackDelivery(delivery.DeliveryTag, false)
				continue
			}

			if !event.Kind(msg.EventType).Valid() {
				r.logger.Error("Unrecognized event type in message",
					slog.String("event_type", msg.EventType),
					slog.String("asset_id", msg.AssetID),
				)
				r.nackDelivery(delivery.DeliveryTag, false)
				continue
			}

			td := &transitionDelivery{
				msg:         msg,
				deliveryTag: delivery.DeliveryTag,
			}

			select {
			case r.msgChan <- td:
				r.logger.Debug("Transition dispatched to worker pool",
					slog.String("asset_id", msg.AssetID),
					slog.String("event_type", msg.EventType),
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
				)
			case <-ctx.Done():
				r.logger.Info("Message dispatcher stopped while dispatching")
				// Requeue so the transition survives the shutdown.
				r.nackDelivery(delivery.DeliveryTag, true)
				return
			}
		}
	}
}

func (r *Relay) nackDelivery(deliveryTag uint64, requeue bool) {
	if err := r.rabbitClient.Nack(deliveryTag, requeue); err != nil {
		r.logger.Error("Failed to NACK message",
			slog.Uint64("delivery_tag", deliveryTag),
			slog.String("error", err.Error()),
		)
	}
}
