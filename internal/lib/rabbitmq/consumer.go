package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/sl"
)

// ConsumerMessage запускает обработку сообщений очереди queueName.
//
// Не более 10 сообщений обрабатываются одновременно. Ошибка обработчика
// возвращает сообщение в очередь, успех подтверждает его.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, handler func([]byte) error, log *slog.Logger) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sem := make(chan struct{}, 10)
	go func() {
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					return
				}
				sem <- struct{}{}
				go func(delivery amqp.Delivery) {
					defer func() { <-sem }()
					handle(delivery, handler, log)
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Acknowledger часть amqp.Delivery для подтверждения сообщений.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func handle(d amqp.Delivery, handler func([]byte) error, log *slog.Logger) {
	process(&d, d.Body, handler, log.With(slog.String("queue", d.RoutingKey)))
}

func process(ack Acknowledger, body []byte, handler func([]byte) error, log *slog.Logger) {
	if err := handler(body); err != nil {
		log.Error("failed to handle message", sl.Err(err))
		if nackErr := ack.Nack(false, true); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
		return
	}
	if ackErr := ack.Ack(false); ackErr != nil {
		log.Error("failed to ack message", sl.Err(ackErr))
	}
}
