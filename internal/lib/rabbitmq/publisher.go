package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
)

// Channel часть amqp.Channel, нужная для публикации.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// PublishMessage сериализует message в JSON и публикует его как persistent.
func PublishMessage(ch Channel, exchange string, routingKey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ReminderPublisher публикует напоминания о задолженности.
type ReminderPublisher struct {
	ch Channel
}

// NewReminderPublisher создает новый экземпляр ReminderPublisher.
func NewReminderPublisher(ch Channel) *ReminderPublisher {
	return &ReminderPublisher{ch: ch}
}

// PublishReminder ставит напоминание в очередь.
func (p *ReminderPublisher) PublishReminder(ctx context.Context, msg models.ReminderMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return PublishMessage(p.ch, Exchange, BalanceRoutingKey, msg)
}
