// Package rabbitmq содержит подключение к RabbitMQ, объявление очередей,
// публикацию и потребление сообщений-напоминаний.
package rabbitmq

// Exchange обменник напоминаний.
const Exchange = "reminders"

// QueueConfig очередь и ключ маршрутизации, которым она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

const (
	// BalanceReminderQueue очередь напоминаний о задолженности.
	BalanceReminderQueue = "reminders.balance"
	// BalanceRoutingKey ключ маршрутизации напоминаний о задолженности.
	BalanceRoutingKey = "balance"
)

// ReminderQueues возвращает очереди, которые объявляют планировщик и отправитель.
func ReminderQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: BalanceReminderQueue, RoutingKey: BalanceRoutingKey},
	}
}
