package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// Exchange имя обмена, через который идут задания жизненного цикла подписок.
const Exchange = "lifecycle"

// QueueConfig связывает очередь с ключом маршрутизации в обмене.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// NoticeQueue очередь уведомлений об истечении подписки.
var NoticeQueue = QueueConfig{QueueName: "lifecycle.notices", RoutingKey: "notice"}

// RevocationQueue очередь заданий на исключение из закрытой группы.
var RevocationQueue = QueueConfig{QueueName: "lifecycle.revocations", RoutingKey: "revoke"}

// GetLifecycleQueues возвращает все очереди движка сверки.
func GetLifecycleQueues() []QueueConfig {
	return []QueueConfig{NoticeQueue, RevocationQueue}
}

// SetupChannel открывает канал и объявляет обмен с очередями.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			q.QueueName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}

		err = ch.QueueBind(
			q.QueueName,
			q.RoutingKey,
			Exchange,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
