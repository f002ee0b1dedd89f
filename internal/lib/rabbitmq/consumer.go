package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/streamtap/subscription-keeper/internal/lib/sl"
)

// maxInflight ограничивает число одновременно обрабатываемых сообщений.
const maxInflight = 10

// Consumer минимальный интерфейс подписки на очередь, чтобы потребителя
// можно было тестировать без брокера.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// ConsumerMessage подписывает handler на очередь с доставкой at-most-once:
// сообщение подтверждается независимо от исхода обработки. Ошибка handler
// означает непригодное сообщение — оно логируется и выбрасывается, а не
// возвращается в очередь: повторная доставка обернулась бы повторным
// уведомлением или повторным баном уже обработанного пользователя.
func ConsumerMessage(ctx context.Context, log *slog.Logger, ch Consumer, queueName string, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumerMessage"
	deliveries, err := ch.Consume(
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

	sem := make(chan struct{}, maxInflight)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					if err := handler(d.Body); err != nil {
						log.Error("dropping unprocessable message",
							slog.String("queue", queueName), sl.Err(err))
					}
					if err := d.Ack(false); err != nil {
						log.Error("failed to ack message",
							slog.String("queue", queueName), sl.Err(err))
					}
				}(d)
			}
		}
	}()
	return nil
}
