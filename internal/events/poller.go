// Package events публикует события жизненного цикла заказов из исходящей очереди в Kafka.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/model"
)

const batchSize = 100

// Repository описывает доступ к исходящей очереди событий.
type Repository interface {
	GetUnpublishedEvents(ctx context.Context, limit int) ([]model.OrderEvent, error)
	MarkEventPublished(ctx context.Context, id int64) error
}

// MessageWriter описывает отправителя сообщений, совместимого с kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Poller периодически читает неопубликованные события и отправляет их в Kafka.
// Ключ сообщения равен id заказа, поэтому события одного заказа попадают в одну партицию по порядку.
type Poller struct {
	repo     Repository
	writer   MessageWriter
	interval time.Duration
	logger   *zap.Logger
}

// NewKafkaWriter создаёт kafka.Writer для топика событий заказов.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// NewPoller создаёт Poller.
func NewPoller(repo Repository, writer MessageWriter, interval time.Duration, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		repo:     repo,
		writer:   writer,
		interval: interval,
		logger:   logger,
	}
}

// Run публикует события до отмены контекста и закрывает writer при выходе.
func (p *Poller) Run(ctx context.Context) error {
	defer func() {
		if err := p.writer.Close(); err != nil {
			p.logger.Warn("close kafka writer", zap.Error(err))
		}
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := p.PublishBatch(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("publish order events", zap.Error(err))
			}
		}
	}
}

// PublishBatch отправляет одну пачку событий и возвращает число опубликованных.
// Событие, которое не удалось отправить, останется в очереди до следующего прохода;
// последующие события пачки не отправляются, чтобы не нарушить порядок.
func (p *Poller) PublishBatch(ctx context.Context) (int, error) {
	events, err := p.repo.GetUnpublishedEvents(ctx, batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch events: %w", err)
	}

	published := 0
	for _, ev := range events {
		if err := p.writer.WriteMessages(ctx, message(ev)); err != nil {
			return published, fmt.Errorf("write event %d: %w", ev.ID, err)
		}

		if err := p.repo.MarkEventPublished(ctx, ev.ID); err != nil {
			return published, fmt.Errorf("mark event %d: %w", ev.ID, err)
		}
		published++

		p.logger.Debug("order event published",
			zap.Int64("eventID", ev.ID),
			zap.Stringer("orderID", ev.OrderID),
			zap.String("type", string(ev.Type)),
		)
	}

	return published, nil
}

func message(ev model.OrderEvent) kafka.Message {
	return kafka.Message{
		Key:   []byte(ev.OrderID.String()),
		Value: ev.Payload,
		Time:  ev.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}
}
