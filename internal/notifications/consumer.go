package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticketbooth/internal/shared/config"
	"ticketbooth/pkg/logger"

	"github.com/IBM/sarama"
)

// TicketSender delivers tickets for a confirmed booking to the customer
type TicketSender interface {
	SendTickets(ctx context.Context, notification *BookingNotification) error
}

// LogTicketSender records the dispatch in the log. It is used when no SMTP relay is configured.
type LogTicketSender struct {
	log *logger.Logger
}

func NewLogTicketSender(log *logger.Logger) *LogTicketSender {
	return &LogTicketSender{log: logger.OrDefault(log).WithComponent("dispatch")}
}

func (s *LogTicketSender) SendTickets(ctx context.Context, n *BookingNotification) error {
	s.log.InfoContext(ctx, "Tickets Dispatched",
		"booking_id", n.BookingID.String(),
		"reference", n.Reference,
		"customer_email", n.CustomerEmail,
	)
	return nil
}

// Dispatcher consumes booking notifications and sends tickets for confirmed bookings
type Dispatcher struct {
	group   sarama.ConsumerGroup
	topics  []string
	handler *dispatchHandler
	log     *logger.Logger
}

func NewDispatcher(cfg config.KafkaConfig, sender TicketSender, log *logger.Logger) (*Dispatcher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Session.Timeout = 30 * time.Second
	saramaConfig.Consumer.Group.Heartbeat.Interval = 3 * time.Second
	saramaConfig.Consumer.Retry.Backoff = 100 * time.Millisecond
	saramaConfig.Consumer.MaxProcessingTime = time.Minute
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = time.Second

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.DispatchGroup, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	log = logger.OrDefault(log).WithComponent("dispatch")
	return &Dispatcher{
		group:   group,
		topics:  []string{cfg.BookingTopic},
		handler: newDispatchHandler(sender, log),
		log:     log,
	}, nil
}

// Run consumes until ctx is cancelled, then closes the consumer group
func (d *Dispatcher) Run(ctx context.Context) error {
	go func() {
		for err := range d.group.Errors() {
			d.log.ErrorContext(ctx, "consumer group error", "error", err.Error())
		}
	}()

	d.log.InfoContext(ctx, "Dispatcher Started", "topics", d.topics)
	for {
		if err := d.group.Consume(ctx, d.topics, d.handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			d.log.ErrorContext(ctx, "error consuming messages", "error", err.Error())
		}
		if ctx.Err() != nil {
			if err := d.group.Close(); err != nil {
				return fmt.Errorf("failed to close consumer group: %w", err)
			}
			d.log.InfoContext(context.Background(), "Dispatcher Stopped")
			return nil
		}
	}
}

type dispatchHandler struct {
	sender     TicketSender
	log        *logger.Logger
	maxRetries int
	backoff    time.Duration
}

func newDispatchHandler(sender TicketSender, log *logger.Logger) *dispatchHandler {
	return &dispatchHandler{
		sender:     sender,
		log:        log,
		maxRetries: 3,
		backoff:    time.Second,
	}
}

func (h *dispatchHandler) Setup(sarama.ConsumerGroupSession) error { return nil }

func (h *dispatchHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *dispatchHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.processMessage(session.Context(), message); err != nil {
				h.log.ErrorContext(session.Context(), "failed to process notification",
					"partition", message.Partition, "offset", message.Offset, "error", err.Error())
			}
			// Poison messages are logged and skipped so the partition keeps moving
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *dispatchHandler) processMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	notification, err := FromJSON(message.Value)
	if err != nil {
		return fmt.Errorf("failed to unmarshal notification: %w", err)
	}
	if notification.Type != TypeTicketsDispatched {
		return nil
	}
	return h.executeWithRetry(ctx, notification)
}

func (h *dispatchHandler) executeWithRetry(ctx context.Context, notification *BookingNotification) error {
	var lastErr error
	for attempt := 0; attempt < h.maxRetries; attempt++ {
		if attempt > 0 {
			delay := h.backoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if lastErr = h.sender.SendTickets(ctx, notification); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("ticket dispatch failed after %d attempts: %w", h.maxRetries, lastErr)
}
