package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/St1cky1/tasklist/internal/entity"
	"github.com/St1cky1/tasklist/internal/infrastructure/client"
	"github.com/St1cky1/tasklist/internal/repository"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

const consumerTag = "audit_worker"

// Consumer is the part of *amqp.Channel the worker needs.
type Consumer interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// AuditWorker persists the audit messages published by the task service.
type AuditWorker struct {
	channel   Consumer
	queue     string
	auditRepo repository.ITaskAuditRepository
}

func NewAuditWorker(channel Consumer, queue string, auditRepo repository.ITaskAuditRepository) *AuditWorker {
	if queue == "" {
		queue = client.DefaultAuditQueue
	}
	return &AuditWorker{
		channel:   channel,
		queue:     queue,
		auditRepo: auditRepo,
	}
}

// Start consumes until ctx is cancelled or the delivery channel closes.
func (w *AuditWorker) Start(ctx context.Context) error {
	if _, err := client.DeclareAuditQueue(w.channel, w.queue); err != nil {
		return err
	}

	msgs, err := w.channel.Consume(
		w.queue,     // queue
		consumerTag, // consumer tag
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	log.WithField("queue", w.queue).Info("audit worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("audit worker stopped")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			w.processMessage(ctx, msg)
		}
	}
}

func (w *AuditWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	logger := log.WithField("message_id", msg.MessageId)

	var auditMsg entity.AuditMessage
	if err := json.Unmarshal(msg.Body, &auditMsg); err != nil {
		logger.WithError(err).Error("dropping malformed audit message")
		w.nack(logger, msg, false)
		return
	}

	taskAudit, err := convertToTaskAudit(&auditMsg)
	if err != nil {
		logger.WithError(err).Error("dropping unusable audit message")
		w.nack(logger, msg, false)
		return
	}

	if err := w.auditRepo.Create(ctx, taskAudit); err != nil {
		logger.WithError(err).Warn("failed to store audit, requeueing")
		w.nack(logger, msg, true)
		return
	}

	if err := msg.Ack(false); err != nil {
		logger.WithError(err).Error("failed to ack audit message")
		return
	}
	logger.WithFields(log.Fields{
		"action":  taskAudit.Action,
		"task_id": taskAudit.EntityID,
	}).Debug("task audit stored")
}

func (w *AuditWorker) nack(logger *log.Entry, msg amqp.Delivery, requeue bool) {
	if err := msg.Nack(false, requeue); err != nil {
		logger.WithError(err).Error("failed to nack audit message")
	}
}

func convertToTaskAudit(msg *entity.AuditMessage) (*entity.TaskAudit, error) {
	if msg.Action == "" || msg.EntityID == 0 || msg.UserID == "" {
		return nil, entity.ErrInvalidAuditData
	}

	oldValues, err := jsonText(msg.OldValues)
	if err != nil {
		return nil, err
	}
	newValues, err := jsonText(msg.NewValues)
	if err != nil {
		return nil, err
	}
	changes, err := jsonText(msg.Changes)
	if err != nil {
		return nil, err
	}

	return &entity.TaskAudit{
		UserID:     msg.UserID,
		Action:     msg.Action,
		EntityType: "task",
		EntityID:   msg.EntityID,
		OldValues:  oldValues,
		NewValues:  newValues,
		Changes:    changes,
		ChangedAt:  msg.Timestamp,
	}, nil
}

func jsonText(values map[string]any) (*string, error) {
	if values == nil {
		return nil, nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}
