package usecase

import (
	"context"
	"reflect"
	"time"

	"github.com/St1cky1/tasklist/internal/entity"
	log "github.com/sirupsen/logrus"
)

func buildAuditMessage(action entity.ActionType, task, oldTask, newTask *entity.Task, at time.Time) *entity.AuditMessage {
	msg := &entity.AuditMessage{
		Action:    action,
		UserID:    task.UserID,
		EntityID:  task.ID,
		Timestamp: at,
	}

	if oldTask != nil {
		msg.OldValues = oldTask.Snapshot()
	}
	if newTask != nil {
		msg.NewValues = newTask.Snapshot()
	}
	if oldTask != nil && newTask != nil {
		changes := make(map[string]any)
		for field, before := range msg.OldValues {
			after := msg.NewValues[field]
			if !reflect.DeepEqual(before, after) {
				changes[field] = map[string]any{"old": before, "new": after}
			}
		}
		msg.Changes = changes
	}
	return msg
}

// sendAuditMessage publishes synchronously. A failing broker never fails the
// mutation that already happened.
func (s *TaskService) sendAuditMessage(ctx context.Context, action entity.ActionType, task, oldTask, newTask *entity.Task) {
	if s.audit == nil {
		return
	}

	msg := buildAuditMessage(action, task, oldTask, newTask, s.now().UTC())
	if err := s.audit.PublishAuditMessage(ctx, msg); err != nil {
		log.WithFields(log.Fields{
			"action":  action,
			"task_id": task.ID,
		}).WithError(err).Warn("failed to publish task audit message")
		return
	}

	log.WithFields(log.Fields{
		"action":  action,
		"task_id": task.ID,
	}).Debug("task audit message published")
}
