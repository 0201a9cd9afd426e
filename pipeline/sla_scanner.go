package pipeline

import (
	"time"

	"github.com/formforge/ruleengine/logger"
	"github.com/formforge/ruleengine/model"
	"github.com/formforge/ruleengine/persistence"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SlaScanner periodically marks cards whose SLA deadline has passed and
// enqueues one breach notification per card. Breached cards stay breached
// until their next stage transition resets the flag.
type SlaScanner struct {
	storage persistence.Storage
	queue   persistence.DeliveryQueue
}

func NewSlaScanner(storage persistence.Storage, queue persistence.DeliveryQueue) *SlaScanner {
	return &SlaScanner{
		storage: storage,
		queue:   queue,
	}
}

func (sc *SlaScanner) Scan() {
	pipelines, err := sc.storage.ListPipelines()
	if err != nil {
		logger.Error("sla scan: error listing pipelines", zap.Error(err))
		return
	}
	now := time.Now()
	for _, p := range pipelines {
		cards, err := sc.storage.GetCardsByPipeline(p.Id)
		if err != nil {
			logger.Error("sla scan: error listing cards", zap.String("pipeline", p.Id), zap.Error(err))
			continue
		}
		for _, card := range cards {
			if card.SlaBreached || card.SlaDeadline.IsZero() || now.Before(card.SlaDeadline) {
				continue
			}
			card.SlaBreached = true
			card.UpdatedAt = now
			if err := sc.storage.SaveCard(*card); err != nil {
				logger.Error("sla scan: error saving card", zap.String("card", card.Id), zap.Error(err))
				continue
			}
			err := sc.queue.Push(model.Descriptor{
				Id:             uuid.New().String(),
				Type:           model.DESCRIPTOR_TYPE_NOTIFICATION,
				IdempotencyKey: uuid.New().String(),
				Recipient:      card.Assignee,
				Subject:        "SLA breached",
				Payload: map[string]any{
					"cardId":      card.Id,
					"pipelineId":  p.Id,
					"stageId":     card.CurrentStageId,
					"slaDeadline": card.SlaDeadline,
				},
				Source:    p.Id,
				CreatedAt: now,
			})
			if err != nil {
				logger.Error("sla scan: error queueing notification", zap.String("card", card.Id), zap.Error(err))
			}
			logger.Info("card sla breached", zap.String("card", card.Id), zap.String("pipeline", p.Id))
		}
	}
}
