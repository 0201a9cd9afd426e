// Package pipeline implements the Kanban stage-transition state machine.
// Every stage may transition to every other stage; moves within one pipeline
// are serialized through a per-pipeline lock so position reassignment never
// produces duplicates.
package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/formforge/ruleengine/logger"
	"github.com/formforge/ruleengine/model"
	"github.com/formforge/ruleengine/persistence"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (km *keyedMutex) get(key string) *sync.Mutex {
	km.mu.Lock()
	defer km.mu.Unlock()
	if km.locks == nil {
		km.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := km.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		km.locks[key] = lock
	}
	return lock
}

type Service struct {
	storage persistence.Storage
	queue   persistence.DeliveryQueue
	locks   keyedMutex
}

func NewService(storage persistence.Storage, queue persistence.DeliveryQueue) *Service {
	return &Service{
		storage: storage,
		queue:   queue,
	}
}

func (s *Service) SavePipeline(p *model.Pipeline) error {
	if p.Id == "" {
		p.Id = uuid.New().String()
		p.CreatedAt = time.Now()
	}
	for i := range p.Stages {
		if p.Stages[i].Id == "" {
			p.Stages[i].Id = uuid.New().String()
		}
	}
	p.UpdatedAt = time.Now()
	return s.storage.SavePipeline(*p)
}

// Enter creates a card for a submission at the pipeline's first stage and
// fires that stage's entry triggers.
func (s *Service) Enter(pipelineId string, submissionId string) (*model.Card, error) {
	p, err := s.storage.GetPipeline(pipelineId)
	if err != nil {
		return nil, err
	}
	first := firstStage(p)
	if first == nil {
		return nil, fmt.Errorf("pipeline %s has no stages", pipelineId)
	}
	lock := s.locks.get(pipelineId)
	lock.Lock()
	defer lock.Unlock()

	siblings, err := s.storage.GetCardsByStage(pipelineId, first.Id)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	card := model.Card{
		Id:                    uuid.New().String(),
		PipelineId:            pipelineId,
		SubmissionId:          submissionId,
		CurrentStageId:        first.Id,
		Position:              len(siblings),
		EnteredCurrentStageAt: now,
		SlaDeadline:           slaDeadline(now, first, p),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	s.fireTriggers(p, first, &card)
	if err := s.storage.SaveCard(card); err != nil {
		return nil, err
	}
	return &card, nil
}

// Move transitions a card to another stage. A missing card or stage is a
// caller contract violation and is reported as an explicit failure result;
// trigger errors are swallowed per trigger.
func (s *Service) Move(cardId string, toStageId string, actor string, reason string, automatic bool) model.TransitionResult {
	card, err := s.storage.GetCard(cardId)
	if err != nil {
		return failure(err)
	}
	lock := s.locks.get(card.PipelineId)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: a concurrent move may have changed the stage.
	card, err = s.storage.GetCard(cardId)
	if err != nil {
		return failure(err)
	}
	p, err := s.storage.GetPipeline(card.PipelineId)
	if err != nil {
		return failure(err)
	}
	toStage := findStage(p, toStageId)
	if toStage == nil {
		return failure(fmt.Errorf("stage %s not part of pipeline %s", toStageId, p.Id))
	}

	now := time.Now()
	transition := model.StageTransition{
		Id:                     uuid.New().String(),
		CardId:                 card.Id,
		PipelineId:             p.Id,
		FromStageId:            card.CurrentStageId,
		ToStageId:              toStage.Id,
		Actor:                  actor,
		Reason:                 reason,
		Automatic:              automatic,
		MinutesInPreviousStage: int(now.Sub(card.EnteredCurrentStageAt).Minutes()),
		CreatedAt:              now,
	}
	if err := s.storage.SaveTransition(transition); err != nil {
		return failure(err)
	}

	fromStageId := card.CurrentStageId
	targets, err := s.storage.GetCardsByStage(p.Id, toStage.Id)
	if err != nil {
		return failure(err)
	}
	card.CurrentStageId = toStage.Id
	card.Position = len(targets)
	card.EnteredCurrentStageAt = now
	card.SlaDeadline = slaDeadline(now, toStage, p)
	card.SlaBreached = false
	card.UpdatedAt = now

	s.fireTriggers(p, toStage, card)
	if err := s.storage.SaveCard(*card); err != nil {
		return failure(err)
	}
	if err := s.compactStage(p.Id, fromStageId); err != nil {
		logger.Error("error compacting stage positions", zap.String("pipeline", p.Id), zap.String("stage", fromStageId), zap.Error(err))
	}

	result := model.TransitionResult{
		Success:    true,
		Card:       card,
		Transition: &transition,
	}
	if toStage.WipLimit > 0 && len(targets)+1 > toStage.WipLimit {
		result.WipExceeded = true
	}
	return result
}

// compactStage renumbers a stage's cards to 0..n-1 after a card left it.
func (s *Service) compactStage(pipelineId string, stageId string) error {
	cards, err := s.storage.GetCardsByStage(pipelineId, stageId)
	if err != nil {
		return err
	}
	for i, c := range cards {
		if c.Position == i {
			continue
		}
		c.Position = i
		c.UpdatedAt = time.Now()
		if err := s.storage.SaveCard(*c); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) fireTriggers(p *model.Pipeline, stage *model.PipelineStage, card *model.Card) {
	for _, trigger := range stage.Triggers {
		if err := s.fireTrigger(p, stage, card, trigger); err != nil {
			logger.Error("stage entry trigger failed",
				zap.String("pipeline", p.Id),
				zap.String("stage", stage.Name),
				zap.String("type", string(trigger.Type)),
				zap.Error(err))
		}
	}
}

func (s *Service) fireTrigger(p *model.Pipeline, stage *model.PipelineStage, card *model.Card, trigger model.StageTrigger) error {
	switch trigger.Type {
	case model.TRIGGER_TYPE_WEBHOOK:
		url, _ := trigger.Params["url"].(string)
		if url == "" {
			return fmt.Errorf("webhook trigger without url")
		}
		return s.queue.Push(model.Descriptor{
			Id:             uuid.New().String(),
			Type:           model.DESCRIPTOR_TYPE_WEBHOOK,
			IdempotencyKey: uuid.New().String(),
			Url:            url,
			Payload: map[string]any{
				"cardId":       card.Id,
				"pipelineId":   p.Id,
				"stage":        stage.Name,
				"submissionId": card.SubmissionId,
			},
			Source:    stage.Id,
			CreatedAt: time.Now(),
		})
	case model.TRIGGER_TYPE_EMAIL:
		recipient, _ := trigger.Params["recipient"].(string)
		if recipient == "" {
			return fmt.Errorf("email trigger without recipient")
		}
		subject, _ := trigger.Params["subject"].(string)
		return s.queue.Push(model.Descriptor{
			Id:             uuid.New().String(),
			Type:           model.DESCRIPTOR_TYPE_NOTIFICATION,
			IdempotencyKey: uuid.New().String(),
			Recipient:      recipient,
			Subject:        subject,
			Payload: map[string]any{
				"cardId": card.Id,
				"stage":  stage.Name,
			},
			Source:    stage.Id,
			CreatedAt: time.Now(),
		})
	case model.TRIGGER_TYPE_AUTO_ASSIGN:
		assignee, _ := trigger.Params["assignee"].(string)
		if assignee == "" {
			return fmt.Errorf("auto_assign trigger without assignee")
		}
		card.Assignee = assignee
		return nil
	default:
		return fmt.Errorf("unknown trigger type %q", trigger.Type)
	}
}

func failure(err error) model.TransitionResult {
	return model.TransitionResult{Success: false, Error: err.Error()}
}

func firstStage(p *model.Pipeline) *model.PipelineStage {
	var first *model.PipelineStage
	for i := range p.Stages {
		if first == nil || p.Stages[i].Order < first.Order {
			first = &p.Stages[i]
		}
	}
	return first
}

func findStage(p *model.Pipeline, stageId string) *model.PipelineStage {
	for i := range p.Stages {
		if p.Stages[i].Id == stageId {
			return &p.Stages[i]
		}
	}
	return nil
}

func slaDeadline(now time.Time, stage *model.PipelineStage, p *model.Pipeline) time.Time {
	hours := stage.SlaHours
	if hours == 0 {
		hours = p.DefaultSlaHours
	}
	if hours == 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(hours) * time.Hour)
}
