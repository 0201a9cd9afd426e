package persistence

import (
	"fmt"

	"github.com/formforge/ruleengine/model"
)

type StorageLayerError struct {
	Cause error
}

func (e StorageLayerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("error in underlying storage layer: %v", e.Cause)
	}
	return "error in underlying storage layer"
}

func (e StorageLayerError) Unwrap() error {
	return e.Cause
}

type NotFoundError struct {
	Kind string
	Id   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Id)
}

// Storage persists rule and pipeline state. ExecutionLog and StageTransition
// records are append-only; implementations never overwrite them.
type Storage interface {
	SaveRule(r model.Rule) error
	GetRule(id string) (*model.Rule, error)
	DeleteRule(id string) error
	GetRulesByForm(formId string) ([]*model.Rule, error)

	SavePipeline(p model.Pipeline) error
	GetPipeline(id string) (*model.Pipeline, error)
	DeletePipeline(id string) error
	ListPipelines() ([]*model.Pipeline, error)

	SaveCard(c model.Card) error
	GetCard(id string) (*model.Card, error)
	GetCardsByStage(pipelineId string, stageId string) ([]*model.Card, error)
	GetCardsByPipeline(pipelineId string) ([]*model.Card, error)

	SaveTransition(t model.StageTransition) error
	GetTransitionsByCard(cardId string) ([]*model.StageTransition, error)

	SaveExecutionLog(l model.ExecutionLog) error
	GetExecutionLogsByForm(formId string, limit int) ([]*model.ExecutionLog, error)
}

// DeliveryQueue buffers external-effect descriptors for the delivery worker.
// Pop returns at most batchSize descriptors; an empty queue yields an empty
// slice, not an error.
type DeliveryQueue interface {
	Push(d model.Descriptor) error
	Pop(batchSize int) ([]model.Descriptor, error)
}
