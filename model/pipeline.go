package model

import "time"

type TriggerType string

const TRIGGER_TYPE_WEBHOOK TriggerType = "webhook"
const TRIGGER_TYPE_EMAIL TriggerType = "email"
const TRIGGER_TYPE_AUTO_ASSIGN TriggerType = "auto_assign"

type Pipeline struct {
	Id              string          `json:"id"`
	FormId          string          `json:"formId"`
	Name            string          `json:"name"`
	DefaultSlaHours int             `json:"defaultSlaHours"`
	Stages          []PipelineStage `json:"stages"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type PipelineStage struct {
	Id       string         `json:"id"`
	Name     string         `json:"name"`
	Order    int            `json:"order"`
	WipLimit int            `json:"wipLimit"`
	SlaHours int            `json:"slaHours"`
	Triggers []StageTrigger `json:"triggers,omitempty"`
}

type StageTrigger struct {
	Type   TriggerType    `json:"type"`
	Params map[string]any `json:"parameters"`
}

// Card tracks one submission moving through a pipeline. Position orders
// cards within their current stage.
type Card struct {
	Id                    string    `json:"id"`
	PipelineId            string    `json:"pipelineId"`
	SubmissionId          string    `json:"submissionId"`
	CurrentStageId        string    `json:"currentStageId"`
	Position              int       `json:"position"`
	Assignee              string    `json:"assignee,omitempty"`
	EnteredCurrentStageAt time.Time `json:"enteredCurrentStageAt"`
	SlaDeadline           time.Time `json:"slaDeadline"`
	SlaBreached           bool      `json:"slaBreached"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// StageTransition is an immutable audit record of one card move.
type StageTransition struct {
	Id                     string    `json:"id"`
	CardId                 string    `json:"cardId"`
	PipelineId             string    `json:"pipelineId"`
	FromStageId            string    `json:"fromStageId"`
	ToStageId              string    `json:"toStageId"`
	Actor                  string    `json:"actor"`
	Reason                 string    `json:"reason,omitempty"`
	Automatic              bool      `json:"automatic"`
	MinutesInPreviousStage int       `json:"minutesInPreviousStage"`
	CreatedAt              time.Time `json:"createdAt"`
}

type TransitionResult struct {
	Success     bool             `json:"success"`
	Error       string           `json:"error,omitempty"`
	Card        *Card            `json:"card,omitempty"`
	Transition  *StageTransition `json:"transition,omitempty"`
	WipExceeded bool             `json:"wipExceeded,omitempty"`
}
