package model

type ActionStatus string

const ACTION_STATUS_OK ActionStatus = "ok"
const ACTION_STATUS_ERROR ActionStatus = "error"
const ACTION_STATUS_QUEUED ActionStatus = "queued"

type ActionResult struct {
	Type   ActionType     `json:"type"`
	Status ActionStatus   `json:"status"`
	Field  string         `json:"field,omitempty"`
	Value  any            `json:"value,omitempty"`
	Error  string         `json:"error,omitempty"`
	Output map[string]any `json:"output,omitempty"`
}

type RuleError struct {
	RuleId  string `json:"ruleId"`
	Message string `json:"message"`
}

// EvaluationResult is the outcome of one rule pass over a single record.
type EvaluationResult struct {
	FormId             string         `json:"formId"`
	RulesEvaluated     int            `json:"rulesEvaluated"`
	RulesTriggered     []string       `json:"rulesTriggered"`
	ActionsExecuted    []ActionResult `json:"actionsExecuted"`
	FieldModifications map[string]any `json:"fieldModifications"`
	Errors             []RuleError    `json:"errors,omitempty"`
}

type EvaluationRequest struct {
	FormId  string         `json:"formId"`
	Record  map[string]any `json:"record"`
	Context map[string]any `json:"context,omitempty"`
}
