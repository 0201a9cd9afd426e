package model

import "time"

type ConditionLogic string

const CONDITION_LOGIC_ALL ConditionLogic = "all"
const CONDITION_LOGIC_ANY ConditionLogic = "any"
const CONDITION_LOGIC_CUSTOM ConditionLogic = "custom"

type Operator string

const OP_EQUALS Operator = "equals"
const OP_NOT_EQUALS Operator = "not_equals"
const OP_GREATER_THAN Operator = "greater_than"
const OP_GREATER_EQUAL Operator = "greater_equal"
const OP_LESS_THAN Operator = "less_than"
const OP_LESS_EQUAL Operator = "less_equal"
const OP_CONTAINS Operator = "contains"
const OP_NOT_CONTAINS Operator = "not_contains"
const OP_STARTS_WITH Operator = "starts_with"
const OP_ENDS_WITH Operator = "ends_with"
const OP_IS_EMPTY Operator = "is_empty"
const OP_IS_NOT_EMPTY Operator = "is_not_empty"
const OP_IN_LIST Operator = "in_list"
const OP_NOT_IN_LIST Operator = "not_in_list"
const OP_MATCHES_REGEX Operator = "matches_regex"

type ActionType string

const ACTION_TYPE_SET_FIELD ActionType = "set_field"
const ACTION_TYPE_SHOW_FIELD ActionType = "show_field"
const ACTION_TYPE_HIDE_FIELD ActionType = "hide_field"
const ACTION_TYPE_REQUIRE_FIELD ActionType = "require_field"
const ACTION_TYPE_CALCULATE ActionType = "calculate"
const ACTION_TYPE_SEND_NOTIFICATION ActionType = "send_notification"
const ACTION_TYPE_WEBHOOK ActionType = "webhook"

type Rule struct {
	Id               string         `json:"id"`
	FormId           string         `json:"formId"`
	Name             string         `json:"name"`
	Priority         int            `json:"priority"`
	ConditionLogic   ConditionLogic `json:"conditionLogic"`
	CustomExpression string         `json:"customExpression,omitempty"`
	Conditions       []Condition    `json:"conditions"`
	Actions          []ActionDef    `json:"actions"`
	StopOnTrigger    bool           `json:"stopOnTrigger"`
	Active           bool           `json:"active"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

type Condition struct {
	FieldPath string   `json:"fieldPath"`
	Operator  Operator `json:"operator"`
	// Value holds the expected operand. A string starting with "$." is
	// resolved as a field reference against the record before comparison.
	Value any `json:"value"`
}

type ActionDef struct {
	Type   ActionType     `json:"type"`
	Params map[string]any `json:"parameters"`
}

// ExecutionLog is an immutable record of one rule evaluation attempt
// against one input record.
type ExecutionLog struct {
	Id            string         `json:"id"`
	FormId        string         `json:"formId"`
	RuleId        string         `json:"ruleId"`
	RuleName      string         `json:"ruleName"`
	Record        map[string]any `json:"record"`
	Triggered     bool           `json:"triggered"`
	ActionResults []ActionResult `json:"actionResults,omitempty"`
	Error         string         `json:"error,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}
