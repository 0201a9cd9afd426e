package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/formforge/ruleengine/cache"
	"github.com/formforge/ruleengine/model"
	"github.com/formforge/ruleengine/persistence/inmem"
	"github.com/formforge/ruleengine/rule"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	engine  *RuleEngine
	storage *inmem.Storage
	queue   *inmem.Queue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	storage := inmem.NewStorage()
	queue := inmem.NewQueue()
	return &fixture{
		engine:  NewRuleEngine(storage, queue, cache.NewRuleCache(time.Minute), nil),
		storage: storage,
		queue:   queue,
	}
}

func amountRule(id string, priority int, stop bool) *model.Rule {
	return &model.Rule{
		Id:             id,
		FormId:         "form-1",
		Name:           "high amount",
		Priority:       priority,
		ConditionLogic: model.CONDITION_LOGIC_ALL,
		Conditions: []model.Condition{
			{FieldPath: "amount", Operator: model.OP_GREATER_THAN, Value: 100},
		},
		Actions: []model.ActionDef{
			{Type: model.ACTION_TYPE_SET_FIELD, Params: map[string]any{"field": "amount_category", "value": "high"}},
		},
		StopOnTrigger: stop,
		Active:        true,
	}
}

func TestEvaluateTriggersAndModifiesFields(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.SaveRule(amountRule("r-1", 1, false)))

	result, err := f.engine.Evaluate(model.EvaluationRequest{
		FormId: "form-1",
		Record: map[string]any{"amount": 150.0},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.RulesEvaluated)
	require.Equal(t, []string{"r-1"}, result.RulesTriggered)
	require.Equal(t, map[string]any{"amount_category": "high"}, result.FieldModifications)
	require.Empty(t, result.Errors)
}

func TestEvaluateNonMatchingRecord(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.SaveRule(amountRule("r-1", 1, false)))

	result, err := f.engine.Evaluate(model.EvaluationRequest{
		FormId: "form-1",
		Record: map[string]any{"amount": 50.0},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.RulesEvaluated)
	require.Empty(t, result.RulesTriggered)
	require.Empty(t, result.FieldModifications)
}

func TestStopOnTriggerEndsThePass(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.SaveRule(amountRule("r-1", 1, true)))
	require.NoError(t, f.engine.SaveRule(amountRule("r-2", 2, false)))

	result, err := f.engine.Evaluate(model.EvaluationRequest{
		FormId: "form-1",
		Record: map[string]any{"amount": 150.0},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.RulesEvaluated)
	require.Equal(t, []string{"r-1"}, result.RulesTriggered)

	logs, err := f.storage.GetExecutionLogsByForm("form-1", 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
}

func TestPriorityOrder(t *testing.T) {
	f := newFixture(t)
	// saved out of order on purpose
	require.NoError(t, f.engine.SaveRule(amountRule("r-low", 10, false)))
	require.NoError(t, f.engine.SaveRule(amountRule("r-high", 1, true)))

	result, err := f.engine.Evaluate(model.EvaluationRequest{
		FormId: "form-1",
		Record: map[string]any{"amount": 150.0},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"r-high"}, result.RulesTriggered)
}

func TestRuleErrorsAreNonFatal(t *testing.T) {
	f := newFixture(t)
	bad := amountRule("r-bad", 1, false)
	bad.Conditions = []model.Condition{
		{FieldPath: "email", Operator: model.OP_MATCHES_REGEX, Value: "("},
	}
	require.NoError(t, f.engine.SaveRule(bad))
	require.NoError(t, f.engine.SaveRule(amountRule("r-ok", 2, false)))

	result, err := f.engine.Evaluate(model.EvaluationRequest{
		FormId: "form-1",
		Record: map[string]any{"amount": 150.0, "email": "x"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.RulesEvaluated)
	require.Equal(t, []string{"r-ok"}, result.RulesTriggered)
	require.Len(t, result.Errors, 1)
	require.Equal(t, "r-bad", result.Errors[0].RuleId)
}

func TestExecutionLogPerRuleEvaluated(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.SaveRule(amountRule("r-1", 1, false)))
	require.NoError(t, f.engine.SaveRule(amountRule("r-2", 2, false)))

	_, err := f.engine.Evaluate(model.EvaluationRequest{
		FormId: "form-1",
		Record: map[string]any{"amount": 150.0},
	})
	require.NoError(t, err)

	logs, err := f.storage.GetExecutionLogsByForm("form-1", 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	for _, l := range logs {
		require.True(t, l.Triggered)
		require.Equal(t, 150.0, l.Record["amount"])
		require.NotEmpty(t, l.Id)
	}
}

func TestExternalActionsAreQueued(t *testing.T) {
	f := newFixture(t)
	r := amountRule("r-1", 1, false)
	r.Actions = append(r.Actions, model.ActionDef{
		Type:   model.ACTION_TYPE_WEBHOOK,
		Params: map[string]any{"url": "https://hooks.example.com/x"},
	})
	require.NoError(t, f.engine.SaveRule(r))

	_, err := f.engine.Evaluate(model.EvaluationRequest{
		FormId: "form-1",
		Record: map[string]any{"amount": 150.0},
	})
	require.NoError(t, err)

	queued, err := f.queue.Pop(10)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	require.Equal(t, model.DESCRIPTOR_TYPE_WEBHOOK, queued[0].Type)
}

func TestLaterRulesSeeEarlierModifications(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.SaveRule(amountRule("r-1", 1, false)))
	chained := &model.Rule{
		Id:             "r-2",
		FormId:         "form-1",
		Priority:       2,
		ConditionLogic: model.CONDITION_LOGIC_ALL,
		Conditions: []model.Condition{
			{FieldPath: "amount_category", Operator: model.OP_EQUALS, Value: "high"},
		},
		Actions: []model.ActionDef{
			{Type: model.ACTION_TYPE_REQUIRE_FIELD, Params: map[string]any{"field": "approver"}},
		},
		Active: true,
	}
	require.NoError(t, f.engine.SaveRule(chained))

	result, err := f.engine.Evaluate(model.EvaluationRequest{
		FormId: "form-1",
		Record: map[string]any{"amount": 150.0},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"r-1", "r-2"}, result.RulesTriggered)
}

func TestSaveRuleInvalidatesCache(t *testing.T) {
	f := newFixture(t)
	r := amountRule("r-1", 1, false)
	require.NoError(t, f.engine.SaveRule(r))

	// prime the cache
	_, err := f.engine.Evaluate(model.EvaluationRequest{FormId: "form-1", Record: map[string]any{"amount": 150.0}})
	require.NoError(t, err)

	r.Active = false
	require.NoError(t, f.engine.SaveRule(r))

	result, err := f.engine.Evaluate(model.EvaluationRequest{FormId: "form-1", Record: map[string]any{"amount": 150.0}})
	require.NoError(t, err)
	require.Equal(t, 0, result.RulesEvaluated)
}

// Exporting and re-importing a rule's JSON must preserve its trigger
// decisions across a record corpus.
func TestRuleJsonRoundTrip(t *testing.T) {
	original := &model.Rule{
		Id:               "r-1",
		FormId:           "form-1",
		Priority:         1,
		ConditionLogic:   model.CONDITION_LOGIC_CUSTOM,
		CustomExpression: "1 AND (2 OR NOT 3)",
		Conditions: []model.Condition{
			{FieldPath: "amount", Operator: model.OP_GREATER_THAN, Value: 100},
			{FieldPath: "status", Operator: model.OP_EQUALS, Value: "open"},
			{FieldPath: "email", Operator: model.OP_IS_EMPTY},
		},
		Actions: []model.ActionDef{
			{Type: model.ACTION_TYPE_SET_FIELD, Params: map[string]any{"field": "flag", "value": "yes"}},
		},
		Active: true,
	}
	data, err := json.Marshal(original)
	require.NoError(t, err)
	var restored model.Rule
	require.NoError(t, json.Unmarshal(data, &restored))

	corpus := []map[string]any{
		{"amount": 150.0, "status": "open", "email": "x@y.z"},
		{"amount": 150.0, "status": "closed", "email": "x@y.z"},
		{"amount": 150.0, "status": "closed", "email": ""},
		{"amount": 50.0, "status": "open", "email": ""},
		{},
	}
	for i, record := range corpus {
		want, _ := rule.Evaluate(original, record)
		got, _ := rule.Evaluate(&restored, record)
		require.Equal(t, want, got, "corpus record %d", i)
	}
}
