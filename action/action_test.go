package action

import (
	"testing"

	"github.com/formforge/ruleengine/model"
	"github.com/stretchr/testify/require"
)

func testCtx() *Context {
	return &Context{FormId: "form-1", RuleId: "rule-1"}
}

func TestSetField(t *testing.T) {
	act, err := FromDef(model.ActionDef{
		Type:   model.ACTION_TYPE_SET_FIELD,
		Params: map[string]any{"field": "amount_category", "value": "high"},
	})
	require.NoError(t, err)
	result, descriptor := act.Execute(map[string]any{"amount": 150.0}, testCtx())
	require.Nil(t, descriptor)
	require.Equal(t, model.ACTION_STATUS_OK, result.Status)
	require.Equal(t, "amount_category", result.Field)
	require.Equal(t, "high", result.Value)
}

func TestSetFieldTemplate(t *testing.T) {
	act, _ := FromDef(model.ActionDef{
		Type:   model.ACTION_TYPE_SET_FIELD,
		Params: map[string]any{"field": "greeting", "value": "hello {{user.name}}"},
	})
	record := map[string]any{"user": map[string]any{"name": "jane"}}
	result, _ := act.Execute(record, testCtx())
	require.Equal(t, "hello jane", result.Value)
}

func TestSetFieldTemplateMissingFieldIsEmpty(t *testing.T) {
	act, _ := FromDef(model.ActionDef{
		Type:   model.ACTION_TYPE_SET_FIELD,
		Params: map[string]any{"field": "greeting", "value": "hi {{missing}}!"},
	})
	result, _ := act.Execute(map[string]any{}, testCtx())
	require.Equal(t, "hi !", result.Value)
}

func TestSetFieldMissingFieldParam(t *testing.T) {
	act, _ := FromDef(model.ActionDef{Type: model.ACTION_TYPE_SET_FIELD})
	result, _ := act.Execute(map[string]any{}, testCtx())
	require.Equal(t, model.ACTION_STATUS_ERROR, result.Status)
}

func TestFieldMeta(t *testing.T) {
	tests := []struct {
		actType model.ActionType
		key     string
		want    any
	}{
		{model.ACTION_TYPE_SHOW_FIELD, "visible", true},
		{model.ACTION_TYPE_HIDE_FIELD, "visible", false},
		{model.ACTION_TYPE_REQUIRE_FIELD, "required", true},
	}
	for _, tc := range tests {
		t.Run(string(tc.actType), func(t *testing.T) {
			act, err := FromDef(model.ActionDef{Type: tc.actType, Params: map[string]any{"field": "phone"}})
			require.NoError(t, err)
			result, descriptor := act.Execute(map[string]any{}, testCtx())
			require.Nil(t, descriptor)
			require.Equal(t, model.ACTION_STATUS_OK, result.Status)
			require.Equal(t, "phone", result.Field)
			require.Equal(t, tc.want, result.Output[tc.key])
		})
	}
}

func TestCalculate(t *testing.T) {
	act, _ := FromDef(model.ActionDef{
		Type:   model.ACTION_TYPE_CALCULATE,
		Params: map[string]any{"field": "total", "formula": "[price] * [quantity]"},
	})
	result, _ := act.Execute(map[string]any{"price": 12.5, "quantity": 4.0}, testCtx())
	require.Equal(t, model.ACTION_STATUS_OK, result.Status)
	require.Equal(t, 50.0, result.Value)
	require.Empty(t, result.Error)
}

func TestCalculateDivisionByZeroYieldsZero(t *testing.T) {
	act, _ := FromDef(model.ActionDef{
		Type:   model.ACTION_TYPE_CALCULATE,
		Params: map[string]any{"field": "ratio", "formula": "[amount] / [zero]"},
	})
	result, _ := act.Execute(map[string]any{"amount": 10.0, "zero": 0.0}, testCtx())
	require.Equal(t, model.ACTION_STATUS_OK, result.Status)
	require.Equal(t, 0.0, result.Value)
	require.NotEmpty(t, result.Error)
}

func TestCalculateMalformedFormulaYieldsZero(t *testing.T) {
	act, _ := FromDef(model.ActionDef{
		Type:   model.ACTION_TYPE_CALCULATE,
		Params: map[string]any{"field": "x", "formula": "[a] ** [b]"},
	})
	result, _ := act.Execute(map[string]any{"a": 2.0, "b": 3.0}, testCtx())
	require.Equal(t, 0.0, result.Value)
	require.NotEmpty(t, result.Error)
}

func TestWebhookProducesDescriptor(t *testing.T) {
	act, _ := FromDef(model.ActionDef{
		Type:   model.ACTION_TYPE_WEBHOOK,
		Params: map[string]any{"url": "https://hooks.example.com/x", "payload": map[string]any{"note": "{{status}}"}},
	})
	result, descriptor := act.Execute(map[string]any{"status": "open"}, testCtx())
	require.Equal(t, model.ACTION_STATUS_QUEUED, result.Status)
	require.NotNil(t, descriptor)
	require.Equal(t, model.DESCRIPTOR_TYPE_WEBHOOK, descriptor.Type)
	require.Equal(t, "https://hooks.example.com/x", descriptor.Url)
	require.Equal(t, "open", descriptor.Payload["note"])
	require.NotEmpty(t, descriptor.IdempotencyKey)
}

func TestNotificationProducesDescriptor(t *testing.T) {
	act, _ := FromDef(model.ActionDef{
		Type: model.ACTION_TYPE_SEND_NOTIFICATION,
		Params: map[string]any{
			"recipient": "{{email}}",
			"subject":   "New submission",
			"message":   "amount is {{amount}}",
		},
	})
	result, descriptor := act.Execute(map[string]any{"email": "jane@example.com", "amount": 5.0}, testCtx())
	require.Equal(t, model.ACTION_STATUS_QUEUED, result.Status)
	require.NotNil(t, descriptor)
	require.Equal(t, "jane@example.com", descriptor.Recipient)
	require.Equal(t, "amount is 5", descriptor.Payload["message"])
}

func TestExecuteAllRecordsEveryAction(t *testing.T) {
	defs := []model.ActionDef{
		{Type: model.ACTION_TYPE_SET_FIELD, Params: map[string]any{"field": "a", "value": "1"}},
		{Type: "bogus"},
		{Type: model.ACTION_TYPE_WEBHOOK, Params: map[string]any{"url": "https://example.com"}},
	}
	results, descriptors := ExecuteAll(defs, map[string]any{}, testCtx())
	require.Len(t, results, 3)
	require.Equal(t, model.ACTION_STATUS_OK, results[0].Status)
	require.Equal(t, model.ACTION_STATUS_ERROR, results[1].Status)
	require.Equal(t, model.ACTION_STATUS_QUEUED, results[2].Status)
	require.Len(t, descriptors, 1)
}
