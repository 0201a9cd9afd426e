package action

import (
	"fmt"

	"github.com/formforge/ruleengine/expr"
	"github.com/formforge/ruleengine/model"
	"github.com/formforge/ruleengine/rule"
)

var _ Action = new(calculateAction)

type calculateAction struct {
	baseAction
}

func (a *calculateAction) Execute(record map[string]any, ctx *Context) (model.ActionResult, *model.Descriptor) {
	field := a.stringParam("field")
	if field == "" {
		return errorResult(a.actType, "", fmt.Errorf("calculate requires a field parameter")), nil
	}
	formula := a.stringParam("formula")
	resolver := func(name string) float64 {
		f, _ := rule.ToFloat(rule.ResolveField(record, name))
		return f
	}
	value, err := expr.EvalFormula(formula, resolver)
	if err != nil {
		// Bad formulas and division by zero fall back to 0. The error is
		// still surfaced on the result so execution logs retain it.
		return model.ActionResult{
			Type:   a.actType,
			Status: model.ACTION_STATUS_OK,
			Field:  field,
			Value:  0.0,
			Error:  err.Error(),
		}, nil
	}
	return model.ActionResult{
		Type:   a.actType,
		Status: model.ACTION_STATUS_OK,
		Field:  field,
		Value:  value,
	}, nil
}
