package action

import (
	"fmt"

	"github.com/formforge/ruleengine/model"
)

var _ Action = new(setFieldAction)

type setFieldAction struct {
	baseAction
}

func (a *setFieldAction) Execute(record map[string]any, ctx *Context) (model.ActionResult, *model.Descriptor) {
	field := a.stringParam("field")
	if field == "" {
		return errorResult(a.actType, "", fmt.Errorf("set_field requires a field parameter")), nil
	}
	value := resolveValue(a.params["value"], record)
	return model.ActionResult{
		Type:   a.actType,
		Status: model.ACTION_STATUS_OK,
		Field:  field,
		Value:  value,
	}, nil
}
