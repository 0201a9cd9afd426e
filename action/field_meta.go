package action

import (
	"fmt"

	"github.com/formforge/ruleengine/model"
)

var _ Action = new(fieldMetaAction)

// fieldMetaAction covers show_field, hide_field and require_field: pure
// visibility/validation metadata, no record mutation and no external call.
type fieldMetaAction struct {
	baseAction
}

func (a *fieldMetaAction) Execute(record map[string]any, ctx *Context) (model.ActionResult, *model.Descriptor) {
	field := a.stringParam("field")
	if field == "" {
		return errorResult(a.actType, "", fmt.Errorf("%s requires a field parameter", a.actType)), nil
	}
	output := map[string]any{}
	switch a.actType {
	case model.ACTION_TYPE_SHOW_FIELD:
		output["visible"] = true
	case model.ACTION_TYPE_HIDE_FIELD:
		output["visible"] = false
	case model.ACTION_TYPE_REQUIRE_FIELD:
		output["required"] = true
	}
	return model.ActionResult{
		Type:   a.actType,
		Status: model.ACTION_STATUS_OK,
		Field:  field,
		Output: output,
	}, nil
}
