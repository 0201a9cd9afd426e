// Package action turns triggered rule actions into results: pure field
// modifications executed in place, external effects (webhook, notification)
// emitted as queue descriptors for out-of-process delivery.
package action

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/formforge/ruleengine/model"
	"github.com/formforge/ruleengine/rule"
)

// Context carries per-evaluation metadata into action execution.
type Context struct {
	FormId string
	RuleId string
	Extras map[string]any
}

type Action interface {
	GetType() model.ActionType
	GetParams() map[string]any
	// Execute never fails hard: errors are folded into the returned
	// result and an optional delivery descriptor is returned for
	// external effects.
	Execute(record map[string]any, ctx *Context) (model.ActionResult, *model.Descriptor)
}

type baseAction struct {
	actType model.ActionType
	params  map[string]any
}

func newBaseAction(actType model.ActionType, params map[string]any) baseAction {
	if params == nil {
		params = map[string]any{}
	}
	return baseAction{actType: actType, params: params}
}

func (ba *baseAction) GetType() model.ActionType {
	return ba.actType
}

func (ba *baseAction) GetParams() map[string]any {
	return ba.params
}

func (ba *baseAction) stringParam(name string) string {
	v, ok := ba.params[name]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func errorResult(actType model.ActionType, field string, err error) model.ActionResult {
	return model.ActionResult{
		Type:   actType,
		Status: model.ACTION_STATUS_ERROR,
		Field:  field,
		Error:  err.Error(),
	}
}

// FromDef builds a typed action from its stored definition.
func FromDef(def model.ActionDef) (Action, error) {
	base := newBaseAction(def.Type, def.Params)
	switch def.Type {
	case model.ACTION_TYPE_SET_FIELD:
		return &setFieldAction{baseAction: base}, nil
	case model.ACTION_TYPE_SHOW_FIELD, model.ACTION_TYPE_HIDE_FIELD, model.ACTION_TYPE_REQUIRE_FIELD:
		return &fieldMetaAction{baseAction: base}, nil
	case model.ACTION_TYPE_CALCULATE:
		return &calculateAction{baseAction: base}, nil
	case model.ACTION_TYPE_SEND_NOTIFICATION:
		return &notificationAction{baseAction: base}, nil
	case model.ACTION_TYPE_WEBHOOK:
		return &webhookAction{baseAction: base}, nil
	default:
		return nil, fmt.Errorf("unknown action type %q", def.Type)
	}
}

var templateRef = regexp.MustCompile(`\{\{\s*([^}\s]+)\s*\}\}`)

// resolveTemplate substitutes {{field}} references against the record.
// Unresolvable references become empty strings.
func resolveTemplate(template string, record map[string]any) string {
	return templateRef.ReplaceAllStringFunc(template, func(match string) string {
		path := templateRef.FindStringSubmatch(match)[1]
		value := rule.ResolveField(record, path)
		if value == nil {
			return ""
		}
		return fmt.Sprintf("%v", value)
	})
}

// resolveValue templates string values; non-strings pass through untouched.
func resolveValue(value any, record map[string]any) any {
	if s, ok := value.(string); ok && strings.Contains(s, "{{") {
		return resolveTemplate(s, record)
	}
	return value
}
