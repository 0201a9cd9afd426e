package action

import (
	"github.com/formforge/ruleengine/logger"
	"github.com/formforge/ruleengine/model"
	"go.uber.org/zap"
)

// ExecuteAll runs every action of a triggered rule in order. Each action
// yields exactly one result regardless of outcome; external effects are
// collected as descriptors for the delivery queue.
func ExecuteAll(defs []model.ActionDef, record map[string]any, ctx *Context) ([]model.ActionResult, []model.Descriptor) {
	results := make([]model.ActionResult, 0, len(defs))
	var descriptors []model.Descriptor
	for _, def := range defs {
		act, err := FromDef(def)
		if err != nil {
			logger.Error("skipping unknown action", zap.String("rule", ctx.RuleId), zap.Error(err))
			results = append(results, errorResult(def.Type, "", err))
			continue
		}
		result, descriptor := act.Execute(record, ctx)
		results = append(results, result)
		if descriptor != nil {
			descriptors = append(descriptors, *descriptor)
		}
	}
	return results, descriptors
}
