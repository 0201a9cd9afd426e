// Package engine orchestrates a rule pass: load the form's active rules,
// evaluate them in priority order, dispatch actions of triggered rules and
// record one execution log per rule evaluated. No failure inside a pass is
// fatal; everything is captured in the result and the logs.
package engine

import (
	"time"

	"github.com/formforge/ruleengine/action"
	"github.com/formforge/ruleengine/audit"
	"github.com/formforge/ruleengine/cache"
	"github.com/formforge/ruleengine/logger"
	"github.com/formforge/ruleengine/model"
	"github.com/formforge/ruleengine/persistence"
	"github.com/formforge/ruleengine/rule"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RuleEngine struct {
	storage   persistence.Storage
	queue     persistence.DeliveryQueue
	ruleCache *cache.RuleCache
	collector audit.Collector
}

func NewRuleEngine(storage persistence.Storage, queue persistence.DeliveryQueue, ruleCache *cache.RuleCache, collector audit.Collector) *RuleEngine {
	if collector == nil {
		collector = audit.NopCollector{}
	}
	return &RuleEngine{
		storage:   storage,
		queue:     queue,
		ruleCache: ruleCache,
		collector: collector,
	}
}

// activeRules returns the form's active rules in evaluation order,
// consulting the cache before storage.
func (e *RuleEngine) activeRules(formId string) ([]*model.Rule, error) {
	if rules, ok := e.ruleCache.Get(formId); ok {
		return rules, nil
	}
	all, err := e.storage.GetRulesByForm(formId)
	if err != nil {
		return nil, err
	}
	rules := make([]*model.Rule, 0, len(all))
	for _, r := range all {
		if r.Active {
			rules = append(rules, r)
		}
	}
	rule.SortByPriority(rules)
	e.ruleCache.Set(formId, rules)
	return rules, nil
}

// Evaluate runs the full rule pass for one record. The record copy actions
// operate on carries earlier field modifications forward, so later rules
// observe values set by higher-priority rules.
func (e *RuleEngine) Evaluate(req model.EvaluationRequest) (*model.EvaluationResult, error) {
	rules, err := e.activeRules(req.FormId)
	if err != nil {
		return nil, err
	}
	result := &model.EvaluationResult{
		FormId:             req.FormId,
		RulesTriggered:     []string{},
		ActionsExecuted:    []model.ActionResult{},
		FieldModifications: map[string]any{},
	}
	record := copyRecord(req.Record)
	for _, r := range rules {
		result.RulesEvaluated++
		triggered, evalErr := rule.Evaluate(r, record)
		logEntry := model.ExecutionLog{
			Id:        uuid.New().String(),
			FormId:    req.FormId,
			RuleId:    r.Id,
			RuleName:  r.Name,
			Record:    copyRecord(record),
			Triggered: triggered,
			CreatedAt: time.Now(),
		}
		if evalErr != nil {
			logEntry.Error = evalErr.Error()
			result.Errors = append(result.Errors, model.RuleError{RuleId: r.Id, Message: evalErr.Error()})
		}
		if triggered {
			result.RulesTriggered = append(result.RulesTriggered, r.Id)
			ctx := &action.Context{FormId: req.FormId, RuleId: r.Id, Extras: req.Context}
			actionResults, descriptors := action.ExecuteAll(r.Actions, record, ctx)
			logEntry.ActionResults = actionResults
			result.ActionsExecuted = append(result.ActionsExecuted, actionResults...)
			e.applyModifications(actionResults, record, result)
			for _, d := range descriptors {
				if err := e.queue.Push(d); err != nil {
					logger.Error("error queueing descriptor", zap.String("rule", r.Id), zap.Error(err))
					result.Errors = append(result.Errors, model.RuleError{RuleId: r.Id, Message: err.Error()})
				}
			}
		}
		if err := e.storage.SaveExecutionLog(logEntry); err != nil {
			logger.Error("error saving execution log", zap.String("rule", r.Id), zap.Error(err))
			result.Errors = append(result.Errors, model.RuleError{RuleId: r.Id, Message: err.Error()})
		}
		e.collector.RecordEvaluation(req.FormId, r.Id, r.Name, triggered, logEntry.Error)
		if triggered && r.StopOnTrigger {
			break
		}
	}
	return result, nil
}

func (e *RuleEngine) applyModifications(results []model.ActionResult, record map[string]any, out *model.EvaluationResult) {
	for _, res := range results {
		if res.Status != model.ACTION_STATUS_OK || res.Field == "" {
			continue
		}
		switch res.Type {
		case model.ACTION_TYPE_SET_FIELD, model.ACTION_TYPE_CALCULATE:
			record[res.Field] = res.Value
			out.FieldModifications[res.Field] = res.Value
		}
	}
}

// SaveRule validates and persists a rule, refreshing the form's cache entry.
func (e *RuleEngine) SaveRule(r *model.Rule) error {
	if r.Id == "" {
		r.Id = uuid.New().String()
		r.CreatedAt = time.Now()
	}
	r.UpdatedAt = time.Now()
	if err := e.storage.SaveRule(*r); err != nil {
		return err
	}
	e.ruleCache.Invalidate(r.FormId)
	return nil
}

func (e *RuleEngine) DeleteRule(id string) error {
	r, err := e.storage.GetRule(id)
	if err != nil {
		return err
	}
	if err := e.storage.DeleteRule(id); err != nil {
		return err
	}
	e.ruleCache.Invalidate(r.FormId)
	return nil
}

func copyRecord(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = v
	}
	return out
}
