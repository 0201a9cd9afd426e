// Package rule evaluates prioritized condition/action rules against
// submission records. Evaluation is stateless and side-effect free; every
// failure is reported through the returned error and treated as a
// non-trigger by callers.
package rule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/formforge/ruleengine/expr"
	"github.com/formforge/ruleengine/model"
	"github.com/oliveagle/jsonpath"
)

// ResolveField resolves a dot-notation path into a nested record. A missing
// path yields nil, never an error.
func ResolveField(record map[string]any, path string) any {
	if path == "" {
		return nil
	}
	if !strings.HasPrefix(path, "$") {
		path = "$." + path
	}
	value, err := jsonpath.JsonPathLookup(record, path)
	if err != nil {
		return nil
	}
	return value
}

// resolveValue turns a condition operand into its comparable form. String
// operands starting with "$." are field references resolved against the
// record.
func resolveValue(record map[string]any, value any) any {
	if s, ok := value.(string); ok && strings.HasPrefix(s, "$.") {
		return ResolveField(record, s)
	}
	return value
}

// Evaluate runs every condition of the rule against the record and combines
// the outcomes per the rule's condition logic. Per-condition failures count
// as false; a combinator failure is returned alongside a false result.
func Evaluate(r *model.Rule, record map[string]any) (bool, error) {
	outcomes := make([]bool, len(r.Conditions))
	var firstErr error
	for i, cond := range r.Conditions {
		matched, err := evalCondition(&cond, record)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("condition %d: %w", i+1, err)
		}
		outcomes[i] = matched
	}
	switch r.ConditionLogic {
	case model.CONDITION_LOGIC_ANY:
		for _, b := range outcomes {
			if b {
				return true, firstErr
			}
		}
		return false, firstErr
	case model.CONDITION_LOGIC_CUSTOM:
		result, err := expr.EvalBool(r.CustomExpression, outcomes)
		if err != nil {
			return false, fmt.Errorf("custom expression: %w", err)
		}
		return result, firstErr
	default:
		// "all": vacuously true for an empty condition list.
		for _, b := range outcomes {
			if !b {
				return false, firstErr
			}
		}
		return true, firstErr
	}
}

func evalCondition(cond *model.Condition, record map[string]any) (bool, error) {
	actual := ResolveField(record, cond.FieldPath)
	expected := resolveValue(record, cond.Value)
	fn, ok := operators[cond.Operator]
	if !ok {
		return false, fmt.Errorf("unknown operator %q", cond.Operator)
	}
	return fn(actual, expected)
}

// SortByPriority orders rules for evaluation, lower priority first. The sort
// is stable so rules sharing a priority keep their stored order.
func SortByPriority(rules []*model.Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority < rules[j].Priority
	})
}
