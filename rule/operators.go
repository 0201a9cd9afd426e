package rule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/formforge/ruleengine/model"
)

type operatorFunc func(actual, expected any) (bool, error)

var operators = map[model.Operator]operatorFunc{
	model.OP_EQUALS:         opEquals,
	model.OP_NOT_EQUALS:     negate(opEquals),
	model.OP_GREATER_THAN:   numericOp(func(a, b float64) bool { return a > b }),
	model.OP_GREATER_EQUAL:  numericOp(func(a, b float64) bool { return a >= b }),
	model.OP_LESS_THAN:      numericOp(func(a, b float64) bool { return a < b }),
	model.OP_LESS_EQUAL:     numericOp(func(a, b float64) bool { return a <= b }),
	model.OP_CONTAINS:       opContains,
	model.OP_NOT_CONTAINS:   negate(opContains),
	model.OP_STARTS_WITH:    opStartsWith,
	model.OP_ENDS_WITH:      opEndsWith,
	model.OP_IS_EMPTY:       opIsEmpty,
	model.OP_IS_NOT_EMPTY:   negate(opIsEmpty),
	model.OP_IN_LIST:        opInList,
	model.OP_NOT_IN_LIST:    negate(opInList),
	model.OP_MATCHES_REGEX:  opMatchesRegex,
}

func negate(fn operatorFunc) operatorFunc {
	return func(actual, expected any) (bool, error) {
		matched, err := fn(actual, expected)
		return !matched, err
	}
}

// ToFloat coerces a record value to float64. Missing values (nil) default
// to 0; a value that cannot be coerced reports ok=false and callers treat
// the comparison as false.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func numericOp(cmp func(a, b float64) bool) operatorFunc {
	return func(actual, expected any) (bool, error) {
		a, okA := ToFloat(actual)
		b, okB := ToFloat(expected)
		if !okA || !okB {
			return false, nil
		}
		return cmp(a, b), nil
	}
}

func opEquals(actual, expected any) (bool, error) {
	a, okA := ToFloat(actual)
	b, okB := ToFloat(expected)
	if okA && okB {
		return a == b, nil
	}
	return toString(actual) == toString(expected), nil
}

func opContains(actual, expected any) (bool, error) {
	switch list := actual.(type) {
	case []any:
		for _, item := range list {
			if matched, _ := opEquals(item, expected); matched {
				return true, nil
			}
		}
		return false, nil
	default:
		return strings.Contains(toString(actual), toString(expected)), nil
	}
}

func opStartsWith(actual, expected any) (bool, error) {
	return strings.HasPrefix(toString(actual), toString(expected)), nil
}

func opEndsWith(actual, expected any) (bool, error) {
	return strings.HasSuffix(toString(actual), toString(expected)), nil
}

func opIsEmpty(actual, _ any) (bool, error) {
	switch v := actual.(type) {
	case nil:
		return true, nil
	case string:
		return strings.TrimSpace(v) == "", nil
	case []any:
		return len(v) == 0, nil
	case map[string]any:
		return len(v) == 0, nil
	default:
		return false, nil
	}
}

func opInList(actual, expected any) (bool, error) {
	switch list := expected.(type) {
	case []any:
		for _, item := range list {
			if matched, _ := opEquals(actual, item); matched {
				return true, nil
			}
		}
		return false, nil
	case string:
		for _, item := range strings.Split(list, ",") {
			if matched, _ := opEquals(actual, strings.TrimSpace(item)); matched {
				return true, nil
			}
		}
		return false, nil
	default:
		return opEquals(actual, expected)
	}
}

func opMatchesRegex(actual, expected any) (bool, error) {
	re, err := regexp.Compile(toString(expected))
	if err != nil {
		return false, fmt.Errorf("bad regex %q: %w", toString(expected), err)
	}
	return re.MatchString(toString(actual)), nil
}
