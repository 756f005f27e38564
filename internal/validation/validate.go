package validation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Issue codes.
const (
	CodeRequiredFieldMissing = "REQUIRED_FIELD_MISSING"
	CodeInvalidType          = "INVALID_TYPE"
	CodeUnknownField         = "UNKNOWN_FIELD"
	CodeCriticalError        = "CRITICAL_ERROR"
)

// Issue is one validation finding.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Result is produced fresh by every validation call.
type Result struct {
	IsValid  bool    `json:"isValid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Error wraps a failed Result so it can travel through error chains.
type Error struct {
	Result Result
}

func (e *Error) Error() string {
	if e == nil || len(e.Result.Errors) == 0 {
		return "validation: invalid document"
	}
	parts := make([]string, 0, len(e.Result.Errors))
	for _, issue := range e.Result.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s (%s)", fieldLabel(issue.Field), issue.Message, issue.Code))
	}
	return "validation: " + strings.Join(parts, "; ")
}

// Err returns a *Error when the result is invalid, nil otherwise.
func (r Result) Err() error {
	if r.IsValid {
		return nil
	}
	return &Error{Result: r}
}

// ValidateWithTolerance walks data against schema. data is expected to be the
// output of json.Unmarshal into an interface value.
func ValidateWithTolerance(data any, schema *Node) (result Result) {
	result = Result{Errors: []Issue{}, Warnings: []Issue{}}

	defer func() {
		if r := recover(); r != nil {
			result.Errors = append(result.Errors, Issue{
				Field:   "root",
				Message: fmt.Sprintf("critical validation failure: %v", r),
				Code:    CodeCriticalError,
			})
			result.IsValid = false
		}
	}()

	if schema == nil {
		panic("nil schema")
	}
	walk(data, schema, "", &result)
	result.IsValid = len(result.Errors) == 0
	return result
}

func walk(data any, schema *Node, path string, result *Result) {
	if data == nil {
		if schema.Required {
			result.Errors = append(result.Errors, Issue{
				Field:   path,
				Message: "required field is missing",
				Code:    CodeRequiredFieldMissing,
			})
		}
		return
	}

	if got := kindOf(data); !matches(data, got, schema.Kind) {
		result.Errors = append(result.Errors, Issue{
			Field:   path,
			Message: fmt.Sprintf("invalid type: expected %s, got %s", schema.Kind, got),
			Code:    CodeInvalidType,
		})
		return
	}

	switch schema.Kind {
	case KindObject:
		walkObject(data.(map[string]any), schema, path, result)
	case KindArray:
		if schema.Items == nil {
			return
		}
		for i, item := range data.([]any) {
			walk(item, schema.Items, fmt.Sprintf("%s[%d]", path, i), result)
		}
	}
}

func walkObject(obj map[string]any, schema *Node, path string, result *Result) {
	if schema.Values != nil {
		for _, key := range sortedKeys(obj) {
			walk(obj[key], schema.Values, joinPath(path, key), result)
		}
		return
	}
	if schema.Properties == nil {
		return
	}

	for _, name := range schema.propertyNames() {
		child := schema.Properties[name]
		value, ok := obj[name]
		if !ok {
			if child.Required {
				result.Errors = append(result.Errors, Issue{
					Field:   joinPath(path, name),
					Message: "required field is missing",
					Code:    CodeRequiredFieldMissing,
				})
			}
			continue
		}
		walk(value, child, joinPath(path, name), result)
	}

	for _, key := range sortedKeys(obj) {
		if _, declared := schema.Properties[key]; declared {
			continue
		}
		msg := "unknown field is ignored"
		if hint := closestName(key, schema); hint != "" {
			msg = fmt.Sprintf("unknown field is ignored (did you mean %q?)", hint)
		}
		result.Warnings = append(result.Warnings, Issue{
			Field:   joinPath(path, key),
			Message: msg,
			Code:    CodeUnknownField,
		})
	}
}

func matches(data any, got, want Kind) bool {
	switch want {
	case KindAny:
		return true
	case KindInteger:
		return got == KindNumber && isInteger(data)
	default:
		return got == want
	}
}

// isInteger reports whether a decoded number fits an int field.
func isInteger(v any) bool {
	switch n := v.(type) {
	case int, int64, int32, uint, uint64, uint32:
		return true
	case float32:
		return isInteger(float64(n))
	case float64:
		return n == math.Trunc(n) && n >= math.MinInt64 && n < math.MaxInt64
	default:
		return false
	}
}

func kindOf(v any) Kind {
	switch v.(type) {
	case string:
		return KindString
	case float64, float32, int, int64, int32, uint, uint64, uint32:
		return KindNumber
	case bool:
		return KindBoolean
	case map[string]any:
		return KindObject
	case []any:
		return KindArray
	default:
		return KindAny
	}
}

// closestName suggests a declared property within a small edit distance.
func closestName(key string, schema *Node) string {
	best := ""
	bestDist := hintLimit(len(key)) + 1
	for _, name := range schema.propertyNames() {
		dist := levenshtein.ComputeDistance(strings.ToLower(key), strings.ToLower(name))
		if dist < bestDist {
			best, bestDist = name, dist
		}
	}
	return best
}

func hintLimit(length int) int {
	switch {
	case length <= 3:
		return 0
	case length <= 6:
		return 1
	default:
		return 2
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "." + segment
}

func fieldLabel(field string) string {
	if field == "" {
		return "root"
	}
	return field
}
