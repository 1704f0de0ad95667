package llm

// Request options travel from Client to the provider adapters as a generic
// map so that middleware can pass them through untouched. The helpers below
// read them back, accepting any numeric type a caller may have used.

// Option keys understood by every adapter.
const (
	OptSystem      = "system"
	OptModel       = "model"
	OptMaxTokens   = "max_tokens"
	OptTemperature = "temperature"
)

// ExtractOptionalInt returns opts[key] as an int, or defaultVal when the key
// is missing, not numeric, or rejected by validator.
func ExtractOptionalInt(opts map[string]any, key string, defaultVal int, validator func(int) bool) int {
	var v int
	switch n := opts[key].(type) {
	case int:
		v = n
	case int32:
		v = int(n)
	case int64:
		v = int(n)
	case float64:
		if n != float64(int(n)) {
			return defaultVal
		}
		v = int(n)
	default:
		return defaultVal
	}
	if validator != nil && !validator(v) {
		return defaultVal
	}
	return v
}

// ExtractOptionalString returns opts[key] as a string, or defaultVal when the
// key is missing, not a string, or rejected by validator.
func ExtractOptionalString(opts map[string]any, key string, defaultVal string, validator func(string) bool) string {
	v, ok := opts[key].(string)
	if !ok || (validator != nil && !validator(v)) {
		return defaultVal
	}
	return v
}

// ExtractOptionalFloat64 returns opts[key] as a float64, or ok=false when the
// key is missing, not numeric, or rejected by validator.
func ExtractOptionalFloat64(opts map[string]any, key string, validator func(float64) bool) (float64, bool) {
	var v float64
	switch n := opts[key].(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	default:
		return 0, false
	}
	if validator != nil && !validator(v) {
		return 0, false
	}
	return v, true
}
