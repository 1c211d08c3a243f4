// Package convert implements pure value conversion between field type
// tags, null resolution, and type inference for the geofuse merge engine.
// Every function is total: failures are reported as an error wrapping
// types.ErrConversion, never a panic, and the caller maps them to a
// default value.
package convert

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/meridianworks/geofuse/pkg/types"
)

// dateLayouts are the accepted textual date forms, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
}

// DateLayout is the canonical textual form of a date value.
const DateLayout = time.RFC3339

// Convert coerces value from sourceType to targetType. A null marker
// passes through unchanged. sourceType is advisory; the concrete Go type
// of value drives the coercion. Unsupported or unparseable inputs return
// an error wrapping types.ErrConversion.
func Convert(value any, sourceType, targetType string) (any, error) {
	if types.IsNull(value) {
		return nil, nil
	}
	switch targetType {
	case types.FieldInteger:
		return toInteger(value)
	case types.FieldFloat:
		return toFloat(value)
	case types.FieldString:
		return toString(value)
	case types.FieldBoolean:
		return toBoolean(value)
	case types.FieldDate:
		return toDate(value)
	case types.FieldBinary:
		return toBinary(value)
	default:
		return nil, failf(value, sourceType, targetType, "unknown target type")
	}
}

// ResolveNull returns def when value is the null marker and value
// otherwise. The default is never coerced.
func ResolveNull(value, def any) any {
	if types.IsNull(value) {
		return def
	}
	return value
}

// InferType returns the field type tag for a raw value. Used only by
// mapping-template generation when no declared schema type is available.
// The null marker infers as string.
func InferType(value any) string {
	switch value.(type) {
	case nil:
		return types.FieldString
	case bool:
		return types.FieldBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return types.FieldInteger
	case float32, float64:
		return types.FieldFloat
	case time.Time:
		return types.FieldDate
	case []byte:
		return types.FieldBinary
	default:
		return types.FieldString
	}
}

// toInteger truncates toward zero for floating input, maps false to 0 and
// true to 1, and parses strings as numbers before truncating.
func toInteger(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case float32:
		return int64(math.Trunc(float64(v))), nil
	case float64:
		return int64(math.Trunc(v)), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, failf(value, "", types.FieldInteger, "not a number")
		}
		return int64(math.Trunc(f)), nil
	default:
		n, err := cast.ToInt64E(value)
		if err != nil {
			return nil, failf(value, "", types.FieldInteger, "%v", err)
		}
		return n, nil
	}
}

func toFloat(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return float64(1), nil
		}
		return float64(0), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, failf(value, "", types.FieldFloat, "not a number")
		}
		return f, nil
	default:
		f, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, failf(value, "", types.FieldFloat, "%v", err)
		}
		return f, nil
	}
}

// toString produces a locale-independent canonical form. Any value has a
// string form; this conversion cannot fail.
func toString(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case time.Time:
		return v.UTC().Format(DateLayout), nil
	case []byte:
		return string(v), nil
	default:
		if s, err := cast.ToStringE(value); err == nil {
			return s, nil
		}
		return fmt.Sprint(value), nil
	}
}

// toBoolean accepts the textual forms true/yes/t/y/1 (case-insensitive)
// and treats numeric input as zero/non-zero.
func toBoolean(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "t", "y", "1":
			return true, nil
		case "false", "no", "f", "n", "0", "":
			return false, nil
		}
		return nil, failf(value, "", types.FieldBoolean, "not a boolean")
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		f, _ := cast.ToFloat64E(v)
		return f != 0, nil
	default:
		b, err := cast.ToBoolE(value)
		if err != nil {
			return nil, failf(value, "", types.FieldBoolean, "%v", err)
		}
		return b, nil
	}
}

func toDate(value any) (any, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, nil
			}
		}
		return nil, failf(value, "", types.FieldDate, "unrecognized date form")
	default:
		return nil, failf(value, "", types.FieldDate, "cannot interpret %T as a date", value)
	}
}

func toBinary(value any) (any, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, failf(value, "", types.FieldBinary, "cannot interpret %T as binary", value)
	}
}

func failf(value any, sourceType, targetType, format string, args ...any) error {
	detail := fmt.Sprintf(format, args...)
	if sourceType != "" {
		return fmt.Errorf("%w: %v (%s -> %s): %s",
			types.ErrConversion, value, sourceType, targetType, detail)
	}
	return fmt.Errorf("%w: %v -> %s: %s", types.ErrConversion, value, targetType, detail)
}
