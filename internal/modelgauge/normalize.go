package modelgauge

import (
	"encoding/json"
	"fmt"
	"time"
)

// timestampLayouts are the accepted ISO-8601 shapes, tried in order. The
// second entry covers offsets written without a colon, which RFC 3339 does
// not allow but upstream APIs emit. Layouts without a zone parse as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Normalize converts a selector result into a gauge sample:
//
//   - nil becomes 0
//   - bools become 0 or 1
//   - numbers (and json.Number) pass through
//   - ISO-8601 strings become Unix epoch seconds
//   - an error value fails the read with that error
//
// Anything else is an error.
func Normalize(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("non-numeric value %q", x.String())
		}
		return f, nil
	case string:
		return parseTimestamp(x)
	case error:
		return 0, x
	default:
		return 0, fmt.Errorf("cannot normalize %T value to a sample", v)
	}
}

func parseTimestamp(s string) (float64, error) {
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return float64(t.Unix()) + float64(t.Nanosecond())/1e9, nil
		}
	}
	return 0, fmt.Errorf("unrecognized timestamp %q", s)
}
