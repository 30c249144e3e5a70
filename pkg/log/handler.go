package log

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// appendFields writes key/value pairs onto a zerolog event. A trailing key
// without a value is logged under "!BADKEY", matching slog.
func appendFields(e *zerolog.Event, fields []any) *zerolog.Event {
	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			e = e.Interface("!BADKEY", fields[i])
			break
		}
		key := fmt.Sprint(fields[i])
		e = appendValue(e, key, fields[i+1])
	}
	return e
}

func appendValue(e *zerolog.Event, key string, value any) *zerolog.Event {
	switch v := value.(type) {
	case error:
		e = e.AnErr(key, v)
		if st := extractStacktrace(v); st != "" {
			e = e.Str(StacktraceKey, st)
		}
		return e
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case float64:
		return e.Float64(key, v)
	case bool:
		return e.Bool(key, v)
	case time.Duration:
		return e.Dur(key, v)
	case []string:
		return e.Strs(key, v)
	case zerolog.LogObjectMarshaler:
		return e.Object(key, v)
	default:
		return e.Interface(key, v)
	}
}

// appendContext is appendFields for zerolog.Context, used by With.
func appendContext(c zerolog.Context, fields []any) zerolog.Context {
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			c = c.AnErr(key, v)
		case string:
			c = c.Str(key, v)
		case int:
			c = c.Int(key, v)
		default:
			c = c.Interface(key, v)
		}
	}
	return c
}

// extractStacktrace returns the first safe detail recorded by
// cockroachdb/errors, which holds the formatted stack.
func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}
