package telemetry

import (
	"context"
	"fmt"
	"sort"
	"time"

	otellog "go.opentelemetry.io/otel/log"

	"github.com/szibis/otlp-shipper/internal/logging"
)

// NewLogHook returns a logging.LogHook that emits entries through the OTEL
// log SDK, or nil when telemetry is disabled.
func (t *Telemetry) NewLogHook() logging.LogHook {
	if t == nil || t.logger == nil {
		return nil
	}
	logger := t.logger

	return func(level logging.Level, msg string, attrs map[string]interface{}) {
		var record otellog.Record
		record.SetTimestamp(time.Now())
		record.SetBody(otellog.StringValue(msg))
		record.SetSeverity(toOTELSeverity(level))
		record.SetSeverityText(string(level))
		if len(attrs) > 0 {
			record.AddAttributes(toOTELAttributes(attrs)...)
		}
		logger.Emit(context.Background(), record)
	}
}

func toOTELSeverity(level logging.Level) otellog.Severity {
	switch level {
	case logging.LevelDebug:
		return otellog.SeverityDebug
	case logging.LevelWarn:
		return otellog.SeverityWarn
	case logging.LevelError:
		return otellog.SeverityError
	case logging.LevelFatal:
		return otellog.SeverityFatal
	default:
		return otellog.SeverityInfo
	}
}

// toOTELAttributes converts log fields, sorted by key so records are stable.
func toOTELAttributes(attrs map[string]interface{}) []otellog.KeyValue {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	kvs := make([]otellog.KeyValue, 0, len(keys))
	for _, k := range keys {
		kvs = append(kvs, otellog.KeyValue{Key: k, Value: toOTELValue(attrs[k])})
	}
	return kvs
}

func toOTELValue(v interface{}) otellog.Value {
	switch val := v.(type) {
	case nil:
		return otellog.StringValue("<nil>")
	case string:
		return otellog.StringValue(val)
	case int:
		return otellog.IntValue(val)
	case int64:
		return otellog.Int64Value(val)
	case uint64:
		return otellog.Int64Value(int64(val))
	case float64:
		return otellog.Float64Value(val)
	case bool:
		return otellog.BoolValue(val)
	case time.Duration:
		return otellog.StringValue(val.String())
	case error:
		return otellog.StringValue(val.Error())
	default:
		return otellog.StringValue(fmt.Sprint(val))
	}
}
