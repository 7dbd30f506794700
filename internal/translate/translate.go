// Package translate converts grouped OpenTelemetry SDK records into the
// otlpwire export requests.
package translate

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/instrumentation"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/szibis/otlp-shipper/internal/otlpwire"
)

// UnsupportedValueError reports an attribute value the wire schema cannot
// carry, or an aggregation it has no representation for.
type UnsupportedValueError struct {
	Key  string
	Kind string
}

func (e *UnsupportedValueError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("unsupported value kind %s", e.Kind)
	}
	return fmt.Sprintf("attribute %q: unsupported value kind %s", e.Key, e.Kind)
}

// Attribute converts one attribute. Integers are widened to doubles because
// the receiving side of this schema only reads the double slot for numbers.
func Attribute(kv attribute.KeyValue) (*otlpwire.AttributeKeyValue, error) {
	out := &otlpwire.AttributeKeyValue{Key: string(kv.Key)}
	switch kv.Value.Type() {
	case attribute.STRING:
		out.Type = otlpwire.ValueTypeString
		out.StringValue = kv.Value.AsString()
	case attribute.BOOL:
		out.Type = otlpwire.ValueTypeBool
		out.BoolValue = kv.Value.AsBool()
	case attribute.INT64:
		out.Type = otlpwire.ValueTypeDouble
		out.DoubleValue = float64(kv.Value.AsInt64())
	case attribute.FLOAT64:
		out.Type = otlpwire.ValueTypeDouble
		out.DoubleValue = kv.Value.AsFloat64()
	default:
		return nil, &UnsupportedValueError{Key: string(kv.Key), Kind: kv.Value.Type().String()}
	}
	return out, nil
}

// Attributes converts a list of attributes, failing on the first
// unsupported value.
func Attributes(kvs []attribute.KeyValue) ([]*otlpwire.AttributeKeyValue, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	out := make([]*otlpwire.AttributeKeyValue, 0, len(kvs))
	for _, kv := range kvs {
		a, err := Attribute(kv)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Resource converts a resource. A nil resource yields an empty one.
func Resource(res *resource.Resource) (*otlpwire.Resource, error) {
	if res == nil {
		return &otlpwire.Resource{}, nil
	}
	attrs, err := Attributes(res.Attributes())
	if err != nil {
		return nil, fmt.Errorf("resource: %w", err)
	}
	return &otlpwire.Resource{Attributes: attrs}, nil
}

// Library converts an instrumentation scope. Scope attributes and schema URL
// have no slot in this schema.
func Library(s instrumentation.Scope) *otlpwire.InstrumentationLibrary {
	return &otlpwire.InstrumentationLibrary{Name: s.Name, Version: s.Version}
}

// Labels converts an attribute set into string labels.
func Labels(set attribute.Set) []*otlpwire.StringKeyValue {
	if set.Len() == 0 {
		return nil
	}
	out := make([]*otlpwire.StringKeyValue, 0, set.Len())
	iter := set.Iter()
	for iter.Next() {
		kv := iter.Attribute()
		out = append(out, &otlpwire.StringKeyValue{Key: string(kv.Key), Value: kv.Value.Emit()})
	}
	return out
}

func unixNano(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.UnixNano())
}
