package otlpwire

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/szibis/otlp-shipper/internal/intern"
)

// Message is implemented by the export requests and responses. AppendProto
// appends the protobuf binary encoding to b; UnmarshalProto replaces the
// receiver's contents with the decoded form of b.
type Message interface {
	AppendProto(b []byte) []byte
	UnmarshalProto(b []byte) error
}

// MarshalProto returns the protobuf binary encoding of m.
func MarshalProto(m Message) []byte {
	return m.AppendProto(nil)
}

var errWireType = errors.New("otlpwire: unexpected wire type")

type encoder interface {
	appendProto(b []byte) []byte
}

type decoder[T any] interface {
	*T
	unmarshalProto(b []byte) error
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendFixed64(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, v)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 && !math.Signbit(v) {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}

func appendMessage(b []byte, num protowire.Number, m encoder) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m.appendProto(nil))
}

func appendMessages[T encoder](b []byte, num protowire.Number, ms []T) []byte {
	for _, m := range ms {
		b = appendMessage(b, num, m)
	}
	return b
}

func appendPackedDoubles(b []byte, num protowire.Number, vs []float64) []byte {
	if len(vs) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(8*len(vs)))
	for _, v := range vs {
		b = protowire.AppendFixed64(b, math.Float64bits(v))
	}
	return b
}

// walk iterates over the fields of an encoded message. fn returns the number
// of bytes it consumed, or -1 to have the field skipped as unknown.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		if m < 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return protowire.ParseError(m)
			}
		}
		b = b[m:]
	}
	return nil
}

func consumeBytes(typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, errWireType
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeString(typ protowire.Type, b []byte, dst *string) (int, error) {
	v, n, err := consumeBytes(typ, b)
	if err != nil {
		return 0, err
	}
	*dst = string(v)
	return n, nil
}

// consumeInterned decodes a string that repeats across requests, such as a
// key or a metric name, through pool.
func consumeInterned(typ protowire.Type, b []byte, pool *intern.Pool, dst *string) (int, error) {
	v, n, err := consumeBytes(typ, b)
	if err != nil {
		return 0, err
	}
	*dst = pool.InternBytes(v)
	return n, nil
}

func consumeID(typ protowire.Type, b []byte, dst *[]byte) (int, error) {
	v, n, err := consumeBytes(typ, b)
	if err != nil {
		return 0, err
	}
	*dst = append([]byte(nil), v...)
	return n, nil
}

func consumeVarint(typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, errWireType
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeFixed64(typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.Fixed64Type {
		return 0, 0, errWireType
	}
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeDouble(typ protowire.Type, b []byte, dst *float64) (int, error) {
	v, n, err := consumeFixed64(typ, b)
	if err != nil {
		return 0, err
	}
	*dst = math.Float64frombits(v)
	return n, nil
}

func consumeUint32(typ protowire.Type, b []byte, dst *uint32) (int, error) {
	v, n, err := consumeVarint(typ, b)
	if err != nil {
		return 0, err
	}
	*dst = uint32(v)
	return n, nil
}

func consumeUint64(typ protowire.Type, b []byte, dst *uint64) (int, error) {
	v, n, err := consumeVarint(typ, b)
	if err != nil {
		return 0, err
	}
	*dst = v
	return n, nil
}

func consumeTimestamp(typ protowire.Type, b []byte, dst *uint64) (int, error) {
	v, n, err := consumeFixed64(typ, b)
	if err != nil {
		return 0, err
	}
	*dst = v
	return n, nil
}

func consumeMessage[T any, P decoder[T]](typ protowire.Type, b []byte) (P, int, error) {
	v, n, err := consumeBytes(typ, b)
	if err != nil {
		return nil, 0, err
	}
	m := P(new(T))
	if err := m.unmarshalProto(v); err != nil {
		return nil, 0, err
	}
	return m, n, nil
}

func consumeInto[T any, P decoder[T]](typ protowire.Type, b []byte, dst *[]P) (int, error) {
	m, n, err := consumeMessage[T, P](typ, b)
	if err != nil {
		return 0, err
	}
	*dst = append(*dst, m)
	return n, nil
}

// consumeDoubles accepts both the packed and the unpacked form of a repeated
// double field.
func consumeDoubles(typ protowire.Type, b []byte, dst *[]float64) (int, error) {
	switch typ {
	case protowire.Fixed64Type:
		var v float64
		n, err := consumeDouble(typ, b, &v)
		if err != nil {
			return 0, err
		}
		*dst = append(*dst, v)
		return n, nil
	case protowire.BytesType:
		packed, n, err := consumeBytes(typ, b)
		if err != nil {
			return 0, err
		}
		if len(packed)%8 != 0 {
			return 0, errors.New("otlpwire: truncated packed doubles")
		}
		for len(packed) > 0 {
			v, m := protowire.ConsumeFixed64(packed)
			if m < 0 {
				return 0, protowire.ParseError(m)
			}
			*dst = append(*dst, math.Float64frombits(v))
			packed = packed[m:]
		}
		return n, nil
	default:
		return 0, errWireType
	}
}

// Attributes and resources.

func (a *AttributeKeyValue) appendProto(b []byte) []byte {
	b = appendString(b, 1, a.Key)
	b = appendVarint(b, 2, uint64(int64(a.Type)))
	b = appendString(b, 3, a.StringValue)
	b = appendVarint(b, 4, uint64(a.IntValue))
	b = appendDouble(b, 5, a.DoubleValue)
	return appendBool(b, 6, a.BoolValue)
}

func (a *AttributeKeyValue) unmarshalProto(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInterned(typ, b, intern.Keys, &a.Key)
		case 2:
			v, n, err := consumeVarint(typ, b)
			a.Type = ValueType(int32(v))
			return n, err
		case 3:
			return consumeString(typ, b, &a.StringValue)
		case 4:
			v, n, err := consumeVarint(typ, b)
			a.IntValue = int64(v)
			return n, err
		case 5:
			return consumeDouble(typ, b, &a.DoubleValue)
		case 6:
			v, n, err := consumeVarint(typ, b)
			a.BoolValue = v != 0
			return n, err
		}
		return -1, nil
	})
}

func (kv *StringKeyValue) appendProto(b []byte) []byte {
	b = appendString(b, 1, kv.Key)
	return appendString(b, 2, kv.Value)
}

func (kv *StringKeyValue) unmarshalProto(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInterned(typ, b, intern.Keys, &kv.Key)
		case 2:
			return consumeString(typ, b, &kv.Value)
		}
		return -1, nil
	})
}

func (r *Resource) appendProto(b []byte) []byte {
	b = appendMessages(b, 1, r.Attributes)
	return appendVarint(b, 2, uint64(r.DroppedAttributesCount))
}

func (r *Resource) unmarshalProto(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInto(typ, b, &r.Attributes)
		case 2:
			return consumeUint32(typ, b, &r.DroppedAttributesCount)
		}
		return -1, nil
	})
}

func (l *InstrumentationLibrary) appendProto(b []byte) []byte {
	b = appendString(b, 1, l.Name)
	return appendString(b, 2, l.Version)
}

func (l *InstrumentationLibrary) unmarshalProto(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInterned(typ, b, intern.Names, &l.Name)
		case 2:
			return consumeString(typ, b, &l.Version)
		}
		return -1, nil
	})
}

// Traces.

func (s *Status) appendProto(b []byte) []byte {
	b = appendVarint(b, 1, uint64(int64(s.Code)))
	return appendString(b, 2, s.Message)
}

func (s *Status) unmarshalProto(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(typ, b)
			s.Code = StatusCode(int32(v))
			return n, err
		case 2:
			return consumeString(typ, b, &s.Message)
		}
		return -1, nil
	})
}

func (e *SpanEvent) appendProto(b []byte) []byte {
	b = appendFixed64(b, 1, e.TimeUnixNano)
	b = appendString(b, 2, e.Name)
	b = appendMessages(b, 3, e.Attributes)
	return appendVarint(b, 4, uint64(e.DroppedAttributesCount))
}

func (e *SpanEvent) unmarshalProto(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeTimestamp(typ, b, &e.TimeUnixNano)
		case 2:
			return consumeString(typ, b, &e.Name)
		case 3:
			return consumeInto(typ, b, &e.Attributes)
		case 4:
			return consumeUint32(typ, b, &e.DroppedAttributesCount)
		}
		return -1, nil
	})
}

func (l *SpanLink) appendProto(b []byte) []byte {
	b = appendBytes(b, 1, l.TraceID)
	b = appendBytes(b, 2, l.SpanID)
	b = appendString(b, 3, l.TraceState)
	b = appendMessages(b, 4, l.Attributes)
	return appendVarint(b, 5, uint64(l.DroppedAttributesCount))
}

func (l *SpanLink) unmarshalProto(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeID(typ, b, &l.TraceID)
		case 2:
			return consumeID(typ, b, &l.SpanID)
		case 3:
			return consumeString(typ, b, &l.TraceState)
		case 4:
			return consumeInto(typ, b, &l.Attributes)
		case 5:
			return consumeUint32(typ, b, &l.DroppedAttributesCount)
		}
		return -1, nil
	})
}

func (s *Span) appendProto(b []byte) []byte {
	b = appendBytes(b, 1, s.TraceID)
	b = appendBytes(b, 2, s.SpanID)
	b = appendString(b, 3, s.TraceState)
	b = appendBytes(b, 4, s.ParentSpanID)
	b = appendString(b, 5, s.Name)
	b = appendVarint(b, 6, uint64(int64(s.Kind)))
	b = appendFixed64(b, 7, s.StartTimeUnixNano)
	b = appendFixed64(b, 8, s.EndTimeUnixNano)
	b = appendMessages(b, 9, s.Attributes)
	b = appendVarint(b, 10, uint64(s.DroppedAttributesCount))
	b = appendMessages(b, 11, s.Events)
	b = appendVarint(b, 12, uint64(s.DroppedEventsCount))
	b = appendMessages(b, 13, s.Links)
	b = appendVarint(b, 14, uint64(s.DroppedLinksCount))
	if s.Status != nil {
		b = appendMessage(b, 15, s.Status)
	}
	return b
}

func (s *Span) unmarshalProto(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeID(typ, b, &s.TraceID)
		case 2:
			return consumeID(typ, b, &s.SpanID)
		case 3:
			return consumeString(typ, b, &s.TraceState)
		case 4:
			return consumeID(typ, b, &s.ParentSpanID)
		case 5:
			return consumeString(typ, b, &s.Name)
		case 6:
			v, n, err := consumeVarint(typ, b)
			s.Kind = SpanKind(int32(v))
			return n, err
		case 7:
			return consumeTimestamp(typ, b, &s.StartTimeUnixNano)
		case 8:
			return consumeTimestamp(typ, b, &s.EndTimeUnixNano)
		case 9:
			return consumeInto(typ, b, &s.Attributes)
		case 10:
			return consumeUint32(typ, b, &s.DroppedAttributesCount)
		case 11:
			return consumeInto(typ, b, &s.Events)
		case 12:
			return consumeUint32(typ, b, &s.DroppedEventsCount)
		case 13:
			return consumeInto(typ, b, &s.Links)
		case 14:
			return consumeUint32(typ, b, &s.DroppedLinksCount)
		case 15:
			st, n, err := consumeMessage[Status](typ, b)
			s.Status = st
			return n, err
		}
		return -1, nil
	})
}

func (ils *InstrumentationLibrarySpans) appendProto(b []byte) []byte {
	if ils.InstrumentationLibrary != nil {
		b = appendMessage(b, 1, ils.InstrumentationLibrary)
	}
	return appendMessages(b, 2, ils.Spans)
}

func (ils *InstrumentationLibrarySpans) unmarshalProto(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			lib, n, err := consumeMessage[InstrumentationLibrary](typ, b)
			ils.InstrumentationLibrary = lib
			return n, err
		case 2:
			return consumeInto(typ, b, &ils.Spans)
		}
		return -1, nil
	})
}

func (rs *ResourceSpans) appendProto(b []byte) []byte {
	if rs.Resource != nil {
		b = appendMessage(b, 1, rs.Resource)
	}
	return appendMessages(b, 2, rs.InstrumentationLibrarySpans)
}

func (rs *ResourceSpans) unmarshalProto(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			res, n, err := consumeMessage[Resource](typ, b)
			rs.Resource = res
			return n, err
		case 2:
			return consumeInto(typ, b, &rs.InstrumentationLibrarySpans)
		}
		return -1, nil
	})
}

// AppendProto implements Message.
func (r *ExportTraceServiceRequest) AppendProto(b []byte) []byte {
	return appendMessages(b, 1, r.ResourceSpans)
}

// UnmarshalProto implements Message.
func (r *ExportTraceServiceRequest) UnmarshalProto(b []byte) error {
	r.ResourceSpans = nil
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeInto(typ, b, &r.ResourceSpans)
		}
		return -1, nil
	})
}

// AppendProto implements Message.
func (r *ExportTraceServiceResponse) AppendProto(b []byte) []byte { return b }

// UnmarshalProto implements Message. Unknown fields are ignored.
func (r *ExportTraceServiceResponse) UnmarshalProto(b []byte) error {
	return walk(b, func(protowire.Number, protowire.Type, []byte) (int, error) { return -1, nil })
}

// Metrics.

func (d *MetricDescriptor) appendProto(b []byte) []byte {
	b = appendString(b, 1, d.Name)
	b = appendString(b, 2, d.Description)
	b = appendString(b, 3, d.Unit)
	b = appendVarint(b, 4, uint64(int64(d.Type)))
	return appendVarint(b, 5, uint64(int64(d.Temporality)))
}

func (d *MetricDescriptor) unmarshalProto(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInterned(typ, b, intern.Names, &d.Name)
		case 2:
			return consumeString(typ, b, &d.Description)
		case 3:
			return consumeString(typ, b, &d.Unit)
		case 4:
			v, n, err := consumeVarint(typ, b)
			d.Type = MetricType(int32(v))
			return n, err
		case 5:
			v, n, err := consumeVarint(typ, b)
			d.Temporality = Temporality(int32(v))
			return n, err
		}
		return -1, nil
	})
}

func (p *Int64DataPoint) appendProto(b []byte) []byte {
	b = appendMessages(b, 1, p.Labels)
	b = appendFixed64(b, 2, p.StartTimeUnixNano)
	b = appendFixed64(b, 3, p.TimeUnixNano)
	return appendVarint(b, 4, uint64(p.Value))
}

func (p *Int64DataPoint) unmarshalProto(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInto(typ, b, &p.Labels)
		case 2:
			return consumeTimestamp(typ, b, &p.StartTimeUnixNano)
		case 3:
			return consumeTimestamp(typ, b, &p.TimeUnixNano)
		case 4:
			v, n, err := consumeVarint(typ, b)
			p.Value = int64(v)
			return n, err
		}
		return -1, nil
	})
}

func (p *DoubleDataPoint) appendProto(b []byte) []byte {
	b = appendMessages(b, 1, p.Labels)
	b = appendFixed64(b, 2, p.StartTimeUnixNano)
	b = appendFixed64(b, 3, p.TimeUnixNano)
	return appendDouble(b, 4, p.Value)
}

func (p *DoubleDataPoint) unmarshalProto(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInto(typ, b, &p.Labels)
		case 2:
			return consumeTimestamp(typ, b, &p.StartTimeUnixNano)
		case 3:
			return consumeTimestamp(typ, b, &p.TimeUnixNano)
		case 4:
			return consumeDouble(typ, b, &p.Value)
		}
		return -1, nil
	})
}

func (hb *HistogramBucket) appendProto(b []byte) []byte {
	return appendVarint(b, 1, hb.Count)
}

func (hb *HistogramBucket) unmarshalProto(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeUint64(typ, b, &hb.Count)
		}
		return -1, nil
	})
}

func (p *HistogramDataPoint) appendProto(b []byte) []byte {
	b = appendMessages(b, 1, p.Labels)
	b = appendFixed64(b, 2, p.StartTimeUnixNano)
	b = appendFixed64(b, 3, p.TimeUnixNano)
	b = appendVarint(b, 4, p.Count)
	b = appendDouble(b, 5, p.Sum)
	b = appendMessages(b, 6, p.Buckets)
	return appendPackedDoubles(b, 7, p.ExplicitBounds)
}

func (p *HistogramDataPoint) unmarshalProto(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInto(typ, b, &p.Labels)
		case 2:
			return consumeTimestamp(typ, b, &p.StartTimeUnixNano)
		case 3:
			return consumeTimestamp(typ, b, &p.TimeUnixNano)
		case 4:
			return consumeUint64(typ, b, &p.Count)
		case 5:
			return consumeDouble(typ, b, &p.Sum)
		case 6:
			return consumeInto(typ, b, &p.Buckets)
		case 7:
			return consumeDoubles(typ, b, &p.ExplicitBounds)
		}
		return -1, nil
	})
}

func (v *ValueAtPercentile) appendProto(b []byte) []byte {
	b = appendDouble(b, 1, v.Percentile)
	return appendDouble(b, 2, v.Value)
}

func (v *ValueAtPercentile) unmarshalProto(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeDouble(typ, b, &v.Percentile)
		case 2:
			return consumeDouble(typ, b, &v.Value)
		}
		return -1, nil
	})
}

func (p *SummaryDataPoint) appendProto(b []byte) []byte {
	b = appendMessages(b, 1, p.Labels)
	b = appendFixed64(b, 2, p.StartTimeUnixNano)
	b = appendFixed64(b, 3, p.TimeUnixNano)
	b = appendVarint(b, 4, p.Count)
	b = appendDouble(b, 5, p.Sum)
	return appendMessages(b, 6, p.PercentileValues)
}

func (p *SummaryDataPoint) unmarshalProto(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInto(typ, b, &p.Labels)
		case 2:
			return consumeTimestamp(typ, b, &p.StartTimeUnixNano)
		case 3:
			return consumeTimestamp(typ, b, &p.TimeUnixNano)
		case 4:
			return consumeUint64(typ, b, &p.Count)
		case 5:
			return consumeDouble(typ, b, &p.Sum)
		case 6:
			return consumeInto(typ, b, &p.PercentileValues)
		}
		return -1, nil
	})
}

func (m *Metric) appendProto(b []byte) []byte {
	if m.MetricDescriptor != nil {
		b = appendMessage(b, 1, m.MetricDescriptor)
	}
	b = appendMessages(b, 2, m.Int64DataPoints)
	b = appendMessages(b, 3, m.DoubleDataPoints)
	b = appendMessages(b, 4, m.HistogramDataPoints)
	return appendMessages(b, 5, m.SummaryDataPoints)
}

func (m *Metric) unmarshalProto(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			d, n, err := consumeMessage[MetricDescriptor](typ, b)
			m.MetricDescriptor = d
			return n, err
		case 2:
			return consumeInto(typ, b, &m.Int64DataPoints)
		case 3:
			return consumeInto(typ, b, &m.DoubleDataPoints)
		case 4:
			return consumeInto(typ, b, &m.HistogramDataPoints)
		case 5:
			return consumeInto(typ, b, &m.SummaryDataPoints)
		}
		return -1, nil
	})
}

func (ilm *InstrumentationLibraryMetrics) appendProto(b []byte) []byte {
	if ilm.InstrumentationLibrary != nil {
		b = appendMessage(b, 1, ilm.InstrumentationLibrary)
	}
	return appendMessages(b, 2, ilm.Metrics)
}

func (ilm *InstrumentationLibraryMetrics) unmarshalProto(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			lib, n, err := consumeMessage[InstrumentationLibrary](typ, b)
			ilm.InstrumentationLibrary = lib
			return n, err
		case 2:
			return consumeInto(typ, b, &ilm.Metrics)
		}
		return -1, nil
	})
}

func (rm *ResourceMetrics) appendProto(b []byte) []byte {
	if rm.Resource != nil {
		b = appendMessage(b, 1, rm.Resource)
	}
	return appendMessages(b, 2, rm.InstrumentationLibraryMetrics)
}

func (rm *ResourceMetrics) unmarshalProto(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			res, n, err := consumeMessage[Resource](typ, b)
			rm.Resource = res
			return n, err
		case 2:
			return consumeInto(typ, b, &rm.InstrumentationLibraryMetrics)
		}
		return -1, nil
	})
}

// AppendProto implements Message.
func (r *ExportMetricsServiceRequest) AppendProto(b []byte) []byte {
	return appendMessages(b, 1, r.ResourceMetrics)
}

// UnmarshalProto implements Message.
func (r *ExportMetricsServiceRequest) UnmarshalProto(b []byte) error {
	r.ResourceMetrics = nil
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeInto(typ, b, &r.ResourceMetrics)
		}
		return -1, nil
	})
}

// AppendProto implements Message.
func (r *ExportMetricsServiceResponse) AppendProto(b []byte) []byte { return b }

// UnmarshalProto implements Message. Unknown fields are ignored.
func (r *ExportMetricsServiceResponse) UnmarshalProto(b []byte) error {
	return walk(b, func(protowire.Number, protowire.Type, []byte) (int, error) { return -1, nil })
}
