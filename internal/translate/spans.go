package translate

import (
	"fmt"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/instrumentation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/szibis/otlp-shipper/internal/grouping"
	"github.com/szibis/otlp-shipper/internal/otlpwire"
)

// SpanKey is the grouping key function for spans.
func SpanKey(s sdktrace.ReadOnlySpan) (*resource.Resource, instrumentation.Scope) {
	return s.Resource(), s.InstrumentationScope()
}

// Spans builds a trace export request from a grouped batch. Any
// unsupported attribute fails the whole batch.
func Spans(batch grouping.Batch[sdktrace.ReadOnlySpan]) (*otlpwire.ExportTraceServiceRequest, error) {
	req := &otlpwire.ExportTraceServiceRequest{
		ResourceSpans: make([]*otlpwire.ResourceSpans, 0, len(batch.Resources)),
	}
	for _, rg := range batch.Resources {
		res, err := Resource(rg.Resource)
		if err != nil {
			return nil, err
		}
		rs := &otlpwire.ResourceSpans{
			Resource:                    res,
			InstrumentationLibrarySpans: make([]*otlpwire.InstrumentationLibrarySpans, 0, len(rg.Scopes)),
		}
		for _, sg := range rg.Scopes {
			ils := &otlpwire.InstrumentationLibrarySpans{
				InstrumentationLibrary: Library(sg.Scope),
				Spans:                  make([]*otlpwire.Span, 0, len(sg.Records)),
			}
			for _, s := range sg.Records {
				span, err := Span(s)
				if err != nil {
					return nil, err
				}
				ils.Spans = append(ils.Spans, span)
			}
			rs.InstrumentationLibrarySpans = append(rs.InstrumentationLibrarySpans, ils)
		}
		req.ResourceSpans = append(req.ResourceSpans, rs)
	}
	return req, nil
}

// Span converts a single span.
func Span(s sdktrace.ReadOnlySpan) (*otlpwire.Span, error) {
	sc := s.SpanContext()
	tid := sc.TraceID()
	sid := sc.SpanID()

	out := &otlpwire.Span{
		TraceID:                tid[:],
		SpanID:                 sid[:],
		TraceState:             sc.TraceState().String(),
		Name:                   s.Name(),
		Kind:                   otlpwire.SpanKind(s.SpanKind()),
		StartTimeUnixNano:      unixNano(s.StartTime()),
		EndTimeUnixNano:        unixNano(s.EndTime()),
		DroppedAttributesCount: uint32(s.DroppedAttributes()),
		DroppedEventsCount:     uint32(s.DroppedEvents()),
		DroppedLinksCount:      uint32(s.DroppedLinks()),
		Status:                 status(s.Status()),
	}
	if parent := s.Parent(); parent.HasSpanID() {
		psid := parent.SpanID()
		out.ParentSpanID = psid[:]
	}

	var err error
	if out.Attributes, err = Attributes(s.Attributes()); err != nil {
		return nil, fmt.Errorf("span %q: %w", s.Name(), err)
	}
	for _, ev := range s.Events() {
		attrs, err := Attributes(ev.Attributes)
		if err != nil {
			return nil, fmt.Errorf("span %q event %q: %w", s.Name(), ev.Name, err)
		}
		out.Events = append(out.Events, &otlpwire.SpanEvent{
			TimeUnixNano:           unixNano(ev.Time),
			Name:                   ev.Name,
			Attributes:             attrs,
			DroppedAttributesCount: uint32(ev.DroppedAttributeCount),
		})
	}
	for _, l := range s.Links() {
		attrs, err := Attributes(l.Attributes)
		if err != nil {
			return nil, fmt.Errorf("span %q link: %w", s.Name(), err)
		}
		ltid := l.SpanContext.TraceID()
		lsid := l.SpanContext.SpanID()
		out.Links = append(out.Links, &otlpwire.SpanLink{
			TraceID:                ltid[:],
			SpanID:                 lsid[:],
			TraceState:             l.SpanContext.TraceState().String(),
			Attributes:             attrs,
			DroppedAttributesCount: uint32(l.DroppedAttributeCount),
		})
	}
	return out, nil
}

// status maps Unset and Ok to Ok, Error to UnknownError.
func status(st sdktrace.Status) *otlpwire.Status {
	out := &otlpwire.Status{Code: otlpwire.StatusCodeOk}
	if st.Code == codes.Error {
		out.Code = otlpwire.StatusCodeUnknownError
		out.Message = st.Description
	}
	return out
}
