// Package grouping partitions telemetry records by resource and
// instrumentation scope before they are encoded.
package grouping

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/instrumentation"
	"go.opentelemetry.io/otel/sdk/resource"
)

// KeyFunc returns the resource and scope a record belongs to.
type KeyFunc[R any] func(R) (*resource.Resource, instrumentation.Scope)

// ScopeGroup holds the records of one instrumentation scope in input order.
type ScopeGroup[R any] struct {
	Scope   instrumentation.Scope
	Records []R
}

// ResourceGroup holds the scope groups of one resource in first-seen order.
type ResourceGroup[R any] struct {
	Resource *resource.Resource
	Scopes   []ScopeGroup[R]
}

// Batch is a grouped set of records.
type Batch[R any] struct {
	Resources []ResourceGroup[R]
}

// scopeKey is the comparable identity of an instrumentation.Scope.
type scopeKey struct {
	name      string
	version   string
	schemaURL string
	attrs     attribute.Distinct
}

func keyOfScope(s instrumentation.Scope) scopeKey {
	return scopeKey{
		name:      s.Name,
		version:   s.Version,
		schemaURL: s.SchemaURL,
		attrs:     s.Attributes.Equivalent(),
	}
}

// Group partitions records by resource and then by scope. Resources are
// compared by pointer identity, scopes by value. Groups are ordered by the
// first record that introduced them and each group keeps the relative order
// of its records, so the result is a pure function of the input order.
func Group[R any](records []R, keyOf KeyFunc[R]) Batch[R] {
	var b Batch[R]
	if len(records) == 0 {
		return b
	}

	resIdx := make(map[*resource.Resource]int)
	scopeIdx := make([]map[scopeKey]int, 0, 1)

	for _, rec := range records {
		res, scope := keyOf(rec)

		ri, ok := resIdx[res]
		if !ok {
			ri = len(b.Resources)
			resIdx[res] = ri
			b.Resources = append(b.Resources, ResourceGroup[R]{Resource: res})
			scopeIdx = append(scopeIdx, make(map[scopeKey]int))
		}

		rg := &b.Resources[ri]
		sk := keyOfScope(scope)
		si, ok := scopeIdx[ri][sk]
		if !ok {
			si = len(rg.Scopes)
			scopeIdx[ri][sk] = si
			rg.Scopes = append(rg.Scopes, ScopeGroup[R]{Scope: scope})
		}
		rg.Scopes[si].Records = append(rg.Scopes[si].Records, rec)
	}
	return b
}

// Len returns the number of records in the batch.
func (b Batch[R]) Len() int {
	n := 0
	for _, rg := range b.Resources {
		for _, sg := range rg.Scopes {
			n += len(sg.Records)
		}
	}
	return n
}

// Flatten returns the records resource-major, scope-major. Grouping the
// result with the same key function yields an identical batch.
func (b Batch[R]) Flatten() []R {
	out := make([]R, 0, b.Len())
	for _, rg := range b.Resources {
		for _, sg := range rg.Scopes {
			out = append(out, sg.Records...)
		}
	}
	return out
}
