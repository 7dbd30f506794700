package grouping

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/instrumentation"
	"go.opentelemetry.io/otel/sdk/resource"
)

type record struct {
	id    int
	res   *resource.Resource
	scope instrumentation.Scope
}

func keyOf(r record) (*resource.Resource, instrumentation.Scope) { return r.res, r.scope }

func ids(recs []record) []int {
	out := make([]int, len(recs))
	for i, r := range recs {
		out[i] = r.id
	}
	return out
}

// shape reduces a batch to record ids per scope name for comparison.
func shape(b Batch[record]) [][][]int {
	var out [][][]int
	for _, rg := range b.Resources {
		var scopes [][]int
		for _, sg := range rg.Scopes {
			scopes = append(scopes, ids(sg.Records))
		}
		out = append(out, scopes)
	}
	return out
}

func TestGroupEmpty(t *testing.T) {
	b := Group[record](nil, keyOf)
	if len(b.Resources) != 0 || b.Len() != 0 {
		t.Fatalf("expected empty batch, got %+v", b)
	}
	if len(b.Flatten()) != 0 {
		t.Error("Flatten of empty batch not empty")
	}
}

func TestGroupFirstSeenOrder(t *testing.T) {
	r1 := resource.NewSchemaless(attribute.String("service.name", "a"))
	r2 := resource.NewSchemaless(attribute.String("service.name", "b"))
	http := instrumentation.Scope{Name: "http", Version: "1"}
	db := instrumentation.Scope{Name: "db"}

	recs := []record{
		{1, r2, db},
		{2, r1, http},
		{3, r2, http},
		{4, r2, db},
		{5, r1, http},
	}
	b := Group(recs, keyOf)

	want := [][][]int{
		{{1, 4}, {3}},
		{{2, 5}},
	}
	if diff := cmp.Diff(want, shape(b)); diff != "" {
		t.Errorf("grouping mismatch (-want +got):\n%s", diff)
	}
	if b.Resources[0].Resource != r2 || b.Resources[1].Resource != r1 {
		t.Error("resource groups out of first-seen order")
	}
	if b.Resources[0].Scopes[0].Scope.Name != "db" {
		t.Errorf("first scope = %q, want db", b.Resources[0].Scopes[0].Scope.Name)
	}
	if b.Len() != len(recs) {
		t.Errorf("Len = %d, want %d", b.Len(), len(recs))
	}
}

func TestGroupResourceIdentity(t *testing.T) {
	// Equal attributes but distinct pointers are distinct resources.
	r1 := resource.NewSchemaless(attribute.String("service.name", "a"))
	r2 := resource.NewSchemaless(attribute.String("service.name", "a"))
	s := instrumentation.Scope{Name: "x"}

	b := Group([]record{{1, r1, s}, {2, r2, s}, {3, r1, s}}, keyOf)
	if len(b.Resources) != 2 {
		t.Fatalf("got %d resource groups, want 2", len(b.Resources))
	}
}

func TestGroupScopeAttributes(t *testing.T) {
	r := resource.Empty()
	s1 := instrumentation.Scope{Name: "x", Attributes: attribute.NewSet(attribute.String("k", "1"))}
	s2 := instrumentation.Scope{Name: "x", Attributes: attribute.NewSet(attribute.String("k", "2"))}
	s1again := instrumentation.Scope{Name: "x", Attributes: attribute.NewSet(attribute.String("k", "1"))}

	b := Group([]record{{1, r, s1}, {2, r, s2}, {3, r, s1again}}, keyOf)
	if diff := cmp.Diff([][][]int{{{1, 3}, {2}}}, shape(b)); diff != "" {
		t.Errorf("grouping mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupIdempotent(t *testing.T) {
	r1 := resource.NewSchemaless(attribute.String("service.name", "a"))
	r2 := resource.NewSchemaless(attribute.String("service.name", "b"))
	scopes := []instrumentation.Scope{{Name: "a"}, {Name: "b", Version: "2"}, {Name: "c", SchemaURL: "https://x"}}

	var recs []record
	for i := 0; i < 30; i++ {
		res := r1
		if i%3 == 0 {
			res = r2
		}
		recs = append(recs, record{id: i, res: res, scope: scopes[(i*7)%len(scopes)]})
	}

	first := Group(recs, keyOf)
	second := Group(first.Flatten(), keyOf)
	if diff := cmp.Diff(shape(first), shape(second)); diff != "" {
		t.Errorf("regrouping changed the batch (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(ids(first.Flatten()), ids(second.Flatten())); diff != "" {
		t.Errorf("flatten not stable (-first +second):\n%s", diff)
	}
}
