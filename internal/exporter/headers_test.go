package exporter

import (
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// httpHandlerFunc adapts a hook run before replying 200.
func httpHandlerFunc(hook func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hook()
		w.WriteHeader(http.StatusOK)
	}
}

func TestParseHeaders(t *testing.T) {
	got, err := ParseHeaders("api-key=abc%20def, x-tenant = team-a ,,empty=")
	if err != nil {
		t.Fatalf("ParseHeaders: %v", err)
	}
	want := map[string]string{"api-key": "abc def", "x-tenant": "team-a", "empty": ""}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseHeaders_Malformed(t *testing.T) {
	got, err := ParseHeaders("good=1,novalue,=nokey,bad=%zz")
	if err == nil {
		t.Fatal("expected error for malformed entries")
	}
	if diff := cmp.Diff(map[string]string{"good": "1"}, got); diff != "" {
		t.Errorf("well-formed entries lost (-want +got):\n%s", diff)
	}
}

func TestOverlayHeaders(t *testing.T) {
	env := map[string]string{"Content-Type": "text/plain", "X-Team": "env", "X-Env": "1"}
	configured := map[string]string{"X-Team": "configured"}
	h := overlayHeaders("application/json", env, configured)

	want := map[string]string{
		"X-Opentelemetry-Outgoing-Request": "1",
		"Accept":                           "application/json",
		"Content-Type":                     "text/plain",
		"X-Team":                           "configured",
		"X-Env":                            "1",
	}
	for k, v := range want {
		if got := h.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}
