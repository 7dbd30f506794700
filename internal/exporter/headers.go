package exporter

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// EnvHeaders is the environment variable holding the bulk header string.
const EnvHeaders = "OTEL_EXPORTER_OTLP_HEADERS"

// ParseHeaders parses a "k1=v1,k2=v2" header string. Values are URL
// decoded. Malformed entries are skipped and reported in the returned error;
// the well-formed ones are still returned.
func ParseHeaders(s string) (map[string]string, error) {
	out := make(map[string]string)
	var errs []error
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		k, v, ok := strings.Cut(entry, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			errs = append(errs, fmt.Errorf("malformed header entry %q", entry))
			continue
		}
		dv, err := url.PathUnescape(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("header %q: %w", k, err))
			continue
		}
		out[k] = dv
	}
	return out, errors.Join(errs...)
}

// overlayHeaders merges header layers in increasing priority: the
// defaults, then the environment string, then the configured headers.
func overlayHeaders(contentType string, env, configured map[string]string) http.Header {
	h := make(http.Header)
	h.Set("X-Opentelemetry-Outgoing-Request", "1")
	h.Set("Accept", "application/json")
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	for k, v := range env {
		h.Set(k, v)
	}
	for k, v := range configured {
		h.Set(k, v)
	}
	return h
}
