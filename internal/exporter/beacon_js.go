//go:build js && wasm

package exporter

import (
	"net/http"
	"syscall/js"
)

// platformBeacon returns navigator.sendBeacon, or nil outside a browser.
func platformBeacon(_ int, _ *http.Client) Beacon {
	nav := js.Global().Get("navigator")
	if nav.IsUndefined() || nav.IsNull() || nav.Get("sendBeacon").Type() != js.TypeFunction {
		return nil
	}
	return navigatorBeacon{nav: nav}
}

type navigatorBeacon struct {
	nav js.Value
}

func (b navigatorBeacon) Send(url, contentType string, body []byte) bool {
	arr := js.Global().Get("Uint8Array").New(len(body))
	js.CopyBytesToJS(arr, body)
	blob := js.Global().Get("Blob").New([]any{arr}, map[string]any{"type": contentType})
	return b.nav.Call("sendBeacon", url, blob).Bool()
}
