package exporter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/szibis/otlp-shipper/internal/otlpwire"
)

// Signal is the kind of telemetry an exporter ships.
type Signal string

const (
	SignalTraces  Signal = "traces"
	SignalMetrics Signal = "metrics"
)

// Path returns the default HTTP path for the signal.
func (s Signal) Path() string {
	return "/v1/" + string(s)
}

// Encoding is the representation a transport sends.
type Encoding int

const (
	// EncodingJSON is the camelCase JSON mapping.
	EncodingJSON Encoding = iota
	// EncodingProtobuf is the protobuf binary encoding.
	EncodingProtobuf
	// EncodingNative hands the request struct to the gRPC codec.
	EncodingNative
)

func (e Encoding) String() string {
	switch e {
	case EncodingJSON:
		return "json"
	case EncodingProtobuf:
		return "protobuf"
	case EncodingNative:
		return "native"
	default:
		return "unknown"
	}
}

// ContentType returns the HTTP content type of the encoding.
func (e Encoding) ContentType() string {
	switch e {
	case EncodingJSON:
		return "application/json"
	case EncodingProtobuf:
		return "application/x-protobuf"
	default:
		return ""
	}
}

// Guarantee is the strongest delivery statement a transport can make.
type Guarantee int

const (
	// GuaranteeDelivery: success means the collector answered 2xx/OK.
	GuaranteeDelivery Guarantee = iota
	// GuaranteeSubmission: success only means the payload was queued for
	// sending; eventual delivery is never observed.
	GuaranteeSubmission
)

func (g Guarantee) String() string {
	if g == GuaranteeSubmission {
		return "submission"
	}
	return "delivery"
}

// WireMessage is an encoded export request ready for a transport.
type WireMessage struct {
	Signal      Signal
	Encoding    Encoding
	ContentType string
	// Body holds the serialized request for JSON and protobuf.
	Body []byte
	// Request is the request struct; the gRPC transport sends it directly.
	Request otlpwire.Message
	// Records is the number of records the message carries.
	Records int
}

// Encode serializes req for the given encoding.
func Encode(signal Signal, req otlpwire.Message, enc Encoding) (*WireMessage, error) {
	msg := &WireMessage{
		Signal:      signal,
		Encoding:    enc,
		ContentType: enc.ContentType(),
		Request:     req,
	}
	switch enc {
	case EncodingJSON:
		body, err := json.Marshal(req)
		if err != nil {
			return nil, encodingError(err)
		}
		msg.Body = body
	case EncodingProtobuf:
		msg.Body = otlpwire.MarshalProto(req)
	case EncodingNative:
	default:
		return nil, encodingError(fmt.Errorf("unknown encoding %d", enc))
	}
	return msg, nil
}

// Transport delivers encoded messages. Send never blocks on the network:
// done is invoked exactly once, possibly from another goroutine, with nil or
// an *ExportError.
type Transport interface {
	Send(msg *WireMessage, done func(error))
	// Ready reports whether sends go straight to the network.
	Ready() bool
	// Guarantee reports what a successful send proves.
	Guarantee() Guarantee
	// Shutdown stops accepting sends, settles queued and in-flight ones
	// (bounded by ctx) and releases connections.
	Shutdown(ctx context.Context) error
}
