package telemetry

import "go.opentelemetry.io/otel/attribute"

type MethodTypeNum int

func (t MethodTypeNum) String() string {
	switch t {
	case MethodQuery:
		return "query"
	case MethodTx:
		return "tx"
	case MethodUnknown:
		fallthrough
	default:
		return "unknown"
	}
}

const (
	MethodUnknown MethodTypeNum = iota
	MethodQuery
	MethodTx
)

func MethodType(t MethodTypeNum) attribute.KeyValue {
	return attribute.String("method_type", t.String())
}

// DeviceID tags a span with the device it touches.
func DeviceID(id uint64) attribute.KeyValue {
	return attribute.Int64("device_id", int64(id))
}

// Sender tags a span with the caller address.
func Sender(addr string) attribute.KeyValue {
	return attribute.String("sender", addr)
}
