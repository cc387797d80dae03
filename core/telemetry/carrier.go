package telemetry

import (
	"go.opentelemetry.io/otel/propagation"
)

// PackToTransientMap copies the carrier into a transient map so that a
// client can hand its trace context to the chaincode.
func PackToTransientMap(traceCarrier propagation.MapCarrier) map[string][]byte {
	transientMap := make(map[string][]byte, len(traceCarrier))
	for _, k := range traceCarrier.Keys() {
		transientMap[k] = []byte(traceCarrier.Get(k))
	}

	return transientMap
}

// UnpackTransientMap unpacks transient map into carrier
func UnpackTransientMap(transientMap map[string][]byte) propagation.MapCarrier {
	traceCarrier := propagation.MapCarrier{}
	for k, v := range transientMap {
		traceCarrier.Set(k, string(v))
	}

	return traceCarrier
}
