package telemetry

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/anoideaopen/devicereg/core/config"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const traceParent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

type transientStub struct {
	shim.ChaincodeStubInterface
	transient map[string][]byte
}

func (s transientStub) GetTransient() (map[string][]byte, error) {
	return s.transient, nil
}

func newHandler(tp trace.TracerProvider) *TracingHandler {
	return &TracingHandler{
		Tracer:      tp.Tracer("test"),
		Propagators: propagation.TraceContext{},
	}
}

func TestContextFromStub(t *testing.T) {
	th := newHandler(noop.NewTracerProvider())

	t.Run("no transient data", func(t *testing.T) {
		tc := th.ContextFromStub(transientStub{})
		require.False(t, tc.IsRemote())
		require.Equal(t, context.Background(), tc.Context())
		require.Empty(t, th.RemoteCarrier(tc))
	})

	t.Run("caller context", func(t *testing.T) {
		tc := th.ContextFromStub(transientStub{transient: map[string][]byte{"traceparent": []byte(traceParent)}})
		require.True(t, tc.IsRemote())

		sc := trace.SpanContextFromContext(tc.Context())
		require.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", sc.TraceID().String())

		require.Equal(t, traceParent, th.RemoteCarrier(tc).Get("traceparent"))
	})
}

func TestStartNewSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	th := newHandler(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))

	tc := th.ContextFromStub(transientStub{transient: map[string][]byte{"traceparent": []byte(traceParent)}})
	child, span := th.StartNewSpan(tc, "cc.Invoke")
	span.SetAttributes(MethodType(MethodQuery), DeviceID(7))
	span.End()

	require.True(t, child.IsRemote())

	ended := rec.Ended()
	require.Len(t, ended, 1)
	require.Equal(t, "cc.Invoke", ended[0].Name())
	require.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", ended[0].SpanContext().TraceID().String())
	require.Equal(t, "00f067aa0ba902b7", ended[0].Parent().SpanID().String())
	require.Contains(t, ended[0].Attributes(), MethodType(MethodQuery))
	require.Contains(t, ended[0].Attributes(), DeviceID(7))
}

func TestTransientMap(t *testing.T) {
	carrier := propagation.MapCarrier{"traceparent": traceParent, "baggage": "k=v"}
	require.Equal(t, carrier, UnpackTransientMap(PackToTransientMap(carrier)))
}

func TestMethodTypeString(t *testing.T) {
	require.Equal(t, "query", MethodQuery.String())
	require.Equal(t, "tx", MethodTx.String())
	require.Equal(t, "unknown", MethodUnknown.String())
}

func TestNewTraceProvider(t *testing.T) {
	tp, err := NewTraceProvider(nil, "chaincode-repairs")
	require.NoError(t, err)
	require.IsType(t, noop.TracerProvider{}, tp)

	tp, err = NewTraceProvider(&config.CollectorEndpoint{Endpoint: "localhost:4318"}, "chaincode-repairs")
	require.NoError(t, err)
	sdkTP, ok := tp.(*sdktrace.TracerProvider)
	require.True(t, ok)
	require.NoError(t, sdkTP.Shutdown(context.Background()))

	_, err = NewTraceProvider(&config.CollectorEndpoint{Endpoint: "localhost:4318", TLSCA: "%%%"}, "chaincode-repairs")
	require.Error(t, err)
}

func TestGetTLSConfig(t *testing.T) {
	_, err := getTLSConfig("%%%")
	require.Error(t, err)

	_, err = getTLSConfig(base64.StdEncoding.EncodeToString([]byte("not a pem")))
	require.ErrorIs(t, err, ErrNoCACerts)

	cfg, err := getTLSConfig(base64.StdEncoding.EncodeToString(selfSignedPEM(t)))
	require.NoError(t, err)
	require.NotNil(t, cfg.RootCAs)
}

func selfSignedPEM(t *testing.T) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "collector-ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}
