package core

import (
	"github.com/anoideaopen/devicereg/core/contract"
	"github.com/anoideaopen/devicereg/core/telemetry"
	"go.opentelemetry.io/otel/codes"
)

// InvokeContractMethod calls the contract method through the router and
// returns its JSON encoded result. The args must already carry the sender
// for methods requiring auth.
func (cc *Chaincode) InvokeContractMethod(
	traceCtx telemetry.TraceContext,
	bci BaseContractInterface,
	method contract.Method,
	args []string,
) ([]byte, error) {
	traceCtx, span := bci.TracingHandler().StartNewSpan(traceCtx, "chaincode.CallMethod")
	defer span.End()

	bci.setTraceContext(traceCtx)

	span.AddEvent("call")
	result, err := cc.router.Invoke(bci, method.MethodName, args...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return result, nil
}
