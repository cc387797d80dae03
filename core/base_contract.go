package core

import (
	"fmt"
	"runtime/debug"

	"github.com/anoideaopen/devicereg/core/config"
	"github.com/anoideaopen/devicereg/core/contract"
	"github.com/anoideaopen/devicereg/core/telemetry"
	"github.com/anoideaopen/devicereg/version"
	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// BaseContract is a base contract for all contracts
type BaseContract struct {
	stub           shim.ChaincodeStubInterface
	config         *config.ContractConfig
	traceCtx       telemetry.TraceContext
	tracingHandler *telemetry.TracingHandler
}

var _ BaseContractInterface = &BaseContract{}

// GetStub returns stub
func (bc *BaseContract) GetStub() shim.ChaincodeStubInterface {
	return bc.stub
}

func (bc *BaseContract) SetStub(stub shim.ChaincodeStubInterface) {
	bc.stub = stub
}

// TransactionTime returns the transaction timestamp in unix seconds. It is the
// logical clock of the contract: every peer endorsing the transaction
// sees the same value.
func (bc *BaseContract) TransactionTime() (int64, error) {
	ts, err := bc.stub.GetTxTimestamp()
	if err != nil {
		return 0, fmt.Errorf("getting tx timestamp: %w", err)
	}

	return ts.GetSeconds(), nil
}

// QueryBuildInfo returns debug.BuildInfo struct with build information, stored in binary file or error if it is occurs
func (bc *BaseContract) QueryBuildInfo() (*debug.BuildInfo, error) {
	return version.BuildInfo()
}

// QueryCoreChaincodeIDName returns CORE_CHAINCODE_ID_NAME
func (bc *BaseContract) QueryCoreChaincodeIDName() (string, error) {
	return version.CoreChaincodeIDName(), nil
}

func (bc *BaseContract) ID() string {
	return bc.config.GetName()
}

func (bc *BaseContract) ValidateConfig(cfg []byte) error {
	return config.Validate(cfg)
}

func (bc *BaseContract) ApplyContractConfig(cfg *config.ContractConfig) error {
	bc.config = cfg

	return nil
}

func (bc *BaseContract) ContractConfig() *config.ContractConfig {
	return bc.config
}

// setTraceContext sets context for telemetry. For call methods only
func (bc *BaseContract) setTraceContext(traceCtx telemetry.TraceContext) {
	bc.traceCtx = traceCtx
}

// GetTraceContext returns trace context. Using for call methods only
func (bc *BaseContract) GetTraceContext() telemetry.TraceContext {
	return bc.traceCtx
}

// TracingHandler returns base contract tracingHandler
func (bc *BaseContract) TracingHandler() *telemetry.TracingHandler {
	if bc.tracingHandler == nil {
		serviceName := "chaincode-" + bc.ID()
		telemetry.InstallTraceProvider(bc.ContractConfig().GetTracingCollectorEndpoint(), serviceName)
		bc.tracingHandler = telemetry.NewTracingHandler()
	}

	return bc.tracingHandler
}

// BaseContractInterface represents BaseContract interface
type BaseContractInterface interface {
	contract.Base

	setTraceContext(traceCtx telemetry.TraceContext)
	GetTraceContext() telemetry.TraceContext

	TracingHandler() *telemetry.TracingHandler
}
