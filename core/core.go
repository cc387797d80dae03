// Package core runs contracts as Hyperledger Fabric chaincode: it routes
// peer calls to contract methods, resolves the caller and maps contract
// errors to peer responses.
package core

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/anoideaopen/devicereg/core/cachestub"
	"github.com/anoideaopen/devicereg/core/config"
	"github.com/anoideaopen/devicereg/core/contract"
	"github.com/anoideaopen/devicereg/core/logger"
	"github.com/anoideaopen/devicereg/core/reflectx"
	"github.com/anoideaopen/devicereg/core/telemetry"
	"github.com/anoideaopen/devicereg/hlfcreator"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/peer"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/keepalive"
)

const (
	// chaincodeExecModeEnv is the environment variable that specifies the execution mode of the chaincode.
	chaincodeExecModeEnv = "CHAINCODE_EXEC_MODE"
	// chaincodeExecModeServer is the value that, when set for the CHAINCODE_EXEC_MODE environment variable,
	// indicates that the chaincode is running in server mode.
	chaincodeExecModeServer = "server"
	// chaincodeCcIDEnv is the environment variable that holds the chaincode ID.
	chaincodeCcIDEnv = "CHAINCODE_ID"

	// chaincodeServerDefaultPort is the default port on which the chaincode server listens if no other port is specified.
	chaincodeServerDefaultPort = "9999"
	// chaincodeServerPortEnv is the environment variable that specifies the port on which the chaincode server listens.
	chaincodeServerPortEnv = "CHAINCODE_SERVER_PORT"
	// chaincodeKeepaliveEnv holds the interval, as a Go duration, after which
	// the server pings an idle peer connection.
	chaincodeKeepaliveEnv = "CHAINCODE_SERVER_KEEPALIVE"
	// keepaliveTimeout is how long the server waits for a ping ack.
	keepaliveTimeout = 20 * time.Second

	tlsKeyFileEnv           = "CHAINCODE_TLS_KEY_FILE"
	tlsCertFileEnv          = "CHAINCODE_TLS_CERT_FILE"
	tlsClientCACertsFileEnv = "CHAINCODE_TLS_CLIENT_CA_CERTS_FILE"

	tlsKeyEnv           = "CHAINCODE_TLS_KEY"
	tlsCertEnv          = "CHAINCODE_TLS_CERT"
	tlsClientCACertsEnv = "CHAINCODE_TLS_CLIENT_CA_CERTS"
)

// defaultConfig is stored when Init is called without arguments.
const defaultConfig = `{"contract":{}}`

var (
	ErrMethodNotFound = errors.New("method not found")
	ErrInitArgs       = errors.New("init expects a single JSON config argument or none")
	ErrNoChaincodeID  = errors.New("need to specify chaincode id if running as server")
)

// ChaincodeOption represents a function that applies configuration options to
// a chaincodeOptions object.
type ChaincodeOption func(opts *chaincodeOptions) error

// TLS holds the key and certificate data for TLS communication, as well as
// client CA certificates for peer verification if needed.
type TLS struct {
	Key           []byte // Private key for TLS authentication.
	Cert          []byte // Public certificate for TLS authentication.
	ClientCACerts []byte // Optional client CA certificates for verifying connecting peers.
}

type chaincodeOptions struct {
	TLS       *TLS
	Keepalive *keepalive.ServerParameters
}

// Chaincode routes peer calls to a contract.
//
// The contract passed to NewCC is a prototype: every invocation works on a
// shallow copy of it, bound to that invocation's stub and configuration.
type Chaincode struct {
	contract  BaseContractInterface
	tls       shim.TLSProperties
	keepalive *keepalive.ServerParameters
	router    contract.Router
}

// WithTLS is a ChaincodeOption that specifies the TLS configuration for the ChainCode.
func WithTLS(tls *TLS) ChaincodeOption {
	return func(o *chaincodeOptions) error {
		o.TLS = tls
		return nil
	}
}

// WithKeepalive makes the chaincode server ping idle peer connections every
// interval. It overrides CHAINCODE_SERVER_KEEPALIVE.
func WithKeepalive(interval time.Duration) ChaincodeOption {
	return func(o *chaincodeOptions) error {
		if interval <= 0 {
			return fmt.Errorf("keepalive interval must be positive, got %s", interval)
		}
		o.Keepalive = &keepalive.ServerParameters{
			Time:    interval,
			Timeout: keepaliveTimeout,
		}
		return nil
	}
}

// WithTLSFromFiles returns a ChaincodeOption that reads the TLS key pair and
// the optional client CA bundle from files.
//
// Example:
//
//	tlsOpt, err := core.WithTLSFromFiles("tls/key.pem", "tls/cert.pem", "tls/ca.pem")
//	if err != nil {
//	    log.Fatalf("Error configuring TLS: %v", err)
//	}
//	cc, err := core.NewCC(device.NewContract(), tlsOpt)
func WithTLSFromFiles(keyPath, certPath, clientCACertPath string) (ChaincodeOption, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read TLS key: %w", err)
	}

	cert, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read TLS certificate: %w", err)
	}

	tls := &TLS{
		Key:  key,
		Cert: cert,
	}

	if clientCACertPath != "" {
		clientCACerts, err := os.ReadFile(clientCACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read client CA certificates: %w", err)
		}
		tls.ClientCACerts = clientCACerts
	}

	return WithTLS(tls), nil
}

// NewCC creates a chaincode for the contract.
//
// TLS is read from CHAINCODE_TLS_KEY, CHAINCODE_TLS_CERT and
// CHAINCODE_TLS_CLIENT_CA_CERTS (or their _FILE variants). TLS given through
// options overrides the environment. Without either, TLS stays disabled.
// Server mode keepalive is read from CHAINCODE_SERVER_KEEPALIVE.
//
// The contract methods are routed at this point, so a contract exposing two
// methods under the same function name is rejected here.
func NewCC(
	cc BaseContractInterface,
	chOptions ...ChaincodeOption,
) (*Chaincode, error) {
	tlsProps := shim.TLSProperties{
		Disabled: true,
	}

	key, cert, clientCACerts, err := readTLSConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("error reading TLS config from environment: %w", err)
	}

	if key != nil && cert != nil {
		tlsProps.Disabled = false
		tlsProps.Key = key
		tlsProps.Cert = cert
		tlsProps.ClientCACerts = clientCACerts
	}

	chOpts := chaincodeOptions{}
	if v := os.Getenv(chaincodeKeepaliveEnv); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", chaincodeKeepaliveEnv, err)
		}
		if err = WithKeepalive(interval)(&chOpts); err != nil {
			return nil, err
		}
	}

	for _, option := range chOptions {
		if option == nil {
			continue
		}
		if err = option(&chOpts); err != nil {
			return nil, fmt.Errorf("reading opts: %w", err)
		}
	}

	if chOpts.TLS != nil {
		tlsProps.Disabled = false
		tlsProps.Key = chOpts.TLS.Key
		tlsProps.Cert = chOpts.TLS.Cert
		tlsProps.ClientCACerts = chOpts.TLS.ClientCACerts
	}

	router, err := buildRouter(cc)
	if err != nil {
		return nil, fmt.Errorf("routing contract methods: %w", err)
	}

	return &Chaincode{
		contract:  cc,
		tls:       tlsProps,
		keepalive: chOpts.Keepalive,
		router:    router,
	}, nil
}

// Router returns the router built for the contract.
func (cc *Chaincode) Router() contract.Router {
	return cc.router
}

// Method resolves a chaincode function, taking the disabled functions of
// the applied configuration into account.
func (cc *Chaincode) Method(bci BaseContractInterface, functionName string) (contract.Method, error) {
	method, ok := cc.router.Methods()[functionName]
	if !ok || slices.Contains(bci.ContractConfig().GetOptions().GetDisabledFunctions(), functionName) {
		return contract.Method{}, fmt.Errorf("%w: '%s'", ErrMethodNotFound, functionName)
	}

	return method, nil
}

// Init is called during chaincode instantiation and upgrade. Only an admin
// may call it. The single argument is the JSON configuration, no argument
// stores the defaults.
func (cc *Chaincode) Init(stub shim.ChaincodeStubInterface) peer.Response {
	creator, err := stub.GetCreator()
	if err != nil {
		return shim.Error("init: getting creator of transaction: " + err.Error())
	}
	if err = hlfcreator.ValidateAdminCreator(creator); err != nil {
		return shim.Error("init: validating admin creator: " + err.Error())
	}

	args := stub.GetStringArgs()

	var cfgBytes []byte
	switch {
	case len(args) == 0:
		cfgBytes = []byte(defaultConfig)
	case config.IsJSON(args):
		cfgBytes = []byte(args[0])
	default:
		return shim.Error(fmt.Sprintf("init: %s, got %d", ErrInitArgs, len(args)))
	}

	if err = contract.ValidateConfig(cc.contract, cfgBytes); err != nil {
		return shim.Error("init: validating config: " + err.Error())
	}

	if err = config.Save(stub, cfgBytes); err != nil {
		return shim.Error("init: saving config: " + err.Error())
	}

	logger.Logger().Infof("init: config saved, tx %s", stub.GetTxID())

	return shim.Success(nil)
}

// Invoke is called to update or query the ledger in a proposal transaction.
func (cc *Chaincode) Invoke(stub shim.ChaincodeStubInterface) (r peer.Response) {
	r = shim.Error("panic invoke")
	defer func() {
		if rc := recover(); rc != nil {
			logger.Logger().Errorf("panic invoke\nrc: %v\nstack: %s\n", rc, debug.Stack())
		}
	}()

	start := time.Now()

	cfgBytes, err := config.Load(stub)
	if err != nil {
		return shim.Error("invoke: loading raw config: " + err.Error())
	}

	bci, ok := reflectx.Clone(cc.contract).(BaseContractInterface)
	if !ok {
		return shim.Error("invoke: contract must be a pointer")
	}

	if err = contract.Configure(bci, stub, cfgBytes); err != nil {
		return shim.Error("applying configuration: " + err.Error())
	}

	traceCtx := bci.TracingHandler().ContextFromStub(stub)
	traceCtx, span := bci.TracingHandler().StartNewSpan(traceCtx, "cc.Invoke")

	transactionID := stub.GetTxID()
	functionName, arguments := stub.GetFunctionAndParameters()

	span.SetAttributes(
		attribute.String("channel", stub.GetChannelID()),
		attribute.String("tx_id", transactionID),
		attribute.String("method", functionName),
	)

	defer func() {
		logger.Logger().Debugf("invoke: tx %s, function %s, status %d, elapsed %d ms",
			transactionID,
			functionName,
			r.GetStatus(),
			time.Since(start).Milliseconds(),
		)
		span.End()
	}()

	span.AddEvent("validating transaction ID")
	if err = cc.ValidateTxID(stub); err != nil {
		errMsg := "invoke: validating transaction ID: " + err.Error()
		span.SetStatus(codes.Error, errMsg)
		return shim.Error(errMsg)
	}

	method, err := cc.Method(bci, functionName)
	if err != nil {
		errMsg := "invoke: finding method: " + err.Error()
		span.SetStatus(codes.Error, errMsg)
		return shim.Error(errMsg)
	}

	if method.Type == contract.MethodTypeQuery {
		span.SetAttributes(telemetry.MethodType(telemetry.MethodQuery))
		qs := newQueryStub(stub)
		bci.SetStub(qs)

		resp := cc.handle(traceCtx, bci, qs, method, arguments)
		if dropped := qs.Dropped(); len(dropped) > 0 {
			span.AddEvent("dropped query writes", trace.WithAttributes(attribute.StringSlice("writes", dropped)))
			logger.Logger().Warnf("query %s attempted %d writes, dropped: %s",
				functionName, len(dropped), strings.Join(dropped, ", "))
		}
		return resp
	}

	span.SetAttributes(telemetry.MethodType(telemetry.MethodTx))
	txStub := cachestub.NewTxCacheStub(stub)
	bci.SetStub(txStub)

	resp := cc.handle(traceCtx, bci, txStub, method, arguments)
	if resp.GetStatus() >= shim.ERRORTHRESHOLD {
		return resp
	}

	span.AddEvent("committing writes", trace.WithAttributes(attribute.Int("writes", txStub.Writes())))
	if err = txStub.Commit(); err != nil {
		errMsg := "invoke: committing writes: " + err.Error()
		span.SetStatus(codes.Error, errMsg)
		return shim.Error(errMsg)
	}

	return resp
}

func (cc *Chaincode) handle(
	traceCtx telemetry.TraceContext,
	bci BaseContractInterface,
	stub shim.ChaincodeStubInterface,
	method contract.Method,
	args []string,
) peer.Response {
	traceCtx, span := bci.TracingHandler().StartNewSpan(traceCtx, "chaincode.Handle")
	defer span.End()

	if method.RequiresAuth {
		span.AddEvent("resolving sender")
		sender, err := cc.sender(stub)
		if err != nil {
			span.SetStatus(codes.Error, "resolving sender failed")
			return shim.Error(err.Error())
		}
		span.SetAttributes(telemetry.Sender(sender))
		args = PrependSender(method, sender, args)
	}

	span.AddEvent("validating arguments")
	if err := cc.router.Check(method.MethodName, args...); err != nil {
		span.SetStatus(codes.Error, "validating arguments failed")
		return shim.Error(err.Error())
	}

	span.AddEvent("calling method")
	resp, err := cc.InvokeContractMethod(traceCtx, bci, method, args)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return errorResponse(err)
	}

	span.SetStatus(codes.Ok, "")
	return shim.Success(resp)
}

func (cc *Chaincode) sender(stub shim.ChaincodeStubInterface) (string, error) {
	creatorBytes, err := stub.GetCreator()
	if err != nil {
		return "", fmt.Errorf("invoke: failed to get creator of transaction: %w", err)
	}

	addr, err := hlfcreator.CreatorAddress(creatorBytes)
	if err != nil {
		return "", fmt.Errorf("invoke: validating creator: %w", err)
	}

	return addr.String(), nil
}

// ValidateTxID validates the transaction ID to ensure it is correctly formatted.
func (cc *Chaincode) ValidateTxID(stub shim.ChaincodeStubInterface) error {
	_, err := hex.DecodeString(stub.GetTxID())
	if err != nil {
		return fmt.Errorf("incorrect tx id: %w", err)
	}

	return nil
}

// Start begins the chaincode execution based on the environment configuration. It decides whether to
// start the chaincode in the default mode or as a server based on the CHAINCODE_EXEC_MODE environment
// variable. In server mode, it requires the CHAINCODE_ID to be set and uses CHAINCODE_SERVER_PORT for
// the port or defaults to a predefined port if not set.
func (cc *Chaincode) Start() error {
	execMode := os.Getenv(chaincodeExecModeEnv)
	if execMode != chaincodeExecModeServer {
		return shim.Start(cc)
	}

	var ccID string
	if ccID = os.Getenv(chaincodeCcIDEnv); ccID == "" {
		return ErrNoChaincodeID
	}

	port := os.Getenv(chaincodeServerPortEnv)
	if port == "" {
		port = chaincodeServerDefaultPort
	}

	srv := shim.ChaincodeServer{
		CCID:     ccID,
		Address:  fmt.Sprintf("%s:%s", "0.0.0.0", port),
		CC:       cc,
		TLSProps: cc.tls,
		KaOpts:   cc.keepalive,
	}

	logger.Logger().Infof("starting chaincode server %s on port %s, tls disabled: %t", ccID, port, cc.tls.Disabled)

	return srv.Start()
}

// readTLSConfigFromEnv tries to read TLS configuration from environment variables.
func readTLSConfigFromEnv() ([]byte, []byte, []byte, error) {
	key, err := readEnvOrFile(tlsKeyEnv, tlsKeyFileEnv)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read TLS key file: %w", err)
	}

	cert, err := readEnvOrFile(tlsCertEnv, tlsCertFileEnv)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read TLS certificate file: %w", err)
	}

	clientCACerts, err := readEnvOrFile(tlsClientCACertsEnv, tlsClientCACertsFileEnv)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read client CA certificates file: %w", err)
	}

	return key, cert, clientCACerts, nil
}

func readEnvOrFile(valueEnv, fileEnv string) ([]byte, error) {
	if v := os.Getenv(valueEnv); v != "" {
		return []byte(v), nil
	}

	if path := os.Getenv(fileEnv); path != "" {
		return os.ReadFile(path)
	}

	return nil, nil
}

// PrependSender puts the caller address in front of the arguments of
// methods taking *types.Sender.
func PrependSender(method contract.Method, sender string, args []string) []string {
	if method.RequiresAuth {
		args = append([]string{sender}, args...)
	}

	return args
}

func buildRouter(in contract.Base) (contract.Router, error) {
	if router, ok := in.(contract.Router); ok {
		return router, nil
	}

	return reflectx.NewRouter(in)
}
