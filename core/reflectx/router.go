package reflectx

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anoideaopen/devicereg/core/contract"
	"github.com/anoideaopen/devicereg/core/types"
)

var (
	// ErrMethodAlreadyDefined is returned when two methods map to the same chaincode function.
	ErrMethodAlreadyDefined = errors.New("pure method has already defined")

	// ErrUnsupportedMethod is returned when a method is not supported by the router.
	ErrUnsupportedMethod = errors.New("unsupported method")

	// ErrInvalidMethodName is returned when a method has an invalid name.
	ErrInvalidMethodName = errors.New("invalid method name")
)

const (
	transactionPrefix = "Tx"
	queryPrefix       = "Query"
)

// Router routes chaincode functions to contract methods found by reflection.
//
// A method named TxSomething becomes the transaction "something", a method
// named QuerySomething becomes the query "something". A first parameter of
// type *types.Sender marks the method as requiring an authenticated caller.
type Router struct {
	contract contract.Base
	methods  map[contract.Function]contract.Method
}

// NewRouter reflects on the methods of baseContract and sets up routing for them.
func NewRouter(baseContract contract.Base) (*Router, error) {
	r := &Router{
		contract: baseContract,
		methods:  make(map[contract.Function]contract.Method),
	}

	for _, method := range Methods(baseContract) {
		ep, err := newReflectEndpoint(method, baseContract)
		if err != nil {
			if errors.Is(err, ErrUnsupportedMethod) {
				continue
			}

			return nil, err
		}

		if _, ok := r.methods[ep.ChaincodeFunc]; ok {
			return nil, fmt.Errorf("%w, method: '%s'", ErrMethodAlreadyDefined, ep.ChaincodeFunc)
		}

		r.methods[ep.ChaincodeFunc] = *ep
	}

	return r, nil
}

// Check validates the provided arguments for the specified method.
func (r *Router) Check(method string, args ...string) error {
	return ValidateArguments(r.contract, method, args...)
}

// Invoke calls the method on c and encodes its results as JSON. A non-nil
// error result is returned as the error.
func (r *Router) Invoke(c contract.Base, method string, args ...string) ([]byte, error) {
	result, err := Call(c, method, args...)
	if err != nil {
		return nil, err
	}

	if MethodReturnsError(c, method) {
		if errorValue := result[len(result)-1]; errorValue != nil {
			return nil, errorValue.(error) //nolint:forcetypeassert
		}

		result = result[:len(result)-1]
	}

	switch len(result) {
	case 0:
		return json.Marshal(nil)
	case 1:
		return json.Marshal(result[0])
	default:
		return json.Marshal(result)
	}
}

// Methods retrieves a map of all available methods, keyed by their chaincode function names.
func (r *Router) Methods() map[contract.Function]contract.Method {
	return r.methods
}

func newReflectEndpoint(name string, of any) (*contract.Method, error) {
	method := &contract.Method{
		MethodName: name,
	}

	switch {
	case strings.HasPrefix(name, transactionPrefix):
		method.Type = contract.MethodTypeTransaction
		method.ChaincodeFunc = strings.TrimPrefix(name, transactionPrefix)

	case strings.HasPrefix(name, queryPrefix):
		method.Type = contract.MethodTypeQuery
		method.ChaincodeFunc = strings.TrimPrefix(name, queryPrefix)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, name)
	}

	if len(method.ChaincodeFunc) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMethodName, name)
	}

	method.ChaincodeFunc = lowerFirstChar(method.ChaincodeFunc)
	method.NumArgs, method.NumReturns = MethodParamCounts(of, name)
	method.ReturnsError = MethodReturnsError(of, name)
	method.RequiresAuth = IsArgOfType(of, name, 0, &types.Sender{})

	return method, nil
}
