package contract

// MethodType represents the type of a method in the contract.
type MethodType int

// Constants representing the different types of methods.
const (
	MethodTypeTransaction MethodType = iota // Tx-prefixed method, may write to the state.
	MethodTypeQuery                         // Query-prefixed method, writes are dropped.
)

// Function represents the name of a chaincode function.
type Function = string

// Method represents an endpoint of a contract.
type Method struct {
	Type          MethodType // The type of the method.
	ChaincodeFunc Function   // The name of the chaincode function being called.
	MethodName    string     // The actual method name to be invoked.
	RequiresAuth  bool       // Indicates if the method requires authentication.
	ReturnsError  bool       // Indicates if the method returns an error.
	NumArgs       int        // Number of arguments the method takes (excluding the receiver).
	NumReturns    int        // Number of return values the method has.
}

// Router defines the interface for managing contract methods and routing calls.
type Router interface {
	// Check validates the provided arguments for the specified method.
	Check(method string, args ...string) error

	// Invoke calls the method on the given contract instance and returns
	// the encoded result.
	Invoke(contract Base, method string, args ...string) ([]byte, error)

	// Methods retrieves a map of all available methods, keyed by their chaincode function names.
	Methods() map[Function]Method
}
