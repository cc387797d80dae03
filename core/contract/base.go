package contract

import "github.com/hyperledger/fabric-chaincode-go/shim"

// Base is the minimal interface required for a contract to execute within the system.
type Base interface {
	ID() string // ID retrieves the unique identifier for the contract.

	Configurator
	StubGetSetter
}

// StubGetSetter defines methods for getting and setting the ChaincodeStubInterface.
type StubGetSetter interface {
	// GetStub retrieves the current ChaincodeStubInterface.
	GetStub() shim.ChaincodeStubInterface

	// SetStub sets the provided ChaincodeStubInterface.
	SetStub(shim.ChaincodeStubInterface)
}
