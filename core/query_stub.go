package core

import (
	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// queryStub serves reads from the underlying stub. Writes and events are
// recorded instead of performed, so a query never changes the world state.
type queryStub struct {
	shim.ChaincodeStubInterface

	dropped []string
}

func newQueryStub(stub shim.ChaincodeStubInterface) *queryStub {
	return &queryStub{
		ChaincodeStubInterface: stub,
	}
}

// Dropped lists the writes the query attempted, as "operation target".
func (qs *queryStub) Dropped() []string {
	return qs.dropped
}

func (qs *queryStub) drop(op, target string) error {
	qs.dropped = append(qs.dropped, op+" "+target)
	return nil
}

func (qs *queryStub) PutState(key string, _ []byte) error {
	return qs.drop("PutState", key)
}

func (qs *queryStub) DelState(key string) error {
	return qs.drop("DelState", key)
}

func (qs *queryStub) SetStateValidationParameter(key string, _ []byte) error {
	return qs.drop("SetStateValidationParameter", key)
}

func (qs *queryStub) PutPrivateData(collection, key string, _ []byte) error {
	return qs.drop("PutPrivateData", collection+"/"+key)
}

func (qs *queryStub) DelPrivateData(collection, key string) error {
	return qs.drop("DelPrivateData", collection+"/"+key)
}

func (qs *queryStub) PurgePrivateData(collection, key string) error {
	return qs.drop("PurgePrivateData", collection+"/"+key)
}

func (qs *queryStub) SetPrivateDataValidationParameter(collection, key string, _ []byte) error {
	return qs.drop("SetPrivateDataValidationParameter", collection+"/"+key)
}

func (qs *queryStub) SetEvent(name string, _ []byte) error {
	return qs.drop("SetEvent", name)
}
