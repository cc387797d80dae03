// Package cachestub buffers the writes of a transaction on top of a chaincode stub.
package cachestub

import (
	"errors"
	"sort"

	"github.com/hyperledger/fabric-chaincode-go/shim"
)

type writeElement struct {
	value     []byte
	isDeleted bool
}

type event struct {
	name    string
	payload []byte
}

// TxCacheStub keeps state writes and the event of a transaction in memory
// until Commit. Point reads see the buffered writes. Range and composite
// key reads go to the underlying stub and see committed state only, as
// they do on a peer.
type TxCacheStub struct {
	shim.ChaincodeStubInterface

	txWriteCache map[string]*writeElement
	event        *event
}

func NewTxCacheStub(stub shim.ChaincodeStubInterface) *TxCacheStub {
	return &TxCacheStub{
		ChaincodeStubInterface: stub,
		txWriteCache:           make(map[string]*writeElement),
	}
}

// GetState returns the buffered value or, if absent, the value from the stub.
func (ts *TxCacheStub) GetState(key string) ([]byte, error) {
	if element, ok := ts.txWriteCache[key]; ok {
		if element.isDeleted {
			return nil, nil
		}
		return element.value, nil
	}
	return ts.ChaincodeStubInterface.GetState(key)
}

// PutState buffers the value. An empty value deletes the key.
func (ts *TxCacheStub) PutState(key string, value []byte) error {
	if key == "" {
		return errors.New("key must not be an empty string")
	}
	if len(value) == 0 {
		return ts.DelState(key)
	}
	ts.txWriteCache[key] = &writeElement{value: value}
	return nil
}

// DelState marks the key as deleted.
func (ts *TxCacheStub) DelState(key string) error {
	if key == "" {
		return errors.New("key must not be an empty string")
	}
	ts.txWriteCache[key] = &writeElement{isDeleted: true}
	return nil
}

// SetEvent buffers the event. Only the last one is kept.
func (ts *TxCacheStub) SetEvent(name string, payload []byte) error {
	if name == "" {
		return errors.New("event name can not be empty string")
	}
	ts.event = &event{name: name, payload: payload}
	return nil
}

// Writes returns the number of buffered keys.
func (ts *TxCacheStub) Writes() int {
	return len(ts.txWriteCache)
}

// Commit flushes buffered writes in key order, then the event, to the
// underlying stub and resets the buffer.
func (ts *TxCacheStub) Commit() error {
	keys := make([]string, 0, len(ts.txWriteCache))
	for k := range ts.txWriteCache {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		element := ts.txWriteCache[key]
		if element.isDeleted {
			if err := ts.ChaincodeStubInterface.DelState(key); err != nil {
				return err
			}
			continue
		}
		if err := ts.ChaincodeStubInterface.PutState(key, element.value); err != nil {
			return err
		}
	}

	if ts.event != nil {
		if err := ts.ChaincodeStubInterface.SetEvent(ts.event.name, ts.event.payload); err != nil {
			return err
		}
	}

	ts.txWriteCache = make(map[string]*writeElement)
	ts.event = nil
	return nil
}
