/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: [Default license](LICENSE)
*/

// Package stub mocked provides APIs for the chaincode to access its state
// variables, transaction context and call other chaincodes.
package stub

import (
	"encoding/pem"
	"errors"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/golang/protobuf/proto" //nolint:staticcheck
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"github.com/hyperledger/fabric-protos-go/msp"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// ErrFuncNotImplemented is returned when a function is not implemented
const ErrFuncNotImplemented = "function %s is not implemented"

var ErrNoTransaction = errors.New("cannot PutState without a transactions - call stub.MockTransactionStart()?")

// Stub is an implementation of ChaincodeStubInterface for unit testing chaincode.
// Use this instead of ChaincodeStub in your chaincode's unit test calls to Init or Invoke.
type Stub struct {
	// A pointer back to the chaincode that will invoke this, set by constructor.
	// If a peer calls this stub, the chaincode will be invoked from here.
	cc          shim.Chaincode
	Args        [][]byte          // arguments the stub was called with
	Name        string            // A nice name that can be used for logging
	State       map[string][]byte // State keeps name value pairs
	keys        []string          // sorted keys of State
	Invokables  map[string]*Stub  // other stubs reachable through InvokeChaincode
	TxID        string            // stores a transaction uuid while being Invoked / Deployed
	TxTimestamp *timestamppb.Timestamp
	// Clock produces the timestamp of each new transaction.
	Clock               func() time.Time
	signedProposal      *pb.SignedProposal
	ChannelID           string
	PvtState            map[string]map[string][]byte
	EndorsementPolicies map[string]map[string][]byte // first index is the collection, second is the key
	Events              []*pb.ChaincodeEvent         // events of completed transactions in order
	pendingEvent        *pb.ChaincodeEvent
	Decorations         map[string][]byte
	creator             []byte
	transientMap        map[string][]byte
	log                 *logrus.Entry
}

// NewMockStub - Constructor to config the internal State map
func NewMockStub(name string, cc shim.Chaincode) *Stub {
	return &Stub{
		cc:                  cc,
		Name:                name,
		State:               make(map[string][]byte),
		Invokables:          make(map[string]*Stub),
		Clock:               time.Now,
		PvtState:            make(map[string]map[string][]byte),
		EndorsementPolicies: make(map[string]map[string][]byte),
		Decorations:         make(map[string][]byte),
		transientMap:        make(map[string][]byte),
		log:                 logrus.WithField("stub", name),
	}
}

// GetTxID returns the transaction ID for the current chaincode invocation request.
func (stub *Stub) GetTxID() string {
	return stub.TxID
}

// GetChannelID returns the channel ID for the proposal for the current chaincode invocation request.
func (stub *Stub) GetChannelID() string {
	return stub.ChannelID
}

// GetArgs returns the arguments for the chaincode invocation request.
func (stub *Stub) GetArgs() [][]byte {
	return stub.Args
}

// GetStringArgs returns the arguments for the chaincode invocation request as strings.
func (stub *Stub) GetStringArgs() []string {
	strargs := make([]string, 0, len(stub.Args))
	for _, barg := range stub.Args {
		strargs = append(strargs, string(barg))
	}
	return strargs
}

// GetFunctionAndParameters returns the first argument as the function name and the rest of the arguments as parameters in a string array.
func (stub *Stub) GetFunctionAndParameters() (string, []string) {
	allArgs := stub.GetStringArgs()
	if len(allArgs) == 0 {
		return "", []string{}
	}
	return allArgs[0], allArgs[1:]
}

// MockTransactionStart is used to indicate to a chaincode that it is part of a transaction.
// Stub doesn't support concurrent transactions.
func (stub *Stub) MockTransactionStart(txID string) {
	stub.TxID = txID
	stub.signedProposal = &pb.SignedProposal{}
	stub.TxTimestamp = timestamppb.New(stub.Clock().UTC())
	stub.pendingEvent = nil
}

// MockTransactionEnd ends a mocked transaction, clearing the UUID.
// A successful transaction publishes its event.
func (stub *Stub) MockTransactionEnd(_ string, ok bool) {
	if ok && stub.pendingEvent != nil {
		stub.Events = append(stub.Events, stub.pendingEvent)
	}
	stub.pendingEvent = nil
	stub.signedProposal = nil
	stub.TxID = ""
	stub.transientMap = make(map[string][]byte)
}

// MockPeerChaincode registers a peer chaincode with this Stub.
// An empty channel registers the chaincode on every channel.
func (stub *Stub) MockPeerChaincode(invokableChaincodeName string, otherStub *Stub, channel string) {
	if channel != "" {
		invokableChaincodeName = invokableChaincodeName + "/" + channel
	}

	stub.Invokables[invokableChaincodeName] = otherStub
}

// MockInit initializes this chaincode, also starts and ends a transaction.
func (stub *Stub) MockInit(uuid string, args [][]byte) pb.Response {
	if stub.cc == nil {
		panic(errors.New("can't init stub (shim.Chaincode) when stub.cc is nil"))
	}
	stub.Args = args
	stub.MockTransactionStart(uuid)
	res := stub.cc.Init(stub)
	stub.MockTransactionEnd(uuid, res.GetStatus() < shim.ERRORTHRESHOLD)
	return res
}

// MockInvoke invokes this chaincode, also starts and ends a transaction.
func (stub *Stub) MockInvoke(uuid string, args [][]byte) pb.Response {
	return stub.MockInvokeWithTransient(uuid, args, nil)
}

// MockInvokeWithTransient invokes this chaincode with the given transient map.
func (stub *Stub) MockInvokeWithTransient(uuid string, args [][]byte, transient map[string][]byte) pb.Response {
	if stub.cc == nil {
		panic(errors.New("can't invoke stub (shim.Chaincode) when stub.cc is nil"))
	}
	stub.Args = args
	stub.MockTransactionStart(uuid)
	if transient != nil {
		stub.transientMap = transient
	}
	res := stub.cc.Invoke(stub)
	stub.MockTransactionEnd(uuid, res.GetStatus() < shim.ERRORTHRESHOLD)
	return res
}

// GetDecorations returns the transaction decorations.
func (stub *Stub) GetDecorations() map[string][]byte {
	return stub.Decorations
}

// GetPrivateData returns the value of the specified `key` from the specified `collection`.
func (stub *Stub) GetPrivateData(collection string, key string) ([]byte, error) {
	return stub.PvtState[collection][key], nil
}

// GetPrivateDataHash returns the hash of the specified `key` from the specified `collection`.
func (stub *Stub) GetPrivateDataHash(_, _ string) ([]byte, error) {
	return nil, fmt.Errorf(ErrFuncNotImplemented, "GetPrivateDataHash")
}

// PutPrivateData puts the specified `key` and `value` into the transaction's private data.
func (stub *Stub) PutPrivateData(collection string, key string, value []byte) error {
	m, in := stub.PvtState[collection]
	if !in {
		m = make(map[string][]byte)
		stub.PvtState[collection] = m
	}

	m[key] = value

	return nil
}

// DelPrivateData removes the specified `key` and its value from the specified `collection`
func (stub *Stub) DelPrivateData(collection, key string) error {
	delete(stub.PvtState[collection], key)
	return nil
}

// GetPrivateDataByRange returns a range iterator over a set of keys in the private collection.
func (stub *Stub) GetPrivateDataByRange(_, _, _ string) (shim.StateQueryIteratorInterface, error) {
	return nil, fmt.Errorf(ErrFuncNotImplemented, "GetPrivateDataByRange")
}

// GetPrivateDataByPartialCompositeKey returns an iterator over a set of keys in the private collection.
func (stub *Stub) GetPrivateDataByPartialCompositeKey(_, _ string, _ []string) (shim.StateQueryIteratorInterface, error) {
	return nil, fmt.Errorf(ErrFuncNotImplemented, "GetPrivateDataByPartialCompositeKey")
}

// GetPrivateDataQueryResult performs a "rich" query against a given private collection.
func (stub *Stub) GetPrivateDataQueryResult(_, _ string) (shim.StateQueryIteratorInterface, error) {
	return nil, fmt.Errorf(ErrFuncNotImplemented, "GetPrivateDataQueryResult")
}

// PurgePrivateData records the specified keys in the private data collection
func (stub *Stub) PurgePrivateData(collection, key string) error {
	return stub.DelPrivateData(collection, key)
}

// GetState retrieves the value for a given key from the Ledger
func (stub *Stub) GetState(key string) ([]byte, error) {
	value := stub.State[key]
	stub.log.Debugf("getting %q: %d bytes", key, len(value))
	return value, nil
}

// PutState writes the specified `value` and `key` into the Ledger.
// An empty value deletes the key.
func (stub *Stub) PutState(key string, value []byte) error {
	if stub.TxID == "" {
		stub.log.Error(ErrNoTransaction)
		return ErrNoTransaction
	}

	if len(value) == 0 {
		stub.log.Debugf("PutState called with empty value, deleting %q", key)
		return stub.DelState(key)
	}

	stub.log.Debugf("putting %q: %d bytes", key, len(value))
	if _, ok := stub.State[key]; !ok {
		i := sort.SearchStrings(stub.keys, key)
		stub.keys = append(stub.keys, "")
		copy(stub.keys[i+1:], stub.keys[i:])
		stub.keys[i] = key
	}
	stub.State[key] = value

	return nil
}

// DelState removes the specified `key` and its value from the Ledger.
func (stub *Stub) DelState(key string) error {
	if _, ok := stub.State[key]; !ok {
		return nil
	}
	stub.log.Debugf("deleting %q", key)
	delete(stub.State, key)

	i := sort.SearchStrings(stub.keys, key)
	if i < len(stub.keys) && stub.keys[i] == key {
		stub.keys = append(stub.keys[:i], stub.keys[i+1:]...)
	}

	return nil
}

// rangeKeys returns the sorted keys in [startKey, endKey). Empty bounds are open.
func (stub *Stub) rangeKeys(startKey, endKey string) []string {
	from := 0
	if startKey != "" {
		from = sort.SearchStrings(stub.keys, startKey)
	}
	to := len(stub.keys)
	if endKey != "" {
		to = sort.SearchStrings(stub.keys, endKey)
	}
	if from >= to {
		return nil
	}

	res := make([]string, to-from)
	copy(res, stub.keys[from:to])
	return res
}

// GetStateByRange returns a range iterator over a set of keys in the Ledger.
func (stub *Stub) GetStateByRange(startKey, endKey string) (shim.StateQueryIteratorInterface, error) {
	if err := validateSimpleKeys(startKey, endKey); err != nil {
		return nil, err
	}
	return NewStateIterator(stub, stub.rangeKeys(startKey, endKey)), nil
}

// GetQueryResult is not supported, the mock has no rich query engine.
func (stub *Stub) GetQueryResult(_ string) (shim.StateQueryIteratorInterface, error) {
	return nil, fmt.Errorf(ErrFuncNotImplemented, "GetQueryResult")
}

// GetHistoryForKey is not supported.
func (stub *Stub) GetHistoryForKey(_ string) (shim.HistoryQueryIteratorInterface, error) {
	return nil, fmt.Errorf(ErrFuncNotImplemented, "GetHistoryForKey")
}

// GetStateByPartialCompositeKey returns an iterator over all composite
// keys whose prefix matches the given partial composite key.
func (stub *Stub) GetStateByPartialCompositeKey(objectType string, attributes []string) (shim.StateQueryIteratorInterface, error) {
	partialCompositeKey, err := stub.CreateCompositeKey(objectType, attributes)
	if err != nil {
		return nil, err
	}
	return NewStateIterator(stub, stub.rangeKeys(partialCompositeKey, partialCompositeKey+string(utf8.MaxRune))), nil
}

// CreateCompositeKey combines the list of attributes
// to form a composite key.
func (stub *Stub) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	return shim.CreateCompositeKey(objectType, attributes)
}

// SplitCompositeKey splits the composite key into attributes
// on which the composite key was formed.
func (stub *Stub) SplitCompositeKey(compositeKey string) (string, []string, error) {
	return splitCompositeKey(compositeKey)
}

// GetStateByRangeWithPagination returns a page of keys in the Ledger.
func (stub *Stub) GetStateByRangeWithPagination(
	startKey, endKey string,
	pageSize int32,
	bookmark string,
) (shim.StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	if bookmark != "" {
		startKey = bookmark
	}

	if err := validateSimpleKeys(startKey, endKey); err != nil {
		return nil, nil, err
	}

	return stub.page(stub.rangeKeys(startKey, endKey), pageSize)
}

// GetStateByPartialCompositeKeyWithPagination returns a page of composite keys in the Ledger.
func (stub *Stub) GetStateByPartialCompositeKeyWithPagination(
	objectType string,
	keys []string,
	pageSize int32,
	bookmark string,
) (shim.StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	partialCompositeKey, err := stub.CreateCompositeKey(objectType, keys)
	if err != nil {
		return nil, nil, err
	}

	if bookmark == "" {
		bookmark = partialCompositeKey
	}

	return stub.page(stub.rangeKeys(bookmark, partialCompositeKey+string(utf8.MaxRune)), pageSize)
}

func (stub *Stub) page(keys []string, pageSize int32) (shim.StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	var bookmark string
	if pageSize >= 0 && int(pageSize) < len(keys) {
		bookmark = keys[pageSize]
		keys = keys[:pageSize]
	}

	m := &pb.QueryResponseMetadata{
		FetchedRecordsCount: int32(len(keys)),
		Bookmark:            bookmark,
	}

	return NewStateIterator(stub, keys), m, nil
}

// GetQueryResultWithPagination is not supported.
func (stub *Stub) GetQueryResultWithPagination(
	_ string,
	_ int32,
	_ string,
) (shim.StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	return nil, nil, fmt.Errorf(ErrFuncNotImplemented, "GetQueryResultWithPagination")
}

// InvokeChaincode calls a peered chaincode registered with MockPeerChaincode.
// A chaincode registered for a specific channel takes precedence.
func (stub *Stub) InvokeChaincode(chaincodeName string, args [][]byte, channel string) pb.Response {
	otherStub, ok := stub.Invokables[chaincodeName+"/"+channel]
	if !ok {
		otherStub, ok = stub.Invokables[chaincodeName]
	}
	if !ok {
		return shim.Error(fmt.Sprintf("chaincode %s is not reachable on channel %s", chaincodeName, channel))
	}

	stub.log.Debugf("invoking peer chaincode %s", otherStub.Name)
	res := otherStub.MockInvoke(stub.TxID, args)
	stub.log.Debugf("invoked peer chaincode %s, status %d", otherStub.Name, res.GetStatus())
	return res
}

// SetCreator sets creator
func (stub *Stub) SetCreator(creator []byte) {
	stub.creator = creator
}

// SetCreatorCert sets creator cert
func (stub *Stub) SetCreatorCert(creatorMSP string, creatorCert []byte) error {
	creator, err := BuildCreator(creatorMSP, creatorCert)
	if err != nil {
		return err
	}
	stub.creator = creator
	return nil
}

// BuildCreator wraps a DER certificate into a serialized msp identity.
func BuildCreator(creatorMSP string, creatorCert []byte) ([]byte, error) {
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: creatorCert})
	if pemBytes == nil {
		return nil, errors.New("encoding of identity failed")
	}

	return proto.Marshal(&msp.SerializedIdentity{Mspid: creatorMSP, IdBytes: pemBytes})
}

// GetCreator returns creator.
func (stub *Stub) GetCreator() ([]byte, error) {
	return stub.creator, nil
}

// GetTransient returns transient.
func (stub *Stub) GetTransient() (map[string][]byte, error) {
	return stub.transientMap, nil
}

// GetBinding returns binding. Not implemented
func (stub *Stub) GetBinding() ([]byte, error) {
	return nil, fmt.Errorf(ErrFuncNotImplemented, "GetBinding")
}

// GetSignedProposal returns proposal.
func (stub *Stub) GetSignedProposal() (*pb.SignedProposal, error) {
	return stub.signedProposal, nil
}

// GetArgsSlice returns Args slice. Not implemented
func (stub *Stub) GetArgsSlice() ([]byte, error) {
	return nil, fmt.Errorf(ErrFuncNotImplemented, "GetArgsSlice")
}

// GetTxTimestamp returns timestamp.
func (stub *Stub) GetTxTimestamp() (*timestamppb.Timestamp, error) {
	if stub.TxTimestamp == nil {
		return nil, errors.New("timestamp was not set")
	}
	return stub.TxTimestamp, nil
}

// SetEvent sets the transaction event. As on a peer only the last call
// within a transaction survives.
func (stub *Stub) SetEvent(name string, payload []byte) error {
	if name == "" {
		return errors.New("event name can not be empty string")
	}
	stub.pendingEvent = &pb.ChaincodeEvent{EventName: name, Payload: payload, TxId: stub.TxID, ChaincodeId: stub.Name}
	return nil
}

// LastEvent returns the event of the most recent successful transaction.
func (stub *Stub) LastEvent() *pb.ChaincodeEvent {
	if len(stub.Events) == 0 {
		return nil
	}
	return stub.Events[len(stub.Events)-1]
}

// SetStateValidationParameter sets the state validation parameter for the given key
func (stub *Stub) SetStateValidationParameter(key string, ep []byte) error {
	return stub.SetPrivateDataValidationParameter("", key, ep)
}

// GetStateValidationParameter gets the state validation parameter for the given key
func (stub *Stub) GetStateValidationParameter(key string) ([]byte, error) {
	return stub.GetPrivateDataValidationParameter("", key)
}

// SetPrivateDataValidationParameter sets the private data validation parameter for the given collection and key
func (stub *Stub) SetPrivateDataValidationParameter(collection, key string, ep []byte) error {
	m, in := stub.EndorsementPolicies[collection]
	if !in {
		m = make(map[string][]byte)
		stub.EndorsementPolicies[collection] = m
	}

	m[key] = ep
	return nil
}

// GetPrivateDataValidationParameter gets the private data validation parameter for the given collection and key
func (stub *Stub) GetPrivateDataValidationParameter(collection, key string) ([]byte, error) {
	return stub.EndorsementPolicies[collection][key], nil
}

// StateIterator walks a snapshot of keys, reading values lazily from the stub.
type StateIterator struct {
	Closed bool
	Stub   *Stub
	Keys   []string
}

// NewStateIterator returns an iterator over the given keys.
func NewStateIterator(stub *Stub, keys []string) *StateIterator {
	return &StateIterator{Stub: stub, Keys: keys}
}

// HasNext returns true if the iterator contains additional keys and values.
func (iter *StateIterator) HasNext() bool {
	return !iter.Closed && len(iter.Keys) > 0
}

// Next returns the next key and value in the iterator.
func (iter *StateIterator) Next() (*queryresult.KV, error) {
	if iter.Closed {
		return nil, errors.New("StateIterator.Next() called after Close()")
	}

	if len(iter.Keys) == 0 {
		return nil, errors.New("StateIterator.Next() called when it does not HaveNext()")
	}

	key := iter.Keys[0]
	iter.Keys = iter.Keys[1:]
	value, err := iter.Stub.GetState(key)
	return &queryresult.KV{Key: key, Value: value}, err
}

// Close closes the iterator.
func (iter *StateIterator) Close() error {
	if iter.Closed {
		return errors.New("StateIterator.Close() called after Close()")
	}

	iter.Keys = nil
	iter.Closed = true
	return nil
}

const compositeKeyNamespace = "\x00"

func validateSimpleKeys(simpleKeys ...string) error {
	for _, key := range simpleKeys {
		if len(key) > 0 && key[0] == compositeKeyNamespace[0] {
			return errors.New("first character of the key [" + key + "] contains a null character which is not allowed")
		}
	}
	return nil
}

func splitCompositeKey(compositeKey string) (string, []string, error) {
	if len(compositeKey) == 0 || compositeKey[0] != compositeKeyNamespace[0] {
		return "", nil, fmt.Errorf("%q is not a composite key", compositeKey)
	}

	componentIndex := 1
	var components []string
	for i := 1; i < len(compositeKey); i++ {
		if compositeKey[i] == 0 {
			components = append(components, compositeKey[componentIndex:i])
			componentIndex = i + 1
		}
	}
	if len(components) == 0 {
		return "", nil, fmt.Errorf("%q is not a composite key", compositeKey)
	}
	return components[0], components[1:], nil
}
