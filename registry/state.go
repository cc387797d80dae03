package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// State is the key-value world state the registry works on. It is
// satisfied by shim.ChaincodeStubInterface and by MemoryState.
type State interface {
	GetState(key string) ([]byte, error)
	PutState(key string, value []byte) error
	CreateCompositeKey(objectType string, attributes []string) (string, error)
	SplitCompositeKey(compositeKey string) (string, []string, error)
	GetStateByPartialCompositeKey(objectType string, keys []string) (shim.StateQueryIteratorInterface, error)
}

const (
	keyLastDeviceID  = "lastDeviceId"
	keyLastHistoryID = "lastHistoryId"

	prefixDevice       = "device"
	prefixHistory      = "history"
	indexDeviceHistory = "device~history"
	indexOwnerDevice   = "owner~device"
)

// indexMarker is stored under index keys. PutState treats an empty value
// as a delete, so the marker must not be empty.
var indexMarker = []byte{0x00}

// ErrCorruptedState is returned when stored records or keys cannot be decoded.
var ErrCorruptedState = errors.New("corrupted state")

// formatID pads ids so that lexical key order equals numeric order.
func formatID(id uint64) string {
	return fmt.Sprintf("%020d", id)
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad id %q: %w", ErrCorruptedState, s, err)
	}
	return id, nil
}

func loadCounter(state State, key string) (uint64, error) {
	raw, err := state.GetState(key)
	if err != nil {
		return 0, fmt.Errorf("getting %s: %w", key, err)
	}
	if len(raw) == 0 {
		return 0, nil
	}
	return parseID(string(raw))
}

// peekID returns the value the counter stored under key takes next.
func peekID(state State, key string) (uint64, error) {
	last, err := loadCounter(state, key)
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

func getJSON(state State, objectType string, id uint64, v any) (bool, error) {
	key, err := state.CreateCompositeKey(objectType, []string{formatID(id)})
	if err != nil {
		return false, err
	}

	raw, err := state.GetState(key)
	if err != nil {
		return false, fmt.Errorf("getting %s %d: %w", objectType, id, err)
	}
	if len(raw) == 0 {
		return false, nil
	}

	if err = json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("%w: decoding %s %d: %w", ErrCorruptedState, objectType, id, err)
	}
	return true, nil
}

type stateWrite struct {
	key   string
	value []byte
}

// batch stages the writes of one operation. Keys and values are built
// while staging, so apply is the first call that touches the state.
type batch struct {
	state  State
	writes []stateWrite
}

func newBatch(state State) *batch {
	return &batch{state: state}
}

func (b *batch) putCounter(key string, id uint64) {
	b.writes = append(b.writes, stateWrite{key: key, value: []byte(strconv.FormatUint(id, 10))})
}

func (b *batch) putJSON(objectType string, id uint64, v any) error {
	key, err := b.state.CreateCompositeKey(objectType, []string{formatID(id)})
	if err != nil {
		return fmt.Errorf("building %s %d key: %w", objectType, id, err)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s %d: %w", objectType, id, err)
	}

	b.writes = append(b.writes, stateWrite{key: key, value: raw})
	return nil
}

func (b *batch) putIndex(index string, attributes ...string) error {
	key, err := b.state.CreateCompositeKey(index, attributes)
	if err != nil {
		return fmt.Errorf("building %s key: %w", index, err)
	}

	b.writes = append(b.writes, stateWrite{key: key, value: indexMarker})
	return nil
}

// apply writes the staged values in order. When a write fails the values
// already written are put back, newest first.
func (b *batch) apply() error {
	prev := make([][]byte, 0, len(b.writes))
	for _, w := range b.writes {
		old, err := b.state.GetState(w.key)
		if err == nil {
			err = b.state.PutState(w.key, w.value)
		}
		if err != nil {
			err = fmt.Errorf("putting %q: %w", w.key, err)
			if undoErr := b.undo(prev); undoErr != nil {
				return errors.Join(err, undoErr)
			}
			return err
		}
		prev = append(prev, old)
	}
	return nil
}

func (b *batch) undo(prev [][]byte) error {
	var errs []error
	for i := len(prev) - 1; i >= 0; i-- {
		if err := b.state.PutState(b.writes[i].key, prev[i]); err != nil {
			errs = append(errs, fmt.Errorf("restoring %q: %w", b.writes[i].key, err))
		}
	}
	return errors.Join(errs...)
}

// scanIndex returns the last attribute of every index key under prefix,
// in key order.
func scanIndex(state State, index string, prefix ...string) ([]uint64, error) {
	iter, err := state.GetStateByPartialCompositeKey(index, prefix)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", index, err)
	}
	defer func() {
		_ = iter.Close()
	}()

	var ids []uint64
	for iter.HasNext() {
		kv, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", index, err)
		}

		_, attrs, err := state.SplitCompositeKey(kv.GetKey())
		if err != nil {
			return nil, err
		}
		if len(attrs) != len(prefix)+1 {
			return nil, fmt.Errorf("%w: index key %q", ErrCorruptedState, kv.GetKey())
		}

		id, err := parseID(attrs[len(attrs)-1])
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, nil
}
