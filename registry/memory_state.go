package registry

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
)

// MemoryState is an in-process State. The zero value is ready to use.
type MemoryState struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryState returns an empty store.
func NewMemoryState() *MemoryState {
	return &MemoryState{data: make(map[string][]byte)}
}

// Reset drops every device, history entry and counter.
func (m *MemoryState) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string][]byte)
}

func (m *MemoryState) GetState(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryState) PutState(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	if len(value) == 0 {
		delete(m.data, key)
		return nil
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryState) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	return shim.CreateCompositeKey(objectType, attributes)
}

func (m *MemoryState) SplitCompositeKey(compositeKey string) (string, []string, error) {
	parts := strings.Split(compositeKey, "\x00")
	// "\x00type\x00a\x00b\x00" splits into "", type, a, b, ""
	if len(parts) < 3 || parts[0] != "" || parts[len(parts)-1] != "" {
		return "", nil, errors.New("invalid composite key")
	}
	return parts[1], parts[2 : len(parts)-1], nil
}

// GetStateByPartialCompositeKey returns a snapshot iterator over the
// matching keys in lexical order.
func (m *MemoryState) GetStateByPartialCompositeKey(objectType string, keys []string) (shim.StateQueryIteratorInterface, error) {
	prefix, err := m.CreateCompositeKey(objectType, keys)
	if err != nil {
		return nil, err
	}
	end := prefix + string(utf8.MaxRune)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var kvs []*queryresult.KV
	for k, v := range m.data {
		if k >= prefix && k < end {
			kvs = append(kvs, &queryresult.KV{Key: k, Value: append([]byte(nil), v...)})
		}
	}
	sort.Slice(kvs, func(i, j int) bool { return kvs[i].GetKey() < kvs[j].GetKey() })

	return &memoryIterator{kvs: kvs}, nil
}

type memoryIterator struct {
	kvs []*queryresult.KV
}

func (it *memoryIterator) HasNext() bool {
	return len(it.kvs) > 0
}

func (it *memoryIterator) Next() (*queryresult.KV, error) {
	if len(it.kvs) == 0 {
		return nil, errors.New("iterator exhausted")
	}
	kv := it.kvs[0]
	it.kvs = it.kvs[1:]
	return kv, nil
}

func (it *memoryIterator) Close() error {
	it.kvs = nil
	return nil
}
