package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/peer"
)

// TechnicianRegistry answers whether an identity is assigned as technician
// to a device.
type TechnicianRegistry interface {
	IsAuthorizedTechnician(ctx context.Context, identity string, deviceID uint64) (bool, error)
}

// NoTechnicians authorizes nobody.
type NoTechnicians struct{}

func (NoTechnicians) IsAuthorizedTechnician(context.Context, string, uint64) (bool, error) {
	return false, nil
}

// StaticTechnicians keeps assignments in memory.
type StaticTechnicians struct {
	mu          sync.RWMutex
	assignments map[uint64]map[string]struct{}
}

// NewStaticTechnicians returns a registry with no assignments.
func NewStaticTechnicians() *StaticTechnicians {
	return &StaticTechnicians{assignments: make(map[uint64]map[string]struct{})}
}

// Assign grants identity update rights on the device status.
func (s *StaticTechnicians) Assign(deviceID uint64, identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.assignments == nil {
		s.assignments = make(map[uint64]map[string]struct{})
	}
	ids, ok := s.assignments[deviceID]
	if !ok {
		ids = make(map[string]struct{})
		s.assignments[deviceID] = ids
	}
	ids[identity] = struct{}{}
}

// Revoke removes an assignment.
func (s *StaticTechnicians) Revoke(deviceID uint64, identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.assignments[deviceID], identity)
}

func (s *StaticTechnicians) IsAuthorizedTechnician(_ context.Context, identity string, deviceID uint64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.assignments[deviceID][identity]
	return ok, nil
}

// ChaincodeInvoker is the part of the chaincode stub used for cross-chaincode calls.
type ChaincodeInvoker interface {
	InvokeChaincode(chaincodeName string, args [][]byte, channel string) peer.Response
}

// ErrTechnicianLookup is returned when the technician registry chaincode
// fails or answers with something other than a JSON boolean.
var ErrTechnicianLookup = errors.New("technician lookup failed")

// ChaincodeTechnicians asks another chaincode. The call is
// Function(identity, deviceID) and the payload must be a JSON boolean.
type ChaincodeTechnicians struct {
	Stub      ChaincodeInvoker
	Chaincode string
	Channel   string
	Function  string
}

func (c *ChaincodeTechnicians) IsAuthorizedTechnician(_ context.Context, identity string, deviceID uint64) (bool, error) {
	resp := c.Stub.InvokeChaincode(
		c.Chaincode,
		[][]byte{
			[]byte(c.Function),
			[]byte(identity),
			[]byte(strconv.FormatUint(deviceID, 10)),
		},
		c.Channel,
	)
	if resp.GetStatus() != shim.OK {
		return false, fmt.Errorf("%w: %s on %s/%s returned %d: %s",
			ErrTechnicianLookup, c.Function, c.Channel, c.Chaincode, resp.GetStatus(), resp.GetMessage())
	}

	var ok bool
	if err := json.Unmarshal(resp.GetPayload(), &ok); err != nil {
		return false, fmt.Errorf("%w: decoding payload: %w", ErrTechnicianLookup, err)
	}
	return ok, nil
}
