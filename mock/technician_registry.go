package mock

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/anoideaopen/devicereg/core/config"
	"github.com/anoideaopen/devicereg/registry"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/peer"
)

// Functions served by the technician registry double besides the lookup.
const (
	FnAssignTechnician = "assign"
	FnRevokeTechnician = "revoke"
)

// TechnicianRegistry is a chaincode keeping technician assignments in
// memory. Every function takes (identity, deviceID).
type TechnicianRegistry struct {
	techs       *registry.StaticTechnicians
	unavailable atomic.Bool
}

func NewTechnicianRegistry() *TechnicianRegistry {
	return &TechnicianRegistry{techs: registry.NewStaticTechnicians()}
}

// Assign grants identity the right to update the device status.
func (tr *TechnicianRegistry) Assign(deviceID uint64, identity string) {
	tr.techs.Assign(deviceID, identity)
}

// SetUnavailable makes every call fail with status 500.
func (tr *TechnicianRegistry) SetUnavailable(v bool) {
	tr.unavailable.Store(v)
}

func (tr *TechnicianRegistry) Init(shim.ChaincodeStubInterface) peer.Response {
	return shim.Success(nil)
}

func (tr *TechnicianRegistry) Invoke(stub shim.ChaincodeStubInterface) peer.Response {
	if tr.unavailable.Load() {
		return shim.Error("technician registry is unavailable")
	}

	fn, args := stub.GetFunctionAndParameters()
	if len(args) != 2 { //nolint:gomnd
		return shim.Error(fmt.Sprintf("%s: expected identity and device id, got %d args", fn, len(args)))
	}

	identity := args[0]
	deviceID, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return shim.Error(fmt.Sprintf("%s: parsing device id: %s", fn, err))
	}

	switch fn {
	case config.DefaultTechnicianFunction:
		ok, err := tr.techs.IsAuthorizedTechnician(context.Background(), identity, deviceID)
		if err != nil {
			return shim.Error(err.Error())
		}
		return shim.Success([]byte(strconv.FormatBool(ok)))

	case FnAssignTechnician:
		tr.techs.Assign(deviceID, identity)
		return shim.Success(nil)

	case FnRevokeTechnician:
		tr.techs.Revoke(deviceID, identity)
		return shim.Success(nil)

	default:
		return shim.Error(fmt.Sprintf("function %s not found", fn))
	}
}
