// Package device is the medical equipment repair registry chaincode.
//
// Owners register devices and keep their descriptive fields up to date.
// The owner and the technicians assigned to a device move it through the
// repair statuses. Every change is appended to the device history and
// announced with a chaincode event.
package device

import (
	"encoding/json"
	"fmt"

	"github.com/anoideaopen/devicereg/core"
	"github.com/anoideaopen/devicereg/registry"
)

// Chaincode events, one per successful transaction. The payload is the
// history entry the transaction appended.
const (
	EventDeviceRegistered    = "DeviceRegistered"
	EventDeviceInfoUpdated   = "DeviceInfoUpdated"
	EventDeviceStatusUpdated = "DeviceStatusUpdated"
)

var _ core.BaseContractInterface = &Contract{}

// Contract exposes the registry as chaincode functions.
type Contract struct {
	core.BaseContract

	technicians registry.TechnicianRegistry
}

// Option configures a Contract.
type Option func(*Contract)

// WithTechnicians makes the contract use t instead of the technician
// registry chaincode named in the configuration.
func WithTechnicians(t registry.TechnicianRegistry) Option {
	return func(c *Contract) {
		c.technicians = t
	}
}

func NewContract(opts ...Option) *Contract {
	c := new(Contract)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// repairs binds a registry to the current stub.
func (c *Contract) repairs() *registry.Registry {
	techs := c.technicians
	if techs == nil {
		if tr := c.ContractConfig().GetTechnicians(); tr.GetChaincode() != "" {
			techs = &registry.ChaincodeTechnicians{
				Stub:      c.GetStub(),
				Chaincode: tr.GetChaincode(),
				Channel:   tr.GetChannel(),
				Function:  tr.GetFunction(),
			}
		}
	}

	return registry.New(c.GetStub(), registry.WithTechnicians(techs))
}

// emit publishes the most recent history entry under the event name.
func (c *Contract) emit(r *registry.Registry, event string) error {
	ctx := c.GetTraceContext().Context()

	id, err := r.LastHistoryID(ctx)
	if err != nil {
		return err
	}

	entry, err := r.HistoryEntry(ctx, id)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", event, err)
	}

	return c.GetStub().SetEvent(event, payload)
}
