package contract

import (
	"fmt"

	"github.com/anoideaopen/devicereg/core/config"
	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// Configurator defines methods for validating, applying, and retrieving contract configuration.
type Configurator interface {
	// ValidateConfig validates the provided configuration data.
	ValidateConfig(config []byte) error

	// ApplyContractConfig applies the provided contract configuration.
	ApplyContractConfig(config *config.ContractConfig) error

	// ContractConfig retrieves the current contract configuration.
	ContractConfig() *config.ContractConfig
}

// ExternalConfigurator is implemented by contracts that keep their own
// settings next to the contract section of the configuration.
type ExternalConfigurator interface {
	// ValidateExtConfig validates the provided external configuration data.
	ValidateExtConfig(cfgBytes []byte) error

	// ApplyExtConfig applies the provided external configuration to the chaincode.
	ApplyExtConfig(cfgBytes []byte) error
}

// Configure binds the stub to the contract and applies the raw configuration.
// A nil configuration leaves the contract defaults in place.
func Configure(contract Base, stub shim.ChaincodeStubInterface, rawCfg []byte) error {
	contract.SetStub(stub)
	if rawCfg == nil {
		return nil
	}

	cfg, err := config.FromBytes(rawCfg)
	if err != nil {
		return fmt.Errorf("parsing contract config: %w", err)
	}

	if err = contract.ApplyContractConfig(cfg.GetContract()); err != nil {
		return fmt.Errorf("applying contract config: %w", err)
	}

	if ec, ok := contract.(ExternalConfigurator); ok {
		if err = ec.ApplyExtConfig(rawCfg); err != nil {
			return fmt.Errorf("applying external config: %w", err)
		}
	}

	return nil
}

// ValidateConfig runs every validator the contract implements.
func ValidateConfig(contract Base, rawCfg []byte) error {
	if err := contract.ValidateConfig(rawCfg); err != nil {
		return fmt.Errorf("validating base config: %w", err)
	}

	if ec, ok := contract.(ExternalConfigurator); ok {
		if err := ec.ValidateExtConfig(rawCfg); err != nil {
			return fmt.Errorf("validating external config: %w", err)
		}
	}

	return nil
}
