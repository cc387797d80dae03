package config

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// keyConfig is a key for storing a configuration data in json format.
const keyConfig = "__config"

// DefaultTechnicianFunction is called on the technician registry chaincode
// when the configuration does not name one.
const DefaultTechnicianFunction = "isAuthorizedTechnician"

var (
	ErrCfgBytesEmpty       = errors.New("config bytes is empty")
	ErrTechnicianChaincode = errors.New("'technicians.chaincode' is empty while channel or function is set")
	ErrCollectorEndpoint   = errors.New("'tracingCollectorEndpoint.endpoint' is empty")
)

// Save saves configuration data to the state.
//
// If the provided cfgBytes slice is empty, the function returns an ErrCfgBytesEmpty error.
func Save(stub shim.ChaincodeStubInterface, cfgBytes []byte) error {
	if len(cfgBytes) == 0 {
		return ErrCfgBytesEmpty
	}

	if err := stub.PutState(keyConfig, cfgBytes); err != nil {
		return fmt.Errorf("putting config data to state: %w", err)
	}

	return nil
}

// Load retrieves and returns the raw configuration data from the state.
//
// If the retrieved configuration data is empty, the function returns an ErrCfgBytesEmpty error.
func Load(stub shim.ChaincodeStubInterface) ([]byte, error) {
	cfgBytes, err := stub.GetState(keyConfig)
	if err != nil {
		return nil, fmt.Errorf("loading raw config: %w", err)
	}

	if len(cfgBytes) == 0 {
		return nil, ErrCfgBytesEmpty
	}

	return cfgBytes, nil
}

// FromBytes parses the provided JSON configuration. Unknown fields are
// rejected so that typos in Init arguments do not pass silently.
func FromBytes(cfgBytes []byte) (*Config, error) {
	cfg := new(Config)

	dec := json.NewDecoder(bytes.NewReader(cfgBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}

	if cfg.GetContract() == nil {
		cfg.Contract = new(ContractConfig)
	}

	if cfg.GetContract().GetOptions() == nil {
		cfg.Contract.Options = new(ChaincodeOptions)
	}

	return cfg, nil
}

// Validate parses the configuration and checks the cross-field rules.
func Validate(cfgBytes []byte) error {
	cfg, err := FromBytes(cfgBytes)
	if err != nil {
		return fmt.Errorf("unmarshalling config: %w", err)
	}

	tr := cfg.GetContract().GetTechnicians()
	if tr != nil && tr.Chaincode == "" && (tr.Channel != "" || tr.Function != "") {
		return ErrTechnicianChaincode
	}

	ep := cfg.GetContract().GetTracingCollectorEndpoint()
	if ep != nil {
		if ep.GetEndpoint() == "" {
			return ErrCollectorEndpoint
		}
		if ep.GetTLSCA() != "" {
			if _, err = base64.StdEncoding.DecodeString(ep.GetTLSCA()); err != nil {
				return fmt.Errorf("decoding 'tracingCollectorEndpoint.tlsCa': %w", err)
			}
		}
	}

	return nil
}

// IsJSON checks if the provided arguments represent a valid JSON configuration.
//
// The function returns true if there is exactly one argument in the initialization args slice,
// and if the content of that argument is a valid JSON.
func IsJSON(args []string) bool {
	return len(args) == 1 && json.Valid([]byte(args[0]))
}
