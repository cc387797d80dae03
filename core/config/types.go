package config

// Config is the chaincode configuration passed to Init.
type Config struct {
	Contract *ContractConfig `json:"contract,omitempty"`
}

// ContractConfig holds contract level settings.
type ContractConfig struct {
	Name                     string              `json:"name,omitempty"`
	Technicians              *TechnicianRegistry `json:"technicians,omitempty"`
	TracingCollectorEndpoint *CollectorEndpoint  `json:"tracingCollectorEndpoint,omitempty"`
	Options                  *ChaincodeOptions   `json:"options,omitempty"`
}

// TechnicianRegistry points at the chaincode answering technician
// assignment lookups. An empty Chaincode means nobody but the owner may
// change a device status.
type TechnicianRegistry struct {
	Chaincode string `json:"chaincode,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Function  string `json:"function,omitempty"`
}

// CollectorEndpoint is the OTLP/HTTP collector address.
type CollectorEndpoint struct {
	Endpoint string `json:"endpoint,omitempty"`
	// TLSCA is a base64 encoded PEM bundle; plain HTTP is used when empty.
	TLSCA string `json:"tlsCa,omitempty"`
}

// ChaincodeOptions toggles chaincode behaviour.
type ChaincodeOptions struct {
	DisabledFunctions []string `json:"disabledFunctions,omitempty"`
}

func (c *Config) GetContract() *ContractConfig {
	if c == nil {
		return nil
	}
	return c.Contract
}

func (c *ContractConfig) GetName() string {
	if c == nil {
		return ""
	}
	return c.Name
}

func (c *ContractConfig) GetTechnicians() *TechnicianRegistry {
	if c == nil {
		return nil
	}
	return c.Technicians
}

func (c *ContractConfig) GetTracingCollectorEndpoint() *CollectorEndpoint {
	if c == nil {
		return nil
	}
	return c.TracingCollectorEndpoint
}

func (c *ContractConfig) GetOptions() *ChaincodeOptions {
	if c == nil {
		return nil
	}
	return c.Options
}

func (t *TechnicianRegistry) GetChaincode() string {
	if t == nil {
		return ""
	}
	return t.Chaincode
}

// GetChannel defaults to the chaincode name, the usual deployment of
// single-chaincode service channels.
func (t *TechnicianRegistry) GetChannel() string {
	if t == nil {
		return ""
	}
	if t.Channel == "" {
		return t.Chaincode
	}
	return t.Channel
}

func (t *TechnicianRegistry) GetFunction() string {
	if t == nil {
		return ""
	}
	if t.Function == "" {
		return DefaultTechnicianFunction
	}
	return t.Function
}

func (e *CollectorEndpoint) GetEndpoint() string {
	if e == nil {
		return ""
	}
	return e.Endpoint
}

func (e *CollectorEndpoint) GetTLSCA() string {
	if e == nil {
		return ""
	}
	return e.TLSCA
}

func (o *ChaincodeOptions) GetDisabledFunctions() []string {
	if o == nil {
		return nil
	}
	return o.DisabledFunctions
}
