package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromBytes(t *testing.T) {
	cfg, err := FromBytes([]byte(`{
		"contract": {
			"name": "repair-registry",
			"technicians": {"chaincode": "techreg"},
			"options": {"disabledFunctions": ["getDevicesByOwner"]}
		}
	}`))
	require.NoError(t, err)

	require.Equal(t, "repair-registry", cfg.GetContract().GetName())
	require.Equal(t, "techreg", cfg.GetContract().GetTechnicians().GetChaincode())
	require.Equal(t, "techreg", cfg.GetContract().GetTechnicians().GetChannel())
	require.Equal(t, DefaultTechnicianFunction, cfg.GetContract().GetTechnicians().GetFunction())
	require.Equal(t, []string{"getDevicesByOwner"}, cfg.GetContract().GetOptions().GetDisabledFunctions())
	require.Empty(t, cfg.GetContract().GetTracingCollectorEndpoint().GetEndpoint())
}

func TestFromBytesDefaults(t *testing.T) {
	cfg, err := FromBytes([]byte(`{}`))
	require.NoError(t, err)
	require.NotNil(t, cfg.GetContract())
	require.NotNil(t, cfg.GetContract().GetOptions())
	require.Nil(t, cfg.GetContract().GetTechnicians())
	require.Empty(t, cfg.GetContract().GetTechnicians().GetChaincode())
}

func TestFromBytesRejectsUnknownFields(t *testing.T) {
	_, err := FromBytes([]byte(`{"contract": {"symbol": "TT"}}`))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     string
		wantErr error
		anyErr  bool
	}{
		{name: "empty object", cfg: `{}`},
		{name: "full", cfg: `{"contract":{"technicians":{"chaincode":"t","channel":"c","function":"f"},"tracingCollectorEndpoint":{"endpoint":"localhost:4318"}}}`},
		{name: "function without chaincode", cfg: `{"contract":{"technicians":{"function":"f"}}}`, wantErr: ErrTechnicianChaincode},
		{name: "endpoint missing", cfg: `{"contract":{"tracingCollectorEndpoint":{}}}`, wantErr: ErrCollectorEndpoint},
		{name: "bad ca", cfg: `{"contract":{"tracingCollectorEndpoint":{"endpoint":"x","tlsCa":"%%%"}}}`, anyErr: true},
		{name: "not json", cfg: `contract`, anyErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate([]byte(tc.cfg))
			switch {
			case tc.wantErr != nil:
				require.ErrorIs(t, err, tc.wantErr)
			case tc.anyErr:
				require.Error(t, err)
			default:
				require.NoError(t, err)
			}
		})
	}
}

func TestIsJSON(t *testing.T) {
	require.True(t, IsJSON([]string{`{"contract":{}}`}))
	require.False(t, IsJSON([]string{`{}`, `{}`}))
	require.False(t, IsJSON([]string{`admin`}))
	require.False(t, IsJSON(nil))
}
