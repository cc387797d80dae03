package mock

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/anoideaopen/devicereg/core/types"
	"github.com/anoideaopen/devicereg/mock/stub"
	"github.com/stretchr/testify/require"
)

// Organizational units put into generated certificates.
const (
	OUAdmin  = "admin"
	OUClient = "client"
)

const defaultMSP = "repairMSP"

// Identity is a generated creator certificate and the address derived from it.
type Identity struct {
	MSPID   string
	Cert    []byte // DER
	Creator []byte // serialized msp identity
	addr    *types.Address
}

// NewIdentity creates a self-signed ECDSA P-256 certificate with the given
// organizational unit.
func NewIdentity(t *testing.T, ou string) *Identity {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128)) //nolint:gomnd
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:         "user@" + defaultMSP,
			Organization:       []string{defaultMSP},
			OrganizationalUnit: []string{ou},
		},
		NotBefore: time.Now().Add(-time.Hour),
		NotAfter:  time.Now().Add(24 * time.Hour), //nolint:gomnd
		KeyUsage:  x509.KeyUsageDigitalSignature,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	creator, err := stub.BuildCreator(defaultMSP, der)
	require.NoError(t, err)

	ecdhPk, err := key.PublicKey.ECDH()
	require.NoError(t, err)

	return &Identity{
		MSPID:   defaultMSP,
		Cert:    der,
		Creator: creator,
		addr:    types.AddrFromPublicKey(ecdhPk.Bytes()),
	}
}

// Address returns the base58check address the chaincode sees for this identity.
func (id *Identity) Address() string {
	return id.addr.String()
}

// AddressType returns the address as types.Address.
func (id *Identity) AddressType() *types.Address {
	return id.addr
}
