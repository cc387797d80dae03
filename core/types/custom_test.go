package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressBase58RoundTrip(t *testing.T) {
	addr := AddrFromPublicKey([]byte("public key bytes"))
	require.Len(t, addr.Bytes(), AddressLength)

	parsed, err := AddrFromBase58Check(addr.String())
	require.NoError(t, err)
	require.True(t, addr.Equal(parsed))
}

func TestAddressFromPublicKeyIsStable(t *testing.T) {
	a := AddrFromPublicKey([]byte{1, 2, 3})
	b := AddrFromPublicKey([]byte{1, 2, 3})
	c := AddrFromPublicKey([]byte{3, 2, 1})

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestAddrFromBase58CheckErrors(t *testing.T) {
	_, err := AddrFromBase58Check("not-base58-0OIl")
	require.Error(t, err)

	_, err = AddrFromBase58Check("")
	require.Error(t, err)
}

func TestAddressJSON(t *testing.T) {
	addr := AddrFromPublicKey([]byte("owner"))

	raw, err := json.Marshal(addr)
	require.NoError(t, err)
	require.Equal(t, `"`+addr.String()+`"`, string(raw))

	var decoded Address
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.True(t, addr.Equal(&decoded))
}

func TestAddressValidate(t *testing.T) {
	require.ErrorIs(t, (&Address{}).Validate(), ErrEmptyAddress)
	require.NoError(t, AddrFromPublicKey([]byte("x")).Validate())
}

func TestSender(t *testing.T) {
	addr := AddrFromPublicKey([]byte("sender"))

	var s Sender
	require.NoError(t, s.UnmarshalText([]byte(addr.String())))
	require.True(t, s.Equal(addr))
	require.Equal(t, addr.String(), s.Address().String())

	require.False(t, NewSenderFromAddr(addr).Equal(AddrFromPublicKey([]byte("other"))))
}
