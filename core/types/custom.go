package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/sha3"
)

// AddressLength is expected bytes len for caller Address
const AddressLength = 32

// ErrEmptyAddress is returned when an address carries no bytes.
var ErrEmptyAddress = errors.New("address is empty")

// Address identifies a chaincode caller. It holds the sha3-256 digest of the
// caller's public key and prints as base58check, the first byte being used
// as the version byte.
type Address struct {
	Address []byte
}

// AddrFromBytes creates address from bytes
func AddrFromBytes(in []byte) *Address {
	addrBytes := make([]byte, AddressLength)
	copy(addrBytes, in)
	return &Address{Address: addrBytes}
}

// AddrFromPublicKey derives address from raw public key bytes
func AddrFromPublicKey(publicKey []byte) *Address {
	digest := sha3.Sum256(publicKey)
	return AddrFromBytes(digest[:])
}

// AddrFromBase58Check creates address from base58 string
func AddrFromBase58Check(in string) (*Address, error) {
	value, ver, err := base58.CheckDecode(in)
	if err != nil {
		return &Address{}, fmt.Errorf("decoding base58 '%s' failed, err: %w", in, err)
	}

	if len(value)+1 != AddressLength {
		return &Address{}, fmt.Errorf("decoding base58 '%s' failed, err: wrong length %d", in, len(value)+1)
	}

	return AddrFromBytes(append([]byte{ver}, value...)), nil
}

// Equal compares two addresses
func (a *Address) Equal(b *Address) bool {
	if a == nil || b == nil {
		return a == b
	}
	return bytes.Equal(a.Address, b.Address)
}

// Bytes returns address bytes
func (a *Address) Bytes() []byte {
	return a.Address
}

// String returns address string
func (a *Address) String() string {
	if a == nil || len(a.Address) == 0 {
		return ""
	}
	return base58.CheckEncode(a.Address[1:], a.Address[0])
}

// MarshalJSON marshals address to json
func (a *Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON unmarshals address from json
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return a.UnmarshalText([]byte(s))
}

// UnmarshalText parses base58check address
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := AddrFromBase58Check(string(text))
	if err != nil {
		return err
	}
	a.Address = parsed.Address
	return nil
}

// Validate checks that the address is not empty
func (a *Address) Validate() error {
	if a == nil || len(a.Address) == 0 {
		return ErrEmptyAddress
	}
	return nil
}

// Sender is the authenticated caller of a transaction. A contract method
// taking *Sender as its first argument is routed as requiring auth.
type Sender struct {
	addr *Address
}

// NewSenderFromAddr creates sender from address
func NewSenderFromAddr(addr *Address) *Sender {
	return &Sender{addr: addr}
}

// Address returns address
func (s *Sender) Address() *Address {
	return s.addr
}

// Equal compares sender with address
func (s *Sender) Equal(addr *Address) bool {
	return s.addr.Equal(addr)
}

// UnmarshalText parses sender address
func (s *Sender) UnmarshalText(text []byte) error {
	addr := new(Address)
	if err := addr.UnmarshalText(text); err != nil {
		return err
	}
	s.addr = addr
	return nil
}
