package hlfcreator

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/anoideaopen/devicereg/core/types"
	"github.com/golang/protobuf/proto" //nolint:staticcheck
	"github.com/hyperledger/fabric-protos-go/msp"
)

const (
	// adminOU is the required OrganizationalUnit in the x509 certificate for Hyperledger admin.
	adminOU = "admin"
)

var (
	ErrEmptyCreator             = errors.New("creator is nil or empty")
	ErrDecodeSerializedIdentity = errors.New("failed to validate block after decode pem 'SerializedIdentity.IdBytes', block can't be nil or empty")
	ErrUnsupportedPublicKey     = errors.New("creator public key is not ecdsa")
)

// Creator is the decoded transaction creator.
type Creator struct {
	MSPID       string
	Certificate *x509.Certificate
}

// Parse decodes a serialized msp identity and its x509 certificate.
func Parse(creator []byte) (*Creator, error) {
	if len(creator) == 0 {
		return nil, ErrEmptyCreator
	}

	var identity msp.SerializedIdentity
	if err := proto.Unmarshal(creator, &identity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal SerializedIdentity: %w", err)
	}

	b, _ := pem.Decode(identity.GetIdBytes())
	if b == nil || len(b.Bytes) == 0 {
		return nil, ErrDecodeSerializedIdentity
	}

	parsed, err := x509.ParseCertificate(b.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse x509 certificate: %w", err)
	}

	return &Creator{MSPID: identity.GetMspid(), Certificate: parsed}, nil
}

// IsAdmin reports whether the certificate carries the admin OU.
func (c *Creator) IsAdmin() bool {
	for _, ou := range c.Certificate.Subject.OrganizationalUnit {
		if strings.EqualFold(ou, adminOU) {
			return true
		}
	}
	return false
}

// Address derives the caller address from the certificate public key.
func (c *Creator) Address() (*types.Address, error) {
	pk, ok := c.Certificate.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, ErrUnsupportedPublicKey
	}

	ecdhPk, err := pk.ECDH()
	if err != nil {
		return nil, fmt.Errorf("public key transition failed: %w", err)
	}

	return types.AddrFromPublicKey(ecdhPk.Bytes()), nil
}

// ValidateAdminCreator checks if the creator of the transaction is an admin.
func ValidateAdminCreator(creator []byte) error {
	parsed, err := Parse(creator)
	if err != nil {
		return err
	}

	if !parsed.IsAdmin() {
		return fmt.Errorf("incorrect sender's OU, expected '%s' but found '%s'",
			adminOU,
			strings.Join(parsed.Certificate.Subject.OrganizationalUnit, ","),
		)
	}

	return nil
}

// CreatorAddress returns the address of the transaction creator.
func CreatorAddress(creator []byte) (*types.Address, error) {
	parsed, err := Parse(creator)
	if err != nil {
		return nil, err
	}

	return parsed.Address()
}
