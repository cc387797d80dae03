// Package mock runs chaincodes in process for tests: a ledger of mock
// stubs, users with generated certificates and a technician registry
// chaincode double.
package mock

import (
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/anoideaopen/devicereg/core"
	"github.com/anoideaopen/devicereg/core/telemetry"
	"github.com/anoideaopen/devicereg/mock/stub"
	"github.com/google/uuid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/peer"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
)

// Ledger holds the deployed chaincodes. Every chaincode can invoke every
// other one, whatever channel it asks for.
type Ledger struct {
	t     *testing.T
	mu    sync.Mutex
	stubs map[string]*stub.Stub
	admin *Identity
	clock func() time.Time
}

// NewLedger creates new ledger. The LOG environment variable sets the
// logrus level of the stubs, errors only by default.
func NewLedger(t *testing.T) *Ledger {
	lvl := logrus.ErrorLevel
	if level, ok := os.LookupEnv("LOG"); ok {
		var err error
		lvl, err = logrus.ParseLevel(level)
		require.NoError(t, err)
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.JSONFormatter{})

	return &Ledger{
		t:     t,
		stubs: make(map[string]*stub.Stub),
		admin: NewIdentity(t, OUAdmin),
		clock: time.Now,
	}
}

// SetTime freezes the transaction clock of every chaincode at ts.
func (l *Ledger) SetTime(ts time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.clock = func() time.Time { return ts }
	for _, s := range l.stubs {
		s.Clock = l.clock
	}
}

// NewCC deploys the contract under name and calls Init as admin with the
// JSON config, none when cfg is empty. It returns the Init error message.
func (l *Ledger) NewCC(
	name string,
	bci core.BaseContractInterface,
	cfg string,
	opts ...core.ChaincodeOption,
) string {
	cc, err := core.NewCC(bci, opts...)
	require.NoError(l.t, err)

	s := l.deploy(name, cc)

	var args [][]byte
	if cfg != "" {
		args = [][]byte{[]byte(cfg)}
	}

	s.SetCreator(l.admin.Creator)
	res := s.MockInit(txIDGen(), args)
	return res.GetMessage()
}

// NewTechnicianRegistry deploys a technician registry double under name.
func (l *Ledger) NewTechnicianRegistry(name string) *TechnicianRegistry {
	tr := NewTechnicianRegistry()
	s := l.deploy(name, tr)
	res := s.MockInit(txIDGen(), nil)
	require.Equal(l.t, int32(shim.OK), res.GetStatus(), res.GetMessage())
	return tr
}

func (l *Ledger) deploy(name string, cc shim.Chaincode) *stub.Stub {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, exists := l.stubs[name]
	require.False(
		l.t,
		exists,
		fmt.Sprintf("stub with name '%s' has already exist in ledger mock; "+
			"try to use other chaincode name.", name),
	)

	s := stub.NewMockStub(name, cc)
	s.ChannelID = name
	s.Clock = l.clock

	for otherName, other := range l.stubs {
		s.MockPeerChaincode(otherName, other, "")
		other.MockPeerChaincode(name, s, "")
	}
	l.stubs[name] = s

	return s
}

// GetStub returns stub
func (l *Ledger) GetStub(name string) *stub.Stub {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.stubs[name]
	require.True(l.t, ok, "chaincode %s is not deployed", name)
	return s
}

// Admin returns the identity used for Init.
func (l *Ledger) Admin() *User {
	return &User{Identity: l.admin, ledger: l}
}

// NewUser creates a client identity.
func (l *Ledger) NewUser() *User {
	return &User{Identity: NewIdentity(l.t, OUClient), ledger: l}
}

// User calls chaincodes as a generated identity.
type User struct {
	*Identity
	ledger *Ledger
}

// InvokeWithPeerResponse calls fn on the chaincode and returns the raw response.
func (u *User) InvokeWithPeerResponse(ch, fn string, args ...string) peer.Response {
	return u.invoke(ch, fn, nil, args...)
}

// InvokeWithTraceCarrier calls fn passing the trace context in the transient map.
func (u *User) InvokeWithTraceCarrier(ch, fn string, carrier propagation.MapCarrier, args ...string) peer.Response {
	return u.invoke(ch, fn, telemetry.PackToTransientMap(carrier), args...)
}

// Invoke calls fn and requires it to succeed. It returns the payload.
func (u *User) Invoke(ch, fn string, args ...string) string {
	resp := u.InvokeWithPeerResponse(ch, fn, args...)
	require.Equal(u.ledger.t, int32(shim.OK), resp.GetStatus(), resp.GetMessage())
	return string(resp.GetPayload())
}

// Query is Invoke for query functions.
func (u *User) Query(ch, fn string, args ...string) string {
	return u.Invoke(ch, fn, args...)
}

func (u *User) invoke(ch, fn string, transient map[string][]byte, args ...string) peer.Response {
	s := u.ledger.GetStub(ch)

	vArgs := make([][]byte, len(args)+1)
	vArgs[0] = []byte(fn)
	for i, x := range args {
		vArgs[i+1] = []byte(x)
	}

	s.SetCreator(u.Creator)
	return s.MockInvokeWithTransient(txIDGen(), vArgs, transient)
}

func txIDGen() string {
	txID := [16]byte(uuid.New())
	return hex.EncodeToString(txID[:])
}
