package reflectx

import (
	"errors"
	"testing"
	"time"

	"github.com/anoideaopen/devicereg/core/types"
	"github.com/anoideaopen/devicereg/registry"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"
)

var testAddr = types.AddrFromPublicKey([]byte("technician")).String()

type validatedArg struct {
	Name string `json:"name"`
}

func (v validatedArg) Validate() error {
	if v.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

type callTarget struct{}

func (c *callTarget) Text(in string) string { return in }

func (c *callTarget) TextPtr(in *string) string { return *in }

func (c *callTarget) Number(in uint64) uint64 { return in + 1 }

func (c *callTarget) Year(in int64) int64 { return in }

func (c *callTarget) Time(ts time.Time) int64 { return ts.Unix() }

func (c *callTarget) Proto(ts *timestamppb.Timestamp) int64 { return ts.GetSeconds() }

func (c *callTarget) Addr(a *types.Address) string { return a.String() }

func (c *callTarget) Photos(in registry.Images) int { return len(in) }

func (c *callTarget) Check(in validatedArg) string { return in.Name }

func (c *callTarget) Fail() error { return errors.New("boom") }

func TestCall(t *testing.T) {
	target := &callTarget{}

	testCases := []struct {
		name   string
		method string
		args   []string
		want   any
	}{
		{name: "string", method: "Text", args: []string{"Wheelchair"}, want: "Wheelchair"},
		{name: "json-like string", method: "Text", args: []string{`{"a":1}`}, want: `{"a":1}`},
		{name: "string pointer", method: "TextPtr", args: []string{"Philips"}, want: "Philips"},
		{name: "uint64", method: "Number", args: []string{"41"}, want: uint64(42)},
		{name: "negative year", method: "Year", args: []string{"-1"}, want: int64(-1)},
		{name: "time", method: "Time", args: []string{`"2024-01-02T03:04:05Z"`}, want: int64(1704164645)},
		{name: "protojson", method: "Proto", args: []string{`"1970-01-01T00:01:40Z"`}, want: int64(100)},
		{name: "text unmarshaler", method: "Addr", args: []string{testAddr}, want: testAddr},
		{name: "images list", method: "Photos", args: []string{"url1,url2"}, want: 2},
		{name: "images json", method: "Photos", args: []string{`["url1","url2","url3"]`}, want: 3},
		{name: "empty images", method: "Photos", args: []string{""}, want: 0},
		{name: "image url with comma", method: "Photos", args: []string{`["https://x/a,b.png"]`}, want: 1},
		{name: "blank images kept", method: "Photos", args: []string{" ,"}, want: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Call(target, tc.method, tc.args...)
			require.NoError(t, err)
			require.Len(t, out, 1)
			require.Equal(t, tc.want, out[0])
		})
	}
}

func TestCallErrors(t *testing.T) {
	target := &callTarget{}

	_, err := Call(target, "Missing")
	require.ErrorIs(t, err, ErrMethodNotFound)

	_, err = Call(target, "Number", "1", "2")
	require.ErrorIs(t, err, ErrIncorrectArgumentCount)

	_, err = Call(target, "Number", "one")
	require.ErrorIs(t, err, ErrInvalidArgumentValue)

	_, err = Call(target, "Number", "-1")
	require.ErrorIs(t, err, ErrInvalidArgumentValue)

	out, err := Call(target, "Fail")
	require.NoError(t, err)
	require.EqualError(t, out[0].(error), "boom")
}

func TestValidateArguments(t *testing.T) {
	target := &callTarget{}

	require.NoError(t, ValidateArguments(target, "Check", `{"name":"x"}`))
	require.ErrorIs(t, ValidateArguments(target, "Check", `{}`), ErrInvalidArgumentValue)
	require.ErrorIs(t, ValidateArguments(target, "Check"), ErrIncorrectArgumentCount)
	require.ErrorIs(t, ValidateArguments(target, "Nope"), ErrMethodNotFound)
	require.ErrorIs(t, ValidateArguments(target, "Addr", "not-base58"), ErrInvalidArgumentValue)
}

func TestMethodHelpers(t *testing.T) {
	target := &callTarget{}

	require.Contains(t, Methods(target), "Photos")
	require.True(t, IsArgOfType(target, "Addr", 0, &types.Address{}))
	require.False(t, IsArgOfType(target, "Addr", 1, &types.Address{}))
	require.False(t, IsArgOfType(target, "Text", 0, &types.Address{}))

	in, out := MethodParamCounts(target, "Fail")
	require.Equal(t, 0, in)
	require.Equal(t, 1, out)

	in, out = MethodParamCounts(target, "Missing")
	require.Equal(t, -1, in)
	require.Equal(t, -1, out)

	require.True(t, MethodReturnsError(target, "Fail"))
	require.False(t, MethodReturnsError(target, "Text"))

	require.Equal(t, "registerDevice", lowerFirstChar("RegisterDevice"))
	require.Equal(t, "", lowerFirstChar(""))
}

func TestClone(t *testing.T) {
	type holder struct{ N int }

	orig := &holder{N: 1}
	cp, ok := Clone(orig).(*holder)
	require.True(t, ok)
	require.Equal(t, 1, cp.N)

	cp.N = 2
	require.Equal(t, 1, orig.N)

	require.Equal(t, 5, Clone(5))
}
