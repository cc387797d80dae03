package device_test

import (
	"encoding/json"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/anoideaopen/devicereg/device"
	"github.com/anoideaopen/devicereg/mock"
	"github.com/anoideaopen/devicereg/registry"
	"github.com/stretchr/testify/require"
)

const (
	ccName     = "repairs"
	techRegCC  = "techreg"
	testConfig = `{"contract":{"name":"repairs","technicians":{"chaincode":"techreg"}}}`

	fnRegisterDevice     = "registerDevice"
	fnUpdateDeviceInfo   = "updateDeviceInfo"
	fnUpdateDeviceStatus = "updateDeviceStatus"
	fnGetDevice          = "getDevice"
	fnGetDeviceHistory   = "getDeviceHistory"
	fnGetHistoryEntry    = "getHistoryEntry"
	fnGetDevicesByOwner  = "getDevicesByOwner"
)

var (
	registeredAt = time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

	wheelchair = []string{
		"Wheelchair",
		"Sunrise Medical",
		"Quickie 2",
		"QK2-12345",
		"2018",
		"Left wheel wobbling and brakes not engaging properly",
		"medium",
		"123 Main St, Springfield",
		"url1,url2",
	}
)

type env struct {
	ledger *mock.Ledger
	techs  *mock.TechnicianRegistry
	owner  *mock.User
}

func newEnv(t *testing.T, cfg string) *env {
	t.Helper()

	ledger := mock.NewLedger(t)
	ledger.SetTime(registeredAt)

	techs := ledger.NewTechnicianRegistry(techRegCC)
	require.Empty(t, ledger.NewCC(ccName, device.NewContract(), cfg))

	return &env{
		ledger: ledger,
		techs:  techs,
		owner:  ledger.NewUser(),
	}
}

func getDevice(t *testing.T, u *mock.User, id string) *registry.Device {
	t.Helper()

	var d *registry.Device
	require.NoError(t, json.Unmarshal([]byte(u.Query(ccName, fnGetDevice, id)), &d))
	return d
}

func getHistory(t *testing.T, u *mock.User, id string) []registry.HistoryEntry {
	t.Helper()

	var h []registry.HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(u.Query(ccName, fnGetDeviceHistory, id)), &h))
	return h
}

func TestRegisterDevice(t *testing.T) {
	e := newEnv(t, testConfig)

	id := e.owner.Invoke(ccName, fnRegisterDevice, wheelchair...)
	require.Equal(t, "1", id)

	d := getDevice(t, e.owner, id)
	require.Equal(t, &registry.Device{
		ID:               1,
		Owner:            e.owner.Address(),
		DeviceType:       "Wheelchair",
		Manufacturer:     "Sunrise Medical",
		Model:            "Quickie 2",
		SerialNumber:     "QK2-12345",
		Year:             2018,
		IssueDescription: "Left wheel wobbling and brakes not engaging properly",
		UrgencyLevel:     "medium",
		Location:         "123 Main St, Springfield",
		Images:           registry.Images{"url1", "url2"},
		Status:           registry.StatusRegistered,
		RegistrationDate: registeredAt.Unix(),
	}, d)

	h := getHistory(t, e.owner, id)
	require.Len(t, h, 1)
	require.Equal(t, registry.HistoryEntry{
		ID:        1,
		DeviceID:  1,
		Status:    registry.StatusRegistered,
		Notes:     registry.NoteRegistered,
		UpdatedBy: e.owner.Address(),
		Timestamp: registeredAt.Unix(),
	}, h[0])

	ev := e.ledger.GetStub(ccName).LastEvent()
	require.NotNil(t, ev)
	require.Equal(t, device.EventDeviceRegistered, ev.GetEventName())

	var evEntry registry.HistoryEntry
	require.NoError(t, json.Unmarshal(ev.GetPayload(), &evEntry))
	require.Equal(t, h[0], evEntry)

	second := e.ledger.NewUser().Invoke(ccName, fnRegisterDevice, wheelchair...)
	require.Equal(t, "2", second)
}

func TestUpdateDeviceStatusByOwner(t *testing.T) {
	e := newEnv(t, testConfig)
	id := e.owner.Invoke(ccName, fnRegisterDevice, wheelchair...)

	e.ledger.SetTime(registeredAt.Add(time.Hour))
	res := e.owner.Invoke(ccName, fnUpdateDeviceStatus, id, registry.StatusMatched, "Device matched with technician John Smith")
	require.Equal(t, "1", res)

	d := getDevice(t, e.owner, id)
	require.Equal(t, registry.StatusMatched, d.Status)
	require.Equal(t, registeredAt.Unix(), d.RegistrationDate)

	h := getHistory(t, e.owner, id)
	require.Len(t, h, 2)
	require.Equal(t, registry.StatusMatched, h[1].Status)
	require.Equal(t, "Device matched with technician John Smith", h[1].Notes)
	require.Equal(t, registeredAt.Add(time.Hour).Unix(), h[1].Timestamp)

	require.Equal(t, device.EventDeviceStatusUpdated, e.ledger.GetStub(ccName).LastEvent().GetEventName())

	e.owner.Invoke(ccName, fnUpdateDeviceStatus, id, "waiting-for-parts", "")
	require.Equal(t, "waiting-for-parts", getDevice(t, e.owner, id).Status)
}

func TestUpdateDeviceInfo(t *testing.T) {
	e := newEnv(t, testConfig)
	id := e.owner.Invoke(ccName, fnRegisterDevice, wheelchair...)
	e.owner.Invoke(ccName, fnUpdateDeviceStatus, id, registry.StatusInRepair, "on the bench")

	res := e.owner.Invoke(ccName, fnUpdateDeviceInfo, id, "Brakes fixed, wheel still loose", "low", "Repair shop", `["url3"]`)
	require.Equal(t, "1", res)

	d := getDevice(t, e.owner, id)
	require.Equal(t, "Brakes fixed, wheel still loose", d.IssueDescription)
	require.Equal(t, "low", d.UrgencyLevel)
	require.Equal(t, "Repair shop", d.Location)
	require.Equal(t, registry.Images{"url3"}, d.Images)
	require.Equal(t, registry.StatusInRepair, d.Status)
	require.Equal(t, e.owner.Address(), d.Owner)
	require.Equal(t, "Quickie 2", d.Model)

	h := getHistory(t, e.owner, id)
	require.Len(t, h, 3)
	require.Equal(t, registry.StatusInRepair, h[2].Status)
	require.Equal(t, registry.NoteInfoUpdated, h[2].Notes)

	require.Equal(t, device.EventDeviceInfoUpdated, e.ledger.GetStub(ccName).LastEvent().GetEventName())
}

func TestImagesAreKeptAsGiven(t *testing.T) {
	e := newEnv(t, testConfig)

	args := slices.Clone(wheelchair)
	args[len(args)-1] = "url1, ,url2 "
	id := e.owner.Invoke(ccName, fnRegisterDevice, args...)
	require.Equal(t, registry.Images{"url1", " ", "url2 "}, getDevice(t, e.owner, id).Images)

	e.owner.Invoke(ccName, fnUpdateDeviceInfo, id, "x", "low", "y", `["https://x/a,b.png",""]`)
	require.Equal(t, registry.Images{"https://x/a,b.png", ""}, getDevice(t, e.owner, id).Images)

	raw := e.owner.Query(ccName, fnGetDevice, id)
	require.Contains(t, raw, `"images":["https://x/a,b.png",""]`)
}

func TestUpdateDeviceInfoNotFound(t *testing.T) {
	e := newEnv(t, testConfig)
	s := e.ledger.GetStub(ccName)
	before := maps.Clone(s.State)

	resp := e.owner.InvokeWithPeerResponse(ccName, fnUpdateDeviceInfo, "999", "x", "high", "y", "")
	require.Equal(t, int32(http.StatusNotFound), resp.GetStatus())
	require.Contains(t, resp.GetMessage(), registry.ErrNotFound.Error())

	resp = e.owner.InvokeWithPeerResponse(ccName, fnUpdateDeviceStatus, "999", registry.StatusMatched, "")
	require.Equal(t, int32(http.StatusNotFound), resp.GetStatus())

	require.Equal(t, before, s.State)
	require.Nil(t, s.LastEvent())
}

func TestUpdateByStrangerIsForbidden(t *testing.T) {
	e := newEnv(t, testConfig)
	id := e.owner.Invoke(ccName, fnRegisterDevice, wheelchair...)

	s := e.ledger.GetStub(ccName)
	before := maps.Clone(s.State)
	events := len(s.Events)

	stranger := e.ledger.NewUser()

	resp := stranger.InvokeWithPeerResponse(ccName, fnUpdateDeviceInfo, id, "x", "high", "y", "")
	require.Equal(t, int32(http.StatusForbidden), resp.GetStatus())
	require.Contains(t, resp.GetMessage(), registry.ErrForbidden.Error())

	resp = stranger.InvokeWithPeerResponse(ccName, fnUpdateDeviceStatus, id, registry.StatusReturned, "")
	require.Equal(t, int32(http.StatusForbidden), resp.GetStatus())

	require.Equal(t, before, s.State)
	require.Len(t, s.Events, events)
}

func TestTechnicianRights(t *testing.T) {
	e := newEnv(t, testConfig)
	id := e.owner.Invoke(ccName, fnRegisterDevice, wheelchair...)

	tech := e.ledger.NewUser()
	e.techs.Assign(1, tech.Address())

	res := tech.Invoke(ccName, fnUpdateDeviceStatus, id, registry.StatusRepaired, "new brake pads")
	require.Equal(t, "1", res)

	h := getHistory(t, e.owner, id)
	require.Equal(t, tech.Address(), h[len(h)-1].UpdatedBy)
	require.Equal(t, e.owner.Address(), getDevice(t, e.owner, id).Owner)

	resp := tech.InvokeWithPeerResponse(ccName, fnUpdateDeviceInfo, id, "x", "high", "y", "")
	require.Equal(t, int32(http.StatusForbidden), resp.GetStatus())

	otherID := e.owner.Invoke(ccName, fnRegisterDevice, wheelchair...)
	resp = tech.InvokeWithPeerResponse(ccName, fnUpdateDeviceStatus, otherID, registry.StatusReturned, "")
	require.Equal(t, int32(http.StatusForbidden), resp.GetStatus())
}

func TestTechnicianLookupFailure(t *testing.T) {
	e := newEnv(t, testConfig)
	id := e.owner.Invoke(ccName, fnRegisterDevice, wheelchair...)

	e.techs.SetUnavailable(true)

	resp := e.ledger.NewUser().InvokeWithPeerResponse(ccName, fnUpdateDeviceStatus, id, registry.StatusMatched, "")
	require.Equal(t, int32(http.StatusInternalServerError), resp.GetStatus())
	require.Contains(t, resp.GetMessage(), registry.ErrTechnicianLookup.Error())

	e.owner.Invoke(ccName, fnUpdateDeviceStatus, id, registry.StatusMatched, "owner skips the lookup")
}

func TestWithoutTechnicianRegistry(t *testing.T) {
	e := newEnv(t, "")
	id := e.owner.Invoke(ccName, fnRegisterDevice, wheelchair...)

	tech := e.ledger.NewUser()
	e.techs.Assign(1, tech.Address())

	resp := tech.InvokeWithPeerResponse(ccName, fnUpdateDeviceStatus, id, registry.StatusMatched, "")
	require.Equal(t, int32(http.StatusForbidden), resp.GetStatus())
}

func TestHistoryOrder(t *testing.T) {
	e := newEnv(t, testConfig)
	other := e.ledger.NewUser()

	first := e.owner.Invoke(ccName, fnRegisterDevice, wheelchair...)
	second := other.Invoke(ccName, fnRegisterDevice, wheelchair...)

	statuses := []string{registry.StatusMatched, registry.StatusInRepair, registry.StatusRepaired, registry.StatusReturned}
	for _, st := range statuses {
		e.owner.Invoke(ccName, fnUpdateDeviceStatus, first, st, "")
		other.Invoke(ccName, fnUpdateDeviceStatus, second, st, "")
	}

	for _, id := range []string{first, second} {
		h := getHistory(t, e.owner, id)
		require.Len(t, h, len(statuses)+1)
		require.Equal(t, registry.StatusRegistered, h[0].Status)
		for i, st := range statuses {
			require.Equal(t, st, h[i+1].Status)
			require.Less(t, h[i].ID, h[i+1].ID)
		}
	}

	require.Equal(t, "[]", e.owner.Query(ccName, fnGetDeviceHistory, "42"))
}

func TestQueries(t *testing.T) {
	e := newEnv(t, testConfig)
	other := e.ledger.NewUser()

	e.owner.Invoke(ccName, fnRegisterDevice, wheelchair...)
	other.Invoke(ccName, fnRegisterDevice, wheelchair...)
	e.owner.Invoke(ccName, fnRegisterDevice, wheelchair...)

	s := e.ledger.GetStub(ccName)
	before := maps.Clone(s.State)
	events := len(s.Events)

	require.Equal(t, "null", e.owner.Query(ccName, fnGetDevice, "99"))
	require.Equal(t, "null", e.owner.Query(ccName, fnGetHistoryEntry, "99"))

	var entry registry.HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(e.owner.Query(ccName, fnGetHistoryEntry, "2")), &entry))
	require.Equal(t, uint64(2), entry.DeviceID)
	require.Equal(t, other.Address(), entry.UpdatedBy)

	var devices []registry.Device
	require.NoError(t, json.Unmarshal([]byte(e.owner.Query(ccName, fnGetDevicesByOwner, e.owner.Address())), &devices))
	require.Len(t, devices, 2)
	require.Equal(t, uint64(1), devices[0].ID)
	require.Equal(t, uint64(3), devices[1].ID)

	resp := e.owner.InvokeWithPeerResponse(ccName, fnGetDevicesByOwner, "not-an-address")
	require.Equal(t, int32(http.StatusInternalServerError), resp.GetStatus())

	require.NotEmpty(t, e.owner.Query(ccName, "buildInfo"))

	t.Setenv("CORE_CHAINCODE_ID_NAME", "repairs:1.0")
	require.Equal(t, strconv.Quote("repairs:1.0"), e.owner.Query(ccName, "coreChaincodeIDName"))

	require.Equal(t, before, s.State)
	require.Len(t, s.Events, events)
}

func TestDisabledFunctions(t *testing.T) {
	e := newEnv(t, `{"contract":{"name":"repairs","options":{"disabledFunctions":["getDevicesByOwner"]}}}`)

	resp := e.owner.InvokeWithPeerResponse(ccName, fnGetDevicesByOwner, e.owner.Address())
	require.Equal(t, int32(http.StatusInternalServerError), resp.GetStatus())
	require.Contains(t, resp.GetMessage(), "method not found")

	resp = e.owner.InvokeWithPeerResponse(ccName, "noSuchFunction")
	require.Contains(t, resp.GetMessage(), "method not found")
}

func TestBadArguments(t *testing.T) {
	e := newEnv(t, testConfig)

	args := append([]string(nil), wheelchair...)
	args[4] = "two thousand"
	resp := e.owner.InvokeWithPeerResponse(ccName, fnRegisterDevice, args...)
	require.Equal(t, int32(http.StatusInternalServerError), resp.GetStatus())

	resp = e.owner.InvokeWithPeerResponse(ccName, fnRegisterDevice, wheelchair[:3]...)
	require.Equal(t, int32(http.StatusInternalServerError), resp.GetStatus())

	resp = e.owner.InvokeWithPeerResponse(ccName, fnGetDevice, "-1")
	require.Equal(t, int32(http.StatusInternalServerError), resp.GetStatus())

	require.Equal(t, "null", e.owner.Query(ccName, fnGetDevice, "1"))
}
