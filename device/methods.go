package device

import (
	"github.com/anoideaopen/devicereg/core/types"
	"github.com/anoideaopen/devicereg/registry"
)

// TxRegisterDevice registers a device owned by the sender and returns its id.
func (c *Contract) TxRegisterDevice(
	sender *types.Sender,
	deviceType string,
	manufacturer string,
	model string,
	serialNumber string,
	year int64,
	issueDescription string,
	urgencyLevel string,
	location string,
	images registry.Images,
) (uint64, error) {
	now, err := c.TransactionTime()
	if err != nil {
		return 0, err
	}

	r := c.repairs()
	id, err := r.Register(c.GetTraceContext().Context(), registry.RegisterRequest{
		DeviceType:       deviceType,
		Manufacturer:     manufacturer,
		Model:            model,
		SerialNumber:     serialNumber,
		Year:             year,
		IssueDescription: issueDescription,
		UrgencyLevel:     urgencyLevel,
		Location:         location,
		Images:           images,
	}, sender.Address().String(), now)
	if err != nil {
		return 0, err
	}

	return id, c.emit(r, EventDeviceRegistered)
}

// TxUpdateDeviceInfo replaces the issue description, urgency, location and
// images of a device. Only the owner may call it.
func (c *Contract) TxUpdateDeviceInfo(
	sender *types.Sender,
	deviceID uint64,
	issueDescription string,
	urgencyLevel string,
	location string,
	images registry.Images,
) (uint64, error) {
	now, err := c.TransactionTime()
	if err != nil {
		return 0, err
	}

	r := c.repairs()
	id, err := r.UpdateInfo(c.GetTraceContext().Context(), deviceID, registry.InfoUpdate{
		IssueDescription: issueDescription,
		UrgencyLevel:     urgencyLevel,
		Location:         location,
		Images:           images,
	}, sender.Address().String(), now)
	if err != nil {
		return 0, err
	}

	return id, c.emit(r, EventDeviceInfoUpdated)
}

// TxUpdateDeviceStatus stores the given status. The owner and the
// technicians assigned to the device may call it.
func (c *Contract) TxUpdateDeviceStatus(sender *types.Sender, deviceID uint64, status string, notes string) (uint64, error) {
	now, err := c.TransactionTime()
	if err != nil {
		return 0, err
	}

	r := c.repairs()
	id, err := r.UpdateStatus(c.GetTraceContext().Context(), deviceID, status, notes, sender.Address().String(), now)
	if err != nil {
		return 0, err
	}

	return id, c.emit(r, EventDeviceStatusUpdated)
}

// QueryGetDevice returns the device or null.
func (c *Contract) QueryGetDevice(deviceID uint64) (*registry.Device, error) {
	return c.repairs().Device(c.GetTraceContext().Context(), deviceID)
}

// QueryGetDeviceHistory returns the history of a device, oldest first.
func (c *Contract) QueryGetDeviceHistory(deviceID uint64) ([]registry.HistoryEntry, error) {
	return c.repairs().History(c.GetTraceContext().Context(), deviceID)
}

// QueryGetHistoryEntry returns a single history entry or null.
func (c *Contract) QueryGetHistoryEntry(historyID uint64) (*registry.HistoryEntry, error) {
	return c.repairs().HistoryEntry(c.GetTraceContext().Context(), historyID)
}

// QueryGetDevicesByOwner returns the devices registered by owner, ordered by id.
func (c *Contract) QueryGetDevicesByOwner(owner *types.Address) ([]registry.Device, error) {
	return c.repairs().DevicesByOwner(c.GetTraceContext().Context(), owner.String())
}
