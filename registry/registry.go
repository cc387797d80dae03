// Package registry keeps medical equipment repair registrations: devices
// and the append-only history of changes made to them.
//
// A Registry works on any State. In a chaincode the state is the
// transaction stub, in tests and local tools it is a MemoryState.
//
// All Registry methods are safe for concurrent use. Every operation is a
// single critical section over both counters and all records.
package registry

import (
	"context"
	"fmt"
	"sync"
)

// Registry provides device registration and history tracking.
type Registry struct {
	mu          sync.Mutex
	state       State
	technicians TechnicianRegistry
}

// Option configures a Registry.
type Option func(*Registry)

// WithTechnicians sets the technician lookup used by UpdateStatus.
func WithTechnicians(t TechnicianRegistry) Option {
	return func(r *Registry) {
		if t != nil {
			r.technicians = t
		}
	}
}

// New creates a registry over state. Without WithTechnicians only owners
// may change a device status.
func New(state State, opts ...Option) *Registry {
	r := &Registry{
		state:       state,
		technicians: NoTechnicians{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register stores a new device owned by caller and records its first
// history entry. Field values are not validated. Nothing is written unless
// the device, its history entry and both indexes are all written.
func (r *Registry) Register(_ context.Context, req RegisterRequest, caller string, now int64) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, err := peekID(r.state, keyLastDeviceID)
	if err != nil {
		return 0, err
	}

	d := &Device{
		ID:               id,
		Owner:            caller,
		DeviceType:       req.DeviceType,
		Manufacturer:     req.Manufacturer,
		Model:            req.Model,
		SerialNumber:     req.SerialNumber,
		Year:             req.Year,
		IssueDescription: req.IssueDescription,
		UrgencyLevel:     req.UrgencyLevel,
		Location:         req.Location,
		Images:           req.Images,
		Status:           StatusRegistered,
		RegistrationDate: now,
	}

	b := newBatch(r.state)
	b.putCounter(keyLastDeviceID, id)
	if err = b.putJSON(prefixDevice, id, d); err != nil {
		return 0, err
	}
	if err = b.putIndex(indexOwnerDevice, caller, formatID(id)); err != nil {
		return 0, err
	}
	if err = r.stageHistory(b, id, StatusRegistered, NoteRegistered, caller, now); err != nil {
		return 0, err
	}

	if err = b.apply(); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateInfo replaces the descriptive fields of a device. Only the owner
// may do it. Status, owner and registration date are kept.
func (r *Registry) UpdateInfo(_ context.Context, deviceID uint64, upd InfoUpdate, caller string, now int64) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, err := r.device(deviceID)
	if err != nil {
		return 0, err
	}
	if d == nil {
		return 0, notFound(deviceID)
	}
	if d.Owner != caller {
		return 0, forbidden(deviceID)
	}

	d.IssueDescription = upd.IssueDescription
	d.UrgencyLevel = upd.UrgencyLevel
	d.Location = upd.Location
	d.Images = upd.Images

	b := newBatch(r.state)
	if err = b.putJSON(prefixDevice, deviceID, d); err != nil {
		return 0, err
	}
	if err = r.stageHistory(b, deviceID, d.Status, NoteInfoUpdated, caller, now); err != nil {
		return 0, err
	}

	if err = b.apply(); err != nil {
		return 0, err
	}
	return deviceID, nil
}

// UpdateStatus sets the device status exactly as given. The owner and
// technicians assigned to the device may do it.
//
// Records are stored as JSON, so invalid UTF-8 in status or notes is
// stored with each bad byte replaced by U+FFFD. Valid strings are kept
// byte for byte.
func (r *Registry) UpdateStatus(ctx context.Context, deviceID uint64, status, notes, caller string, now int64) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, err := r.device(deviceID)
	if err != nil {
		return 0, err
	}
	if d == nil {
		return 0, notFound(deviceID)
	}

	if d.Owner != caller {
		ok, err := r.technicians.IsAuthorizedTechnician(ctx, caller, deviceID)
		if err != nil {
			return 0, fmt.Errorf("checking technician %s for device %d: %w", caller, deviceID, err)
		}
		if !ok {
			return 0, forbidden(deviceID)
		}
	}

	d.Status = status

	b := newBatch(r.state)
	if err = b.putJSON(prefixDevice, deviceID, d); err != nil {
		return 0, err
	}
	if err = r.stageHistory(b, deviceID, status, notes, caller, now); err != nil {
		return 0, err
	}

	if err = b.apply(); err != nil {
		return 0, err
	}
	return deviceID, nil
}

// Device returns the stored device or nil when there is none.
func (r *Registry) Device(_ context.Context, deviceID uint64) (*Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.device(deviceID)
}

// History returns the entries recorded for a device in creation order.
// Unknown devices have an empty history.
func (r *Registry) History(_ context.Context, deviceID uint64) ([]HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, err := scanIndex(r.state, indexDeviceHistory, formatID(deviceID))
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(ids))
	for _, id := range ids {
		e, err := r.historyEntry(id)
		if err != nil {
			return nil, err
		}
		if e == nil {
			return nil, fmt.Errorf("%w: history %d of device %d is missing", ErrCorruptedState, id, deviceID)
		}
		entries = append(entries, *e)
	}

	return entries, nil
}

// HistoryEntry returns a single history entry or nil.
func (r *Registry) HistoryEntry(_ context.Context, historyID uint64) (*HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.historyEntry(historyID)
}

// DevicesByOwner returns the devices registered by owner ordered by id.
func (r *Registry) DevicesByOwner(_ context.Context, owner string) ([]Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, err := scanIndex(r.state, indexOwnerDevice, owner)
	if err != nil {
		return nil, err
	}

	devices := make([]Device, 0, len(ids))
	for _, id := range ids {
		d, err := r.device(id)
		if err != nil {
			return nil, err
		}
		if d == nil {
			return nil, fmt.Errorf("%w: device %d of %s is missing", ErrCorruptedState, id, owner)
		}
		devices = append(devices, *d)
	}

	return devices, nil
}

// LastDeviceID returns the most recently assigned device id, 0 if none.
func (r *Registry) LastDeviceID(context.Context) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return loadCounter(r.state, keyLastDeviceID)
}

// LastHistoryID returns the most recently assigned history id, 0 if none.
func (r *Registry) LastHistoryID(context.Context) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return loadCounter(r.state, keyLastHistoryID)
}

func (r *Registry) device(id uint64) (*Device, error) {
	d := new(Device)
	found, err := getJSON(r.state, prefixDevice, id, d)
	if err != nil || !found {
		return nil, err
	}
	return d, nil
}

func (r *Registry) historyEntry(id uint64) (*HistoryEntry, error) {
	e := new(HistoryEntry)
	found, err := getJSON(r.state, prefixHistory, id, e)
	if err != nil || !found {
		return nil, err
	}
	return e, nil
}

// stageHistory adds the next history entry of a device to b.
func (r *Registry) stageHistory(b *batch, deviceID uint64, status, notes, caller string, now int64) error {
	id, err := peekID(r.state, keyLastHistoryID)
	if err != nil {
		return err
	}

	e := &HistoryEntry{
		ID:        id,
		DeviceID:  deviceID,
		Status:    status,
		Notes:     notes,
		UpdatedBy: caller,
		Timestamp: now,
	}

	b.putCounter(keyLastHistoryID, id)
	if err = b.putJSON(prefixHistory, id, e); err != nil {
		return err
	}
	return b.putIndex(indexDeviceHistory, formatID(deviceID), formatID(id))
}
