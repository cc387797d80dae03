package registry

import (
	"encoding/json"
	"strings"
)

// Well-known device statuses. Status is an open string: any value passed
// to UpdateStatus is stored as is.
const (
	StatusRegistered = "registered"
	StatusMatched    = "matched"
	StatusInRepair   = "in-repair"
	StatusRepaired   = "repaired"
	StatusReturned   = "returned"
)

// History notes written by the registry itself.
const (
	NoteRegistered  = "Device registered for repair"
	NoteInfoUpdated = "Device information updated"
)

// Device is one piece of equipment submitted for repair.
type Device struct {
	ID               uint64 `json:"id"`
	Owner            string `json:"owner"`
	DeviceType       string `json:"deviceType"`
	Manufacturer     string `json:"manufacturer"`
	Model            string `json:"model"`
	SerialNumber     string `json:"serialNumber"`
	Year             int64  `json:"year"`
	IssueDescription string `json:"issueDescription"`
	UrgencyLevel     string `json:"urgencyLevel"`
	Location         string `json:"location"`
	Images           Images `json:"images"`
	Status           string `json:"status"`
	RegistrationDate int64  `json:"registrationDate"`
}

// HistoryEntry is an immutable audit record of one change to a Device.
type HistoryEntry struct {
	ID        uint64 `json:"id"`
	DeviceID  uint64 `json:"deviceId"`
	Status    string `json:"status"`
	Notes     string `json:"notes"`
	UpdatedBy string `json:"updatedBy"`
	Timestamp int64  `json:"timestamp"`
}

// RegisterRequest carries the caller supplied fields of a new device.
type RegisterRequest struct {
	DeviceType       string
	Manufacturer     string
	Model            string
	SerialNumber     string
	Year             int64
	IssueDescription string
	UrgencyLevel     string
	Location         string
	Images           Images
}

// InfoUpdate carries the mutable descriptive fields of a device.
type InfoUpdate struct {
	IssueDescription string
	UrgencyLevel     string
	Location         string
	Images           Images
}

const imagesSeparator = ","

// Images is an ordered list of image URLs. Records keep it as a JSON
// array. As a chaincode argument it may also be one comma-joined string.
type Images []string

// ParseImages splits a comma-joined list. Items are kept as given, blank
// ones included. An empty string is an empty list.
func ParseImages(s string) Images {
	if s == "" {
		return nil
	}
	return strings.Split(s, imagesSeparator)
}

func (im Images) String() string {
	return strings.Join(im, imagesSeparator)
}

func (im Images) MarshalJSON() ([]byte, error) {
	if im == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(im))
}

// UnmarshalJSON accepts a JSON array or a comma-joined string.
func (im *Images) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*im = Images(list)
		return nil
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	*im = ParseImages(joined)
	return nil
}

func (im *Images) UnmarshalText(text []byte) error {
	*im = ParseImages(string(text))
	return nil
}
