package securedata

import (
	"fmt"
	"strconv"
)

// Status is the SecureDataTransfer response status. It is carried on the
// wire as a uint16; codes outside the known set are vendor extensions and
// are preserved as-is.
type Status uint16

const (
	StatusUnknown  Status = 0
	StatusAccepted Status = 1
	StatusRejected Status = 2
)

var statusNames = map[Status]string{
	StatusUnknown:  "Unknown",
	StatusAccepted: "Accepted",
	StatusRejected: "Rejected",
}

// ParseStatus maps a numeric code to a known status. Unregistered codes
// yield StatusUnknown and false.
func ParseStatus(code uint16) (Status, bool) {
	s := Status(code)
	if _, ok := statusNames[s]; !ok {
		return StatusUnknown, false
	}
	return s, true
}

// ParseStatusString accepts a status name or a decimal code. A decimal code
// is kept even when it is not a known status.
func ParseStatusString(text string) (Status, bool) {
	for s, name := range statusNames {
		if name == text {
			return s, true
		}
	}
	code, err := strconv.ParseUint(text, 10, 16)
	if err != nil {
		return StatusUnknown, false
	}
	return Status(code), true
}

func (s Status) Code() uint16 {
	return uint16(s)
}

func (s Status) IsKnown() bool {
	_, ok := statusNames[s]
	return ok
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("%d", uint16(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, ok := ParseStatusString(string(text))
	if !ok {
		return fmt.Errorf("securedata: invalid status %q", text)
	}
	*s = parsed
	return nil
}
