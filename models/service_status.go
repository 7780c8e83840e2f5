package models

import (
	"encoding/json"
	"fmt"
)

// ServiceStatus is the single overall outcome of a sync call.
type ServiceStatus int

const (
	StatusOk ServiceStatus = iota
	StatusNetworkError
	StatusServiceError
	StatusAuthenticationError
	StatusBackedOff
	StatusInterrupted
	StatusOtherError
)

var serviceStatusNames = map[ServiceStatus]string{
	StatusOk:                  "ok",
	StatusNetworkError:        "network_error",
	StatusServiceError:        "service_error",
	StatusAuthenticationError: "authentication_error",
	StatusBackedOff:           "backed_off",
	StatusInterrupted:         "interrupted",
	StatusOtherError:          "other_error",
}

func (s ServiceStatus) String() string {
	if name, ok := serviceStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ServiceStatus(%d)", int(s))
}

// ParseServiceStatus is the inverse of String.
func ParseServiceStatus(name string) (ServiceStatus, error) {
	for s, n := range serviceStatusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownServiceStatus, name)
}

func (s ServiceStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ServiceStatus) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	parsed, err := ParseServiceStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
