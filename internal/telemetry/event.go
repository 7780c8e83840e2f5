package telemetry

import "fmt"

const (
	maxObjectLen     = 20
	maxMethodLen     = 20
	maxValueLen      = 80
	maxExtraKeyLen   = 15
	maxExtraValueLen = 85
	maxExtras        = 10
)

// Event is a telemetry event. Field lengths are bounded by the ping schema.
type Event struct {
	Object string            `json:"object"`
	Method string            `json:"method"`
	Value  *string           `json:"value,omitempty"`
	Extra  map[string]string `json:"extra,omitempty"`
}

// NewEvent validates object and method.
func NewEvent(object, method string) (*Event, error) {
	if len(object) > maxObjectLen || len(method) > maxMethodLen {
		return nil, fmt.Errorf("%w: object %q method %q", ErrEventField, object, method)
	}
	return &Event{Object: object, Method: method}, nil
}

// SetValue sets the optional value.
func (e *Event) SetValue(v string) error {
	if len(v) > maxValueLen {
		return fmt.Errorf("%w: value is %d bytes", ErrEventField, len(v))
	}
	e.Value = &v
	return nil
}

// AddExtra adds one extra key.
func (e *Event) AddExtra(key, val string) error {
	if len(key) > maxExtraKeyLen || len(val) > maxExtraValueLen {
		return fmt.Errorf("%w: extra %q", ErrEventField, key)
	}
	if e.Extra == nil {
		e.Extra = make(map[string]string)
	} else if _, exists := e.Extra[key]; !exists && len(e.Extra) >= maxExtras {
		return fmt.Errorf("%w: more than %d extras", ErrEventField, maxExtras)
	}
	e.Extra[key] = val
	return nil
}
