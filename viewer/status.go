package viewer

import "github.com/zeebo/errs"

// Error is the error class for this package.
var Error = errs.Class("viewer")

// Status is the connection state shown by the status display.
type Status int

const (
	StatusConnecting Status = iota + 1
	StatusOnline
	StatusOffline
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusOnline:
		return "online"
	case StatusOffline:
		return "offline"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Class is the style class the page applies to the status label.
func (s Status) Class() string {
	return "status-" + s.String()
}

func (s *Status) UnmarshalText(text []byte) error {
	for _, candidate := range []Status{StatusConnecting, StatusOnline, StatusOffline, StatusError} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return Error.New("unknown status %q", text)
}
