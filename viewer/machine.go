package viewer

import (
	"fmt"
	"time"
)

type EventKind int

const (
	EventConnect EventKind = iota + 1
	EventLoadStart
	EventLoadSuccess
	EventLoadFailure
	EventRetry
	EventRefresh
	EventTickUptime
	EventTickLastUpdated
)

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventLoadStart:
		return "load-start"
	case EventLoadSuccess:
		return "load-success"
	case EventLoadFailure:
		return "load-failure"
	case EventRetry:
		return "retry"
	case EventRefresh:
		return "refresh"
	case EventTickUptime:
		return "tick-uptime"
	case EventTickLastUpdated:
		return "tick-last-updated"
	default:
		return "unknown"
	}
}

// Event is one input to the state machine. At is when it is handled. Gen
// is only meaningful for EventRetry and names the retry it was scheduled
// as.
type Event struct {
	Kind EventKind
	At   time.Time
	Gen  uint64
}

type EffectKind int

const (
	EffectSetSource EffectKind = iota + 1
	EffectScheduleRetry
	EffectCancelRetry
)

// Effect is I/O the host must perform after a transition.
type Effect struct {
	Kind  EffectKind
	URL   string
	Delay time.Duration
	Gen   uint64
}

// State is everything the viewer knows about the stream. The visibility
// flags mirror the loading indicator, the error panel and the media
// element.
type State struct {
	Status        Status
	Message       string
	ActiveURL     string
	ErrorCount    int
	MaxErrors     int
	LastUpdatedAt time.Time

	Loading      bool
	ErrorPanel   bool
	MediaVisible bool

	RetryPending bool
	RetryGen     uint64
}

// Machine holds the fixed inputs of the transition function.
type Machine struct {
	Candidates []string
	MaxErrors  int
	RetryDelay time.Duration
}

// Initial is the state entered at construction, before the first fetch is
// issued.
func (m Machine) Initial() State {
	s := State{MaxErrors: m.maxErrors(), Loading: true}
	return renderStatus(s, StatusConnecting, "Connecting...")
}

func (m Machine) maxErrors() int {
	if m.MaxErrors < 1 {
		return 1
	}
	return m.MaxErrors
}

func (m Machine) firstCandidate() string {
	if len(m.Candidates) == 0 {
		return ""
	}
	return m.Candidates[0]
}

// Apply is the transition function. It never performs I/O; the returned
// effects say what the host has to do.
func (m Machine) Apply(s State, ev Event) (State, []Effect) {
	s.MaxErrors = m.maxErrors()
	switch ev.Kind {
	case EventConnect:
		return m.connect(s, ev.At)
	case EventRefresh:
		s.ErrorCount = 0
		return m.connect(s, ev.At)
	case EventLoadStart:
		s = renderStatus(s, StatusConnecting, "Loading stream...")
		s.Loading = true
		return s, nil
	case EventLoadSuccess:
		effects := cancelRetry(&s)
		s = renderStatus(s, StatusOnline, "Connected ✓")
		s.Loading = false
		s.ErrorPanel = false
		s.MediaVisible = true
		s.ErrorCount = 0
		s.LastUpdatedAt = ev.At
		return s, effects
	case EventLoadFailure:
		return m.failure(s)
	case EventRetry:
		if !s.RetryPending || ev.Gen != s.RetryGen {
			return s, nil
		}
		s.RetryPending = false
		return s, []Effect{{Kind: EffectSetSource, URL: CacheBust(s.ActiveURL, ev.At)}}
	case EventTickLastUpdated:
		if s.Status == StatusOnline {
			s.LastUpdatedAt = ev.At
		}
		return s, nil
	}
	return s, nil
}

func (m Machine) connect(s State, at time.Time) (State, []Effect) {
	effects := cancelRetry(&s)
	s.ActiveURL = m.firstCandidate()
	s = renderStatus(s, StatusConnecting, "Connecting...")
	s.Loading = true
	s.ErrorPanel = false
	s.MediaVisible = false
	return s, append(effects, Effect{Kind: EffectSetSource, URL: CacheBust(s.ActiveURL, at)})
}

func (m Machine) failure(s State) (State, []Effect) {
	effects := cancelRetry(&s)
	if s.ErrorCount < s.MaxErrors {
		s.ErrorCount++
	}
	s = renderStatus(s, StatusOffline, fmt.Sprintf("Error (%d/%d)", s.ErrorCount, s.MaxErrors))
	s.Loading = false
	s.MediaVisible = false
	if s.ErrorCount >= s.MaxErrors {
		s.Status = StatusError
		s.ErrorPanel = true
		return s, effects
	}
	s.RetryGen++
	s.RetryPending = true
	return s, append(effects, Effect{Kind: EffectScheduleRetry, Delay: m.RetryDelay, Gen: s.RetryGen})
}

func cancelRetry(s *State) []Effect {
	if !s.RetryPending {
		return nil
	}
	s.RetryPending = false
	return []Effect{{Kind: EffectCancelRetry, Gen: s.RetryGen}}
}

func renderStatus(s State, status Status, message string) State {
	s.Status = status
	s.Message = message
	return s
}
