package viewer

import (
	"context"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
	"storj.io/common/time2"

	"github.com/jtolio/streamview/utils"
)

// Media is the element whose source the viewer drives. Setting a source
// starts an asynchronous fetch that supersedes the previous one.
type Media interface {
	SetSource(url string)
}

// Display shows the current View.
type Display interface {
	Render(View)
}

type Timer interface {
	Stop() bool
}

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// View is what the status display shows.
type View struct {
	Status         Status `json:"status"`
	Label          string `json:"label"`
	Class          string `json:"class"`
	ConnectionInfo string `json:"connection_info"`
	Loading        bool   `json:"loading"`
	ErrorPanel     bool   `json:"error_panel"`
	MediaVisible   bool   `json:"media_visible"`
	Uptime         string `json:"uptime"`
	LastUpdated    string `json:"last_updated"`
	URL            string `json:"url"`
	ErrorCount     int    `json:"error_count"`
	MaxErrors      int    `json:"max_errors"`
}

// Viewer owns the single viewer state. Events are applied one at a time by
// Run; everything else talks to it through Post.
type Viewer struct {
	cfg     Config
	machine Machine
	media   Media
	display Display
	clock   Clock

	events chan Event
	done   chan struct{}

	startedAt time.Time
	state     State
	uptime    string
	retry     Timer
}

func New(cfg Config, candidates []string, media Media, display Display) *Viewer {
	return newViewer(cfg, candidates, media, display, systemClock{})
}

func newViewer(cfg Config, candidates []string, media Media, display Display, clock Clock) *Viewer {
	v := &Viewer{
		cfg: cfg,
		machine: Machine{
			Candidates: candidates,
			MaxErrors:  cfg.MaxErrors,
			RetryDelay: cfg.RetryDelay,
		},
		media:     media,
		display:   display,
		clock:     clock,
		events:    make(chan Event, 64),
		done:      make(chan struct{}),
		startedAt: clock.Now(),
	}
	v.state = v.machine.Initial()
	v.uptime = FormatUptime(0)
	v.display.Render(v.View())
	return v
}

// Run connects and then applies posted events until ctx is canceled.
func (v *Viewer) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		v.tick(ctx, v.cfg.UptimeInterval, EventTickUptime)
		return nil
	})
	group.Go(func() error {
		v.tick(ctx, v.cfg.LastUpdatedInterval, EventTickLastUpdated)
		return nil
	})
	group.Go(func() error { return v.loop(ctx) })
	return group.Wait()
}

func (v *Viewer) loop(ctx context.Context) error {
	defer close(v.done)
	defer v.stopRetry()
	v.Handle(Event{Kind: EventConnect})
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-v.events:
			v.Handle(ev)
		}
	}
}

func (v *Viewer) tick(ctx context.Context, interval time.Duration, kind EventKind) {
	if interval <= 0 {
		return
	}
	for time2.Sleep(ctx, interval) {
		v.Post(Event{Kind: kind})
	}
}

// Post queues ev for Run. It is safe to call from any goroutine and returns
// without effect once Run has stopped.
func (v *Viewer) Post(ev Event) {
	select {
	case v.events <- ev:
	case <-v.done:
	}
}

// Handle applies a single event. It must only be called from the goroutine
// running the event loop, or in tests.
func (v *Viewer) Handle(ev Event) {
	if ev.At.IsZero() {
		ev.At = v.clock.Now()
	}
	if ev.Kind == EventTickUptime {
		v.uptime = FormatUptime(ev.At.Sub(v.startedAt))
	}

	prev := v.state
	next, effects := v.machine.Apply(prev, ev)
	v.state = next
	if prev.Status != next.Status || prev.ErrorCount != next.ErrorCount {
		slog.Info("stream status", "status", next.Status, "message", next.Message,
			"event", ev.Kind, "url", next.ActiveURL)
	}

	for _, effect := range effects {
		v.execute(effect)
	}
	v.display.Render(v.View())
}

func (v *Viewer) execute(effect Effect) {
	switch effect.Kind {
	case EffectSetSource:
		if v.state.ErrorCount > 0 {
			slog.Debug("reconnecting", "attempt", v.state.ErrorCount, "url", effect.URL)
		}
		v.media.SetSource(effect.URL)
	case EffectScheduleRetry:
		v.stopRetry()
		delay := effect.Delay
		if v.cfg.RetryJitter {
			delay = utils.NormJitter(delay)
		}
		gen := effect.Gen
		v.retry = v.clock.AfterFunc(delay, func() {
			v.Post(Event{Kind: EventRetry, Gen: gen})
		})
	case EffectCancelRetry:
		v.stopRetry()
	}
}

func (v *Viewer) stopRetry() {
	if v.retry != nil {
		v.retry.Stop()
		v.retry = nil
	}
}

func (v *Viewer) View() View {
	s := v.state
	return View{
		Status:         s.Status,
		Label:          s.Message,
		Class:          s.Status.Class(),
		ConnectionInfo: ConnectionInfo(s.ActiveURL),
		Loading:        s.Loading,
		ErrorPanel:     s.ErrorPanel,
		MediaVisible:   s.MediaVisible,
		Uptime:         v.uptime,
		LastUpdated:    FormatTimeOfDay(s.LastUpdatedAt),
		URL:            s.ActiveURL,
		ErrorCount:     s.ErrorCount,
		MaxErrors:      s.MaxErrors,
	}
}

// Refresh resets the failure counter and reconnects. It is the only way
// out of the error state.
func (v *Viewer) Refresh() { v.Post(Event{Kind: EventRefresh}) }

func (v *Viewer) OnLoadStart() { v.Post(Event{Kind: EventLoadStart}) }

func (v *Viewer) OnLoad() { v.Post(Event{Kind: EventLoadSuccess}) }

func (v *Viewer) OnError(err error) {
	slog.Debug("stream load failed", "err", err)
	v.Post(Event{Kind: EventLoadFailure})
}
