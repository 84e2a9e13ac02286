package server

import (
	"sync"

	"github.com/jtolio/streamview/viewer"
)

// Panel is the status display. It keeps the last rendered view and hands
// every new one to subscribers.
type Panel struct {
	mu   sync.Mutex
	view viewer.View
	subs map[chan viewer.View]struct{}
}

func NewPanel() *Panel {
	return &Panel{subs: map[chan viewer.View]struct{}{}}
}

func (p *Panel) Render(v viewer.View) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view = v
	for ch := range p.subs {
		// a slow subscriber only ever holds the newest view
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}

func (p *Panel) View() viewer.View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// Subscribe returns a channel that receives the current view and then
// every later one. Call the returned func to stop.
func (p *Panel) Subscribe() (<-chan viewer.View, func()) {
	ch := make(chan viewer.View, 1)
	p.mu.Lock()
	p.subs[ch] = struct{}{}
	ch <- p.view
	p.mu.Unlock()
	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, ch)
	}
}
