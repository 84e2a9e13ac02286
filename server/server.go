package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dsnet/try"
	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"
	"gopkg.in/webhelp.v1/whfatal"
	"gopkg.in/webhelp.v1/whmux"

	"github.com/jtolio/streamview/utils"
	"github.com/jtolio/streamview/viewer"
)

type Config struct {
	FrameRefresh time.Duration `default:"1s" help:"how often the page reloads the latest frame"`
	Title        string        `default:"Screen Stream" help:"page title"`
}

// Controller takes the user actions from the page.
type Controller interface {
	Refresh()
}

// FrameSource has the newest frame of the stream.
type FrameSource interface {
	Latest() *utils.SerializedImage
}

type Server struct {
	cfg      Config
	panel    *Panel
	control  Controller
	frames   FrameSource
	upgrader websocket.Upgrader

	http.Handler
}

func New(cfg Config, panel *Panel, control Controller, frames FrameSource) *Server {
	s := &Server{
		cfg:     cfg,
		panel:   panel,
		control: control,
		frames:  frames,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	refresh := whmux.Method{"POST": http.HandlerFunc(s.pageRefresh)}
	s.Handler = whmux.Dir{
		"":            whmux.Exact(http.HandlerFunc(s.pageLanding)),
		"status":      whmux.Exact(http.HandlerFunc(s.pageStatus)),
		"events":      whmux.Exact(http.HandlerFunc(s.pageEvents)),
		"latest":      whmux.Exact(http.HandlerFunc(s.pageLatest)),
		"help":        whmux.Exact(http.HandlerFunc(s.pageHelp)),
		"connect":     whmux.ExactPath(refresh),
		"refresh":     whmux.ExactPath(refresh),
		"favicon.ico": whmux.Exact(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})),
	}
	return s
}

func (s *Server) pageLanding(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	try.E(indexHTML.Execute(w, struct {
		Config Config
		View   viewer.View
	}{
		Config: s.cfg,
		View:   s.panel.View(),
	}))
}

func (s *Server) pageStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	try.E(json.NewEncoder(w).Encode(s.panel.View()))
}

// pageRefresh serves both connect and refresh. The viewer exists for the
// whole process, so connecting again is a refresh.
func (s *Server) pageRefresh(w http.ResponseWriter, r *http.Request) {
	s.control.Refresh()
	whfatal.Redirect("/")
}

func (s *Server) pageLatest(w http.ResponseWriter, r *http.Request) {
	latest := s.frames.Latest()
	if latest == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", latest.MIMEType)
	w.Header().Set("Cache-Control", "no-store")
	try.E1(w.Write(latest.Data))
}

func (s *Server) pageHelp(w http.ResponseWriter, r *http.Request) {
	current := s.panel.View().URL
	if current == "" {
		current = "Not configured"
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	try.E1(fmt.Fprintf(w, helpText, current))
}

const helpText = `HOW TO USE:

1. The laptop owner runs the screen capture script.
2. They expose the stream with PlayIt.gg or ngrok.
3. Set --viewer.endpoints (or a --viewer.endpoints-file) to the public link.
4. This page updates by itself.

Current URL: %s
`

func (s *Server) pageEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		slog.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	views, unsubscribe := s.panel.Subscribe()
	defer unsubscribe()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case view := <-views:
			if err := conn.WriteJSON(view); err != nil {
				slog.Debug("websocket write failed", "err", err)
				return
			}
		}
	}
}
