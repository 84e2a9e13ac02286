package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gopkg.in/webhelp.v1/whfatal"

	"github.com/jtolio/streamview/utils"
	"github.com/jtolio/streamview/viewer"
)

type fakeController struct {
	refreshes atomic.Int32
}

func (c *fakeController) Refresh() { c.refreshes.Add(1) }

type fakeFrames struct {
	mu    sync.Mutex
	frame *utils.SerializedImage
}

func (f *fakeFrames) Latest() *utils.SerializedImage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame
}

func (f *fakeFrames) set(frame *utils.SerializedImage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frame = frame
}

type testEnv struct {
	panel   *Panel
	control *fakeController
	frames  *fakeFrames
	srv     *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		panel:   NewPanel(),
		control: &fakeController{},
		frames:  &fakeFrames{},
	}
	s := New(Config{FrameRefresh: time.Second, Title: "Test Stream"}, env.panel, env.control, env.frames)
	env.srv = httptest.NewServer(whfatal.Catch(s))
	t.Cleanup(env.srv.Close)
	return env
}

func onlineView() viewer.View {
	return viewer.View{
		Status:         viewer.StatusOnline,
		Label:          "Connected ✓",
		Class:          viewer.StatusOnline.Class(),
		ConnectionInfo: "via ngrok",
		MediaVisible:   true,
		Uptime:         "00:00:42",
		LastUpdated:    "12:00:00",
		URL:            "https://demo.ngrok.io/video_feed",
		MaxErrors:      10,
	}
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body)
}

func TestLanding(t *testing.T) {
	env := newTestEnv(t)
	env.panel.Render(onlineView())

	resp, body := get(t, env.srv.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	for _, want := range []string{"Test Stream", "status-online", "via ngrok", "00:00:42", "toggleFullscreen"} {
		if !strings.Contains(body, want) {
			t.Errorf("page is missing %q", want)
		}
	}
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)
	env.panel.Render(onlineView())

	resp, body := get(t, env.srv.URL+"/status")
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
	var got map[string]interface{}
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("bad json %q: %v", body, err)
	}
	if got["status"] != "online" || got["class"] != "status-online" || got["media_visible"] != true {
		t.Errorf("unexpected status %v", got)
	}
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	for i, path := range []string{"/refresh", "/connect"} {
		resp, err := client.Post(env.srv.URL+path, "application/x-www-form-urlencoded", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode < 300 || resp.StatusCode >= 400 {
			t.Errorf("%s: expected a redirect, got %d", path, resp.StatusCode)
		}
		if got := env.control.refreshes.Load(); got != int32(i+1) {
			t.Errorf("%s: expected %d refreshes, got %d", path, i+1, got)
		}
	}
}

func TestLatest(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := get(t, env.srv.URL+"/latest")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 before the first frame, got %d", resp.StatusCode)
	}

	env.frames.set(&utils.SerializedImage{Data: []byte("jpegdata"), Extension: ".jpg", MIMEType: "image/jpeg"})
	resp, body := get(t, env.srv.URL+"/latest?t=123")
	if resp.StatusCode != http.StatusOK || body != "jpegdata" {
		t.Errorf("unexpected response %d %q", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestHelp(t *testing.T) {
	env := newTestEnv(t)

	_, body := get(t, env.srv.URL+"/help")
	if !strings.Contains(body, "Current URL: Not configured") {
		t.Errorf("unexpected help %q", body)
	}

	env.panel.Render(onlineView())
	_, body = get(t, env.srv.URL+"/help")
	if !strings.Contains(body, "Current URL: https://demo.ngrok.io/video_feed") {
		t.Errorf("unexpected help %q", body)
	}
}

func TestEvents(t *testing.T) {
	env := newTestEnv(t)
	env.panel.Render(onlineView())

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first viewer.View
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read: %v", err)
	}
	if first.Status != viewer.StatusOnline || first.Uptime != "00:00:42" {
		t.Errorf("unexpected first view %+v", first)
	}

	next := onlineView()
	next.Uptime = "00:00:43"
	env.panel.Render(next)

	var second map[string]interface{}
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read: %v", err)
	}
	if second["uptime"] != "00:00:43" {
		t.Errorf("unexpected second view %v", second)
	}
}

func TestPanelSubscribe(t *testing.T) {
	p := NewPanel()
	views, stop := p.Subscribe()
	<-views

	for _, uptime := range []string{"00:00:01", "00:00:02", "00:00:03"} {
		v := onlineView()
		v.Uptime = uptime
		p.Render(v)
	}
	if got := (<-views).Uptime; got != "00:00:03" {
		t.Errorf("expected the newest view, got %q", got)
	}

	stop()
	p.Render(onlineView())
	select {
	case v := <-views:
		t.Errorf("got a view after unsubscribing: %+v", v)
	default:
	}
}
