package viewer

import (
	"testing"
	"time"
)

func TestFormatUptime(t *testing.T) {
	for _, tc := range []struct {
		elapsed time.Duration
		want    string
	}{
		{0, "00:00:00"},
		{999 * time.Millisecond, "00:00:00"},
		{time.Second, "00:00:01"},
		{59 * time.Second, "00:00:59"},
		{60 * time.Second, "00:01:00"},
		{3665 * time.Second, "01:01:05"},
		{36000*time.Second + 1500*time.Millisecond, "10:00:01"},
		{100 * time.Hour, "100:00:00"},
		{-time.Second, "00:00:00"},
	} {
		if got := FormatUptime(tc.elapsed); got != tc.want {
			t.Errorf("FormatUptime(%v) = %q, want %q", tc.elapsed, got, tc.want)
		}
	}
}

func TestConnectionInfo(t *testing.T) {
	for _, tc := range []struct {
		url  string
		want string
	}{
		{"https://demo.playit.gg/video_feed", "via PlayIt.gg"},
		{"https://abc.ngrok.io/video_feed", "via ngrok"},
		{"http://192.168.1.20:5000/video_feed", "Local connection"},
		{"", "Local connection"},
	} {
		if got := ConnectionInfo(tc.url); got != tc.want {
			t.Errorf("ConnectionInfo(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestCacheBust(t *testing.T) {
	at := time.UnixMilli(1234)
	if got := CacheBust("http://host/feed", at); got != "http://host/feed?t=1234" {
		t.Errorf("unexpected %q", got)
	}
	if got := CacheBust("http://host/feed?cam=1", at); got != "http://host/feed?cam=1&t=1234" {
		t.Errorf("unexpected %q", got)
	}
}

func TestStatus(t *testing.T) {
	if StatusOnline.Class() != "status-online" {
		t.Errorf("unexpected class %q", StatusOnline.Class())
	}
	text, err := StatusError.MarshalText()
	if err != nil || string(text) != "error" {
		t.Errorf("unexpected %q %v", text, err)
	}
	if Status(0).String() != "unknown" {
		t.Errorf("zero status should be unknown")
	}
}
