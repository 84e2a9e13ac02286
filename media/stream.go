package media

import (
	"bufio"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeebo/errs"
	"golang.org/x/exp/slog"

	"github.com/jtolio/streamview/utils"
)

// Error is the error class for stream failures.
var Error = errs.Class("media")

// maxFrameRead caps a single frame read so a broken feed cannot exhaust
// memory.
const maxFrameRead = 32 << 20

type Config struct {
	Timeout     time.Duration `default:"10s" help:"timeout for connecting and receiving response headers"`
	MaxBytes    int           `default:"0" help:"max bytes per frame. larger frames are re-encoded as jpeg and downscaled. 0 means no limit"`
	JPEGQuality int           `default:"75" help:"jpeg quality, 1 to 100, used when re-encoding frames"`
	UserAgent   string        `default:"streamview" help:"user agent sent with stream requests"`
}

// Listener receives the load lifecycle of the current source.
type Listener interface {
	OnLoadStart()
	OnLoad()
	OnError(err error)
}

// Stream fetches an image or multipart/x-mixed-replace feed and keeps the
// newest frame. Setting a new source supersedes the previous fetch, and
// events from superseded fetches are never reported.
type Stream struct {
	cfg    Config
	client *http.Client
	latest atomic.Value

	mu       sync.Mutex
	listener Listener
	gen      uint64
	cancel   context.CancelFunc
}

func NewStream(cfg Config) *Stream {
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	return &Stream{
		cfg: cfg,
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           dialer.DialContext,
				TLSHandshakeTimeout:   cfg.Timeout,
				ResponseHeaderTimeout: cfg.Timeout,
			},
		},
	}
}

// Listen sets who gets told about load events.
func (s *Stream) Listen(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

func (s *Stream) SetSource(url string) {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.mu.Unlock()

	go s.fetch(ctx, gen, url)
}

// Latest returns the newest frame, or nil if none has arrived.
func (s *Stream) Latest() *utils.SerializedImage {
	img, _ := s.latest.Load().(*utils.SerializedImage)
	return img
}

// Close aborts the current fetch.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return nil
}

func (s *Stream) current(gen uint64) Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil
	}
	return s.listener
}

// store keeps frame as the latest one unless gen was superseded, and
// returns the listener for gen.
func (s *Stream) store(gen uint64, frame *utils.SerializedImage) Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil
	}
	s.latest.Store(frame)
	return s.listener
}

func (s *Stream) fetch(ctx context.Context, gen uint64, url string) {
	if l := s.current(gen); l != nil {
		l.OnLoadStart()
	}
	err := s.consume(ctx, gen, url)
	if err == nil || ctx.Err() != nil {
		return
	}
	slog.Debug("stream fetch ended", "url", url, "err", err)
	if l := s.current(gen); l != nil {
		l.OnError(err)
	}
}

// consume returns nil only for a single image resource that loaded. A
// multipart feed always ends in an error, even after frames arrived.
func (s *Stream) consume(ctx context.Context, gen uint64, url string) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Error.Wrap(err)
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() { err = errs.Combine(err, resp.Body.Close()) }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Error.New("unexpected status %q", resp.Status)
	}
	var body io.Reader = resp.Body
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		br := bufio.NewReaderSize(resp.Body, 512)
		head, _ := br.Peek(512)
		contentType = http.DetectContentType(head)
		body = br
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return Error.New("bad content type %q: %v", contentType, err)
	}

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		return s.consumeParts(gen, multipart.NewReader(body, params["boundary"]))
	case strings.HasPrefix(mediaType, "image/"):
		data, err := io.ReadAll(io.LimitReader(body, maxFrameRead))
		if err != nil {
			return Error.Wrap(err)
		}
		frame, err := normalize(data, s.cfg)
		if err != nil {
			return err
		}
		if l := s.store(gen, frame); l != nil {
			l.OnLoad()
		}
		return nil
	default:
		return Error.New("unsupported content type %q", mediaType)
	}
}

func (s *Stream) consumeParts(gen uint64, mr *multipart.Reader) error {
	loaded := false
	for {
		part, err := mr.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if !loaded {
					return Error.New("stream ended before the first frame")
				}
				return Error.New("stream ended")
			}
			return Error.Wrap(err)
		}
		// a part only ends when the next boundary arrives, so the frame is
		// decoded straight off the part and published before draining it.
		br := bufio.NewReader(io.LimitReader(part, maxFrameRead))
		if _, err := br.Peek(1); err != nil {
			_ = part.Close()
			if errors.Is(err, io.EOF) {
				continue
			}
			return Error.Wrap(err)
		}
		frame, err := readFrame(br, s.cfg)
		if err != nil {
			return err
		}
		l := s.store(gen, frame)
		if !loaded {
			loaded = true
			if l != nil {
				l.OnLoad()
			}
		}
		_ = part.Close()
	}
}
