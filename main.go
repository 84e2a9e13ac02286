package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/dsnet/try"
	"github.com/spf13/pflag"
	"golang.org/x/exp/slog"
	"gopkg.in/webhelp.v1/whfatal"
	"gopkg.in/webhelp.v1/whlog"
	"gopkg.in/webhelp.v1/whroute"
	"storj.io/private/cfgstruct"

	"github.com/jtolio/streamview/media"
	"github.com/jtolio/streamview/server"
	"github.com/jtolio/streamview/viewer"
)

var cfg struct {
	Addr   string `default:"127.0.0.1:3333" help:"address to listen on"`
	Server server.Config
	Viewer viewer.Config
	Media  media.Config
}

func init() { cfgstruct.Bind(pflag.CommandLine, &cfg) }

func main() {
	pflag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	candidates := try.E1(cfg.Viewer.Candidates())
	if len(candidates) == 0 {
		slog.Warn("no stream url configured")
	}

	stream := media.NewStream(cfg.Media)
	defer func() { _ = stream.Close() }()

	panel := server.NewPanel()
	v := viewer.New(cfg.Viewer, candidates, stream, panel)
	stream.Listen(v)

	s := server.New(cfg.Server, panel, v, stream)

	go func() {
		try.E(whlog.ListenAndServe(cfg.Addr,
			whlog.LogRequests(logDebug, whlog.LogResponses(logDebug,
				whfatal.Catch(tryShim(s))))))
	}()
	slog.Info("viewer listening", "addr", "http://"+cfg.Addr, "candidates", len(candidates))

	if err := v.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		try.E(err)
	}
}

// tryShim turns a try panic inside a handler into a whfatal error.
func tryShim(h http.Handler) http.Handler {
	return whroute.HandlerFunc(h, func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer try.HandleF(&err, func() { whfatal.Error(err) })
		h.ServeHTTP(w, r)
	})
}

func logDebug(format string, arg ...interface{}) {
	slog.Debug(fmt.Sprintf(format, arg...))
}
