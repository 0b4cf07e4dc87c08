// amv-gui is a windowed replay viewer for two-colony ant matches.
//
// It shows the same match as amv, drawn as real hexagons: drag to pan,
// scroll to zoom, click an ant to select it. Arrow keys step frames (shift
// ×10, ctrl ×100).
//
// Usage:
//
//	amv-gui '<address>'             # Open the match in a viewer address
//	amv-gui --server host:8000 ...  # Use a specific replay server
//	amv-gui --transport ws ...      # Fetch frames over a WebSocket
//	amv-gui --frame 500 ...         # Start at frame 500
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/mattn/go-isatty"

	"github.com/daviddao/antmatch_viewer/internal/config"
	"github.com/daviddao/antmatch_viewer/internal/controller"
	"github.com/daviddao/antmatch_viewer/internal/datasource"
	"github.com/daviddao/antmatch_viewer/internal/logger"
	"github.com/daviddao/antmatch_viewer/internal/replay"
)

// Version is set via ldflags at build time (e.g. -X main.Version=v0.1.0).
var Version = "dev"

const (
	windowWidth  = 1280
	windowHeight = 800
)

type options struct {
	cfg   config.Viewer
	match replay.Match
	frame int
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err == flag.ErrHelp {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "amv-gui: %v\n", err)
		os.Exit(1)
	}
	if opts == nil {
		fmt.Printf("amv-gui %s\n", Version)
		os.Exit(0)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "amv-gui: %v\n", err)
		os.Exit(1)
	}
}

// parseArgs resolves flags over the config file and environment. It
// returns nil options for --version.
func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("amv-gui", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file (default: $AMV_CONFIG or ~/.config/amv/config.yaml)")
	server := fs.String("server", "", "replay server URL (default: config, $AMV_SERVER, "+config.DefaultServer+")")
	transport := fs.String("transport", "", "frame transport: http or ws")
	timeout := fs.Duration("timeout", -1, "per-request timeout, 0 for none")
	follow := fs.Bool("follow", false, "keep the selected ant centred")
	frame := fs.Int("frame", 0, "frame to open at")
	versionFlag := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *versionFlag {
		return nil, nil
	}

	var (
		file config.File
		err  error
	)
	if *configPath != "" {
		file, err = config.Load(*configPath)
	} else {
		file, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}
	cfg := file.Viewer
	if *server != "" {
		cfg.Server = *server
	}
	if *transport != "" {
		t, err := config.ParseTransport(*transport)
		if err != nil {
			return nil, err
		}
		cfg.Transport = t
	}
	if *timeout >= 0 {
		cfg.RequestTimeout = *timeout
	}
	if *follow {
		cfg.Follow = true
	}

	if fs.NArg() != 1 {
		return nil, fmt.Errorf("usage: amv-gui [flags] <address or fragment>")
	}
	m, err := replay.ParseFragment(fs.Arg(0))
	if err != nil {
		return nil, err
	}
	if *frame < 0 {
		return nil, fmt.Errorf("frame %d is negative", *frame)
	}
	return &options{cfg: cfg, match: m, frame: *frame}, nil
}

func run(opts *options) error {
	logger.Init(os.Stderr, isatty.IsTerminal(os.Stderr.Fd()))

	base, err := datasource.Discover("", opts.cfg)
	if err != nil {
		return err
	}
	logger.Log.WithField("match", opts.match.Key()).WithField("server", base.String()).Info("amv-gui starting")

	src, err := datasource.Open(base, opts.cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	timeout := opts.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	bg, err := src.Background(ctx, opts.match)
	cancel()
	if err != nil {
		return err
	}

	g := newGame(src, opts.match, bg, base.String())
	if opts.cfg.Follow {
		g.viewer.Dispatch(controller.ToggleFollow{})
	}
	g.start(opts.frame)

	ebiten.SetWindowTitle("amv - " + opts.match.String())
	ebiten.SetWindowSize(windowWidth, windowHeight)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(g)
}
