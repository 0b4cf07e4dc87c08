// amv is a terminal replay viewer for two-colony ant matches.
//
// It fetches a match's background and frames from a replay server and
// draws the hex map in the terminal. The mouse pans (drag), zooms (wheel)
// and selects ants (click); the selected ant's automaton is listed beside
// the map with its current state highlighted.
//
// Usage:
//
//	amv '<address>'             # Open the match in a viewer address
//	amv '#%7B"world"...%7D'     # Or just its fragment
//	amv --server host:8000 ...  # Use a specific replay server
//	amv --transport ws ...      # Fetch frames over a WebSocket
//	amv --frame 500 ...         # Start at frame 500
//	amv --json ...              # Dump the background and one frame as JSON
//	amv --print-url ...         # Print the canonical address and exit
//	amv --list                  # List the server's matches and exit
//	amv --version               # Print version and exit
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/daviddao/antmatch_viewer/internal/config"
	"github.com/daviddao/antmatch_viewer/internal/controller"
	"github.com/daviddao/antmatch_viewer/internal/datasource"
	"github.com/daviddao/antmatch_viewer/internal/logger"
	"github.com/daviddao/antmatch_viewer/internal/replay"
)

// Version is set via ldflags at build time (e.g. -X main.Version=v0.1.0).
var Version = "dev"

// jsonOutput is the structure for --json mode.
type jsonOutput struct {
	Match      replay.Match       `json:"match"`
	Address    string             `json:"address"`
	Background *replay.Background `json:"background"`
	Frame      *replay.Frame      `json:"frame"`
	Stats      jsonStats          `json:"stats"`
}

type jsonStats struct {
	RedAnts       int `json:"red_ants"`
	RedCarrying   int `json:"red_carrying"`
	BlackAnts     int `json:"black_ants"`
	BlackCarrying int `json:"black_carrying"`
	FoodOnGround  int `json:"food_on_ground"`
}

// options are the resolved command-line settings.
type options struct {
	cfg      config.Viewer
	match    replay.Match
	frame    int
	jsonMode bool
	printURL bool
	list     bool
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err == flag.ErrHelp {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "amv: %v\n", err)
		os.Exit(1)
	}
	if opts == nil {
		fmt.Printf("amv %s\n", Version)
		os.Exit(0)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "amv: %v\n", err)
		os.Exit(1)
	}
}

// parseArgs resolves flags over the config file and environment. It
// returns nil options for --version.
func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("amv", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file (default: $AMV_CONFIG or ~/.config/amv/config.yaml)")
	server := fs.String("server", "", "replay server URL (default: config, $AMV_SERVER, "+config.DefaultServer+")")
	transport := fs.String("transport", "", "frame transport: http or ws")
	logFile := fs.String("log", "", "log file (the terminal is taken by the viewer)")
	timeout := fs.Duration("timeout", -1, "per-request timeout, 0 for none")
	follow := fs.Bool("follow", false, "keep the selected ant centred")
	frame := fs.Int("frame", 0, "frame to open at")
	jsonMode := fs.Bool("json", false, "dump the background and frame as JSON and exit (no TUI)")
	printURL := fs.Bool("print-url", false, "print the viewer address for the match and exit")
	list := fs.Bool("list", false, "list the server's matches and exit")
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
	if *logFile != "" {
		cfg.LogFile = *logFile
	}
	if *timeout >= 0 {
		cfg.RequestTimeout = *timeout
	}
	if *follow {
		cfg.Follow = true
	}

	if *list {
		return &options{cfg: cfg, list: true}, nil
	}
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("usage: amv [flags] <address or fragment>")
	}
	m, err := replay.ParseFragment(fs.Arg(0))
	if err != nil {
		return nil, err
	}
	if *frame < 0 {
		return nil, fmt.Errorf("frame %d is negative", *frame)
	}

	return &options{
		cfg:      cfg,
		match:    m,
		frame:    *frame,
		jsonMode: *jsonMode,
		printURL: *printURL,
	}, nil
}

func run(opts *options) error {
	base, err := datasource.Discover("", opts.cfg)
	if err != nil {
		return err
	}

	if opts.printURL {
		fmt.Println(opts.match.Address(base.String()))
		return nil
	}
	if opts.list {
		return listMatches(os.Stdout, base.String(), datasource.NewHTTPSource(base, startupTimeout(opts.cfg)))
	}

	if !opts.jsonMode {
		closer, err := logger.InitFile(opts.cfg.LogFile)
		if err != nil {
			return err
		}
		defer closer.Close()
	} else {
		logger.Init(os.Stderr, false)
	}
	logger.Log.WithField("match", opts.match.Key()).WithField("server", base.String()).Info("amv starting")

	src, err := datasource.Open(base, opts.cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	// The background is needed before anything can be drawn; failing to
	// get it is fatal.
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout(opts.cfg))
	bg, err := src.Background(ctx, opts.match)
	cancel()
	if err != nil {
		return err
	}

	if opts.jsonMode {
		return dumpJSON(src, opts, base.String(), bg)
	}

	m := newModel(src, opts.match, bg, base.String())
	m.startFrame = opts.frame
	if opts.cfg.Follow {
		m.viewer.Dispatch(controller.ToggleFollow{})
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func startupTimeout(cfg config.Viewer) time.Duration {
	if cfg.RequestTimeout > 0 {
		return cfg.RequestTimeout
	}
	return 30 * time.Second
}

func listMatches(w io.Writer, server string, hs *datasource.HTTPSource) error {
	defer hs.Close()
	ms, err := hs.Matches(context.Background())
	if err != nil {
		return err
	}
	if len(ms) == 0 {
		fmt.Fprintln(w, "no matches")
		return nil
	}
	for _, m := range ms {
		fmt.Fprintf(w, "%s\n  amv '%s'\n", m, m.Address(server))
	}
	return nil
}

func dumpJSON(src datasource.Source, opts *options, server string, bg *replay.Background) error {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout(opts.cfg))
	defer cancel()
	f, err := src.Frame(ctx, opts.match, opts.frame)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(buildJSONOutput(opts.match, server, bg, f))
}

// buildJSONOutput gathers a frame and its summary counts.
func buildJSONOutput(m replay.Match, server string, bg *replay.Background, f *replay.Frame) jsonOutput {
	var stats jsonStats
	stats.RedAnts, stats.RedCarrying = f.Count(replay.Red)
	stats.BlackAnts, stats.BlackCarrying = f.Count(replay.Black)
	for _, food := range f.Food {
		stats.FoodOnGround += food.Amount
	}
	return jsonOutput{
		Match:      m,
		Address:    m.Address(strings.TrimRight(server, "/")),
		Background: bg,
		Frame:      f,
		Stats:      stats,
	}
}
