// amv-server serves ant match replays to the amv viewers.
//
// Replays come from a directory of *.replay.json and *.world files, which is
// watched and reloaded on change, or from a SQLite database filled with the
// import command.
//
// Usage:
//
//	amv-server                          # Serve ./replays on 127.0.0.1:8000
//	amv-server serve --replays dir      # Serve another directory
//	amv-server serve --db replays.db    # Serve an imported database
//	amv-server import --db replays.db a.replay.json b.replay.json
//	amv-server version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"github.com/daviddao/antmatch_viewer/internal/config"
	"github.com/daviddao/antmatch_viewer/internal/logger"
	"github.com/daviddao/antmatch_viewer/internal/replay"
	"github.com/daviddao/antmatch_viewer/internal/replaystore"
	"github.com/daviddao/antmatch_viewer/internal/server"
)

// Version is set via ldflags at build time (e.g. -X main.Version=v0.1.0).
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "amv-server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}
	switch cmd {
	case "serve":
		return serve(ctx, args, stdout, stderr)
	case "import":
		return importReplays(ctx, args, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "amv-server %s\n", Version)
		return nil
	}
	return fmt.Errorf("unknown command %q (valid: serve, import, version)", cmd)
}

// serveConfig resolves the serve flags over the config file.
func serveConfig(args []string, stderr io.Writer) (config.Server, error) {
	fs := flag.NewFlagSet("amv-server serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file (default: $AMV_CONFIG or ~/.config/amv/config.yaml)")
	addr := fs.String("addr", "", "listen address (default: config, $PORT, "+config.DefaultAddr+")")
	replays := fs.String("replays", "", "replay directory")
	db := fs.String("db", "", "serve this SQLite database instead of a directory")
	if err := fs.Parse(args); err != nil {
		return config.Server{}, err
	}
	if fs.NArg() != 0 {
		return config.Server{}, fmt.Errorf("serve: unexpected arguments %q", fs.Args())
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
		return config.Server{}, err
	}
	cfg := file.Server
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *replays != "" {
		cfg.Replays = *replays
		cfg.Database = ""
	}
	if *db != "" {
		cfg.Database = *db
	}
	return cfg, nil
}

// openStore opens the configured store. For a directory it also starts the
// watcher, which stops with ctx.
func openStore(ctx context.Context, cfg config.Server) (replaystore.Store, error) {
	if cfg.Database != "" {
		return replaystore.OpenSQLite(ctx, cfg.Database)
	}
	ds, err := replaystore.OpenDir(cfg.Replays)
	if err != nil {
		return nil, err
	}
	w, err := replaystore.NewWatcher(ds.Dir())
	if err != nil {
		logger.Log.WithError(err).Warn("replay directory not watched; restart to pick up changes")
		return ds, nil
	}
	go func() {
		ds.Watch(ctx, w)
		w.Close()
	}()
	return ds, nil
}

func serve(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := serveConfig(args, stderr)
	if err != nil {
		return err
	}
	logger.Init(stdout, isTerminal(stdout))
	logger.Log.WithField("version", Version).Info("amv-server starting")

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ms, err := store.Matches(ctx)
	if err != nil {
		return err
	}
	logger.Log.WithFields(logrus.Fields{
		"matches":  len(ms),
		"replays":  cfg.Replays,
		"database": cfg.Database,
	}).Info("replays loaded")

	srv := server.New(store, Version).HTTPServer(cfg.Addr)
	errc := make(chan error, 1)
	go func() {
		logger.Log.Infof("listening on http://%s", cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func importReplays(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("amv-server import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	db := fs.String("db", "", "SQLite database to import into (created if missing)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *db == "" || fs.NArg() == 0 {
		return fmt.Errorf("usage: amv-server import --db <file> <replay.json>...")
	}
	logger.Init(stderr, false)

	store, err := replaystore.OpenSQLite(ctx, *db)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, path := range fs.Args() {
		f, err := replay.ReadFile(path)
		if err != nil {
			return err
		}
		if err := store.Import(ctx, f); err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		fmt.Fprintf(stdout, "imported %s (%d frames)\n", f.Match, len(f.Frames))
	}
	return nil
}
