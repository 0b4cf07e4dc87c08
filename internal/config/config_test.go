package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"AMV_SERVER", "AMV_TRANSPORT", "AMV_REPLAYS", "AMV_DATABASE", "PORT", "AMV_CONFIG"} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Viewer.Server != DefaultServer || cfg.Viewer.Transport != TransportHTTP {
		t.Errorf("viewer = %+v", cfg.Viewer)
	}
	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("server = %+v", cfg.Server)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
viewer:
  server: http://replays.local:9000
  transport: ws
  request_timeout: 5s
  follow: true
server:
  replays: /srv/replays
  database: /srv/replays.db
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Viewer.Server != "http://replays.local:9000" || cfg.Viewer.Transport != TransportWS {
		t.Errorf("viewer = %+v", cfg.Viewer)
	}
	if cfg.Viewer.RequestTimeout != 5*time.Second || !cfg.Viewer.Follow {
		t.Errorf("viewer = %+v", cfg.Viewer)
	}
	if cfg.Server.Replays != "/srv/replays" || cfg.Server.Database != "/srv/replays.db" {
		t.Errorf("server = %+v", cfg.Server)
	}
	// Unset keys keep their defaults.
	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("viewer:\n  server: http://file\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("AMV_SERVER", "http://env")
	t.Setenv("PORT", "9999")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Viewer.Server != "http://env" {
		t.Errorf("server = %q, want env value", cfg.Viewer.Server)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
}

func TestLoadBadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("viewer: [unclosed"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadBadTransport(t *testing.T) {
	clearEnv(t)
	t.Setenv("AMV_TRANSPORT", "carrier-pigeon")
	if _, err := Load(""); err == nil {
		t.Error("expected transport error")
	}
}

func TestParseTransport(t *testing.T) {
	tests := []struct {
		in   string
		want Transport
		err  bool
	}{
		{"http", TransportHTTP, false},
		{"", TransportHTTP, false},
		{"WS", TransportWS, false},
		{"websocket", TransportWS, false},
		{"grpc", "", true},
	}
	for _, tt := range tests {
		got, err := ParseTransport(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("ParseTransport(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv("AMV_CONFIG", "/tmp/custom.yaml")
	p, err := Path()
	if err != nil || p != "/tmp/custom.yaml" {
		t.Errorf("Path = %q, %v", p, err)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "amv", "config.yaml")
	cfg := Defaults()
	cfg.Viewer.Server = "http://written"
	if err := Write(path, cfg); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Viewer.Server != "http://written" {
		t.Errorf("server = %q", got.Viewer.Server)
	}
}
