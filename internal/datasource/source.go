// Package datasource fetches backgrounds and frames from a replay server.
package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daviddao/antmatch_viewer/internal/config"
	"github.com/daviddao/antmatch_viewer/internal/replay"
)

// Source fetches replay data for one match.
type Source interface {
	Background(ctx context.Context, m replay.Match) (*replay.Background, error)
	// Frame fetches frameNo. The server may answer with a different frame.
	Frame(ctx context.Context, m replay.Match, frameNo int) (*replay.Frame, error)
	Close() error
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("GET %s: %d %s: %s", e.URL, e.Status, http.StatusText(e.Status), e.Body)
	}
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Status, http.StatusText(e.Status))
}

// ErrNotFound matches StatusError values with status 404.
var ErrNotFound = errors.New("not found")

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Discover resolves the server base URL: the explicit value if set, else the
// configured one. Only http and https servers are accepted.
func Discover(explicit string, cfg config.Viewer) (*url.URL, error) {
	raw := explicit
	if raw == "" {
		raw = cfg.Server
	}
	if raw == "" {
		raw = config.DefaultServer
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("server %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery, u.Fragment = "", ""
	return u, nil
}

// Open returns the Source selected by cfg.Transport.
func Open(base *url.URL, cfg config.Viewer) (Source, error) {
	transport, err := config.ParseTransport(string(cfg.Transport))
	if err != nil {
		return nil, err
	}
	hs := NewHTTPSource(base, cfg.RequestTimeout)
	if transport == config.TransportWS {
		return NewWSSource(hs), nil
	}
	return hs, nil
}

// HTTPSource fetches over plain HTTP GETs.
type HTTPSource struct {
	base    *url.URL
	client  *http.Client
	session string
}

// NewHTTPSource returns a source for the server at base. A zero timeout
// leaves requests unbounded.
func NewHTTPSource(base *url.URL, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		base:    base,
		client:  &http.Client{Timeout: timeout},
		session: uuid.NewString(),
	}
}

// Session returns the id sent in replay.SessionHeader.
func (s *HTTPSource) Session() string {
	return s.session
}

func (s *HTTPSource) endpoint(path string, q url.Values) string {
	u := *s.base
	u.Path = s.base.Path + path
	u.RawQuery = q.Encode()
	return u.String()
}

// Background fetches the static match data.
func (s *HTTPSource) Background(ctx context.Context, m replay.Match) (*replay.Background, error) {
	q := url.Values{"match": {m.JSON()}}
	var bg replay.Background
	if err := s.getJSON(ctx, s.endpoint("/api/background", q), &bg); err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	return &bg, nil
}

// Matches lists the matches the server can replay.
func (s *HTTPSource) Matches(ctx context.Context) ([]replay.Match, error) {
	var ms []replay.Match
	if err := s.getJSON(ctx, s.endpoint("/api/matches", nil), &ms); err != nil {
		return nil, fmt.Errorf("matches: %w", err)
	}
	return ms, nil
}

// Frame fetches one frame.
func (s *HTTPSource) Frame(ctx context.Context, m replay.Match, frameNo int) (*replay.Frame, error) {
	q := url.Values{
		"match":    {m.JSON()},
		"frame_no": {strconv.Itoa(frameNo)},
	}
	var f replay.Frame
	if err := s.getJSON(ctx, s.endpoint("/api/frame", q), &f); err != nil {
		return nil, fmt.Errorf("frame %d: %w", frameNo, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("frame %d: %w", frameNo, err)
	}
	return &f, nil
}

// Close releases idle connections.
func (s *HTTPSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *HTTPSource) getJSON(ctx context.Context, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(replay.SessionHeader, s.session)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{URL: u, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", u, err)
	}
	return nil
}
