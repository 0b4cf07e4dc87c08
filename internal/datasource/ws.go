package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/daviddao/antmatch_viewer/internal/logger"
	"github.com/daviddao/antmatch_viewer/internal/replay"
)

// ErrClosed is returned by fetches on a closed source.
var ErrClosed = errors.New("datasource: closed")

// WSSource fetches frames over one WebSocket per match. Replies may arrive
// in any order; each is routed to its caller by seq. Backgrounds still come
// over HTTP.
type WSSource struct {
	http *HTTPSource

	mu      sync.Mutex
	conn    *websocket.Conn
	match   string
	seq     uint64
	pending map[uint64]chan replay.FrameReply
	closed  bool

	writeMu sync.Mutex
}

// NewWSSource returns a socket source that shares hs's server and session.
func NewWSSource(hs *HTTPSource) *WSSource {
	return &WSSource{http: hs, pending: make(map[uint64]chan replay.FrameReply)}
}

// Background fetches over HTTP.
func (s *WSSource) Background(ctx context.Context, m replay.Match) (*replay.Background, error) {
	return s.http.Background(ctx, m)
}

// Frame sends a request over the match's socket and waits for its reply,
// no longer than the HTTP source's request timeout when it has one.
func (s *WSSource) Frame(ctx context.Context, m replay.Match, frameNo int) (*replay.Frame, error) {
	if timeout := s.http.client.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	conn, seq, ch, err := s.register(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", frameNo, err)
	}
	defer s.unregister(seq)

	s.writeMu.Lock()
	err = conn.WriteJSON(replay.FrameRequest{FrameNo: frameNo, Seq: seq})
	s.writeMu.Unlock()
	if err != nil {
		s.drop(conn, err)
		return nil, fmt.Errorf("frame %d: send: %w", frameNo, err)
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("frame %d: %w", frameNo, ctx.Err())
	case reply, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("frame %d: connection lost", frameNo)
		}
		if reply.Error != "" {
			return nil, fmt.Errorf("frame %d: server: %s", frameNo, reply.Error)
		}
		if reply.Frame == nil {
			return nil, fmt.Errorf("frame %d: empty reply", frameNo)
		}
		if err := reply.Frame.Validate(); err != nil {
			return nil, fmt.Errorf("frame %d: %w", frameNo, err)
		}
		return reply.Frame, nil
	}
}

// Close shuts the socket. Pending fetches fail.
func (s *WSSource) Close() error {
	s.mu.Lock()
	s.closed = true
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		s.drop(conn, ErrClosed)
	}
	return s.http.Close()
}

// register dials on first use or when the match changes, then reserves a
// seq and its reply channel.
func (s *WSSource) register(ctx context.Context, m replay.Match) (*websocket.Conn, uint64, chan replay.FrameReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, 0, nil, ErrClosed
	}

	key := m.Key()
	if s.conn != nil && s.match != key {
		old := s.conn
		s.conn = nil
		for seq, ch := range s.pending {
			close(ch)
			delete(s.pending, seq)
		}
		go old.Close()
	}
	if s.conn == nil {
		conn, err := s.dial(ctx, m)
		if err != nil {
			return nil, 0, nil, err
		}
		s.conn, s.match = conn, key
		go s.readLoop(conn)
	}

	s.seq++
	ch := make(chan replay.FrameReply, 1)
	s.pending[s.seq] = ch
	return s.conn, s.seq, ch, nil
}

func (s *WSSource) unregister(seq uint64) {
	s.mu.Lock()
	delete(s.pending, seq)
	s.mu.Unlock()
}

func (s *WSSource) dial(ctx context.Context, m replay.Match) (*websocket.Conn, error) {
	u := *s.http.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = s.http.base.Path + "/api/ws"
	u.RawQuery = url.Values{"match": {m.JSON()}}.Encode()

	header := http.Header{}
	header.Set(replay.SessionHeader, s.http.session)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, &StatusError{URL: u.String(), Status: resp.StatusCode}
		}
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}
	logger.Log.WithField("url", u.String()).Debug("frame socket open")
	return conn, nil
}

func (s *WSSource) readLoop(conn *websocket.Conn) {
	for {
		var reply replay.FrameReply
		if err := conn.ReadJSON(&reply); err != nil {
			s.drop(conn, err)
			return
		}
		s.mu.Lock()
		ch, ok := s.pending[reply.Seq]
		if ok {
			delete(s.pending, reply.Seq)
		}
		s.mu.Unlock()
		if !ok {
			logger.Log.WithField("seq", reply.Seq).Debug("reply for abandoned request")
			continue
		}
		ch <- reply
	}
}

// drop closes conn and, if it is still the current socket, fails every
// waiting fetch so the next one redials.
func (s *WSSource) drop(conn *websocket.Conn, cause error) {
	s.mu.Lock()
	current := s.conn == conn
	var waiting map[uint64]chan replay.FrameReply
	if current {
		s.conn = nil
		waiting = s.pending
		s.pending = make(map[uint64]chan replay.FrameReply)
	}
	s.mu.Unlock()

	conn.Close()
	if cause != nil && !errors.Is(cause, ErrClosed) && !websocket.IsCloseError(cause, websocket.CloseNormalClosure) {
		logger.Log.WithError(cause).Debug("frame socket dropped")
	}
	for _, ch := range waiting {
		close(ch)
	}
}
