package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/daviddao/antmatch_viewer/internal/logger"
	"github.com/daviddao/antmatch_viewer/internal/replay"
	"github.com/daviddao/antmatch_viewer/internal/replaystore"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// frameConn answers frame requests for one match on one socket. Each
// request is served in its own goroutine, so replies can overtake one
// another.
type frameConn struct {
	id    string
	store replaystore.Store
	match replay.Match
	conn  *websocket.Conn
	send  chan replay.FrameReply
	log   *logrus.Entry
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	m, err := matchParam(r)
	if err != nil {
		httpError(w, r, err)
		return
	}
	// Refuse unknown matches before upgrading so the client sees a status.
	if _, err := s.store.Background(r.Context(), m); err != nil {
		httpError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &frameConn{
		id:    uuid.NewString(),
		store: s.store,
		match: m,
		conn:  conn,
		send:  make(chan replay.FrameReply, 64),
	}
	c.log = logger.Log.WithFields(logrus.Fields{
		"conn":    c.id,
		"session": r.Header.Get(replay.SessionHeader),
		"match":   m.Key(),
	})
	c.log.Info("frame socket connected")

	go c.writePump()
	c.readPump()
}

// readPump reads requests until the socket closes, then waits for the
// in-flight lookups and closes send.
func (c *frameConn) readPump() {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
		close(c.send)
		c.log.Info("frame socket disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.WithError(err).Warn("failed to set read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var req replay.FrameRequest
		if err := c.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("frame socket read")
			}
			return
		}
		// Any traffic proves the peer is alive.
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.WithError(err).Warn("failed to set read deadline")
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			reply := replay.FrameReply{Seq: req.Seq}
			f, err := c.store.Frame(ctx, c.match, req.FrameNo)
			if err != nil {
				reply.Error = err.Error()
			} else {
				reply.Frame = f
			}
			select {
			case c.send <- reply:
			case <-ctx.Done():
			}
		}()
	}
}

// writePump sends replies and keeps the connection alive with pings.
func (c *frameConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case reply, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("failed to set write deadline")
			}
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(reply); err != nil {
				c.log.WithError(err).Debug("write reply failed")
				// Unblock readPump.
				c.conn.Close()
				for range c.send {
				}
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("failed to set ping write deadline")
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Debug("ping failed")
			}
		}
	}
}
