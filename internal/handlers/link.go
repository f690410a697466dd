package handlers

import (
	"sync"
	"time"

	"github.com/ChristiaanHPutter/Skripsie/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Outbound lines queued per companion session before drops kick in.
const linkSendBacklog = 32

// CommandSink is the control-loop side of the companion link: inbound text
// frames become commands, connects and disconnects toggle the session flag.
type CommandSink interface {
	SubmitCommand(payload string)
	SetLinkConnected(connected bool)
}

// linkSession is one accepted companion connection.
type linkSession struct {
	conn *websocket.Conn
	out  chan string
	done chan struct{}
	stop sync.Once
}

func (s *linkSession) close() {
	s.stop.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// LinkHub owns the companion websocket session. There is at most one: a new
// connection supplants the previous one, and Send silently drops lines when
// no companion is attached or the session cannot keep up.
type LinkHub struct {
	log *logger.Logger

	mu   sync.Mutex
	sink CommandSink
	cur  *linkSession
}

// NewLinkHub constructs a hub with no session and no core attached yet.
func NewLinkHub(log *logger.Logger) *LinkHub {
	if log == nil {
		log = logger.Discard()
	}
	return &LinkHub{log: log}
}

// AttachCore points the hub at the command sink. The hub is built before the
// control loop so that the loop can take it as its line sender; the sink
// arrives right after.
func (hub *LinkHub) AttachCore(sink CommandSink) {
	hub.mu.Lock()
	hub.sink = sink
	hub.mu.Unlock()
}

// Connected reports whether a companion session is currently bound.
func (hub *LinkHub) Connected() bool {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return hub.cur != nil
}

// Send queues one protocol line for the current session. It never blocks the
// caller: with no companion, or a full queue, the line is dropped.
func (hub *LinkHub) Send(line string) {
	hub.mu.Lock()
	s := hub.cur
	hub.mu.Unlock()
	if s == nil {
		return
	}
	select {
	case s.out <- line:
	default:
		hub.log.Debugw("link_send_dropped", "bytes", len(line))
	}
}

// serve upgrades GET /link and runs the session until either side closes.
func (hub *LinkHub) serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.Errorw("link_upgrade_failed", "err", err)
		return
	}
	s := &linkSession{
		conn: conn,
		out:  make(chan string, linkSendBacklog),
		done: make(chan struct{}),
	}
	hub.bind(s)
	defer hub.unbind(s)

	go hub.writeLoop(s)
	hub.readLoop(s)
}

// bind installs the new session, closing any previous one.
func (hub *LinkHub) bind(s *linkSession) {
	hub.mu.Lock()
	old := hub.cur
	hub.cur = s
	sink := hub.sink
	hub.mu.Unlock()

	if old != nil {
		old.close()
		hub.log.Infow("link_session_supplanted")
	}
	if sink != nil {
		sink.SetLinkConnected(true)
	}
}

// unbind releases the session. Only the current session flips the connected
// flag off; a supplanted one exits without touching it.
func (hub *LinkHub) unbind(s *linkSession) {
	s.close()

	hub.mu.Lock()
	last := hub.cur == s
	if last {
		hub.cur = nil
	}
	sink := hub.sink
	hub.mu.Unlock()

	if last && sink != nil {
		sink.SetLinkConnected(false)
	}
}

// writeLoop drains the outbound queue and keeps the connection alive with
// pings, applying a write deadline per frame.
func (hub *LinkHub) writeLoop(s *linkSession) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-s.done:
			return
		case line := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				hub.log.Infow("link_write_failed", "err", err)
				s.close()
				return
			}
		case <-ping.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				hub.log.Infow("link_ping_failed", "err", err)
				s.close()
				return
			}
		}
	}
}

// readLoop forwards inbound frames to the command sink until the connection
// drops.
func (hub *LinkHub) readLoop(s *linkSession) {
	s.conn.SetReadLimit(maxMsgSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			hub.log.Infow("link_read_closed", "err", err)
			return
		}
		hub.mu.Lock()
		sink := hub.sink
		hub.mu.Unlock()
		if sink != nil {
			sink.SubmitCommand(string(payload))
		}
	}
}
