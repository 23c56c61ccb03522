package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	queueSize     = 1024
	ackBuffer     = 16
	redialLimit   = 10
	redialCeiling = 30 * time.Second
	writeTimeout  = 10 * time.Second
)

var errStreamClosed = errors.New("websocket stream closed")

// stream owns the connection to one viewer. Each live connection has one writer pump
// draining queue and one reader pump forwarding acks. Every new connection, including
// one made after a drop, opens with the hello message.
type stream struct {
	endpoint string
	hello    []byte
	log      *slog.Logger

	queue chan []byte
	acks  chan AckMessage
	stop  chan struct{}

	mu      sync.Mutex
	cur     *link
	stopped bool
}

// link is a single dialed connection. lost is closed when it is dropped.
type link struct {
	conn *ws.Conn
	lost chan struct{}
}

// endpointURL adds the secret to target as a query parameter.
func endpointURL(target, secret string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid websocket URL: %w", err)
	}
	if secret != "" {
		q := u.Query()
		q.Set("secret", secret)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func openStream(endpoint string, hello []byte, log *slog.Logger) (*stream, error) {
	s := &stream{
		endpoint: endpoint,
		hello:    hello,
		log:      log,
		queue:    make(chan []byte, queueSize),
		acks:     make(chan AckMessage, ackBuffer),
		stop:     make(chan struct{}),
	}
	conn, err := s.connect()
	if err != nil {
		return nil, err
	}
	s.attach(conn)
	return s, nil
}

func (s *stream) connect() (*ws.Conn, error) {
	conn, _, err := ws.DefaultDialer.Dial(s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	if s.hello != nil {
		if err := write(conn, s.hello); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("sending %s: %w", TypeStartDataset, err)
		}
	}
	return conn, nil
}

func (s *stream) attach(conn *ws.Conn) {
	l := &link{conn: conn, lost: make(chan struct{})}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.cur = l
	s.mu.Unlock()

	go s.pumpWrites(l)
	go s.pumpAcks(l)
}

func write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

func (s *stream) pumpWrites(l *link) {
	for {
		select {
		case <-s.stop:
			return
		case <-l.lost:
			return
		case data := <-s.queue:
			if err := write(l.conn, data); err != nil {
				s.log.Warn("viewer write failed, message dropped", "error", err)
				s.drop(l, err)
				return
			}
		}
	}
}

func (s *stream) pumpAcks(l *link) {
	for {
		_, msg, err := l.conn.ReadMessage()
		if err != nil {
			s.drop(l, err)
			return
		}

		var ack AckMessage
		if json.Unmarshal(msg, &ack) != nil || ack.Type != "ack" {
			s.log.Debug("ignoring viewer message", "raw", string(msg))
			continue
		}
		select {
		case s.acks <- ack:
		default:
			s.log.Debug("ack buffer full", "for", ack.For)
		}
	}
}

// drop retires l and starts a redial. Only the first caller for the current link acts.
func (s *stream) drop(l *link, cause error) {
	s.mu.Lock()
	if s.stopped || s.cur != l {
		s.mu.Unlock()
		return
	}
	s.cur = nil
	s.mu.Unlock()

	close(l.lost)
	_ = l.conn.Close()
	s.log.Warn("viewer connection lost", "error", cause)
	go s.redial()
}

func (s *stream) redial() {
	wait := time.Second
	for attempt := 1; attempt <= redialLimit; attempt++ {
		select {
		case <-s.stop:
			return
		case <-time.After(wait):
		}

		conn, err := s.connect()
		if err != nil {
			s.log.Warn("viewer redial failed", "attempt", attempt, "error", err)
			wait = min(wait*2, redialCeiling)
			continue
		}
		s.log.Info("viewer connection restored", "attempt", attempt)
		s.attach(conn)
		return
	}
	s.log.Error("giving up on viewer connection", "attempts", redialLimit)
}

// enqueue hands data to the writer pump, blocking while the queue is full.
func (s *stream) enqueue(data []byte) error {
	select {
	case <-s.stop:
		return errStreamClosed
	default:
	}
	select {
	case s.queue <- data:
		return nil
	case <-s.stop:
		return errStreamClosed
	}
}

// awaitAck blocks until the viewer acks msgType. Acks for other types are discarded.
func (s *stream) awaitAck(msgType string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-s.acks:
			if ack.For == msgType {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", msgType)
		case <-s.stop:
			return fmt.Errorf("%w while waiting for ack of %q", errStreamClosed, msgType)
		}
	}
}

// shutdown stops the pumps and sends a normal close frame. It is idempotent.
func (s *stream) shutdown() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	close(s.stop)
	l := s.cur
	s.cur = nil
	s.mu.Unlock()

	if l == nil {
		return nil
	}
	close(l.lost)
	_ = l.conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	return l.conn.Close()
}
