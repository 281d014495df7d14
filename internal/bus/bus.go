// Package bus implements a broker-less, topic-prefixed publish/subscribe
// transport over raw TCP. A single Publisher binds and accepts many
// Subscriber connections; each Subscriber filters incoming messages by a
// topic prefix, mirroring the broker-less pub/sub semantics the event bus
// was originally built on (bind-once publisher, many independently
// filtering subscribers, no central broker process).
//
// Wire format: each message is two length-prefixed frames — a topic string
// followed by a JSON payload — matching the two-frame multipart convention
// of the transport this package replaces.
package bus

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

// slowJoinerDelay is how long a fresh Subscriber connection should be
// allowed to settle before a caller starts relying on it to receive
// messages. Broker-less pub/sub sockets need a brief window after connect
// before delivery is reliable; callers that publish immediately after a
// subscriber connects should sleep at least this long first.
const slowJoinerDelay = time.Second

// Publisher binds a listener and fans out published messages to every
// currently connected subscriber. A single background goroutine drains an
// in-memory queue so Publish never blocks the caller on a slow reader.
type Publisher struct {
	ln net.Listener

	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	queue   []frame
	closed  bool
	wake    chan struct{}
	doneAll chan struct{}
}

type frame struct {
	topic   string
	payload []byte
}

// NewPublisher binds addr and starts accepting subscriber connections and
// draining the publish queue in background goroutines.
func NewPublisher(addr string) (*Publisher, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	p := &Publisher{
		ln:      ln,
		conns:   make(map[net.Conn]struct{}),
		wake:    make(chan struct{}, 1),
		doneAll: make(chan struct{}),
	}

	go p.acceptLoop()
	go p.drainLoop()

	return p, nil
}

// Addr returns the bound listener address, useful when binding to ":0" in
// tests.
func (p *Publisher) Addr() string {
	return p.ln.Addr().String()
}

func (p *Publisher) acceptLoop() {
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			_ = conn.Close()
			return
		}
		p.conns[conn] = struct{}{}
		p.mu.Unlock()
	}
}

// Publish enqueues a message for delivery to every connected subscriber.
// The JSON payload is marshaled synchronously but delivery happens on the
// background drain goroutine, so a slow or stalled subscriber cannot block
// the caller.
func (p *Publisher) Publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.New("bus: publisher closed")
	}
	p.queue = append(p.queue, frame{topic: topic, payload: payload})
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

func (p *Publisher) drainLoop() {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			<-p.wake
			continue
		}
		next := p.queue[0]
		p.queue = p.queue[1:]
		conns := make([]net.Conn, 0, len(p.conns))
		for c := range p.conns {
			conns = append(conns, c)
		}
		p.mu.Unlock()

		for _, c := range conns {
			if err := writeFrames(c, next.topic, next.payload); err != nil {
				p.mu.Lock()
				delete(p.conns, c)
				p.mu.Unlock()
				_ = c.Close()
			}
		}
	}
}

// Close stops accepting new connections, closes every subscriber
// connection, and shuts down the background drain goroutine.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for c := range p.conns {
		_ = c.Close()
	}
	p.conns = nil
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return p.ln.Close()
}

// Subscriber connects to one or more publisher endpoints and delivers
// messages whose topic begins with the configured prefix to a callback.
// An empty prefix receives every topic. Multiple endpoints are fanned in
// concurrently, mirroring the fair-queuing behavior of a multi-endpoint
// broker-less subscription.
type Subscriber struct {
	prefix   string
	callback func(topic string, payload []byte)

	mu    sync.Mutex
	conns []net.Conn
}

// NewSubscriber creates a subscriber that invokes callback for every
// message whose topic has the given prefix.
func NewSubscriber(prefix string, callback func(topic string, payload []byte)) *Subscriber {
	return &Subscriber{prefix: prefix, callback: callback}
}

// Connect dials addr and starts a receive loop in a background goroutine.
// It returns once the connection is established; there is no separate
// ready signal. Callers that need slow-joiner settling should sleep for
// SettleDelay after Connect returns before relying on delivery.
func (s *Subscriber) Connect(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	go s.readLoop(conn)
	return nil
}

// SettleDelay returns the recommended pause after Connect before a
// publisher on the other end should be relied on to reach this subscriber.
func SettleDelay() time.Duration {
	return slowJoinerDelay
}

func (s *Subscriber) readLoop(conn net.Conn) {
	r := bufio.NewReader(conn)
	for {
		topic, payload, err := readFrames(r)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				// Connection error; stop this reader. The caller is
				// responsible for reconnecting if desired.
			}
			return
		}
		if s.prefix == "" || hasPrefix(topic, s.prefix) {
			s.callback(topic, payload)
		}
	}
}

// Close closes every underlying connection, terminating all receive loops.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, c := range s.conns {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.conns = nil
	return firstErr
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func writeFrames(w io.Writer, topic string, payload []byte) error {
	if err := writeFrame(w, []byte(topic)); err != nil {
		return err
	}
	return writeFrame(w, payload)
}

func writeFrame(w io.Writer, b []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readFrames(r *bufio.Reader) (topic string, payload []byte, err error) {
	topicBytes, err := readFrame(r)
	if err != nil {
		return "", nil, err
	}
	payload, err = readFrame(r)
	if err != nil {
		return "", nil, err
	}
	return string(topicBytes), payload, nil
}

func readFrame(r *bufio.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
