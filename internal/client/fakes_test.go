package client_test

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/omochice/chatlink/internal/client"
	"github.com/omochice/chatlink/internal/socket"
)

// fakeSocket is an in-memory socket.Socket.
type fakeSocket struct {
	url     string
	inbound chan []byte
	closed  chan struct{}
	once    sync.Once

	mu       sync.Mutex
	written  [][]byte
	writeErr error
}

func newFakeSocket(url string) *fakeSocket {
	return &fakeSocket{
		url:     url,
		inbound: make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

func (s *fakeSocket) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.closed:
		return nil, io.EOF
	case data := <-s.inbound:
		return data, nil
	}
}

func (s *fakeSocket) Write(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	s.written = append(s.written, copied)
	return nil
}

func (s *fakeSocket) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// PeerClose simulates the server or network dropping the connection.
func (s *fakeSocket) PeerClose() {
	s.Close()
}

// Push queues an inbound frame.
func (s *fakeSocket) Push(data string) {
	s.inbound <- []byte(data)
}

func (s *fakeSocket) IsClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *fakeSocket) Written() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.written...)
}

// fakeDialer records every dial. Queued errors fail the next dials in order.
// When gate is set, Dial waits for it to close regardless of ctx.
type fakeDialer struct {
	mu      sync.Mutex
	urls    []string
	sockets []*fakeSocket
	errs    []error
	gate    chan struct{}
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (socket.Socket, error) {
	d.mu.Lock()
	d.urls = append(d.urls, url)
	gate := d.gate
	var err error
	if len(d.errs) > 0 {
		err, d.errs = d.errs[0], d.errs[1:]
	}
	d.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	s := newFakeSocket(url)
	d.mu.Lock()
	d.sockets = append(d.sockets, s)
	d.mu.Unlock()
	return s, nil
}

func (d *fakeDialer) FailNext(errs ...error) {
	d.mu.Lock()
	d.errs = append(d.errs, errs...)
	d.mu.Unlock()
}

func (d *fakeDialer) URLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

func (d *fakeDialer) Attempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *fakeDialer) Last() *fakeSocket {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sockets) == 0 {
		return nil
	}
	return d.sockets[len(d.sockets)-1]
}

// manualScheduler only fires timers when the test says so.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	s       *manualScheduler
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) client.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Pending returns timers neither stopped nor fired.
func (s *manualScheduler) Pending() []*manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*manualTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// Fire runs every pending timer.
func (s *manualScheduler) Fire() int {
	pending := s.Pending()
	s.mu.Lock()
	for _, t := range pending {
		t.fired = true
	}
	s.mu.Unlock()
	for _, t := range pending {
		t.f()
	}
	return len(pending)
}

// FireStopped runs every timer, including stopped ones, the way a timer
// that lost the race with Stop would.
func (s *manualScheduler) FireStopped() {
	s.mu.Lock()
	all := append([]*manualTimer(nil), s.timers...)
	s.mu.Unlock()
	for _, t := range all {
		t.f()
	}
}

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
