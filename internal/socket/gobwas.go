package socket

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// GobwasDialer dials with gobwas/ws.
type GobwasDialer struct {
	dialer ws.Dialer
}

// NewGobwasDialer creates a dialer with default options.
func NewGobwasDialer() *GobwasDialer {
	return &GobwasDialer{}
}

// Dial implements Dialer.
func (d *GobwasDialer) Dial(ctx context.Context, url string) (Socket, error) {
	conn, br, _, err := d.dialer.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	var src io.Reader = conn
	if br != nil {
		// Frames sent right after the handshake are already buffered in br.
		src = br
	}
	s := &gobwasSocket{conn: conn}
	s.control = wsutil.ControlFrameHandler(lockedWriter{s}, ws.StateClientSide)
	s.reader = &wsutil.Reader{
		Source:         src,
		State:          ws.StateClientSide,
		CheckUTF8:      true,
		MaxFrameSize:   MaxFrameSize,
		OnIntermediate: s.control,
	}
	return s, nil
}

// gobwasSocket frames text messages over a raw net.Conn.
// Reads run on a single goroutine; writes share writeMu with the control
// frame replies wsutil emits while reading.
type gobwasSocket struct {
	conn    net.Conn
	reader  *wsutil.Reader
	control wsutil.FrameHandlerFunc

	writeMu sync.Mutex
	once    sync.Once
}

func (s *gobwasSocket) Read(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetReadDeadline(deadline)
		defer s.conn.SetReadDeadline(time.Time{})
	}
	for {
		hdr, err := s.reader.NextFrame()
		if err != nil {
			return nil, err
		}
		if hdr.OpCode.IsControl() {
			if err := s.control(hdr, s.reader); err != nil {
				return nil, err
			}
			continue
		}
		if hdr.OpCode&(ws.OpText|ws.OpBinary) == 0 {
			if err := s.reader.Discard(); err != nil {
				return nil, err
			}
			continue
		}

		// MaxFrameSize is checked per frame; the limit also bounds the
		// reassembled message.
		data, err := io.ReadAll(io.LimitReader(s.reader, MaxFrameSize+1))
		if err != nil {
			return nil, err
		}
		if len(data) > MaxFrameSize {
			return nil, wsutil.ErrFrameTooLarge
		}
		return data, nil
	}
}

func (s *gobwasSocket) Write(ctx context.Context, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
		defer s.conn.SetWriteDeadline(time.Time{})
	}
	return wsutil.WriteClientMessage(s.conn, ws.OpText, data)
}

func (s *gobwasSocket) Close() error {
	var err error
	s.once.Do(func() {
		s.writeMu.Lock()
		_ = wsutil.WriteClientMessage(s.conn, ws.OpClose, nil)
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

type lockedWriter struct {
	s *gobwasSocket
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.s.writeMu.Lock()
	defer w.s.writeMu.Unlock()
	return w.s.conn.Write(p)
}
