package carbon

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// State is the connection state of the outbound stream.
type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// stream owns the TCP connection to the Carbon endpoint. It is driven by a
// single goroutine; mu only protects conn so close can be called from elsewhere.
type stream struct {
	addr           string
	dialer         Dialer
	clock          clock.Clock
	logger         *zap.Logger
	dialTimeout    time.Duration
	writeTimeout   time.Duration
	reconnectDelay time.Duration

	mu   sync.Mutex
	conn net.Conn
}

func (s *stream) state() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return Disconnected
	}
	return Connected
}

// connect dials once. A failure leaves the stream Disconnected.
func (s *stream) connect(ctx context.Context) error {
	dctx, cancel := context.WithTimeout(ctx, s.dialTimeout)
	defer cancel()
	conn, err := s.dialer.DialContext(dctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConnectionFailure, s.addr, err)
	}

	s.mu.Lock()
	old := s.conn
	s.conn = conn
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	s.logger.Debug("connected", zap.String("addr", s.addr))
	return nil
}

// reconnect waits reconnectDelay and dials, forever, until it succeeds or ctx
// is done.
func (s *stream) reconnect(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		s.logger.Info("waiting before reconnect",
			zap.String("addr", s.addr),
			zap.Duration("delay", s.reconnectDelay),
			zap.Int("attempt", attempt),
		)
		if err := sleep(ctx, s.clock, s.reconnectDelay); err != nil {
			return err
		}
		err := s.connect(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("reconnect failed", zap.Error(err), zap.Int("attempt", attempt))
	}
}

// write sends line, reconnecting and retrying the same line until it is
// written. It only gives up when ctx is done.
func (s *stream) write(ctx context.Context, line string) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()

		if conn == nil {
			if err := s.reconnect(ctx); err != nil {
				return err
			}
			continue
		}

		// deadlines are wall-clock, independent of the injected clock
		_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		if _, err := io.WriteString(conn, line); err != nil {
			s.logger.Warn("dropping connection",
				zap.String("addr", s.addr),
				zap.Error(fmt.Errorf("%w: %v", ErrWriteFailure, err)),
			)
			s.drop(conn)
			continue
		}
		return nil
	}
}

// drop closes conn if it is still the current connection.
func (s *stream) drop(conn net.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	_ = conn.Close()
}

func (s *stream) close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func sleep(ctx context.Context, clk clock.Clock, d time.Duration) error {
	t := clk.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
